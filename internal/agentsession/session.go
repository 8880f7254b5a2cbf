// Package agentsession is the Agent Session Host: it names, launches, and
// reaps one Agent CLI invocation inside a tmux session bound to an
// operation's worktree.
package agentsession

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/v0cli/v0/internal/state"
	"github.com/v0cli/v0/internal/tmux"
)

// killGrace is how long KillByPid waits after SIGTERM before escalating
// to SIGKILL, per spec.md §4.5's "~1.5s" cleanup fallback window.
const killGrace = 1500 * time.Millisecond

// PidFileName is the file the wrapper script writes the Agent's pid to,
// inside the worktree, per spec.md §4.5.
const PidFileName = ".claude.pid"

// Name builds the session name "v0-{project}-{suffix}-{kind}", scoping
// every tmux lookup to a single project the way the teacher's
// session.PolecatSessionName scopes lookups to a rig prefix.
func Name(project, suffix string, kind state.Kind) string {
	return fmt.Sprintf("v0-%s-%s-%s", project, suffix, kind)
}

// Host launches and reaps Agent invocations for operations.
type Host struct {
	tm      *tmux.Tmux
	project string
	agentBinary string
}

// NewHost creates a Host. agentBinary is the name or path of the Agent
// CLI to launch inside each session.
func NewHost(tm *tmux.Tmux, project, agentBinary string) *Host {
	return &Host{tm: tm, project: project, agentBinary: agentBinary}
}

// PidFilePath is the absolute path of the pid file inside worktree.
func PidFilePath(worktree string) string {
	return filepath.Join(worktree, PidFileName)
}

// wrapperScript is the command run as the session's initial process: it
// launches the Agent as a child, records its pid, waits for exit, then
// cleans up and runs the completion hook. Built as a single `sh -c`
// argument rather than a script file so no extra file needs writing
// before the session starts.
func wrapperScript(worktree, agentBinary string) string {
	pidFile := PidFilePath(worktree)
	return strings.Join([]string{
		fmt.Sprintf("cd %s", shQuote(worktree)),
		fmt.Sprintf("%s & AGENT_PID=$!", agentBinary),
		fmt.Sprintf("echo $AGENT_PID > %s", shQuote(pidFile)),
		"wait $AGENT_PID",
		fmt.Sprintf("rm -f %s", shQuote(pidFile)),
		fmt.Sprintf("[ -x %s ] && %s", shQuote(filepath.Join(worktree, ".v0-on-exit")), shQuote(filepath.Join(worktree, ".v0-on-exit"))),
	}, "; ")
}

func shQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Launch starts a tmux session for op: the command exports V0_OP/V0_ROOT
// and runs the wrapper script that tracks the Agent's pid.
func (h *Host) Launch(op *state.Operation, suffix, prompt string) (session string, err error) {
	session = Name(h.project, suffix, op.Kind)
	env := map[string]string{
		"V0_OP":   op.Name,
		"V0_ROOT": op.Worktree,
	}
	command := wrapperScript(op.Worktree, h.agentBinary)
	if err := h.tm.NewSessionWithCommandAndEnv(session, op.Worktree, command, env); err != nil {
		return "", fmt.Errorf("launching agent session: %w", err)
	}
	if prompt != "" {
		if err := h.tm.SendKeys(session, prompt); err != nil {
			return session, fmt.Errorf("sending initial prompt: %w", err)
		}
	}
	return session, nil
}

// IsAlive reports whether session still exists.
func (h *Host) IsAlive(session string) bool {
	alive, err := h.tm.HasSession(session)
	return err == nil && alive
}

// ReadPid reads the Agent's pid from its worktree's pid file. Returns 0,
// nil if the file doesn't exist (the Agent already exited and the
// wrapper cleaned up).
func ReadPid(worktree string) (int, error) {
	data, err := os.ReadFile(PidFilePath(worktree))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parsing pid file: %w", err)
	}
	return pid, nil
}

// KillByPid validates the candidate process's cwd is inside worktree,
// then sends SIGTERM and escalates to SIGKILL after a grace period — the
// cleanup fallback spec.md §4.5 describes for when the multiplexer
// session has already died or state has been pruned.
func KillByPid(worktree string, pid int) error {
	if pid <= 0 {
		return nil
	}
	cwd, err := processCwd(pid)
	if err != nil {
		return nil // process already gone
	}
	if !strings.HasPrefix(cwd, worktree) {
		return fmt.Errorf("refusing to kill pid %d: cwd %s is outside worktree %s", pid, cwd, worktree)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return nil
	}
	time.Sleep(killGrace)
	if proc.Signal(syscall.Signal(0)) == nil {
		_ = proc.Signal(syscall.SIGKILL)
	}
	return nil
}

// processCwd resolves a pid's current working directory via /proc, the
// only portable-enough source on the Linux hosts v0 targets.
func processCwd(pid int) (string, error) {
	return os.Readlink(fmt.Sprintf("/proc/%d/cwd", pid))
}
