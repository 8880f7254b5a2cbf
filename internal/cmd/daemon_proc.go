package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/v0cli/v0/internal/config"
	"github.com/v0cli/v0/internal/mergequeue"
	"github.com/v0cli/v0/internal/nudger"
	"github.com/v0cli/v0/internal/poller"
	"github.com/v0cli/v0/internal/state"
)

// InternalDaemonFlag is the hidden re-exec entry point start.go uses to
// spawn a detached daemon: `v0 --internal-daemon=<worker> <project-root>`.
// It is never shown in --help and isn't part of the stable command
// surface; it exists only so `v0 start <worker>` can launch a daemon that
// survives the parent CLI invocation exiting, the same detached-subprocess
// shape the teacher uses to background its own long-running services.
const InternalDaemonFlag = "--internal-daemon="

var daemonKinds = map[string]bool{
	"fix": true, "chore": true, "merge": true, "nudge": true,
}

// spawnDaemon re-execs the running binary in daemon mode, detached from
// this process group, with its own log file and pid file. It returns
// once the child has started; the child's own singleton lock (acquired
// inside runInternalDaemon) is what actually prevents duplicates.
func spawnDaemon(worker, root, logPath string) error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating v0 binary: %w", err)
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening log file %s: %w", logPath, err)
	}

	cmd := exec.Command(self, InternalDaemonFlag+worker, root)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		_ = logFile.Close()
		return fmt.Errorf("starting %s daemon: %w", worker, err)
	}
	go func() {
		_ = cmd.Wait()
		_ = logFile.Close()
	}()
	return nil
}

// RunInternalDaemon is the child side of spawnDaemon: it loads the
// project at root and blocks running the named daemon's loop until a
// signal arrives. cmd/v0/main.go calls this directly, before cobra ever
// sees os.Args, when it detects the InternalDaemonFlag.
func RunInternalDaemon(worker, root string) error {
	cfg, err := config.LoadFromRoot(root)
	if err != nil {
		return fmt.Errorf("loading project at %s: %w", root, err)
	}
	d := buildDeps(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	switch worker {
	case "fix":
		p := poller.New(state.KindFix, d.issues, d.store, d.events, d.machine, d.worktrees, d.host, d.queue, d.cfg, d.paths)
		return p.Run(ctx)
	case "chore":
		p := poller.New(state.KindChore, d.issues, d.store, d.events, d.machine, d.worktrees, d.host, d.queue, d.cfg, d.paths)
		return p.Run(ctx)
	case "merge":
		daemon := mergequeue.NewDaemon(d.queue, d.store, d.events, d.machine, d.resolver, d.issues, d.base, d.mergeWS, d.worktrees, d.host, d.cfg, d.paths, d.notifier)
		return daemon.Run(ctx)
	case "nudge":
		n := nudger.New(d.store, d.tmux, d.cfg, d.paths)
		return n.Run(ctx)
	default:
		return fmt.Errorf("unknown daemon %q", worker)
	}
}
