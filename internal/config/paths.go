package config

import (
	"os"
	"path/filepath"
)

// StateRoot returns ${XDG_STATE_HOME:-~/.local/state}/v0/{project}.
func StateRoot(project string) string {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, "v0", project)
}

// Paths centralises every on-disk location §6 of the spec names, derived
// from a loaded ProjectConfig.
type Paths struct {
	cfg *ProjectConfig
}

// NewPaths builds a Paths helper for cfg.
func NewPaths(cfg *ProjectConfig) *Paths {
	return &Paths{cfg: cfg}
}

// BuildDir is {root}/{V0_BUILD_DIR}.
func (p *Paths) BuildDir() string {
	return filepath.Join(p.cfg.Root, p.cfg.BuildDir)
}

// OperationDir is {buildDir}/operations/{name}.
func (p *Paths) OperationDir(name string) string {
	return filepath.Join(p.BuildDir(), "operations", name)
}

// OperationStateFile is {buildDir}/operations/{name}/state.json.
func (p *Paths) OperationStateFile(name string) string {
	return filepath.Join(p.OperationDir(name), "state.json")
}

// OperationLogDir is {buildDir}/operations/{name}/logs.
func (p *Paths) OperationLogDir(name string) string {
	return filepath.Join(p.OperationDir(name), "logs")
}

// OperationLogFile is {buildDir}/operations/{name}/logs/{base}.log, base one
// of "events", "feature", "claude", "plan".
func (p *Paths) OperationLogFile(name, base string) string {
	return filepath.Join(p.OperationLogDir(name), base+".log")
}

// MergeQueueFile is {buildDir}/mergeq/queue.json.
func (p *Paths) MergeQueueFile() string {
	return filepath.Join(p.BuildDir(), "mergeq", "queue.json")
}

// MergeQueueLockFile is the advisory lock guarding queue.json mutation.
func (p *Paths) MergeQueueLockFile() string {
	return filepath.Join(p.BuildDir(), "mergeq", "queue.lock")
}

// ProjectLogFile is {buildDir}/logs/{base}.log, base e.g. "v0", "trace",
// or a daemon name ("fix", "chore", "merge", "nudge") for `v0 start`.
func (p *Paths) ProjectLogFile(base string) string {
	return filepath.Join(p.BuildDir(), "logs", base+".log")
}

// PlansDir is {root}/{V0_PLANS_DIR}.
func (p *Paths) PlansDir() string {
	return filepath.Join(p.cfg.Root, p.cfg.PlansDir)
}

// StateRoot is the per-project XDG state root.
func (p *Paths) StateRoot() string {
	return StateRoot(p.cfg.Project)
}

// TreeDir is {stateRoot}/tree/{branchExpansion}/{repoName}, the per-operation
// worktree. repoName is the basename of the project root.
func (p *Paths) TreeDir(branchExpansion string) string {
	return filepath.Join(p.StateRoot(), "tree", branchExpansion, filepath.Base(p.cfg.Root))
}

// TreeSessionMarker is the reverse tmux-session -> worktree lookup file for
// a given branch expansion.
func (p *Paths) TreeSessionMarker(branchExpansion string) string {
	return filepath.Join(p.StateRoot(), "tree", branchExpansion, ".tmux-session")
}

// WorkspaceDir is {stateRoot}/workspace, the merge workspace.
func (p *Paths) WorkspaceDir() string {
	return filepath.Join(p.StateRoot(), "workspace")
}

// NudgePidFile is {stateRoot}/.nudge.pid.
func (p *Paths) NudgePidFile() string {
	return filepath.Join(p.StateRoot(), ".nudge.pid")
}

// PruneDaemonPidFile is {stateRoot}/.prune-daemon.pid.
func (p *Paths) PruneDaemonPidFile() string {
	return filepath.Join(p.StateRoot(), ".prune-daemon.pid")
}

// PollerPidFile is {stateRoot}/.{kind}-poller.pid, the per-kind daemon
// singleton lock/pid file.
func (p *Paths) PollerPidFile(kind string) string {
	return filepath.Join(p.StateRoot(), "."+kind+"-poller.pid")
}

// MergeDaemonPidFile is {stateRoot}/.mergeq-daemon.pid.
func (p *Paths) MergeDaemonPidFile() string {
	return filepath.Join(p.StateRoot(), ".mergeq-daemon.pid")
}

// RootBackPointerFile is {stateRoot}/.v0.root, used by `status --all`.
func (p *Paths) RootBackPointerFile() string {
	return filepath.Join(p.StateRoot(), ".v0.root")
}

// EnsureStateDirs creates the directories under the state root that must
// exist before any worker/daemon can write to them.
func (p *Paths) EnsureStateDirs() error {
	for _, d := range []string{
		p.StateRoot(),
		filepath.Join(p.StateRoot(), "tree"),
		p.WorkspaceDir(),
	} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}
