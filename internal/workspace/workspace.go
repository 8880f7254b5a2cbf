// Package workspace owns the two on-disk git constructs spec.md §4.4
// distinguishes: the per-operation worktree (one per operation, torn down
// on prune) and the merge workspace (one long-lived checkout used only by
// the merge daemon).
package workspace

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/v0cli/v0/internal/config"
	"github.com/v0cli/v0/internal/git"
	"github.com/v0cli/v0/internal/state"
)

// Manager creates and tears down per-operation worktrees against the
// project's base repository.
type Manager struct {
	base  *git.Git
	cfg   *config.ProjectConfig
	paths *config.Paths
}

// New creates a Manager over the project's base repository.
func New(base *git.Git, cfg *config.ProjectConfig, paths *config.Paths) *Manager {
	return &Manager{base: base, cfg: cfg, paths: paths}
}

// BranchFor expands the branch template configured for kind with name,
// one pattern each for feature (also used for roadmap), fix and chore,
// with no timestamp suffix since v0 branch names are the operation's own
// unique name.
func (m *Manager) BranchFor(kind state.Kind, name string) string {
	var pattern config.BranchPattern
	switch kind {
	case state.KindFix:
		pattern = m.cfg.BugfixBranch
	case state.KindChore:
		pattern = m.cfg.ChoreBranch
	default: // feature, roadmap
		pattern = m.cfg.FeatureBranch
	}
	return pattern.Expand(name)
}

// Create adds a git worktree for op at {state_dir}/tree/{branch}/{repo},
// branching from origin/{develop}, and runs the configured worktree init
// hook once inside it if one is set. It returns the worktree path and the
// branch name, the two fields the caller stamps onto the operation.
func (m *Manager) Create(op *state.Operation) (worktreePath, branch string, err error) {
	branch = m.BranchFor(op.Kind, op.Name)
	worktreePath = m.paths.TreeDir(branch)

	if _, statErr := os.Stat(worktreePath); statErr == nil {
		return "", "", fmt.Errorf("worktree already exists at %s", worktreePath)
	}

	if err := m.base.Fetch(m.cfg.GitRemote); err != nil {
		return "", "", fmt.Errorf("fetching %s: %w", m.cfg.GitRemote, err)
	}
	startPoint := fmt.Sprintf("%s/%s", m.cfg.GitRemote, m.cfg.DevelopBranch)
	if err := m.base.WorktreeAddFromRef(worktreePath, branch, startPoint); err != nil {
		return "", "", fmt.Errorf("creating worktree from %s: %w", startPoint, err)
	}

	if m.cfg.WorktreeInit != "" {
		if err := m.runInitHook(worktreePath); err != nil {
			return worktreePath, branch, fmt.Errorf("worktree init hook: %w", err)
		}
	}

	return worktreePath, branch, nil
}

func (m *Manager) runInitHook(worktreePath string) error {
	cmd := exec.Command("sh", "-c", m.cfg.WorktreeInit)
	cmd.Dir = worktreePath
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// WriteSessionMarker records the hosting tmux session name in the
// worktree's .v0-session file, a reverse (session -> worktree) lookup;
// ReadSessionMarker reads it back, and nothing outside the tests does.
func (m *Manager) WriteSessionMarker(worktreePath, session string) error {
	return os.WriteFile(filepath.Join(worktreePath, ".v0-session"), []byte(session), 0644)
}

// ReadSessionMarker reads back the session marker written by
// WriteSessionMarker, or "" if the worktree has none.
func (m *Manager) ReadSessionMarker(worktreePath string) string {
	data, err := os.ReadFile(filepath.Join(worktreePath, ".v0-session"))
	if err != nil {
		return ""
	}
	return string(data)
}

// Remove deletes op's worktree. force bypasses git's uncommitted-changes
// guard, the path `prune` takes on operations whose merge already landed
// or that were cancelled outright.
func (m *Manager) Remove(worktreePath string, force bool) error {
	if worktreePath == "" {
		return nil
	}
	if err := m.base.WorktreeRemove(worktreePath, force); err != nil {
		return fmt.Errorf("removing worktree %s: %w", worktreePath, err)
	}
	return nil
}
