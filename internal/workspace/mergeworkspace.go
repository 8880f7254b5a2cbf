package workspace

import (
	"fmt"
	"os"

	"github.com/v0cli/v0/internal/config"
	"github.com/v0cli/v0/internal/git"
)

// MergeWorkspace is the single long-lived checkout the merge daemon uses
// to land completed operations onto the develop branch. Push and pull on
// a user's own checkout never touch this: it exists purely for the merge
// daemon's own serialized integration work.
type MergeWorkspace struct {
	base  *git.Git
	cfg   *config.ProjectConfig
	paths *config.Paths
}

// NewMergeWorkspace creates a MergeWorkspace manager over the project's
// base repository.
func NewMergeWorkspace(base *git.Git, cfg *config.ProjectConfig, paths *config.Paths) *MergeWorkspace {
	return &MergeWorkspace{base: base, cfg: cfg, paths: paths}
}

// Ensure lazily creates the merge workspace if it doesn't already exist,
// idempotent across repeated merge cycles. The mode (clone vs. worktree)
// follows config.ProjectConfig.InferredWorkspaceMode.
func (w *MergeWorkspace) Ensure() (*git.Git, error) {
	dir := w.paths.WorkspaceDir()

	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		ws := git.NewGit(dir)
		if valid, _ := w.validate(ws); valid {
			return ws, nil
		}
		// Corrupted workspace: wipe and recreate below.
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("removing corrupted merge workspace: %w", err)
		}
	}

	switch w.cfg.InferredWorkspaceMode() {
	case config.WorkspaceModeWorktree:
		if err := w.base.WorktreeAddExisting(dir, w.cfg.DevelopBranch); err != nil {
			return nil, fmt.Errorf("creating merge worktree: %w", err)
		}
	default: // clone mode
		remoteURL, err := w.base.RemoteURL(w.cfg.GitRemote)
		if err != nil {
			return nil, fmt.Errorf("resolving remote %s: %w", w.cfg.GitRemote, err)
		}
		if err := w.base.Clone(remoteURL, dir); err != nil {
			return nil, fmt.Errorf("cloning merge workspace: %w", err)
		}
		ws := git.NewGit(dir)
		if err := ws.Checkout(w.cfg.DevelopBranch); err != nil {
			return nil, fmt.Errorf("checking out %s in merge workspace: %w", w.cfg.DevelopBranch, err)
		}
	}

	return git.NewGit(dir), nil
}

// validate checks the invariants the merge daemon needs before a merge:
// HEAD resolves, the develop branch is checked out, and the tree is
// clean.
func (w *MergeWorkspace) validate(ws *git.Git) (bool, error) {
	if _, err := ws.Rev("HEAD"); err != nil {
		return false, err
	}
	branch, err := ws.CurrentBranch()
	if err != nil {
		return false, err
	}
	if branch != w.cfg.DevelopBranch {
		return false, nil
	}
	dirty, err := ws.HasUncommittedChanges()
	if err != nil {
		return false, err
	}
	return !dirty, nil
}
