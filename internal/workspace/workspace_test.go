package workspace

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/v0cli/v0/internal/config"
	"github.com/v0cli/v0/internal/git"
	"github.com/v0cli/v0/internal/state"
)

func hasGit() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

func run(t *testing.T, dir, name string, args ...string) {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_AUTHOR_NAME=t", "GIT_AUTHOR_EMAIL=t@t.com", "GIT_COMMITTER_NAME=t", "GIT_COMMITTER_EMAIL=t@t.com")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("%s %v: %v\n%s", name, args, err, out)
	}
}

// newTestRepo creates a bare-origin-backed local repo with a develop
// branch and one commit, the minimum a worktree Create call needs.
func newTestRepo(t *testing.T) (repoDir string, cfg *config.ProjectConfig, paths *config.Paths) {
	t.Helper()
	if !hasGit() {
		t.Skip("git not installed")
	}
	root := t.TempDir()
	originDir := filepath.Join(root, "origin.git")
	repoDir = filepath.Join(root, "repo")

	run(t, root, "git", "init", "--bare", originDir)
	run(t, root, "git", "init", repoDir)
	run(t, repoDir, "git", "checkout", "-b", "main")
	if err := os.WriteFile(filepath.Join(repoDir, "README.md"), []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	run(t, repoDir, "git", "add", ".")
	run(t, repoDir, "git", "commit", "-m", "init")
	run(t, repoDir, "git", "remote", "add", "origin", originDir)
	run(t, repoDir, "git", "push", "origin", "main")

	cfg = &config.ProjectConfig{
		Root:          repoDir,
		Project:       "acme",
		BuildDir:      ".v0/build",
		DevelopBranch: "main",
		GitRemote:     "origin",
		FeatureBranch: "feature/{name}",
		BugfixBranch:  "fix/{id}",
		ChoreBranch:   "chore/{id}",
	}
	t.Setenv("XDG_STATE_HOME", filepath.Join(root, "xdg-state"))
	paths = config.NewPaths(cfg)
	return repoDir, cfg, paths
}

func TestCreateWorktree(t *testing.T) {
	repoDir, cfg, paths := newTestRepo(t)
	m := New(git.NewGit(repoDir), cfg, paths)

	op := &state.Operation{Name: "auth", Kind: state.KindFeature}
	path, branch, err := m.Create(op)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if branch != "feature/auth" {
		t.Errorf("branch = %q, want feature/auth", branch)
	}
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		t.Fatalf("worktree path %s not created: %v", path, err)
	}
}

func TestCreateWorktreeAlreadyExists(t *testing.T) {
	repoDir, cfg, paths := newTestRepo(t)
	m := New(git.NewGit(repoDir), cfg, paths)

	op := &state.Operation{Name: "auth", Kind: state.KindFeature}
	if _, _, err := m.Create(op); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if _, _, err := m.Create(op); err == nil {
		t.Fatal("expected error creating worktree a second time")
	}
}

func TestBranchForByKind(t *testing.T) {
	_, cfg, paths := newTestRepo(t)
	m := New(nil, cfg, paths)

	if got := m.BranchFor(state.KindFeature, "auth"); got != "feature/auth" {
		t.Errorf("BranchFor(feature) = %q", got)
	}
	if got := m.BranchFor(state.KindFix, "123"); got != "fix/123" {
		t.Errorf("BranchFor(fix) = %q", got)
	}
	if got := m.BranchFor(state.KindChore, "456"); got != "chore/456" {
		t.Errorf("BranchFor(chore) = %q", got)
	}
}

func TestSessionMarkerRoundtrip(t *testing.T) {
	repoDir, cfg, paths := newTestRepo(t)
	m := New(git.NewGit(repoDir), cfg, paths)

	op := &state.Operation{Name: "auth", Kind: state.KindFeature}
	path, _, err := m.Create(op)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := m.WriteSessionMarker(path, "v0-acme-x1-feature"); err != nil {
		t.Fatalf("WriteSessionMarker: %v", err)
	}
	if got := m.ReadSessionMarker(path); got != "v0-acme-x1-feature" {
		t.Errorf("ReadSessionMarker = %q", got)
	}
}

func TestReadSessionMarkerMissing(t *testing.T) {
	_, cfg, paths := newTestRepo(t)
	m := New(nil, cfg, paths)
	if got := m.ReadSessionMarker(t.TempDir()); got != "" {
		t.Errorf("ReadSessionMarker on worktree with no marker = %q, want empty", got)
	}
}

func TestRemoveWorktree(t *testing.T) {
	repoDir, cfg, paths := newTestRepo(t)
	m := New(git.NewGit(repoDir), cfg, paths)

	op := &state.Operation{Name: "auth", Kind: state.KindFeature}
	path, _, err := m.Create(op)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := m.Remove(path, false); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected worktree path removed, stat err = %v", err)
	}
}
