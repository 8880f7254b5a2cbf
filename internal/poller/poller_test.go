package poller

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/v0cli/v0/internal/agentsession"
	"github.com/v0cli/v0/internal/config"
	"github.com/v0cli/v0/internal/git"
	"github.com/v0cli/v0/internal/issuestore"
	"github.com/v0cli/v0/internal/phase"
	"github.com/v0cli/v0/internal/state"
	"github.com/v0cli/v0/internal/tmux"
	"github.com/v0cli/v0/internal/workspace"
)

type recordingEnqueuer struct {
	enqueued []string
}

func (r *recordingEnqueuer) Enqueue(name string) error {
	r.enqueued = append(r.enqueued, name)
	return nil
}

func hasGit() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

func hasTmux() bool {
	_, err := exec.LookPath("tmux")
	return err == nil
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_AUTHOR_NAME=t", "GIT_AUTHOR_EMAIL=t@t.com", "GIT_COMMITTER_NAME=t", "GIT_COMMITTER_EMAIL=t@t.com")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

// installMockStore places a fake issue-store binary on PATH. list always
// returns the fixed set regardless of filters (claimReadyIssue does its
// own filtering in Go); show answers from the same set, keyed by id;
// update (status/assignee) is a no-op success.
func installMockStore(t *testing.T, listJSON string, shows map[string]string) {
	t.Helper()
	binDir := t.TempDir()
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	b.WriteString("cmd=\"$1\"\nshift\n")
	b.WriteString("case \"$cmd\" in\n")
	b.WriteString("  list)\n    echo '" + listJSON + "'\n    ;;\n")
	b.WriteString("  show)\n    id=\"$1\"\n    case \"$id\" in\n")
	for id, json := range shows {
		b.WriteString("      " + id + ") echo '[" + json + "]' ;;\n")
	}
	b.WriteString("      *) echo '[]' ;;\n    esac\n    ;;\n")
	b.WriteString("  update) exit 0 ;;\n")
	b.WriteString("  *) exit 1 ;;\nesac\n")
	if err := os.WriteFile(filepath.Join(binDir, "bd"), []byte(b.String()), 0755); err != nil {
		t.Fatalf("writing mock bd: %v", err)
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func newTestPoller(t *testing.T, workDir string, kind state.Kind) *Poller {
	t.Helper()
	cfg := &config.ProjectConfig{Project: "acme", GitRemote: "origin", DevelopBranch: "main"}
	return New(kind, issuestore.New(workDir), nil, nil, nil, nil, nil, nil, cfg, nil)
}

func TestClaimReadyIssueFiltersAssignedAndBlocked(t *testing.T) {
	dir := t.TempDir()
	installMockStore(t, `[
		{"id":"v0-1","title":"fix one","status":"todo","labels":["v0-kind:fix"],"updated_at":"2020-01-03T00:00:00Z"},
		{"id":"v0-2","title":"fix two","status":"todo","labels":["v0-kind:fix"],"assignee":"human","updated_at":"2020-01-01T00:00:00Z"},
		{"id":"v0-3","title":"fix three","status":"todo","labels":["v0-kind:fix"],"blockers":["v0-blocker"],"updated_at":"2020-01-01T00:00:00Z"},
		{"id":"v0-4","title":"fix four","status":"todo","labels":["v0-kind:fix"],"updated_at":"2020-01-02T00:00:00Z"}
	]`, map[string]string{
		"v0-blocker": `{"id":"v0-blocker","title":"blocker","status":"todo","updated_at":"2020-01-01T00:00:00Z"}`,
	})

	p := newTestPoller(t, dir, state.KindFix)
	issue, err := p.claimReadyIssue()
	if err != nil {
		t.Fatalf("claimReadyIssue: %v", err)
	}
	if issue == nil {
		t.Fatal("expected a claimable issue")
	}
	// v0-2 is assigned, v0-3 is blocked; between v0-1 and v0-4, v0-4 is older.
	if issue.ID != "v0-4" {
		t.Errorf("claimed %q, want v0-4 (oldest unassigned, unblocked)", issue.ID)
	}
}

func TestClaimReadyIssueUnblockedOnceBlockerCloses(t *testing.T) {
	dir := t.TempDir()
	installMockStore(t, `[
		{"id":"v0-1","title":"fix one","status":"todo","labels":["v0-kind:fix"],"blockers":["v0-blocker"],"updated_at":"2020-01-01T00:00:00Z"}
	]`, map[string]string{
		"v0-blocker": `{"id":"v0-blocker","title":"blocker","status":"done","updated_at":"2020-01-01T00:00:00Z"}`,
	})

	p := newTestPoller(t, dir, state.KindFix)
	issue, err := p.claimReadyIssue()
	if err != nil {
		t.Fatalf("claimReadyIssue: %v", err)
	}
	if issue == nil || issue.ID != "v0-1" {
		t.Fatalf("expected v0-1 to be claimable once its blocker is done, got %+v", issue)
	}
}

func TestClaimReadyIssueNoneReadyReturnsNil(t *testing.T) {
	dir := t.TempDir()
	installMockStore(t, `[
		{"id":"v0-1","title":"fix one","status":"todo","labels":["v0-kind:fix"],"assignee":"human","updated_at":"2020-01-01T00:00:00Z"}
	]`, map[string]string{})

	p := newTestPoller(t, dir, state.KindFix)
	issue, err := p.claimReadyIssue()
	if err != nil {
		t.Fatalf("claimReadyIssue: %v", err)
	}
	if issue != nil {
		t.Fatalf("expected no claimable issue, got %+v", issue)
	}
}

// testHarness bundles a poller with a real git repo, worktree, and state
// store, for tests that exercise handleOutcome or a full processOnce.
type testHarness struct {
	p         *Poller
	st        *state.Store
	issues    *issuestore.Store
	enq       *recordingEnqueuer
	repoDir   string
	cfg       *config.ProjectConfig
	worktrees *workspace.Manager
}

func newHarness(t *testing.T, listJSON string, shows map[string]string) *testHarness {
	t.Helper()
	if !hasGit() {
		t.Skip("git not installed")
	}

	root := t.TempDir()
	originDir := filepath.Join(root, "origin.git")
	repoDir := filepath.Join(root, "repo")
	runGit(t, root, "init", "--bare", originDir)
	runGit(t, root, "init", repoDir)
	runGit(t, repoDir, "checkout", "-b", "main")
	if err := os.WriteFile(filepath.Join(repoDir, "README.md"), []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	runGit(t, repoDir, "add", ".")
	runGit(t, repoDir, "commit", "-m", "init")
	runGit(t, repoDir, "remote", "add", "origin", originDir)
	runGit(t, repoDir, "push", "origin", "main")

	storeDir := t.TempDir()
	installMockStore(t, listJSON, shows)

	stateDir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", filepath.Join(root, "xdg-state"))
	cfg := &config.ProjectConfig{
		Root: repoDir, Project: "acme", BuildDir: ".v0/build", PlansDir: "plans",
		DevelopBranch: "main", GitRemote: "origin",
		FeatureBranch: "feature/{name}", BugfixBranch: "fix/{id}", ChoreBranch: "chore/{id}",
	}
	paths := config.NewPaths(cfg)
	if err := paths.EnsureStateDirs(); err != nil {
		t.Fatal(err)
	}

	st := state.New(stateDir)
	events := state.NewEventLog(stateDir)
	m := phase.New(st, events)
	issues := issuestore.New(storeDir)
	worktrees := workspace.New(git.NewGit(repoDir), cfg, paths)
	host := agentsession.NewHost(tmux.NewTmux(), cfg.Project, "claude")
	enq := &recordingEnqueuer{}

	p := New(state.KindFix, issues, st, events, m, worktrees, host, enq, cfg, paths)
	return &testHarness{p: p, st: st, issues: issues, enq: enq, repoDir: repoDir, cfg: cfg, worktrees: worktrees}
}

// TestProcessOnceHappyPathEnqueuesMerge drives a full cycle with a fake
// "claude" binary that commits a change and runs the "done" outcome
// script, exercising spec.md §4.7's "produced commits" branch end to end.
func TestProcessOnceHappyPathEnqueuesMerge(t *testing.T) {
	if !hasTmux() {
		t.Skip("tmux not installed")
	}
	h := newHarness(t, `[
		{"id":"v0-1","title":"fix the thing","status":"todo","labels":["v0-kind:fix"],"updated_at":"2020-01-01T00:00:00Z"}
	]`, map[string]string{
		"v0-1": `{"id":"v0-1","title":"fix the thing","status":"in_progress","updated_at":"2020-01-01T00:00:00Z"}`,
	})

	binDir := t.TempDir()
	fakeClaude := "#!/bin/sh\necho fix >> fix.txt\ngit add fix.txt\ngit -c user.email=t@t.com -c user.name=t commit -m 'apply fix' -q\nexec ./done\n"
	if err := os.WriteFile(filepath.Join(binDir, "claude"), []byte(fakeClaude), 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	if err := h.p.processOnce(); err != nil {
		t.Fatalf("processOnce: %v", err)
	}

	op, err := h.st.Read("v0-1")
	if err != nil {
		t.Fatal(err)
	}
	if op.Phase != "completed" {
		t.Fatalf("phase = %q, want completed", op.Phase)
	}
	if len(h.enq.enqueued) != 1 || h.enq.enqueued[0] != "v0-1" {
		t.Errorf("enqueued = %v, want [v0-1]", h.enq.enqueued)
	}
}

// TestHandleOutcomeNoteWithoutCommitsReassignsToHuman exercises the
// "produced a note but no commits" branch directly, without running a
// real session.
func TestHandleOutcomeNoteWithoutCommitsReassignsToHuman(t *testing.T) {
	h := newHarness(t, `[]`, map[string]string{
		"v0-2": `{"id":"v0-2","title":"needs a human","status":"in_progress","notes":["can't do this without a design decision"],"updated_at":"2020-01-01T00:00:00Z"}`,
	})

	worktreeDir := t.TempDir()
	runGit(t, h.repoDir, "worktree", "add", worktreeDir, "-b", "fix/v0-2", "main")

	if err := h.st.Create(&state.Operation{
		Name: "v0-2", Kind: state.KindFix, Phase: "executing", Worktree: worktreeDir, CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatal(err)
	}
	op, err := h.st.Read("v0-2")
	if err != nil {
		t.Fatal(err)
	}
	issue := &issuestore.Issue{ID: "v0-2", Title: "needs a human"}

	if err := h.p.handleOutcome(op, issue, 0); err != nil {
		t.Fatalf("handleOutcome: %v", err)
	}

	op, err = h.st.Read("v0-2")
	if err != nil {
		t.Fatal(err)
	}
	if op.Phase != "failed" {
		t.Errorf("phase = %q, want failed", op.Phase)
	}
	if len(h.enq.enqueued) != 0 {
		t.Errorf("expected no merge enqueued, got %v", h.enq.enqueued)
	}
}

// TestHandleOutcomeNothingReopensIssue exercises the "neither commits nor
// a new note" branch: the operation fails and the issue is left ready for
// the next cycle.
func TestHandleOutcomeNothingReopensIssue(t *testing.T) {
	h := newHarness(t, `[]`, map[string]string{
		"v0-3": `{"id":"v0-3","title":"stuck","status":"in_progress","updated_at":"2020-01-01T00:00:00Z"}`,
	})

	worktreeDir := t.TempDir()
	runGit(t, h.repoDir, "worktree", "add", worktreeDir, "-b", "fix/v0-3", "main")

	if err := h.st.Create(&state.Operation{
		Name: "v0-3", Kind: state.KindFix, Phase: "executing", Worktree: worktreeDir, CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatal(err)
	}
	op, err := h.st.Read("v0-3")
	if err != nil {
		t.Fatal(err)
	}
	issue := &issuestore.Issue{ID: "v0-3", Title: "stuck"}

	if err := h.p.handleOutcome(op, issue, 0); err != nil {
		t.Fatalf("handleOutcome: %v", err)
	}

	op, err = h.st.Read("v0-3")
	if err != nil {
		t.Fatal(err)
	}
	if op.Phase != "failed" {
		t.Errorf("phase = %q, want failed", op.Phase)
	}
	if len(h.enq.enqueued) != 0 {
		t.Errorf("expected no merge enqueued, got %v", h.enq.enqueued)
	}
}

func TestKindLabelNamesKind(t *testing.T) {
	p := newTestPoller(t, t.TempDir(), state.KindChore)
	if got, want := p.kindLabel(), "v0-kind:chore"; got != want {
		t.Errorf("kindLabel() = %q, want %q", got, want)
	}
}
