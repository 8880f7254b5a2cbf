package nudger

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/v0cli/v0/internal/config"
	"github.com/v0cli/v0/internal/state"
	"github.com/v0cli/v0/internal/tmux"
)

func hasTmux() bool {
	_, err := exec.LookPath("tmux")
	return err == nil
}

func newTestNudger(t *testing.T, stateDir string) (*Nudger, *state.Store) {
	t.Helper()
	st := state.New(stateDir)
	cfg := &config.ProjectConfig{Project: "acme"}
	n := New(st, tmux.NewTmux(), cfg, nil)
	return n, st
}

func writeJournal(t *testing.T, worktree string, lines []string) {
	t.Helper()
	if err := os.MkdirAll(worktree, 0755); err != nil {
		t.Fatal(err)
	}
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	if err := os.WriteFile(filepath.Join(worktree, JournalFileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestClassifyErrorRecordSurfacesError(t *testing.T) {
	worktree := t.TempDir()
	writeJournal(t, worktree, []string{`{"type":"error","error":"rate limited"}`})

	got, err := classify(filepath.Join(worktree, JournalFileName), time.Now())
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got != StateError {
		t.Errorf("state = %q, want %q", got, StateError)
	}
}

func TestClassifyFreshTurnEndIsLive(t *testing.T) {
	worktree := t.TempDir()
	writeJournal(t, worktree, []string{`{"type":"turn_end","tool_use":false}`})

	got, err := classify(filepath.Join(worktree, JournalFileName), time.Now())
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got != StateLive {
		t.Errorf("state = %q, want %q (journal too fresh to be idle)", got, StateLive)
	}
}

func TestClassifyStaleTurnEndWithoutToolUseIsIdle(t *testing.T) {
	worktree := t.TempDir()
	writeJournal(t, worktree, []string{`{"type":"turn_end","tool_use":false}`})

	got, err := classify(filepath.Join(worktree, JournalFileName), time.Now().Add(staleThreshold+time.Minute))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got != StateIdle {
		t.Errorf("state = %q, want %q", got, StateIdle)
	}
}

func TestClassifyTurnEndWithToolUseIsLiveEvenWhenStale(t *testing.T) {
	worktree := t.TempDir()
	writeJournal(t, worktree, []string{`{"type":"turn_end","tool_use":true}`})

	got, err := classify(filepath.Join(worktree, JournalFileName), time.Now().Add(staleThreshold+time.Minute))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got != StateLive {
		t.Errorf("state = %q, want %q (mid-tool-use session is never idle)", got, StateLive)
	}
}

func TestClassifyMissingJournalIsUnknown(t *testing.T) {
	got, err := classify(filepath.Join(t.TempDir(), JournalFileName), time.Now())
	if err == nil {
		t.Fatal("expected an error for a missing journal file")
	}
	if got != StateUnknown {
		t.Errorf("state = %q, want %q", got, StateUnknown)
	}
}

func TestClassifyUsesLastRecordNotFirst(t *testing.T) {
	worktree := t.TempDir()
	writeJournal(t, worktree, []string{
		`{"type":"turn_end","tool_use":false}`,
		`{"type":"turn_end","tool_use":true}`,
	})

	got, err := classify(filepath.Join(worktree, JournalFileName), time.Now().Add(staleThreshold+time.Minute))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got != StateLive {
		t.Errorf("state = %q, want %q (must judge the last record, not the first)", got, StateLive)
	}
}

func TestSweepClearsSessionForDeadTmuxSession(t *testing.T) {
	if !hasTmux() {
		t.Skip("tmux not installed")
	}
	dir := t.TempDir()
	n, st := newTestNudger(t, dir)

	if err := st.Create(&state.Operation{
		Name: "auth", Phase: "executing", TmuxSession: "v0-acme-auth-exec-does-not-exist",
		Worktree: t.TempDir(), CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatal(err)
	}

	results, err := n.Sweep()
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(results) != 1 || results[0].State != StateReaped {
		t.Fatalf("results = %+v, want one reaped result", results)
	}

	op, err := st.Read("auth")
	if err != nil {
		t.Fatal(err)
	}
	if op.TmuxSession != "" {
		t.Errorf("tmux_session = %q, want cleared", op.TmuxSession)
	}
}

func TestSweepSkipsOperationsWithoutSession(t *testing.T) {
	dir := t.TempDir()
	n, st := newTestNudger(t, dir)

	if err := st.Create(&state.Operation{Name: "auth", Phase: "init", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatal(err)
	}

	results, err := n.Sweep()
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %+v, want none for an operation with no session", results)
	}
}

// fakeHeuristic lets sweepOne's kill/clear behaviour be tested without a
// real tmux install or a real journal file.
func fakeHeuristic(state State) heuristic {
	return func(string, time.Time) (State, error) { return state, nil }
}

func TestSweepOneKillsAndClearsIdleSession(t *testing.T) {
	if !hasTmux() {
		t.Skip("tmux not installed")
	}
	dir := t.TempDir()
	n, st := newTestNudger(t, dir)
	n.classify = fakeHeuristic(StateIdle)

	sessionName := "v0-acme-auth-exec"
	tm := tmux.NewTmux()
	worktree := t.TempDir()
	if err := tm.NewSession(sessionName, worktree); err != nil {
		t.Skipf("could not start a real tmux session: %v", err)
	}
	defer func() { _ = tm.KillSession(sessionName) }()

	if err := st.Create(&state.Operation{
		Name: "auth", Phase: "executing", TmuxSession: sessionName,
		Worktree: worktree, CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatal(err)
	}

	results, err := n.Sweep()
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(results) != 1 || results[0].State != StateIdle {
		t.Fatalf("results = %+v, want one idle result", results)
	}

	op, err := st.Read("auth")
	if err != nil {
		t.Fatal(err)
	}
	if op.TmuxSession != "" {
		t.Errorf("tmux_session = %q, want cleared after idle-kill", op.TmuxSession)
	}
	if alive, _ := tm.HasSession(sessionName); alive {
		t.Error("expected the idle session to be killed")
	}
}
