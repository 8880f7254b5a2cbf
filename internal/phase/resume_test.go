package phase

import (
	"testing"

	"github.com/v0cli/v0/internal/state"
)

func TestResumeTargetBlocked(t *testing.T) {
	op := &state.Operation{Phase: string(Blocked), BlockedPhase: string(Queued)}
	if got := ResumeTarget(op); got != Queued {
		t.Errorf("ResumeTarget = %s, want %s", got, Queued)
	}

	op2 := &state.Operation{Phase: string(Blocked)}
	if got := ResumeTarget(op2); got != Init {
		t.Errorf("ResumeTarget (no blocked_phase) = %s, want %s", got, Init)
	}
}

func TestResumeTargetFailedWithEpic(t *testing.T) {
	op := &state.Operation{Phase: string(Failed), EpicID: "v0-1"}
	if got := ResumeTarget(op); got != Queued {
		t.Errorf("ResumeTarget = %s, want %s", got, Queued)
	}
}

func TestResumeTargetFailedWithPlan(t *testing.T) {
	op := &state.Operation{Phase: string(Failed), PlanFile: "plans/x.md"}
	if got := ResumeTarget(op); got != Planned {
		t.Errorf("ResumeTarget = %s, want %s", got, Planned)
	}
}

func TestResumeTargetFailedBare(t *testing.T) {
	op := &state.Operation{Phase: string(Failed)}
	if got := ResumeTarget(op); got != Init {
		t.Errorf("ResumeTarget = %s, want %s", got, Init)
	}
}

func TestResumable(t *testing.T) {
	for _, p := range []Phase{Failed, Interrupted, Blocked} {
		if !Resumable(&state.Operation{Phase: string(p)}) {
			t.Errorf("Resumable(%s) = false, want true", p)
		}
	}
	for _, p := range []Phase{Init, Executing, Merged, Cancelled} {
		if Resumable(&state.Operation{Phase: string(p)}) {
			t.Errorf("Resumable(%s) = true, want false", p)
		}
	}
}
