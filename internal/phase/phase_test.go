package phase

import "testing"

func TestCanTransitionLegal(t *testing.T) {
	cases := []struct{ from, to Phase }{
		{Init, Planned},
		{Init, Blocked},
		{Planned, Queued},
		{Planned, Executing},
		{Queued, Executing},
		{Executing, Completed},
		{Executing, Interrupted},
		{Completed, PendingMerge},
		{PendingMerge, Merged},
		{PendingMerge, Conflict},
		{Conflict, PendingMerge},
		{Failed, Queued},
		{Interrupted, Planned},
		{Blocked, Queued},
	}
	for _, c := range cases {
		if !CanTransition(c.from, c.to) {
			t.Errorf("CanTransition(%s, %s) = false, want true", c.from, c.to)
		}
	}
}

func TestCanTransitionIllegal(t *testing.T) {
	cases := []struct{ from, to Phase }{
		{Merged, Init},
		{Cancelled, Init},
		{Init, Merged},
		{Executing, Blocked}, // not in table: executing can't go directly to blocked
		{Completed, Queued},
	}
	for _, c := range cases {
		if CanTransition(c.from, c.to) {
			t.Errorf("CanTransition(%s, %s) = true, want false", c.from, c.to)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if !IsTerminal(Merged) || !IsTerminal(Cancelled) {
		t.Error("expected Merged and Cancelled to be terminal")
	}
	if IsTerminal(Executing) || IsTerminal(Failed) {
		t.Error("expected Executing and Failed to be non-terminal")
	}
}

func TestCanCancel(t *testing.T) {
	for _, p := range []Phase{Init, Planned, Blocked, Queued, Executing, Completed, PendingMerge, Conflict, Failed, Interrupted} {
		if !CanCancel(p) {
			t.Errorf("CanCancel(%s) = false, want true", p)
		}
	}
	for _, p := range []Phase{Merged, Cancelled} {
		if CanCancel(p) {
			t.Errorf("CanCancel(%s) = true, want false", p)
		}
	}
}

func TestValid(t *testing.T) {
	if !Valid(Init) || !Valid(Blocked) || !Valid(Cancelled) {
		t.Error("expected known phases to be valid")
	}
	if Valid(Phase("bogus")) {
		t.Error("expected unknown phase to be invalid")
	}
}
