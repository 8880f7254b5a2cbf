package phase

import (
	"errors"
	"fmt"
	"time"

	"github.com/v0cli/v0/internal/state"
)

// ErrIllegalTransition is returned when the requested transition isn't in
// the legal-transitions table for the operation's current phase.
var ErrIllegalTransition = errors.New("illegal phase transition")

// ErrHeld is returned when a scheduler-initiated transition is attempted
// on a held operation (I2). Cancel is exempt and never returns this.
var ErrHeld = errors.New("operation is held")

// Machine applies guarded phase transitions to an operation, writing
// phase plus any associated fields in one bulk update and emitting
// exactly one event per transition, per spec's state-machine guard rule.
// It is the only thing in this repository allowed to mutate an
// operation's phase field.
type Machine struct {
	store  *state.Store
	events *state.EventLog
}

// New creates a Machine over store and events.
func New(store *state.Store, events *state.EventLog) *Machine {
	return &Machine{store: store, events: events}
}

// Transition moves name from its current phase to "to", running extra
// through the same rewrite so associated fields land atomically with the
// phase change. Scheduler-initiated transitions fail with ErrHeld on a
// held operation; set bypassHeld for user-initiated ones (notably Cancel).
func (m *Machine) Transition(name string, to Phase, bypassHeld bool, extra func(*state.Operation)) (*state.Operation, error) {
	var result *state.Operation
	op, err := m.store.Update(name, func(o *state.Operation) error {
		from := Phase(o.Phase)
		if !bypassHeld && o.Held {
			return ErrHeld
		}
		if !CanTransition(from, to) {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
		}
		o.Phase = string(to)
		if extra != nil {
			extra(o)
		}
		stampTerminalTimestamps(o, to)
		return nil
	})
	if err != nil {
		return nil, err
	}
	result = op
	m.events.Emit(name, "phase_change", string(to))
	return result, nil
}

// Cancel moves name to cancelled from any non-terminal phase, clearing
// any hold, per spec's "cancelled is reachable from any non-terminal
// state via cancel, which also clears any hold."
func (m *Machine) Cancel(name string) (*state.Operation, error) {
	op, err := m.store.Update(name, func(o *state.Operation) error {
		from := Phase(o.Phase)
		if !CanCancel(from) {
			return fmt.Errorf("%w: %s is terminal", ErrIllegalTransition, from)
		}
		o.Phase = string(Cancelled)
		o.Held = false
		now := time.Now().UTC()
		o.CancelledAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.events.Emit(name, "phase_change", "cancelled")
	return op, nil
}

// Block transitions name to blocked, recording the phase it should resume
// into once its dependency clears. Used by the feature worker between
// phases when the dependency resolver reports the operation is blocked.
func (m *Machine) Block(name string, resumeInto Phase) (*state.Operation, error) {
	return m.Transition(name, Blocked, false, func(o *state.Operation) {
		o.BlockedPhase = string(resumeInto)
	})
}

// Unblock moves a blocked operation to its stored blocked_phase and
// clears the after/blocked_phase bookkeeping, the mechanical half of
// spec's "on a blocker's completion... each is unblocked".
func (m *Machine) Unblock(name string) (*state.Operation, error) {
	op, err := m.store.Read(name)
	if err != nil {
		return nil, err
	}
	target := Phase(op.BlockedPhase)
	if target == "" {
		target = Init
	}
	unblocked, err := m.store.Update(name, func(o *state.Operation) error {
		if Phase(o.Phase) != Blocked {
			return fmt.Errorf("%w: %s is not blocked", ErrIllegalTransition, o.Phase)
		}
		o.Phase = string(target)
		o.After = ""
		o.BlockedPhase = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.events.Emit(name, "phase_change", fmt.Sprintf("unblocked -> %s", target))
	return unblocked, nil
}

func stampTerminalTimestamps(o *state.Operation, to Phase) {
	now := time.Now().UTC()
	switch to {
	case Completed:
		o.CompletedAt = &now
	case Merged:
		o.MergedAt = &now
	}
}
