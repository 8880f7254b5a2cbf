package phase

import "github.com/v0cli/v0/internal/state"

// ResumeTarget computes where a non-terminal, stalled operation should
// resume. A blocked operation resumes to its stored blocked_phase
// (defaulting to Init if unset); a failed or interrupted operation
// resumes to Queued if it carries an epic_id, else Planned if it carries
// a plan_file, else Init. cancelled is excluded: it is terminal (I1) and
// never resumes, regardless of spec.md's resume-phase-selection prose
// naming it alongside failed/interrupted — see DESIGN.md.
func ResumeTarget(op *state.Operation) Phase {
	if Phase(op.Phase) == Blocked {
		if op.BlockedPhase == "" {
			return Init
		}
		return Phase(op.BlockedPhase)
	}
	if op.EpicID != "" {
		return Queued
	}
	if op.PlanFile != "" {
		return Planned
	}
	return Init
}

// Resumable reports whether op's current phase is one `resume` can act on.
func Resumable(op *state.Operation) bool {
	switch Phase(op.Phase) {
	case Failed, Interrupted, Blocked:
		return true
	default:
		return false
	}
}
