// Package state owns the on-disk representation of an operation: a
// single JSON document per operation, written via a sibling temp file and
// atomic rename, plus a per-operation append-only event log.
package state

import "time"

// Kind is the category of work an operation represents.
type Kind string

// Recognized operation kinds.
const (
	KindFeature Kind = "feature"
	KindFix     Kind = "fix"
	KindChore   Kind = "chore"
	KindRoadmap Kind = "roadmap"
)

// MergeStatus tracks an operation's position in the merge queue, distinct
// from its phase (an operation can be "completed" and separately
// "merge_status=processing").
type MergeStatus string

// Recognized merge statuses.
const (
	MergeStatusPending    MergeStatus = "pending"
	MergeStatusProcessing MergeStatus = "processing"
	MergeStatusMerged     MergeStatus = "merged"
	MergeStatusConflict   MergeStatus = "conflict"
	MergeStatusFailed     MergeStatus = "failed"
)

// CurrentSchemaVersion is stamped on every operation created by this build
// and is the target of migrate.
const CurrentSchemaVersion = 2

// Operation is the central entity: one JSON document per operation, named
// by the operation's human-chosen name, unique per project.
type Operation struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
	// Phase is a phase.Phase value, kept as a plain string here so this
	// package has no import-cycle dependency on internal/phase; callers
	// cast at the boundary.
	Phase string `json:"phase"`

	Machine     string     `json:"machine"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	MergedAt    *time.Time `json:"merged_at,omitempty"`
	HeldAt      *time.Time `json:"held_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	Prompt   string `json:"prompt"`
	PlanFile string `json:"plan_file,omitempty"`
	EpicID   string `json:"epic_id,omitempty"`

	Worktree    string `json:"worktree,omitempty"`
	TmuxSession string `json:"tmux_session,omitempty"`

	After        string `json:"after,omitempty"`
	BlockedPhase string `json:"blocked_phase,omitempty"`

	Held bool `json:"held"`

	MergeQueued  bool        `json:"merge_queued"`
	MergeStatus  MergeStatus `json:"merge_status,omitempty"`
	IgnoreBlockers bool      `json:"ignore_blockers,omitempty"`

	SchemaVersion int        `json:"_schema_version"`
	MigratedAt    *time.Time `json:"_migrated_at,omitempty"`
}

// IsTerminal reports whether the operation's phase is merged or cancelled,
// the two phases invariant I1 says are never left.
func (o *Operation) IsTerminal() bool {
	return o.Phase == "merged" || o.Phase == "cancelled"
}
