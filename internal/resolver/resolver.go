// Package resolver maps an operation's "after" edge and epic_id to the
// issue store's blocker graph, answering whether an operation may
// currently proceed and finding dependents to unblock once one merges.
package resolver

import (
	"strings"

	"github.com/v0cli/v0/internal/issuestore"
	"github.com/v0cli/v0/internal/state"
)

// isOpenStatus reports whether status does NOT count as resolved.
func isOpenStatus(status string) bool {
	switch strings.ToLower(status) {
	case "done", "closed":
		return false
	default:
		return true
	}
}

// Resolver answers dependency questions against an issue store and a
// state store, the runtime half of spec.md's two-sided dependency
// representation (operation-level "after" + issue-store-level
// "blocked-by").
type Resolver struct {
	issues *issuestore.Store
	state  *state.Store
}

// New creates a Resolver over the given issue store and operation store.
func New(issues *issuestore.Store, st *state.Store) *Resolver {
	return &Resolver{issues: issues, state: st}
}

// IsBlocked reports whether op has an epic_id with at least one open
// blocker in the issue store.
func (r *Resolver) IsBlocked(op *state.Operation) (bool, error) {
	if op.EpicID == "" {
		return false, nil
	}
	epic, err := r.issues.Show(op.EpicID)
	if err != nil {
		return false, err
	}
	for _, blockerID := range epic.Blockers {
		blocker, err := r.issues.Show(blockerID)
		if err != nil {
			continue
		}
		if isOpenStatus(blocker.Status) {
			return true, nil
		}
	}
	return false, nil
}

// FirstOpenBlocker returns a human-friendly name for the first open
// blocker on op's epic, or "" if there is none. A blocker carrying a
// "plan:<name>" label resolves to that operation name; otherwise the raw
// issue id is returned.
func (r *Resolver) FirstOpenBlocker(op *state.Operation) (string, error) {
	if op.EpicID == "" {
		return "", nil
	}
	epic, err := r.issues.Show(op.EpicID)
	if err != nil {
		return "", err
	}
	for _, blockerID := range epic.Blockers {
		blocker, err := r.issues.Show(blockerID)
		if err != nil {
			continue
		}
		if !isOpenStatus(blocker.Status) {
			continue
		}
		for _, label := range blocker.Labels {
			if name, ok := strings.CutPrefix(label, "plan:"); ok {
				return name, nil
			}
		}
		return blockerID, nil
	}
	return "", nil
}

// LinkDependency records the operation-level and issue-store-level halves
// of a dependency: the dependent's after/blocked_phase fields (the
// caller's responsibility, since that's a plain state.Store.Update) plus
// the issue-store blocked-by edge from the dependent's epic to the
// blocker's epic.
func (r *Resolver) LinkDependency(dependentEpicID, blockerEpicID string) error {
	return r.issues.AddBlocker(dependentEpicID, blockerEpicID)
}

// FindDependents returns every operation whose "after" field equals name,
// the scan spec.md runs on a blocker's merge to find operations to
// unblock.
func (r *Resolver) FindDependents(name string) ([]*state.Operation, error) {
	all, err := r.state.ReadAll()
	if err != nil {
		return nil, err
	}
	var dependents []*state.Operation
	for _, op := range all {
		if op.After == name {
			dependents = append(dependents, op)
		}
	}
	return dependents, nil
}
