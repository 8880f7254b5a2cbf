package mergequeue

import (
	"fmt"
	"time"

	"github.com/v0cli/v0/internal/agentsession"
	"github.com/v0cli/v0/internal/config"
	"github.com/v0cli/v0/internal/phase"
	"github.com/v0cli/v0/internal/state"
	"github.com/v0cli/v0/internal/workspace"
)

// resolvePollInterval mirrors the feature worker's own session-liveness
// poll, the same "session still live" suspension point from spec.md §5.
const resolvePollInterval = 2 * time.Second

// Resolver drives the `merge --resolve <op>` command: a short Agent
// session in the operation's own worktree to fix a conflicted merge.
type Resolver struct {
	store     *state.Store
	events    *state.EventLog
	machine   *phase.Machine
	worktrees *workspace.Manager
	host      *agentsession.Host
	queue     *Queue
	cfg       *config.ProjectConfig
}

// NewResolver builds a Resolver from its collaborators.
func NewResolver(store *state.Store, events *state.EventLog, machine *phase.Machine, worktrees *workspace.Manager, host *agentsession.Host, queue *Queue, cfg *config.ProjectConfig) *Resolver {
	return &Resolver{store: store, events: events, machine: machine, worktrees: worktrees, host: host, queue: queue, cfg: cfg}
}

// Resolve runs a resolve session for name, then on success re-enqueues it
// for another merge attempt, per spec.md §4.8's "Conflict resolution".
func (r *Resolver) Resolve(name string) error {
	op, err := r.store.Read(name)
	if err != nil {
		return fmt.Errorf("reading operation %s: %w", name, err)
	}
	if phase.Phase(op.Phase) != phase.Conflict {
		return fmt.Errorf("%s is in phase %s, not conflict", name, op.Phase)
	}
	if op.Worktree == "" {
		return fmt.Errorf("%s has no worktree to resolve in", name)
	}

	branch := r.worktrees.BranchFor(op.Kind, op.Name)
	if err := agentsession.WriteOutcomeScripts(op.Worktree, r.cfg.GitRemote, branch); err != nil {
		return fmt.Errorf("writing outcome scripts for %s: %w", name, err)
	}

	prompt := agentsession.RenderPrompt(agentsession.DefaultResolvePrompt, agentsession.PromptVars{
		Operation: op.Name,
		Kind:      string(op.Kind),
		Repo:      r.cfg.Project,
		Remote:    r.cfg.GitRemote,
		Branch:    branch,
		Role:      "resolver",
	})

	session, err := r.host.Launch(op, "resolve", prompt)
	if err != nil {
		return fmt.Errorf("launching resolve session for %s: %w", name, err)
	}
	if _, err := r.store.Update(name, func(o *state.Operation) error {
		o.TmuxSession = session
		return nil
	}); err != nil {
		return fmt.Errorf("recording resolve session for %s: %w", name, err)
	}
	r.events.Emit(name, "resolve_session_started", session)

	for r.host.IsAlive(session) {
		time.Sleep(resolvePollInterval)
	}
	r.events.Emit(name, "resolve_session_ended", session)

	outcome := agentsession.ReadOutcome(op.Worktree)
	switch outcome {
	case "done", "fixed":
		if _, err := r.machine.Transition(name, phase.PendingMerge, false, func(o *state.Operation) {
			o.MergeStatus = state.MergeStatusPending
		}); err != nil {
			return fmt.Errorf("transitioning %s conflict->pending_merge: %w", name, err)
		}
		return r.queue.Enqueue(name)
	default:
		r.events.Emit(name, "resolve_incomplete", outcome)
		return fmt.Errorf("resolve session for %s ended without resolving the conflict (outcome %q)", name, outcome)
	}
}
