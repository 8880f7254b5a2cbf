// Package worker is the Feature Worker: a resumable, single-operation
// state-machine driver. It reads an operation's current phase, runs
// whatever phases remain in order, and stops cleanly at a hold, a
// dependency block, a terminal phase, or a phase some other actor (the
// merge queue, a `resume` command) must advance next.
package worker

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/v0cli/v0/internal/agentsession"
	"github.com/v0cli/v0/internal/config"
	"github.com/v0cli/v0/internal/phase"
	"github.com/v0cli/v0/internal/resolver"
	"github.com/v0cli/v0/internal/state"
	"github.com/v0cli/v0/internal/workspace"
)

// pollInterval is how often Worker checks on a live Agent session, the
// "session still live" wait spec.md §5 names as one of the well-defined
// suspension points.
const pollInterval = 2 * time.Second

// MergeEnqueuer is the merge queue's enqueue side, as the worker needs
// it. A separate interface keeps the worker buildable and testable
// without depending on the merge queue's on-disk format.
type MergeEnqueuer interface {
	Enqueue(name string) error
}

// Worker drives a single operation through plan and execute sessions.
// It mutates phase only through its Machine, and only ever runs the
// Agent through its Host.
type Worker struct {
	store     *state.Store
	events    *state.EventLog
	machine   *phase.Machine
	resolver  *resolver.Resolver
	workspace *workspace.Manager
	host      *agentsession.Host
	enqueuer  MergeEnqueuer
	cfg       *config.ProjectConfig
	logger    *log.Logger
}

// New builds a Worker from its collaborators.
func New(store *state.Store, events *state.EventLog, machine *phase.Machine, res *resolver.Resolver, ws *workspace.Manager, host *agentsession.Host, enqueuer MergeEnqueuer, cfg *config.ProjectConfig) *Worker {
	return &Worker{
		store:     store,
		events:    events,
		machine:   machine,
		resolver:  res,
		workspace: ws,
		host:      host,
		enqueuer:  enqueuer,
		cfg:       cfg,
		logger:    log.New(os.Stderr, fmt.Sprintf("[worker/%s] ", cfg.Project), log.LstdFlags),
	}
}

// stopReason explains why Run returned without error, for callers (the
// poller loop, the CLI) that want to log or branch on it.
type stopReason string

const (
	stopHeld      stopReason = "held"
	stopBlocked   stopReason = "blocked"
	stopTerminal  stopReason = "terminal"
	stopEnqueued  stopReason = "enqueued"
	stopAwaitPeer stopReason = "awaiting-other-component"
)

// RunPlanOnly drives op through exactly the planning phase (init ->
// planned) and stops, leaving it there rather than falling through to
// queued the way Run does. It backs the `plan` command, which produces a
// plan file for review before anyone commits to running it.
func (w *Worker) RunPlanOnly(name string) error {
	op, err := w.store.Read(name)
	if err != nil {
		return fmt.Errorf("reading operation %s: %w", name, err)
	}
	if phase.Phase(op.Phase) != phase.Init {
		return nil
	}
	_, err = w.step(op, phase.Planned, w.runPlanSession)
	return err
}

// Run advances op as far as it can go in one invocation, returning once
// it hits a hold, a block, a terminal phase, or the point where another
// component (merge queue, resume command) must take over. It is safe to
// call repeatedly on the same operation; each call resumes from whatever
// phase the last call left it in.
func (w *Worker) Run(name string) error {
	for {
		op, err := w.store.Read(name)
		if err != nil {
			return fmt.Errorf("reading operation %s: %w", name, err)
		}

		if op.Held {
			w.logger.Printf("%s: held, exiting cleanly", name)
			return nil
		}
		if phase.IsTerminal(phase.Phase(op.Phase)) {
			return nil
		}

		switch phase.Phase(op.Phase) {
		case phase.Init:
			reason, err := w.step(op, phase.Init, w.runPlanSession)
			if err != nil {
				return err
			}
			if reason != "" {
				return nil
			}
		case phase.Planned:
			// Planning already produced a plan file, possibly in an
			// earlier invocation; no session to run, just advance. If the
			// operation carries an after edge, this is also the "enqueue
			// of a dependent operation" spec.md §4.3 names as the moment
			// the issue-store blocked-by edge gets recorded; the next
			// loop iteration's Queued step is what actually discovers it
			// and blocks.
			reason, err := w.step(op, phase.Planned, func(o *state.Operation) error {
				updated, err := w.machine.Transition(o.Name, phase.Queued, false, nil)
				if err != nil {
					return err
				}
				if updated.After != "" {
					return w.linkDependency(updated)
				}
				return nil
			})
			if err != nil {
				return err
			}
			if reason != "" {
				return nil
			}
		case phase.Queued:
			reason, err := w.step(op, phase.Queued, w.runExecuteSession)
			if err != nil {
				return err
			}
			if reason != "" {
				return nil
			}
		case phase.Completed:
			if err := w.enqueuer.Enqueue(name); err != nil {
				return fmt.Errorf("enqueueing merge for %s: %w", name, err)
			}
			w.events.Emit(name, "merge_enqueued", "")
			return nil
		default:
			// blocked, executing, pending_merge, conflict, failed,
			// interrupted: nothing for the feature worker to drive;
			// another actor (resume command, merge daemon) owns the
			// next move.
			return nil
		}
	}
}

// step checks the dependency resolver before running fn, records a block
// if needed, and otherwise lets fn run and mutate phase on its own. An
// empty stopReason means the worker should loop again and re-read phase.
func (w *Worker) step(op *state.Operation, onBlockResume phase.Phase, fn func(op *state.Operation) error) (stopReason, error) {
	if !op.IgnoreBlockers {
		blocked, err := w.resolver.IsBlocked(op)
		if err != nil {
			return "", fmt.Errorf("checking blockers for %s: %w", op.Name, err)
		}
		if blocked {
			if _, err := w.machine.Block(op.Name, onBlockResume); err != nil {
				return "", fmt.Errorf("blocking %s: %w", op.Name, err)
			}
			w.logger.Printf("%s: blocked, resume target %s", op.Name, onBlockResume)
			return stopBlocked, nil
		}
	}
	if err := fn(op); err != nil {
		return "", err
	}
	return "", nil
}

// linkDependency records the issue-store half of a dependency edge: the
// blocked-by edge from op's epic to its "after" operation's epic. The
// operation-level after/epic_id fields are the caller's job (cmd/build.go's
// --after flag sets them at creation); this is what makes resolver.IsBlocked
// actually see the edge the next time this operation's worker comes around.
func (w *Worker) linkDependency(op *state.Operation) error {
	blocker, err := w.store.Read(op.After)
	if err != nil {
		return fmt.Errorf("reading blocker %s for %s: %w", op.After, op.Name, err)
	}
	if op.EpicID == "" || blocker.EpicID == "" {
		return nil
	}
	if err := w.resolver.LinkDependency(op.EpicID, blocker.EpicID); err != nil {
		return fmt.Errorf("linking %s after %s: %w", op.Name, op.After, err)
	}
	w.events.Emit(op.Name, "dependency_linked", op.After)
	return nil
}

// ensureWorktree creates op's worktree if it doesn't have one yet.
func (w *Worker) ensureWorktree(op *state.Operation) error {
	if op.Worktree != "" {
		return nil
	}
	worktreePath, branch, err := w.workspace.Create(op)
	if err != nil {
		return fmt.Errorf("creating worktree for %s: %w", op.Name, err)
	}
	if _, err := w.store.Update(op.Name, func(o *state.Operation) error {
		o.Worktree = worktreePath
		return nil
	}); err != nil {
		return fmt.Errorf("recording worktree for %s: %w", op.Name, err)
	}
	op.Worktree = worktreePath
	w.events.Emit(op.Name, "worktree_created", branch)
	return nil
}

// runPlanSession runs the Agent in planning mode and, on a "done"
// outcome, transitions init -> planned, recording the plan file the
// next phase (queued) will hand the executor. A later call with the
// operation already in planned skips straight to queued without
// rerunning the session — see the Planned case in Run.
func (w *Worker) runPlanSession(op *state.Operation) error {
	if err := w.ensureWorktree(op); err != nil {
		return err
	}
	if err := agentsession.WriteOutcomeScripts(op.Worktree, w.cfg.GitRemote, w.branchFor(op)); err != nil {
		return fmt.Errorf("writing outcome scripts for %s: %w", op.Name, err)
	}

	prompt := w.renderPrompt(agentsession.DefaultPlanPrompt, op, "planner")
	outcome, err := w.runSession(op, "plan", prompt)
	if err != nil {
		return err
	}

	switch outcome {
	case "done":
		planFile := w.cfg.PlansDir + "/" + op.Name + ".md"
		if _, err := w.machine.Transition(op.Name, phase.Planned, false, func(o *state.Operation) {
			o.PlanFile = planFile
		}); err != nil {
			return fmt.Errorf("transitioning %s init->planned: %w", op.Name, err)
		}
	default: // "incomplete", "fixed", or no outcome recorded at all
		if _, err := w.machine.Transition(op.Name, phase.Failed, false, nil); err != nil {
			return fmt.Errorf("transitioning %s ->failed: %w", op.Name, err)
		}
	}
	return nil
}

// runExecuteSession runs the Agent in execute mode: queued -> executing
// while the session runs, then executing -> completed|failed|interrupted
// depending on how it ended.
func (w *Worker) runExecuteSession(op *state.Operation) error {
	if err := w.ensureWorktree(op); err != nil {
		return err
	}
	if _, err := w.machine.Transition(op.Name, phase.Executing, false, nil); err != nil {
		return fmt.Errorf("transitioning %s queued->executing: %w", op.Name, err)
	}

	prompt := w.renderPrompt(agentsession.DefaultExecutePrompt, op, "executor")
	outcome, err := w.runSession(op, "exec", prompt)
	if err != nil {
		// The host failed to even launch the session; leave the
		// operation in executing for a human to inspect, recording
		// interrupted only once we can confirm the session actually
		// started and then vanished (see runSession).
		return err
	}

	switch outcome {
	case "done":
		_, err = w.machine.Transition(op.Name, phase.Completed, false, nil)
	case "fixed":
		_, err = w.machine.Transition(op.Name, phase.Completed, false, nil)
	case "incomplete":
		_, err = w.machine.Transition(op.Name, phase.Failed, false, nil)
	default:
		_, err = w.machine.Transition(op.Name, phase.Interrupted, false, nil)
	}
	if err != nil {
		return fmt.Errorf("transitioning %s from executing: %w", op.Name, err)
	}
	return nil
}

// runSession launches the Agent for op's worktree and blocks until it
// exits, returning whichever outcome script (if any) ran.
func (w *Worker) runSession(op *state.Operation, suffix, prompt string) (string, error) {
	session, err := w.host.Launch(op, suffix, prompt)
	if err != nil {
		return "", fmt.Errorf("launching %s session for %s: %w", suffix, op.Name, err)
	}
	if err := w.workspace.WriteSessionMarker(op.Worktree, session); err != nil {
		return "", fmt.Errorf("writing session marker for %s: %w", op.Name, err)
	}
	if _, err := w.store.Update(op.Name, func(o *state.Operation) error {
		o.TmuxSession = session
		return nil
	}); err != nil {
		return "", fmt.Errorf("recording session for %s: %w", op.Name, err)
	}
	w.events.Emit(op.Name, "session_started", session)

	for w.host.IsAlive(session) {
		time.Sleep(pollInterval)
	}
	w.events.Emit(op.Name, "session_ended", session)
	if _, err := w.store.Update(op.Name, func(o *state.Operation) error {
		o.TmuxSession = ""
		return nil
	}); err != nil {
		return "", fmt.Errorf("clearing session for %s: %w", op.Name, err)
	}
	return agentsession.ReadOutcome(op.Worktree), nil
}

// branchFor mirrors workspace.Manager.BranchFor without importing the
// manager's internals; the branch name is derived deterministically from
// kind and name so either call site agrees on it.
func (w *Worker) branchFor(op *state.Operation) string {
	return w.workspace.BranchFor(op.Kind, op.Name)
}

func (w *Worker) renderPrompt(template string, op *state.Operation, role string) string {
	return agentsession.RenderPrompt(template, agentsession.PromptVars{
		Operation: op.Name,
		Kind:      string(op.Kind),
		Repo:      w.cfg.Project,
		Remote:    w.cfg.GitRemote,
		Branch:    w.branchFor(op),
		PlanPath:  op.PlanFile,
		Role:      role,
	})
}
