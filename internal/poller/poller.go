// Package poller is the Fix/Chore Poller: a long-running per-{project,kind}
// daemon that dispatches ready issues into short-lived agent sessions, one
// at a time, and feeds completed work into the merge queue.
package poller

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"github.com/v0cli/v0/internal/agentsession"
	"github.com/v0cli/v0/internal/config"
	"github.com/v0cli/v0/internal/git"
	"github.com/v0cli/v0/internal/issuestore"
	"github.com/v0cli/v0/internal/phase"
	"github.com/v0cli/v0/internal/state"
	"github.com/v0cli/v0/internal/workspace"
)

// cycleInterval is the poller's cycle sleep, the same "short poll
// interval, default a few seconds" spec.md §4.7 names.
const cycleInterval = 3 * time.Second

// sessionPollInterval is how often a live cycle checks whether its one
// agent session has exited, matching internal/worker's own session-alive
// wait.
const sessionPollInterval = 2 * time.Second

// MergeEnqueuer hands a completed operation to the merge queue without
// this package depending on its on-disk format.
type MergeEnqueuer interface {
	Enqueue(name string) error
}

// Poller drives one {project,kind} daemon: claim the oldest ready issue
// of kind, run one agent session against it, record the outcome, repeat.
type Poller struct {
	kind      state.Kind
	issues    *issuestore.Store
	store     *state.Store
	events    *state.EventLog
	machine   *phase.Machine
	worktrees *workspace.Manager
	host      *agentsession.Host
	enqueuer  MergeEnqueuer
	cfg       *config.ProjectConfig
	paths     *config.Paths
	logger    *log.Logger
}

// New builds a Poller for kind (fix or chore).
func New(kind state.Kind, issues *issuestore.Store, store *state.Store, events *state.EventLog, machine *phase.Machine, worktrees *workspace.Manager, host *agentsession.Host, enqueuer MergeEnqueuer, cfg *config.ProjectConfig, paths *config.Paths) *Poller {
	return &Poller{
		kind: kind, issues: issues, store: store, events: events, machine: machine,
		worktrees: worktrees, host: host, enqueuer: enqueuer, cfg: cfg, paths: paths,
		logger: log.New(os.Stderr, fmt.Sprintf("[poller/%s/%s] ", cfg.Project, kind), log.LstdFlags),
	}
}

// kindLabel is the issue-store label a ready issue of this poller's kind
// must carry. The label, not a dedicated issue field, is what scopes an
// issue to a kind, since the issue store contract (spec.md §6) has no
// kind field of its own.
func (p *Poller) kindLabel() string {
	return "v0-kind:" + string(p.kind)
}

// Run holds the {project,kind} singleton lock and processes ready issues
// until ctx is cancelled or SIGTERM/SIGINT arrives. A second process
// attempting to start the same {project,kind} poller observes the held
// lock and exits without error.
func (p *Poller) Run(ctx context.Context) error {
	pidFile := p.paths.PollerPidFile(string(p.kind))
	lockFile := flock.New(pidFile + ".lock")
	locked, err := lockFile.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring %s poller lock: %w", p.kind, err)
	}
	if !locked {
		p.logger.Printf("another %s poller is already running, exiting", p.kind)
		return nil
	}
	defer func() { _ = lockFile.Unlock() }()

	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		return fmt.Errorf("writing %s poller pid file: %w", p.kind, err)
	}
	defer func() { _ = os.Remove(pidFile) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(cycleInterval)
	defer ticker.Stop()

	p.logger.Printf("%s poller started (pid %d)", p.kind, os.Getpid())
	for {
		select {
		case <-ctx.Done():
			p.logger.Printf("context cancelled, stopping")
			return nil
		case sig := <-sigCh:
			p.logger.Printf("received %s, stopping", sig)
			return nil
		case <-ticker.C:
			if err := p.processOnce(); err != nil {
				p.logger.Printf("cycle error: %v", err)
			}
		}
	}
}

// processOnce runs spec.md §4.7's per-cycle algorithm once.
func (p *Poller) processOnce() error {
	sessionName := agentsession.Name(p.cfg.Project, "worker", p.kind)
	if p.host.IsAlive(sessionName) {
		return nil
	}

	issue, err := p.claimReadyIssue()
	if err != nil {
		return fmt.Errorf("finding ready %s issue: %w", p.kind, err)
	}
	if issue == nil {
		return nil
	}

	if err := p.issues.SetStatus(issue.ID, "in_progress"); err != nil {
		return fmt.Errorf("marking %s in_progress: %w", issue.ID, err)
	}

	op, err := p.ensureOperation(issue)
	if err != nil {
		return fmt.Errorf("preparing operation for %s: %w", issue.ID, err)
	}
	op, err = p.ensureWorktree(op)
	if err != nil {
		return fmt.Errorf("preparing worktree for %s: %w", issue.ID, err)
	}
	if _, err := p.machine.Transition(op.Name, phase.Executing, false, nil); err != nil {
		return fmt.Errorf("transitioning %s queued->executing: %w", op.Name, err)
	}

	notesBefore := len(issue.Notes)
	if err := p.runSession(op); err != nil {
		return err
	}
	return p.handleOutcome(op, issue, notesBefore)
}

// claimReadyIssue returns the oldest (by updated_at) issue of this
// poller's kind that is todo, unassigned, and has no open blocker, or nil
// if there is none.
func (p *Poller) claimReadyIssue() (*issuestore.Issue, error) {
	candidates, err := p.issues.List(issuestore.ListOptions{Label: p.kindLabel(), Status: "todo"})
	if err != nil {
		return nil, err
	}

	var oldest *issuestore.Issue
	var oldestAt time.Time
	for _, issue := range candidates {
		if issue.Assignee != "" {
			continue
		}
		blocked, err := p.hasOpenBlocker(issue)
		if err != nil {
			return nil, err
		}
		if blocked {
			continue
		}
		updatedAt, err := time.Parse(time.RFC3339, issue.UpdatedAt)
		if err != nil {
			updatedAt = time.Time{}
		}
		if oldest == nil || updatedAt.Before(oldestAt) {
			oldest, oldestAt = issue, updatedAt
		}
	}
	return oldest, nil
}

func (p *Poller) hasOpenBlocker(issue *issuestore.Issue) (bool, error) {
	for _, blockerID := range issue.Blockers {
		blocker, err := p.issues.Show(blockerID)
		if err != nil {
			continue
		}
		switch strings.ToLower(blocker.Status) {
		case "done", "closed":
			continue
		default:
			return true, nil
		}
	}
	return false, nil
}

// ensureOperation finds or creates the operation tracking issue, driving
// a fresh one from init to queued with no plan session: fix/chore work
// has no separate planning phase, only the issue itself. The operation's
// name is the issue id so workspace.Manager.BranchFor's {id} branch
// template expands exactly as the issue store names it.
func (p *Poller) ensureOperation(issue *issuestore.Issue) (*state.Operation, error) {
	name := issue.ID
	op, err := p.store.Read(name)
	if err != nil {
		op = &state.Operation{
			Name: name, Kind: p.kind, Phase: string(phase.Init),
			Prompt: issue.Title, CreatedAt: time.Now().UTC(),
		}
		if err := p.store.Create(op); err != nil {
			return nil, fmt.Errorf("creating operation %s: %w", name, err)
		}
	}

	switch phase.Phase(op.Phase) {
	case phase.Init:
		if _, err := p.machine.Transition(name, phase.Planned, false, nil); err != nil {
			return nil, fmt.Errorf("transitioning %s init->planned: %w", name, err)
		}
		fallthrough
	case phase.Planned:
		if _, err := p.machine.Transition(name, phase.Queued, false, nil); err != nil {
			return nil, fmt.Errorf("transitioning %s planned->queued: %w", name, err)
		}
	}

	return p.store.Read(name)
}

func (p *Poller) ensureWorktree(op *state.Operation) (*state.Operation, error) {
	if op.Worktree != "" {
		return op, nil
	}
	worktreePath, branch, err := p.worktrees.Create(op)
	if err != nil {
		return nil, fmt.Errorf("creating worktree for %s: %w", op.Name, err)
	}
	op, err = p.store.Update(op.Name, func(o *state.Operation) error {
		o.Worktree = worktreePath
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("recording worktree for %s: %w", op.Name, err)
	}
	p.events.Emit(op.Name, "worktree_created", branch)
	return op, nil
}

// runSession launches the single agent session spec.md §4.7 step 4
// describes and waits for it to end.
func (p *Poller) runSession(op *state.Operation) error {
	branch := p.worktrees.BranchFor(op.Kind, op.Name)
	if err := agentsession.WriteOutcomeScripts(op.Worktree, p.cfg.GitRemote, branch); err != nil {
		return fmt.Errorf("writing outcome scripts for %s: %w", op.Name, err)
	}
	prompt := agentsession.RenderPrompt(agentsession.DefaultPollerPrompt, agentsession.PromptVars{
		Operation: op.Name, Kind: string(op.Kind), Repo: p.cfg.Project,
		Remote: p.cfg.GitRemote, Branch: branch, Role: "worker",
	})

	session, err := p.host.Launch(op, "worker", prompt)
	if err != nil {
		return fmt.Errorf("launching worker session for %s: %w", op.Name, err)
	}
	if err := p.worktrees.WriteSessionMarker(op.Worktree, session); err != nil {
		return fmt.Errorf("writing session marker for %s: %w", op.Name, err)
	}
	if _, err := p.store.Update(op.Name, func(o *state.Operation) error {
		o.TmuxSession = session
		return nil
	}); err != nil {
		return fmt.Errorf("recording session for %s: %w", op.Name, err)
	}
	p.events.Emit(op.Name, "session_started", session)

	for p.host.IsAlive(session) {
		time.Sleep(sessionPollInterval)
	}
	p.events.Emit(op.Name, "session_ended", session)

	if _, err := p.store.Update(op.Name, func(o *state.Operation) error {
		o.TmuxSession = ""
		return nil
	}); err != nil {
		return fmt.Errorf("clearing session for %s: %w", op.Name, err)
	}
	return nil
}

// handleOutcome implements spec.md §4.7 step 4's three-way split: commits
// win, a note without commits goes to a human, anything else is a
// recorded failure that leaves the issue open for the next cycle.
func (p *Poller) handleOutcome(op *state.Operation, issue *issuestore.Issue, notesBefore int) error {
	wt := git.NewGit(op.Worktree)
	ahead, err := wt.CommitsAhead(p.cfg.DevelopBranch, "HEAD")
	if err != nil {
		return fmt.Errorf("checking commits for %s: %w", op.Name, err)
	}

	if ahead > 0 {
		branch := p.worktrees.BranchFor(op.Kind, op.Name)
		if err := wt.Push(p.cfg.GitRemote, branch, false); err != nil {
			return fmt.Errorf("pushing %s: %w", branch, err)
		}
		if _, err := p.machine.Transition(op.Name, phase.Completed, false, nil); err != nil {
			return fmt.Errorf("transitioning %s to completed: %w", op.Name, err)
		}
		if err := p.enqueuer.Enqueue(op.Name); err != nil {
			return fmt.Errorf("enqueueing merge for %s: %w", op.Name, err)
		}
		p.events.Emit(op.Name, "merge_enqueued", "")
		return p.issues.SetStatus(issue.ID, "done")
	}

	latest, err := p.issues.Show(issue.ID)
	if err != nil {
		return fmt.Errorf("rereading issue %s: %w", issue.ID, err)
	}
	if len(latest.Notes) > notesBefore {
		if err := p.issues.Assign(issue.ID, "human"); err != nil {
			return fmt.Errorf("reassigning %s: %w", issue.ID, err)
		}
		if err := p.issues.SetStatus(issue.ID, "todo"); err != nil {
			return fmt.Errorf("reopening %s: %w", issue.ID, err)
		}
		p.events.Emit(op.Name, "reassigned_to_human", issue.ID)
		_, err := p.machine.Transition(op.Name, phase.Failed, false, nil)
		return err
	}

	p.events.Emit(op.Name, "session_produced_nothing", issue.ID)
	if err := p.issues.SetStatus(issue.ID, "todo"); err != nil {
		return fmt.Errorf("reopening %s: %w", issue.ID, err)
	}
	_, err = p.machine.Transition(op.Name, phase.Failed, false, nil)
	return err
}
