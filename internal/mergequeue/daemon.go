package mergequeue

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
	"github.com/v0cli/v0/internal/resolver"
	"github.com/v0cli/v0/internal/state"
	"github.com/v0cli/v0/internal/worker"
	"github.com/v0cli/v0/internal/workspace"
)

// cycleInterval is the daemon's "sleep briefly and loop" cadence from
// spec.md §4.8 step 5.
const cycleInterval = 3 * time.Second

// Notifier surfaces a user-visible message for events like a merge
// conflict; internal/notify implements it. A separate interface keeps
// this package from depending on notify's OS-specific mechanism.
type Notifier interface {
	Notify(title, message string) error
}

type noopNotifier struct{}

func (noopNotifier) Notify(string, string) error { return nil }

// Daemon is the single-writer merge integrator, one process per project.
type Daemon struct {
	queue     *Queue
	store     *state.Store
	events    *state.EventLog
	machine   *phase.Machine
	resolver  *resolver.Resolver
	issues    *issuestore.Store
	base      *git.Git
	mergeWS   *workspace.MergeWorkspace
	worktrees *workspace.Manager
	host      *agentsession.Host
	cfg       *config.ProjectConfig
	paths     *config.Paths
	notifier  Notifier
	logger    *log.Logger

	// resumeFn does the actual background resume of an unblocked
	// dependent; a field rather than a hardcoded call so tests can
	// substitute a no-op and assert only the phase-transition half of
	// unblockDependents without standing up a real agent session host.
	resumeFn func(name string)
}

// NewDaemon builds a Daemon from its collaborators. base is the project's own
// repository (used for branch-existence checks distinct from the merge
// workspace checkout). notifier may be nil, in which case conflicts are
// logged but nothing is surfaced to the user. host is the same agent
// session host the CLI uses, needed here so an unblocked dependent's
// feature worker can run its execute session without a separate process.
func NewDaemon(queue *Queue, store *state.Store, events *state.EventLog, machine *phase.Machine, res *resolver.Resolver, issues *issuestore.Store, base *git.Git, mergeWS *workspace.MergeWorkspace, worktrees *workspace.Manager, host *agentsession.Host, cfg *config.ProjectConfig, paths *config.Paths, notifier Notifier) *Daemon {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	d := &Daemon{
		queue:     queue,
		store:     store,
		events:    events,
		machine:   machine,
		resolver:  res,
		issues:    issues,
		base:      base,
		mergeWS:   mergeWS,
		worktrees: worktrees,
		host:      host,
		cfg:       cfg,
		paths:     paths,
		notifier:  notifier,
		logger:    log.New(os.Stderr, fmt.Sprintf("[mergequeue/%s] ", cfg.Project), log.LstdFlags),
	}
	d.resumeFn = d.resumeUnblockedWorker
	return d
}

// Run holds the project's merge-daemon singleton lock and processes the
// queue until ctx is cancelled or SIGTERM/SIGINT arrives. A second
// process attempting to start while one is already running observes the
// held lock and returns immediately without error, matching the
// poller's own singleton discipline in spec.md §4.7.
func (d *Daemon) Run(ctx context.Context) error {
	lockFile := flock.New(d.paths.MergeDaemonPidFile() + ".lock")
	locked, err := lockFile.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring merge daemon lock: %w", err)
	}
	if !locked {
		d.logger.Printf("another merge daemon is already running, exiting")
		return nil
	}
	defer func() { _ = lockFile.Unlock() }()

	if err := os.WriteFile(d.paths.MergeDaemonPidFile(), []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		return fmt.Errorf("writing merge daemon pid file: %w", err)
	}
	defer func() { _ = os.Remove(d.paths.MergeDaemonPidFile()) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(cycleInterval)
	defer ticker.Stop()

	d.logger.Printf("merge daemon started (pid %d)", os.Getpid())
	for {
		select {
		case <-ctx.Done():
			d.logger.Printf("context cancelled, stopping")
			return nil
		case sig := <-sigCh:
			d.logger.Printf("received %s, stopping", sig)
			return nil
		case <-ticker.C:
			if err := d.processOnce(); err != nil {
				d.logger.Printf("cycle error: %v", err)
			}
		}
	}
}

// processOnce runs one iteration of spec.md §4.8's processing loop.
func (d *Daemon) processOnce() error {
	ws, err := d.mergeWS.Ensure()
	if err != nil {
		return fmt.Errorf("ensuring merge workspace: %w", err)
	}

	entry, err := d.queue.Pop()
	if err != nil {
		if err == ErrEmpty {
			return nil
		}
		return fmt.Errorf("popping merge queue: %w", err)
	}

	op, err := d.store.Read(entry.Operation)
	if err != nil {
		return d.queue.Update(entry.ID, func(e *Entry) {
			e.Status = StatusFailed
			e.Reason = fmt.Sprintf("operation not found: %v", err)
		})
	}

	ready, reason := d.mergeReady(op)
	if !ready {
		if reason == reasonNeverReady {
			return d.queue.Update(entry.ID, func(e *Entry) {
				e.Status = StatusFailed
				e.Reason = reason
			})
		}
		return d.queue.Update(entry.ID, func(e *Entry) {
			e.Status = StatusPending
			e.Reason = reason
		})
	}

	return d.mergeOperation(ws, op, entry)
}

const reasonNeverReady = "worktree and branch both missing"

// mergeReady checks the conditions spec.md §4.8 step 3 lists.
func (d *Daemon) mergeReady(op *state.Operation) (bool, string) {
	p := phase.Phase(op.Phase)
	if p != phase.Completed && p != phase.PendingMerge {
		return false, fmt.Sprintf("phase %s is not mergeable yet", op.Phase)
	}
	if op.TmuxSession != "" {
		return false, "a session is still hosting this operation"
	}
	branch := d.worktrees.BranchFor(op.Kind, op.Name)
	worktreeExists := op.Worktree != "" && dirExists(op.Worktree)
	branchExists, _ := d.base.BranchExists(branch)
	if !worktreeExists && !branchExists {
		return false, reasonNeverReady
	}
	if !worktreeExists {
		return false, "worktree missing, branch still present"
	}
	if d.issues != nil {
		open, err := d.openPlanIssues(op.Name)
		if err != nil {
			return false, fmt.Sprintf("checking plan issues: %v", err)
		}
		if open {
			return false, "plan-labelled issues still open"
		}
	}
	return true, ""
}

func (d *Daemon) openPlanIssues(opName string) (bool, error) {
	issues, err := d.issues.List(issuestore.ListOptions{Label: "plan:" + opName})
	if err != nil {
		return false, err
	}
	for _, issue := range issues {
		if !strings.EqualFold(issue.Status, "done") && !strings.EqualFold(issue.Status, "closed") {
			return true, nil
		}
	}
	return false, nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// mergeOperation performs the actual merge in the merge workspace ws.
// It first moves the operation into pending_merge with
// merge_status=processing (I6: only one operation holds that status at
// a time, which the single-writer daemon already guarantees), since the
// transition table only allows conflict to be reached from pending_merge.
func (d *Daemon) mergeOperation(ws *git.Git, op *state.Operation, entry Entry) error {
	branch := d.worktrees.BranchFor(op.Kind, op.Name)

	if phase.Phase(op.Phase) == phase.Completed {
		if _, err := d.machine.Transition(op.Name, phase.PendingMerge, false, func(o *state.Operation) {
			o.MergeStatus = state.MergeStatusProcessing
		}); err != nil {
			return fmt.Errorf("transitioning %s to pending_merge: %w", op.Name, err)
		}
	}

	if err := ws.Fetch(d.cfg.GitRemote); err != nil {
		return d.queue.Update(entry.ID, func(e *Entry) {
			e.Status = StatusPending
			e.Reason = fmt.Sprintf("fetch failed: %v", err)
		})
	}
	if err := ws.Checkout(d.cfg.DevelopBranch); err != nil {
		return d.queue.Update(entry.ID, func(e *Entry) {
			e.Status = StatusPending
			e.Reason = fmt.Sprintf("checkout %s failed: %v", d.cfg.DevelopBranch, err)
		})
	}

	mergeErr := ws.Merge(branch)
	if mergeErr != nil {
		_ = ws.AbortMerge()
		if _, err := d.machine.Transition(op.Name, phase.Conflict, false, func(o *state.Operation) {
			o.MergeStatus = state.MergeStatusConflict
		}); err != nil {
			return fmt.Errorf("transitioning %s to conflict: %w", op.Name, err)
		}
		if err := d.queue.Update(entry.ID, func(e *Entry) {
			e.Status = StatusConflict
			e.Reason = mergeErr.Error()
		}); err != nil {
			return err
		}
		d.events.Emit(op.Name, "merge_conflict", mergeErr.Error())
		_ = d.notifier.Notify("v0 merge conflict", fmt.Sprintf("%s could not be merged automatically; run `v0 merge --resolve %s`", op.Name, op.Name))
		return nil
	}

	if err := ws.Push(d.cfg.GitRemote, d.cfg.DevelopBranch, false); err != nil {
		_ = ws.AbortMerge()
		return d.queue.Update(entry.ID, func(e *Entry) {
			e.Status = StatusPending
			e.Reason = fmt.Sprintf("push failed: %v", err)
		})
	}

	if _, err := d.machine.Transition(op.Name, phase.Merged, false, func(o *state.Operation) {
		o.MergeStatus = state.MergeStatusMerged
	}); err != nil {
		return fmt.Errorf("transitioning %s to merged: %w", op.Name, err)
	}
	if err := d.queue.Update(entry.ID, func(e *Entry) {
		e.Status = StatusCompleted
	}); err != nil {
		return err
	}
	d.events.Emit(op.Name, "merged", branch)

	if err := d.worktrees.Remove(op.Worktree, false); err != nil {
		d.logger.Printf("removing worktree for merged operation %s: %v", op.Name, err)
	}

	return d.unblockDependents(op.Name)
}

// unblockDependents scans for operations waiting on op and unblocks any
// whose dependency is now clear, per spec.md §4.3's unblock-on-merge scan.
func (d *Daemon) unblockDependents(opName string) error {
	dependents, err := d.resolver.FindDependents(opName)
	if err != nil {
		return fmt.Errorf("finding dependents of %s: %w", opName, err)
	}
	for _, dep := range dependents {
		if phase.Phase(dep.Phase) != phase.Blocked {
			continue
		}
		blocked, err := d.resolver.IsBlocked(dep)
		if err != nil {
			d.logger.Printf("checking blockers for dependent %s: %v", dep.Name, err)
			continue
		}
		if blocked {
			continue
		}
		if _, err := d.machine.Unblock(dep.Name); err != nil {
			d.logger.Printf("unblocking %s: %v", dep.Name, err)
			continue
		}
		if dep.Held {
			continue
		}
		d.resumeFn(dep.Name)
	}
	return nil
}

// resumeUnblockedWorker spawns a feature worker for name in the
// background, per spec.md §4.3's "the feature worker is spawned in the
// background to resume it." It runs detached from the merge cycle that
// triggered the unblock, the same worker.New/Run pairing cmd/resume.go
// uses in the foreground.
func (d *Daemon) resumeUnblockedWorker(name string) {
	w := worker.New(d.store, d.events, d.machine, d.resolver, d.worktrees, d.host, d.queue, d.cfg)
	go func() {
		if err := w.Run(name); err != nil {
			d.logger.Printf("resuming unblocked dependent %s: %v", name, err)
		}
	}()
}
