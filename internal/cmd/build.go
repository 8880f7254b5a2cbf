package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/v0cli/v0/internal/issuestore"
	"github.com/v0cli/v0/internal/phase"
	"github.com/v0cli/v0/internal/state"
	"github.com/v0cli/v0/internal/worker"
)

var (
	buildPlanFile string
	buildAfter    string
)

var buildCmd = &cobra.Command{
	Use:     "build <name> <prompt>",
	GroupID: GroupWork,
	Short:   "Start a feature operation and drive it to completion",
	Long: `build creates a feature operation named <name> with the given prompt
and runs it in the foreground: a plan session, then an execute session,
then enqueues the result for merge. Use --plan to hand it an existing
plan file instead of writing one from scratch.

build blocks until the operation hits a hold, a dependency block, a
terminal phase, or gets enqueued for merge.

--after <name> makes this operation depend on another: it still plans
normally, but is blocked from running its execute session until <name>
merges, at which point it resumes in the background on its own.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildPlanFile, "plan", "", "existing plan file to build from, skipping the plan session")
	buildCmd.Flags().StringVar(&buildAfter, "after", "", "name of an existing operation this one depends on")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	d, err := loadDeps()
	if err != nil {
		return err
	}

	name := args[0]
	var prompt string
	if len(args) > 1 {
		prompt = args[1]
	}

	if d.store.Exists(name) {
		return fmt.Errorf("operation %q already exists", name)
	}

	op := &state.Operation{
		Name:      name,
		Kind:      state.KindFeature,
		Phase:     string(phase.Init),
		Prompt:    prompt,
		CreatedAt: time.Now().UTC(),
	}
	if buildPlanFile != "" {
		op.PlanFile = buildPlanFile
		op.Phase = string(phase.Planned)
	}
	if buildAfter != "" {
		if err := wireAfter(d, op, buildAfter); err != nil {
			return err
		}
	}
	if err := d.store.Create(op); err != nil {
		return fmt.Errorf("creating operation %s: %w", name, err)
	}

	w := worker.New(d.store, d.events, d.machine, d.resolver, d.worktrees, d.host, d.queue, d.cfg)
	if err := w.Run(name); err != nil {
		return fmt.Errorf("running %s: %w", name, err)
	}
	return printOperationSummary(d, name)
}

// wireAfter sets op's operation-level dependency fields for --after: the
// blocker must already exist, and both it and op need an epic_id for the
// resolver to have anything to query. The issue-store blocked-by edge
// itself isn't recorded here; the worker records it when op reaches
// queued (see worker.linkDependency), which is also the point spec.md
// §4.3 calls "enqueue of a dependent operation."
func wireAfter(d *deps, op *state.Operation, after string) error {
	blocker, err := d.store.Read(after)
	if err != nil {
		return fmt.Errorf("%w: --after operation %q", errNotFound, after)
	}
	if _, err := ensureEpic(d, blocker); err != nil {
		return err
	}
	epicID, err := ensureEpic(d, op)
	if err != nil {
		return err
	}
	op.EpicID = epicID
	op.After = after
	return nil
}

// ensureEpic returns op's epic_id, filing a new plan-labelled issue for it
// if it doesn't have one yet. For an already-persisted operation (the
// --after target) the new id is also written back to the store; for the
// operation still under construction in runBuild, the caller is
// responsible for setting the field before d.store.Create.
func ensureEpic(d *deps, op *state.Operation) (string, error) {
	if op.EpicID != "" {
		return op.EpicID, nil
	}
	issue, err := d.issues.Create(issuestore.CreateOptions{
		Title:  op.Name,
		Labels: []string{"plan:" + op.Name},
	})
	if err != nil {
		return "", fmt.Errorf("filing epic for %s: %w", op.Name, err)
	}
	if d.store.Exists(op.Name) {
		if _, err := d.store.Update(op.Name, func(o *state.Operation) error {
			o.EpicID = issue.ID
			return nil
		}); err != nil {
			return "", fmt.Errorf("recording epic for %s: %w", op.Name, err)
		}
	}
	return issue.ID, nil
}
