package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/v0cli/v0/internal/phase"
	"github.com/v0cli/v0/internal/state"
	"github.com/v0cli/v0/internal/worker"
)

var planCmd = &cobra.Command{
	Use:     "plan <name> <prompt>",
	GroupID: GroupWork,
	Short:   "Generate a plan for review without building it yet",
	Long: `plan creates a feature operation and runs only its planning session,
leaving the operation in the planned phase. Inspect the generated plan
file, then run "v0 resume <name>" when ready to build it.`,
	Args: cobra.ExactArgs(2),
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	d, err := loadDeps()
	if err != nil {
		return err
	}

	name, prompt := args[0], args[1]
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
	if err := d.store.Create(op); err != nil {
		return fmt.Errorf("creating operation %s: %w", name, err)
	}

	w := worker.New(d.store, d.events, d.machine, d.resolver, d.worktrees, d.host, d.queue, d.cfg)
	if err := w.RunPlanOnly(name); err != nil {
		return fmt.Errorf("planning %s: %w", name, err)
	}
	return printOperationSummary(d, name)
}
