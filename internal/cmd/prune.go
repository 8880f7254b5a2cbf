package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/v0cli/v0/internal/phase"
	"github.com/v0cli/v0/internal/state"
)

var pruneCmd = &cobra.Command{
	Use:     "prune [<name>]",
	GroupID: GroupControl,
	Short:   "Remove worktrees for terminal operations",
	Long: `With a name, prune removes that operation's worktree if its phase is
merged or cancelled. With no arguments, it sweeps every terminal
operation in the project, plus the merge queue's own completed-entry
retention horizon.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	d, err := loadDeps()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		return pruneOne(d, args[0])
	}

	names, err := d.store.List()
	if err != nil {
		return fmt.Errorf("listing operations: %w", err)
	}
	pruned := 0
	for _, name := range names {
		op, err := d.store.Read(name)
		if err != nil || !phase.IsTerminal(phase.Phase(op.Phase)) || op.Worktree == "" {
			continue
		}
		if err := pruneOne(d, name); err != nil {
			fmt.Printf("  %s: %v\n", name, err)
			continue
		}
		pruned++
	}

	n, err := d.queue.Prune()
	if err != nil {
		return fmt.Errorf("pruning merge queue: %w", err)
	}
	fmt.Printf("pruned %d worktree(s), %d merge queue entries\n", pruned, n)
	return nil
}

func pruneOne(d *deps, name string) error {
	op, err := d.store.Read(name)
	if err != nil {
		return fmt.Errorf("%w: operation %q", errNotFound, name)
	}
	if !phase.IsTerminal(phase.Phase(op.Phase)) {
		return fmt.Errorf("%s is not terminal (phase %s)", name, op.Phase)
	}
	if op.Worktree == "" {
		return nil
	}
	if err := d.worktrees.Remove(op.Worktree, true); err != nil {
		return err
	}
	if _, err := d.store.Update(name, func(o *state.Operation) error {
		o.Worktree = ""
		return nil
	}); err != nil {
		return err
	}
	fmt.Printf("%s: worktree removed\n", name)
	return nil
}
