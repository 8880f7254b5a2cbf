package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/v0cli/v0/internal/mergequeue"
)

var mergeResolve bool

var mergeCmd = &cobra.Command{
	Use:     "merge [<name>] [--resolve]",
	GroupID: GroupWork,
	Short:   "Enqueue an operation for merge, or resolve a conflict",
	Long: `With a name and no flags, merge enqueues an already-completed operation
for the merge queue daemon to pick up. With --resolve, it instead runs a
short Agent session in the conflicted operation's worktree to fix the
conflict, then re-enqueues it.

With no name, merge prints the current queue contents.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().BoolVar(&mergeResolve, "resolve", false, "resolve a conflicted merge instead of enqueueing")
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	d, err := loadDeps()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		return printQueue(d.queue)
	}
	name := args[0]

	if mergeResolve {
		resolver := mergequeue.NewResolver(d.store, d.events, d.machine, d.worktrees, d.host, d.queue, d.cfg)
		if err := resolver.Resolve(name); err != nil {
			return fmt.Errorf("resolving %s: %w", name, err)
		}
		fmt.Printf("%s resolved and re-enqueued\n", name)
		return nil
	}

	if !d.store.Exists(name) {
		return fmt.Errorf("%w: operation %q", errNotFound, name)
	}
	if err := d.queue.Enqueue(name); err != nil {
		return fmt.Errorf("enqueueing %s: %w", name, err)
	}
	fmt.Printf("%s enqueued for merge\n", name)
	return nil
}

func printQueue(q *mergequeue.Queue) error {
	entries, err := q.List()
	if err != nil {
		return fmt.Errorf("listing merge queue: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("merge queue is empty")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%-24s %-10s %s\n", e.Operation, e.Status, e.EnqueuedAt)
	}
	return nil
}
