package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/v0cli/v0/internal/phase"
	"github.com/v0cli/v0/internal/state"
	"github.com/v0cli/v0/internal/worker"
)

var resumeForce bool

var resumeCmd = &cobra.Command{
	Use:     "resume [--force] <name>",
	GroupID: GroupControl,
	Short:   "Clear a hold or retry a stalled operation, then keep driving it",
	Long: `resume clears an operation's held flag, if set, and computes where a
blocked, failed, or interrupted operation should resume from: a blocked
operation resumes to its recorded blocked phase; a failed or interrupted
one resumes to queued (if it has an epic_id), else planned (if it has a
plan_file), else init. It then runs the feature worker from there.

--force resumes an operation phase.Resumable would otherwise refuse
(already queued, executing, or otherwise live).`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().BoolVar(&resumeForce, "force", false, "resume even if the operation isn't in a stalled phase")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	d, err := loadDeps()
	if err != nil {
		return err
	}

	name := args[0]
	op, err := d.store.Read(name)
	if err != nil {
		return fmt.Errorf("%w: operation %q", errNotFound, name)
	}

	if op.Held {
		if _, err := d.store.Update(name, func(o *state.Operation) error {
			o.Held = false
			o.HeldAt = nil
			return nil
		}); err != nil {
			return fmt.Errorf("clearing hold on %s: %w", name, err)
		}
		op, err = d.store.Read(name)
		if err != nil {
			return err
		}
	}

	if !phase.Resumable(op) && !resumeForce {
		if phase.IsTerminal(phase.Phase(op.Phase)) {
			return fmt.Errorf("%s is terminal (%s), nothing to resume", name, op.Phase)
		}
		fmt.Printf("%s is not stalled (phase %s); nothing to do\n", name, op.Phase)
		return nil
	}

	if phase.Resumable(op) {
		target := phase.ResumeTarget(op)
		if _, err := d.machine.Transition(name, target, true, nil); err != nil {
			return fmt.Errorf("resuming %s to %s: %w", name, target, err)
		}
	}

	w := worker.New(d.store, d.events, d.machine, d.resolver, d.worktrees, d.host, d.queue, d.cfg)
	if err := w.Run(name); err != nil {
		return fmt.Errorf("running %s: %w", name, err)
	}
	return printOperationSummary(d, name)
}
