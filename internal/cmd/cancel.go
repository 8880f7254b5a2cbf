package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:     "cancel <name>",
	GroupID: GroupControl,
	Short:   "Cancel an operation",
	Long: `cancel moves an operation straight to the cancelled phase, killing its
live session first if it has one. cancelled is terminal: nothing resumes
from it.`,
	Args: cobra.ExactArgs(1),
	RunE: runCancel,
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}

func runCancel(cmd *cobra.Command, args []string) error {
	d, err := loadDeps()
	if err != nil {
		return err
	}

	name := args[0]
	op, err := d.store.Read(name)
	if err != nil {
		return fmt.Errorf("%w: operation %q", errNotFound, name)
	}

	if op.TmuxSession != "" {
		if alive, _ := d.tmux.HasSession(op.TmuxSession); alive {
			if err := d.tmux.KillSessionWithProcesses(op.TmuxSession); err != nil {
				return fmt.Errorf("killing session %s: %w", op.TmuxSession, err)
			}
		}
	}

	if _, err := d.machine.Cancel(name); err != nil {
		return fmt.Errorf("cancelling %s: %w", name, err)
	}
	fmt.Printf("%s cancelled\n", name)
	return nil
}
