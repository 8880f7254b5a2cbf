package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/v0cli/v0/internal/state"
)

var holdCmd = &cobra.Command{
	Use:     "hold <name>",
	GroupID: GroupControl,
	Short:   "Hold an operation, pausing scheduler-initiated transitions",
	Long: `hold sets an operation's held flag. A held operation's current phase
doesn't change: the feature worker, pollers, and merge daemon all check
the flag between phases and exit cleanly rather than advancing it.
"v0 resume" clears the flag.`,
	Args: cobra.ExactArgs(1),
	RunE: runHold,
}

func init() {
	rootCmd.AddCommand(holdCmd)
}

func runHold(cmd *cobra.Command, args []string) error {
	d, err := loadDeps()
	if err != nil {
		return err
	}

	name := args[0]
	if !d.store.Exists(name) {
		return fmt.Errorf("%w: operation %q", errNotFound, name)
	}

	now := time.Now().UTC()
	if _, err := d.store.Update(name, func(o *state.Operation) error {
		o.Held = true
		o.HeldAt = &now
		return nil
	}); err != nil {
		return fmt.Errorf("holding %s: %w", name, err)
	}
	fmt.Printf("%s held\n", name)
	return nil
}
