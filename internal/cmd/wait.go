package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/v0cli/v0/internal/phase"
)

const waitPollInterval = 2 * time.Second

var waitTimeout time.Duration

var waitCmd = &cobra.Command{
	Use:     "wait <target> [--timeout D]",
	GroupID: GroupControl,
	Short:   "Block until an operation reaches a terminal phase",
	Long: `wait polls <target>'s phase until it's merged, cancelled, or has failed
outright, then exits. Exit code 2 on --timeout expiring, 1 if the
operation ends in a non-merged terminal phase.`,
	Args: cobra.ExactArgs(1),
	RunE: runWait,
}

func init() {
	waitCmd.Flags().DurationVar(&waitTimeout, "timeout", 0, "give up and exit 2 after this long (0 = wait forever)")
	rootCmd.AddCommand(waitCmd)
}

func runWait(cmd *cobra.Command, args []string) error {
	d, err := loadDeps()
	if err != nil {
		return err
	}
	name := args[0]

	var deadline <-chan time.Time
	if waitTimeout > 0 {
		timer := time.NewTimer(waitTimeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for {
		op, err := d.store.Read(name)
		if err != nil {
			return fmt.Errorf("%w: operation %q", errNotFound, name)
		}
		p := phase.Phase(op.Phase)
		if phase.IsTerminal(p) {
			if p == phase.Merged {
				fmt.Printf("%s merged\n", name)
				return nil
			}
			return fmt.Errorf("%s ended in %s", name, p)
		}
		if p == phase.Failed {
			return fmt.Errorf("%s failed", name)
		}

		select {
		case <-deadline:
			return fmt.Errorf("%w: %s still in %s after %s", errTimeout, name, p, waitTimeout)
		case <-ticker.C:
		}
	}
}
