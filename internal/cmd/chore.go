package cmd

import (
	"github.com/spf13/cobra"

	"github.com/v0cli/v0/internal/state"
)

var choreCmd = &cobra.Command{
	Use:     "chore <description>",
	GroupID: GroupWork,
	Short:   "File a chore issue for the chore poller",
	Long: `chore files a new issue with the given description, labelled for the
chore poller. The actual work happens out of band, the next time
"v0 start chore" 's poller runs a cycle.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error { return runKindCommand(state.KindChore, args) },
}

func init() {
	rootCmd.AddCommand(choreCmd)
}
