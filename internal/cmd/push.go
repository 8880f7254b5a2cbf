package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pushCmd = &cobra.Command{
	Use:     "push",
	GroupID: GroupServices,
	Short:   "Push the project's develop branch to its remote",
	Args:    cobra.NoArgs,
	RunE:    runPush,
}

func init() {
	rootCmd.AddCommand(pushCmd)
}

func runPush(cmd *cobra.Command, args []string) error {
	d, err := loadDeps()
	if err != nil {
		return err
	}
	if err := d.base.Push(d.cfg.GitRemote, d.cfg.DevelopBranch, false); err != nil {
		return fmt.Errorf("pushing %s to %s: %w", d.cfg.DevelopBranch, d.cfg.GitRemote, err)
	}
	fmt.Printf("pushed %s to %s\n", d.cfg.DevelopBranch, d.cfg.GitRemote)
	return nil
}
