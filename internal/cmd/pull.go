package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pullResolve bool

var pullCmd = &cobra.Command{
	Use:     "pull [--resolve]",
	GroupID: GroupServices,
	Short:   "Pull the project's develop branch from its remote",
	Long: `pull fetches and merges the configured remote's develop branch into
the current checkout. On a conflict, it aborts the merge and reports the
conflicting files; pass --resolve to instead leave the conflict markers
in place for a human to fix by hand.`,
	Args: cobra.NoArgs,
	RunE: runPull,
}

func init() {
	pullCmd.Flags().BoolVar(&pullResolve, "resolve", false, "leave conflict markers instead of aborting the merge")
	rootCmd.AddCommand(pullCmd)
}

func runPull(cmd *cobra.Command, args []string) error {
	d, err := loadDeps()
	if err != nil {
		return err
	}

	if err := d.base.Fetch(d.cfg.GitRemote); err != nil {
		return fmt.Errorf("fetching %s: %w", d.cfg.GitRemote, err)
	}
	conflicts, err := d.base.CheckConflicts(d.cfg.GitRemote+"/"+d.cfg.DevelopBranch, d.cfg.DevelopBranch)
	if err == nil && len(conflicts) > 0 && !pullResolve {
		return fmt.Errorf("pulling %s would conflict in: %v (rerun with --resolve to pull anyway)", d.cfg.DevelopBranch, conflicts)
	}

	if err := d.base.Pull(d.cfg.GitRemote, d.cfg.DevelopBranch); err != nil {
		if pullResolve {
			return fmt.Errorf("pull left conflicts for you to resolve by hand: %w", err)
		}
		_ = d.base.AbortMerge()
		return fmt.Errorf("pulling %s from %s: %w", d.cfg.DevelopBranch, d.cfg.GitRemote, err)
	}
	fmt.Printf("pulled %s from %s\n", d.cfg.DevelopBranch, d.cfg.GitRemote)
	return nil
}
