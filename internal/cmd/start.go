package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:     "start [<worker>]",
	GroupID: GroupServices,
	Short:   "Start a background daemon (fix, chore, merge, or nudge)",
	Long: `start launches the named daemon as a detached background process,
logging to {V0_BUILD_DIR}/logs/{worker}.log. With no argument it starts
all four. Each daemon is itself a singleton (an advisory file lock), so
running start twice is harmless.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	d, err := loadDeps()
	if err != nil {
		return err
	}

	workers := []string{"fix", "chore", "merge", "nudge"}
	if len(args) == 1 {
		if !daemonKinds[args[0]] {
			return fmt.Errorf("unknown worker %q, want one of fix, chore, merge, nudge", args[0])
		}
		workers = []string{args[0]}
	}
	sort.Strings(workers)

	for _, worker := range workers {
		logPath := d.paths.ProjectLogFile(worker)
		if err := spawnDaemon(worker, d.cfg.Root, logPath); err != nil {
			return fmt.Errorf("starting %s: %w", worker, err)
		}
		fmt.Printf("%s started, logging to %s\n", worker, logPath)
	}
	return nil
}
