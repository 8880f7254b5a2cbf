package cmd

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:     "stop [<worker>]",
	GroupID: GroupServices,
	Short:   "Stop a background daemon (fix, chore, merge, or nudge)",
	Long: `stop sends SIGTERM to the named daemon's process, read from its pid
file, and returns once the signal is sent; it does not wait for the
daemon to exit or release its lock. With no argument it stops all four.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
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
		if err := stopOne(d, worker); err != nil {
			fmt.Printf("%s: %v\n", worker, err)
			continue
		}
	}
	return nil
}

func pidFileFor(d *deps, worker string) string {
	switch worker {
	case "fix", "chore":
		return d.paths.PollerPidFile(worker)
	case "merge":
		return d.paths.MergeDaemonPidFile()
	case "nudge":
		return d.paths.NudgePidFile()
	default:
		return ""
	}
}

func stopOne(d *deps, worker string) error {
	pidFile := pidFileFor(d, worker)
	raw, err := os.ReadFile(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("%s: not running\n", worker)
			return nil
		}
		return fmt.Errorf("reading pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return fmt.Errorf("parsing pid file: %w", err)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		if err == syscall.ESRCH {
			fmt.Printf("%s: not running (stale pid file)\n", worker)
			return nil
		}
		return fmt.Errorf("signalling process %d: %w", pid, err)
	}
	fmt.Printf("%s stopped\n", worker)
	return nil
}
