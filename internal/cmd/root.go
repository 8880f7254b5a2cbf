// Package cmd is the v0 CLI: a cobra dispatcher over the stable
// subcommands spec.md §6 names. Each subcommand lives in its own file,
// following the teacher's one-command-one-file convention (a package
// var of type *cobra.Command, wired up in init()).
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Command groups, shown as headings in `v0 --help`.
const (
	GroupWork     = "work"
	GroupControl  = "control"
	GroupServices = "services"
)

var rootCmd = &cobra.Command{
	Use:   "v0",
	Short: "Run parallel autonomous coding agents against a git repo",
	Long: `v0 drives short-lived coding-agent sessions against worktrees of a
single repo, tracks each as an operation through a small state machine,
and serializes their output through a merge queue.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupWork, Title: "Work:"},
		&cobra.Group{ID: GroupControl, Title: "Operation control:"},
		&cobra.Group{ID: GroupServices, Title: "Services:"},
	)
}

// Execute runs the root command, printing any error to stderr and
// translating it to the exit codes spec.md §6 fixes: 0 success, 1
// logical failure, 2 timeout, 3 not found, 4 held.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "v0:", err)
		os.Exit(exitCodeFor(err))
	}
}

// exit codes, stable externals per spec.md §6.
const (
	ExitOK            = 0
	ExitLogicalFailure = 1
	ExitTimeout       = 2
	ExitNotFound      = 3
	ExitHeld          = 4
)

func exitCodeFor(err error) int {
	switch {
	case errIs(err, errNotFound):
		return ExitNotFound
	case errIs(err, errHeld):
		return ExitHeld
	case errIs(err, errTimeout):
		return ExitTimeout
	default:
		return ExitLogicalFailure
	}
}
