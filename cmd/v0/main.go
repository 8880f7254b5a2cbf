// Command v0 runs parallel autonomous coding agents against a git repo:
// it schedules short-lived Agent sessions into worktrees, tracks each as
// an operation through a small state machine, and serializes completed
// work through a merge queue.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/v0cli/v0/internal/cmd"
)

func main() {
	if len(os.Args) >= 2 && strings.HasPrefix(os.Args[1], cmd.InternalDaemonFlag) {
		runDaemon(os.Args[1], os.Args[2:])
		return
	}
	cmd.Execute()
}

func runDaemon(flag string, rest []string) {
	worker := strings.TrimPrefix(flag, cmd.InternalDaemonFlag)
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "v0: internal daemon invocation missing project root")
		os.Exit(1)
	}
	if err := cmd.RunInternalDaemon(worker, rest[0]); err != nil {
		fmt.Fprintf(os.Stderr, "v0: %s daemon: %v\n", worker, err)
		os.Exit(1)
	}
}
