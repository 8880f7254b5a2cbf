package agentsession

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OutcomeFileName is where the outcome scripts record which one ran, the
// file the Feature Worker reads after the session exits to learn how the
// Agent's turn ended.
const OutcomeFileName = ".v0-outcome"

// outcomeScript is the shell template shared by done/fixed/incomplete: it
// records the outcome, pushes the branch, then kills its own Agent
// process (read from the pid file the wrapper script wrote) so the
// session exits promptly instead of waiting for the Agent to notice.
const outcomeScript = `#!/bin/sh
set -e
echo %s > %s
git push %s %s || true
if [ -f %s ]; then
  kill -TERM "$(cat %s)" 2>/dev/null || true
fi
`

// WriteOutcomeScripts writes the done/fixed/incomplete scripts into
// worktree, the mechanism spec.md §4.5 gives the Agent to signal how its
// turn ended.
func WriteOutcomeScripts(worktree, remote, branch string) error {
	outcomeFile := shQuote(filepath.Join(worktree, OutcomeFileName))
	pidFile := shQuote(PidFilePath(worktree))

	for _, outcome := range []string{"done", "fixed", "incomplete"} {
		content := fmt.Sprintf(outcomeScript, outcome, outcomeFile, shQuote(remote), shQuote(branch), pidFile, pidFile)
		path := filepath.Join(worktree, outcome)
		if err := os.WriteFile(path, []byte(content), 0755); err != nil {
			return fmt.Errorf("writing %s script: %w", outcome, err)
		}
	}
	return nil
}

// ReadOutcome returns the outcome the Agent recorded ("done", "fixed",
// "incomplete"), or "" if no script ran.
func ReadOutcome(worktree string) string {
	data, err := os.ReadFile(filepath.Join(worktree, OutcomeFileName))
	if err != nil {
		return ""
	}
	return strings.TrimRight(string(data), "\r\n")
}
