package doctor

import "fmt"

// NewAgentCheck verifies the configured Agent binary (default "claude")
// is on PATH; without it neither the feature worker nor any poller can
// launch a session.
func NewAgentCheck(agentBinary string) *BinaryCheck {
	return NewBinaryCheck(
		"agent-binary",
		"Agent CLI is installed and on PATH",
		agentBinary, "--version",
		fmt.Sprintf("install the %q binary and ensure it is on PATH", agentBinary),
	)
}

// NewIssueStoreCheck verifies the configured issue-store binary (default
// "bd") is on PATH; without it the dependency resolver and pollers have
// no issues to read.
func NewIssueStoreCheck(issueStoreBinary string) *BinaryCheck {
	return NewBinaryCheck(
		"issue-store-binary",
		"issue-store CLI is installed and on PATH",
		issueStoreBinary, "version",
		fmt.Sprintf("install the %q binary and ensure it is on PATH", issueStoreBinary),
	)
}

// NewTmuxCheck verifies tmux is on PATH; without it the agent session
// host has nowhere to run a session.
func NewTmuxCheck() *BinaryCheck {
	return NewBinaryCheck(
		"tmux-binary",
		"tmux is installed and on PATH",
		"tmux", "-V",
		"install tmux (e.g. `apt install tmux` or `brew install tmux`)",
	)
}

// DefaultChecks returns the standard preflight set for the given binary
// names (empty strings fall back to this repository's defaults).
func DefaultChecks(agentBinary, issueStoreBinary string) []Check {
	if agentBinary == "" {
		agentBinary = "claude"
	}
	if issueStoreBinary == "" {
		issueStoreBinary = "bd"
	}
	return []Check{
		NewAgentCheck(agentBinary),
		NewIssueStoreCheck(issueStoreBinary),
		NewTmuxCheck(),
	}
}
