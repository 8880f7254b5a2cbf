package cmd

import "errors"

// Sentinel errors a subcommand wraps to steer Execute's exit code.
// Any other error (including a bare fmt.Errorf) maps to ExitLogicalFailure.
var (
	errNotFound = errors.New("not found")
	errHeld     = errors.New("operation is held")
	errTimeout  = errors.New("timed out")
)

func errIs(err, target error) bool {
	return errors.Is(err, target)
}
