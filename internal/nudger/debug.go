package nudger

// debugSnapshot captures a diagnostic screenshot for a stuck session. It
// is a no-op by default; building with the nudgedebug tag swaps in a go-rod-backed
// implementation (see snapshot_debug.go), matching how the teacher's own
// internal/web keeps its go-rod browser driving behind a build tag
// rather than in the default binary.
var debugSnapshot = func(session, outPath string) error { return nil }

// CaptureDebugSnapshot runs debugSnapshot for session, writing to
// outPath; best-effort and never required for normal operation. Sweep
// does not call it, and no command exposes it.
func CaptureDebugSnapshot(session, outPath string) error {
	return debugSnapshot(session, outPath)
}
