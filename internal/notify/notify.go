// Package notify delivers best-effort desktop notifications for events
// the merge queue daemon and pollers want a human to notice without
// tailing logs. It implements mergequeue.Notifier.
package notify

import (
	"context"
	"os/exec"
	"runtime"
	"time"
)

const deliveryTimeout = 3 * time.Second

// Desktop sends a native notification on platforms that support one and
// silently does nothing everywhere else. A failed or unsupported delivery
// is never an error a caller should act on, so Notify always returns nil;
// callers that want to know whether delivery actually happened should not
// rely on this type.
type Desktop struct {
	// run executes the OS-specific notification command. Swappable in
	// tests so they don't depend on osascript being present.
	run func(ctx context.Context, title, message string) error
}

// NewDesktop builds a Desktop notifier for the current platform.
func NewDesktop() *Desktop {
	return &Desktop{run: runForPlatform(runtime.GOOS)}
}

// Notify delivers title/message as a best-effort desktop notification.
// Errors are swallowed: a missing osascript or a denied notification
// permission should never interrupt the caller's actual work.
func (d *Desktop) Notify(title, message string) error {
	if d.run == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()
	_ = d.run(ctx, title, message)
	return nil
}

func runForPlatform(goos string) func(context.Context, string, string) error {
	switch goos {
	case "darwin":
		return runOsascript
	default:
		return nil
	}
}

func runOsascript(ctx context.Context, title, message string) error {
	script := `display notification ` + quoteAppleScript(message) + ` with title ` + quoteAppleScript(title)
	return exec.CommandContext(ctx, "osascript", "-e", script).Run()
}

// quoteAppleScript wraps s in double quotes, escaping the characters
// AppleScript string literals treat specially.
func quoteAppleScript(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"', '\\':
			out = append(out, '\\', s[i])
		default:
			out = append(out, s[i])
		}
	}
	out = append(out, '"')
	return string(out)
}
