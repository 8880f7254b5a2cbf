package phase

import "fmt"

// Status is the (label, colour-hint, icon) tuple spec.md designates as
// the only place UIs are allowed to get status strings.
type Status struct {
	Label string
	Color string
	Icon  string
}

// DisplayStatus derives the display tuple for an operation from its
// observable state. sessionAlive is whether tmux_session (if set) still
// names a live session; after is the blocking operation's name, if any.
func DisplayStatus(p Phase, mergeStatus string, held bool, sessionAlive bool, kind string, after string) Status {
	if held {
		return Status{Label: "held", Color: "yellow", Icon: "[held]"}
	}

	switch p {
	case Init:
		return Status{Label: "init", Color: "white", Icon: "[new]"}
	case Planned:
		return Status{Label: "planned", Color: "white", Icon: "[planned]"}
	case Blocked:
		if after != "" {
			return Status{Label: "blocked", Color: "yellow", Icon: fmt.Sprintf("[waiting: %s]", after)}
		}
		return Status{Label: "blocked", Color: "yellow", Icon: "[blocked]"}
	case Queued:
		return Status{Label: "queued", Color: "white", Icon: "[queued]"}
	case Executing:
		if sessionAlive {
			return Status{Label: "assigned", Color: "cyan", Icon: "[building]"}
		}
		return Status{Label: "executing", Color: "yellow", Icon: "[stalled]"}
	case Completed:
		return Status{Label: "completed", Color: "green", Icon: "[done]"}
	case PendingMerge:
		switch mergeStatus {
		case "processing":
			return Status{Label: "merging", Color: "cyan", Icon: "[merging]"}
		default:
			return Status{Label: "pending_merge", Color: "white", Icon: "[queued for merge]"}
		}
	case Merged:
		return Status{Label: "merged", Color: "green", Icon: "[merged]"}
	case Conflict:
		return Status{Label: "conflict", Color: "red", Icon: "== CONFLICT =="}
	case Failed:
		return Status{Label: "failed", Color: "red", Icon: "[failed]"}
	case Interrupted:
		return Status{Label: "interrupted", Color: "yellow", Icon: "[interrupted]"}
	case Cancelled:
		return Status{Label: "cancelled", Color: "white", Icon: "[cancelled]"}
	default:
		return Status{Label: string(p), Color: "white", Icon: fmt.Sprintf("[%s]", kind)}
	}
}
