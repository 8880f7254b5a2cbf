package state

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// eventLogMaxSize is the rotation threshold: once an operation's event log
// exceeds this, it is rotated and a fresh log started.
const eventLogMaxSize = 100 * 1024

// eventLogKeep is how many rotated generations are retained (the current
// log plus this many numbered backups), for exactly three files on disk
// at steady state: "{name}.log", "{name}.log.1", "{name}.log.2".
const eventLogKeep = 2

// EventLog appends timestamped events to a single operation's log file,
// rotating by size. emit_event never fails the caller: a logging problem
// is not a reason to abort whatever state transition triggered it.
type EventLog struct {
	dir string
}

// NewEventLog creates an EventLog rooted at dir (one file per operation,
// "{operation}.log").
func NewEventLog(dir string) *EventLog {
	return &EventLog{dir: dir}
}

func (e *EventLog) path(name string) string {
	return filepath.Join(e.dir, name+".log")
}

// Emit appends a "[UTC-ISO8601] event:name: details" line to name's event
// log, rotating first if the log has grown past eventLogMaxSize.
func (e *EventLog) Emit(name, event, details string) {
	e.rotateIfOversized(name)

	line := fmt.Sprintf("[%s] event:%s: %s\n", time.Now().UTC().Format(time.RFC3339), event, details)

	f, err := os.OpenFile(e.path(name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.WriteString(line)
}

// rotateIfOversized shifts "{name}.log.1".."{name}.log.(eventLogKeep-1)"
// up one generation, drops the oldest, and moves the current log to
// "{name}.log.1", leaving a fresh file for the next Emit. Mirrors the
// teacher's daemon log rotation, generalized from a fixed daemon log path
// to one log per operation.
func (e *EventLog) rotateIfOversized(name string) {
	path := e.path(name)
	info, err := os.Stat(path)
	if err != nil || info.Size() < eventLogMaxSize {
		return
	}

	for i := eventLogKeep - 1; i >= 1; i-- {
		old := fmt.Sprintf("%s.%d", path, i)
		next := fmt.Sprintf("%s.%d", path, i+1)
		_ = os.Rename(old, next)
	}
	oldest := fmt.Sprintf("%s.%d", path, eventLogKeep+1)
	_ = os.Remove(oldest)
	_ = os.Rename(path, path+".1")
}

// Read returns the current (non-rotated) log contents for name, used by
// `v0 status` detail views. A missing log is not an error: a fresh
// operation has emitted nothing yet.
func (e *EventLog) Read(name string) (string, error) {
	data, err := os.ReadFile(e.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading event log for %s: %w", name, err)
	}
	return string(data), nil
}
