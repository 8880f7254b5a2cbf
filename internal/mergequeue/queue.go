// Package mergequeue is the single-writer integrator: a file-backed FIFO
// of pending merges plus the daemon loop that drains it one operation at
// a time into the merge workspace.
package mergequeue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// EntryStatus is the lifecycle of a single queue entry.
type EntryStatus string

const (
	StatusPending    EntryStatus = "pending"
	StatusProcessing EntryStatus = "processing"
	StatusCompleted  EntryStatus = "completed"
	StatusConflict   EntryStatus = "conflict"
	StatusFailed     EntryStatus = "failed"
)

// Entry is one record in the queue file, keyed by a monotonically
// increasing Sequence so processing order survives entries being popped
// out of slice order by id.
type Entry struct {
	ID         string      `json:"id"`
	Operation  string      `json:"operation"`
	Status     EntryStatus `json:"status"`
	Sequence   int64       `json:"sequence"`
	EnqueuedAt time.Time   `json:"enqueued_at"`
	UpdatedAt  *time.Time  `json:"updated_at,omitempty"`
	Reason     string      `json:"reason,omitempty"`
}

type document struct {
	Version  int     `json:"version"`
	NextSeq  int64   `json:"next_sequence"`
	Entries  []Entry `json:"entries"`
}

const currentDocVersion = 1

// retentionHorizon is how long a terminal entry is kept before Prune
// removes it, per spec.md §3's 6-hour default.
const retentionHorizon = 6 * time.Hour

// ErrEmpty is returned by Pop when there is no pending entry.
var ErrEmpty = errors.New("merge queue is empty")

// Queue is the file-backed FIFO. Every mutating method takes a blocking
// exclusive flock on lockPath (a file separate from queuePath, given to
// New) for the duration of its read-modify-write, waiting for any other
// holder rather than failing fast.
type Queue struct {
	path     string
	lockPath string
}

// New creates a Queue backed by queuePath, locked via lockPath.
func New(queuePath, lockPath string) *Queue {
	return &Queue{path: queuePath, lockPath: lockPath}
}

func (q *Queue) withLock(fn func(*document) (*document, error)) error {
	fl := flock.New(q.lockPath)
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("locking merge queue: %w", err)
	}
	defer func() { _ = fl.Unlock() }()

	doc, err := q.load()
	if err != nil {
		return err
	}
	newDoc, err := fn(doc)
	if err != nil {
		return err
	}
	if newDoc == nil {
		return nil
	}
	return q.save(newDoc)
}

func (q *Queue) load() (*document, error) {
	data, err := os.ReadFile(q.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &document{Version: currentDocVersion, NextSeq: 1}, nil
		}
		return nil, fmt.Errorf("reading merge queue: %w", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing merge queue: %w", err)
	}
	if doc.Version == 0 {
		doc.Version = currentDocVersion
	}
	return &doc, nil
}

func (q *Queue) save(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling merge queue: %w", err)
	}
	tmp := q.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing merge queue: %w", err)
	}
	if err := os.Rename(tmp, q.path); err != nil {
		return fmt.Errorf("renaming merge queue into place: %w", err)
	}
	return nil
}

// Enqueue atomically appends a pending entry for operation.
func (q *Queue) Enqueue(operation string) error {
	return q.withLock(func(doc *document) (*document, error) {
		doc.Entries = append(doc.Entries, Entry{
			ID:         uuid.New().String(),
			Operation:  operation,
			Status:     StatusPending,
			Sequence:   doc.NextSeq,
			EnqueuedAt: time.Now().UTC(),
		})
		doc.NextSeq++
		return doc, nil
	})
}

// Pop returns the earliest pending entry (by Sequence) and marks it
// processing in the same locked critical section, the "pop... mark it
// processing" atomic step spec.md §4.8 describes.
func (q *Queue) Pop() (Entry, error) {
	var popped Entry
	found := false
	err := q.withLock(func(doc *document) (*document, error) {
		idx := -1
		for i, e := range doc.Entries {
			if e.Status != StatusPending {
				continue
			}
			if idx == -1 || e.Sequence < doc.Entries[idx].Sequence {
				idx = i
			}
		}
		if idx == -1 {
			return nil, nil
		}
		now := time.Now().UTC()
		doc.Entries[idx].Status = StatusProcessing
		doc.Entries[idx].UpdatedAt = &now
		popped = doc.Entries[idx]
		found = true
		return doc, nil
	})
	if err != nil {
		return Entry{}, err
	}
	if !found {
		return Entry{}, ErrEmpty
	}
	return popped, nil
}

// Update applies mutate to the entry with the given id, under the queue
// lock. If mutate doesn't set UpdatedAt itself, Update stamps it to now.
func (q *Queue) Update(id string, mutate func(*Entry)) error {
	return q.withLock(func(doc *document) (*document, error) {
		for i := range doc.Entries {
			if doc.Entries[i].ID == id {
				before := doc.Entries[i].UpdatedAt
				mutate(&doc.Entries[i])
				if doc.Entries[i].UpdatedAt == before {
					now := time.Now().UTC()
					doc.Entries[i].UpdatedAt = &now
				}
				return doc, nil
			}
		}
		return nil, fmt.Errorf("no queue entry with id %s", id)
	})
}

// List returns every entry currently in the queue, in enqueue order.
func (q *Queue) List() ([]Entry, error) {
	var entries []Entry
	err := q.withLock(func(doc *document) (*document, error) {
		entries = append(entries, doc.Entries...)
		return nil, nil
	})
	return entries, err
}

// Prune removes terminal entries older than retentionHorizon.
func (q *Queue) Prune() (int, error) {
	removed := 0
	err := q.withLock(func(doc *document) (*document, error) {
		cutoff := time.Now().UTC().Add(-retentionHorizon)
		kept := doc.Entries[:0]
		for _, e := range doc.Entries {
			terminal := e.Status == StatusCompleted || e.Status == StatusFailed || e.Status == StatusConflict
			stale := e.UpdatedAt != nil && e.UpdatedAt.Before(cutoff)
			if terminal && stale {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		doc.Entries = kept
		return doc, nil
	})
	return removed, err
}
