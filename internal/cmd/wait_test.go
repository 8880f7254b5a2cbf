package cmd

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/v0cli/v0/internal/state"
)

func TestRunWaitNotFound(t *testing.T) {
	root := t.TempDir()
	writeRC(t, root, "acme")
	t.Setenv("XDG_STATE_HOME", filepath.Join(root, "xdg-state"))
	chdir(t, root)

	err := runWait(nil, []string{"does-not-exist"})
	if err == nil {
		t.Fatal("expected error for an operation that doesn't exist")
	}
}

func TestRunWaitMergedReturnsNil(t *testing.T) {
	root := t.TempDir()
	writeRC(t, root, "acme")
	t.Setenv("XDG_STATE_HOME", filepath.Join(root, "xdg-state"))
	chdir(t, root)

	d := newTestDeps(t, root, "acme")
	if err := d.store.Create(&state.Operation{Name: "auth", Phase: "merged", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("seeding operation: %v", err)
	}

	if err := runWait(nil, []string{"auth"}); err != nil {
		t.Fatalf("runWait on a merged operation: %v", err)
	}
}

func TestRunWaitCancelledReturnsError(t *testing.T) {
	root := t.TempDir()
	writeRC(t, root, "acme")
	t.Setenv("XDG_STATE_HOME", filepath.Join(root, "xdg-state"))
	chdir(t, root)

	d := newTestDeps(t, root, "acme")
	if err := d.store.Create(&state.Operation{Name: "auth", Phase: "cancelled", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("seeding operation: %v", err)
	}

	err := runWait(nil, []string{"auth"})
	if err == nil {
		t.Fatal("expected error for a cancelled (non-merged terminal) operation")
	}
}

func TestRunWaitTimesOut(t *testing.T) {
	root := t.TempDir()
	writeRC(t, root, "acme")
	t.Setenv("XDG_STATE_HOME", filepath.Join(root, "xdg-state"))
	chdir(t, root)

	d := newTestDeps(t, root, "acme")
	if err := d.store.Create(&state.Operation{Name: "auth", Phase: "executing", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("seeding operation: %v", err)
	}

	waitTimeout = 10 * time.Millisecond
	defer func() { waitTimeout = 0 }()

	err := runWait(nil, []string{"auth"})
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if !errIs(err, errTimeout) {
		t.Errorf("error = %v, want it to wrap errTimeout", err)
	}
}
