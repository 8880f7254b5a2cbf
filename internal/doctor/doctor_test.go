package doctor

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestBinaryCheckOKWhenFound(t *testing.T) {
	c := NewBinaryCheck("thing", "the thing", "sh", "", "install sh")
	result := c.Run(&CheckContext{})
	if result.Status != StatusOK {
		t.Fatalf("status = %v, want OK (sh should always resolve in test envs)", result.Status)
	}
}

func TestBinaryCheckErrorsWhenMissing(t *testing.T) {
	c := NewBinaryCheck("thing", "the thing", "v0-definitely-not-a-real-binary", "", "install it")
	result := c.Run(&CheckContext{})
	if result.Status != StatusError {
		t.Fatalf("status = %v, want Error", result.Status)
	}
	if result.FixHint != "install it" {
		t.Errorf("FixHint = %q, want %q", result.FixHint, "install it")
	}
}

func TestBinaryCheckReportsVersionWhenProbed(t *testing.T) {
	binDir := t.TempDir()
	script := "#!/bin/sh\necho fake-tool 1.2.3\n"
	if err := os.WriteFile(filepath.Join(binDir, "fake-tool"), []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	c := NewBinaryCheck("fake", "a fake tool", "fake-tool", "--version", "install fake-tool")
	result := c.Run(&CheckContext{})
	if result.Status != StatusOK {
		t.Fatalf("status = %v, want OK", result.Status)
	}
	if result.Message == "" {
		t.Error("expected a non-empty message including the probed version")
	}
}

func TestDefaultChecksFallsBackToDefaultBinaryNames(t *testing.T) {
	checks := DefaultChecks("", "")
	if len(checks) != 3 {
		t.Fatalf("len(checks) = %d, want 3", len(checks))
	}
	for _, c := range checks {
		cg, ok := c.(interface{ Category() string })
		if !ok || cg.Category() == "" {
			t.Errorf("%s: expected a category", c.Name())
		}
	}
	for i, want := range []string{"claude", "bd", "tmux"} {
		if bc, ok := checks[i].(*BinaryCheck); !ok || bc.binary != want {
			t.Errorf("checks[%d] does not probe the default binary %q", i, want)
		}
	}
}

func TestDoctorRunAggregatesResults(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not on PATH")
	}
	d := NewDoctor()
	d.RegisterAll(
		NewBinaryCheck("present", "present", "sh", "", ""),
		NewBinaryCheck("missing", "missing", "v0-definitely-not-a-real-binary", "", "install it"),
	)

	report := d.Run(&CheckContext{})
	if report.Summary.Total != 2 {
		t.Fatalf("total = %d, want 2", report.Summary.Total)
	}
	if report.Summary.OK != 1 || report.Summary.Errors != 1 {
		t.Fatalf("OK=%d Errors=%d, want 1 and 1", report.Summary.OK, report.Summary.Errors)
	}
	if report.IsHealthy() {
		t.Error("expected IsHealthy() = false when a check errors")
	}
	if !report.HasErrors() {
		t.Error("expected HasErrors() = true")
	}
}

func TestReportPrintListsFailuresWithFixHints(t *testing.T) {
	report := NewReport()
	report.Add(&CheckResult{Name: "agent-binary", Status: StatusError, Message: "claude not found on PATH", FixHint: "install claude", Category: CategoryBinaries})

	var buf bytes.Buffer
	report.Print(&buf, false)
	out := buf.String()
	if !bytes.Contains(buf.Bytes(), []byte("install claude")) {
		t.Errorf("expected fix hint in output, got: %s", out)
	}
	if !bytes.Contains(buf.Bytes(), []byte("0 passed  0 warnings  1 failed")) {
		t.Errorf("expected summary line in output, got: %s", out)
	}
}
