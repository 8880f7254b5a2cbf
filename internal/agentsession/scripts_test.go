package agentsession

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteOutcomeScripts(t *testing.T) {
	dir := t.TempDir()
	if err := WriteOutcomeScripts(dir, "origin", "feature/auth"); err != nil {
		t.Fatalf("WriteOutcomeScripts: %v", err)
	}

	for _, name := range []string{"done", "fixed", "incomplete"} {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat %s: %v", name, err)
		}
		if info.Mode()&0111 == 0 {
			t.Errorf("%s script is not executable: mode %v", name, info.Mode())
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		content := string(data)
		if !strings.Contains(content, "echo "+name) {
			t.Errorf("%s script does not record its own outcome: %s", name, content)
		}
		if !strings.Contains(content, "git push") {
			t.Errorf("%s script does not push the branch: %s", name, content)
		}
	}
}

func TestReadOutcomeRoundtrip(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, OutcomeFileName), []byte("fixed\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := ReadOutcome(dir); got != "fixed" {
		t.Errorf("ReadOutcome = %q, want %q", got, "fixed")
	}
}

func TestReadOutcomeMissing(t *testing.T) {
	if got := ReadOutcome(t.TempDir()); got != "" {
		t.Errorf("ReadOutcome = %q, want empty", got)
	}
}
