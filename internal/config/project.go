// Package config locates the project root and loads the project's .v0.rc
// identity file into a typed ProjectConfig.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MarkerFile is the file that identifies a project root.
const MarkerFile = ".v0.rc"

// Common errors.
var (
	ErrNotFound      = errors.New("project config not found")
	ErrMissingField  = errors.New("missing required field")
	ErrInvalidValue  = errors.New("invalid config value")
)

// WorkspaceMode selects how the merge workspace is built.
type WorkspaceMode string

const (
	WorkspaceModeAuto     WorkspaceMode = ""
	WorkspaceModeClone    WorkspaceMode = "clone"
	WorkspaceModeWorktree WorkspaceMode = "worktree"
)

// BranchPattern is a branch-name template containing a single {name} or
// {id} placeholder, e.g. "feature/{name}" or "fix/{id}".
type BranchPattern string

// Expand substitutes the placeholder in the pattern with value.
func (p BranchPattern) Expand(value string) string {
	s := string(p)
	s = strings.ReplaceAll(s, "{name}", value)
	s = strings.ReplaceAll(s, "{id}", value)
	return s
}

// ProjectConfig is the parsed, typed form of .v0.rc.
type ProjectConfig struct {
	Project              string
	IssuePrefix          string
	BuildDir             string
	PlansDir             string
	DevelopBranch        string
	GitRemote            string
	FeatureBranch        BranchPattern
	BugfixBranch         BranchPattern
	ChoreBranch          BranchPattern
	WorkspaceMode        WorkspaceMode
	WorktreeInit         string
	DisableNotifications bool

	// Root is the absolute path of the project root (directory holding .v0.rc).
	Root string
}

// defaults for recognised-but-optional keys.
const (
	defaultBuildDir      = ".v0/build"
	defaultPlansDir      = "plans"
	defaultDevelopBranch = "main"
	defaultGitRemote     = "origin"
	defaultFeatureBranch = "feature/{name}"
	defaultBugfixBranch  = "fix/{id}"
	defaultChoreBranch   = "chore/{id}"
)

// FindRoot walks up from startDir looking for MarkerFile, the way a project
// root marker is located: stop at the first ancestor (inclusive) that
// contains it.
func FindRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, MarkerFile)
		if _, err := os.Stat(candidate); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: no %s found above %s", ErrNotFound, MarkerFile, startDir)
		}
		dir = parent
	}
}

// Load finds the project root above startDir and parses its .v0.rc.
func Load(startDir string) (*ProjectConfig, error) {
	root, err := FindRoot(startDir)
	if err != nil {
		return nil, err
	}
	return LoadFromRoot(root)
}

// LoadFromRoot parses the .v0.rc file at the given project root.
func LoadFromRoot(root string) (*ProjectConfig, error) {
	path := filepath.Join(root, MarkerFile)
	raw, err := parseRC(path)
	if err != nil {
		return nil, err
	}

	cfg := &ProjectConfig{
		Root:          root,
		BuildDir:      defaultBuildDir,
		PlansDir:      defaultPlansDir,
		DevelopBranch: defaultDevelopBranch,
		GitRemote:     defaultGitRemote,
		FeatureBranch: defaultFeatureBranch,
		BugfixBranch:  defaultBugfixBranch,
		ChoreBranch:   defaultChoreBranch,
	}

	for k, v := range raw {
		switch k {
		case "PROJECT":
			cfg.Project = v
		case "ISSUE_PREFIX":
			cfg.IssuePrefix = v
		case "V0_BUILD_DIR":
			cfg.BuildDir = v
		case "V0_PLANS_DIR":
			cfg.PlansDir = v
		case "V0_DEVELOP_BRANCH":
			cfg.DevelopBranch = v
		case "V0_GIT_REMOTE":
			cfg.GitRemote = v
		case "V0_FEATURE_BRANCH":
			cfg.FeatureBranch = BranchPattern(v)
		case "V0_BUGFIX_BRANCH":
			cfg.BugfixBranch = BranchPattern(v)
		case "V0_CHORE_BRANCH":
			cfg.ChoreBranch = BranchPattern(v)
		case "V0_WORKSPACE_MODE":
			switch WorkspaceMode(v) {
			case WorkspaceModeClone, WorkspaceModeWorktree, WorkspaceModeAuto:
				cfg.WorkspaceMode = WorkspaceMode(v)
			default:
				return nil, fmt.Errorf("%w: V0_WORKSPACE_MODE=%q", ErrInvalidValue, v)
			}
		case "V0_WORKTREE_INIT":
			cfg.WorktreeInit = v
		case "DISABLE_NOTIFICATIONS":
			cfg.DisableNotifications = isTruthy(v)
		}
	}

	if cfg.Project == "" {
		return nil, fmt.Errorf("%w: PROJECT", ErrMissingField)
	}
	if cfg.IssuePrefix == "" {
		return nil, fmt.Errorf("%w: ISSUE_PREFIX", ErrMissingField)
	}

	return cfg, nil
}

// InferredWorkspaceMode resolves WorkspaceModeAuto against the configured
// develop branch: shared-looking branches (main/master/develop) get clone
// mode, anything else (an agent-only branch) gets worktree mode.
func (c *ProjectConfig) InferredWorkspaceMode() WorkspaceMode {
	if c.WorkspaceMode != WorkspaceModeAuto {
		return c.WorkspaceMode
	}
	switch c.DevelopBranch {
	case "main", "master", "develop":
		return WorkspaceModeClone
	default:
		return WorkspaceModeWorktree
	}
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// parseRC parses shell-sourceable KEY="value" / KEY=value lines, tolerating
// blank lines and '#' comments. It does not execute shell — this is a
// restricted reader of the subset v0 actually emits and consumes, kept
// compatible with a real `source .v0.rc` for external tooling.
func parseRC(path string) (map[string]string, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path built from trusted project-root discovery
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	out := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.Index(line, "=")
		if eq < 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.TrimSpace(line[eq+1:])
		val = strings.Trim(val, `"'`)
		out[key] = val
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return out, nil
}
