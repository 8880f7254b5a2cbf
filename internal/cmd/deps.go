package cmd

import (
	"os"

	"github.com/v0cli/v0/internal/agentsession"
	"github.com/v0cli/v0/internal/config"
	"github.com/v0cli/v0/internal/git"
	"github.com/v0cli/v0/internal/issuestore"
	"github.com/v0cli/v0/internal/mergequeue"
	"github.com/v0cli/v0/internal/notify"
	"github.com/v0cli/v0/internal/phase"
	"github.com/v0cli/v0/internal/resolver"
	"github.com/v0cli/v0/internal/state"
	"github.com/v0cli/v0/internal/tmux"
	"github.com/v0cli/v0/internal/workspace"
)

// deps bundles the collaborators every subcommand needs, built once from
// the project found above the working directory. It mirrors the way the
// teacher's subcommands open a townRoot and build whatever clients they
// need from it, just generalized to v0's (smaller) dependency graph.
type deps struct {
	cfg       *config.ProjectConfig
	paths     *config.Paths
	store     *state.Store
	events    *state.EventLog
	machine   *phase.Machine
	issues    *issuestore.Store
	resolver  *resolver.Resolver
	base      *git.Git
	worktrees *workspace.Manager
	mergeWS   *workspace.MergeWorkspace
	tmux      *tmux.Tmux
	host      *agentsession.Host
	queue     *mergequeue.Queue
	notifier  mergequeue.Notifier
}

func loadDeps() (*deps, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, err
	}
	return buildDeps(cfg), nil
}

func buildDeps(cfg *config.ProjectConfig) *deps {
	paths := config.NewPaths(cfg)
	_ = paths.EnsureStateDirs()
	_ = os.WriteFile(paths.RootBackPointerFile(), []byte(cfg.Root), 0644)

	store := state.New(paths.BuildDir())
	events := state.NewEventLog(paths.BuildDir())
	machine := phase.New(store, events)
	issues := issuestore.New(cfg.Root)
	res := resolver.New(issues, store)
	base := git.NewGit(cfg.Root)
	worktrees := workspace.New(base, cfg, paths)
	mergeWS := workspace.NewMergeWorkspace(base, cfg, paths)
	tm := tmux.NewTmux()
	host := agentsession.NewHost(tm, cfg.Project, agentBinary(cfg))
	queue := mergequeue.New(paths.MergeQueueFile(), paths.MergeQueueLockFile())

	var notifier mergequeue.Notifier
	if !cfg.DisableNotifications && os.Getenv("V0_TEST_MODE") != "1" {
		notifier = notify.NewDesktop()
	}

	return &deps{
		cfg: cfg, paths: paths, store: store, events: events, machine: machine,
		issues: issues, resolver: res, base: base, worktrees: worktrees,
		mergeWS: mergeWS, tmux: tm, host: host, queue: queue, notifier: notifier,
	}
}

func agentBinary(cfg *config.ProjectConfig) string {
	if v := os.Getenv("V0_AGENT_BINARY"); v != "" {
		return v
	}
	return "claude"
}
