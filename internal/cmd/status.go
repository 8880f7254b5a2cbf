package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/v0cli/v0/internal/config"
	"github.com/v0cli/v0/internal/phase"
	"github.com/v0cli/v0/internal/state"
)

var kindCaser = cases.Title(language.English)

var ansiCodes = map[string]string{
	"red": "31", "green": "32", "yellow": "33",
	"cyan": "36", "white": "37",
}

// colorize wraps s in an ANSI color escape, but only when stdout is a
// real terminal - piping status into a file or another command should
// never see raw escape codes.
func colorize(color, s string) string {
	code, ok := ansiCodes[color]
	if !ok || !term.IsTerminal(int(os.Stdout.Fd())) {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

var statusAll bool

var statusCmd = &cobra.Command{
	Use:     "status [<name>]",
	GroupID: GroupControl,
	Short:   "Show operation status",
	Long: `With a name, status prints that operation's detail. With no arguments,
it lists every operation in the current project. --all sweeps every
project this host has ever run v0 in, via each project's back-pointer
file under the XDG state root.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusAll, "all", false, "sweep every known project, not just the current one")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if statusAll {
		return runStatusAll()
	}

	d, err := loadDeps()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		return printOperationSummary(d, args[0])
	}
	return printOperationList(d)
}

func printOperationSummary(d *deps, name string) error {
	op, err := d.store.Read(name)
	if err != nil {
		return fmt.Errorf("%w: operation %q", errNotFound, name)
	}
	fmt.Printf("%s\n", formatOperationLine(d, op))
	if op.Worktree != "" {
		fmt.Printf("  worktree: %s\n", op.Worktree)
	}
	if op.PlanFile != "" {
		fmt.Printf("  plan: %s\n", op.PlanFile)
	}
	if op.After != "" {
		fmt.Printf("  waiting on: %s\n", op.After)
	}
	return nil
}

func printOperationList(d *deps) error {
	names, err := d.store.List()
	if err != nil {
		return fmt.Errorf("listing operations: %w", err)
	}
	sort.Strings(names)
	if len(names) == 0 {
		fmt.Println("no operations")
		return nil
	}
	for _, name := range names {
		op, err := d.store.Read(name)
		if err != nil {
			continue
		}
		fmt.Println(formatOperationLine(d, op))
	}
	return nil
}

func formatOperationLine(d *deps, op *state.Operation) string {
	sessionAlive := op.TmuxSession != "" && d.host.IsAlive(op.TmuxSession)
	st := phase.DisplayStatus(phase.Phase(op.Phase), string(op.MergeStatus), op.Held, sessionAlive, string(op.Kind), op.After)
	kind := kindCaser.String(string(op.Kind))
	return fmt.Sprintf("%-24s %-10s %s", op.Name, kind, colorize(st.Color, st.Icon))
}

// runStatusAll implements "status --all" by reading the .v0.root
// back-pointer buildDeps stamps for every project it runs against, the
// way the teacher's town-wide sweep walks every rig it can find rather
// than trusting a single config file.
func runStatusAll() error {
	parent := config.StateRoot("")
	entries, err := os.ReadDir(parent)
	if err != nil {
		return fmt.Errorf("reading state root %s: %w", parent, err)
	}

	any := false
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		backPointer := filepath.Join(parent, entry.Name(), ".v0.root")
		rootBytes, err := os.ReadFile(backPointer)
		if err != nil {
			continue
		}
		cfg, err := config.LoadFromRoot(trimTrailingNewline(string(rootBytes)))
		if err != nil {
			continue
		}
		any = true
		fmt.Printf("== %s (%s) ==\n", cfg.Project, cfg.Root)
		d := buildDeps(cfg)
		if err := printOperationList(d); err != nil {
			fmt.Fprintf(os.Stderr, "  error: %v\n", err)
		}
	}
	if !any {
		fmt.Println("no known projects")
	}
	return nil
}

func trimTrailingNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
