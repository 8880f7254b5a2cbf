// Package doctor runs preflight health checks against the binaries v0
// shells out to: the Agent CLI, the issue-store CLI, and the terminal
// multiplexer. It never touches project state.
package doctor

import (
	"fmt"
	"io"
	"slices"
	"time"
)

// Category constants for grouping checks.
const (
	CategoryBinaries = "Binaries"
)

// CategoryOrder defines the display order for categories.
var CategoryOrder = []string{
	CategoryBinaries,
}

// CheckStatus represents the result status of a health check.
type CheckStatus int

const (
	StatusOK CheckStatus = iota
	StatusWarning
	StatusError
)

func (s CheckStatus) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusWarning:
		return "Warning"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

func (s CheckStatus) icon() string {
	switch s {
	case StatusOK:
		return "✓"
	case StatusWarning:
		return "!"
	case StatusError:
		return "✗"
	default:
		return "?"
	}
}

// CheckContext carries nothing today beyond Verbose, but keeps the same
// shape as every other Check implementation's entry point in case a
// future check needs project-scoped state.
type CheckContext struct {
	Verbose bool
}

// CheckResult represents the outcome of a health check.
type CheckResult struct {
	Name     string
	Status   CheckStatus
	Message  string
	Details  []string
	FixHint  string
	Category string
	Elapsed  time.Duration
}

// Check defines the interface for a health check. None of this
// package's checks are auto-fixable — a missing binary needs a human to
// install it — so every Check embeds BaseCheck for its Fix/CanFix.
type Check interface {
	Name() string
	Description() string
	Run(ctx *CheckContext) *CheckResult
	Fix(ctx *CheckContext) error
	CanFix() bool
}

// ReportSummary summarizes the results of all checks.
type ReportSummary struct {
	Total    int
	OK       int
	Warnings int
	Errors   int
}

// Report contains all check results and a summary.
type Report struct {
	Timestamp time.Time
	Checks    []*CheckResult
	Summary   ReportSummary
}

// NewReport creates an empty report with the current timestamp.
func NewReport() *Report {
	return &Report{Timestamp: time.Now(), Checks: make([]*CheckResult, 0)}
}

// Add adds a check result to the report and updates the summary.
func (r *Report) Add(result *CheckResult) {
	r.Checks = append(r.Checks, result)
	r.Summary.Total++
	switch result.Status {
	case StatusOK:
		r.Summary.OK++
	case StatusWarning:
		r.Summary.Warnings++
	case StatusError:
		r.Summary.Errors++
	}
}

// HasErrors returns true if any check reported an error.
func (r *Report) HasErrors() bool {
	return r.Summary.Errors > 0
}

// IsHealthy returns true if all checks passed without errors or warnings.
func (r *Report) IsHealthy() bool {
	return r.Summary.Errors == 0 && r.Summary.Warnings == 0
}

// Print outputs the report to w, grouped by category with a trailing
// summary line and a numbered list of anything that wasn't OK.
func (r *Report) Print(w io.Writer, verbose bool) {
	byCategory := make(map[string][]*CheckResult)
	for _, c := range r.Checks {
		cat := c.Category
		if cat == "" {
			cat = "Other"
		}
		byCategory[cat] = append(byCategory[cat], c)
	}

	categories := append([]string{}, CategoryOrder...)
	if _, ok := byCategory["Other"]; ok {
		categories = append(categories, "Other")
	}

	var warnings []*CheckResult
	for _, cat := range categories {
		checks, ok := byCategory[cat]
		if !ok || len(checks) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s\n", cat)
		for _, c := range checks {
			r.printCheck(w, c, verbose)
			if c.Status != StatusOK {
				warnings = append(warnings, c)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "%d passed  %d warnings  %d failed\n", r.Summary.OK, r.Summary.Warnings, r.Summary.Errors)
	r.printWarnings(w, warnings)
}

func (r *Report) printCheck(w io.Writer, c *CheckResult, verbose bool) {
	fmt.Fprintf(w, "  %s %s", c.Status.icon(), c.Name)
	if c.Message != "" {
		fmt.Fprintf(w, " %s", c.Message)
	}
	fmt.Fprintln(w)
	if len(c.Details) > 0 && (verbose || c.Status != StatusOK) {
		for _, d := range c.Details {
			fmt.Fprintf(w, "      %s\n", d)
		}
	}
}

func (r *Report) printWarnings(w io.Writer, warnings []*CheckResult) {
	if len(warnings) == 0 {
		fmt.Fprintln(w, "all checks passed")
		return
	}
	slices.SortStableFunc(warnings, func(a, b *CheckResult) int {
		if a.Status == StatusError && b.Status != StatusError {
			return -1
		}
		if a.Status != StatusError && b.Status == StatusError {
			return 1
		}
		return 0
	})
	for i, c := range warnings {
		fmt.Fprintf(w, "  %d. %s: %s\n", i+1, c.Name, c.Message)
		if c.FixHint != "" {
			fmt.Fprintf(w, "     %s\n", c.FixHint)
		}
	}
}

// BaseCheck provides the default CanFix/Fix pair for checks that cannot
// be auto-fixed, which is every check this package has.
type BaseCheck struct {
	CheckName        string
	CheckDescription string
	CheckCategory    string
}

func (b *BaseCheck) Category() string    { return b.CheckCategory }
func (b *BaseCheck) Name() string        { return b.CheckName }
func (b *BaseCheck) Description() string { return b.CheckDescription }
func (b *BaseCheck) CanFix() bool        { return false }
func (b *BaseCheck) Fix(ctx *CheckContext) error {
	return fmt.Errorf("%s cannot be auto-fixed", b.CheckName)
}
