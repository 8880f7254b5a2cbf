package doctor

import (
	"fmt"
	"io"
	"time"
)

// Doctor manages and executes health checks.
type Doctor struct {
	checks []Check
}

// NewDoctor creates a new Doctor with no registered checks.
func NewDoctor() *Doctor {
	return &Doctor{checks: make([]Check, 0)}
}

// Register adds a check to the doctor's check list.
func (d *Doctor) Register(check Check) {
	d.checks = append(d.checks, check)
}

// RegisterAll adds multiple checks to the doctor's check list.
func (d *Doctor) RegisterAll(checks ...Check) {
	d.checks = append(d.checks, checks...)
}

// Checks returns the list of registered checks.
func (d *Doctor) Checks() []Check {
	return d.checks
}

type categoryGetter interface {
	Category() string
}

// Run executes all registered checks and returns a report.
func (d *Doctor) Run(ctx *CheckContext) *Report {
	return d.RunStreaming(ctx, nil)
}

// RunStreaming executes all registered checks, optionally printing each
// result to w as it completes.
func (d *Doctor) RunStreaming(ctx *CheckContext, w io.Writer) *Report {
	report := NewReport()

	for _, check := range d.checks {
		start := time.Now()
		result := check.Run(ctx)
		result.Elapsed = time.Since(start)
		if result.Name == "" {
			result.Name = check.Name()
		}
		if cg, ok := check.(categoryGetter); ok && result.Category == "" {
			result.Category = cg.Category()
		}

		if w != nil {
			fmt.Fprintf(w, "  %s %s", result.Status.icon(), result.Name)
			if result.Message != "" {
				fmt.Fprintf(w, " %s", result.Message)
			}
			fmt.Fprintln(w)
		}

		report.Add(result)
	}

	return report
}
