package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/v0cli/v0/internal/issuestore"
	"github.com/v0cli/v0/internal/state"
)

var fixCmd = &cobra.Command{
	Use:     "fix [<id>|<description>]",
	GroupID: GroupWork,
	Short:   "File or label a fix issue for the fix poller",
	Long: `With an existing issue id, fix labels that issue for the fix poller and
ensures it's unassigned and queued. With a free-text description, fix
files a new issue with that title, labelled the same way. Either way the
actual work happens out of band, the next time "v0 start fix" 's poller
runs a cycle.

With no arguments, fix lists the issues currently queued for the fix
poller.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error { return runKindCommand(state.KindFix, args) },
}

func init() {
	rootCmd.AddCommand(fixCmd)
}

func kindLabel(kind state.Kind) string {
	return "v0-kind:" + string(kind)
}

func runKindCommand(kind state.Kind, args []string) error {
	d, err := loadDeps()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		return listKindQueue(d.issues, kind)
	}

	arg := args[0]
	if issue, err := d.issues.Show(arg); err == nil && issue != nil {
		return labelExistingIssue(d.issues, issue, kind)
	}

	issue, err := d.issues.Create(issuestore.CreateOptions{
		Title:  arg,
		Labels: []string{kindLabel(kind)},
	})
	if err != nil {
		return fmt.Errorf("filing %s issue: %w", kind, err)
	}
	fmt.Printf("filed %s as %s, queued for the %s poller\n", issue.ID, issue.Title, kind)
	return nil
}

func labelExistingIssue(issues *issuestore.Store, issue *issuestore.Issue, kind state.Kind) error {
	label := kindLabel(kind)
	hasLabel := false
	for _, l := range issue.Labels {
		if l == label {
			hasLabel = true
			break
		}
	}
	if !hasLabel {
		if err := issues.AddLabel(issue.ID, label); err != nil {
			return fmt.Errorf("labelling %s: %w", issue.ID, err)
		}
	}
	if strings.ToLower(issue.Status) != "todo" {
		if err := issues.SetStatus(issue.ID, "todo"); err != nil {
			return fmt.Errorf("reopening %s: %w", issue.ID, err)
		}
	}
	if issue.Assignee != "" {
		if err := issues.Assign(issue.ID, ""); err != nil {
			return fmt.Errorf("unassigning %s: %w", issue.ID, err)
		}
	}
	fmt.Printf("%s queued for the %s poller\n", issue.ID, kind)
	return nil
}

func listKindQueue(issues *issuestore.Store, kind state.Kind) error {
	candidates, err := issues.List(issuestore.ListOptions{Label: kindLabel(kind), Status: "todo"})
	if err != nil {
		return fmt.Errorf("listing %s queue: %w", kind, err)
	}
	if len(candidates) == 0 {
		fmt.Printf("no %s issues queued\n", kind)
		return nil
	}
	for _, issue := range candidates {
		fmt.Printf("%s  %s\n", issue.ID, issue.Title)
	}
	return nil
}
