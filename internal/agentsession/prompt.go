package agentsession

import "strings"

// PromptVars are the known variables a prompt template may reference.
type PromptVars struct {
	Operation string
	Kind      string
	Repo      string
	Remote    string
	Branch    string
	PlanPath  string
	Role      string
}

// RenderPrompt substitutes {operation}, {kind}, {repo}, {remote},
// {branch}, {plan_path}, and {role} in template with the corresponding
// PromptVars field.
func RenderPrompt(template string, v PromptVars) string {
	replacer := strings.NewReplacer(
		"{operation}", v.Operation,
		"{kind}", v.Kind,
		"{repo}", v.Repo,
		"{remote}", v.Remote,
		"{branch}", v.Branch,
		"{plan_path}", v.PlanPath,
		"{role}", v.Role,
	)
	return replacer.Replace(template)
}

// DefaultPlanPrompt is used when no project-specific template is
// configured for the planning phase.
const DefaultPlanPrompt = `You are planning work for operation "{operation}" ({kind}) in {repo} on branch {branch}.
Produce a plan file under the project's plans directory, then run the "done" script when finished.`

// DefaultExecutePrompt is used when no project-specific template is
// configured for the executing phase.
const DefaultExecutePrompt = `You are implementing operation "{operation}" ({kind}) in {repo} on branch {branch}, per {plan_path}.
Commit your work, then run the "done" script. If you cannot complete the work, run "incomplete" instead.`

// DefaultResolvePrompt is used for the short session `merge --resolve`
// launches in an operation's worktree to resolve a merge conflict.
const DefaultResolvePrompt = `Operation "{operation}" ({kind}) in {repo} failed to merge branch {branch} into develop due to a conflict.
Merge develop into this branch, resolve the conflicts, and commit the result, then run the "done" script. If you cannot resolve it, run "incomplete" instead.`

// DefaultPollerPrompt is used by the fix/chore pollers for the one
// session they launch per ready issue.
const DefaultPollerPrompt = `You are addressing issue {operation} ({kind}) in {repo} on branch {branch}.
Look up the issue's full details with the issue-store CLI, make the necessary change, commit it, then run the "done" script.
If there is nothing you can do without a human decision, leave a note on the issue explaining why and run "incomplete".`
