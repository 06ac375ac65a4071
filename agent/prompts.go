package agent

import (
	"fmt"
	"strings"

	"github.com/hupe1980/agentweave/internal/util"
	"github.com/hupe1980/agentweave/tool"
)

const reactPromptTemplate = `Work on the following request step by step.

Request: {{.Input}}
{{if .Tools}}
Available tools:
{{.Tools}}
{{end}}{{if .Transcript}}
Progress so far:
{{.Transcript}}
{{end}}{{if .Format}}
When you give the final answer, format it as {{.Format}}.
{{end}}
Respond with a single JSON object containing a "thought" field plus exactly
one of:
  "answer" - the final answer when the request is solved
  "action" - {"provider": "...", "tool": "...", "arguments": {...}} to call a tool
  "result" - an intermediate result when no tool call is needed`

const reflectPromptTemplate = `Review the reasoning transcript below and critique it: point out mistaken
assumptions, missing checks or a better next move.

Request: {{.Input}}

Transcript:
{{.Transcript}}

Respond with a single JSON object: {"reflection": "..."}`

const planPromptTemplate = `Break the following request into an ordered plan of at most {{.MaxSteps}}
steps. Keep steps concrete and independently executable.

Request: {{.Input}}

Respond with a JSON array of {"step": n, "description": "...", "goal": "..."}`

const stepPromptTemplate = `You are executing one step of a larger plan.

Overall request: {{.Input}}

Current step: {{.Description}}
Step goal: {{.Goal}}
{{if .History}}
Results of previous steps:
{{.History}}
{{end}}{{if .Tools}}
Available tools:
{{.Tools}}
{{end}}{{if .Transcript}}
Progress on this step:
{{.Transcript}}
{{end}}
Respond with a single JSON object containing a "thought" field plus exactly
one of "answer" (the step is done), "action" ({"provider", "tool",
"arguments"}) or "result" (intermediate result).`

const synthesisPromptTemplate = `Merge the step results below into one coherent answer to the original
request.

Request: {{.Input}}

Step results:
{{.Results}}`

const toolSuggestionPromptTemplate = `Select the single best tool call for the request below.

Request: {{.Input}}

Available tools:
{{.Tools}}

Respond with a single JSON object: {"provider": "...", "tool": "...",
"arguments": {...}}`

// renderPrompt renders a prompt template, degrading to the raw template text
// if rendering fails: a broken prompt is still better than an aborted run.
func renderPrompt(tmpl string, state map[string]any) string {
	out, err := util.RenderTemplate(tmpl, state)
	if err != nil {
		return tmpl
	}
	return out
}

// renderCatalog flattens the provider->tools catalog into prompt text, one
// line per tool.
func renderCatalog(catalog map[string][]tool.Descriptor, order []tool.Provider) string {
	var b strings.Builder
	for _, p := range order {
		for _, t := range catalog[p.Name()] {
			fmt.Fprintf(&b, "- %s/%s: %s\n", t.Provider, t.Name, t.Description)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// transcriptEntry is one line of the growing Thought/Action/Result
// transcript a loop feeds back into its prompt.
type transcriptEntry struct {
	label string // "Thought", "Action", "Result", "Reflection", "Error"
	text  string
}

// renderTranscript flattens entries into prompt text in append order.
func renderTranscript(entries []transcriptEntry) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s: %s\n", e.label, e.text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// describeToolCall renders an action entry for the transcript.
func describeToolCall(call *ToolCall) string {
	args := stringifyResult(call.Arguments)
	return fmt.Sprintf("%s/%s(%s)", call.Provider, call.Tool, args)
}
