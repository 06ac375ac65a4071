package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/internal/util"
	"github.com/hupe1980/agentweave/model"
	"github.com/hupe1980/agentweave/trace"
)

const routePromptTemplate = `Select up to {{.TopK}} executors suited to handle the request below.

Request: {{.Input}}

Executors:
{{.Candidates}}

Respond with a JSON array of {"name": "...", "confidence": "high"|"medium"|"low",
"reason": "..."}. Only use names from the list.`

// Confidence grades a routing selection.
type Confidence string

// Confidence levels, ordered high > medium > low.
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// rank orders confidences for sorting; unknown grades sort last.
func (c Confidence) rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// Candidate pairs an executor with a capability description. The Router
// shows it to the classification call; Parallel labels the aggregation
// pairs with it.
type Candidate struct {
	Executor    core.Executor
	Description string
}

// Selection is one routing decision returned by the classification call.
type Selection struct {
	Name       string     `json:"name"`
	Confidence Confidence `json:"confidence"`
	Reason     string     `json:"reason"`
}

// Router dispatches a request to the best-matching executors. An ephemeral
// classification call selects up to TopK candidates by name; unknown names
// are dropped, selections are sorted confidence-descending before
// truncation, and zero matches is a hard RoutingError. The selected
// executors run concurrently and the labeled results are returned without a
// synthesis pass.
type Router struct {
	*core.BaseExecutor
	llm        model.Provider
	candidates []Candidate
	topK       int
}

// NewRouter creates a routing workflow over the given candidates.
func NewRouter(name string, llm model.Provider, candidates []Candidate, optFns ...func(o *Options)) *Router {
	opts := newOptions(optFns...)
	executors := make([]core.Executor, 0, len(candidates))
	for _, c := range candidates {
		executors = append(executors, c.Executor)
	}
	r := &Router{
		BaseExecutor: core.NewBaseExecutor(name, core.KindWorkflow, "Router", opts.baseOptions()),
		llm:          llm,
		candidates:   candidates,
		topK:         opts.TopK,
	}
	r.SetChildrenIDs(childIDs(executors))
	return r
}

// Initialize prepares all candidate executors.
func (r *Router) Initialize(ctx context.Context) error {
	if r.Initialized() {
		return nil
	}
	if err := initializeAll(ctx, r.executors()); err != nil {
		return err
	}
	r.MarkInitialized()
	return nil
}

// Cleanup releases all candidate executors in reverse order.
func (r *Router) Cleanup(ctx context.Context) error {
	if !r.Initialized() {
		return nil
	}
	err := cleanupAll(ctx, r.executors())
	r.MarkUninitialized()
	return err
}

func (r *Router) executors() []core.Executor {
	out := make([]core.Executor, 0, len(r.candidates))
	for _, c := range r.candidates {
		out = append(out, c.Executor)
	}
	return out
}

// Execute implements core.Executor.
func (r *Router) Execute(ctx context.Context, input string, opts ...core.ExecuteOption) (*core.Response, error) {
	o := core.NewExecuteOptions(opts...)
	return r.Run(ctx, input, o, func(ctx context.Context, scope *trace.Scope) (*core.Response, error) {
		selected, err := r.route(ctx, scope, input)
		if err != nil {
			return nil, err
		}

		// Concurrent dispatch; siblings are not cancelled when one fails.
		results := make([]string, len(selected))
		var g errgroup.Group
		for i, c := range selected {
			g.Go(func() error {
				resp, err := c.Executor.Execute(ctx, input)
				if err != nil {
					return fmt.Errorf("router %s failed for executor %s: %w", r.Name(), c.Executor.Name(), err)
				}
				results[i] = resp.Text()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		labeled := make(map[string]any, len(selected))
		for i, c := range selected {
			labeled[c.Executor.Name()] = results[i]
		}
		return core.NewResponse(r.Name(), r.ClassName(), labeled), nil
	})
}

// route runs the classification call and resolves the selections against the
// candidate set.
func (r *Router) route(ctx context.Context, scope *trace.Scope, input string) ([]Candidate, error) {
	var list strings.Builder
	byName := make(map[string]Candidate, len(r.candidates))
	for _, c := range r.candidates {
		fmt.Fprintf(&list, "- %s: %s\n", c.Executor.Name(), c.Description)
		byName[c.Executor.Name()] = c
	}

	prompt := renderPrompt(routePromptTemplate, map[string]any{
		"Input":      input,
		"TopK":       r.topK,
		"Candidates": strings.TrimRight(list.String(), "\n"),
	})

	raw, err := generate(ctx, scope, r.llm, model.Request{
		Messages: []model.Message{{Role: model.RoleUser, Content: prompt}},
	})
	if err != nil {
		return nil, err
	}

	selections, perr := parseSelections(raw)
	if perr != nil {
		r.Logger().Debug("router classification parse failed", "router", r.Name(), "error", perr.Error())
	}

	// Drop unknown names, keep first occurrence per name.
	var known []Selection
	seen := make(map[string]struct{})
	for _, s := range selections {
		if _, ok := byName[s.Name]; !ok {
			continue
		}
		if _, dup := seen[s.Name]; dup {
			continue
		}
		seen[s.Name] = struct{}{}
		known = append(known, s)
	}
	if len(known) == 0 {
		return nil, &core.RoutingError{Request: input}
	}

	sort.SliceStable(known, func(i, j int) bool {
		return known[i].Confidence.rank() > known[j].Confidence.rank()
	})
	if r.topK > 0 && len(known) > r.topK {
		known = known[:r.topK]
	}

	selected := make([]Candidate, 0, len(known))
	for _, s := range known {
		selected = append(selected, byName[s.Name])
	}
	return selected, nil
}

// parseSelections decodes the classification output.
func parseSelections(raw string) ([]Selection, error) {
	arr := util.ExtractJSONArray(raw)
	if arr == "" {
		return nil, &core.ParseError{Reason: "no JSON array in routing output", Raw: raw}
	}
	var selections []Selection
	if err := json.Unmarshal([]byte(arr), &selections); err != nil {
		return nil, &core.ParseError{Reason: "malformed routing JSON: " + err.Error(), Raw: raw}
	}
	return selections, nil
}
