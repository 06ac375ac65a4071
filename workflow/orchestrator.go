package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/internal/util"
	"github.com/hupe1980/agentweave/model"
	"github.com/hupe1980/agentweave/trace"
)

// Strategy selects how the Orchestrator planner is prompted each round.
type Strategy string

const (
	// StrategyFull asks the planner to enumerate all remaining steps given
	// the results so far.
	StrategyFull Strategy = "full"
	// StrategyIterative asks the planner for exactly the next step.
	StrategyIterative Strategy = "iterative"
)

const fullPlanPromptTemplate = `You are planning how to accomplish an objective using the executors below.

Objective: {{.Objective}}

Executors:
{{.Executors}}
{{if .Results}}
Results so far:
{{.Results}}
{{end}}
Respond with JSON: {"steps": [{"description": "...", "tasks": [{"description": "...",
"executor": "..."}]}], "complete": true|false}. List all remaining steps. Set
"complete" to true when no further work is needed.`

const iterativePlanPromptTemplate = `You are planning how to accomplish an objective using the executors below, one step at a time.

Objective: {{.Objective}}

Executors:
{{.Executors}}
{{if .Results}}
Results so far:
{{.Results}}
{{end}}
Respond with JSON: {"step": {"description": "...", "tasks": [{"description": "...",
"executor": "..."}]}, "complete": true|false}. Return only the single next step.
Set "complete" to true when no further work is needed.`

const orchestratorSynthesisPromptTemplate = `Combine the task results below into one final answer to the objective.

Objective: {{.Objective}}

Results:
{{.Results}}`

const taskPromptTemplate = `Objective: {{.Objective}}

Your task: {{.Task}}
{{if .Results}}
Completed so far:
{{.Results}}
{{end}}`

// Task is one unit of work assigned to a named executor. Once Result is set
// the task is never re-dispatched.
type Task struct {
	Description string `json:"description"`
	Executor    string `json:"executor"`
	Result      string `json:"result,omitempty"`
	Done        bool   `json:"done,omitempty"`
}

// Step groups tasks that belong to one phase of the plan.
type Step struct {
	Description string  `json:"description"`
	Tasks       []*Task `json:"tasks"`
}

// Plan is the orchestrator's incrementally mutated work breakdown.
type Plan struct {
	Steps    []*Step `json:"steps"`
	Complete bool    `json:"complete"`
}

type fullPlanOutput struct {
	Steps    []*Step `json:"steps"`
	Complete bool    `json:"complete"`
}

type iterativePlanOutput struct {
	Step     *Step `json:"step"`
	Complete bool  `json:"complete"`
}

// Orchestrator runs a plan/dispatch/synthesize loop: a planner model call
// extends the plan, unset tasks are dispatched by exact-name lookup against
// a fixed registry, and planner-signaled completion triggers a synthesis
// call. An unknown executor name is a hard RoutingError; running out of
// planning rounds without completion is a PlanningExhaustedError.
type Orchestrator struct {
	*core.BaseExecutor
	llm           model.Provider
	registry      *core.Registry
	strategy      Strategy
	maxIterations int

	plan *Plan
}

// NewOrchestrator creates an orchestrating workflow over the registry.
func NewOrchestrator(name string, llm model.Provider, registry *core.Registry, optFns ...func(o *Options)) *Orchestrator {
	opts := newOptions(optFns...)
	o := &Orchestrator{
		BaseExecutor:  core.NewBaseExecutor(name, core.KindWorkflow, "Orchestrator", opts.baseOptions()),
		llm:           llm,
		registry:      registry,
		strategy:      opts.Strategy,
		maxIterations: opts.MaxIterations,
	}
	ids := make([]string, 0, registry.Len())
	for _, n := range registry.Names() {
		if e, ok := registry.Get(n); ok {
			ids = append(ids, e.ID())
		}
	}
	o.SetChildrenIDs(ids)
	return o
}

// Initialize prepares every registered executor.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	if o.Initialized() {
		return nil
	}
	if err := initializeAll(ctx, o.registryExecutors()); err != nil {
		return err
	}
	o.MarkInitialized()
	return nil
}

// Cleanup releases every registered executor in reverse order.
func (o *Orchestrator) Cleanup(ctx context.Context) error {
	if !o.Initialized() {
		return nil
	}
	err := cleanupAll(ctx, o.registryExecutors())
	o.MarkUninitialized()
	return err
}

// Reset discards the current plan along with the base state.
func (o *Orchestrator) Reset() {
	o.plan = nil
	o.BaseExecutor.Reset()
}

// Plan returns the current work breakdown, nil before the first execution.
func (o *Orchestrator) Plan() *Plan {
	return o.plan
}

func (o *Orchestrator) registryExecutors() []core.Executor {
	executors := make([]core.Executor, 0, o.registry.Len())
	for _, n := range o.registry.Names() {
		if e, ok := o.registry.Get(n); ok {
			executors = append(executors, e)
		}
	}
	return executors
}

// Execute implements core.Executor.
func (o *Orchestrator) Execute(ctx context.Context, input string, opts ...core.ExecuteOption) (*core.Response, error) {
	eo := core.NewExecuteOptions(opts...)
	return o.Run(ctx, input, eo, func(ctx context.Context, scope *trace.Scope) (*core.Response, error) {
		if o.plan == nil {
			o.plan = &Plan{}
		}

		for round := 1; round <= o.maxIterations; round++ {
			added, complete, err := o.replan(ctx, scope, input)
			if err != nil {
				var perr *core.ParseError
				if errors.As(err, &perr) {
					// Malformed planner output consumes the round.
					o.Logger().Debug("planner output unusable", "orchestrator", o.Name(), "round", round, "error", perr.Error())
					continue
				}
				return nil, err
			}

			o.plan.Steps = append(o.plan.Steps, added...)
			o.plan.Complete = complete

			if err := o.dispatch(ctx, input); err != nil {
				return nil, err
			}

			if o.plan.Complete {
				return o.synthesize(ctx, scope, input)
			}
		}

		return nil, &core.PlanningExhaustedError{Iterations: o.maxIterations}
	})
}

// replan runs one planner call and returns the newly added steps plus the
// completion signal.
func (o *Orchestrator) replan(ctx context.Context, scope *trace.Scope, objective string) ([]*Step, bool, error) {
	tmpl := fullPlanPromptTemplate
	if o.strategy == StrategyIterative {
		tmpl = iterativePlanPromptTemplate
	}

	prompt := renderPrompt(tmpl, map[string]any{
		"Objective": objective,
		"Executors": o.renderRegistry(),
		"Results":   o.renderResults(),
	})

	raw, err := generate(ctx, scope, o.llm, model.Request{
		Messages: []model.Message{{Role: model.RoleUser, Content: prompt}},
	})
	if err != nil {
		return nil, false, err
	}

	obj := util.ExtractJSONObject(raw)
	if obj == "" {
		return nil, false, &core.ParseError{Reason: "no JSON object in planner output", Raw: raw}
	}

	if o.strategy == StrategyIterative {
		var out iterativePlanOutput
		if err := json.Unmarshal([]byte(obj), &out); err != nil {
			return nil, false, &core.ParseError{Reason: "malformed planner JSON: " + err.Error(), Raw: raw}
		}
		if out.Step == nil || len(out.Step.Tasks) == 0 {
			return nil, out.Complete, nil
		}
		return []*Step{out.Step}, out.Complete, nil
	}

	var out fullPlanOutput
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		return nil, false, &core.ParseError{Reason: "malformed planner JSON: " + err.Error(), Raw: raw}
	}
	return out.Steps, out.Complete, nil
}

// dispatch runs every unresolved task in the plan. Tasks with a set result
// are skipped so a resumed plan never re-executes finished work.
func (o *Orchestrator) dispatch(ctx context.Context, objective string) error {
	for _, step := range o.plan.Steps {
		for _, task := range step.Tasks {
			// A set result marks the task resolved even when the Done flag
			// was lost, e.g. on a plan deserialized without it.
			if task.Done || task.Result != "" {
				task.Done = true
				continue
			}

			executor, ok := o.registry.Get(task.Executor)
			if !ok {
				return &core.RoutingError{Request: fmt.Sprintf("executor %q for task %q", task.Executor, task.Description)}
			}

			prompt := renderPrompt(taskPromptTemplate, map[string]any{
				"Objective": objective,
				"Task":      task.Description,
				"Results":   o.renderResults(),
			})

			resp, err := executor.Execute(ctx, prompt)
			if err != nil {
				return fmt.Errorf("orchestrator %s failed for task %q on executor %s: %w", o.Name(), task.Description, task.Executor, err)
			}

			task.Result = resp.Text()
			task.Done = true
		}
	}
	return nil
}

// synthesize folds all task results into the final answer.
func (o *Orchestrator) synthesize(ctx context.Context, scope *trace.Scope, objective string) (*core.Response, error) {
	results := o.renderResults()
	if results == "" {
		return core.NewResponse(o.Name(), o.ClassName(), ""), nil
	}

	prompt := renderPrompt(orchestratorSynthesisPromptTemplate, map[string]any{
		"Objective": objective,
		"Results":   results,
	})

	raw, err := generate(ctx, scope, o.llm, model.Request{
		Messages: []model.Message{{Role: model.RoleUser, Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("orchestrator %s synthesis failed: %w", o.Name(), err)
	}
	if strings.TrimSpace(raw) == "" {
		return core.NewResponse(o.Name(), o.ClassName(), results), nil
	}

	return core.NewResponse(o.Name(), o.ClassName(), raw), nil
}

func (o *Orchestrator) renderRegistry() string {
	var b strings.Builder
	for _, name := range o.registry.Names() {
		fmt.Fprintf(&b, "- %s\n", name)
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderResults summarizes every resolved task. The full summary is
// re-submitted to the planner each round; the planner itself stays
// stateless.
func (o *Orchestrator) renderResults() string {
	if o.plan == nil {
		return ""
	}
	var b strings.Builder
	for _, step := range o.plan.Steps {
		for _, task := range step.Tasks {
			if !task.Done && task.Result == "" {
				continue
			}
			fmt.Fprintf(&b, "- %s: %s\n", task.Description, task.Result)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
