package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/internal/util"
	"github.com/hupe1980/agentweave/trace"
)

const evaluatePromptTemplate = `Evaluate the response below against the original request.

Request: {{.Input}}

Response:
{{.Response}}

Respond with JSON: {"rating": "POOR"|"FAIR"|"GOOD"|"EXCELLENT", "feedback": "...",
"needs_improvement": true|false, "focus_areas": ["..."]}.`

const refinePromptTemplate = `Improve your previous response to the request below using the feedback.

Request: {{.Input}}

Previous response:
{{.Response}}

Feedback: {{.Feedback}}
{{if .FocusAreas}}
Focus on: {{.FocusAreas}}
{{end}}`

// Rating is the ordinal quality scale the evaluator scores with.
type Rating int

// Ratings, ordered worst to best.
const (
	RatingPoor Rating = iota
	RatingFair
	RatingGood
	RatingExcellent
)

// String implements fmt.Stringer.
func (r Rating) String() string {
	switch r {
	case RatingPoor:
		return "POOR"
	case RatingFair:
		return "FAIR"
	case RatingGood:
		return "GOOD"
	case RatingExcellent:
		return "EXCELLENT"
	default:
		return fmt.Sprintf("Rating(%d)", int(r))
	}
}

// UnmarshalJSON decodes the evaluator's string form. Unknown values are an
// error so a mis-scored round falls back to the parse-failure path.
func (r *Rating) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "POOR":
		*r = RatingPoor
	case "FAIR":
		*r = RatingFair
	case "GOOD":
		*r = RatingGood
	case "EXCELLENT":
		*r = RatingExcellent
	default:
		return fmt.Errorf("unknown rating %q", s)
	}
	return nil
}

// Evaluation is one critic verdict on a candidate response.
type Evaluation struct {
	Rating           Rating   `json:"rating"`
	Feedback         string   `json:"feedback"`
	NeedsImprovement bool     `json:"needs_improvement"`
	FocusAreas       []string `json:"focus_areas"`
}

// EvaluatorOptimizer alternates a generator and a critic executor for a
// bounded number of rounds. The best-rated response seen so far is retained
// independent of loop continuation; ties keep the earlier response. The loop
// stops once the rating reaches the configured minimum or the critic signals
// no improvement is needed, and the terminal response is always the
// best-rated one.
type EvaluatorOptimizer struct {
	*core.BaseExecutor
	generator     core.Executor
	evaluator     core.Executor
	minRating     Rating
	maxIterations int
}

// NewEvaluatorOptimizer creates a generate/critique/refine workflow.
func NewEvaluatorOptimizer(name string, generator, evaluator core.Executor, optFns ...func(o *Options)) *EvaluatorOptimizer {
	opts := newOptions(optFns...)
	e := &EvaluatorOptimizer{
		BaseExecutor:  core.NewBaseExecutor(name, core.KindWorkflow, "EvaluatorOptimizer", opts.baseOptions()),
		generator:     generator,
		evaluator:     evaluator,
		minRating:     opts.MinRating,
		maxIterations: opts.MaxIterations,
	}
	e.SetChildrenIDs(childIDs([]core.Executor{generator, evaluator}))
	return e
}

// Initialize prepares the generator and the evaluator.
func (e *EvaluatorOptimizer) Initialize(ctx context.Context) error {
	if e.Initialized() {
		return nil
	}
	if err := initializeAll(ctx, []core.Executor{e.generator, e.evaluator}); err != nil {
		return err
	}
	e.MarkInitialized()
	return nil
}

// Cleanup releases the evaluator and the generator.
func (e *EvaluatorOptimizer) Cleanup(ctx context.Context) error {
	if !e.Initialized() {
		return nil
	}
	err := cleanupAll(ctx, []core.Executor{e.generator, e.evaluator})
	e.MarkUninitialized()
	return err
}

// Execute implements core.Executor.
func (e *EvaluatorOptimizer) Execute(ctx context.Context, input string, opts ...core.ExecuteOption) (*core.Response, error) {
	o := core.NewExecuteOptions(opts...)
	return e.Run(ctx, input, o, func(ctx context.Context, _ *trace.Scope) (*core.Response, error) {
		var genOpts []core.ExecuteOption
		if o.Format != "" {
			genOpts = append(genOpts, core.WithFormat(o.Format))
		}

		resp, err := e.generator.Execute(ctx, input, genOpts...)
		if err != nil {
			return nil, fmt.Errorf("evaluator-optimizer %s generation failed: %w", e.Name(), err)
		}
		current := resp.Text()

		best := current
		bestRating := Rating(-1)

		for round := 1; round <= e.maxIterations; round++ {
			eval, err := e.evaluate(ctx, input, current)
			if err != nil {
				return nil, err
			}

			if eval.Rating > bestRating {
				best = current
				bestRating = eval.Rating
			}

			if eval.Rating >= e.minRating || !eval.NeedsImprovement {
				break
			}
			if round == e.maxIterations {
				break
			}

			prompt := renderPrompt(refinePromptTemplate, map[string]any{
				"Input":      input,
				"Response":   current,
				"Feedback":   eval.Feedback,
				"FocusAreas": strings.Join(eval.FocusAreas, ", "),
			})

			resp, err := e.generator.Execute(ctx, prompt, genOpts...)
			if err != nil {
				return nil, fmt.Errorf("evaluator-optimizer %s refinement failed: %w", e.Name(), err)
			}
			current = resp.Text()
		}

		return core.NewResponse(e.Name(), e.ClassName(), best), nil
	})
}

// evaluate runs one critic call. A verdict that fails to decode is treated
// as a POOR rating carrying the raw output as feedback, so the loop keeps
// refining instead of aborting.
func (e *EvaluatorOptimizer) evaluate(ctx context.Context, input, current string) (*Evaluation, error) {
	prompt := renderPrompt(evaluatePromptTemplate, map[string]any{
		"Input":    input,
		"Response": current,
	})

	resp, err := e.evaluator.Execute(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("evaluator-optimizer %s evaluation failed: %w", e.Name(), err)
	}

	eval, perr := parseEvaluation(resp.Text())
	if perr != nil {
		e.Logger().Debug("evaluation parse failed", "workflow", e.Name(), "error", perr.Error())
		return &Evaluation{
			Rating:           RatingPoor,
			Feedback:         resp.Text(),
			NeedsImprovement: true,
		}, nil
	}
	return eval, nil
}

// parseEvaluation decodes the critic's verdict.
func parseEvaluation(raw string) (*Evaluation, error) {
	obj := util.ExtractJSONObject(raw)
	if obj == "" {
		return nil, &core.ParseError{Reason: "no JSON object in evaluation output", Raw: raw}
	}
	var eval Evaluation
	if err := json.Unmarshal([]byte(obj), &eval); err != nil {
		return nil, &core.ParseError{Reason: "malformed evaluation JSON: " + err.Error(), Raw: raw}
	}
	return &eval, nil
}
