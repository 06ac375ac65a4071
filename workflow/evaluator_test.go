package workflow

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRating_Ordering(t *testing.T) {
	assert.True(t, RatingPoor < RatingFair)
	assert.True(t, RatingFair < RatingGood)
	assert.True(t, RatingGood < RatingExcellent)

	assert.Equal(t, "POOR", RatingPoor.String())
	assert.Equal(t, "EXCELLENT", RatingExcellent.String())
}

func TestRating_UnmarshalJSON(t *testing.T) {
	var r Rating
	require.NoError(t, json.Unmarshal([]byte(`"GOOD"`), &r))
	assert.Equal(t, RatingGood, r)

	require.NoError(t, json.Unmarshal([]byte(`"excellent"`), &r))
	assert.Equal(t, RatingExcellent, r)

	assert.Error(t, json.Unmarshal([]byte(`"AMAZING"`), &r))
}

// scriptedEvaluator yields one canned verdict per call.
func scriptedEvaluator(verdicts ...string) *fakeExecutor {
	calls := 0
	e := newFakeExecutor("critic", nil)
	e.transform = func(_ string) string {
		v := verdicts[calls]
		if calls < len(verdicts)-1 {
			calls++
		}
		return v
	}
	return e
}

func verdict(rating string, needsImprovement bool, feedback string) string {
	data, _ := json.Marshal(map[string]any{
		"rating":            rating,
		"feedback":          feedback,
		"needs_improvement": needsImprovement,
		"focus_areas":       []string{"clarity"},
	})
	return string(data)
}

func TestEvaluatorOptimizer_StopsAtMinimumRating(t *testing.T) {
	round := 0
	generator := newFakeExecutor("generator", nil)
	generator.transform = func(_ string) string {
		round++
		return map[int]string{1: "draft 1", 2: "draft 2", 3: "draft 3"}[round]
	}
	evaluator := scriptedEvaluator(
		verdict("FAIR", true, "needs depth"),
		verdict("POOR", true, "regressed"),
		verdict("GOOD", false, "solid"),
	)

	e := NewEvaluatorOptimizer("eo", generator, evaluator, func(o *Options) {
		o.MaxIterations = 5
		o.MinRating = RatingGood
	})
	require.NoError(t, e.Initialize(context.Background()))

	resp, err := e.Execute(context.Background(), "write an essay")
	require.NoError(t, err)

	// Ratings FAIR, POOR, GOOD: round 3 is the first to reach the minimum
	// and its response is the best-rated one.
	assert.Equal(t, "draft 3", resp.Text())
	assert.Equal(t, 3, len(generator.Inputs()))
	assert.Equal(t, 3, len(evaluator.Inputs()))
}

func TestEvaluatorOptimizer_ReturnsBestNotLast(t *testing.T) {
	round := 0
	generator := newFakeExecutor("generator", nil)
	generator.transform = func(_ string) string {
		round++
		return map[int]string{1: "strong draft", 2: "weaker draft"}[round]
	}
	evaluator := scriptedEvaluator(
		verdict("FAIR", true, "almost"),
		verdict("POOR", true, "worse"),
	)

	e := NewEvaluatorOptimizer("eo", generator, evaluator, func(o *Options) {
		o.MaxIterations = 2
		o.MinRating = RatingExcellent
	})
	require.NoError(t, e.Initialize(context.Background()))

	resp, err := e.Execute(context.Background(), "write")
	require.NoError(t, err)

	// The budget ran out; the FAIR-rated first draft beats the POOR second.
	assert.Equal(t, "strong draft", resp.Text())
}

func TestEvaluatorOptimizer_StopsWhenNoImprovementNeeded(t *testing.T) {
	generator := newFakeExecutor("generator", func(_ string) string { return "draft" })
	evaluator := scriptedEvaluator(verdict("FAIR", false, "good enough"))

	e := NewEvaluatorOptimizer("eo", generator, evaluator, func(o *Options) {
		o.MinRating = RatingExcellent
	})
	require.NoError(t, e.Initialize(context.Background()))

	resp, err := e.Execute(context.Background(), "write")
	require.NoError(t, err)
	assert.Equal(t, "draft", resp.Text())
	assert.Len(t, generator.Inputs(), 1)
}

func TestEvaluatorOptimizer_RefinePromptCarriesFeedback(t *testing.T) {
	round := 0
	generator := newFakeExecutor("generator", nil)
	generator.transform = func(_ string) string {
		round++
		return map[int]string{1: "draft 1", 2: "draft 2"}[round]
	}
	evaluator := scriptedEvaluator(
		verdict("FAIR", true, "add sources"),
		verdict("GOOD", false, "fine"),
	)

	e := NewEvaluatorOptimizer("eo", generator, evaluator)
	require.NoError(t, e.Initialize(context.Background()))

	_, err := e.Execute(context.Background(), "write")
	require.NoError(t, err)

	inputs := generator.Inputs()
	require.Len(t, inputs, 2)
	assert.Contains(t, inputs[1], "add sources")
	assert.Contains(t, inputs[1], "clarity")
}

func TestEvaluatorOptimizer_UnparseableVerdictTreatedAsPoor(t *testing.T) {
	round := 0
	generator := newFakeExecutor("generator", nil)
	generator.transform = func(_ string) string {
		round++
		return map[int]string{1: "draft 1", 2: "draft 2"}[round]
	}
	evaluator := scriptedEvaluator(
		"no verdict at all",
		verdict("GOOD", false, "fine"),
	)

	e := NewEvaluatorOptimizer("eo", generator, evaluator)
	require.NoError(t, e.Initialize(context.Background()))

	resp, err := e.Execute(context.Background(), "write")
	require.NoError(t, err)

	// The loop kept refining past the unusable verdict.
	assert.Equal(t, "draft 2", resp.Text())
}

func TestEvaluatorOptimizer_GeneratorFailurePropagates(t *testing.T) {
	generator := newFakeExecutor("generator", func(_ string) string { return "draft" })
	generator.err = assert.AnError
	evaluator := scriptedEvaluator(verdict("GOOD", false, "fine"))

	e := NewEvaluatorOptimizer("eo", generator, evaluator)
	require.NoError(t, e.Initialize(context.Background()))

	_, err := e.Execute(context.Background(), "write")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generation failed")
}
