package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/model"
)

func newTestCandidates() (*fakeExecutor, *fakeExecutor, []Candidate) {
	math := newFakeExecutor("math", func(_ string) string { return "math result" })
	writing := newFakeExecutor("writing", func(_ string) string { return "writing result" })
	candidates := []Candidate{
		{Executor: math, Description: "Solves math problems"},
		{Executor: writing, Description: "Writes prose"},
	}
	return math, writing, candidates
}

func TestRouter_SelectsSingleExecutor(t *testing.T) {
	math, writing, candidates := newTestCandidates()
	llm := model.NewMockProvider(`[{"name": "math", "confidence": "high", "reason": "numbers"}]`)

	r := NewRouter("router", llm, candidates)
	require.NoError(t, r.Initialize(context.Background()))

	resp, err := r.Execute(context.Background(), "what is 2+2")
	require.NoError(t, err)

	labeled := resp.Mapping()
	require.NotNil(t, labeled)
	assert.Equal(t, "math result", labeled["math"])
	assert.NotContains(t, labeled, "writing")

	assert.Equal(t, []string{"what is 2+2"}, math.Inputs())
	assert.Empty(t, writing.Inputs())
}

func TestRouter_SortsByConfidenceBeforeTruncation(t *testing.T) {
	math, writing, candidates := newTestCandidates()
	llm := model.NewMockProvider(`[
		{"name": "writing", "confidence": "low", "reason": "maybe"},
		{"name": "math", "confidence": "high", "reason": "definitely"}
	]`)

	r := NewRouter("router", llm, candidates, func(o *Options) {
		o.TopK = 1
	})
	require.NoError(t, r.Initialize(context.Background()))

	resp, err := r.Execute(context.Background(), "question")
	require.NoError(t, err)

	labeled := resp.Mapping()
	assert.Contains(t, labeled, "math")
	assert.NotContains(t, labeled, "writing")
	assert.NotEmpty(t, math.Inputs())
	assert.Empty(t, writing.Inputs())
}

func TestRouter_TopKRunsMultipleConcurrently(t *testing.T) {
	math, writing, candidates := newTestCandidates()
	llm := model.NewMockProvider(`[
		{"name": "math", "confidence": "high", "reason": "r"},
		{"name": "writing", "confidence": "medium", "reason": "r"}
	]`)

	r := NewRouter("router", llm, candidates, func(o *Options) {
		o.TopK = 2
	})
	require.NoError(t, r.Initialize(context.Background()))

	resp, err := r.Execute(context.Background(), "question")
	require.NoError(t, err)

	labeled := resp.Mapping()
	assert.Equal(t, "math result", labeled["math"])
	assert.Equal(t, "writing result", labeled["writing"])
	assert.NotEmpty(t, math.Inputs())
	assert.NotEmpty(t, writing.Inputs())
}

func TestRouter_UnknownNamesAreDropped(t *testing.T) {
	_, _, candidates := newTestCandidates()
	llm := model.NewMockProvider(`[
		{"name": "ghost", "confidence": "high", "reason": "r"},
		{"name": "math", "confidence": "medium", "reason": "r"}
	]`)

	r := NewRouter("router", llm, candidates)
	require.NoError(t, r.Initialize(context.Background()))

	resp, err := r.Execute(context.Background(), "question")
	require.NoError(t, err)
	assert.Contains(t, resp.Mapping(), "math")
}

func TestRouter_NoMatchIsRoutingError(t *testing.T) {
	_, _, candidates := newTestCandidates()
	llm := model.NewMockProvider(`[{"name": "ghost", "confidence": "high", "reason": "r"}]`)

	r := NewRouter("router", llm, candidates)
	require.NoError(t, r.Initialize(context.Background()))

	_, err := r.Execute(context.Background(), "question")
	var rerr *core.RoutingError
	require.ErrorAs(t, err, &rerr)
}

func TestRouter_UnparseableClassificationIsRoutingError(t *testing.T) {
	_, _, candidates := newTestCandidates()
	llm := model.NewMockProvider("I could not decide.")

	r := NewRouter("router", llm, candidates)
	require.NoError(t, r.Initialize(context.Background()))

	_, err := r.Execute(context.Background(), "question")
	var rerr *core.RoutingError
	require.ErrorAs(t, err, &rerr)
}

func TestRouter_BranchFailurePropagates(t *testing.T) {
	math, _, candidates := newTestCandidates()
	math.err = assert.AnError
	llm := model.NewMockProvider(`[{"name": "math", "confidence": "high", "reason": "r"}]`)

	r := NewRouter("router", llm, candidates)
	require.NoError(t, r.Initialize(context.Background()))

	_, err := r.Execute(context.Background(), "question")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed for executor math")
}
