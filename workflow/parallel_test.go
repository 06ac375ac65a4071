package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallel_AggregatorSeesAllPairsInRegistrationOrder(t *testing.T) {
	const n = 5

	candidates := make([]Candidate, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("worker-%d", i)
		candidates = append(candidates, Candidate{Executor: newFakeExecutor(name, func(_ string) string {
			return "out-" + name
		})})
	}
	aggregator := newFakeExecutor("aggregator", func(input string) string { return input })

	p := NewParallel("fanout", candidates, aggregator)
	require.NoError(t, p.Initialize(context.Background()))

	_, err := p.Execute(context.Background(), "task")
	require.NoError(t, err)

	inputs := aggregator.Inputs()
	require.Len(t, inputs, 1)
	prompt := inputs[0]

	// Exactly n pairs, in registration order regardless of completion order.
	last := -1
	for i := 0; i < n; i++ {
		pair := fmt.Sprintf("- worker-%d: out-worker-%d", i, i)
		idx := strings.Index(prompt, pair)
		require.GreaterOrEqual(t, idx, 0, "missing pair %q", pair)
		assert.Greater(t, idx, last)
		last = idx
	}
}

func TestParallel_AggregatorPairsUseDescriptions(t *testing.T) {
	searcher := newFakeExecutor("searcher", func(_ string) string { return "three hits" })
	summarizer := newFakeExecutor("summarizer", func(_ string) string { return "brief" })
	aggregator := newFakeExecutor("aggregator", func(input string) string { return input })

	p := NewParallel("fanout", []Candidate{
		{Executor: searcher, Description: "web search"},
		{Executor: summarizer},
	}, aggregator)
	require.NoError(t, p.Initialize(context.Background()))

	_, err := p.Execute(context.Background(), "task")
	require.NoError(t, err)

	inputs := aggregator.Inputs()
	require.Len(t, inputs, 1)

	// Described candidates are labeled by capability, the rest by name.
	assert.Contains(t, inputs[0], "- web search: three hits")
	assert.Contains(t, inputs[0], "- summarizer: brief")
	assert.NotContains(t, inputs[0], "- searcher:")
}

func TestParallel_AllExecutorsReceiveSameInput(t *testing.T) {
	a := newFakeExecutor("a", func(s string) string { return s })
	b := newFakeExecutor("b", func(s string) string { return s })
	aggregator := newFakeExecutor("aggregator", func(s string) string { return "done" })

	p := NewParallel("fanout", []Candidate{{Executor: a}, {Executor: b}}, aggregator)
	require.NoError(t, p.Initialize(context.Background()))

	resp, err := p.Execute(context.Background(), "shared")
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Text())

	assert.Equal(t, []string{"shared"}, a.Inputs())
	assert.Equal(t, []string{"shared"}, b.Inputs())
}

func TestParallel_FirstFailurePropagates(t *testing.T) {
	good := newFakeExecutor("good", func(s string) string { return s })
	bad := newFakeExecutor("bad", func(s string) string { return s })
	bad.err = errors.New("branch down")
	aggregator := newFakeExecutor("aggregator", func(s string) string { return s })

	p := NewParallel("fanout", []Candidate{{Executor: good}, {Executor: bad}}, aggregator)
	require.NoError(t, p.Initialize(context.Background()))

	_, err := p.Execute(context.Background(), "task")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed for executor bad")

	// No partial aggregation.
	assert.Empty(t, aggregator.Inputs())
}

func TestParallel_AggregationFailurePropagates(t *testing.T) {
	worker := newFakeExecutor("worker", func(s string) string { return s })
	aggregator := newFakeExecutor("aggregator", func(s string) string { return s })
	aggregator.err = errors.New("aggregator down")

	p := NewParallel("fanout", []Candidate{{Executor: worker}}, aggregator)
	require.NoError(t, p.Initialize(context.Background()))

	_, err := p.Execute(context.Background(), "task")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aggregation failed")
}

func TestParallel_NoExecutorsFails(t *testing.T) {
	aggregator := newFakeExecutor("aggregator", func(s string) string { return s })
	p := NewParallel("fanout", nil, aggregator)
	require.NoError(t, p.Initialize(context.Background()))

	_, err := p.Execute(context.Background(), "task")
	assert.Error(t, err)
}

func TestParallel_CleanupReleasesAggregatorToo(t *testing.T) {
	worker := newFakeExecutor("worker", func(s string) string { return s })
	aggregator := newFakeExecutor("aggregator", func(s string) string { return s })

	p := NewParallel("fanout", []Candidate{{Executor: worker}}, aggregator)
	require.NoError(t, p.Initialize(context.Background()))
	require.True(t, aggregator.Initialized())

	require.NoError(t, p.Cleanup(context.Background()))
	assert.False(t, worker.Initialized())
	assert.False(t, aggregator.Initialized())
}
