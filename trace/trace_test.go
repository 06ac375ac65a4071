package trace

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope_AddAndRecords(t *testing.T) {
	tracer := NewTracer()
	scope := tracer.Root("root", RoleAgent)

	scope.Add(RoleLLM, map[string]any{"prompt": "p1"})
	scope.Add(RoleTool, map[string]any{"tool_name": "search"})

	records := scope.Records()
	require.Len(t, records, 2)
	assert.Equal(t, RoleLLM, records[0].Role)
	assert.Equal(t, "p1", records[0].Data["prompt"])
	assert.Equal(t, RoleTool, records[1].Role)
	assert.False(t, records[0].Timestamp.IsZero())
}

func TestScope_AddAfterCloseIsDropped(t *testing.T) {
	tracer := NewTracer()
	scope := tracer.Root("root", RoleAgent)

	scope.Add(RoleLLM, map[string]any{"prompt": "kept"})
	scope.Close()
	scope.Add(RoleLLM, map[string]any{"prompt": "dropped"})

	records := scope.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "kept", records[0].Data["prompt"])
	assert.True(t, scope.Closed())
}

func TestScope_CloseIsIdempotent(t *testing.T) {
	tracer := NewTracer()
	scope := tracer.Root("root", RoleAgent)

	scope.Close()
	scope.Close()

	assert.True(t, scope.Closed())
}

func TestScope_SproutAttachesImmediately(t *testing.T) {
	tracer := NewTracer()
	parent := tracer.Root("parent", RoleWorkflow)

	child := parent.Sprout("child", RoleAgent)

	// The attachment must exist before any work happens in the child, so
	// failed children still show up in the tree.
	children := parent.Children()
	require.Len(t, children, 1)
	assert.Equal(t, child.ID(), children[0].ID())
	assert.Equal(t, "child", children[0].Name())
	assert.Equal(t, RoleAgent, children[0].Kind())
}

func TestScope_SproutAfterCloseRemainsReachable(t *testing.T) {
	tracer := NewTracer()
	parent := tracer.Root("parent", RoleWorkflow)
	child := parent.Sprout("child", RoleAgent)
	parent.Close()

	child.Add(RoleLLM, map[string]any{"prompt": "late"})

	require.Len(t, parent.Children(), 1)
	assert.Len(t, child.Records(), 1)
}

func TestScope_ConcurrentSprouts(t *testing.T) {
	const k = 64

	tracer := NewTracer()
	parent := tracer.Root("parent", RoleWorkflow)

	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			child := parent.Sprout(fmt.Sprintf("child-%d", n), RoleAgent)
			child.Add(RoleLLM, map[string]any{"owner": n})
			child.Add(RoleLLM, map[string]any{"owner": n})
			child.Close()
		}(i)
	}
	wg.Wait()

	children := parent.Children()
	require.Len(t, children, k)

	// Every child holds only its own records regardless of interleaving.
	for _, child := range children {
		records := child.Records()
		require.Len(t, records, 2)
		assert.Equal(t, records[0].Data["owner"], records[1].Data["owner"])
	}
}

func TestTracer_GetAndTrace(t *testing.T) {
	tracer := NewTracer()
	root := tracer.Root("root", RoleWorkflow)
	child := root.Sprout("child", RoleAgent)
	child.Add(RoleLLM, map[string]any{"prompt": "p"})

	assert.Equal(t, root, tracer.Get(root.ID()))
	assert.Equal(t, child, tracer.Get(child.ID()))
	assert.Nil(t, tracer.Get("missing"))

	node := tracer.Trace(root.ID())
	require.NotNil(t, node)
	assert.Equal(t, "root", node.Name)
	require.Len(t, node.Children, 1)
	assert.Equal(t, "child", node.Children[0].Name)
	assert.Len(t, node.Children[0].Records, 1)

	assert.Nil(t, tracer.Trace("missing"))
}

func TestTracer_RootsInCreationOrder(t *testing.T) {
	tracer := NewTracer()
	first := tracer.Root("first", RoleAgent)
	second := tracer.Root("second", RoleAgent)

	roots := tracer.Roots()
	require.Len(t, roots, 2)
	assert.Equal(t, first.ID(), roots[0].ID())
	assert.Equal(t, second.ID(), roots[1].ID())
}

func TestContext_RoundTrip(t *testing.T) {
	tracer := NewTracer()
	scope := tracer.Root("root", RoleAgent)

	ctx := NewContext(context.Background(), scope)
	assert.Equal(t, scope, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))
}
