package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentweave/callback"
	"github.com/hupe1980/agentweave/trace"
)

// -------------------- Response Tests --------------------

func TestResponse_TextString(t *testing.T) {
	resp := NewResponse("a", "Agent", "plain text")
	assert.Equal(t, "plain text", resp.Text())
}

func TestResponse_TextMapping(t *testing.T) {
	resp := NewResponse("a", "Agent", map[string]any{"k": "v"})
	assert.JSONEq(t, `{"k":"v"}`, resp.Text())
}

func TestResponse_TextNil(t *testing.T) {
	resp := NewResponse("a", "Agent", nil)
	assert.Equal(t, "", resp.Text())
}

func TestResponse_MappingFromMap(t *testing.T) {
	content := map[string]any{"k": "v"}
	resp := NewResponse("a", "Agent", content)
	assert.Equal(t, content, resp.Mapping())
}

func TestResponse_MappingFromJSONString(t *testing.T) {
	resp := NewResponse("a", "Agent", `{"k":"v"}`)
	m := resp.Mapping()
	require.NotNil(t, m)
	assert.Equal(t, "v", m["k"])
}

func TestResponse_MappingFromPlainString(t *testing.T) {
	resp := NewResponse("a", "Agent", "not json")
	assert.Nil(t, resp.Mapping())
}

func TestResponse_MappingFromStruct(t *testing.T) {
	type payload struct {
		K string `json:"k"`
	}
	resp := NewResponse("a", "Agent", payload{K: "v"})
	m := resp.Mapping()
	require.NotNil(t, m)
	assert.Equal(t, "v", m["k"])
}

// -------------------- Registry Tests --------------------

func TestRegistry(t *testing.T) {
	a := NewBaseExecutor("alpha", KindAgent, "Agent")
	b := NewBaseExecutor("beta", KindWorkflow, "Chain")

	reg := NewRegistry(&stubExecutor{BaseExecutor: a}, &stubExecutor{BaseExecutor: b})

	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, []string{"alpha", "beta"}, reg.Names())

	got, ok := reg.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha", got.Name())

	_, ok = reg.Get("missing")
	assert.False(t, ok)

	reg.Register(&stubExecutor{BaseExecutor: NewBaseExecutor("gamma", KindAgent, "Agent")})
	assert.Equal(t, 3, reg.Len())
}

// -------------------- BaseExecutor Tests --------------------

// stubExecutor wires a fixed RunFunc through the shared Run wrapper.
type stubExecutor struct {
	*BaseExecutor
	runFn RunFunc
}

func (s *stubExecutor) Execute(ctx context.Context, input string, opts ...ExecuteOption) (*Response, error) {
	o := NewExecuteOptions(opts...)
	return s.Run(ctx, input, o, s.runFn)
}

func TestBaseExecutor_Identity(t *testing.T) {
	b := NewBaseExecutor("alpha", KindAgent, "Agent", func(o *BaseOptions) {
		o.ProjectID = "proj"
	})

	assert.Equal(t, "alpha", b.Name())
	assert.Equal(t, KindAgent, b.Kind())
	assert.Equal(t, "Agent", b.ClassName())
	assert.Equal(t, "proj:agent:alpha", b.ID())

	b.SetName("renamed")
	assert.Equal(t, "proj:agent:renamed", b.ID())
}

func TestBaseExecutor_Lifecycle(t *testing.T) {
	b := NewBaseExecutor("alpha", KindAgent, "Agent")

	assert.Equal(t, StateUninitialized, b.State())
	assert.False(t, b.Initialized())

	require.NoError(t, b.Initialize(context.Background()))
	assert.Equal(t, StateInitialized, b.State())
	assert.True(t, b.Initialized())

	require.NoError(t, b.Cleanup(context.Background()))
	assert.Equal(t, StateUninitialized, b.State())

	// Cleanup is idempotent.
	require.NoError(t, b.Cleanup(context.Background()))
	assert.Equal(t, StateUninitialized, b.State())
}

func TestBaseExecutor_RunRequiresInitialize(t *testing.T) {
	e := &stubExecutor{
		BaseExecutor: NewBaseExecutor("alpha", KindAgent, "Agent"),
		runFn: func(_ context.Context, _ *trace.Scope) (*Response, error) {
			return NewResponse("alpha", "Agent", "ok"), nil
		},
	}

	_, err := e.Execute(context.Background(), "in")
	require.Error(t, err)

	var perr *PreconditionError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "default:agent:alpha", perr.Executor)
}

func TestBaseExecutor_RunSuccessEmitsContract(t *testing.T) {
	sink := callback.NewMemorySink()
	tracer := trace.NewTracer()
	e := &stubExecutor{
		BaseExecutor: NewBaseExecutor("alpha", KindAgent, "Agent", func(o *BaseOptions) {
			o.Sinks = []callback.Sink{sink}
			o.Tracer = tracer
		}),
		runFn: func(_ context.Context, _ *trace.Scope) (*Response, error) {
			return NewResponse("alpha", "Agent", "ok"), nil
		},
	}
	require.NoError(t, e.Initialize(context.Background()))

	resp, err := e.Execute(context.Background(), "in")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text())
	assert.NotEmpty(t, resp.TraceID)

	events := sink.OfType(callback.TypeEvent)
	require.Len(t, events, 2)
	assert.Equal(t, callback.EventBeforeCall, events[0].Data["event"])
	assert.Equal(t, callback.EventAfterCall, events[1].Data["event"])

	statuses := sink.OfType(callback.TypeStatus)
	require.Len(t, statuses, 2)
	assert.Equal(t, callback.StatusRunning, statuses[0].Data["status"])
	assert.Equal(t, callback.StatusSucceeded, statuses[1].Data["status"])

	responses := sink.OfType(callback.TypeResponse)
	require.Len(t, responses, 1)
	assert.Equal(t, resp.TraceID, responses[0].Data["trace_id"])

	// The root scope is sealed and carries the success record.
	scope := tracer.Get(resp.TraceID)
	require.NotNil(t, scope)
	assert.True(t, scope.Closed())
	records := scope.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "in", records[0].Data["messages"])
	assert.Equal(t, "ok", records[0].Data["response"])
	assert.Equal(t, "Agent", records[0].Data["response_type"])
	assert.Equal(t, "", records[0].Data["error"])
}

func TestBaseExecutor_RunFailureEmitsTerminalStatus(t *testing.T) {
	sink := callback.NewMemorySink()
	tracer := trace.NewTracer()
	wantErr := errors.New("boom")
	e := &stubExecutor{
		BaseExecutor: NewBaseExecutor("alpha", KindAgent, "Agent", func(o *BaseOptions) {
			o.Sinks = []callback.Sink{sink}
			o.Tracer = tracer
		}),
		runFn: func(_ context.Context, _ *trace.Scope) (*Response, error) {
			return nil, wantErr
		},
	}
	require.NoError(t, e.Initialize(context.Background()))

	_, err := e.Execute(context.Background(), "in")
	require.ErrorIs(t, err, wantErr)

	statuses := sink.OfType(callback.TypeStatus)
	require.Len(t, statuses, 2)
	assert.Equal(t, callback.StatusRunning, statuses[0].Data["status"])
	assert.Equal(t, callback.StatusFailed, statuses[1].Data["status"])

	errs := sink.OfType(callback.TypeError)
	require.Len(t, errs, 1)
	assert.Equal(t, "boom", errs[0].Data["error"])

	// The scope is still attached and sealed, with the error recorded.
	roots := tracer.Roots()
	require.Len(t, roots, 1)
	assert.True(t, roots[0].Closed())
	records := roots[0].Records()
	require.Len(t, records, 1)
	assert.Equal(t, "boom", records[0].Data["error"])
}

func TestBaseExecutor_RunNestsUnderContextScope(t *testing.T) {
	tracer := trace.NewTracer()
	e := &stubExecutor{
		BaseExecutor: NewBaseExecutor("child", KindAgent, "Agent", func(o *BaseOptions) {
			o.Tracer = tracer
		}),
		runFn: func(_ context.Context, _ *trace.Scope) (*Response, error) {
			return NewResponse("child", "Agent", "ok"), nil
		},
	}
	require.NoError(t, e.Initialize(context.Background()))

	parentTracer := trace.NewTracer()
	parent := parentTracer.Root("parent", "workflow")
	ctx := trace.NewContext(context.Background(), parent)

	resp, err := e.Execute(ctx, "in")
	require.NoError(t, err)

	// Nested executions sprout from the context scope, not the own tracer.
	assert.Empty(t, tracer.Roots())
	children := parent.Children()
	require.Len(t, children, 1)
	assert.Equal(t, resp.TraceID, children[0].ID())
	assert.Equal(t, "child", children[0].Name())
}

func TestBaseExecutor_RunAttachesMetadata(t *testing.T) {
	sink := callback.NewMemorySink()
	e := &stubExecutor{
		BaseExecutor: NewBaseExecutor("alpha", KindAgent, "Agent", func(o *BaseOptions) {
			o.Sinks = []callback.Sink{sink}
		}),
		runFn: func(_ context.Context, _ *trace.Scope) (*Response, error) {
			return NewResponse("alpha", "Agent", "ok"), nil
		},
	}
	require.NoError(t, e.Initialize(context.Background()))

	_, err := e.Execute(context.Background(), "in", WithMetadata(map[string]string{"run": "42"}))
	require.NoError(t, err)

	for _, msg := range sink.Messages() {
		assert.Equal(t, "42", msg.Metadata["run"])
	}
}

func TestFormatID(t *testing.T) {
	assert.Equal(t, "proj:agent:alpha", FormatID("proj", KindAgent, "alpha"))
}

// -------------------- Error Tests --------------------

func TestErrors_Messages(t *testing.T) {
	assert.Equal(t, "precondition failed for p:agent:a: nope",
		(&PreconditionError{Executor: "p:agent:a", Reason: "nope"}).Error())

	assert.Equal(t, "parse error: bad json",
		(&ParseError{Reason: "bad json", Raw: "x"}).Error())

	cause := errors.New("timeout")
	terr := &ToolInvocationError{Provider: "search", Tool: "lookup", Err: cause}
	assert.Equal(t, "tool execution failed: lookup on search: timeout", terr.Error())
	assert.ErrorIs(t, terr, cause)

	rejected := &ToolInvocationError{Provider: "search", Tool: "lookup", Reason: "unknown tool"}
	assert.Equal(t, "tool call rejected: lookup on search: unknown tool", rejected.Error())

	assert.Equal(t, "no matching executor: do x",
		(&RoutingError{Request: "do x"}).Error())

	assert.Equal(t, "plan did not complete within 5 iterations",
		(&PlanningExhaustedError{Iterations: 5}).Error())

	rerr := &RemoteCallError{Attempts: 3, Err: cause}
	assert.Equal(t, "remote call failed after 3 attempts: timeout", rerr.Error())
	assert.ErrorIs(t, rerr, cause)
}
