package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentweave/core"
)

func TestMockProvider_ScriptedReplies(t *testing.T) {
	mock := NewMockProvider("first", "second")

	resp, err := mock.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Text)

	resp, err = mock.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "second", resp.Text)

	// The final reply repeats once the script is exhausted.
	resp, err = mock.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "second", resp.Text)

	assert.Equal(t, 3, mock.Calls())
	assert.Len(t, mock.Requests(), 3)
}

func TestWithRetry_SucceedsAfterTransientFailure(t *testing.T) {
	mock := NewMockProvider("recovered")
	mock.FailWith(0, errors.New("transient"))

	provider := WithRetry(mock, func(o *RetryOptions) {
		o.MaxAttempts = 3
		o.Delay = time.Millisecond
	})

	resp, err := provider.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Text)
	assert.Equal(t, 2, mock.Calls())
}

func TestWithRetry_ExhaustsBudget(t *testing.T) {
	mock := NewMockProvider("never")
	cause := errors.New("hard down")
	mock.FailWith(0, cause)
	mock.FailWith(1, cause)
	mock.FailWith(2, cause)

	provider := WithRetry(mock, func(o *RetryOptions) {
		o.MaxAttempts = 3
		o.Delay = time.Millisecond
	})

	_, err := provider.Generate(context.Background(), Request{})
	require.Error(t, err)

	var rerr *core.RemoteCallError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 3, rerr.Attempts)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, mock.Calls())
}

func TestWithRetry_SingleAttempt(t *testing.T) {
	mock := NewMockProvider("ok")
	mock.FailWith(0, errors.New("down"))

	provider := WithRetry(mock, func(o *RetryOptions) {
		o.MaxAttempts = 0 // clamped to 1
	})

	_, err := provider.Generate(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, 1, mock.Calls())
}

func TestWithRetry_ContextCancelledDuringDelay(t *testing.T) {
	mock := NewMockProvider("ok")
	mock.FailWith(0, errors.New("transient"))

	provider := WithRetry(mock, func(o *RetryOptions) {
		o.MaxAttempts = 3
		o.Delay = time.Minute
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := provider.Generate(ctx, Request{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, mock.Calls())
}

func TestWithRetry_InfoPassesThrough(t *testing.T) {
	provider := WithRetry(NewMockProvider("ok"))
	assert.Equal(t, "mock", provider.Info().Provider)
}
