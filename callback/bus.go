package callback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/agentweave/logging"
)

// Sink consumes messages delivered by the Bus. Implementations must not rely
// on aborting the caller: errors (and panics) are caught, logged and
// isolated by the Bus.
type Sink interface {
	Handle(ctx context.Context, msg Message) error
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(ctx context.Context, msg Message) error

// Handle implements Sink.
func (f SinkFunc) Handle(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Bus fans messages out to pluggable sinks, decoupling producers from
// instrumentation (progress, audit, billing, rendering). One sink's failure
// never blocks delivery to the others and never aborts the producer.
type Bus struct {
	logger logging.Logger
}

// NewBus creates a bus logging sink failures through the given logger.
func NewBus(logger logging.Logger) *Bus {
	return &Bus{logger: logging.OrNoOp(logger)}
}

// Send delivers msg to every sink in order. The message is timestamped at
// send time if unset. Sink errors and panics are logged, never returned.
func (b *Bus) Send(ctx context.Context, sinks []Sink, msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	for _, sink := range sinks {
		b.deliver(ctx, sink, msg)
	}
}

// SendAsync delivers msg to every sink concurrently and returns once all
// deliveries have completed. Failure isolation matches Send.
func (b *Bus) SendAsync(ctx context.Context, sinks []Sink, msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	var wg sync.WaitGroup
	for _, sink := range sinks {
		wg.Add(1)
		go func(s Sink) {
			defer wg.Done()
			b.deliver(ctx, s, msg)
		}(sink)
	}
	wg.Wait()
}

// deliver invokes one sink with panic safety.
func (b *Bus) deliver(ctx context.Context, sink Sink, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("callback sink panicked",
				"type", string(msg.Type), "source", msg.Source, "recover", fmt.Sprintf("%v", r))
		}
	}()
	if err := sink.Handle(ctx, msg); err != nil {
		b.logger.Error("callback sink failed",
			"type", string(msg.Type), "source", msg.Source, "error", err.Error())
	}
}
