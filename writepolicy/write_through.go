package writepolicy

import (
	"context"
	"log/slog"

	"github.com/krisalay/qrstore/types"
)

/*
This file implements the "write-through" policy.

Whenever the store accepts a write, the update is published to the sink
before Write returns.

So the flow is: slot swap → sink publish (synchronous)
*/

// WriteThroughPolicy forwards every update to the sink on the caller's goroutine.
type WriteThroughPolicy struct {
	sink   types.Sink
	logger *slog.Logger
}

func NewWriteThroughPolicy(sink types.Sink, logger *slog.Logger) *WriteThroughPolicy {
	if logger == nil {
		logger = slog.Default()
	}
	return &WriteThroughPolicy{sink: sink, logger: logger}
}

/*
OnWrite publishes immediately.
  - A slow sink makes writes slow
  - A failing sink is logged; the write itself already succeeded
*/
func (w *WriteThroughPolicy) OnWrite(ctx context.Context, u types.Update) {
	if err := w.sink.Publish(ctx, u); err != nil {
		w.logger.Warn("publish update failed", "id", u.ID, "event_id", u.EventID, "err", err)
	}
}

// Close has nothing to release; write-through keeps no background workers.
func (w *WriteThroughPolicy) Close() {}
