package writepolicy

import (
	"context"
	"log/slog"
	"sync"

	"github.com/krisalay/qrstore/types"
)

// This file implements the "write-back" policy.

// pending is one queued update waiting for the worker.
type pending struct {
	ctx context.Context
	u   types.Update
}

/*
WriteBackPolicy delivers updates to the sink asynchronously.
*/
type WriteBackPolicy struct {
	sink   types.Sink
	logger *slog.Logger

	// ch holds queued updates. Buffering absorbs bursts of writes
	// without putting the sink on the write path.
	ch chan pending

	// mu guards closed. OnWrite holds it shared while sending so Close
	// cannot close ch underneath a send.
	mu     sync.RWMutex
	closed bool

	// wg waits for the worker during shutdown.
	wg sync.WaitGroup
}

// NewWriteBackPolicy creates a write-back policy and starts its worker.
func NewWriteBackPolicy(sink types.Sink, buffer int, logger *slog.Logger) *WriteBackPolicy {
	if logger == nil {
		logger = slog.Default()
	}
	w := &WriteBackPolicy{
		sink:   sink,
		logger: logger,
		ch:     make(chan pending, buffer),
	}

	w.wg.Add(1)
	go w.worker()

	return w
}

// OnWrite queues the update. If the queue is full the update is DROPPED:
// blocking here would put the sink back on the write path.
//
// The request context is detached from cancellation because the request
// usually finishes long before the worker gets to the update.
//
// Updates arriving after Close are dropped.
func (w *WriteBackPolicy) OnWrite(ctx context.Context, u types.Update) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		w.logger.Warn("update policy closed, dropping event", "id", u.ID, "event_id", u.EventID)
		return
	}

	select {
	case w.ch <- pending{context.WithoutCancel(ctx), u}:
	default:
		w.logger.Warn("update queue full, dropping event", "id", u.ID, "event_id", u.EventID)
	}
}

/*
worker drains the queue and publishes each update.
This is where eventual delivery happens.
*/
func (w *WriteBackPolicy) worker() {
	defer w.wg.Done()

	for p := range w.ch {
		if err := w.sink.Publish(p.ctx, p.u); err != nil {
			w.logger.Warn("publish update failed", "id", p.u.ID, "event_id", p.u.EventID, "err", err)
		}
	}
}

/*
Close shuts down the policy gracefully:
1. Close the channel (no more updates accepted)
2. Wait for the worker to publish what is already queued

Close is safe to call more than once.
*/
func (w *WriteBackPolicy) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.ch)
	}
	w.mu.Unlock()

	w.wg.Wait()
}
