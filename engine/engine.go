package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/krisalay/qrstore/expiration"
	"github.com/krisalay/qrstore/types"
	"github.com/krisalay/qrstore/writepolicy"
)

/*
GuardEngine is the "brain" of the store.
It is responsible for the "behavior" of the store, NOT storage.
This acts as the policy layer.

It decides:
- When an entry is expired
- When a cooldown is still live
- What a freshly written slot looks like
- How successful writes are propagated
- How metrics are recorded

It does NOT:
- Store data
- Handle sharding
- Handle locking
*/
type GuardEngine struct {

	// Data controls how long a written value stays readable (DataTTL).
	Data expiration.Strategy

	// Cooldown controls how long further writes to the same identifier are refused (CooldownTTL).
	Cooldown expiration.Strategy

	// Clock is the only source of "now". Tests swap in a fake clock.
	Clock clockwork.Clock

	// WritePolicy decides where an accepted write goes next.
	// If nil, writes stay only in memory.
	WritePolicy writepolicy.WritePolicy

	// Metrics records hits, misses, rejections and sweeps.
	Metrics types.Metrics
}

/*
NewGuardEngine creates a GuardEngine with fixed DataTTL and CooldownTTL.
*/
func NewGuardEngine(
	dataTTL time.Duration,
	cooldownTTL time.Duration,
	clock clockwork.Clock,
	writePolicy writepolicy.WritePolicy,
	metrics types.Metrics,
) *GuardEngine {

	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if metrics == nil {
		metrics = types.NoopMetrics{}
	}

	return &GuardEngine{
		Data:        expiration.ExpireAfterWrite{TTL: dataTTL},
		Cooldown:    expiration.ExpireAfterWrite{TTL: cooldownTTL},
		Clock:       clock,
		WritePolicy: writePolicy,
		Metrics:     metrics,
	}
}

// Now returns the engine's current time.
func (e *GuardEngine) Now() time.Time {
	return e.Clock.Now()
}

// EntryLive reports whether the slot's value may still be read at now.
func (e *GuardEngine) EntryLive(s *types.Slot, now time.Time) bool {
	return !e.Data.IsExpired(s.Entry.ExpireAt, now)
}

// CooldownLive reports whether the slot still blocks writes at now.
func (e *GuardEngine) CooldownLive(s *types.Slot, now time.Time) bool {
	return !e.Cooldown.IsExpired(s.Cooldown.ExpireAt, now)
}

/*
NewSlot builds the slot for a write accepted at now.
Entry and CooldownMarker are always created together.
*/
func (e *GuardEngine) NewSlot(id uint64, value []byte, now time.Time) *types.Slot {
	return &types.Slot{
		Entry: types.Entry{
			ID:        id,
			Value:     value,
			CreatedAt: now,
			ExpireAt:  e.Data.Deadline(now),
		},
		Cooldown: types.CooldownMarker{
			ID:       id,
			ExpireAt: e.Cooldown.Deadline(now),
		},
	}
}

/*
OnWrite is called after a new slot has been published.

It records the write and forwards an Update through the write policy.
It runs outside the shard lock so a slow sink never holds up other writers.
*/
func (e *GuardEngine) OnWrite(ctx context.Context, s *types.Slot) {
	e.Metrics.Write()

	if e.WritePolicy == nil {
		return
	}
	e.WritePolicy.OnWrite(ctx, types.Update{
		EventID:   uuid.NewString(),
		ID:        s.Entry.ID,
		Data:      string(s.Entry.Value),
		WrittenAt: s.Entry.CreatedAt,
		ExpireAt:  s.Entry.ExpireAt,
	})
}

// Close releases the write policy.
func (e *GuardEngine) Close() {
	if e.WritePolicy != nil {
		e.WritePolicy.Close()
	}
}
