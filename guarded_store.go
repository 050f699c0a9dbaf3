package qrstore

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/krisalay/qrstore/api"
	"github.com/krisalay/qrstore/engine"
	"github.com/krisalay/qrstore/shard"
	"github.com/krisalay/qrstore/types"
)

var _ api.Store = (*GuardedStore)(nil)

/*
GuardedStore is the in-memory store.
This struct is the orchestrator that connects:
- shards
- expiration of entries and cooldowns
- write propagation
- metrics
*/
type GuardedStore struct {
	// shards are the actual storage units. Each shard is an independent mini-store.
	shards []*shard.Shard

	// engine contains the "rules": DataTTL, CooldownTTL, clock, write policy, metrics.
	engine *engine.GuardEngine

	// selector decides which shard an identifier goes to.
	selector shard.Selector

	// stopSweep stops the background sweeper, if one was started.
	stopSweep context.CancelFunc
	sweepDone sync.WaitGroup
	closeOnce sync.Once
}

func NewGuardedStore(shards int, engine *engine.GuardEngine) *GuardedStore {
	if shards < 1 {
		shards = 1
	}

	s := make([]*shard.Shard, shards)
	for i := range s {
		s[i] = shard.NewShard()
	}

	return &GuardedStore{
		shards:   s,
		engine:   engine,
		selector: shard.HashSelector{},
	}
}

/*
Read returns the live value for id.

Expired entries are treated as absent and left in place; memory is reclaimed by Sweep.
*/
func (c *GuardedStore) Read(_ context.Context, id uint64) ([]byte, bool, error) {
	sh := c.selector.Select(id, c.shards)

	slot, ok := sh.Store.Get(id)
	if !ok {
		c.engine.Metrics.Miss()
		return nil, false, nil
	}

	if !c.engine.EntryLive(slot, c.engine.Now()) {
		c.engine.Metrics.Expire()
		c.engine.Metrics.Miss()
		return nil, false, nil
	}

	c.engine.Metrics.Hit()
	return bytes.Clone(slot.Entry.Value), true, nil
}

/*
Write stores value for id unless the cooldown for id is still live.
*/
func (c *GuardedStore) Write(ctx context.Context, id uint64, value []byte) error {
	if value == nil {
		c.engine.Metrics.Invalid()
		return types.ErrInvalidInput
	}

	slot, err := c.swap(id, value)
	if err != nil {
		c.engine.Metrics.RateLimited()
		return err
	}

	c.engine.OnWrite(ctx, slot)
	return nil
}

// swap is the atomic part of Write: cooldown check and slot replacement
// under the shard lock.
func (c *GuardedStore) swap(id uint64, value []byte) (*types.Slot, error) {
	sh := c.selector.Select(id, c.shards)

	sh.WriteMu.Lock()
	defer sh.WriteMu.Unlock()

	now := c.engine.Now()

	if cur, ok := sh.Store.Get(id); ok && c.engine.CooldownLive(cur, now) {
		return nil, &types.RateLimitError{
			ID:         id,
			RetryAfter: cur.Cooldown.ExpireAt.Sub(now),
		}
	}

	// The store owns its bytes; callers may reuse their buffers.
	slot := c.engine.NewSlot(id, bytes.Clone(value), now)
	sh.Store.Put(id, slot)
	return slot, nil
}

/*
TTL returns the remaining lifetime of the value stored for id.

RETURN VALUES (Redis-compatible semantics):
> 0 : time left before the value expires
-2  : nothing stored, or already expired
*/
func (c *GuardedStore) TTL(id uint64) time.Duration {
	sh := c.selector.Select(id, c.shards)

	slot, ok := sh.Store.Get(id)
	if !ok {
		return -2
	}

	d := slot.Entry.ExpireAt.Sub(c.engine.Now())
	if d <= 0 {
		return -2
	}
	return d
}

// Len returns the number of slots held, including expired ones not yet swept.
func (c *GuardedStore) Len() int {
	n := int64(0)
	for _, sh := range c.shards {
		n += sh.Store.Size()
	}
	return int(n)
}

// Ping always succeeds; there is nothing remote to reach.
func (c *GuardedStore) Ping(context.Context) error {
	return nil
}

/*
Close gracefully shuts down the store.
The sweeper is stopped first, then pending update events are flushed.
*/
func (c *GuardedStore) Close() error {
	c.closeOnce.Do(func() {
		if c.stopSweep != nil {
			c.stopSweep()
			c.sweepDone.Wait()
		}
		c.engine.Close()
	})
	return nil
}
