package qrstore

import (
	"context"
	"time"

	"github.com/krisalay/qrstore/types"
)

/*
Sweep removes slots whose entry AND cooldown have both expired.

A slot with an expired entry but a live cooldown is kept: dropping it would
let a new write through early. Sweeping therefore never changes what Read
or Write observe; it only bounds memory.
*/
func (c *GuardedStore) Sweep() int {
	removed := 0

	for _, sh := range c.shards {
		sh.WriteMu.Lock()
		now := c.engine.Now()
		removed += sh.Store.DeleteFunc(func(_ uint64, s *types.Slot) bool {
			return !c.engine.EntryLive(s, now) && !c.engine.CooldownLive(s, now)
		})
		sh.WriteMu.Unlock()
	}

	c.engine.Metrics.Swept(removed)
	return removed
}

/*
StartSweeper runs Sweep every interval until Close.
A non-positive interval disables sweeping. Calling it twice is a no-op.
*/
func (c *GuardedStore) StartSweeper(interval time.Duration) {
	if interval <= 0 || c.stopSweep != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.stopSweep = cancel

	ticker := c.engine.Clock.NewTicker(interval)

	c.sweepDone.Add(1)
	go func() {
		defer c.sweepDone.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				c.Sweep()
			}
		}
	}()
}
