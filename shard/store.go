package shard

import (
	"sync/atomic"

	"github.com/krisalay/qrstore/types"
)

/*
This file defines how slots are actually stored inside a shard. This is NOT a normal map.
- Reads should be very fast
- Reads should NOT require locks
- Writes are rare (one per identifier per cooldown) and can afford extra work

To achieve this, we use a technique called: "Copy-On-Write" (COW)
*/

// ShardStore is the interface used by a shard to store and retrieve slots.
type ShardStore interface {

	// Get retrieves a slot by identifier.
	Get(uint64) (*types.Slot, bool)

	// Put inserts or replaces a slot.
	Put(uint64, *types.Slot)

	// DeleteFunc removes every slot for which drop returns true and
	// reports how many were removed.
	DeleteFunc(drop func(uint64, *types.Slot) bool) int

	// Size returns how many slots are stored.
	Size() int64
}

/*
cowStore is a Copy-On-Write implementation of ShardStore.

- Readers always see an immutable snapshot
- Writers create a NEW copy of the map
- The new map replaces the old one atomically

Writers must be serialized by the caller (Shard.WriteMu).
*/
type cowStore struct {

	// data holds the current map[uint64]*types.Slot snapshot.
	data atomic.Pointer[map[uint64]*types.Slot]

	// size tracks the number of slots so Size never walks the map.
	size atomic.Int64
}

func NewCOWStore() *cowStore {
	s := &cowStore{}
	m := make(map[uint64]*types.Slot)
	s.data.Store(&m)
	return s
}

// Get retrieves a slot from the current snapshot.
func (s *cowStore) Get(id uint64) (*types.Slot, bool) {
	slot, ok := (*s.data.Load())[id]
	return slot, ok
}

/*
Put inserts or replaces a slot:

1. Load the current map
2. Create a NEW map and copy all existing slots
3. Add the new slot
4. Atomically replace the old map
*/
func (s *cowStore) Put(id uint64, slot *types.Slot) {
	old := *s.data.Load()

	n := make(map[uint64]*types.Slot, len(old)+1)
	for k, v := range old {
		n[k] = v
	}
	n[id] = slot

	s.data.Store(&n)
	s.size.Store(int64(len(n)))
}

// DeleteFunc rebuilds the map without the dropped slots in one copy.
// When nothing matches the snapshot is left untouched.
func (s *cowStore) DeleteFunc(drop func(uint64, *types.Slot) bool) int {
	old := *s.data.Load()

	n := make(map[uint64]*types.Slot, len(old))
	for k, v := range old {
		if !drop(k, v) {
			n[k] = v
		}
	}

	removed := len(old) - len(n)
	if removed == 0 {
		return 0
	}

	s.data.Store(&n)
	s.size.Store(int64(len(n)))
	return removed
}

// Size returns how many slots are in the store.
func (s *cowStore) Size() int64 {
	return s.size.Load()
}
