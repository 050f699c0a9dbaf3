package shard

import "sync"

/*
This file defines what a "Shard" is. A shard is a small, independent piece of the store.
Instead of having: One big map and one big lock
We split the identifiers across many shards. Each shard:
- Holds some portion of the slots
- Has its own lock for writes

Writes to identifiers in different shards never wait on each other.
*/

type Shard struct {

	// Store holds the actual id → slot data for this shard. This is NOT a regular map.
	// It is a copy-on-write store that allows lock-free reads.
	Store ShardStore

	// WriteMu serializes the cooldown check and the slot swap for every
	// identifier in this shard. Reads never take it.
	WriteMu sync.Mutex
}

func NewShard() *Shard {
	return &Shard{
		Store: NewCOWStore(),
	}
}
