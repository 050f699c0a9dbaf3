package types

import "time"

// Entry is the value stored for one identifier.
type Entry struct {
	ID        uint64
	Value     []byte
	CreatedAt time.Time
	ExpireAt  time.Time
}

// CooldownMarker blocks further writes to ID until ExpireAt.
type CooldownMarker struct {
	ID       uint64
	ExpireAt time.Time
}

/*
Slot is everything the store keeps for one identifier.

A slot is never mutated after it is published to a shard. A successful write
builds a NEW slot holding both the Entry and the CooldownMarker and swaps it in
with a single store operation, so readers see both or neither.
*/
type Slot struct {
	Entry    Entry
	Cooldown CooldownMarker
}
