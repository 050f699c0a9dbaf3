package shard

import (
	"encoding/binary"
	"hash/fnv"
)

/*
This file decides HOW an identifier is assigned to a shard.
QR identifiers are usually small and sequential, so they are hashed
rather than taken modulo the shard count directly.
*/

/*
Selector is the interface that decides which shard should handle a given identifier.
The store does not care HOW this decision is made. Different strategies can be plugged in.
*/
type Selector interface {
	Select(uint64, []*Shard) *Shard
}

// HashSelector picks a shard by FNV-1a hash of the identifier.
type HashSelector struct{}

// hash converts an identifier into a well-mixed number.
func hash(id uint64) uint32 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], id)
	h := fnv.New32a()
	h.Write(buf[:])
	return h.Sum32()
}

// Select chooses the shard for a given identifier.
func (HashSelector) Select(id uint64, shards []*Shard) *Shard {
	return shards[hash(id)%uint32(len(shards))]
}
