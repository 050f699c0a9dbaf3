package api

import "context"

/*
Store defines the PUBLIC API of the QR slot store.
This is a contract that guarantees certain behaviors, without exposing internals.
Whether slots live in sharded memory or in Redis is hidden behind this interface.
*/
type Store interface {

	/*
		Read returns the value stored for id.

		BEHAVIOR:
		-------------------
		1. If a value was written and its DataTTL has not passed:
		   - Return (value, true, nil)

		2. If nothing was written, or the value has expired:
		   - Return (nil, false, nil)
		   - Absence is a normal outcome, NOT an error

		Read never changes what later Reads or Writes observe.
		err is only non-nil when a remote backend could not be reached.
	*/
	Read(ctx context.Context, id uint64) (value []byte, found bool, err error)

	/*
		Write replaces the value stored for id.

		BEHAVIOR:
		---------
		- value == nil        → types.ErrInvalidInput, nothing changes
		- cooldown still live → *types.RateLimitError (errors.Is ErrRateLimited), nothing changes
		- otherwise the value (fresh DataTTL) and the cooldown (fresh CooldownTTL)
		  are stored together as ONE atomic step, then nil is returned

		An empty, non-nil value is a valid payload.
		Writes to one id never affect another id.
	*/
	Write(ctx context.Context, id uint64, value []byte) error

	/*
		Ping checks that the backend is reachable.
		Used by the health endpoint and at startup.
	*/
	Ping(ctx context.Context) error

	/*
		Close gracefully shuts down the store.

		BEHAVIOR:
		---------
		- Stops background goroutines (sweeper)
		- Flushes pending update events
		- Releases backend connections
		- Update events for writes arriving after Close are dropped
	*/
	Close() error
}
