package writepolicy

import (
	"context"

	"github.com/krisalay/qrstore/types"
)

/*
This file defines what a "write policy" is.

After the store accepts a write, the update may need to travel further:
- Some deployments want it delivered before the write returns (write-through)
- Most want the write path untouched and delivery done in the background (write-back)

Instead of hard-coding one behavior, we define an interface so we can plug in different strategies.
*/

/*
WritePolicy is the contract that all write policies must follow.
The store does not care which policy is used. It simply calls these methods.
*/
type WritePolicy interface {

	/*
		OnWrite is called once for every successful write, after the new slot is visible.
	*/
	OnWrite(ctx context.Context, u types.Update)

	/*
		Close is called when the store is shutting down.
	*/
	Close()
}
