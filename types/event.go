package types

import (
	"context"
	"time"
)

// Update describes one successful write. It is what write policies forward.
type Update struct {
	EventID   string    `json:"event_id"`
	ID        uint64    `json:"id"`
	Data      string    `json:"data"`
	WrittenAt time.Time `json:"written_at"`
	ExpireAt  time.Time `json:"expire_at"`
}

// Sink is the contract between the store and whatever consumes updates.
type Sink interface {

	/*
		Publish delivers one update (message broker, log, test recorder...).

		Publish is called after the write is already visible to readers.
		A failing Publish never undoes or fails the write.
	*/
	Publish(ctx context.Context, u Update) error
}
