// This file defines how slots expire over time.

package expiration

import "time"

/*
Strategy is the interface that all expiration rules must follow. The store
keeps two independent deadlines per identifier (entry lifetime and write
cooldown) and asks a Strategy for each of them.
*/
type Strategy interface {

	// Deadline returns the expiration time for something written at now.
	Deadline(now time.Time) time.Time

	// IsExpired reports whether a deadline has passed at now.
	IsExpired(deadline, now time.Time) bool
}
