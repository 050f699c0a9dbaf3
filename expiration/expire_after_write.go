package expiration

import "time"

/*
ExpireAfterWrite gives every write a fixed lifetime. Reads never extend it.

A deadline is passed from the instant now reaches it, which matches how Redis
treats PX expirations, so the in-memory and Redis backends agree at the
boundary.
*/
type ExpireAfterWrite struct {
	TTL time.Duration
}

func (e ExpireAfterWrite) Deadline(now time.Time) time.Time {
	return now.Add(e.TTL)
}

func (e ExpireAfterWrite) IsExpired(deadline, now time.Time) bool {
	return !now.Before(deadline)
}
