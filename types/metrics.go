package types

// This file defines how the store reports what it is doing.

/*
Metrics is an interface that defines what the store wants to measure.
Each method represents an event in the life of a slot. The store calls these
methods whenever something happens.
*/
type Metrics interface {

	// Hit is called when Read finds a live entry.
	Hit()

	// Miss is called when Read finds nothing (never written, or expired).
	Miss()

	// Expire is called when Read finds an entry that has passed its DataTTL.
	Expire()

	// Write is called for every successful write.
	Write()

	// RateLimited is called when a write is rejected by the cooldown.
	RateLimited()

	// Invalid is called when a write is rejected because the value is absent.
	Invalid()

	// Swept is called after a sweep with the number of slots removed.
	Swept(n int)
}

/*
NoopMetrics is a "do nothing" implementation of Metrics.

Callers that do not care about metrics pass nil and get this one, so the
store never needs nil checks on the hot path.
*/
type NoopMetrics struct{}

func (NoopMetrics) Hit()         {}
func (NoopMetrics) Miss()        {}
func (NoopMetrics) Expire()      {}
func (NoopMetrics) Write()       {}
func (NoopMetrics) RateLimited() {}
func (NoopMetrics) Invalid()     {}
func (NoopMetrics) Swept(int)    {}
