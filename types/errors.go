package types

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidInput is returned by Write when the value is absent.
	ErrInvalidInput = errors.New("invalid input: value is required")

	// ErrRateLimited is matched by every *RateLimitError.
	ErrRateLimited = errors.New("rate limited: cooldown still active")
)

// RateLimitError is returned by Write while the identifier's cooldown is live.
type RateLimitError struct {
	ID         uint64
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("id %d: %v (retry after %v)", e.ID, ErrRateLimited, e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}
