package expiration

import (
	"testing"
	"time"
)

func TestExpireAfterWriteBoundary(t *testing.T) {
	s := ExpireAfterWrite{TTL: 5 * time.Second}
	now := time.Unix(1000, 0)

	deadline := s.Deadline(now)
	if !deadline.Equal(now.Add(5 * time.Second)) {
		t.Fatalf("expected deadline now+5s, got %v", deadline)
	}

	if s.IsExpired(deadline, now.Add(4999*time.Millisecond)) {
		t.Fatalf("expected live just before deadline")
	}
	if !s.IsExpired(deadline, deadline) {
		t.Fatalf("expected expired at deadline")
	}
	if !s.IsExpired(deadline, deadline.Add(time.Second)) {
		t.Fatalf("expected expired after deadline")
	}
}
