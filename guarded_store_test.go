package qrstore_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/krisalay/qrstore"
	"github.com/krisalay/qrstore/engine"
	"github.com/krisalay/qrstore/types"
	"github.com/krisalay/qrstore/writepolicy"
)

//
// ================= TEST SINK =================
//

type recordingSink struct {
	mu      sync.Mutex
	updates []types.Update
}

func (s *recordingSink) Publish(ctx context.Context, u types.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, u)
	return nil
}

func (s *recordingSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.updates)
}

//
// ================= HELPER: CREATE STORE (FAKE CLOCK) =================
//

func newTestStore(t *testing.T) (*qrstore.GuardedStore, clockwork.FakeClock, *recordingSink) {
	t.Helper()

	clock := clockwork.NewFakeClock()
	sink := &recordingSink{}

	eng := engine.NewGuardEngine(
		300*time.Second, // DataTTL
		5*time.Second,   // CooldownTTL
		clock,
		writepolicy.NewWriteThroughPolicy(sink, nil),
		nil,
	)

	s := qrstore.NewGuardedStore(4, eng)
	t.Cleanup(func() { s.Close() })
	return s, clock, sink
}

func mustRead(t *testing.T, s *qrstore.GuardedStore, id uint64) (string, bool) {
	t.Helper()
	v, ok, err := s.Read(context.Background(), id)
	if err != nil {
		t.Fatalf("read %d: unexpected error %v", id, err)
	}
	return string(v), ok
}

//
// ================= BASIC OPERATIONS =================
//

func TestReadBeforeWrite(t *testing.T) {
	s, _, _ := newTestStore(t)

	for _, id := range []uint64{0, 1, 42, 1 << 40} {
		if v, ok := mustRead(t, s, id); ok || v != "" {
			t.Fatalf("expected absent for %d, got (%q, %v)", id, v, ok)
		}
	}
}

func TestReadAfterWrite(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	if err := s.Write(ctx, 1, []byte("hello")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	v, ok := mustRead(t, s, 1)
	if !ok || v != "hello" {
		t.Fatalf("expected (hello, true), got (%q, %v)", v, ok)
	}
}

func TestEmptyValueIsValid(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	if err := s.Write(ctx, 9, []byte{}); err != nil {
		t.Fatalf("expected empty value to be accepted, got %v", err)
	}
	if v, ok := mustRead(t, s, 9); !ok || v != "" {
		t.Fatalf("expected (\"\", true), got (%q, %v)", v, ok)
	}
}

func TestRepeatedAbsentReadsDoNotMutate(t *testing.T) {
	s, _, _ := newTestStore(t)

	for i := 0; i < 10; i++ {
		if _, ok := mustRead(t, s, 5); ok {
			t.Fatalf("expected absent on read %d", i)
		}
	}
	if s.Len() != 0 {
		t.Fatalf("reads must not create slots, got %d", s.Len())
	}
}

func TestStoreDoesNotAliasCallerBuffers(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	buf := []byte("abc")
	if err := s.Write(ctx, 1, buf); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	buf[0] = 'x'

	got, _, _ := s.Read(ctx, 1)
	got[1] = 'y'

	if v, _ := mustRead(t, s, 1); v != "abc" {
		t.Fatalf("expected abc, got %q", v)
	}
}

//
// ================= COOLDOWN =================
//

func TestCooldownEnforcement(t *testing.T) {
	ctx := context.Background()
	s, clock, _ := newTestStore(t)

	if err := s.Write(ctx, 1, []byte("a")); err != nil {
		t.Fatalf("first write failed: %v", err)
	}

	clock.Advance(2 * time.Second)

	err := s.Write(ctx, 1, []byte("b"))
	if !errors.Is(err, types.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited at t=2, got %v", err)
	}
	var rl *types.RateLimitError
	if !errors.As(err, &rl) || rl.RetryAfter != 3*time.Second {
		t.Fatalf("expected retry after 3s, got %+v", rl)
	}
	if v, _ := mustRead(t, s, 1); v != "a" {
		t.Fatalf("expected a to survive rejected write, got %q", v)
	}

	clock.Advance(4 * time.Second) // t=6

	if err := s.Write(ctx, 1, []byte("b")); err != nil {
		t.Fatalf("expected write at t=6 to succeed, got %v", err)
	}
	if v, _ := mustRead(t, s, 1); v != "b" {
		t.Fatalf("expected b, got %q", v)
	}
}

func TestRejectedWriteDoesNotExtendCooldown(t *testing.T) {
	ctx := context.Background()
	s, clock, _ := newTestStore(t)

	s.Write(ctx, 1, []byte("a"))
	clock.Advance(4 * time.Second)
	s.Write(ctx, 1, []byte("b")) // rejected
	clock.Advance(1 * time.Second)

	if err := s.Write(ctx, 1, []byte("c")); err != nil {
		t.Fatalf("expected write at t=5 to succeed, got %v", err)
	}
}

//
// ================= EXPIRATION =================
//

func TestEntryExpiration(t *testing.T) {
	ctx := context.Background()
	s, clock, _ := newTestStore(t)

	if err := s.Write(ctx, 2, []byte("x")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	clock.Advance(299 * time.Second)
	if v, ok := mustRead(t, s, 2); !ok || v != "x" {
		t.Fatalf("expected (x, true) at t=299, got (%q, %v)", v, ok)
	}
	if ttl := s.TTL(2); ttl != time.Second {
		t.Fatalf("expected 1s TTL left, got %v", ttl)
	}

	clock.Advance(2 * time.Second) // t=301
	if v, ok := mustRead(t, s, 2); ok || v != "" {
		t.Fatalf("expected (\"\", false) at t=301, got (%q, %v)", v, ok)
	}
	if ttl := s.TTL(2); ttl != -2 {
		t.Fatalf("expected -2 TTL after expiry, got %v", ttl)
	}
}

//
// ================= INDEPENDENCE =================
//

func TestIdentifiersAreIndependent(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	if err := s.Write(ctx, 1, []byte("one")); err != nil {
		t.Fatalf("write 1 failed: %v", err)
	}
	if _, ok := mustRead(t, s, 2); ok {
		t.Fatalf("write to 1 must not create 2")
	}
	if err := s.Write(ctx, 2, []byte("two")); err != nil {
		t.Fatalf("write to 2 must not be rate limited by 1: %v", err)
	}
	if v, _ := mustRead(t, s, 1); v != "one" {
		t.Fatalf("expected one, got %q", v)
	}
}

//
// ================= INVALID INPUT =================
//

func TestNilValueRejected(t *testing.T) {
	ctx := context.Background()
	s, _, sink := newTestStore(t)

	err := s.Write(ctx, 3, nil)
	if !errors.Is(err, types.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, ok := mustRead(t, s, 3); ok {
		t.Fatalf("invalid write must not create an entry")
	}
	if err := s.Write(ctx, 3, []byte("ok")); err != nil {
		t.Fatalf("invalid write must not create a cooldown, got %v", err)
	}
	if sink.len() != 1 {
		t.Fatalf("expected one update event, got %d", sink.len())
	}
}

//
// ================= WRITE PROPAGATION =================
//

func TestSuccessfulWritesArePublished(t *testing.T) {
	ctx := context.Background()
	s, clock, sink := newTestStore(t)

	s.Write(ctx, 1, []byte("a"))
	s.Write(ctx, 1, []byte("b")) // rate limited
	clock.Advance(5 * time.Second)
	s.Write(ctx, 1, []byte("c"))

	if sink.len() != 2 {
		t.Fatalf("expected 2 update events, got %d", sink.len())
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	last := sink.updates[1]
	if last.ID != 1 || last.Data != "c" || last.EventID == "" {
		t.Fatalf("unexpected update %+v", last)
	}
	if !last.ExpireAt.Equal(last.WrittenAt.Add(300 * time.Second)) {
		t.Fatalf("expected expire_at = written_at + 300s, got %+v", last)
	}
}

//
// ================= SWEEPER =================
//

func TestSweepRemovesOnlyFullyExpiredSlots(t *testing.T) {
	ctx := context.Background()
	s, clock, _ := newTestStore(t)

	s.Write(ctx, 1, []byte("old"))
	clock.Advance(298 * time.Second)
	s.Write(ctx, 2, []byte("new"))
	clock.Advance(3 * time.Second) // 1 expired, 2 live

	if n := s.Sweep(); n != 1 {
		t.Fatalf("expected 1 slot swept, got %d", n)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 slot left, got %d", s.Len())
	}
	if v, _ := mustRead(t, s, 2); v != "new" {
		t.Fatalf("expected new, got %q", v)
	}
}

func TestSweepKeepsLiveCooldown(t *testing.T) {
	ctx := context.Background()

	clock := clockwork.NewFakeClock()
	// the cooldown outlives the entry
	eng := engine.NewGuardEngine(time.Second, 10*time.Second, clock, nil, nil)
	s := qrstore.NewGuardedStore(2, eng)
	defer s.Close()

	s.Write(ctx, 1, []byte("a"))
	clock.Advance(2 * time.Second)

	if n := s.Sweep(); n != 0 {
		t.Fatalf("slot with live cooldown must survive sweep, swept %d", n)
	}
	if !errors.Is(s.Write(ctx, 1, []byte("b")), types.ErrRateLimited) {
		t.Fatalf("expected cooldown to survive sweep")
	}
}

func TestBackgroundSweeper(t *testing.T) {
	ctx := context.Background()
	s, clock, _ := newTestStore(t)

	s.Write(ctx, 1, []byte("a"))
	s.StartSweeper(time.Minute)

	// Tick minute by minute until the slot has expired and been reclaimed.
	deadline := time.Now().Add(2 * time.Second)
	for s.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected sweeper to reclaim slot, %d left", s.Len())
		}
		clock.Advance(time.Minute)
		time.Sleep(5 * time.Millisecond)
	}
}

//
// ================= CONCURRENCY TEST =================
//

func TestConcurrentWritesSameID(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	var ok, limited atomic.Int32
	wg := sync.WaitGroup{}

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := s.Write(ctx, 7, []byte(fmt.Sprintf("v%d", n)))
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, types.ErrRateLimited):
				limited.Add(1)
			default:
				t.Errorf("unexpected error %v", err)
			}
		}(i)
	}
	wg.Wait()

	if ok.Load() != 1 || limited.Load() != 49 {
		t.Fatalf("expected exactly one winner, got ok=%d limited=%d", ok.Load(), limited.Load())
	}
}

func TestConcurrentWritesDistinctIDs(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	wg := sync.WaitGroup{}
	for i := uint64(0); i < 100; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			if err := s.Write(ctx, id, []byte("v")); err != nil {
				t.Errorf("write %d: %v", id, err)
			}
			if _, ok, _ := s.Read(ctx, id); !ok {
				t.Errorf("expected %d readable after write", id)
			}
		}(i)
	}
	wg.Wait()

	if s.Len() != 100 {
		t.Fatalf("expected 100 slots, got %d", s.Len())
	}
}
