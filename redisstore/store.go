package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/krisalay/qrstore/api"
	"github.com/krisalay/qrstore/types"
	"github.com/krisalay/qrstore/writepolicy"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

var _ api.Store = (*Store)(nil)

// guardedSet takes the cooldown lock and stores the value in one step.
// It returns 0 when the value was written, otherwise the lock's remaining
// lifetime in milliseconds.
var guardedSet = redis.NewScript(`
if redis.call('SET', KEYS[2], '1', 'NX', 'PX', ARGV[3]) then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
	return 0
end
local ttl = redis.call('PTTL', KEYS[2])
if ttl <= 0 then
	ttl = tonumber(ARGV[3])
end
return ttl
`)

func DataKey(id uint64) string {
	return "qr:data:" + strconv.FormatUint(id, 10)
}

func LockKey(id uint64) string {
	return "qr:lock:" + strconv.FormatUint(id, 10)
}

// Store keeps slots in Redis. Expiry of both keys is left to Redis.
type Store struct {
	client      *redis.Client
	dataTTL     time.Duration
	cooldownTTL time.Duration
	writePolicy writepolicy.WritePolicy
	metrics     types.Metrics

	// reads collapses concurrent GETs of the same id into one round trip.
	reads singleflight.Group
}

func New(
	client *redis.Client,
	dataTTL time.Duration,
	cooldownTTL time.Duration,
	writePolicy writepolicy.WritePolicy,
	metrics types.Metrics,
) *Store {
	if metrics == nil {
		metrics = types.NoopMetrics{}
	}
	return &Store{
		client:      client,
		dataTTL:     dataTTL,
		cooldownTTL: cooldownTTL,
		writePolicy: writePolicy,
		metrics:     metrics,
	}
}

// Dial connects to rawURL (redis://...) and pings the server.
func Dial(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("could not connect to redis at %s: %w", opts.Addr, err)
	}
	return client, nil
}

func (s *Store) Read(ctx context.Context, id uint64) ([]byte, bool, error) {
	key := DataKey(id)

	v, err, _ := s.reads.Do(key, func() (any, error) {
		return s.client.Get(ctx, key).Bytes()
	})
	if errors.Is(err, redis.Nil) {
		s.metrics.Miss()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %d: %w", id, err)
	}

	s.metrics.Hit()
	// Callers sharing a singleflight result must not share the buffer.
	return append([]byte{}, v.([]byte)...), true, nil
}

func (s *Store) Write(ctx context.Context, id uint64, value []byte) error {
	if value == nil {
		s.metrics.Invalid()
		return types.ErrInvalidInput
	}

	now := time.Now()
	left, err := guardedSet.Run(ctx, s.client,
		[]string{DataKey(id), LockKey(id)},
		string(value), s.dataTTL.Milliseconds(), s.cooldownTTL.Milliseconds(),
	).Int64()
	if err != nil {
		return fmt.Errorf("write %d: %w", id, err)
	}

	if left > 0 {
		s.metrics.RateLimited()
		return &types.RateLimitError{ID: id, RetryAfter: time.Duration(left) * time.Millisecond}
	}

	// A GET already in flight may predate this write. Later reads must not
	// join it.
	s.reads.Forget(DataKey(id))

	s.metrics.Write()
	if s.writePolicy != nil {
		s.writePolicy.OnWrite(ctx, types.Update{
			EventID:   uuid.NewString(),
			ID:        id,
			Data:      string(value),
			WrittenAt: now,
			ExpireAt:  now.Add(s.dataTTL),
		})
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close flushes pending update events, then closes the client.
func (s *Store) Close() error {
	if s.writePolicy != nil {
		s.writePolicy.Close()
	}
	return s.client.Close()
}
