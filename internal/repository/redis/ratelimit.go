package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const rateLimitPrefix = "ratelimit:"

// Decision is the outcome of one rate limit check
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimiter is a sliding window limiter. Each key holds a sorted set of
// request timestamps covering the last window.
type RateLimiter struct {
	client *Client
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRateLimiter allows requestsPerMinute plus burst requests per key in any
// one-minute window
func NewRateLimiter(client *Client, requestsPerMinute, burst int) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  requestsPerMinute + burst,
		window: time.Minute,
		now:    time.Now,
	}
}

// Allow records a request for key and reports whether it fits the window.
// Rejected requests are not counted.
func (r *RateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := r.now()
	fullKey := rateLimitPrefix + key
	member := strconv.FormatInt(now.UnixNano(), 10) + ":" + uuid.NewString()
	cutoff := strconv.FormatInt(now.Add(-r.window).UnixNano(), 10)

	var (
		card   *redis.IntCmd
		oldest *redis.ZSliceCmd
	)
	_, err := r.client.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, fullKey, "-inf", "("+cutoff)
		pipe.ZAdd(ctx, fullKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
		card = pipe.ZCard(ctx, fullKey)
		oldest = pipe.ZRangeWithScores(ctx, fullKey, 0, 0)
		pipe.PExpire(ctx, fullKey, r.window)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("failed to execute rate limit check: %w", err)
	}

	count := int(card.Val())
	decision := Decision{
		Allowed:   count <= r.limit,
		Limit:     r.limit,
		Remaining: max(r.limit-count, 0),
		ResetAt:   now.Add(r.window),
	}
	if z := oldest.Val(); len(z) > 0 {
		decision.ResetAt = time.Unix(0, int64(z[0].Score)).Add(r.window)
	}

	return settle(key, decision, func() error {
		return r.client.rdb.ZRem(ctx, fullKey, member).Err()
	}), nil
}

// settle drops a rejected request from the window. A failed discard leaves
// the key over-counted until the entry ages out, so the rejection stands.
func settle(key string, decision Decision, discard func() error) Decision {
	if decision.Allowed {
		return decision
	}
	if err := discard(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to discard rejected request")
	}
	return decision
}
