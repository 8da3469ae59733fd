package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// checkAndIncrScript atomically checks the window counter against the limit
// and increments it only when under. Running both in one script avoids the
// read-check-write race between concurrent dispatchers.
var checkAndIncrScript = redis.NewScript(`
	local current = tonumber(redis.call("GET", KEYS[1]) or "0")
	if current >= tonumber(ARGV[1]) then
		return 0
	end
	current = redis.call("INCR", KEYS[1])
	if current == 1 then
		redis.call("EXPIRE", KEYS[1], ARGV[2])
	end
	return 1
`)

// Limiter enforces a sends-per-minute budget in Redis. Keys are scoped per
// channel-provider credential, since the credential is the resource the
// provider actually throttles, not the campaign.
type Limiter struct {
	client *redis.Client
	limit  int
	now    func() time.Time
}

// NewLimiter creates a fixed-window sends-per-minute limiter
func NewLimiter(client *redis.Client, perMinute int) *Limiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	return &Limiter{
		client: client,
		limit:  perMinute,
		now:    time.Now,
	}
}

// Allow consumes one send from the current minute window for the given
// credential key. Returns false when the window budget is exhausted.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := fmt.Sprintf("ratelimit:%s:%s", key, l.now().UTC().Format("200601021504"))

	result, err := checkAndIncrScript.Run(ctx, l.client, []string{bucket}, l.limit, 120).Int()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	return result == 1, nil
}
