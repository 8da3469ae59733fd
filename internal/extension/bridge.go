package extension

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultFreshness is how recent the last heartbeat must be for the
// extension to count as connected.
const DefaultFreshness = 120 * time.Second

// Bridge tracks browser-extension liveness. Connectivity is derived from the
// last heartbeat timestamp on every read, never cached: a stale "connected"
// flag was exactly the bug this replaces.
type Bridge struct {
	client    *redis.Client
	freshness time.Duration
	now       func() time.Time
}

// NewBridge creates an extension bridge with the given freshness window
func NewBridge(client *redis.Client, freshness time.Duration) *Bridge {
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	return &Bridge{
		client:    client,
		freshness: freshness,
		now:       time.Now,
	}
}

func heartbeatKey(ownerID string) string {
	return "extension:heartbeat:" + ownerID
}

// Heartbeat records a ping from the owner's extension.
func (b *Bridge) Heartbeat(ctx context.Context, ownerID string) error {
	now := b.now().UTC()
	// Keep the key around twice the window so Status can report last_seen
	// shortly after the extension goes stale.
	err := b.client.Set(ctx, heartbeatKey(ownerID), now.Format(time.RFC3339Nano), 2*b.freshness).Err()
	if err != nil {
		return fmt.Errorf("failed to record heartbeat: %w", err)
	}
	return nil
}

// Status reports whether the owner's extension is connected and when it was
// last seen. Connected means the last heartbeat falls within the freshness
// window at the time of the call.
func (b *Bridge) Status(ctx context.Context, ownerID string) (connected bool, lastSeen *time.Time, err error) {
	value, err := b.client.Get(ctx, heartbeatKey(ownerID)).Result()
	if err == redis.Nil {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("failed to read heartbeat: %w", err)
	}

	seen, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return false, nil, fmt.Errorf("failed to parse heartbeat timestamp: %w", err)
	}

	return b.now().UTC().Sub(seen) <= b.freshness, &seen, nil
}
