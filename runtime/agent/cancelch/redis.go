package cancelch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"goa.design/agentcore/runtime/agent"
	"goa.design/agentcore/runtime/agent/errkind"
)

// RedisChannel implements Channel atop go-redis with SETEX/EXISTS, matching
// the cache key layout in the external-interfaces section
// (agent-cancellation:<RunId>, TTL >= lock TTL).
type RedisChannel struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisChannel constructs a RedisChannel.
func NewRedisChannel(client redis.UniversalClient, ttl time.Duration) *RedisChannel {
	return &RedisChannel{client: client, ttl: ttl}
}

// Cancel implements Channel.
func (c *RedisChannel) Cancel(ctx context.Context, id agent.RunId, reason string) error {
	sig := Signal{RunId: id, CancelledAt: time.Now(), Reason: reason}
	raw, err := json.Marshal(sig)
	if err != nil {
		return errkind.Wrap(errkind.InternalServer, err, "marshal cancellation signal")
	}
	if err := c.client.Set(ctx, key(id), raw, c.ttl).Err(); err != nil {
		return errkind.Wrap(errkind.InternalServer, err, "write cancellation signal")
	}
	return nil
}

// Check implements Channel.
func (c *RedisChannel) Check(ctx context.Context, id agent.RunId) (*Signal, bool, error) {
	raw, err := c.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, errkind.Wrap(errkind.InternalServer, err, "read cancellation signal")
	}
	var sig Signal
	if err := json.Unmarshal(raw, &sig); err != nil {
		return nil, false, errkind.Wrap(errkind.InternalServer, err, "unmarshal cancellation signal")
	}
	return &sig, true, nil
}

// Clear implements Channel.
func (c *RedisChannel) Clear(ctx context.Context, id agent.RunId) error {
	if err := c.client.Del(ctx, key(id)).Err(); err != nil {
		return errkind.Wrap(errkind.InternalServer, err, "clear cancellation signal")
	}
	return nil
}
