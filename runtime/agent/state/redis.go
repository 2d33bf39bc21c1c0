package state

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"goa.design/agentcore/runtime/agent"
	"goa.design/agentcore/runtime/agent/errkind"
	"goa.design/agentcore/runtime/agent/telemetry"
)

// RedisStore is the production State Store backing: AgentState is JSON
// encoded and stored under agent-states:<RunId> with SETEX, matching the
// cache key layout in the external-interfaces section.
type RedisStore struct {
	client    redis.UniversalClient
	ttl       time.Duration
	urlExpiry time.Duration
	blobs     Blobs
	logger    telemetry.Logger
}

// NewRedisStore constructs a RedisStore. blobs may be nil, in which case
// binary message content is inlined rather than offloaded (acceptable for
// small deployments; the spec treats blob storage as an external
// collaborator the core only depends on through the Blobs interface).
func NewRedisStore(client redis.UniversalClient, ttl, urlExpiry time.Duration, blobs Blobs, logger telemetry.Logger) *RedisStore {
	if logger == nil {
		logger = telemetry.NoopLogger{}
	}
	return &RedisStore{client: client, ttl: ttl, urlExpiry: urlExpiry, blobs: blobs, logger: logger}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, id agent.RunId) (*agent.AgentState, error) {
	raw, err := s.client.Get(ctx, cacheKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, errkind.New(errkind.NotFound, "agent state %s not found", id)
		}
		return nil, errkind.Wrap(errkind.InternalServer, err, "redis get agent state")
	}
	return decode(ctx, raw, s.blobs, s.urlExpiry)
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, id agent.RunId, st *agent.AgentState) error {
	raw, err := encode(ctx, st, s.blobs, s.logger)
	if err != nil {
		return err
	}
	ttl := s.ttl
	if ttl < 24*time.Hour {
		ttl = 24 * time.Hour
	}
	if err := s.client.Set(ctx, cacheKey(id), raw, ttl).Err(); err != nil {
		return errkind.Wrap(errkind.InternalServer, err, "redis set agent state")
	}
	return nil
}

// Del implements Store.
func (s *RedisStore) Del(ctx context.Context, id agent.RunId) error {
	if err := s.client.Del(ctx, cacheKey(id)).Err(); err != nil {
		return errkind.Wrap(errkind.InternalServer, err, "redis del agent state")
	}
	return nil
}
