package runlock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes key only if its value still matches holderId,
// making release an atomic compare-and-delete so a lock holder can never
// release a lock it no longer owns (e.g. after its TTL expired and another
// holder acquired it).
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

// extendScript resets the TTL on key only if its value still matches
// holderId, the atomic compare-and-expire counterpart to releaseScript.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end
`)

// RedisLock implements Lock atop go-redis, using SET NX EX for acquisition
// and Lua scripts for owner-checked release/extend so the compare-and-act
// step is atomic against concurrent holders.
type RedisLock struct {
	client redis.UniversalClient
}

// NewRedisLock constructs a RedisLock.
func NewRedisLock(client redis.UniversalClient) *RedisLock {
	return &RedisLock{client: client}
}

// TryAcquire implements Lock.
func (l *RedisLock) TryAcquire(ctx context.Context, key, holderId string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, holderId, ttl).Result()
}

// Release implements Lock.
func (l *RedisLock) Release(ctx context.Context, key, holderId string) (bool, error) {
	n, err := releaseScript.Run(ctx, l.client, []string{key}, holderId).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Extend implements Lock.
func (l *RedisLock) Extend(ctx context.Context, key, holderId string, ttl time.Duration) (bool, error) {
	n, err := extendScript.Run(ctx, l.client, []string{key}, holderId, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// IsLocked implements Lock.
func (l *RedisLock) IsLocked(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
