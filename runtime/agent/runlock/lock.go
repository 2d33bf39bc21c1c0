// Package runlock implements the Run Lock component (spec §4.2): a
// namespaced distributed lock with atomic acquire, owner-checked release and
// extend, and a TTL that doubles as a crash-detection heartbeat.
package runlock

import (
	"context"
	"time"

	"goa.design/agentcore/runtime/agent"
	"goa.design/agentcore/runtime/agent/errkind"
)

// Lock is the Run Lock contract. Key = "lock:agent-run:<RunId>" per the
// external-interfaces cache key layout.
type Lock interface {
	TryAcquire(ctx context.Context, key, holderId string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, holderId string) (bool, error)
	Extend(ctx context.Context, key, holderId string, ttl time.Duration) (bool, error)
	IsLocked(ctx context.Context, key string) (bool, error)
}

// Key builds the canonical lock key for a run.
func Key(id agent.RunId) string { return "lock:agent-run:" + string(id) }

// WithLock acquires the lock for id, runs fn, and releases on every exit
// path including panics, matching §4.2's contract. It returns
// errkind.Conflict if the lock could not be acquired.
func WithLock(ctx context.Context, lock Lock, id agent.RunId, holderId string, ttl time.Duration, fn func(ctx context.Context) error) (err error) {
	key := Key(id)
	ok, acquireErr := lock.TryAcquire(ctx, key, holderId, ttl)
	if acquireErr != nil {
		return errkind.Wrap(errkind.InternalServer, acquireErr, "acquire run lock %s", key)
	}
	if !ok {
		return errkind.New(errkind.Conflict, "run %s is already running", id)
	}
	defer func() {
		if r := recover(); r != nil {
			_, _ = lock.Release(ctx, key, holderId)
			panic(r)
		}
		if _, relErr := lock.Release(ctx, key, holderId); relErr != nil && err == nil {
			err = errkind.Wrap(errkind.InternalServer, relErr, "release run lock %s", key)
		}
	}()
	return fn(ctx)
}
