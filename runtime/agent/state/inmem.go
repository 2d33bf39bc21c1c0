package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"goa.design/agentcore/runtime/agent"
	"goa.design/agentcore/runtime/agent/errkind"
	"goa.design/agentcore/runtime/agent/telemetry"
)

// InMemStore is a reference Store used by tests and by callers who don't
// need cross-process durability. It applies the same schema-version
// validation and blob offload path as RedisStore so behavior under test
// matches production.
type InMemStore struct {
	mu        sync.Mutex
	entries   map[agent.RunId][]byte
	urlExpiry time.Duration
	blobs     Blobs
	logger    telemetry.Logger
}

// NewInMemStore constructs an InMemStore.
func NewInMemStore(urlExpiry time.Duration, blobs Blobs, logger telemetry.Logger) *InMemStore {
	if logger == nil {
		logger = telemetry.NoopLogger{}
	}
	return &InMemStore{entries: make(map[agent.RunId][]byte), urlExpiry: urlExpiry, blobs: blobs, logger: logger}
}

// Get implements Store.
func (s *InMemStore) Get(ctx context.Context, id agent.RunId) (*agent.AgentState, error) {
	s.mu.Lock()
	raw, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return nil, errkind.New(errkind.NotFound, "agent state %s not found", id)
	}
	return decode(ctx, raw, s.blobs, s.urlExpiry)
}

// Set implements Store.
func (s *InMemStore) Set(ctx context.Context, id agent.RunId, st *agent.AgentState) error {
	raw, err := encode(ctx, st, s.blobs, s.logger)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.entries[id] = raw
	s.mu.Unlock()
	return nil
}

// Del implements Store.
func (s *InMemStore) Del(ctx context.Context, id agent.RunId) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

// InMemBlobs is a reference Blobs implementation keying content by its
// digest. It has no TTL semantics (tests don't need eviction); production
// deployments supply their own object-store-backed implementation.
type InMemBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	ctypes  map[string]string
}

// NewInMemBlobs constructs an InMemBlobs.
func NewInMemBlobs() *InMemBlobs {
	return &InMemBlobs{objects: make(map[string][]byte), ctypes: make(map[string]string)}
}

// Put implements Blobs.
func (b *InMemBlobs) Put(_ context.Context, contentType string, content []byte) (string, error) {
	sum := sha256.Sum256(content)
	uri := "mem://agents/content/" + hex.EncodeToString(sum[:])
	b.mu.Lock()
	b.objects[uri] = content
	b.ctypes[uri] = contentType
	b.mu.Unlock()
	return uri, nil
}

// SignedURL implements Blobs by returning a synthetic URL carrying an
// expiry timestamp; InMemBlobs does not enforce expiry, it only documents
// it, since it exists for tests.
func (b *InMemBlobs) SignedURL(_ context.Context, uri string, expiry time.Duration) (string, error) {
	b.mu.Lock()
	_, ok := b.objects[uri]
	b.mu.Unlock()
	if !ok {
		return "", errkind.New(errkind.NotFound, "blob %s not found", uri)
	}
	return fmt.Sprintf("%s?expires=%d", uri, time.Now().Add(expiry).Unix()), nil
}
