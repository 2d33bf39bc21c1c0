// Package state implements the State Store component (spec §4.1): durable
// persistence of AgentState keyed by RunId, with TTL, schema-version
// validation on read, and binary-content offload to a blob store.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"goa.design/agentcore/runtime/agent"
	"goa.design/agentcore/runtime/agent/errkind"
	"goa.design/agentcore/runtime/agent/telemetry"
)

// Store persists AgentState by RunId. Implementations must round-trip all
// message kinds; binary content is offloaded through a Blobs implementation
// so the hot cache entry itself never carries large payloads.
type Store interface {
	// Get loads the state for id. Returns a *errkind.Error{Kind: NotFound} when
	// the key does not exist, and Kind: Validation when the stored schema
	// version does not match CurrentSchemaVersion.
	Get(ctx context.Context, id agent.RunId) (*agent.AgentState, error)
	// Set persists state, replacing any prior value, refreshing the TTL.
	Set(ctx context.Context, id agent.RunId, st *agent.AgentState) error
	// Del removes the state for id. Not finding a key is not an error.
	Del(ctx context.Context, id agent.RunId) error
}

// Blobs offloads binary message content out of the hot AgentState record.
// Put is called on Set for every binary part encountered; SignedURL is called
// on Get to rewrite a stored URI into a short-lived downloadable link.
type Blobs interface {
	// Put uploads content under the given content type and returns an opaque
	// URI (not a signed URL) to store in place of the bytes.
	Put(ctx context.Context, contentType string, content []byte) (uri string, err error)
	// SignedURL rewrites a previously stored URI into a signed, time-limited
	// download URL valid for roughly expiry.
	SignedURL(ctx context.Context, uri string, expiry time.Duration) (string, error)
}

// cacheKey mirrors the layout documented in the external-interfaces section:
// agent-states:<RunId>.
func cacheKey(id agent.RunId) string { return fmt.Sprintf("agent-states:%s", id) }

// encode serializes st to the persisted wire format (§6.4), offloading binary
// message content to blobs first so the stored JSON stays small. encode never
// mutates st: it builds the wire document from a cloned message slice.
func encode(ctx context.Context, st *agent.AgentState, blobs Blobs, logger telemetry.Logger) ([]byte, error) {
	doc := wireState{
		Id:                 st.Id,
		RootManifestId:      st.RootManifestId,
		ManifestId:          st.ManifestId,
		ManifestVersion:     st.ManifestVersion,
		ParentStateId:       st.ParentStateId,
		ChildStateIds:       st.ChildStateIds,
		CurrentStepNumber:   st.CurrentStepNumber,
		Suspensions:         st.Suspensions,
		SuspensionStacks:    st.SuspensionStacks,
		PendingToolResults:  st.PendingToolResults,
		Status:              st.Status,
		StartedAt:           st.StartedAt,
		CreatedAt:           st.CreatedAt,
		UpdatedAt:           st.UpdatedAt,
		ElapsedExecutionMs:  st.ElapsedExecutionMs,
		SchemaVersion:       agent.CurrentSchemaVersion,
		Steps:               st.Steps,
	}
	msgs, err := offloadMessages(ctx, st.Messages, blobs, logger)
	if err != nil {
		return nil, errkind.Wrap(errkind.InternalServer, err, "offload binary message content")
	}
	doc.Messages = msgs
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, errkind.Wrap(errkind.InternalServer, err, "marshal agent state")
	}
	return b, nil
}

// decode parses the wire document, validates the schema version, and rewrites
// blob markers into short-lived signed URLs per the configured expiry.
func decode(ctx context.Context, raw []byte, blobs Blobs, urlExpiry time.Duration) (*agent.AgentState, error) {
	var doc wireState
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errkind.Wrap(errkind.Validation, err, "unmarshal agent state")
	}
	if doc.SchemaVersion != agent.CurrentSchemaVersion {
		return nil, errkind.New(errkind.Validation, "agent state schema version %d does not match %d", doc.SchemaVersion, agent.CurrentSchemaVersion)
	}
	msgs, err := resignMessages(ctx, doc.Messages, blobs, urlExpiry)
	if err != nil {
		return nil, errkind.Wrap(errkind.InternalServer, err, "resign blob urls")
	}
	return &agent.AgentState{
		Id:                 doc.Id,
		RootManifestId:      doc.RootManifestId,
		ManifestId:          doc.ManifestId,
		ManifestVersion:     doc.ManifestVersion,
		ParentStateId:       doc.ParentStateId,
		ChildStateIds:       doc.ChildStateIds,
		Messages:            msgs,
		Steps:               doc.Steps,
		CurrentStepNumber:   doc.CurrentStepNumber,
		Suspensions:         doc.Suspensions,
		SuspensionStacks:    doc.SuspensionStacks,
		PendingToolResults:  doc.PendingToolResults,
		Status:              doc.Status,
		StartedAt:           doc.StartedAt,
		CreatedAt:           doc.CreatedAt,
		UpdatedAt:           doc.UpdatedAt,
		ElapsedExecutionMs:  doc.ElapsedExecutionMs,
		SchemaVersion:       doc.SchemaVersion,
	}, nil
}
