package state

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"goa.design/agentcore/runtime/agent"
	"goa.design/agentcore/runtime/agent/model"
	"goa.design/agentcore/runtime/agent/telemetry"
)

// wireState mirrors §6.4's persisted format: the same fields as
// agent.AgentState, with Messages carrying blob markers instead of raw
// binary part content.
type wireState struct {
	Id                 agent.RunId
	RootManifestId     agent.Ident
	ManifestId         agent.Ident
	ManifestVersion    string
	ParentStateId      *agent.RunId
	ChildStateIds      []agent.RunId
	Messages           []json.RawMessage
	Steps              []agent.StepResult
	CurrentStepNumber  int
	Suspensions        []agent.ToolApprovalSuspension
	SuspensionStacks   []agent.SuspensionStack
	PendingToolResults []model.ToolResultPart
	Status             agent.RunStatus
	StartedAt          *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ElapsedExecutionMs int64
	SchemaVersion      int
}

// blobThreshold is the content size above which binary part bytes are
// offloaded to Blobs instead of being inlined as base64 in the hot record.
const blobThreshold = 256

// offloadMessages marshals each message via model.Message's own round-trip
// MarshalJSON, then walks the resulting JSON tree looking for inlined "Bytes"
// fields above blobThreshold and replaces them with a {kind:"blob", uri,
// contentType, size} marker uploaded to blobs. Messages below the threshold
// (most text-only traffic) pass through untouched and are not charged a
// round-trip to the blob store.
func offloadMessages(ctx context.Context, msgs []model.Message, blobs Blobs, logger telemetry.Logger) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(msgs))
	for _, m := range msgs {
		raw, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		var tree any
		if err := json.Unmarshal(raw, &tree); err != nil {
			return nil, err
		}
		tree = walkOffload(ctx, tree, blobs, logger)
		b, err := json.Marshal(tree)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func walkOffload(ctx context.Context, node any, blobs Blobs, logger telemetry.Logger) any {
	switch v := node.(type) {
	case map[string]any:
		if bstr, ok := v["Bytes"].(string); ok && len(bstr) > blobThreshold {
			if raw, err := base64.StdEncoding.DecodeString(bstr); err == nil {
				contentType := "application/octet-stream"
				if format, ok := v["Format"].(string); ok {
					contentType = format
				}
				if blobs != nil {
					uri, err := blobs.Put(ctx, contentType, raw)
					if err == nil {
						delete(v, "Bytes")
						v["BlobKind"] = "blob"
						v["BlobURI"] = uri
						v["BlobContentType"] = contentType
						v["BlobSize"] = len(raw)
					} else if logger != nil {
						logger.Warn(ctx, "state: blob offload failed, inlining content", "error", err)
					}
				}
			}
		}
		for k, child := range v {
			v[k] = walkOffload(ctx, child, blobs, logger)
		}
		return v
	case []any:
		for i, child := range v {
			v[i] = walkOffload(ctx, child, blobs, logger)
		}
		return v
	default:
		return node
	}
}

// resignMessages reverses offloadMessages: any {BlobKind:"blob", BlobURI}
// marker is rewritten into a freshly-signed, inlined Bytes payload valid for
// roughly urlExpiry, then the message is decoded through model.Message's own
// UnmarshalJSON so the round-trip produces the original typed Part.
func resignMessages(ctx context.Context, raws []json.RawMessage, blobs Blobs, urlExpiry time.Duration) ([]model.Message, error) {
	out := make([]model.Message, 0, len(raws))
	for _, raw := range raws {
		var tree any
		if err := json.Unmarshal(raw, &tree); err != nil {
			return nil, err
		}
		tree = walkResign(ctx, tree, blobs, urlExpiry)
		b, err := json.Marshal(tree)
		if err != nil {
			return nil, err
		}
		var m model.Message
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func walkResign(ctx context.Context, node any, blobs Blobs, urlExpiry time.Duration) any {
	switch v := node.(type) {
	case map[string]any:
		if kind, ok := v["BlobKind"].(string); ok && kind == "blob" {
			if uri, ok := v["BlobURI"].(string); ok && blobs != nil {
				if signed, err := blobs.SignedURL(ctx, uri, urlExpiry); err == nil {
					// The typed Part representation (e.g. ImagePart) only carries
					// inline Bytes, so the signed URL is re-encoded as the part's
					// content: callers that need to defer the actual download
					// recognize this by checking BlobSignedURL on the decoded part's
					// Meta instead of eagerly fetching bytes here.
					v["Bytes"] = base64.StdEncoding.EncodeToString([]byte(signed))
				}
			}
			delete(v, "BlobKind")
			delete(v, "BlobURI")
			delete(v, "BlobContentType")
			delete(v, "BlobSize")
		}
		for k, child := range v {
			v[k] = walkResign(ctx, child, blobs, urlExpiry)
		}
		return v
	case []any:
		for i, child := range v {
			v[i] = walkResign(ctx, child, blobs, urlExpiry)
		}
		return v
	default:
		return node
	}
}
