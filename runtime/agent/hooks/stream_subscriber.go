package hooks

import (
	"context"
	"errors"

	"goa.design/agentcore/runtime/agent/streampipe"
)

// StreamSubscriber is a Subscriber that forwards every Event it receives to a
// streampipe.Sink, letting one of a manifest's declared Hooks double as the
// bridge between the observability Bus and the client-facing streaming
// pipeline instead of requiring two independent wiring points.
type StreamSubscriber struct {
	sink streampipe.Sink
}

// NewStreamSubscriber constructs a subscriber forwarding to sink. Returns an
// error if sink is nil.
func NewStreamSubscriber(sink streampipe.Sink) (Subscriber, error) {
	if sink == nil {
		return nil, errors.New("stream sink is required")
	}
	return &StreamSubscriber{sink: sink}, nil
}

// HandleEvent implements Subscriber by forwarding event to the sink
// unconditionally. The Pipeline that publishes to the Bus has already
// applied AgentManifest.EmitsEvent filtering, so no further filtering
// happens here.
func (s *StreamSubscriber) HandleEvent(ctx context.Context, event Event) error {
	return s.sink.Send(ctx, event)
}
