// Package streampipe implements the Streaming Pipeline component (spec
// §4.7): a bounded-buffer fan-out of per-run agent events to one or more
// Sinks, tagging every event with the manifest that produced it so a
// multi-level sub-agent nesting can be flattened into one ordered stream
// without losing provenance. Grounded on the Sink/Event split in the
// teacher's stream package, narrowed to the manifestId/parentManifestId
// tagging and filterable-event gating named in the expanded specification.
package streampipe

import (
	"context"
	"sync"
	"time"

	"goa.design/agentcore/runtime/agent"
	"goa.design/agentcore/runtime/agent/telemetry"
)

// AgentEvent is one item on the stream: a filterable or lifecycle event
// produced by a specific manifest, optionally nested under a parent.
type AgentEvent struct {
	Kind             agent.EventKind
	RunId            agent.RunId
	ManifestId       agent.Ident
	ParentManifestId agent.Ident // zero value at the root
	Timestamp        time.Time
	Sequence         uint64
	Payload          any
}

// FinalEvent marks the terminal item of a stream: after it is sent, the
// pipeline closes the sink for that run. Result is nil when the run ended
// in cancellation or failure; callers inspect Outcome/Err for those cases.
type FinalEvent struct {
	AgentEvent
	Outcome string
	Result  any
	Err     error
}

// Sink delivers events to one subscriber (SSE, WebSocket, an in-process
// test collector). Implementations must be safe for concurrent Send calls.
type Sink interface {
	Send(ctx context.Context, event any) error
	Close(ctx context.Context) error
}

// Pipeline fans events for one run out to its subscribed sinks, applying
// AgentManifest.EmitsEvent filtering and a bounded buffer per sink so a slow
// client cannot block step execution indefinitely.
type Pipeline struct {
	mu       sync.Mutex
	runId    agent.RunId
	manifest *agent.AgentManifest
	seq      uint64
	sinks    map[Sink]chan any
	bufSize  int
	logger   telemetry.Logger
	wg       sync.WaitGroup
	closed   bool
}

// New constructs a Pipeline for one run. bufSize bounds the per-sink
// channel; when a sink's buffer is full, the oldest-unsent event is
// dropped rather than blocking the Agent Loop, the backpressure policy
// named in §4.7.
func New(runId agent.RunId, manifest *agent.AgentManifest, bufSize int, logger telemetry.Logger) *Pipeline {
	if bufSize <= 0 {
		bufSize = 256
	}
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Pipeline{runId: runId, manifest: manifest, sinks: make(map[Sink]chan any), bufSize: bufSize, logger: logger}
}

// Subscribe attaches sink to the pipeline and starts its delivery
// goroutine. Call Unsubscribe or let Close tear it down.
func (p *Pipeline) Subscribe(ctx context.Context, sink Sink) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	ch := make(chan any, p.bufSize)
	p.sinks[sink] = ch
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for ev := range ch {
			if err := sink.Send(ctx, ev); err != nil {
				p.logger.Warn(ctx, "stream sink send failed", "run_id", p.runId, "error", err)
				return
			}
		}
	}()
}

// Unsubscribe detaches sink and closes its delivery channel.
func (p *Pipeline) Unsubscribe(sink Sink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ch, ok := p.sinks[sink]; ok {
		close(ch)
		delete(p.sinks, sink)
	}
}

// Emit publishes kind for manifestId/parentManifestId, subject to the
// manifest's StreamingEvents filter. Lifecycle kinds bypass the filter per
// EventKind.Filterable. Emit blocks until every subscribed sink's buffer has
// room or ctx is done: events are never dropped, so a slow consumer applies
// backpressure to the loop rather than silently losing data.
func (p *Pipeline) Emit(ctx context.Context, kind agent.EventKind, manifestId, parentManifestId agent.Ident, payload any) {
	if !p.manifest.EmitsEvent(kind) {
		return
	}
	p.mu.Lock()
	p.seq++
	ev := AgentEvent{
		Kind: kind, RunId: p.runId, ManifestId: manifestId, ParentManifestId: parentManifestId,
		Timestamp: time.Now(), Sequence: p.seq, Payload: payload,
	}
	chans := make([]chan any, 0, len(p.sinks))
	for _, ch := range p.sinks {
		chans = append(chans, ch)
	}
	p.mu.Unlock()

	for _, ch := range chans {
		select {
		case ch <- ev:
		case <-ctx.Done():
		}
	}
}

// Final publishes the terminal event and closes every subscribed sink.
func (p *Pipeline) Final(ctx context.Context, outcome string, result any, err error) {
	p.mu.Lock()
	p.seq++
	fin := FinalEvent{
		AgentEvent: AgentEvent{Kind: "final", RunId: p.runId, Timestamp: time.Now(), Sequence: p.seq},
		Outcome:    outcome, Result: result, Err: err,
	}
	chans := make(map[Sink]chan any, len(p.sinks))
	for s, ch := range p.sinks {
		chans[s] = ch
	}
	p.closed = true
	p.mu.Unlock()

	for s, ch := range chans {
		select {
		case ch <- fin:
		case <-ctx.Done():
		}
		close(ch)
		_ = s.Close(ctx)
	}
	p.wg.Wait()
}
