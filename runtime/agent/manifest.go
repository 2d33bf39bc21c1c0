package agent

import "time"

// RunId, ToolCallId and ApprovalId are opaque, never-reused, never-mutated
// string identifiers tagged by kind so they cannot be accidentally mixed with
// each other or with a free-form Ident.
type (
	RunId      string
	ToolCallId string
	ApprovalId string
)

// EventKind names one entry of the streaming event taxonomy. The filterable
// subset (text-delta, tool-call, tool-input-start, tool-input-delta,
// tool-result, reasoning-*, step-start, step-finish) is gated by
// AgentManifest.StreamingEvents; lifecycle kinds (agent-*, sub-agent-*) are
// always emitted regardless of the filter.
type EventKind string

const (
	EventTextDelta       EventKind = "text-delta"
	EventToolCall        EventKind = "tool-call"
	EventToolInputStart  EventKind = "tool-input-start"
	EventToolInputDelta  EventKind = "tool-input-delta"
	EventToolResult      EventKind = "tool-result"
	EventReasoning       EventKind = "reasoning"
	EventStepStart       EventKind = "step-start"
	EventStepFinish      EventKind = "step-finish"
	EventAgentStarted    EventKind = "agent-started"
	EventAgentDone       EventKind = "agent-done"
	EventAgentError      EventKind = "agent-error"
	EventAgentSuspended  EventKind = "agent-suspended"
	EventAgentCancelled  EventKind = "agent-cancelled"
	EventAgentCancelling EventKind = "agent-cancelling"
	EventSubAgentStart   EventKind = "sub-agent-start"
	EventSubAgentEnd     EventKind = "sub-agent-end"
)

// Filterable reports whether k is subject to AgentManifest.StreamingEvents
// filtering. Lifecycle events (agent-*, sub-agent-*) return false: they are
// always emitted.
func (k EventKind) Filterable() bool {
	switch k {
	case EventAgentStarted, EventAgentDone, EventAgentError, EventAgentSuspended,
		EventAgentCancelled, EventAgentCancelling, EventSubAgentStart, EventSubAgentEnd:
		return false
	default:
		return true
	}
}

// ToolDefinition describes one tool exposed to an agent's model and to its
// harness. Shape discriminates how the harness dispatches a call for this
// tool; Executor is looked up by Name in AgentManifest.ToolExecutors at
// construction time (never by string lookup on the hot path).
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema []byte // compiled once per manifest; see harness.Harness
	Shape       ToolShape
}

// ToolShape is a sum type over the three tool call conventions the harness
// dispatches on. Shapes over inheritance: the harness switches on Shape
// rather than modeling tools via a class hierarchy.
type ToolShape string

const (
	// ShapePlain tools expose Execute(ctx, input) and know nothing about the
	// run's cancellation signal or message history.
	ShapePlain ToolShape = "plain"
	// ShapeContext tools expose ExecuteWithContext(ctx, toolCall, execCtx) and
	// receive the cancellation signal and message history. Used for
	// non-streaming sub-agent invocation.
	ShapeContext ToolShape = "context"
	// ShapeStreamingContext tools expose ExecuteStreamingWithContext, yielding
	// a lazy sequence of events and a final result when drained. Used for
	// sub-agent invocation while the parent run is itself streaming.
	ShapeStreamingContext ToolShape = "streaming-context"
)

// SubAgentRef declares one sub-agent reachable as a synthesized tool whose
// name equals Name. Invoking that tool triggers a nested run of the
// referenced manifest.
type SubAgentRef struct {
	ManifestId      Ident
	ManifestVersion string
	Name            string
	Description     string
}

// AgentManifest is the immutable, per-run declarative description of one
// agent. A manifest map presented to the runtime must satisfy the graph
// invariants enforced by package graph before any run is accepted.
type AgentManifest struct {
	Id              Ident
	Version         string // semver
	Name            string
	Description     string
	Instructions    string // system prompt
	Provider        string // which LLM to call; resolved by the embedding application
	Tools           []ToolDefinition
	ToolExecutors   map[string]any // tool name -> executor value; shape-dispatched by harness
	SubAgents       []SubAgentRef
	StreamingEvents map[EventKind]struct{} // filter for filterable kinds; nil/empty = emit none
	Timeout         time.Duration          // default 5 minutes of active execution
	OutputSchema    []byte                 // optional; non-nil enables output validation retries
	Hooks           []Hook                 // optional observability hooks; see package hooks
}

// Hook is the minimal contract AgentManifest.Hooks elements satisfy; concrete
// hooks live in package hooks and are registered on a Bus at service
// construction time.
type Hook interface {
	Name() string
}

// EmitsEvent reports whether kind should be emitted for this manifest: always
// true for lifecycle kinds, gated by StreamingEvents otherwise.
func (m *AgentManifest) EmitsEvent(kind EventKind) bool {
	if !kind.Filterable() {
		return true
	}
	_, ok := m.StreamingEvents[kind]
	return ok
}

// EffectiveTimeout returns Timeout or the documented default of 5 minutes
// when unset.
func (m *AgentManifest) EffectiveTimeout() time.Duration {
	if m.Timeout <= 0 {
		return 5 * time.Minute
	}
	return m.Timeout
}
