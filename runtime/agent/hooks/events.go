// Package hooks implements the observability side channel AgentManifest.Hooks
// declares: a fan-out Bus (kept from the teacher's bus.go, unchanged in
// shape) publishing one Event per emitted agent.EventKind, carried as a
// concrete struct rather than a type-switched interface zoo, so a new hook
// never needs a codec update to see a new kind.
package hooks

import (
	"time"

	"goa.design/agentcore/runtime/agent"
)

// Event is the single wire shape published on the Bus for every emitted
// agent.EventKind. Payload holds one of the *Payload types below, selected by
// Kind; hooks that only care about a handful of kinds type-switch on Payload.
type Event struct {
	Kind             agent.EventKind
	RunID            agent.RunId
	ManifestID       agent.Ident
	ParentManifestID agent.Ident // zero value at the root run
	SessionID        string
	Timestamp        time.Time
	Sequence         uint64
	Payload          any
}

// NewEvent constructs an Event with the current timestamp. seq is supplied
// by the caller (the streampipe.Pipeline sequence counter for the run) so
// hook-observed ordering matches stream-observed ordering.
func NewEvent(kind agent.EventKind, runID agent.RunId, manifestID, parentManifestID agent.Ident, sessionID string, seq uint64, payload any) Event {
	return Event{
		Kind: kind, RunID: runID, ManifestID: manifestID, ParentManifestID: parentManifestID,
		SessionID: sessionID, Timestamp: time.Now(), Sequence: seq, Payload: payload,
	}
}

type (
	// TextDeltaPayload carries one incremental fragment of assistant text.
	TextDeltaPayload struct {
		Text string
	}

	// ToolCallPayload fires when a tool call is fully decoded and about to be
	// dispatched.
	ToolCallPayload struct {
		ToolCallID agent.ToolCallId
		ToolName   string
		Payload    []byte // canonical JSON arguments
	}

	// ToolInputStartPayload fires when the model begins streaming a tool
	// call's arguments.
	ToolInputStartPayload struct {
		ToolCallID agent.ToolCallId
		ToolName   string
	}

	// ToolInputDeltaPayload carries one incremental fragment of a tool call's
	// streamed arguments.
	ToolInputDeltaPayload struct {
		ToolCallID agent.ToolCallId
		Delta      string
	}

	// ToolResultPayload fires when a dispatched tool call completes.
	ToolResultPayload struct {
		ToolCallID agent.ToolCallId
		ToolName   string
		Result     any
		Duration   time.Duration
		Err        error
	}

	// ReasoningPayload carries one fragment of model "thinking" output.
	ReasoningPayload struct {
		Text      string
		Signature string
		Redacted  []byte
	}

	// StepStartPayload fires at the beginning of one agent-loop step.
	StepStartPayload struct {
		StepNumber int
	}

	// StepFinishPayload fires after one agent-loop step completes, carrying
	// the same summary the loop accumulates in agent.StepResult.
	StepFinishPayload struct {
		StepNumber   int
		ToolCalls    int
		FinishReason string
	}

	// AgentStartedPayload fires once per run, when the loop begins driving it.
	AgentStartedPayload struct{}

	// AgentDonePayload fires when a run reaches OutcomeCompleted.
	AgentDonePayload struct {
		Text string
	}

	// AgentErrorPayload fires when a run reaches OutcomeFailed or
	// OutcomeTimedOut. PublicError is a deterministic, UI-safe summary; see
	// the PublicError* variables in public_errors.go.
	AgentErrorPayload struct {
		Err         error
		PublicError string
		TimedOut    bool
	}

	// AgentSuspendedPayload fires when a run suspends on a tool approval.
	AgentSuspendedPayload struct {
		ApprovalID agent.ApprovalId
		ToolName   string
	}

	// AgentCancellingPayload fires when a cancellation request is observed
	// but the run has not yet unwound.
	AgentCancellingPayload struct{}

	// AgentCancelledPayload fires once the run has unwound after
	// cancellation.
	AgentCancelledPayload struct{}

	// SubAgentStartPayload fires when a nested agent-as-tool run begins.
	SubAgentStartPayload struct {
		ToolCallID   agent.ToolCallId
		ChildRunID   agent.RunId
		ChildManifest agent.Ident
	}

	// SubAgentEndPayload fires when a nested agent-as-tool run finishes,
	// successfully or not.
	SubAgentEndPayload struct {
		ToolCallID agent.ToolCallId
		ChildRunID agent.RunId
		Err        error
	}
)
