package agent

import (
	"time"

	"goa.design/agentcore/runtime/agent/model"
)

// RunStatus is the lifecycle status of a persisted AgentState (§3).
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusSuspended RunStatus = "suspended"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusCancelled RunStatus = "cancelled"
)

// StepResult is one append-only request/response pair produced by the Agent
// Loop (§3 StepResult, §4.6).
type StepResult struct {
	StepNumber   int
	Request      *model.Request
	Text         string
	ToolCalls    []model.ToolCall
	Usage        model.TokenUsage
	FinishReason string
}

// ToolApprovalSuspension is a pending approval for one sensitive tool call
// owned by the agent holding it. ApprovalId is unique within the run that
// directly owns it (see SuspensionStack for nested ownership).
type ToolApprovalSuspension struct {
	ApprovalId  ApprovalId
	ToolCallId  ToolCallId
	ToolName    string
	ToolArgs    []byte // canonical JSON
	Description string
}

// SuspensionStackEntry is one hop in a SuspensionStack's path from the root
// run down to the descendant agent that actually needs approval. Every
// non-leaf entry names the tool call that invoked the next child; the leaf
// entry (last in Agents) leaves PendingToolCallId empty.
type SuspensionStackEntry struct {
	ManifestId        Ident
	RunId             RunId
	PendingToolCallId ToolCallId // empty at the leaf
}

// SuspensionStack describes the path from the root run to the descendant
// agent currently holding a suspension. Agents is non-empty; Agents[0] names
// the root manifest. Depth (len(Agents)) of 1 means the root itself holds the
// approval.
type SuspensionStack struct {
	Agents         []SuspensionStackEntry
	LeafSuspension ToolApprovalSuspension
}

// Depth returns the stack's length: 1 for root-held approvals, >1 for nested.
func (s *SuspensionStack) Depth() int { return len(s.Agents) }

// RootManifestId returns Agents[0].ManifestId. Callers must only call this on
// a non-empty stack; the runtime never constructs an empty one.
func (s *SuspensionStack) RootManifestId() Ident { return s.Agents[0].ManifestId }

// AgentRunState is the in-memory, per-active-run working set the Agent Loop
// mutates step by step before it is folded back into the persisted
// AgentState at a terminal or suspended boundary.
type AgentRunState struct {
	StartTime               time.Time
	TimeoutMs               int64
	Tools                   []ToolDefinition
	ToolsMap                map[string]ToolDefinition
	Messages                []model.Message
	Steps                   []StepResult
	StepNumber              int
	OutputValidationRetries int
}

// AgentState is the durable, persisted representation of one run (§3). It is
// mutated only by the holder of RunLock(Id); readers without the lock must
// treat it as possibly stale.
type AgentState struct {
	Id                 RunId
	SessionId          string // durable session this run belongs to; see session.Store
	RootManifestId     Ident
	ManifestId         Ident
	ManifestVersion    string
	ParentStateId      *RunId
	ChildStateIds      []RunId
	Messages           []model.Message
	Steps              []StepResult
	CurrentStepNumber  int
	Suspensions        []ToolApprovalSuspension
	SuspensionStacks   []SuspensionStack
	PendingToolResults []model.ToolResultPart
	Status             RunStatus
	StartedAt          *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ElapsedExecutionMs int64
	SchemaVersion      int
}

// CurrentSchemaVersion is written onto every freshly constructed AgentState
// and checked by the State Store on read (§4.1).
const CurrentSchemaVersion = 1

// HasPendingSuspensions reports whether the state has any direct or
// delegated pending approval, the condition invariant 2 requires for
// status == suspended.
func (s *AgentState) HasPendingSuspensions() bool {
	return len(s.Suspensions) > 0 || len(s.SuspensionStacks) > 0
}

// Validate checks the invariants in §3 that are cheap to check locally
// (1, 2, 3, 4). Invariant 5 (lock/heartbeat staleness) and 6 (manifest graph
// acyclicity) are enforced by the lock and graph packages respectively.
func (s *AgentState) Validate() error {
	if s.Status == StatusCompleted && (len(s.Suspensions) != 0 || len(s.SuspensionStacks) != 0 || len(s.PendingToolResults) != 0) {
		return errInvariant("completed state must have no pending suspensions or tool results")
	}
	if s.Status == StatusSuspended && !s.HasPendingSuspensions() {
		return errInvariant("suspended state must have at least one pending suspension")
	}
	seen := make(map[ApprovalId]struct{}, len(s.Suspensions)+len(s.SuspensionStacks))
	for _, sus := range s.Suspensions {
		if _, dup := seen[sus.ApprovalId]; dup {
			return errInvariant("duplicate approvalId " + string(sus.ApprovalId))
		}
		seen[sus.ApprovalId] = struct{}{}
	}
	for _, stack := range s.SuspensionStacks {
		if len(stack.Agents) == 0 {
			return errInvariant("suspension stack must have at least one agent entry")
		}
		if stack.Agents[0].ManifestId != s.RootManifestId {
			return errInvariant("suspension stack must be rooted at the run's root manifest")
		}
		if _, dup := seen[stack.LeafSuspension.ApprovalId]; dup {
			return errInvariant("duplicate approvalId " + string(stack.LeafSuspension.ApprovalId))
		}
		seen[stack.LeafSuspension.ApprovalId] = struct{}{}
	}
	return nil
}

type invariantError string

func (e invariantError) Error() string { return string(e) }

func errInvariant(msg string) error { return invariantError(msg) }
