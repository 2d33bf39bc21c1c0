// Package suspend implements the Suspension & Resume Engine (spec §4.8):
// matching an approval response against a run's direct suspensions or the
// leaves of its suspension stacks, resuming the right agent, and bubbling
// completion back up through parent runs whose other parallel tool calls
// may still be pending.
package suspend

import (
	"context"

	"goa.design/agentcore/runtime/agent"
	"goa.design/agentcore/runtime/agent/errkind"
	"goa.design/agentcore/runtime/agent/model"
)

// ApprovalResponse is the caller-supplied resolution of one pending
// suspension.
type ApprovalResponse struct {
	ApprovalId agent.ApprovalId
	Approved   bool
	Reason     string
}

// ChildOutcome is what resuming a delegated (nested) suspension produced,
// the three cases §4.8 names for the "on the way back up" step.
type ChildOutcome string

const (
	ChildComplete       ChildOutcome = "complete"
	ChildFailed         ChildOutcome = "failed"
	ChildSuspendedAgain ChildOutcome = "suspended_again"
)

// ChildResumeResult is what a ResumeChild implementation reports after
// driving one nested run to its next terminal or suspended boundary.
type ChildResumeResult struct {
	Outcome             ChildOutcome
	Result              any // AgentRunResult-shaped value, used when Outcome != ChildSuspendedAgain
	NewRunId            agent.RunId
	NewSuspensions      []agent.ToolApprovalSuspension
	NewSuspensionStacks []agent.SuspensionStack
}

// ChildResumer resumes the child run at the leaf of a delegated suspension
// stack with the given approval. Implementations live in the service layer,
// which owns loading child state and re-entering the Agent Loop.
type ChildResumer interface {
	ResumeChild(ctx context.Context, childRunId agent.RunId, resp ApprovalResponse) (*ChildResumeResult, error)
}

// MatchKind classifies where an approvalId was found.
type MatchKind string

const (
	MatchDirect   MatchKind = "direct"
	MatchDelegate MatchKind = "delegate"
	MatchNone     MatchKind = "none"
)

// Match locates resp.ApprovalId in state, implementing §4.8 step 1's lookup
// against state.suspensions (direct) and the leaves of state.suspensionStacks
// (delegate).
func Match(state *agent.AgentState, approvalId agent.ApprovalId) (MatchKind, int) {
	for i, s := range state.Suspensions {
		if s.ApprovalId == approvalId {
			return MatchDirect, i
		}
	}
	for i, stack := range state.SuspensionStacks {
		if stack.LeafSuspension.ApprovalId == approvalId {
			return MatchDelegate, i
		}
	}
	return MatchNone, -1
}

// ResolveDirect implements §4.8 step 2: removes the matched suspension and
// appends an approval-response tool result. It does not resume the loop;
// callers re-enter the Agent Loop afterward if no suspensions remain.
func ResolveDirect(state *agent.AgentState, index int, resp ApprovalResponse) error {
	if index < 0 || index >= len(state.Suspensions) {
		return errkind.New(errkind.BadRequest, "suspension index %d out of range", index)
	}
	sus := state.Suspensions[index]
	if sus.ApprovalId != resp.ApprovalId {
		return errkind.New(errkind.BadRequest, "approvalId mismatch")
	}
	content := approvalContent(resp)
	state.PendingToolResults = append(state.PendingToolResults, model.ToolResultPart{
		ToolUseID: string(sus.ToolCallId),
		Content:   content,
		IsError:   !resp.Approved,
	})
	state.Suspensions = append(state.Suspensions[:index], state.Suspensions[index+1:]...)
	return nil
}

func approvalContent(resp ApprovalResponse) map[string]any {
	out := map[string]any{"approved": resp.Approved}
	if resp.Reason != "" {
		out["reason"] = resp.Reason
	}
	return out
}

// ResolveDelegate implements §4.8 step 3: drives the matched stack's leaf
// child to resolution via resumer, then folds the result back into state
// per the "on the way back up" rules (complete/failed vs suspended-again).
func ResolveDelegate(ctx context.Context, state *agent.AgentState, index int, resp ApprovalResponse, resumer ChildResumer) error {
	if index < 0 || index >= len(state.SuspensionStacks) {
		return errkind.New(errkind.BadRequest, "suspension stack index %d out of range", index)
	}
	stack := state.SuspensionStacks[index]
	leaf := stack.Agents[len(stack.Agents)-1]

	res, err := resumer.ResumeChild(ctx, leaf.RunId, resp)
	if err != nil {
		return errkind.Wrap(errkind.InternalServer, err, "resume delegated suspension")
	}

	state.SuspensionStacks = append(state.SuspensionStacks[:index], state.SuspensionStacks[index+1:]...)

	switch res.Outcome {
	case ChildComplete, ChildFailed:
		// Tool name (sub_agent_<childManifestId>) is resolved by the loop when it
		// assembles the final tool message; only the correlating ToolUseID matters here.
		state.PendingToolResults = append(state.PendingToolResults, model.ToolResultPart{
			ToolUseID: string(parentToolCallId(stack)),
			Content:   res.Result,
			IsError:   res.Outcome == ChildFailed,
		})
	case ChildSuspendedAgain:
		rerooted := rerootStacks(stack.Agents[:len(stack.Agents)-1], leaf, res)
		state.SuspensionStacks = append(state.SuspensionStacks, rerooted...)
	default:
		return errkind.New(errkind.InternalServer, "unknown child resume outcome %q", res.Outcome)
	}
	return nil
}

// parentEntry returns the stack entry that invoked the leaf, the hop whose
// PendingToolCallId names the parent's pending tool call.
func parentEntry(stack agent.SuspensionStack) agent.SuspensionStackEntry {
	if len(stack.Agents) < 2 {
		return stack.Agents[0]
	}
	return stack.Agents[len(stack.Agents)-2]
}

func parentToolCallId(stack agent.SuspensionStack) agent.ToolCallId {
	return parentEntry(stack).PendingToolCallId
}

// rerootStacks implements the re-rooting rule: the child's new suspension
// stacks/direct suspensions are prefixed with parentPath so every stack
// stays rooted at the user-facing RunId.
func rerootStacks(parentPath []agent.SuspensionStackEntry, leaf agent.SuspensionStackEntry, res *ChildResumeResult) []agent.SuspensionStack {
	out := make([]agent.SuspensionStack, 0, len(res.NewSuspensionStacks)+len(res.NewSuspensions))
	newLeaf := agent.SuspensionStackEntry{ManifestId: leaf.ManifestId, RunId: res.NewRunId}

	for _, direct := range res.NewSuspensions {
		out = append(out, agent.SuspensionStack{
			Agents:         append(append([]agent.SuspensionStackEntry{}, parentPath...), newLeaf),
			LeafSuspension: direct,
		})
	}
	for _, childStack := range res.NewSuspensionStacks {
		agents := append(append([]agent.SuspensionStackEntry{}, parentPath...), childStack.Agents...)
		out = append(out, agent.SuspensionStack{Agents: agents, LeafSuspension: childStack.LeafSuspension})
	}
	return out
}

// ReadyToAssemble reports whether every tool call in the original batch has
// now produced a result (no Suspensions and no SuspensionStacks remain),
// the condition under which the loop should synthesize the tool message and
// continue per the "completion bubbling" rule.
func ReadyToAssemble(state *agent.AgentState) bool {
	return !state.HasPendingSuspensions()
}
