// Package dispatch implements the Parallel Tool Dispatcher component (spec
// §4.5): it fans a step's tool calls out to the harness concurrently and
// fans the results back in, deterministically ordered by original call
// position the way toolCallBatch in the runtime package merges activity and
// child-workflow results back into call order.
package dispatch

import (
	"context"
	"sync"

	"goa.design/agentcore/runtime/agent"
	"goa.design/agentcore/runtime/agent/errkind"
	"goa.design/agentcore/runtime/agent/harness"
	"goa.design/agentcore/runtime/agent/model"
	"goa.design/agentcore/runtime/agent/telemetry"
)

// Invoker is the subset of harness.Harness the dispatcher depends on,
// narrowed so tests can supply a stub instead of a full Harness.
type Invoker interface {
	Execute(ctx context.Context, def agent.ToolDefinition, executor any, call model.ToolCall, execCtx harness.ExecContext) (*harness.Result, error)
}

// Outcome classifies one call's result after a batch completes, the three
// cases §4.5 names: the tool name wasn't found in the manifest, the call
// ran to completion (success or error), or it suspended on approval.
type Outcome string

const (
	OutcomeUnknownTool Outcome = "unknown_tool"
	OutcomeCompleted   Outcome = "completed"
	OutcomeSuspended   Outcome = "suspended"
)

// CallResult pairs one ToolCall with its harness.Result and classification,
// preserving the original batch index so callers can restore call order.
type CallResult struct {
	Index   int
	Call    model.ToolCall
	Outcome Outcome
	Result  *harness.Result
}

// BatchResult is the dispatcher's aggregate output for one step. Per §4.5's
// aggregation rule, any suspended call makes the whole batch Suspended: the
// step cannot complete until that approval resolves, even if sibling calls
// already finished.
type BatchResult struct {
	Results   []CallResult // ordered by original call index
	Suspended bool
}

// ToolResultParts projects Results into the model.ToolResultPart slice the
// Agent Loop appends to the transcript, in call order. Suspended calls are
// omitted: they have no result yet and are carried in
// AgentState.PendingToolResults / Suspensions instead.
func (b *BatchResult) ToolResultParts() []model.ToolResultPart {
	parts := make([]model.ToolResultPart, 0, len(b.Results))
	for _, r := range b.Results {
		if r.Outcome == OutcomeSuspended {
			continue
		}
		if r.Result == nil {
			continue
		}
		switch r.Result.Outcome {
		case harness.OutcomeSuccess:
			parts = append(parts, model.ToolResultPart{ToolUseID: r.Call.ID, Content: r.Result.Output})
		case harness.OutcomeError:
			parts = append(parts, model.ToolResultPart{ToolUseID: r.Call.ID, Content: r.Result.ErrMessage, IsError: true})
		}
	}
	return parts
}

// Dispatcher fans a step's tool calls out to Invoker concurrently.
type Dispatcher struct {
	invoke Invoker
	logger telemetry.Logger
}

// Option configures a Dispatcher at construction time.
type Option func(*Dispatcher)

// WithLogger overrides the dispatcher logger. Nil falls back to a no-op.
func WithLogger(l telemetry.Logger) Option { return func(d *Dispatcher) { d.logger = l } }

// New constructs a Dispatcher over invoke.
func New(invoke Invoker, opts ...Option) *Dispatcher {
	d := &Dispatcher{invoke: invoke, logger: telemetry.NewNoopLogger()}
	for _, o := range opts {
		if o != nil {
			o(d)
		}
	}
	return d
}

// Dispatch runs calls concurrently against the manifest's tool definitions
// and executors, returning results restored to calls' original order.
// Unknown tool names never reach Invoker: they're classified immediately so
// a bad tool name can't silently pick up a default executor.
func (d *Dispatcher) Dispatch(ctx context.Context, manifest *agent.AgentManifest, calls []model.ToolCall, execCtx harness.ExecContext) (*BatchResult, error) {
	defs := make(map[string]agent.ToolDefinition, len(manifest.Tools))
	for _, def := range manifest.Tools {
		defs[def.Name] = def
	}

	out := make([]CallResult, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		i, call := i, call
		def, ok := defs[string(call.Name)]
		if !ok {
			out[i] = CallResult{
				Index: i, Call: call, Outcome: OutcomeUnknownTool,
				Result: &harness.Result{Outcome: harness.OutcomeError, ErrMessage: "unknown tool: " + string(call.Name), ErrCode: string(errkind.BadRequest)},
			}
			continue
		}
		executor := manifest.ToolExecutors[def.Name]
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := d.invoke.Execute(ctx, def, executor, call, execCtx)
			if err != nil {
				res = &harness.Result{Outcome: harness.OutcomeError, ErrMessage: err.Error(), ErrCode: string(errkind.KindOf(err))}
			}
			outcome := OutcomeCompleted
			if res != nil && res.Outcome == harness.OutcomeSuspended {
				outcome = OutcomeSuspended
			}
			out[i] = CallResult{Index: i, Call: call, Outcome: outcome, Result: res}
		}()
	}
	wg.Wait()

	batch := &BatchResult{Results: out}
	for _, r := range out {
		if r.Outcome == OutcomeSuspended {
			batch.Suspended = true
			break
		}
	}
	return batch, nil
}
