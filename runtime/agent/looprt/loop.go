// Package looprt implements the Agent Loop component (spec §4.6): the
// per-step state machine that drives one run from its current message
// transcript to a terminal or suspended outcome, the same shape as
// workflowLoop.run's for/select over deadlines, tool turns, and
// finalization, minus the durable-workflow replay machinery.
package looprt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"goa.design/agentcore/runtime/agent"
	"goa.design/agentcore/runtime/agent/agentconfig"
	"goa.design/agentcore/runtime/agent/cancelch"
	"goa.design/agentcore/runtime/agent/dispatch"
	"goa.design/agentcore/runtime/agent/errkind"
	"goa.design/agentcore/runtime/agent/harness"
	"goa.design/agentcore/runtime/agent/hooks"
	"goa.design/agentcore/runtime/agent/model"
	"goa.design/agentcore/runtime/agent/streampipe"
	"goa.design/agentcore/runtime/agent/telemetry"
)

// Outcome is the terminal classification of one Loop.Run call.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeSuspended Outcome = "suspended"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeTimedOut  Outcome = "timed_out"
	OutcomeFailed    Outcome = "failed"
)

// StepObserver receives step-boundary notifications for streaming and
// metrics. All methods are optional no-ops when a field is left nil by
// embedding NoopObserver.
type StepObserver interface {
	OnStepStart(ctx context.Context, stepNumber int)
	OnStepFinish(ctx context.Context, result agent.StepResult)
}

// NoopObserver implements StepObserver with no-op methods.
type NoopObserver struct{}

func (NoopObserver) OnStepStart(context.Context, int)               {}
func (NoopObserver) OnStepFinish(context.Context, agent.StepResult) {}

// Dispatcher is the subset of dispatch.Dispatcher the loop depends on.
type Dispatcher interface {
	Dispatch(ctx context.Context, manifest *agent.AgentManifest, calls []model.ToolCall, execCtx harness.ExecContext) (*dispatch.BatchResult, error)
}

// Loop runs the per-step state machine for one agent run.
type Loop struct {
	client     model.Client
	dispatcher Dispatcher
	poller     *cancelch.Poller
	cfg        agentconfig.Config
	observer   StepObserver
	logger     telemetry.Logger
	pipeline   *streampipe.Pipeline // optional; client-facing, EmitsEvent-filtered stream
	hookBus    hooks.Bus            // optional; unfiltered observability fan-out
	hookSeq    uint64
}

// Option configures a Loop at construction time.
type Option func(*Loop)

// WithObserver sets the step observer used for streaming/metrics hooks.
func WithObserver(o StepObserver) Option { return func(l *Loop) { l.observer = o } }

// WithLogger overrides the loop logger. Nil falls back to a no-op.
func WithLogger(log telemetry.Logger) Option { return func(l *Loop) { l.logger = log } }

// WithPipeline attaches the Streaming Pipeline for this run. When set, the
// loop emits step-start/step-finish/tool-result/agent-* events to it,
// subject to AgentManifest.EmitsEvent filtering.
func WithPipeline(p *streampipe.Pipeline) Option { return func(l *Loop) { l.pipeline = p } }

// WithHookBus attaches the observability Bus driven by AgentManifest.Hooks.
// Unlike the pipeline, every event is published regardless of the
// manifest's StreamingEvents filter: hooks are for audit/persistence, not
// client display.
func WithHookBus(b hooks.Bus) Option { return func(l *Loop) { l.hookBus = b } }

// New constructs a Loop.
func New(client model.Client, dispatcher Dispatcher, poller *cancelch.Poller, cfg agentconfig.Config, opts ...Option) *Loop {
	l := &Loop{
		client:     client,
		dispatcher: dispatcher,
		poller:     poller,
		cfg:        cfg,
		observer:   NoopObserver{},
		logger:     telemetry.NewNoopLogger(),
	}
	for _, o := range opts {
		if o != nil {
			o(l)
		}
	}
	return l
}

// emit forwards kind/payload to the pipeline (filtered) and the hook bus
// (unfiltered), whichever are configured. Hook publish errors are logged and
// swallowed: a broken audit subscriber must never abort a run.
func (l *Loop) emit(ctx context.Context, runId agent.RunId, manifest *agent.AgentManifest, kind agent.EventKind, payload any) {
	if l.pipeline != nil {
		l.pipeline.Emit(ctx, kind, manifest.Id, "", payload)
	}
	if l.hookBus != nil {
		l.hookSeq++
		evt := hooks.NewEvent(kind, runId, manifest.Id, "", "", l.hookSeq, payload)
		if err := l.hookBus.Publish(ctx, evt); err != nil {
			l.logger.Warn(ctx, "hook publish failed", "run_id", runId, "kind", kind, "error", err)
		}
	}
}

// Run drives run forward from its current state until it completes,
// suspends, is cancelled, times out, or fails. It mutates run in place and
// returns the terminal classification.
func (l *Loop) Run(ctx context.Context, runId agent.RunId, manifest *agent.AgentManifest, run *agent.AgentRunState) (Outcome, *dispatch.BatchResult, error) {
	var outputSchema *jsonschema.Schema
	if len(manifest.OutputSchema) > 0 {
		schema, err := compileSchema(manifest.OutputSchema)
		if err != nil {
			return OutcomeFailed, nil, errkind.Wrap(errkind.Validation, err, "compile output schema for manifest %s", manifest.Id)
		}
		outputSchema = schema
	}

	if run.StepNumber == 0 {
		l.emit(ctx, runId, manifest, agent.EventAgentStarted, hooks.AgentStartedPayload{})
	}

	for {
		if sig, err := l.poller.ShouldStop(ctx, runId, false); err != nil {
			l.emit(ctx, runId, manifest, agent.EventAgentError, hooks.AgentErrorPayload{Err: err})
			return OutcomeFailed, nil, err
		} else if sig != nil {
			l.emit(ctx, runId, manifest, agent.EventAgentCancelled, hooks.AgentCancelledPayload{})
			return OutcomeCancelled, nil, nil
		}

		elapsed := time.Since(run.StartTime)
		if elapsed > manifest.EffectiveTimeout() {
			l.emit(ctx, runId, manifest, agent.EventAgentError, hooks.AgentErrorPayload{TimedOut: true})
			return OutcomeTimedOut, nil, nil
		}

		l.observer.OnStepStart(ctx, run.StepNumber)
		l.emit(ctx, runId, manifest, agent.EventStepStart, hooks.StepStartPayload{StepNumber: run.StepNumber})

		req := &model.Request{
			RunID:    string(runId),
			Messages: toPointerSlice(run.Messages),
			Tools:    toolsAsModelDefs(run.Tools),
			Stream:   false,
		}
		resp, err := l.client.Complete(ctx, req)
		if err != nil {
			wrapped := errkind.Wrap(errkind.InternalServer, err, "model completion failed")
			l.emit(ctx, runId, manifest, agent.EventAgentError, hooks.AgentErrorPayload{Err: wrapped})
			return OutcomeFailed, nil, wrapped
		}

		step := agent.StepResult{
			StepNumber:   run.StepNumber,
			Request:      req,
			ToolCalls:    resp.ToolCalls,
			Usage:        resp.Usage,
			FinishReason: resp.StopReason,
		}
		for _, msg := range resp.Content {
			run.Messages = append(run.Messages, msg)
			for _, part := range msg.Parts {
				if tp, ok := part.(model.TextPart); ok {
					step.Text += tp.Text
				}
			}
		}
		run.Steps = append(run.Steps, step)
		run.StepNumber++
		l.observer.OnStepFinish(ctx, step)
		l.emit(ctx, runId, manifest, agent.EventStepFinish, hooks.StepFinishPayload{
			StepNumber: step.StepNumber, ToolCalls: len(step.ToolCalls), FinishReason: step.FinishReason,
		})
		if step.Text != "" {
			l.emit(ctx, runId, manifest, agent.EventTextDelta, hooks.TextDeltaPayload{Text: step.Text})
		}

		if len(resp.ToolCalls) == 0 {
			if outputSchema != nil {
				if err := validateOutput(outputSchema, step.Text); err != nil {
					run.OutputValidationRetries++
					if run.OutputValidationRetries > l.cfg.OutputValidationMaxRetries {
						wrapped := errkind.Wrap(errkind.Validation, err, "output schema validation exhausted retries")
						l.emit(ctx, runId, manifest, agent.EventAgentError, hooks.AgentErrorPayload{Err: wrapped})
						return OutcomeFailed, nil, wrapped
					}
					run.Messages = append(run.Messages, retryMessage(err))
					continue
				}
			}
			l.emit(ctx, runId, manifest, agent.EventAgentDone, hooks.AgentDonePayload{Text: step.Text})
			return OutcomeCompleted, nil, nil
		}

		execCtx := harness.ExecContext{
			RunId:     runId,
			Messages:  run.Messages,
			Cancelled: func() bool { sig, _, _ := l.poller.ShouldStop(ctx, runId, true); return sig != nil },
		}
		batch, err := l.dispatcher.Dispatch(ctx, manifest, resp.ToolCalls, execCtx)
		if err != nil {
			l.emit(ctx, runId, manifest, agent.EventAgentError, hooks.AgentErrorPayload{Err: err})
			return OutcomeFailed, nil, err
		}
		for _, r := range batch.Results {
			if r.Outcome == dispatch.OutcomeSuspended || r.Result == nil {
				continue
			}
			payload := hooks.ToolResultPayload{ToolCallID: agent.ToolCallId(r.Call.ID), ToolName: string(r.Call.Name)}
			if r.Result.Outcome == harness.OutcomeError {
				payload.Err = errors.New(r.Result.ErrMessage)
			} else {
				payload.Result = r.Result.Output
			}
			l.emit(ctx, runId, manifest, agent.EventToolResult, payload)
		}
		if batch.Suspended {
			l.emit(ctx, runId, manifest, agent.EventAgentSuspended, hooks.AgentSuspendedPayload{})
			return OutcomeSuspended, batch, nil
		}

		parts := batch.ToolResultParts()
		if len(parts) > 0 {
			any := make([]model.Part, len(parts))
			for i, p := range parts {
				any[i] = p
			}
			run.Messages = append(run.Messages, model.Message{Role: model.ConversationRoleUser, Parts: any})
		}
	}
}

func toPointerSlice(msgs []model.Message) []*model.Message {
	out := make([]*model.Message, len(msgs))
	for i := range msgs {
		out[i] = &msgs[i]
	}
	return out
}

func toolsAsModelDefs(defs []agent.ToolDefinition) []*model.ToolDefinition {
	out := make([]*model.ToolDefinition, 0, len(defs))
	for _, d := range defs {
		var schema any
		if len(d.InputSchema) > 0 {
			_ = json.Unmarshal(d.InputSchema, &schema)
		}
		out = append(out, &model.ToolDefinition{Name: d.Name, Description: d.Description, InputSchema: schema})
	}
	return out
}

func compileSchema(raw []byte) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	res, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	const uri = "mem://output-schema"
	if err := compiler.AddResource(uri, res); err != nil {
		return nil, err
	}
	return compiler.Compile(uri)
}

func validateOutput(schema *jsonschema.Schema, text string) error {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return errkind.Wrap(errkind.Validation, err, "final output is not valid JSON")
	}
	return schema.Validate(v)
}

func retryMessage(validationErr error) model.Message {
	return model.Message{
		Role: model.ConversationRoleUser,
		Parts: []model.Part{model.TextPart{
			Text: "The previous output failed schema validation: " + validationErr.Error() + ". Produce a corrected output.",
		}},
	}
}
