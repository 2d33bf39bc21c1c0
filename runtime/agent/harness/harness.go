// Package harness implements the Tool Harness component (spec §4.4): the
// single execution path every tool call funnels through, regardless of
// which of the three call shapes a given tool implements. It validates a
// tool call's payload against the tool's JSON Schema, dispatches to the
// matching executor shape, validates the result shape, and runs the whole
// thing through an ordered middleware chain, the same options-and-wrapping
// construction style the registry executor uses for its own pipeline.
package harness

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"goa.design/agentcore/runtime/agent"
	"goa.design/agentcore/runtime/agent/errkind"
	"goa.design/agentcore/runtime/agent/model"
	"goa.design/agentcore/runtime/agent/telemetry"
)

// ExecContext is passed to Context- and StreamingContext-shaped tools. It
// carries the data a sub-agent invocation needs beyond its own input: the
// run's cancellation signal and the transcript built so far.
type ExecContext struct {
	RunId       agent.RunId
	ToolCallId  agent.ToolCallId
	Messages    []model.Message
	Cancelled   func() bool
	ParentDepth int // SuspensionStack depth the caller is already nested at
}

// StreamEvent is one item yielded by a ShapeStreamingContext tool while its
// nested run is in flight; Final is set on the last event and carries the
// terminal Result or Suspension.
type StreamEvent struct {
	Event  any
	Final  bool
	Result *Result
}

// Outcome discriminates the three things a tool call can produce, the sum
// type named in §4.4: success, error, or suspended (a nested run needs
// human approval before it can continue).
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeError     Outcome = "error"
	OutcomeSuspended Outcome = "suspended"
)

// Result is the harness's uniform return value across all three tool
// shapes.
type Result struct {
	Outcome    Outcome
	Output     any
	ErrMessage string
	ErrCode    string
	Retryable  bool
	Suspension *agent.SuspensionStack
}

// PlainExecutor is the contract for ShapePlain tools.
type PlainExecutor interface {
	Execute(ctx context.Context, input json.RawMessage) (any, error)
}

// ContextExecutor is the contract for ShapeContext tools (non-streaming
// sub-agent invocation).
type ContextExecutor interface {
	ExecuteWithContext(ctx context.Context, call model.ToolCall, execCtx ExecContext) (*Result, error)
}

// StreamingContextExecutor is the contract for ShapeStreamingContext tools
// (sub-agent invocation while the parent run is itself streaming).
type StreamingContextExecutor interface {
	ExecuteStreamingWithContext(ctx context.Context, call model.ToolCall, execCtx ExecContext) (<-chan StreamEvent, error)
}

// Middleware wraps an Invoker, the same right-to-left composition the hooks
// bus and the registry executor's option chain both use for layered
// behavior.
type Middleware func(next Invoker) Invoker

// Invoker is the narrow function signature middleware wraps.
type Invoker func(ctx context.Context, def agent.ToolDefinition, call model.ToolCall, execCtx ExecContext) (*Result, error)

// Option configures a Harness at construction time.
type Option func(*Harness)

// WithLogger overrides the harness logger. Nil falls back to a no-op.
func WithLogger(l telemetry.Logger) Option { return func(h *Harness) { h.logger = l } }

// WithTracer overrides the harness tracer. Nil falls back to a no-op.
func WithTracer(t telemetry.Tracer) Option { return func(h *Harness) { h.tracer = t } }

// WithMiddleware appends mw to the chain, outermost-first: the first
// middleware passed to WithMiddleware is the outermost wrapper and runs
// first on the way in, last on the way out.
func WithMiddleware(mw ...Middleware) Option {
	return func(h *Harness) { h.middleware = append(h.middleware, mw...) }
}

// Harness is the Tool Harness. One Harness instance is shared across an
// AgentManifest's tools; ToolDefinition.InputSchema is compiled once per
// definition and cached by name.
type Harness struct {
	logger     telemetry.Logger
	tracer     telemetry.Tracer
	middleware []Middleware
	schemas    map[string]*jsonschema.Schema
}

// New constructs a Harness. executors maps tool name to one of
// PlainExecutor, ContextExecutor, or StreamingContextExecutor, matching
// AgentManifest.ToolExecutors; defs is the manifest's tool list, used to
// compile input schemas once up front.
func New(defs []agent.ToolDefinition, opts ...Option) (*Harness, error) {
	h := &Harness{
		logger:  telemetry.NewNoopLogger(),
		tracer:  telemetry.NewNoopTracer(),
		schemas: make(map[string]*jsonschema.Schema, len(defs)),
	}
	for _, o := range opts {
		if o != nil {
			o(h)
		}
	}
	compiler := jsonschema.NewCompiler()
	for _, def := range defs {
		if len(def.InputSchema) == 0 {
			continue
		}
		res, err := jsonschema.UnmarshalJSON(bytes.NewReader(def.InputSchema))
		if err != nil {
			return nil, errkind.Wrap(errkind.Validation, err, "decode input schema for tool %q", def.Name)
		}
		uri := "mem://tool/" + def.Name
		if err := compiler.AddResource(uri, res); err != nil {
			return nil, errkind.Wrap(errkind.Validation, err, "register input schema for tool %q", def.Name)
		}
		schema, err := compiler.Compile(uri)
		if err != nil {
			return nil, errkind.Wrap(errkind.Validation, err, "compile input schema for tool %q", def.Name)
		}
		h.schemas[def.Name] = schema
	}
	return h, nil
}

// Execute runs one tool call through schema validation, shape dispatch, and
// the middleware chain, in that order: validation happens once, outside the
// chain, so middleware never sees a malformed payload.
func (h *Harness) Execute(ctx context.Context, def agent.ToolDefinition, executor any, call model.ToolCall, execCtx ExecContext) (*Result, error) {
	if err := h.validateInput(def, call); err != nil {
		return &Result{Outcome: OutcomeError, ErrMessage: err.Error(), ErrCode: "invalid_input"}, nil
	}

	base := func(ctx context.Context, def agent.ToolDefinition, call model.ToolCall, execCtx ExecContext) (*Result, error) {
		return h.dispatch(ctx, def, executor, call, execCtx)
	}
	invoke := base
	for i := len(h.middleware) - 1; i >= 0; i-- {
		invoke = h.middleware[i](invoke)
	}
	return invoke(ctx, def, call, execCtx)
}

func (h *Harness) validateInput(def agent.ToolDefinition, call model.ToolCall) error {
	schema, ok := h.schemas[def.Name]
	if !ok {
		return nil
	}
	var v any
	if len(call.Payload) > 0 {
		if err := json.Unmarshal(call.Payload, &v); err != nil {
			return errkind.Wrap(errkind.Validation, err, "tool %q payload is not valid JSON", def.Name)
		}
	}
	if err := schema.Validate(v); err != nil {
		return errkind.Wrap(errkind.Validation, err, "tool %q payload failed schema validation", def.Name)
	}
	return nil
}

// dispatch routes call to the executor shape declared on def, implementing
// the three dispatch branches from §4.4.
func (h *Harness) dispatch(ctx context.Context, def agent.ToolDefinition, executor any, call model.ToolCall, execCtx ExecContext) (*Result, error) {
	switch def.Shape {
	case agent.ShapePlain:
		e, ok := executor.(PlainExecutor)
		if !ok {
			return nil, errkind.New(errkind.InternalServer, "tool %q declares shape plain but executor does not implement PlainExecutor", def.Name)
		}
		out, err := e.Execute(ctx, call.Payload)
		if err != nil {
			return errResult(err), nil
		}
		return &Result{Outcome: OutcomeSuccess, Output: out}, nil

	case agent.ShapeContext:
		e, ok := executor.(ContextExecutor)
		if !ok {
			return nil, errkind.New(errkind.InternalServer, "tool %q declares shape context but executor does not implement ContextExecutor", def.Name)
		}
		res, err := e.ExecuteWithContext(ctx, call, execCtx)
		if err != nil {
			return errResult(err), nil
		}
		return res, nil

	case agent.ShapeStreamingContext:
		e, ok := executor.(StreamingContextExecutor)
		if !ok {
			return nil, errkind.New(errkind.InternalServer, "tool %q declares shape streaming-context but executor does not implement StreamingContextExecutor", def.Name)
		}
		events, err := e.ExecuteStreamingWithContext(ctx, call, execCtx)
		if err != nil {
			return errResult(err), nil
		}
		var last *Result
		for ev := range events {
			if ev.Final {
				last = ev.Result
			}
		}
		if last == nil {
			return nil, errkind.New(errkind.InternalServer, "tool %q streaming executor closed without a final event", def.Name)
		}
		return last, nil

	default:
		return nil, errkind.New(errkind.BadRequest, "tool %q has unknown shape %q", def.Name, def.Shape)
	}
}

func errResult(err error) *Result {
	retryable := errkind.KindOf(err) == errkind.InternalServer || errkind.KindOf(err) == errkind.Timeout
	return &Result{Outcome: OutcomeError, ErrMessage: err.Error(), ErrCode: string(errkind.KindOf(err)), Retryable: retryable}
}
