// Package service implements the Service Facade component (spec §4.10):
// the single transport-agnostic entry point composing Validator -> Lock ->
// Prepare -> Loop -> persist/release for the run and stream operations, and
// the cancel operation's three-way status check.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"goa.design/agentcore/runtime/agent"
	"goa.design/agentcore/runtime/agent/agentconfig"
	"goa.design/agentcore/runtime/agent/cancelch"
	"goa.design/agentcore/runtime/agent/dispatch"
	"goa.design/agentcore/runtime/agent/errkind"
	"goa.design/agentcore/runtime/agent/graph"
	"goa.design/agentcore/runtime/agent/harness"
	"goa.design/agentcore/runtime/agent/hooks"
	"goa.design/agentcore/runtime/agent/looprt"
	"goa.design/agentcore/runtime/agent/model"
	"goa.design/agentcore/runtime/agent/runlock"
	"goa.design/agentcore/runtime/agent/session"
	"goa.design/agentcore/runtime/agent/state"
	"goa.design/agentcore/runtime/agent/streampipe"
	"goa.design/agentcore/runtime/agent/suspend"
	"goa.design/agentcore/runtime/agent/telemetry"
)

// RunStatus is the top-level discriminant of AgentRunResult (§6.1).
type RunStatus string

const (
	RunComplete  RunStatus = "complete"
	RunSuspended RunStatus = "suspended"
	RunError     RunStatus = "error"
	RunCancelled RunStatus = "cancelled"
)

// RunResult is the tagged union §6.1 names as AgentRunResult.
type RunResult struct {
	Status           RunStatus
	RunId            agent.RunId
	Result           any
	Suspensions      []agent.ToolApprovalSuspension
	SuspensionStacks []agent.SuspensionStack
	Err              *errkind.Error
}

// RequestInput is the `request` variant of AgentInput (§6.2): a fresh run.
type RequestInput struct {
	Prompt    string
	Manifests []*agent.AgentManifest
	RootId    agent.Ident
	// SessionId identifies the durable conversational container this run
	// belongs to. Required when a session.Store is configured via
	// WithSessionStore; ignored otherwise.
	SessionId string
}

// ReplyInput is the `reply` variant: continue a completed run with a new
// user message.
type ReplyInput struct {
	RunId   agent.RunId
	Message model.Message
}

// ApprovalInput is the `approval` variant: resume a suspended run.
type ApprovalInput struct {
	RunId    agent.RunId
	Response suspend.ApprovalResponse
}

// CancelStatus is the result of Cancel (§4.10, §6.1).
type CancelStatus string

const (
	CancelCancelled       CancelStatus = "cancelled"
	CancelSignalled       CancelStatus = "signalled"
	CancelAlreadyTerminal CancelStatus = "already-terminal"
)

// Service is the Service Facade. It owns no business logic beyond
// composition: manifest validation, lock acquisition, state load/persist,
// and driving the Agent Loop are all delegated to the packages that
// implement them.
type Service struct {
	store    state.Store
	lock     runlock.Lock
	cancel   cancelch.Channel
	client   model.Client
	cfg      agentconfig.Config
	logger   telemetry.Logger
	sessions session.Store // optional; nil disables the durable session/run mirror
}

// Option configures a Service at construction time.
type Option func(*Service)

// WithLogger overrides the service logger. Nil falls back to a no-op.
func WithLogger(l telemetry.Logger) Option { return func(s *Service) { s.logger = l } }

// WithSessionStore attaches the durable session/run metadata mirror (§4.1,
// §11). When unset, Run/drive/Cancel skip mirror writes entirely: the
// mirror is a best-effort supplement to the hot state cache, never a
// dependency the core loop blocks on.
func WithSessionStore(store session.Store) Option { return func(s *Service) { s.sessions = store } }

// New constructs a Service.
func New(store state.Store, lock runlock.Lock, cancel cancelch.Channel, client model.Client, cfg agentconfig.Config, opts ...Option) *Service {
	s := &Service{store: store, lock: lock, cancel: cancel, client: client, cfg: cfg, logger: telemetry.NewNoopLogger()}
	for _, o := range opts {
		if o != nil {
			o(s)
		}
	}
	return s
}

// Run implements the `run` operation: validate -> acquire RunLock -> drive
// loop to a terminal state -> persist -> release lock -> return.
func (s *Service) Run(ctx context.Context, req RequestInput) (*RunResult, error) {
	if err := graph.Validate(req.Manifests, req.RootId); err != nil {
		return errorResult("", err), nil
	}
	root := findManifest(req.Manifests, req.RootId)
	runId := agent.RunId(uuid.NewString())

	if s.sessions != nil && req.SessionId != "" {
		if _, err := s.sessions.CreateSession(ctx, req.SessionId, time.Now()); err != nil {
			return errorResult(runId, errkind.Wrap(errkind.InternalServer, err, "create session %s", req.SessionId)), nil
		}
	}

	st := &agent.AgentState{
		Id: runId, SessionId: req.SessionId, RootManifestId: req.RootId, ManifestId: req.RootId,
		ManifestVersion: root.Version, Status: agent.StatusRunning,
		CreatedAt: time.Now(), SchemaVersion: agent.CurrentSchemaVersion,
		Messages: []model.Message{{Role: model.ConversationRoleUser, Parts: []model.Part{model.TextPart{Text: req.Prompt}}}},
	}
	s.mirrorRun(ctx, root.Id, st)

	var result *RunResult
	err := runlock.WithLock(ctx, s.lock, runId, string(runId), s.cfg.AgentRunLockTTL, func(ctx context.Context) error {
		r, runErr := s.drive(ctx, root, st)
		result = r
		return runErr
	})
	if err != nil {
		return errorResult(runId, err), nil
	}
	return result, nil
}

// Reply implements the `reply` AgentInput variant: load state (must be
// completed), append the user message, and continue the loop.
func (s *Service) Reply(ctx context.Context, req ReplyInput, manifests []*agent.AgentManifest) (*RunResult, error) {
	st, err := s.store.Get(ctx, req.RunId)
	if err != nil {
		return errorResult(req.RunId, err), nil
	}
	if st.Status != agent.StatusCompleted {
		return errorResult(req.RunId, errkind.New(errkind.BadRequest, "run %s is not completed (status=%s)", req.RunId, st.Status)), nil
	}
	root := findManifest(manifests, st.RootManifestId)
	st.Messages = append(st.Messages, req.Message)
	st.Status = agent.StatusRunning
	st.StartedAt = nil

	var result *RunResult
	lockErr := runlock.WithLock(ctx, s.lock, req.RunId, string(req.RunId), s.cfg.AgentRunLockTTL, func(ctx context.Context) error {
		r, runErr := s.drive(ctx, root, st)
		result = r
		return runErr
	})
	if lockErr != nil {
		return errorResult(req.RunId, lockErr), nil
	}
	return result, nil
}

// Approve implements the `approval` AgentInput variant per §4.8's algorithm.
func (s *Service) Approve(ctx context.Context, req ApprovalInput, manifests []*agent.AgentManifest, resumer suspend.ChildResumer) (*RunResult, error) {
	st, err := s.store.Get(ctx, req.RunId)
	if err != nil {
		return errorResult(req.RunId, err), nil
	}
	if st.Status != agent.StatusSuspended {
		return errorResult(req.RunId, errkind.New(errkind.BadRequest, "run %s is not suspended (status=%s)", req.RunId, st.Status)), nil
	}

	kind, idx := suspend.Match(st, req.Response.ApprovalId)
	switch kind {
	case suspend.MatchDirect:
		if err := suspend.ResolveDirect(st, idx, req.Response); err != nil {
			return errorResult(req.RunId, err), nil
		}
	case suspend.MatchDelegate:
		if err := suspend.ResolveDelegate(ctx, st, idx, req.Response, resumer); err != nil {
			return errorResult(req.RunId, err), nil
		}
	default:
		return errorResult(req.RunId, errkind.New(errkind.BadRequest, "approvalId %s not found on run %s", req.Response.ApprovalId, req.RunId)), nil
	}

	if !suspend.ReadyToAssemble(st) {
		st.Status = agent.StatusSuspended
		if err := s.store.Set(ctx, req.RunId, st); err != nil {
			return errorResult(req.RunId, err), nil
		}
		return &RunResult{Status: RunSuspended, RunId: req.RunId, Suspensions: st.Suspensions, SuspensionStacks: st.SuspensionStacks}, nil
	}

	if len(st.PendingToolResults) > 0 {
		parts := make([]model.Part, len(st.PendingToolResults))
		for i, p := range st.PendingToolResults {
			parts[i] = p
		}
		st.Messages = append(st.Messages, model.Message{Role: model.ConversationRoleUser, Parts: parts})
		st.PendingToolResults = nil
	}
	st.Status = agent.StatusRunning

	root := findManifest(manifests, st.RootManifestId)
	var result *RunResult
	lockErr := runlock.WithLock(ctx, s.lock, req.RunId, string(req.RunId), s.cfg.AgentRunLockTTL, func(ctx context.Context) error {
		r, runErr := s.drive(ctx, root, st)
		result = r
		return runErr
	})
	if lockErr != nil {
		return errorResult(req.RunId, lockErr), nil
	}
	return result, nil
}

// drive wires one manifest's tools into a Harness/Dispatcher pair and runs
// the Agent Loop to its next terminal or suspended boundary, then persists.
func (s *Service) drive(ctx context.Context, manifest *agent.AgentManifest, st *agent.AgentState) (*RunResult, error) {
	h, err := harness.New(manifest.Tools)
	if err != nil {
		return nil, err
	}
	disp := dispatch.New(h)
	poller := cancelch.NewPoller(s.cancel, s.cfg.CancellationPollInterval)
	loop := looprt.New(s.client, disp, poller, s.cfg,
		looprt.WithPipeline(pipelineFromContext(ctx)),
		looprt.WithHookBus(busForManifest(manifest)),
		looprt.WithLogger(s.logger))

	run := &agent.AgentRunState{
		StartTime:  time.Now(),
		Messages:   st.Messages,
		Tools:      manifest.Tools,
		StepNumber: st.CurrentStepNumber,
	}

	outcome, batch, err := loop.Run(ctx, st.Id, manifest, run)
	st.Messages = run.Messages
	st.Steps = append(st.Steps, run.Steps...)
	st.CurrentStepNumber = run.StepNumber
	st.UpdatedAt = time.Now()

	switch outcome {
	case looprt.OutcomeCompleted:
		st.Status = agent.StatusCompleted
		if perr := s.store.Set(ctx, st.Id, st); perr != nil {
			s.logger.Warn(ctx, "persist completed state failed", "run_id", st.Id, "error", perr)
		}
		s.mirrorRun(ctx, manifest.Id, st)
		return &RunResult{Status: RunComplete, RunId: st.Id, Result: lastAssistantText(run)}, nil

	case looprt.OutcomeSuspended:
		st.Status = agent.StatusSuspended
		for _, r := range batch.Results {
			if r.Outcome == dispatch.OutcomeSuspended && r.Result != nil && r.Result.Suspension != nil {
				st.SuspensionStacks = append(st.SuspensionStacks, *r.Result.Suspension)
			}
		}
		if perr := s.store.Set(ctx, st.Id, st); perr != nil {
			s.logger.Warn(ctx, "persist suspended state failed", "run_id", st.Id, "error", perr)
		}
		s.mirrorRun(ctx, manifest.Id, st)
		return &RunResult{Status: RunSuspended, RunId: st.Id, Suspensions: st.Suspensions, SuspensionStacks: st.SuspensionStacks}, nil

	case looprt.OutcomeCancelled:
		st.Status = agent.StatusCancelled
		_ = s.store.Set(ctx, st.Id, st)
		s.mirrorRun(ctx, manifest.Id, st)
		return &RunResult{Status: RunCancelled, RunId: st.Id}, nil

	default: // OutcomeTimedOut, OutcomeFailed
		st.Status = agent.StatusFailed
		_ = s.store.Set(ctx, st.Id, st)
		s.mirrorRun(ctx, manifest.Id, st)
		if err == nil {
			err = errkind.New(errkind.Timeout, "run %s exceeded its execution budget", st.Id)
		}
		return errorResult(st.Id, err), nil
	}
}

// mirrorRun writes a coarse, non-TTL record of st's lifecycle to the
// optional session.Store mirror (§4.1, §11). Failures are logged and
// swallowed: the mirror is a best-effort supplement, never a reason to fail
// a run that otherwise completed against the hot state cache.
func (s *Service) mirrorRun(ctx context.Context, manifestId agent.Ident, st *agent.AgentState) {
	if s.sessions == nil {
		return
	}
	meta := session.RunMeta{
		AgentID:   string(manifestId),
		RunID:     string(st.Id),
		SessionID: st.SessionId,
		Status:    mirrorStatus(st.Status),
	}
	if st.StartedAt != nil {
		meta.StartedAt = *st.StartedAt
	} else {
		meta.StartedAt = st.CreatedAt
	}
	if st.SessionId == "" {
		return
	}
	if err := s.sessions.UpsertRun(ctx, meta); err != nil {
		s.logger.Warn(ctx, "session mirror upsert failed", "run_id", st.Id, "error", err)
	}
}

func mirrorStatus(status agent.RunStatus) session.RunStatus {
	switch status {
	case agent.StatusRunning:
		return session.RunStatusRunning
	case agent.StatusSuspended:
		return session.RunStatusPaused
	case agent.StatusCompleted:
		return session.RunStatusCompleted
	case agent.StatusCancelled:
		return session.RunStatusCanceled
	default:
		return session.RunStatusFailed
	}
}

// Cancel implements the `cancel` operation's three-way status check.
func (s *Service) Cancel(ctx context.Context, runId agent.RunId) (CancelStatus, error) {
	st, err := s.store.Get(ctx, runId)
	if err != nil {
		if errkind.KindOf(err) == errkind.NotFound {
			return CancelAlreadyTerminal, nil
		}
		return "", err
	}
	switch st.Status {
	case agent.StatusSuspended:
		st.Status = agent.StatusCancelled
		if err := s.store.Set(ctx, runId, st); err != nil {
			return "", err
		}
		s.mirrorRun(ctx, st.ManifestId, st)
		return CancelCancelled, nil
	case agent.StatusRunning:
		locked, err := s.lock.IsLocked(ctx, runlock.Key(runId))
		if err != nil {
			return "", err
		}
		if !locked {
			st.Status = agent.StatusFailed
			_ = s.store.Set(ctx, runId, st)
			s.mirrorRun(ctx, st.ManifestId, st)
			return CancelCancelled, nil
		}
		if err := s.cancel.Cancel(ctx, runId, "caller requested cancellation"); err != nil {
			return "", err
		}
		return CancelSignalled, nil
	default:
		return CancelAlreadyTerminal, nil
	}
}

// Stream implements the `stream` operation by wiring a streampipe.Pipeline
// into drive's loop observer and returning it to the caller alongside the
// eventual RunResult; callers subscribe sinks before the returned function
// runs to avoid missing early events.
func (s *Service) Stream(ctx context.Context, req RequestInput, bufSize int) (*streampipe.Pipeline, func() (*RunResult, error)) {
	root := findManifest(req.Manifests, req.RootId)
	runId := agent.RunId(uuid.NewString())
	pipeline := streampipe.New(runId, root, bufSize, s.logger)

	run := func() (*RunResult, error) {
		defer func() { pipeline.Final(ctx, "done", nil, nil) }()
		return s.Run(contextWithPipeline(ctx, pipeline), req)
	}
	return pipeline, run
}

// pipelineKey is the unexported context key threading the active run's
// Streaming Pipeline from Stream down to drive's Loop construction, since
// drive's signature is shared by both the synchronous Run and the streaming
// Stream entry points.
type pipelineKey struct{}

func contextWithPipeline(ctx context.Context, p *streampipe.Pipeline) context.Context {
	if p == nil {
		return ctx
	}
	return context.WithValue(ctx, pipelineKey{}, p)
}

func pipelineFromContext(ctx context.Context) *streampipe.Pipeline {
	p, _ := ctx.Value(pipelineKey{}).(*streampipe.Pipeline)
	return p
}

// busForManifest builds an observability Bus from a manifest's declared
// Hooks, registering every one that implements hooks.Subscriber. Returns nil
// when the manifest declares no hooks, so looprt.WithHookBus is a no-op.
func busForManifest(manifest *agent.AgentManifest) hooks.Bus {
	if len(manifest.Hooks) == 0 {
		return nil
	}
	bus := hooks.NewBus()
	for _, h := range manifest.Hooks {
		if sub, ok := h.(hooks.Subscriber); ok {
			_, _ = bus.Register(sub)
		}
	}
	return bus
}

func findManifest(manifests []*agent.AgentManifest, id agent.Ident) *agent.AgentManifest {
	for _, m := range manifests {
		if m.Id == id {
			return m
		}
	}
	return nil
}

func lastAssistantText(run *agent.AgentRunState) string {
	if len(run.Steps) == 0 {
		return ""
	}
	return run.Steps[len(run.Steps)-1].Text
}

func errorResult(runId agent.RunId, err error) *RunResult {
	ke, ok := err.(*errkind.Error)
	if !ok {
		ke = errkind.Wrap(errkind.InternalServer, err, "unexpected error")
	}
	return &RunResult{Status: RunError, RunId: runId, Err: ke}
}
