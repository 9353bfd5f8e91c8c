package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/pkg"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/pkg/errno"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/tool"
	"github.com/kiosk404/ragrelay/pkg/logger"
	"github.com/kiosk404/ragrelay/pkg/utils/safego"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultMaxSteps    = 10
	DefaultStepTimeout = 30 * time.Second
	DefaultChunkRunes  = 32
)

const tracerName = "github.com/kiosk404/ragrelay/chat/runtime"

// Emitter hands one event to the stream. It returns false once nobody is
// listening any more.
type Emitter func(entity.Event) bool

type OrchestratorConfig struct {
	MaxSteps    int
	StepTimeout time.Duration
	// ChunkRunes is the approximate size of TextDelta chunks cut from a
	// complete answer.
	ChunkRunes int
	// PollInterval is how often a running step re-checks cancellation.
	PollInterval time.Duration
	// TracerProvider receives the turn, decide and step spans. Nil means
	// the global provider.
	TracerProvider trace.TracerProvider
}

func (c OrchestratorConfig) complete() OrchestratorConfig {
	if c.MaxSteps <= 0 {
		c.MaxSteps = DefaultMaxSteps
	}
	if c.StepTimeout <= 0 {
		c.StepTimeout = DefaultStepTimeout
	}
	if c.ChunkRunes <= 0 {
		c.ChunkRunes = DefaultChunkRunes
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.TracerProvider == nil {
		c.TracerProvider = otel.GetTracerProvider()
	}
	return c
}

// Outcome summarises a finished turn.
type Outcome struct {
	Answer      string
	Invocations []*entity.ToolInvocation
	Cancelled   bool
	// Truncated is set when the step budget ran out before the policy finished.
	Truncated bool
}

// Orchestrator runs the select/invoke loop of a single turn and reports
// progress as events. It emits everything except the Terminal event, which
// belongs to the StreamSession.
type Orchestrator struct {
	registry  *tool.Registry
	policy    Policy
	responder Responder
	cfg       OrchestratorConfig
	tracer    trace.Tracer
}

func NewOrchestrator(registry *tool.Registry, policy Policy, responder Responder, cfg OrchestratorConfig) *Orchestrator {
	if responder == nil {
		responder = SummaryResponder{}
	}
	cfg = cfg.complete()
	return &Orchestrator{
		registry:  registry,
		policy:    policy,
		responder: responder,
		cfg:       cfg,
		tracer:    cfg.TracerProvider.Tracer(tracerName),
	}
}

func (o *Orchestrator) Registry() *tool.Registry {
	return o.registry
}

// turn carries the mutable state of one Run.
type turn struct {
	sess      *entity.Session
	plan      *Plan
	emit      Emitter
	sm        *LoopStateMachine
	out       *Outcome
	instances map[string]tool.Tool
}

// Run drives sess to completion. A nil error with Outcome.Cancelled set
// means the turn stopped early; errno.ErrPolicyFailed means an
// unrecoverable ErrorPart was already emitted.
func (o *Orchestrator) Run(ctx context.Context, sess *entity.Session, subQueries []entity.SubQuery, emit Emitter) (*Outcome, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.turn", trace.WithAttributes(
		attribute.String("session.id", sess.ID),
		attribute.String("chat.id", sess.ChatID),
		attribute.Int("sub_queries", len(subQueries)),
	))
	defer span.End()

	if len(subQueries) == 0 {
		subQueries = entity.WholeQuery(sess.Goal)
	}
	t := &turn{
		sess: sess,
		plan: &Plan{
			Goal:       sess.Goal,
			History:    sess.History,
			SubQueries: subQueries,
			Tools:      o.registry.Enabled(),
			MaxSteps:   o.cfg.MaxSteps,
		},
		emit:      emit,
		sm:        NewLoopStateMachine(sess.ID),
		out:       &Outcome{},
		instances: make(map[string]tool.Tool),
	}
	defer t.sm.Finish()

	if !o.emitState(t, entity.StateTrace, "Planning", map[string]any{
		"session_id":  sess.ID,
		"sub_queries": subQueries,
	}) {
		return o.cancelled(t), nil
	}

	final := Finish("")
	for {
		if sess.Cancelled() {
			return o.cancelled(t), nil
		}
		if err := t.sm.Transition(PhaseSelectAction); err != nil {
			return t.out, err
		}
		decision, err := o.decide(ctx, t.plan)
		if err != nil {
			logger.ErrorX(pkg.ModuleName, "[Orchestrator] session %s: select action: %v", sess.ID, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "policy failed")
			emit(entity.ErrorPart{Message: fmt.Sprintf("select next action: %v", err), Recoverable: false})
			return t.out, fmt.Errorf("%w: %v", errno.ErrPolicyFailed, err)
		}
		if decision.Action == ActionFinish {
			final = decision
			break
		}
		// The limit only bites when the policy wants one more step.
		if len(t.plan.Observations) >= o.cfg.MaxSteps {
			t.out.Truncated = true
			span.SetAttributes(attribute.Bool("truncated", true))
			logger.WarnX(pkg.ModuleName, "[Orchestrator] session %s hit the %d step limit", sess.ID, o.cfg.MaxSteps)
			if !emit(entity.ErrorPart{
				Message:     fmt.Sprintf("%v: stopped after %d steps, answering with what was gathered", errno.ErrMaxStepsExceeded, o.cfg.MaxSteps),
				Recoverable: true,
			}) {
				return o.cancelled(t), nil
			}
			break
		}

		if sess.Cancelled() {
			return o.cancelled(t), nil
		}
		if err := t.sm.Transition(PhaseInvoking); err != nil {
			return t.out, err
		}
		if !o.invoke(ctx, t, decision) {
			return o.cancelled(t), nil
		}
	}

	if err := t.sm.Transition(PhaseFinishing); err != nil {
		return t.out, err
	}
	if !o.finish(ctx, t, final) {
		return o.cancelled(t), nil
	}
	span.SetAttributes(attribute.Int("steps", len(t.out.Invocations)))
	return t.out, nil
}

func (o *Orchestrator) decide(ctx context.Context, plan *Plan) (d Decision, err error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.decide", trace.WithAttributes(
		attribute.Int("observations", len(plan.Observations)),
	))
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("policy panic: %v", r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	d, err = o.policy.Decide(ctx, plan)
	if err != nil {
		return Decision{}, err
	}
	if d.Action == ActionCallTool && d.ToolName == "" {
		return Decision{}, errors.New("policy chose a tool call without a tool name")
	}
	span.SetAttributes(attribute.String("decision.tool", d.ToolName))
	return d, nil
}

// invoke runs one step. It returns false when the turn must stop.
func (o *Orchestrator) invoke(ctx context.Context, t *turn, d Decision) bool {
	step := t.sess.NextStep()
	args := d.Arguments
	if args == nil {
		args = map[string]any{}
	}
	ctx, span := o.tracer.Start(ctx, "orchestrator.step", trace.WithAttributes(
		attribute.String("tool.name", d.ToolName),
		attribute.Int("step", step),
	))
	defer span.End()

	desc, found := o.registry.Get(d.ToolName)
	state, display := entity.StateToolCall, "Calling "+d.ToolName
	if found {
		state, display = desc.State, desc.DisplayText()
	}
	if !o.emitState(t, state, display, map[string]any{"tool": d.ToolName, "step": step}) {
		return false
	}
	if t.sess.Cancelled() {
		return false
	}

	call, err := entity.NewToolCall(d.ToolName, step, args)
	var res tool.Result
	if err != nil {
		// Arguments that cannot go on the wire cannot reach the tool either.
		args = map[string]any{}
		call = entity.ToolCall{ToolName: d.ToolName, Step: step, Arguments: args}
		res = tool.FailCode(tool.CodeInvalidArguments, err)
	}
	if !t.emit(call) {
		return false
	}

	inv := entity.NewToolInvocation(d.ToolName, step, args)
	if err == nil {
		res = o.execute(ctx, t, d.ToolName, found, args)
	}
	if t.sess.Cancelled() {
		logger.InfoX(pkg.ModuleName, "[Orchestrator] session %s cancelled during step %d, discarding result", t.sess.ID, step)
		return false
	}

	content := res.Content
	if !res.Success {
		content = map[string]any{"error": res.RawError, "code": res.Code}
		span.SetStatus(codes.Error, res.Code)
	}
	result, err := entity.NewToolResult(d.ToolName, step, content, res.Success)
	if err != nil {
		res = tool.FailCode(tool.CodeFailed, fmt.Errorf("result not serializable: %w", err))
		result = entity.ToolResult{
			ToolName: d.ToolName,
			Step:     step,
			Result:   map[string]any{"error": res.RawError, "code": res.Code},
			Success:  false,
		}
	}
	if res.Success {
		inv.Succeed(res.Content)
	} else {
		inv.Fail(res.Code, res.RawError)
		logger.WarnX(pkg.ModuleName, "[Orchestrator] session %s step %d %s failed (%s): %s",
			t.sess.ID, step, d.ToolName, res.Code, res.RawError)
	}
	t.out.Invocations = append(t.out.Invocations, inv)
	t.plan.Observations = append(t.plan.Observations, Observation{
		Step:      step,
		ToolName:  d.ToolName,
		Arguments: args,
		SubQuery:  d.SubQuery,
		Result:    res,
	})
	return t.emit(result)
}

// execute invokes the session's instance of name under the step timeout.
// It gives up waiting once the session is cancelled.
func (o *Orchestrator) execute(ctx context.Context, t *turn, name string, found bool, args map[string]any) tool.Result {
	if !found {
		return tool.FailCode(tool.CodeNotFound, fmt.Errorf("%w: %s", tool.ErrToolNotFound, name))
	}
	if err := o.registry.ValidateArguments(name, args); err != nil {
		return tool.FailCode(tool.CodeInvalidArguments, err)
	}
	inst, ok := t.instances[name]
	if !ok {
		var err error
		if inst, err = o.registry.Instantiate(name); err != nil {
			return tool.Fail(err)
		}
		t.instances[name] = inst
	}

	stepCtx, cancel := context.WithTimeout(ctx, o.cfg.StepTimeout)
	defer cancel()
	done := make(chan tool.Result, 1)
	safego.Go(stepCtx, func() {
		done <- tool.Call(stepCtx, name, inst, args)
	})

	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case res := <-done:
			return res
		case <-ticker.C:
			if t.sess.Cancelled() {
				// The abandoned call may still touch inst.
				delete(t.instances, name)
				return tool.FailCode(tool.CodeCancelled, errno.ErrAborted)
			}
		case <-stepCtx.Done():
			delete(t.instances, name)
			if ctx.Err() != nil {
				return tool.FailCode(tool.CodeCancelled, ctx.Err())
			}
			return tool.FailCode(tool.CodeTimeout, fmt.Errorf("%w after %s", errno.ErrStepTimeout, o.cfg.StepTimeout))
		}
	}
}

// finish streams the answer. It returns false when the turn was cancelled
// or nobody is listening.
func (o *Orchestrator) finish(ctx context.Context, t *turn, d Decision) bool {
	if !o.emitState(t, entity.StateGenerateAnswer, "Generating answer", nil) {
		return false
	}

	var b strings.Builder
	emitChunk := func(chunk string) bool {
		if t.sess.Cancelled() {
			return false
		}
		if chunk == "" {
			return true
		}
		b.WriteString(chunk)
		return t.emit(entity.TextDelta{Content: chunk})
	}

	if d.Answer != "" {
		for _, chunk := range splitChunks(d.Answer, o.cfg.ChunkRunes) {
			if !emitChunk(chunk) {
				t.out.Answer = b.String()
				return false
			}
		}
	} else if err := o.respond(ctx, t.plan, emitChunk); err != nil {
		if errors.Is(err, errno.ErrAborted) {
			t.out.Answer = b.String()
			return false
		}
		logger.WarnX(pkg.ModuleName, "[Orchestrator] session %s: responder: %v", t.sess.ID, err)
		if !t.emit(entity.ErrorPart{Message: fmt.Sprintf("generate answer: %v", err), Recoverable: true}) {
			return false
		}
	}
	if b.Len() == 0 {
		for _, chunk := range splitChunks(Summarize(t.plan), o.cfg.ChunkRunes) {
			if !emitChunk(chunk) {
				t.out.Answer = b.String()
				return false
			}
		}
	}
	t.out.Answer = b.String()

	if !o.emitState(t, entity.StateFinished, "Finished", nil) {
		return false
	}
	return true
}

// respond pipes the Responder's stream into emitChunk. errno.ErrAborted
// means emitChunk asked to stop.
func (o *Orchestrator) respond(ctx context.Context, plan *Plan, emitChunk func(string) bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("responder panic: %v", r)
		}
	}()
	sr, err := o.responder.Respond(ctx, plan)
	if err != nil {
		return err
	}
	defer sr.Close()
	for {
		msg, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if msg == nil {
			continue
		}
		if !emitChunk(msg.Content) {
			return errno.ErrAborted
		}
	}
}

func (o *Orchestrator) emitState(t *turn, state entity.StateKind, display string, detail any) bool {
	ev, err := entity.NewStateTransition(state, display, detail)
	if err != nil {
		logger.WarnX(pkg.ModuleName, "[Orchestrator] drop context of %s transition: %v", state, err)
		ev = entity.StateTransition{State: state, Display: display}
	}
	return t.emit(ev)
}

func (o *Orchestrator) cancelled(t *turn) *Outcome {
	t.out.Cancelled = true
	t.sess.Cancel()
	logger.InfoX(pkg.ModuleName, "[Orchestrator] session %s cancelled after %d steps", t.sess.ID, t.sess.Steps())
	return t.out
}
