package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Mohamed711/customer-support-agent/core"
	"github.com/Mohamed711/customer-support-agent/logging"
	"github.com/Mohamed711/customer-support-agent/metrics"
	"github.com/Mohamed711/customer-support-agent/model"
	"github.com/Mohamed711/customer-support-agent/tool"
)

// DefaultMaxSteps bounds the model calls of one agent invocation.
const DefaultMaxSteps = 15

// Policy selects how a run continues once the model answers without
// requesting tools.
type Policy int

const (
	// PolicyDone returns the final assistant text.
	PolicyDone Policy = iota
	// PolicyExtract runs a schema constrained pass and decodes it into
	// Invocation.Into.
	PolicyExtract
)

// StopFunc reports whether an assistant message ends the run before any of
// its tool calls are executed.
type StopFunc func(msg core.Content) bool

// Invocation describes one bounded ReAct run.
type Invocation struct {
	Agent        string
	ThreadID     string
	Instructions string
	Tools        []tool.Tool
	Transcript   *core.Transcript
	TurnLimiter  *core.StepLimiter // shared by every invocation of a turn; may be nil
	StopWhen     StopFunc
	Policy       Policy

	// Extraction settings, used with PolicyExtract.
	ExtractInstructions string // defaults to Instructions
	ResponseFormat      *model.ResponseFormat
	Into                any
}

// Outcome summarizes a finished run.
type Outcome struct {
	Text      string // final assistant text (PolicyDone or stop)
	Stopped   bool   // StopWhen matched
	Steps     int    // model calls charged to the invocation
	ToolCalls int
}

// RuntimeOptions configures a Runtime.
type RuntimeOptions struct {
	Logger   logging.Logger
	MaxSteps int // per invocation; 0 means DefaultMaxSteps
}

// Runtime drives bounded tool loops against one model.
type Runtime struct {
	llm      model.Model
	logger   logging.Logger
	maxSteps int
}

// NewRuntime creates a Runtime over llm.
func NewRuntime(llm model.Model, optFns ...func(o *RuntimeOptions)) *Runtime {
	opts := RuntimeOptions{
		Logger:   logging.NoOpLogger{},
		MaxSteps: DefaultMaxSteps,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	return &Runtime{llm: llm, logger: opts.Logger, maxSteps: opts.MaxSteps}
}

// Model returns the model behind the runtime.
func (r *Runtime) Model() model.Model { return r.llm }

// MaxSteps returns the per invocation ceiling.
func (r *Runtime) MaxSteps() int { return r.maxSteps }

// Run executes the loop described by inv. Every message produced is appended
// to inv.Transcript. Step limit and model failures are returned as errors and
// end the run; tool failures never do.
func (r *Runtime) Run(ctx context.Context, inv Invocation) (Outcome, error) {
	if inv.Transcript == nil {
		return Outcome{}, fmt.Errorf("agent %s: nil transcript", inv.Agent)
	}
	if inv.Policy == PolicyExtract && (inv.ResponseFormat == nil || inv.Into == nil) {
		return Outcome{}, fmt.Errorf("agent %s: extract policy needs a response format and a destination", inv.Agent)
	}

	limiter := core.NewStepLimiter("agent:"+inv.Agent, r.maxSteps)
	exec := newFunctionExecutor(inv.Agent, inv.ThreadID, inv.Tools, r.logger)
	defs := toolDefinitions(inv.Tools)

	var out Outcome
	start := time.Now()
	r.logger.Debug("agent.run.start", "agent", inv.Agent, "thread_id", inv.ThreadID, "tools", len(inv.Tools))

	for {
		if err := r.charge(limiter, inv.TurnLimiter); err != nil {
			out.Steps = limiter.Count()
			return out, err
		}

		resp, err := r.generate(ctx, inv.Agent, model.Request{
			Instructions: inv.Instructions,
			Contents:     inv.Transcript.Messages(),
			Tools:        defs,
		})
		if err != nil {
			out.Steps = limiter.Count()
			return out, err
		}

		msg := resp.Content
		msg.Role = core.RoleAssistant

		if inv.StopWhen != nil && inv.StopWhen(msg) {
			// Calls carried by a stop message are dropped unexecuted so the
			// transcript never holds a call without a result.
			inv.Transcript.Append(withoutCalls(msg))
			out.Text = msg.Text()
			out.Stopped = true
			out.Steps = limiter.Count()
			r.logger.Info("agent.run.stopped", "agent", inv.Agent, "thread_id", inv.ThreadID,
				"dropped_calls", len(msg.FunctionCalls()))
			return out, nil
		}
		inv.Transcript.Append(msg)

		calls := msg.FunctionCalls()
		if len(calls) == 0 {
			out.Text = msg.Text()
			break
		}

		for _, fc := range calls {
			if err := ctx.Err(); err != nil {
				out.Steps = limiter.Count()
				return out, err
			}
			if err := r.charge(nil, inv.TurnLimiter); err != nil {
				out.Steps = limiter.Count()
				return out, err
			}
			toolCtx := core.NewToolContext(ctx, inv.ThreadID, inv.Agent, fc.ID, r.logger)
			payload := exec.execute(toolCtx, fc)
			inv.Transcript.Append(core.NewFunctionResponseContent(fc, payload))
			out.ToolCalls++
		}
	}

	if inv.Policy == PolicyExtract {
		if err := r.charge(limiter, inv.TurnLimiter); err != nil {
			out.Steps = limiter.Count()
			return out, err
		}
		instructions := inv.ExtractInstructions
		if instructions == "" {
			instructions = inv.Instructions
		}
		req := model.Request{
			Instructions:   instructions,
			Contents:       inv.Transcript.Messages(),
			ResponseFormat: inv.ResponseFormat,
		}
		if err := r.extract(ctx, inv.Agent, req, inv.Into); err != nil {
			out.Steps = limiter.Count()
			return out, err
		}
	}

	out.Steps = limiter.Count()
	r.logger.Info("agent.run.complete", "agent", inv.Agent, "thread_id", inv.ThreadID,
		"steps", out.Steps, "tool_calls", out.ToolCalls, "turn_steps_left", inv.TurnLimiter.Remaining(),
		"duration_ms", time.Since(start).Milliseconds())
	return out, nil
}

// charge takes one step from each non-nil limiter, agent first.
func (r *Runtime) charge(limiters ...*core.StepLimiter) error {
	for _, l := range limiters {
		if err := l.Increment(); err != nil {
			var sle *core.StepLimitError
			if errors.As(err, &sle) {
				metrics.StepLimitHits.WithLabelValues(sle.Scope).Inc()
			}
			r.logger.Warn("agent.step_limit.exceeded", "error", err.Error())
			return err
		}
	}
	return nil
}

func (r *Runtime) generate(ctx context.Context, agent string, req model.Request) (model.Response, error) {
	start := time.Now()
	resp, err := model.Collect(ctx, r.llm, req)
	r.observeModelCall(agent, start, err)
	if err != nil {
		r.logger.Error("agent.model.error", "agent", agent, "error", err.Error())
		return model.Response{}, core.NewModelError(agent, err)
	}
	return resp, nil
}

func (r *Runtime) extract(ctx context.Context, agent string, req model.Request, into any) error {
	start := time.Now()
	err := model.Extract(ctx, r.llm, req, into)
	r.observeModelCall(agent, start, err)
	if err != nil {
		r.logger.Error("agent.extract.error", "agent", agent, "format", req.ResponseFormat.Name, "error", err.Error())
		return core.NewModelError(agent, err)
	}
	return nil
}

func (r *Runtime) observeModelCall(agent string, start time.Time, err error) {
	status := metrics.StatusOK
	if err != nil {
		status = metrics.StatusError
	}
	metrics.ModelCalls.WithLabelValues(agent, status).Inc()
	metrics.ModelCallDuration.WithLabelValues(agent).Observe(float64(time.Since(start).Milliseconds()))
}

func withoutCalls(msg core.Content) core.Content {
	parts := make([]core.Part, 0, len(msg.Parts))
	for _, p := range msg.Parts {
		if _, ok := p.(core.FunctionCallPart); ok {
			continue
		}
		parts = append(parts, p)
	}
	return core.Content{Role: msg.Role, Parts: parts}
}

// toolDefinitions converts tools into model tool definitions.
func toolDefinitions(tools []tool.Tool) []model.ToolDefinition {
	if len(tools) == 0 {
		return nil
	}
	defs := make([]model.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}
