package core

import (
	"context"

	"github.com/Mohamed711/customer-support-agent/logging"
)

// ToolContext provides the constrained surface a tool implementation sees
// while it runs: cancellation, correlation ids and a logger. Tools never
// receive the transcript itself.
type ToolContext struct {
	ctx            context.Context
	threadID       string
	agentName      string
	functionCallID string

	*loggerAdapter
}

// NewToolContext constructs a tool context for one function call made by
// agentName on behalf of threadID.
func NewToolContext(ctx context.Context, threadID, agentName, functionCallID string, logger logging.Logger) *ToolContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &ToolContext{
		ctx:            ctx,
		threadID:       threadID,
		agentName:      agentName,
		functionCallID: functionCallID,
		loggerAdapter:  newLoggerAdapter(logger),
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// ThreadID returns the conversation thread the call belongs to.
func (tc *ToolContext) ThreadID() string { return tc.threadID }

// AgentName returns the agent that requested the call.
func (tc *ToolContext) AgentName() string { return tc.agentName }

// FunctionCallID returns the model supplied call id.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.loggerAdapter.Logger() }
