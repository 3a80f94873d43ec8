package agent

import (
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/Mohamed711/customer-support-agent/core"
	"github.com/Mohamed711/customer-support-agent/logging"
	"github.com/Mohamed711/customer-support-agent/metrics"
	"github.com/Mohamed711/customer-support-agent/tool"
)

// functionExecutor runs the tool calls of one assistant message strictly in
// request order and turns every outcome into a payload. It never panics and
// never returns a Go error for a tool failure.
type functionExecutor struct {
	agent    string
	threadID string
	tools    map[string]tool.Tool
	logger   logging.Logger
}

func newFunctionExecutor(agent, threadID string, tools []tool.Tool, logger logging.Logger) *functionExecutor {
	reg := make(map[string]tool.Tool, len(tools))
	for _, t := range tools {
		reg[t.Name()] = t
	}
	return &functionExecutor{agent: agent, threadID: threadID, tools: reg, logger: logger}
}

// execute runs fc and returns the payload for its tool-result message.
func (e *functionExecutor) execute(toolCtx *core.ToolContext, fc core.FunctionCall) map[string]any {
	start := time.Now()
	var (
		result map[string]any
		err    error
	)
	func() { // panic safety
		defer func() {
			if r := recover(); r != nil {
				err = panicError(r)
				e.logger.Error("agent.function.panic", "agent", e.agent, "function", fc.Name, "recover", r)
			}
		}()
		result, err = e.executeTool(toolCtx, fc.Name, fc.Arguments)
	}()

	payload := tool.Payload(result, err)
	failed := tool.IsErrorPayload(payload)
	status := metrics.StatusOK
	if failed {
		status = metrics.StatusError
	}
	metrics.ToolCalls.WithLabelValues(e.agent, fc.Name, status).Inc()

	e.logger.Info(
		"agent.tool.executed",
		"agent", e.agent,
		"thread_id", e.threadID,
		"tool", fc.Name,
		"function_call_id", fc.ID,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", failed,
	)
	return payload
}

// executeTool centralizes tool lookup and argument decoding.
func (e *functionExecutor) executeTool(toolCtx *core.ToolContext, toolName, args string) (map[string]any, error) {
	impl, ok := e.tools[toolName]
	if !ok {
		return nil, tool.NewToolError(toolName, fmt.Sprintf("Unknown tool: %s", toolName), tool.CodeUnknown)
	}

	argMap := map[string]any{}
	if strings.TrimSpace(args) != "" {
		if err := json.Unmarshal([]byte(args), &argMap); err != nil {
			return nil, tool.NewToolError(toolName, fmt.Sprintf("Invalid arguments for %s: %v", toolName, err), tool.CodeValidation)
		}
	}

	return impl.Call(toolCtx, argMap)
}

// panicError converts a recovered panic value to an error.
func panicError(r any) error { return &panicErr{val: r, stack: debug.Stack()} }

type panicErr struct {
	val   any
	stack []byte
}

func (p *panicErr) Error() string { return "panic recovered" }
