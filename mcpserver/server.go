// Package mcpserver publishes a tool registry as a Model Context Protocol
// server, so external MCP clients can call the same CultPass tools the agents
// use.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Mohamed711/customer-support-agent/core"
	"github.com/Mohamed711/customer-support-agent/logging"
	"github.com/Mohamed711/customer-support-agent/tool"
)

// Name is the server name announced to clients.
const Name = "CultPass Tools"

// AgentName attributes MCP calls in tool contexts and logs.
const AgentName = "mcp"

// Options configure a server.
type Options struct {
	Version  string
	ThreadID string // thread id recorded on every tool context
	Logger   logging.Logger
}

// New registers every tool in reg, sorted by name.
func New(reg *tool.Registry, optFns ...func(o *Options)) (*server.MCPServer, error) {
	opts := Options{
		Version:  "dev",
		ThreadID: AgentName,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := server.NewMCPServer(Name, opts.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	for _, name := range reg.Names() {
		t, _ := reg.Get(name)
		schema, err := json.Marshal(t.Parameters())
		if err != nil {
			return nil, fmt.Errorf("mcp: encode schema for %s: %w", name, err)
		}
		s.AddTool(mcp.NewToolWithRawSchema(name, t.Description(), schema), handler(t, opts))
	}
	return s, nil
}

// ServeStdio serves s with newline delimited JSON-RPC on in and out until
// in is closed or ctx is done.
func ServeStdio(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s).Listen(ctx, in, out)
}

// handler runs t and returns its payload as JSON text. Error payloads are
// flagged with IsError; they are results, not protocol errors.
func handler(t tool.Tool, opts Options) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		if args == nil {
			args = map[string]any{}
		}

		toolCtx := core.NewToolContext(ctx, opts.ThreadID, AgentName, uuid.NewString(), opts.Logger)
		payload := tool.Payload(t.Call(toolCtx, args))

		data, err := json.Marshal(payload)
		if err != nil {
			opts.Logger.Error("mcp.tool.encode_failed", "tool", t.Name(), "error", err.Error())
			return nil, fmt.Errorf("mcp: encode %s result: %w", t.Name(), err)
		}

		failed := tool.IsErrorPayload(payload)
		opts.Logger.Info("mcp.tool.called", "tool", t.Name(), "failed", failed)
		if failed {
			return mcp.NewToolResultError(string(data)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}
