package model

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Mohamed711/customer-support-agent/core"
)

// MockHandler produces the final response for one request.
type MockHandler func(ctx context.Context, req Request) (Response, error)

// MockModel is a lightweight in‑memory Model useful for tests & demos. Every
// call is recorded; responses come from a handler or a FIFO script.
type MockModel struct {
	info    Info
	mu      sync.Mutex
	handler MockHandler
	script  []Response
	calls   []Request
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{info: Info{Name: name, Provider: "mock", SupportsTools: true}}
}

// WithHandler sets the function answering every request.
func (m *MockModel) WithHandler(h MockHandler) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = h
	return m
}

// Enqueue appends scripted responses served in order when no handler is set.
func (m *MockModel) Enqueue(resps ...Response) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, resps...)
	return m
}

// Calls returns a copy of every recorded request.
func (m *MockModel) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// Generate implements Model; emits optional streaming char chunks then the final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.calls = append(m.calls, req)
	handler := m.handler
	var scripted *Response
	if handler == nil && len(m.script) > 0 {
		r := m.script[0]
		m.script = m.script[1:]
		scripted = &r
	}
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)

		var (
			resp Response
			err  error
		)
		switch {
		case handler != nil:
			resp, err = handler(ctx, req)
		case scripted != nil:
			resp = *scripted
		default:
			err = fmt.Errorf("mock model %s: no scripted response left", m.info.Name)
		}
		if err != nil {
			errCh <- err
			return
		}
		resp.Partial = false
		if resp.Content.Role == "" {
			resp.Content.Role = core.RoleAssistant
		}
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- resp:
		}
	}()
	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }

// TextResponse builds a final assistant response with plain text.
func TextResponse(text string) Response {
	return Response{
		Content:      core.NewTextContent(core.RoleAssistant, text),
		FinishReason: "stop",
	}
}

// ToolCallResponse builds a final assistant response requesting tool calls.
// Arguments are JSON encoded; call ids are generated when empty.
func ToolCallResponse(calls ...core.FunctionCall) Response {
	parts := make([]core.Part, 0, len(calls))
	for _, c := range calls {
		if c.ID == "" {
			c.ID = core.NewID()
		}
		parts = append(parts, core.FunctionCallPart{FunctionCall: c})
	}
	return Response{
		Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
		FinishReason: "tool_calls",
	}
}

// Call is a convenience constructor for a FunctionCall with map arguments.
func Call(name string, args map[string]any) core.FunctionCall {
	data, _ := json.Marshal(args)
	return core.FunctionCall{Name: name, Arguments: string(data)}
}

// JSONResponse builds a final response whose text is v encoded as JSON,
// which is what Extract expects back from a structured request.
func JSONResponse(v any) Response {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("mock json response: %v", err))
	}
	return TextResponse(string(data))
}
