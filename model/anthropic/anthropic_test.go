package anthropic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohamed711/customer-support-agent/core"
	"github.com/Mohamed711/customer-support-agent/model"
)

func TestBuildMessages_ToolResultInUserTurn(t *testing.T) {
	m := NewModel(func(o *Options) { o.APIKey = "test" })
	call := core.FunctionCall{ID: "toolu_1", Name: "get_ticket_info", Arguments: `{"ticket_id":"T-003"}`}

	msgs := m.buildMessages([]core.Content{
		core.NewTextContent(core.RoleSystem, "Ticket reference: T-003"),
		core.NewTextContent(core.RoleUser, "my account is blocked"),
		{Role: core.RoleAssistant, Parts: []core.Part{core.FunctionCallPart{FunctionCall: call}}},
		core.NewFunctionResponseContent(call, map[string]any{"status": "open"}),
	})

	require.Len(t, msgs, 3)
	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
	assert.Equal(t, "user", string(msgs[2].Role))
	require.Len(t, msgs[2].Content, 1)
	assert.NotNil(t, msgs[2].Content[0].OfToolResult)
}

func TestBuildMessages_ClosesTrailingAssistantTurn(t *testing.T) {
	m := NewModel(func(o *Options) { o.APIKey = "test" })
	call := core.FunctionCall{ID: "toolu_1", Name: "get_ticket_info", Arguments: `{"ticket_id":"T-001"}`}

	// The classifier's final reply is the last entry when the retriever starts.
	contents := []core.Content{
		core.NewTextContent(core.RoleSystem, "Ticket reference: T-001"),
		core.NewTextContent(core.RoleUser, "I can't log in"),
		{Role: core.RoleAssistant, Parts: []core.Part{core.FunctionCallPart{FunctionCall: call}}},
		core.NewFunctionResponseContent(call, map[string]any{"status": "open"}),
		core.NewTextContent(core.RoleAssistant, `CLASSIFIED: {"issue_type":"login","urgency":"high"}`),
	}

	msgs := m.buildMessages(contents)
	n := len(msgs)
	require.Equal(t, 5, n)
	assert.Equal(t, "assistant", string(msgs[n-2].Role))
	assert.Equal(t, "user", string(msgs[n-1].Role))
	require.Len(t, msgs[n-1].Content, 1)
	require.NotNil(t, msgs[n-1].Content[0].OfText)
	assert.Equal(t, ContinuePrompt, msgs[n-1].Content[0].OfText.Text)

	params := m.buildParams(model.Request{
		Instructions: "You are the Retriever. Search the knowledge base for the classified issue.",
		Contents:     contents,
		Tools:        []model.ToolDefinition{{Type: "function", Function: model.FunctionDefinition{Name: "search_knowledge_base"}}},
	})
	require.NotEmpty(t, params.Messages)
	assert.Equal(t, "user", string(params.Messages[len(params.Messages)-1].Role))

	// Transcripts that already end in a user turn are left alone.
	msgs = m.buildMessages(contents[:2])
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", string(msgs[0].Role))
}

func TestGenerate_StreamingUnsupported(t *testing.T) {
	m := NewModel(func(o *Options) { o.APIKey = "test" })
	out, errCh := m.Generate(context.Background(), model.Request{
		Contents: []core.Content{core.NewTextContent(core.RoleUser, "hi")},
		Stream:   true,
	})

	for range out {
		t.Fatal("no response expected for a streaming request")
	}
	err := <-errCh
	require.Error(t, err)
	assert.Contains(t, err.Error(), "streaming requests are not supported")
}

func TestBuildParams_StructuredForcesTool(t *testing.T) {
	m := NewModel(func(o *Options) { o.APIKey = "test" })
	params := m.buildParams(model.Request{
		Instructions: "Classify the ticket.",
		Tools:        []model.ToolDefinition{{Type: "function", Function: model.FunctionDefinition{Name: "get_ticket_info"}}},
		ResponseFormat: &model.ResponseFormat{
			Name: "classification_result",
			Schema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"urgency": map[string]any{"type": "string"}},
				"required":   []string{"urgency"},
			},
		},
	})

	require.Len(t, params.Tools, 1)
	assert.Equal(t, "classification_result", params.Tools[0].OfTool.Name)
	require.NotNil(t, params.ToolChoice.OfTool)
	assert.Equal(t, "classification_result", params.ToolChoice.OfTool.Name)
	require.Len(t, params.System, 1)
	assert.Equal(t, "Classify the ticket.", params.System[0].Text)
}
