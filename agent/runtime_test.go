package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Mohamed711/customer-support-agent/core"
	"github.com/Mohamed711/customer-support-agent/logging"
	"github.com/Mohamed711/customer-support-agent/model"
	"github.com/Mohamed711/customer-support-agent/tool"
)

func counterTool(name string, hits *int) tool.Tool {
	return tool.NewFunctionTool(name, "counts", map[string]any{"type": "object"},
		func(_ *core.ToolContext, args map[string]any) (map[string]any, error) {
			*hits++
			return map[string]any{"n": *hits}, nil
		})
}

func TestRun_DonePolicy(t *testing.T) {
	llm := model.NewMockModel("m").Enqueue(model.TextResponse("hello there"))
	rt := NewRuntime(llm)
	tr := core.NewTranscript(core.NewTextContent(core.RoleUser, "hi"))

	out, err := rt.Run(context.Background(), Invocation{Agent: "a", Instructions: "be nice", Transcript: tr})
	require.NoError(t, err)
	assert.Equal(t, "hello there", out.Text)
	assert.Equal(t, 1, out.Steps)
	assert.Equal(t, 2, tr.Len())

	calls := llm.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "be nice", calls[0].Instructions)
	assert.Empty(t, calls[0].Tools)
}

func TestRun_ToolLoopInOrder(t *testing.T) {
	var hits int
	llm := model.NewMockModel("m").Enqueue(
		model.ToolCallResponse(model.Call("count", nil), model.Call("count", map[string]any{"x": 1})),
		model.TextResponse("done"),
	)
	rt := NewRuntime(llm)
	tr := core.NewTranscript(core.NewTextContent(core.RoleUser, "hi"))

	out, err := rt.Run(context.Background(), Invocation{Agent: "a", Tools: []tool.Tool{counterTool("count", &hits)}, Transcript: tr})
	require.NoError(t, err)
	assert.Equal(t, 2, hits)
	assert.Equal(t, 2, out.ToolCalls)
	assert.Equal(t, "done", out.Text)

	msgs := tr.Messages()
	require.Len(t, msgs, 5) // user, assistant calls, 2 results, final
	first := msgs[2].FunctionResponses()[0]
	second := msgs[3].FunctionResponses()[0]
	assert.Equal(t, 1, first.Response["n"])
	assert.Equal(t, 2, second.Response["n"])
	assert.Equal(t, msgs[1].FunctionCalls()[0].ID, first.ID)

	// second request saw the tool results and had the tool bound
	calls := llm.Calls()
	require.Len(t, calls, 2)
	assert.Len(t, calls[1].Contents, 4)
	assert.Equal(t, "count", calls[1].Tools[0].Function.Name)
}

func TestRun_UnknownToolAndBadArgs(t *testing.T) {
	var hits int
	llm := model.NewMockModel("m").Enqueue(
		model.ToolCallResponse(
			model.Call("missing", nil),
			core.FunctionCall{Name: "count", Arguments: "{not json"},
		),
		model.TextResponse("ok"),
	)
	tr := core.NewTranscript()
	_, err := NewRuntime(llm).Run(context.Background(), Invocation{Agent: "a", Tools: []tool.Tool{counterTool("count", &hits)}, Transcript: tr})
	require.NoError(t, err)
	assert.Zero(t, hits)

	msgs := tr.Messages()
	assert.Equal(t, map[string]any{"error": "Unknown tool: missing"}, msgs[1].FunctionResponses()[0].Response)
	assert.Contains(t, msgs[2].FunctionResponses()[0].Response["error"], "Invalid arguments for count")
}

func TestRun_ToolPanicBecomesPayload(t *testing.T) {
	boom := tool.NewFunctionTool("boom", "panics", map[string]any{"type": "object"},
		func(*core.ToolContext, map[string]any) (map[string]any, error) { panic("oops") })
	llm := model.NewMockModel("m").Enqueue(model.ToolCallResponse(model.Call("boom", nil)), model.TextResponse("ok"))
	tr := core.NewTranscript()

	out, err := NewRuntime(llm).Run(context.Background(), Invocation{Agent: "a", Tools: []tool.Tool{boom}, Transcript: tr})
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Text)
	assert.True(t, tool.IsErrorPayload(tr.Messages()[1].FunctionResponses()[0].Response))
}

func TestRun_StopBeforeTools(t *testing.T) {
	var hits int
	stopMsg := model.ToolCallResponse(model.Call("count", nil))
	stopMsg.Content.Parts = append([]core.Part{core.TextPart{Text: "STOP"}}, stopMsg.Content.Parts...)
	llm := model.NewMockModel("m").Enqueue(stopMsg)
	tr := core.NewTranscript()

	out, err := NewRuntime(llm).Run(context.Background(), Invocation{
		Agent:      "a",
		Tools:      []tool.Tool{counterTool("count", &hits)},
		Transcript: tr,
		StopWhen:   func(m core.Content) bool { return m.Text() == "STOP" },
	})
	require.NoError(t, err)
	assert.True(t, out.Stopped)
	assert.Zero(t, hits)
	require.Equal(t, 1, tr.Len())
	last, _ := tr.Last()
	assert.Equal(t, "STOP", last.Text())
	assert.Empty(t, last.FunctionCalls())
}

func TestRun_AgentStepLimit(t *testing.T) {
	var hits int
	llm := model.NewMockModel("m").WithHandler(func(context.Context, model.Request) (model.Response, error) {
		return model.ToolCallResponse(model.Call("count", nil)), nil
	})
	rt := NewRuntime(llm, func(o *RuntimeOptions) { o.MaxSteps = 3 })

	out, err := rt.Run(context.Background(), Invocation{Agent: "loop", Tools: []tool.Tool{counterTool("count", &hits)}, Transcript: core.NewTranscript()})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStepLimitExceeded)
	assert.NotErrorIs(t, err, core.ErrModel)

	var sle *core.StepLimitError
	require.ErrorAs(t, err, &sle)
	assert.Equal(t, "agent:loop", sle.Scope)
	assert.Equal(t, 3, hits)
	assert.Equal(t, 4, out.Steps)
	assert.Len(t, llm.Calls(), 3)
}

func TestRun_TurnLimitChargesToolCalls(t *testing.T) {
	var hits int
	llm := model.NewMockModel("m").WithHandler(func(context.Context, model.Request) (model.Response, error) {
		return model.ToolCallResponse(model.Call("count", nil), model.Call("count", nil)), nil
	})
	turn := core.NewStepLimiter("turn", 4)

	_, err := NewRuntime(llm).Run(context.Background(), Invocation{
		Agent: "a", Tools: []tool.Tool{counterTool("count", &hits)}, Transcript: core.NewTranscript(), TurnLimiter: turn,
	})
	var sle *core.StepLimitError
	require.ErrorAs(t, err, &sle)
	assert.Equal(t, "turn", sle.Scope)
	// model, tool, tool, model, then the next tool exceeds
	assert.Equal(t, 2, hits)
	assert.Equal(t, 5, turn.Count())
}

func TestRun_CompleteLogsTurnBudget(t *testing.T) {
	obs, logs := observer.New(zap.DebugLevel)
	var hits int
	llm := model.NewMockModel("m").Enqueue(
		model.ToolCallResponse(model.Call("count", nil)),
		model.TextResponse("done"),
	)
	rt := NewRuntime(llm, func(o *RuntimeOptions) { o.Logger = logging.NewZapAdapter(zap.New(obs)) })
	turn := core.NewStepLimiter("turn", 10)

	_, err := rt.Run(context.Background(), Invocation{
		Agent: "a", Tools: []tool.Tool{counterTool("count", &hits)}, Transcript: core.NewTranscript(), TurnLimiter: turn,
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("agent.run.complete").All()
	require.Len(t, entries, 1)
	// model, tool, model
	assert.Equal(t, int64(7), entries[0].ContextMap()["turn_steps_left"])
	assert.Equal(t, 7, turn.Remaining())
}

func TestRun_ModelError(t *testing.T) {
	llm := model.NewMockModel("m").WithHandler(func(context.Context, model.Request) (model.Response, error) {
		return model.Response{}, errors.New("503 upstream")
	})
	_, err := NewRuntime(llm).Run(context.Background(), Invocation{Agent: "a", Transcript: core.NewTranscript()})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrModel)
	assert.ErrorContains(t, err, "503 upstream")

	var me *core.ModelError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "a", me.Agent)
}

func TestRun_ExtractPolicy(t *testing.T) {
	llm := model.NewMockModel("m").Enqueue(
		model.TextResponse("thinking done"),
		model.JSONResponse(map[string]any{"name": "x"}),
	)
	var into struct {
		Name string `json:"name"`
	}
	format := &model.ResponseFormat{Name: "thing", Schema: map[string]any{
		"type":       "object",
		"properties": map[string]any{"name": map[string]any{"type": "string"}},
		"required":   []string{"name"},
	}}
	tr := core.NewTranscript()

	out, err := NewRuntime(llm).Run(context.Background(), Invocation{
		Agent: "a", Instructions: "react", ExtractInstructions: "extract", Transcript: tr,
		Policy: PolicyExtract, ResponseFormat: format, Into: &into,
	})
	require.NoError(t, err)
	assert.Equal(t, "x", into.Name)
	assert.Equal(t, 2, out.Steps)
	assert.Equal(t, 1, tr.Len(), "the extraction pass does not touch the transcript")

	calls := llm.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "extract", calls[1].Instructions)
	assert.NotNil(t, calls[1].ResponseFormat)
	assert.Empty(t, calls[1].Tools)
}

func TestRun_ExtractMalformed(t *testing.T) {
	llm := model.NewMockModel("m").Enqueue(model.TextResponse("ok"), model.TextResponse("not json"))
	var into map[string]any
	_, err := NewRuntime(llm).Run(context.Background(), Invocation{
		Agent: "a", Transcript: core.NewTranscript(), Policy: PolicyExtract,
		ResponseFormat: &model.ResponseFormat{Name: "f", Schema: map[string]any{"type": "object"}}, Into: &into,
	})
	assert.ErrorIs(t, err, core.ErrModel)
	assert.ErrorIs(t, err, model.ErrMalformedOutput)
}

func TestRun_InvalidInvocation(t *testing.T) {
	rt := NewRuntime(model.NewMockModel("m"))
	_, err := rt.Run(context.Background(), Invocation{Agent: "a"})
	assert.Error(t, err)

	_, err = rt.Run(context.Background(), Invocation{Agent: "a", Transcript: core.NewTranscript(), Policy: PolicyExtract})
	assert.Error(t, err)
	assert.Empty(t, rt.Model().(*model.MockModel).Calls())
}
