package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohamed711/customer-support-agent/core"
	"github.com/Mohamed711/customer-support-agent/gateway"
	"github.com/Mohamed711/customer-support-agent/model"
)

func TestToolSubsets(t *testing.T) {
	src := newFakeSource()
	rt := NewRuntime(model.NewMockModel("m"))

	c, err := NewClassifier(rt, src)
	require.NoError(t, err)
	assert.Equal(t, []string{gateway.GetTicketInfo, gateway.UpdateTicketStatus}, c.ToolNames())

	r, err := NewRetriever(rt, src)
	require.NoError(t, err)
	assert.Equal(t, []string{gateway.SearchKnowledgeBase}, r.ToolNames())

	res, err := NewResolver(rt, src)
	require.NoError(t, err)
	assert.Len(t, res.ToolNames(), 11)
	assert.NotContains(t, res.ToolNames(), gateway.SearchKnowledgeBase)

	e, err := NewEscalation(rt, src)
	require.NoError(t, err)
	assert.Equal(t, EscalationTools, e.ToolNames())

	_, err = NewClassifier(nil, src)
	assert.Error(t, err)
}

func TestClassifier_Classify(t *testing.T) {
	src := newFakeSource()
	llm := model.NewMockModel("m").Enqueue(
		model.ToolCallResponse(model.Call(gateway.UpdateTicketStatus, map[string]any{
			"ticket_id": "T-001", "status": "in_progress", "issue_type": "subscription", "tags": "urgency:low,sentiment:neutral",
		})),
		model.TextResponse("CLASSIFIED: issue_type=subscription, urgency=low, sentiment=neutral"),
		model.JSONResponse(map[string]any{
			"issue_type": "subscription", "urgency": "low", "sentiment": "neutral", "summary": "cancel request",
		}),
	)
	c, err := NewClassifier(NewRuntime(llm), src)
	require.NoError(t, err)

	task := newTask("T-001")
	res, err := c.Classify(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, "subscription", res.IssueType)
	assert.Equal(t, "CLASSIFIED: issue_type=subscription, urgency=low, sentiment=neutral", res.Summary)
	assert.Equal(t, []string{gateway.UpdateTicketStatus}, src.rec.names())

	calls := llm.Calls()
	require.Len(t, calls, 3)
	assert.Contains(t, calls[0].Instructions, "ticket T-001")
	assert.Equal(t, "classification", calls[2].ResponseFormat.Name)
}

func TestClassifier_RejectsUnknownLabel(t *testing.T) {
	llm := model.NewMockModel("m").Enqueue(
		model.TextResponse("done"),
		model.JSONResponse(map[string]any{"issue_type": "refund", "urgency": "low", "sentiment": "neutral"}),
	)
	c, err := NewClassifier(NewRuntime(llm), newFakeSource())
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), newTask("T-1"))
	assert.ErrorIs(t, err, core.ErrModel)
	assert.ErrorIs(t, err, model.ErrMalformedOutput)
}

func TestClassificationResult_Validate(t *testing.T) {
	ok := ClassificationResult{IssueType: "login", Urgency: "high", Sentiment: "frustrated"}
	assert.NoError(t, ok.Validate())

	bad := ok
	bad.Urgency = "urgent"
	assert.ErrorIs(t, bad.Validate(), model.ErrMalformedOutput)
	bad = ok
	bad.Sentiment = "angry"
	assert.Error(t, bad.Validate())
}

func TestRetriever_AppendsMarker(t *testing.T) {
	src := newFakeSource()
	llm := model.NewMockModel("m").Enqueue(
		model.ToolCallResponse(model.Call(gateway.SearchKnowledgeBase, map[string]any{"query": "cancel subscription"})),
		model.TextResponse("searched"),
		model.JSONResponse(map[string]any{
			"confidence": 1.4, "articles_found": 1,
			"retrieved_articles": []map[string]any{{"title": "How to cancel", "summary": "steps", "relevance": "direct"}},
		}),
	)
	r, err := NewRetriever(NewRuntime(llm), src)
	require.NoError(t, err)

	task := newTask("T-001")
	res, err := r.Retrieve(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Confidence, "clamped")
	assert.Equal(t, BandFull, res.Band())
	require.Len(t, res.Articles, 1)

	assert.Equal(t, "RETRIEVAL_RESULT: confidence=1.00, articles_found=1", task.Transcript.LastText(core.RoleAssistant))
	back, ok := LastRetrieval(task.Transcript)
	require.True(t, ok)
	assert.Equal(t, 1.0, back.Confidence)
	assert.Equal(t, 1, back.ArticlesFound)
}

func TestBandFor_Exhaustive(t *testing.T) {
	cases := map[float64]Band{
		0: BandNone, 0.39: BandNone, 0.399999: BandNone,
		0.40: BandTangential, 0.59: BandTangential,
		0.60: BandPartial, 0.79: BandPartial, 0.7999: BandPartial,
		0.80: BandFull, 1: BandFull,
	}
	for c, want := range cases {
		assert.Equal(t, want, BandFor(c), "confidence %v", c)
	}
	for i := 0; i <= 100; i++ {
		b := BandFor(float64(i) / 100)
		assert.Contains(t, []Band{BandFull, BandPartial, BandTangential, BandNone}, b)
	}
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0.0, ClampConfidence(-0.2))
	assert.Equal(t, 1.0, ClampConfidence(7))
	assert.Equal(t, 0.5, ClampConfidence(0.5))
}

func TestParseRetrievalMarker(t *testing.T) {
	r, ok := ParseRetrievalMarker("RETRIEVAL_RESULT: confidence=0.35, articles_found=0")
	require.True(t, ok)
	assert.Equal(t, 0.35, r.Confidence)
	assert.Equal(t, BandNone, r.Band())

	for _, s := range []string{"", "RETRIEVAL_RESULT: confidence=high, articles_found=1", "note: RETRIEVAL_RESULT: confidence=0.5, articles_found=1"} {
		_, ok := ParseRetrievalMarker(s)
		assert.False(t, ok, s)
	}

	orig := RetrievalResult{Confidence: 0.754, ArticlesFound: 3}
	back, ok := ParseRetrievalMarker(orig.Marker())
	require.True(t, ok)
	assert.Equal(t, 0.75, back.Confidence)
}

func TestResolver_Resolved(t *testing.T) {
	src := newFakeSource()
	llm := model.NewMockModel("m").Enqueue(
		model.ToolCallResponse(
			model.Call(gateway.AddTicketMessage, map[string]any{"ticket_id": "T-001", "content": "Go to Settings."}),
			model.Call(gateway.UpdateTicketStatus, map[string]any{"ticket_id": "T-001", "status": "resolved"}),
		),
		model.TextResponse("Go to Settings > Subscription > Cancel."),
	)
	r, err := NewResolver(NewRuntime(llm), src)
	require.NoError(t, err)

	out, err := r.Resolve(context.Background(), newTask("T-001"))
	require.NoError(t, err)
	assert.Equal(t, Resolved, out.Kind)
	assert.Equal(t, "Go to Settings > Subscription > Cancel.", out.Text)
	assert.Equal(t, []string{gateway.AddTicketMessage, gateway.UpdateTicketStatus}, src.rec.names())
}

func TestResolver_SentinelHaltsBeforeTools(t *testing.T) {
	src := newFakeSource()
	msg := model.ToolCallResponse(model.Call(gateway.UpdateTicketStatus, map[string]any{"ticket_id": "T-003", "status": "escalated"}))
	msg.Content.Parts = append(msg.Content.Parts, core.TextPart{Text: EscalationSentinel})
	llm := model.NewMockModel("m").Enqueue(msg)

	r, err := NewResolver(NewRuntime(llm), src)
	require.NoError(t, err)

	task := newTask("T-003")
	out, err := r.Resolve(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, NeedsEscalation, out.Kind)
	assert.Equal(t, EscalationSentinel, out.Text)
	assert.Empty(t, src.rec.names(), "no tool call after the sentinel")
	assert.Len(t, llm.Calls(), 1)
	assert.Equal(t, EscalationSentinel, task.Transcript.LastText(core.RoleAssistant))
}

func TestResolver_DecoratedSentinelIsResolved(t *testing.T) {
	for _, text := range []string{"NEEDS_ESCALATION.", " NEEDS_ESCALATION", "I think this NEEDS_ESCALATION"} {
		llm := model.NewMockModel("m").Enqueue(model.TextResponse(text))
		r, err := NewResolver(NewRuntime(llm), newFakeSource())
		require.NoError(t, err)

		out, err := r.Resolve(context.Background(), newTask("T-1"))
		require.NoError(t, err)
		assert.Equal(t, Resolved, out.Kind, text)
		assert.Equal(t, text, out.Text)
	}
}

func TestEscalation_FollowUpWindow(t *testing.T) {
	assert.Equal(t, "4 hours", FollowUpWindow("high"))
	assert.Equal(t, "24 hours", FollowUpWindow("medium"))
	assert.Equal(t, "24 hours", FollowUpWindow("low"))
	assert.Equal(t, "4 hours", FollowUpWindow(""))

	for urgency, window := range map[string]string{"high": "4 hours", "low": "24 hours"} {
		src := newFakeSource()
		reply := fmt.Sprintf("A specialist will contact you within %s. Reference: T-003.", window)
		llm := model.NewMockModel("m").Enqueue(
			model.ToolCallResponse(
				model.Call(gateway.AddTicketMessage, map[string]any{"ticket_id": "T-003", "content": "note", "role": "system"}),
				model.Call(gateway.AddTicketMessage, map[string]any{"ticket_id": "T-003", "content": reply, "role": "agent"}),
				model.Call(gateway.UpdateTicketStatus, map[string]any{"ticket_id": "T-003", "status": "escalated"}),
			),
			model.TextResponse(reply),
		)
		e, err := NewEscalation(NewRuntime(llm), src)
		require.NoError(t, err)

		text, err := e.Escalate(context.Background(), newTask("T-003"), urgency)
		require.NoError(t, err)
		assert.Equal(t, reply, text)

		prompt := llm.Calls()[0].Instructions
		assert.Contains(t, prompt, "within "+window)
		assert.Contains(t, prompt, "Urgency: "+urgency)
		assert.True(t, strings.Contains(prompt, "T-003"))
	}
}

func TestInstruction_Resolve(t *testing.T) {
	inst := NewInstructionFromText("ticket {{.ticket_id}} ({{upper .urgency}})")
	assert.True(t, inst.IsStatic())
	got, err := inst.Resolve(map[string]any{"ticket_id": "T-9", "urgency": "low"})
	require.NoError(t, err)
	assert.Equal(t, "ticket T-9 (LOW)", got)

	dyn := NewInstructionFromFunc(func(state map[string]any) (string, error) {
		return fmt.Sprintf("dynamic %v", state["ticket_id"]), nil
	})
	assert.False(t, dyn.IsStatic())
	got, err = dyn.Resolve(map[string]any{"ticket_id": "T-1"})
	require.NoError(t, err)
	assert.Equal(t, "dynamic T-1", got)

	_, err = NewInstructionFromText("{{.broken").Resolve(nil)
	assert.Error(t, err)
	assert.True(t, Instruction{}.IsZero())
}

func TestPromptOverride(t *testing.T) {
	llm := model.NewMockModel("m").Enqueue(model.TextResponse("ok"))
	r, err := NewResolver(NewRuntime(llm), newFakeSource(), func(o *ResolverOptions) { o.Prompt = "custom for {{.ticket_id}}" })
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), newTask("T-7"))
	require.NoError(t, err)
	assert.Equal(t, "custom for T-7", llm.Calls()[0].Instructions)
}
