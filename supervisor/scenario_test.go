package supervisor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohamed711/customer-support-agent/agent"
	"github.com/Mohamed711/customer-support-agent/checkpoint"
	"github.com/Mohamed711/customer-support-agent/core"
	"github.com/Mohamed711/customer-support-agent/gateway"
	"github.com/Mohamed711/customer-support-agent/knowledge"
	"github.com/Mohamed711/customer-support-agent/model"
	"github.com/Mohamed711/customer-support-agent/store"
)

// script is a scripted model for one scenario. Each agent is recognised by
// its prompt; a step is chosen from the tail of the request.
type script struct {
	ticket         string
	classification map[string]any
	confidence     float64
	resolver       func(req model.Request) model.Response
	escalationText string

	mu     sync.Mutex
	agents []string
}

func (s *script) seen(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents = append(s.agents, name)
}

func (s *script) saw(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.agents {
		if a == name {
			return true
		}
	}
	return false
}

func lastIsToolResult(req model.Request) bool {
	if len(req.Contents) == 0 {
		return false
	}
	return req.Contents[len(req.Contents)-1].Role == core.RoleTool
}

func (s *script) handle(_ context.Context, req model.Request) (model.Response, error) {
	if rf := req.ResponseFormat; rf != nil {
		switch rf.Name {
		case "classification":
			return model.JSONResponse(s.classification), nil
		case "retrieval_result":
			return model.JSONResponse(map[string]any{
				"confidence": s.confidence, "articles_found": 1,
				"retrieved_articles": []map[string]any{{"title": "t", "summary": "s", "relevance": "r"}},
			}), nil
		}
	}

	switch {
	case strings.Contains(req.Instructions, "Classifier Agent"):
		s.seen("classifier")
		if lastIsToolResult(req) {
			return model.TextResponse("CLASSIFIED"), nil
		}
		return model.ToolCallResponse(model.Call(gateway.UpdateTicketStatus, map[string]any{
			"ticket_id": s.ticket, "status": "in_progress", "issue_type": s.classification["issue_type"],
			"tags": fmt.Sprintf("urgency:%s,sentiment:%s", s.classification["urgency"], s.classification["sentiment"]),
		})), nil

	case strings.Contains(req.Instructions, "Retriever Agent"):
		s.seen("retriever")
		if lastIsToolResult(req) {
			return model.TextResponse("searched"), nil
		}
		return model.ToolCallResponse(model.Call(gateway.SearchKnowledgeBase, map[string]any{
			"query": req.Contents[len(req.Contents)-1].Text(),
		})), nil

	case strings.Contains(req.Instructions, "Resolver Agent"):
		s.seen("resolver")
		return s.resolver(req), nil

	case strings.Contains(req.Instructions, "Escalation Agent"):
		s.seen("escalation")
		if lastIsToolResult(req) {
			return model.TextResponse(s.escalationText), nil
		}
		return model.ToolCallResponse(
			model.Call(gateway.GetTicketInfo, map[string]any{"ticket_id": s.ticket}),
			model.Call(gateway.AddTicketMessage, map[string]any{"ticket_id": s.ticket, "role": "system", "content": "Escalation note: manual review required."}),
			model.Call(gateway.AddTicketMessage, map[string]any{"ticket_id": s.ticket, "role": "agent", "content": s.escalationText}),
			model.Call(gateway.UpdateTicketStatus, map[string]any{"ticket_id": s.ticket, "status": "escalated"}),
		), nil
	}
	return model.Response{}, fmt.Errorf("unexpected request: %.40q", req.Instructions)
}

type harness struct {
	store       *store.Store
	checkpoints *checkpoint.InMemoryStore
	supervisor  *Supervisor
	llm         *model.MockModel
}

func newHarness(t *testing.T, sc *script, optFns ...func(o *agent.RuntimeOptions)) *harness {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(ctx, store.DriverSQLite, filepath.Join(t.TempDir(), "support.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Seed(ctx, store.DefaultFixture()))

	catalog, err := knowledge.BuildCatalog(ctx, st, nil, nil)
	require.NoError(t, err)
	gw := gateway.New(st, catalog)

	llm := model.NewMockModel("scripted").WithHandler(sc.handle)
	rt := agent.NewRuntime(llm, optFns...)

	classifier, err := agent.NewClassifier(rt, gw)
	require.NoError(t, err)
	retriever, err := agent.NewRetriever(rt, gw)
	require.NoError(t, err)
	resolver, err := agent.NewResolver(rt, gw)
	require.NoError(t, err)
	escalation, err := agent.NewEscalation(rt, gw)
	require.NoError(t, err)

	cps := checkpoint.NewInMemoryStore()
	sup, err := New(Agents{Classifier: classifier, Retriever: retriever, Resolver: resolver, Escalation: escalation}, cps)
	require.NoError(t, err)
	return &harness{store: st, checkpoints: cps, supervisor: sup, llm: llm}
}

func rolesOf(msgs []store.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Role)
	}
	return out
}

// Scenario A: known low urgency topic, a directly relevant article, resolved.
func TestScenario_ResolvedFromKnowledgeBase(t *testing.T) {
	reply := "To cancel your CultPass subscription, open Settings > Subscription and choose Cancel. It stays active until the end of the billing period."
	sc := &script{
		ticket:     "T-001",
		confidence: 0.92,
		resolver: func(req model.Request) model.Response {
			if lastIsToolResult(req) {
				return model.TextResponse(reply)
			}
			return model.ToolCallResponse(
				model.Call(gateway.GetTicketInfo, map[string]any{"ticket_id": "T-001"}),
				model.Call(gateway.AddTicketMessage, map[string]any{"ticket_id": "T-001", "content": reply}),
				model.Call(gateway.UpdateTicketStatus, map[string]any{"ticket_id": "T-001", "status": "resolved"}),
			)
		},
	}
	h := newHarness(t, sc)
	ctx := context.Background()

	prior := checkpoint.NewThread("T-001", h.supervisor.now())
	prior.Classification = &agent.ClassificationResult{IssueType: "subscription", Urgency: "low", Sentiment: "neutral"}
	require.NoError(t, h.checkpoints.Put(ctx, prior))

	res, err := h.supervisor.RunTurn(ctx, "T-001", "How do I cancel my CultPass subscription?")
	require.NoError(t, err)
	assert.Equal(t, []State{StateNew, StateRetrieve, StateRouteDecision, StateResolve, StateDone}, res.Path)
	assert.Equal(t, reply, res.Reply)
	assert.NotEqual(t, agent.EscalationSentinel, res.Reply)
	assert.Contains(t, strings.ToLower(res.Reply), "cancel")
	assert.Equal(t, agent.BandFull, res.Retrieval.Band())
	assert.False(t, sc.saw("classifier"))
	assert.False(t, sc.saw("escalation"))

	// the search tool really ran against the seeded articles
	var found bool
	for _, m := range res.Messages {
		for _, fr := range m.FunctionResponses() {
			if fr.Name == gateway.SearchKnowledgeBase {
				arts := fr.Response["articles"].([]map[string]any)
				require.NotEmpty(t, arts)
				assert.Equal(t, "How to cancel your CultPass subscription", arts[0]["title"])
				found = true
			}
		}
	}
	assert.True(t, found)

	tk, err := h.store.GetTicket(ctx, "T-001")
	require.NoError(t, err)
	assert.Equal(t, store.StatusResolved, tk.Status)
	assert.Equal(t, []string{"user", "agent"}, rolesOf(tk.Messages))
}

// Scenario B: high urgency blocked account with no unblocking article goes
// straight to escalation.
func TestScenario_HighUrgencyEscalatesDirectly(t *testing.T) {
	sc := &script{
		ticket:         "T-003",
		classification: map[string]any{"issue_type": "account", "urgency": "high", "sentiment": "frustrated", "summary": "blocked"},
		confidence:     0.45,
		resolver: func(model.Request) model.Response {
			return model.TextResponse("should not run")
		},
		escalationText: "I'm sorry your account was blocked. A specialist will contact you within 4 hours. Reference: T-003.",
	}
	h := newHarness(t, sc)
	ctx := context.Background()

	res, err := h.supervisor.RunTurn(ctx, "T-003", "My account was blocked without any warning! Please unblock it.")
	require.NoError(t, err)
	assert.Equal(t, []State{StateNew, StateClassify, StateRetrieve, StateRouteDecision, StateEscalate, StateDone}, res.Path)
	assert.False(t, sc.saw("resolver"))
	assert.True(t, res.Escalated)
	assert.Equal(t, "CLASSIFIED: issue_type=account, urgency=high, sentiment=frustrated", res.Classification.Summary)
	assert.Contains(t, res.Reply, "4 hours")

	tk, err := h.store.GetTicket(ctx, "T-003")
	require.NoError(t, err)
	assert.Equal(t, store.StatusEscalated, tk.Status)
	assert.Equal(t, "account", tk.IssueType)
	assert.Contains(t, tk.Tags, "urgency:high")
	assert.Equal(t, []string{"user", "system", "agent"}, rolesOf(tk.Messages))

	for _, req := range h.llm.Calls() {
		if strings.Contains(req.Instructions, "Escalation Agent") {
			assert.Contains(t, req.Instructions, "within 4 hours")
		}
	}
}

// Scenario C: the resolver declines a refund with the sentinel and the
// escalation agent takes over.
func TestScenario_ResolverSentinelHandsOver(t *testing.T) {
	sc := &script{
		ticket:         "T-002",
		classification: map[string]any{"issue_type": "billing", "urgency": "medium", "sentiment": "negative"},
		confidence:     0.7,
		resolver: func(req model.Request) model.Response {
			if lastIsToolResult(req) {
				resp := model.ToolCallResponse(model.Call(gateway.AddTicketMessage, map[string]any{
					"ticket_id": "T-002", "content": "This must never be written.",
				}))
				resp.Content.Parts = append([]core.Part{core.TextPart{Text: agent.EscalationSentinel}}, resp.Content.Parts...)
				return resp
			}
			return model.ToolCallResponse(model.Call(gateway.GetTicketInfo, map[string]any{"ticket_id": "T-002"}))
		},
		escalationText: "A billing specialist will review your refund and reply within 24 hours. Reference: T-002.",
	}
	h := newHarness(t, sc)
	ctx := context.Background()

	res, err := h.supervisor.RunTurn(ctx, "T-002", "I was charged twice, I want a refund.")
	require.NoError(t, err)
	assert.Equal(t, []State{StateNew, StateClassify, StateRetrieve, StateRouteDecision, StateResolve, StateEscalate, StateDone}, res.Path)
	assert.Equal(t, StateResolve, res.Route)
	assert.True(t, res.Escalated)
	assert.Equal(t, sc.escalationText, res.Reply)

	tk, err := h.store.GetTicket(ctx, "T-002")
	require.NoError(t, err)
	assert.Equal(t, store.StatusEscalated, tk.Status)
	assert.Equal(t, []string{"user", "system", "agent"}, rolesOf(tk.Messages))
	for _, m := range tk.Messages {
		assert.NotEqual(t, "This must never be written.", m.Content)
	}

	var sawSentinel bool
	for _, m := range res.Messages {
		if m.Role == core.RoleAssistant && m.Text() == agent.EscalationSentinel {
			sawSentinel = true
		}
	}
	assert.True(t, sawSentinel)
}

// An agent that never stops calling tools is cut off by its step ceiling.
func TestScenario_StepCeiling(t *testing.T) {
	sc := &script{
		ticket:         "T-001",
		classification: map[string]any{"issue_type": "subscription", "urgency": "low", "sentiment": "neutral"},
		confidence:     0.9,
		resolver: func(model.Request) model.Response {
			return model.ToolCallResponse(model.Call(gateway.GetTicketInfo, map[string]any{"ticket_id": "T-001"}))
		},
	}
	h := newHarness(t, sc, func(o *agent.RuntimeOptions) { o.MaxSteps = 4 })
	ctx := context.Background()

	res, err := h.supervisor.RunTurn(ctx, "T-001", "How do I cancel?")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStepLimitExceeded)
	assert.ErrorContains(t, err, "agent:resolver")
	assert.Equal(t, FallbackText, res.Reply)

	th, err := h.checkpoints.Get(ctx, "T-001")
	require.NoError(t, err)
	assert.Equal(t, th.Transcript.Len(), len(res.Messages)+1)
	assert.NotNil(t, th.Retrieval)
}
