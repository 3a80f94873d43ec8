package supervisor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohamed711/customer-support-agent/agent"
	"github.com/Mohamed711/customer-support-agent/checkpoint"
	"github.com/Mohamed711/customer-support-agent/core"
)

// fakeAgents implements every specialist with canned results.
type fakeAgents struct {
	mu sync.Mutex

	cls    *agent.ClassificationResult
	clsErr error
	ret    *agent.RetrievalResult
	retErr error
	out    agent.ResolverOutcome
	resErr error
	reply  string

	classified, retrieved, resolved, escalated int
	escUrgency                                 string

	entered chan struct{}
	block   chan struct{}
}

func newFakeAgents() *fakeAgents {
	return &fakeAgents{
		cls:   &agent.ClassificationResult{IssueType: "subscription", Urgency: "low", Sentiment: "neutral"},
		ret:   &agent.RetrievalResult{Confidence: 0.9, ArticlesFound: 1},
		out:   agent.ResolverOutcome{Kind: agent.Resolved, Text: "Here is how to cancel."},
		reply: "A specialist will follow up.",
	}
}

func (f *fakeAgents) agents() Agents {
	return Agents{Classifier: f, Retriever: f, Resolver: f, Escalation: f}
}

func (f *fakeAgents) Classify(_ context.Context, task agent.Task) (*agent.ClassificationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.classified++
	if f.clsErr != nil {
		return nil, f.clsErr
	}
	task.Transcript.Append(core.NewTextContent(core.RoleAssistant, f.cls.CanonicalSummary()))
	c := *f.cls
	return &c, nil
}

func (f *fakeAgents) Retrieve(_ context.Context, task agent.Task) (*agent.RetrievalResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retrieved++
	if f.retErr != nil {
		return nil, f.retErr
	}
	task.Transcript.Append(core.NewTextContent(core.RoleAssistant, f.ret.Marker()))
	r := *f.ret
	return &r, nil
}

func (f *fakeAgents) Resolve(_ context.Context, task agent.Task) (agent.ResolverOutcome, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved++
	if f.resErr != nil {
		return agent.ResolverOutcome{}, f.resErr
	}
	task.Transcript.Append(core.NewTextContent(core.RoleAssistant, f.out.Text))
	return f.out, nil
}

func (f *fakeAgents) Escalate(_ context.Context, task agent.Task, urgency string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.escalated++
	f.escUrgency = urgency
	task.Transcript.Append(core.NewTextContent(core.RoleAssistant, f.reply))
	return f.reply, nil
}

func newSupervisor(t *testing.T, f *fakeAgents, optFns ...func(o *Options)) (*Supervisor, *checkpoint.InMemoryStore) {
	t.Helper()
	store := checkpoint.NewInMemoryStore()
	s, err := New(f.agents(), store, optFns...)
	require.NoError(t, err)
	return s, store
}

func TestRunTurn_NewThreadResolves(t *testing.T) {
	f := newFakeAgents()
	s, store := newSupervisor(t, f)
	ctx := context.Background()

	res, err := s.RunTurn(ctx, "T-001", "How do I cancel?")
	require.NoError(t, err)
	assert.Equal(t, []State{StateNew, StateClassify, StateRetrieve, StateRouteDecision, StateResolve, StateDone}, res.Path)
	assert.Equal(t, StateResolve, res.Route)
	assert.Equal(t, "Here is how to cancel.", res.Reply)
	assert.False(t, res.Escalated)
	assert.Equal(t, 5, res.Steps)
	assert.Zero(t, f.escalated)

	th, err := store.Get(ctx, "T-001")
	require.NoError(t, err)
	msgs := th.Transcript.Messages()
	assert.Equal(t, core.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Text(), "T-001")
	assert.Equal(t, "How do I cancel?", msgs[1].Text())
	assert.Equal(t, 1, th.Turns)
	assert.Equal(t, "low", th.Classification.Urgency)
	assert.Len(t, res.Messages, 4, "user, summary, marker, reply")
}

func TestRunTurn_FollowUpSkipsClassifier(t *testing.T) {
	f := newFakeAgents()
	s, store := newSupervisor(t, f)
	ctx := context.Background()

	_, err := s.RunTurn(ctx, "T-001", "first")
	require.NoError(t, err)
	res, err := s.RunTurn(ctx, "T-001", "and the refund timeline?")
	require.NoError(t, err)
	assert.Equal(t, []State{StateNew, StateRetrieve, StateRouteDecision, StateResolve, StateDone}, res.Path)
	assert.Equal(t, 1, f.classified)
	assert.Equal(t, 2, f.retrieved)

	_, err = s.RunTurn(ctx, "T-001", "different question", WithTopicChanged())
	require.NoError(t, err)
	assert.Equal(t, 2, f.classified)

	th, err := store.Get(ctx, "T-001")
	require.NoError(t, err)
	assert.Equal(t, 3, th.Turns)
	systemMsgs := 0
	for _, m := range th.Transcript.Messages() {
		if m.Role == core.RoleSystem {
			systemMsgs++
		}
	}
	assert.Equal(t, 1, systemMsgs)
}

func TestRunTurn_LowConfidenceEscalatesDirectly(t *testing.T) {
	f := newFakeAgents()
	f.cls.Urgency = "high"
	f.ret.Confidence = 0.7
	s, _ := newSupervisor(t, f)

	res, err := s.RunTurn(context.Background(), "T-003", "blocked!")
	require.NoError(t, err)
	assert.Equal(t, []State{StateNew, StateClassify, StateRetrieve, StateRouteDecision, StateEscalate, StateDone}, res.Path)
	assert.Zero(t, f.resolved)
	assert.Equal(t, "high", f.escUrgency)
	assert.True(t, res.Escalated)
	assert.Equal(t, f.reply, res.Reply)
}

func TestRunTurn_ResolverSentinelEscalates(t *testing.T) {
	f := newFakeAgents()
	f.out = agent.ResolverOutcome{Kind: agent.NeedsEscalation, Text: agent.EscalationSentinel}
	s, _ := newSupervisor(t, f)

	res, err := s.RunTurn(context.Background(), "T-002", "refund please")
	require.NoError(t, err)
	assert.Equal(t, []State{StateNew, StateClassify, StateRetrieve, StateRouteDecision, StateResolve, StateEscalate, StateDone}, res.Path)
	assert.Equal(t, StateResolve, res.Route)
	assert.Equal(t, 1, f.escalated)
	assert.Equal(t, f.reply, res.Reply)
}

func TestRunTurn_FailureReturnsFallbackAndCheckpoints(t *testing.T) {
	f := newFakeAgents()
	f.retErr = core.NewModelError("retriever", errors.New("upstream 500"))
	s, store := newSupervisor(t, f)
	ctx := context.Background()

	res, err := s.RunTurn(ctx, "T-009", "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrModel)
	require.NotNil(t, res)
	assert.Equal(t, FallbackText, res.Reply)
	assert.NotContains(t, res.Reply, "upstream")
	assert.Equal(t, []State{StateNew, StateClassify, StateRetrieve}, res.Path)

	th, err := store.Get(ctx, "T-009")
	require.NoError(t, err)
	assert.Equal(t, 3, th.Transcript.Len(), "system, user, classification summary")
	assert.NotNil(t, th.Classification)
	assert.Zero(t, th.Turns)
}

func TestRunTurn_TurnLimitCountsTransitions(t *testing.T) {
	f := newFakeAgents()
	s, _ := newSupervisor(t, f, func(o *Options) { o.TurnStepLimit = 3 })

	res, err := s.RunTurn(context.Background(), "T-001", "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStepLimitExceeded)
	assert.Equal(t, FallbackText, res.Reply)
	assert.Equal(t, []State{StateNew, StateClassify, StateRetrieve, StateRouteDecision}, res.Path)
}

func TestRunTurn_RejectsConcurrentTurn(t *testing.T) {
	f := newFakeAgents()
	f.entered = make(chan struct{})
	f.block = make(chan struct{})
	s, _ := newSupervisor(t, f)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := s.RunTurn(ctx, "T-001", "first")
		done <- err
	}()
	<-f.entered

	res, err := s.RunTurn(ctx, "T-001", "second")
	assert.ErrorIs(t, err, ErrThreadBusy)
	assert.Nil(t, res)

	close(f.block)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("first turn did not finish")
	}

	f.entered = nil
	_, err = s.RunTurn(ctx, "T-001", "third")
	assert.NoError(t, err)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Agents{}, checkpoint.NewInMemoryStore())
	assert.Error(t, err)
	_, err = New(newFakeAgents().agents(), nil)
	assert.Error(t, err)

	s, _ := newSupervisor(t, newFakeAgents())
	_, err = s.RunTurn(context.Background(), "", "hi")
	assert.Error(t, err)
}

type brokenStore struct{ checkpoint.Store }

func (brokenStore) Get(context.Context, string) (*checkpoint.Thread, error) {
	return nil, errors.New("redis: connection refused")
}

func TestRunTurn_StoreOutage(t *testing.T) {
	s, err := New(newFakeAgents().agents(), brokenStore{})
	require.NoError(t, err)

	res, err := s.RunTurn(context.Background(), "T-001", "hi")
	require.Error(t, err)
	assert.Equal(t, FallbackText, res.Reply)
	assert.Equal(t, []State{StateNew}, res.Path)
}
