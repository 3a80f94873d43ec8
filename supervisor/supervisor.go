// Package supervisor drives one conversation turn through the specialist
// agents. Routing is a deterministic transition table over the classifier
// urgency, the retrieval confidence and the resolver outcome; no model is
// consulted for routing.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Mohamed711/customer-support-agent/agent"
	"github.com/Mohamed711/customer-support-agent/checkpoint"
	"github.com/Mohamed711/customer-support-agent/core"
	"github.com/Mohamed711/customer-support-agent/logging"
	"github.com/Mohamed711/customer-support-agent/metrics"
)

// FallbackText is the only reply a customer sees when a turn fails.
const FallbackText = "I encountered an error. Please try again."

// DefaultTurnStepLimit bounds transitions, model calls and tool calls of one turn.
const DefaultTurnStepLimit = 60

// ErrThreadBusy is returned when a turn is already running on the thread.
var ErrThreadBusy = errors.New("thread busy: a turn is already in progress")

// Classifier labels the topic of a thread.
type Classifier interface {
	Classify(ctx context.Context, task agent.Task) (*agent.ClassificationResult, error)
}

// Retriever scores knowledge coverage.
type Retriever interface {
	Retrieve(ctx context.Context, task agent.Task) (*agent.RetrievalResult, error)
}

// Resolver answers or asks for escalation.
type Resolver interface {
	Resolve(ctx context.Context, task agent.Task) (agent.ResolverOutcome, error)
}

// Escalator hands a ticket to a human.
type Escalator interface {
	Escalate(ctx context.Context, task agent.Task, urgency string) (string, error)
}

// Agents bundles the specialists.
type Agents struct {
	Classifier Classifier
	Retriever  Retriever
	Resolver   Resolver
	Escalation Escalator
}

func (a Agents) validate() error {
	if a.Classifier == nil || a.Retriever == nil || a.Resolver == nil || a.Escalation == nil {
		return errors.New("supervisor: every agent is required")
	}
	return nil
}

// Options configure a Supervisor.
type Options struct {
	Logger        logging.Logger
	TurnStepLimit int
	Now           func() time.Time
}

// Supervisor runs turns against a checkpoint store.
type Supervisor struct {
	agents    Agents
	store     checkpoint.Store
	logger    logging.Logger
	turnLimit int
	now       func() time.Time

	mu   sync.Mutex
	busy map[string]struct{}
}

// New creates a Supervisor.
func New(agents Agents, store checkpoint.Store, optFns ...func(o *Options)) (*Supervisor, error) {
	if err := agents.validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("supervisor: checkpoint store is required")
	}
	opts := Options{
		Logger:        logging.NoOpLogger{},
		TurnStepLimit: DefaultTurnStepLimit,
		Now:           time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.TurnStepLimit <= 0 {
		opts.TurnStepLimit = DefaultTurnStepLimit
	}
	return &Supervisor{
		agents:    agents,
		store:     store,
		logger:    opts.Logger,
		turnLimit: opts.TurnStepLimit,
		now:       opts.Now,
		busy:      make(map[string]struct{}),
	}, nil
}

// TurnOption adjusts a single turn.
type TurnOption func(o *turnOptions)

type turnOptions struct {
	topicChanged bool
}

// WithTopicChanged forces reclassification: the caller signals that the
// message opens a new topic on an existing thread.
func WithTopicChanged() TurnOption {
	return func(o *turnOptions) { o.topicChanged = true }
}

// TurnResult describes a finished turn.
type TurnResult struct {
	ThreadID       string
	Reply          string
	Path           []State
	Route          State // StateResolve or StateEscalate; empty if the turn failed earlier
	Escalated      bool
	Classification *agent.ClassificationResult
	Retrieval      *agent.RetrievalResult
	Steps          int
	Messages       []core.Content // appended by this turn
}

// RunTurn appends text to the thread and drives it from NEW to DONE.
//
// On failure the reply is FallbackText and the error is returned alongside
// it. The transcript up to the fault is checkpointed either way. Concurrent
// turns on one thread are rejected with ErrThreadBusy.
func (s *Supervisor) RunTurn(ctx context.Context, threadID, text string, opts ...TurnOption) (*TurnResult, error) {
	if threadID == "" {
		return nil, errors.New("supervisor: thread id is required")
	}
	if !s.acquire(threadID) {
		metrics.TurnsRejected.Inc()
		s.logger.Warn("supervisor.turn.rejected", "thread_id", threadID)
		return nil, ErrThreadBusy
	}
	defer s.release(threadID)

	var to turnOptions
	for _, o := range opts {
		o(&to)
	}

	start := time.Now()
	metrics.TurnsStarted.Inc()

	res := &TurnResult{ThreadID: threadID, Path: []State{StateNew}}

	th, err := s.load(ctx, threadID)
	if err != nil {
		return s.fail(ctx, nil, res, 0, start, err)
	}
	mark := th.Transcript.Len()
	th.Transcript.Append(core.NewTextContent(core.RoleUser, text))
	if to.topicChanged {
		th.Classification = nil
		th.Retrieval = nil
	}

	limiter := core.NewStepLimiter("turn", s.turnLimit)
	task := agent.Task{ThreadID: threadID, Transcript: th.Transcript, TurnLimiter: limiter}

	s.logger.Info("supervisor.turn.start", "thread_id", threadID, "topic_changed", to.topicChanged,
		"has_classification", th.Classification != nil)

	facts := Facts{HasClassification: th.Classification != nil, TopicChanged: to.topicChanged}
	state := StateNew
	for state != StateDone {
		next, err := Next(state, facts)
		if err != nil {
			return s.fail(ctx, th, res, mark, start, err)
		}
		if err := limiter.Increment(); err != nil {
			metrics.StepLimitHits.WithLabelValues("turn").Inc()
			return s.fail(ctx, th, res, mark, start, err)
		}
		s.logger.Debug("supervisor.transition", "thread_id", threadID, "from", state, "to", next)
		state = next
		res.Path = append(res.Path, state)

		switch state {
		case StateClassify:
			cls, err := s.agents.Classifier.Classify(ctx, task)
			if err != nil {
				return s.fail(ctx, th, res, mark, start, err)
			}
			th.Classification = cls
			th.Retrieval = nil
			facts.HasClassification = true
			s.logger.Info("supervisor.classified", "thread_id", threadID, "issue_type", cls.IssueType,
				"urgency", cls.Urgency, "sentiment", cls.Sentiment)

		case StateRetrieve:
			ret, err := s.agents.Retriever.Retrieve(ctx, task)
			if err != nil {
				return s.fail(ctx, th, res, mark, start, err)
			}
			th.Retrieval = ret
			metrics.RetrievalConfidence.WithLabelValues(string(ret.Band())).Observe(ret.Confidence)

		case StateRouteDecision:
			facts.Urgency = th.Classification.Urgency
			facts.Confidence = th.Retrieval.Confidence
			res.Route = Route(facts.Urgency, facts.Confidence)
			metrics.RouteDecisions.WithLabelValues(facts.Urgency, string(res.Route)).Inc()
			s.logger.Info("supervisor.route.decided", "thread_id", threadID, "urgency", facts.Urgency,
				"confidence", facts.Confidence, "threshold", Threshold(facts.Urgency), "route", res.Route)
			if res.Route == StateEscalate {
				metrics.Escalations.WithLabelValues("route").Inc()
			}

		case StateResolve:
			out, err := s.agents.Resolver.Resolve(ctx, task)
			if err != nil {
				return s.fail(ctx, th, res, mark, start, err)
			}
			if out.Kind == agent.NeedsEscalation {
				facts.NeedsEscalation = true
				metrics.Escalations.WithLabelValues("resolver").Inc()
				s.logger.Info("supervisor.resolver.escalated", "thread_id", threadID)
				continue
			}
			res.Reply = out.Text

		case StateEscalate:
			reply, err := s.agents.Escalation.Escalate(ctx, task, th.Classification.Urgency)
			if err != nil {
				return s.fail(ctx, th, res, mark, start, err)
			}
			res.Reply = reply
			res.Escalated = true
		}
	}

	th.Turns++
	th.UpdatedAt = s.now()
	res.Classification = th.Classification
	res.Retrieval = th.Retrieval
	res.Steps = limiter.Count()
	res.Messages = th.Transcript.Since(mark)

	if err := s.store.Put(ctx, th); err != nil {
		return s.fail(ctx, nil, res, mark, start, fmt.Errorf("supervisor: checkpoint: %w", err))
	}

	outcome := "resolved"
	if res.Escalated {
		outcome = "escalated"
	}
	metrics.TurnsCompleted.WithLabelValues(outcome).Inc()
	metrics.TurnDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	metrics.TurnSteps.Observe(float64(res.Steps))
	s.logger.Info("supervisor.turn.complete", "thread_id", threadID, "outcome", outcome,
		"steps", res.Steps, "duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

// load returns the stored thread or a new one seeded with the ticket context.
func (s *Supervisor) load(ctx context.Context, threadID string) (*checkpoint.Thread, error) {
	th, err := s.store.Get(ctx, threadID)
	if err == nil {
		return th, nil
	}
	if !errors.Is(err, checkpoint.ErrThreadNotFound) {
		return nil, fmt.Errorf("supervisor: load thread: %w", err)
	}
	th = checkpoint.NewThread(threadID, s.now())
	th.Transcript.Append(core.NewTextContent(core.RoleSystem,
		fmt.Sprintf("This conversation is about support ticket %s. Use this ticket id with the ticket tools.", threadID)))
	return th, nil
}

// fail records the failed turn, checkpoints th when given and returns the
// fallback reply with err.
func (s *Supervisor) fail(ctx context.Context, th *checkpoint.Thread, res *TurnResult, mark int, start time.Time, err error) (*TurnResult, error) {
	res.Reply = FallbackText
	if th != nil {
		th.UpdatedAt = s.now()
		res.Classification = th.Classification
		res.Retrieval = th.Retrieval
		res.Messages = th.Transcript.Since(mark)
		if perr := s.store.Put(ctx, th); perr != nil {
			s.logger.Error("supervisor.checkpoint.error", "thread_id", res.ThreadID, "error", perr.Error())
		}
	}

	metrics.TurnsCompleted.WithLabelValues("failed").Inc()
	metrics.TurnDuration.WithLabelValues("failed").Observe(time.Since(start).Seconds())
	s.logger.Error("supervisor.turn.failed", "thread_id", res.ThreadID, "path", res.Path,
		"step_limit", errors.Is(err, core.ErrStepLimitExceeded), "model", errors.Is(err, core.ErrModel),
		"error", err.Error())
	return res, err
}

func (s *Supervisor) acquire(threadID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.busy[threadID]; ok {
		return false
	}
	s.busy[threadID] = struct{}{}
	return true
}

func (s *Supervisor) release(threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.busy, threadID)
}
