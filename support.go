// Package support assembles the customer-support orchestrator from a
// config.Config: the ticket store, the knowledge catalog, the tool gateway,
// the four specialist agents, the checkpoint store and the supervisor.
//
// Most applications interact with this package by:
//  1. Loading configuration via config.Load
//  2. Creating a System via New (optionally overriding the model or Redis client)
//  3. Running turns with System.RunTurn and closing the System when done
package support

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/redis/go-redis/v9"

	"github.com/Mohamed711/customer-support-agent/agent"
	"github.com/Mohamed711/customer-support-agent/checkpoint"
	"github.com/Mohamed711/customer-support-agent/config"
	"github.com/Mohamed711/customer-support-agent/gateway"
	"github.com/Mohamed711/customer-support-agent/knowledge"
	"github.com/Mohamed711/customer-support-agent/logging"
	"github.com/Mohamed711/customer-support-agent/model"
	anthropicmodel "github.com/Mohamed711/customer-support-agent/model/anthropic"
	openaimodel "github.com/Mohamed711/customer-support-agent/model/openai"
	"github.com/Mohamed711/customer-support-agent/store"
	"github.com/Mohamed711/customer-support-agent/supervisor"
)

// Options override pieces New would otherwise build from the config.
type Options struct {
	// Logger defaults to one built from cfg.Log.
	Logger logging.Logger
	// Model replaces the configured provider.
	Model model.Model
	// Redis replaces the client dialled from checkpoint.redis_addr.
	Redis redis.UniversalClient
	// Embedder replaces the OpenAI embedder when knowledge.embeddings is set.
	Embedder knowledge.Embedder
}

// System is a fully wired orchestrator.
type System struct {
	Config      *config.Config
	Logger      logging.Logger
	Store       *store.Store
	Gateway     *gateway.Gateway
	Checkpoints checkpoint.Store
	Supervisor  *supervisor.Supervisor

	closers []func() error
}

// New builds a System from cfg.
func New(ctx context.Context, cfg *config.Config, optFns ...func(o *Options)) (sys *System, err error) {
	if cfg == nil {
		return nil, errors.New("support: config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		if opts.Logger, err = logging.New(cfg.Logging()); err != nil {
			return nil, err
		}
	}

	sys = &System{Config: cfg, Logger: opts.Logger}
	defer func() {
		if err != nil {
			_ = sys.Close()
			sys = nil
		}
	}()

	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN, func(o *store.Options) { o.Logger = opts.Logger })
	if err != nil {
		return nil, err
	}
	sys.Store = st
	sys.closers = append(sys.closers, st.Close)
	if cfg.Store.Seed {
		if err := st.Seed(ctx, store.DefaultFixture()); err != nil {
			return nil, fmt.Errorf("support: seed: %w", err)
		}
	}

	rdb := opts.Redis
	needRedis := cfg.Checkpoint.Backend == "redis" || (cfg.Knowledge.Embeddings && opts.Embedder == nil)
	if rdb == nil && needRedis {
		client := redis.NewClient(&redis.Options{Addr: cfg.Checkpoint.RedisAddr})
		sys.closers = append(sys.closers, client.Close)
		rdb = client
	}

	var embedder knowledge.Embedder
	if cfg.Knowledge.Embeddings {
		embedder = opts.Embedder
		if embedder == nil {
			base := knowledge.NewOpenAIEmbedder(func(o *knowledge.OpenAIEmbedderOptions) {
				o.Model = cfg.Knowledge.EmbeddingModel
				o.APIKey = cfg.Model.APIKey
				o.BaseURL = cfg.Model.BaseURL
			})
			embedder = knowledge.NewCachedEmbedder(base, knowledge.NewRedisCache(rdb, ""), cfg.Knowledge.CacheTTL)
		}
	}
	catalog, err := knowledge.BuildCatalog(ctx, st, embedder, opts.Logger)
	if err != nil {
		return nil, err
	}
	sys.Gateway = gateway.New(st, catalog, func(o *gateway.Options) { o.Logger = opts.Logger })

	llm := opts.Model
	if llm == nil {
		if llm, err = NewModel(cfg.Model); err != nil {
			return nil, err
		}
	}
	if cfg.Model.RatePerSecond > 0 {
		llm = model.NewRateLimited(llm, cfg.Model.RatePerSecond, cfg.Model.Burst)
	}

	agents, err := newAgents(cfg, llm, sys.Gateway, opts.Logger)
	if err != nil {
		return nil, err
	}

	switch cfg.Checkpoint.Backend {
	case "redis":
		sys.Checkpoints = checkpoint.NewRedisStore(rdb, func(o *checkpoint.RedisOptions) {
			o.TTL = cfg.Checkpoint.TTL
			o.Logger = opts.Logger
		})
	default:
		sys.Checkpoints = checkpoint.NewInMemoryStore()
	}

	sys.Supervisor, err = supervisor.New(agents, sys.Checkpoints, func(o *supervisor.Options) {
		o.Logger = opts.Logger
		o.TurnStepLimit = cfg.Limits.TurnSteps
	})
	if err != nil {
		return nil, err
	}
	opts.Logger.Info("support.system.ready", "provider", cfg.Model.Provider, "model", llm.Info().Name,
		"store", cfg.Store.Driver, "checkpoint", cfg.Checkpoint.Backend, "embeddings", cfg.Knowledge.Embeddings)
	return sys, nil
}

// RunTurn runs one turn on the supervisor.
func (s *System) RunTurn(ctx context.Context, threadID, text string, opts ...supervisor.TurnOption) (*supervisor.TurnResult, error) {
	return s.Supervisor.RunTurn(ctx, threadID, text, opts...)
}

// Close releases every resource New opened, newest first.
func (s *System) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// NewModel builds the configured model provider. The mock provider is the
// offline demo model.
func NewModel(cfg config.ModelConfig) (model.Model, error) {
	switch cfg.Provider {
	case "openai":
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
			o.Temperature = cfg.Temperature
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		}), nil
	case "anthropic":
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			if cfg.Name != "" {
				o.Model = anthropic.Model(cfg.Name)
			}
			o.Temperature = cfg.Temperature
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		}), nil
	case "mock":
		return NewDemoModel(), nil
	default:
		return nil, fmt.Errorf("support: unknown model provider %q", cfg.Provider)
	}
}

func newAgents(cfg *config.Config, llm model.Model, src agent.ToolSource, logger logging.Logger) (supervisor.Agents, error) {
	rt := agent.NewRuntime(llm, func(o *agent.RuntimeOptions) {
		o.Logger = logger
		o.MaxSteps = cfg.Limits.AgentSteps
	})
	p := cfg.Prompts

	classifier, err := agent.NewClassifier(rt, src, func(o *agent.ClassifierOptions) {
		o.Prompt = p.Classifier
		o.ExtractPrompt = p.ClassifierExtract
	})
	if err != nil {
		return supervisor.Agents{}, err
	}
	retriever, err := agent.NewRetriever(rt, src, func(o *agent.RetrieverOptions) {
		o.Prompt = p.Retriever
		o.ExtractPrompt = p.RetrieverExtract
	})
	if err != nil {
		return supervisor.Agents{}, err
	}
	resolver, err := agent.NewResolver(rt, src, func(o *agent.ResolverOptions) { o.Prompt = p.Resolver })
	if err != nil {
		return supervisor.Agents{}, err
	}
	escalation, err := agent.NewEscalation(rt, src, func(o *agent.EscalationOptions) { o.Prompt = p.Escalation })
	if err != nil {
		return supervisor.Agents{}, err
	}
	return supervisor.Agents{
		Classifier: classifier,
		Retriever:  retriever,
		Resolver:   resolver,
		Escalation: escalation,
	}, nil
}
