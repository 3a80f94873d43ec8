package support

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohamed711/customer-support-agent/agent"
	"github.com/Mohamed711/customer-support-agent/checkpoint"
	"github.com/Mohamed711/customer-support-agent/config"
	"github.com/Mohamed711/customer-support-agent/core"
	"github.com/Mohamed711/customer-support-agent/logging"
	"github.com/Mohamed711/customer-support-agent/store"
	"github.com/Mohamed711/customer-support-agent/supervisor"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Model:      config.ModelConfig{Provider: "mock"},
		Limits:     config.LimitsConfig{AgentSteps: 15, TurnSteps: 60},
		Store:      config.StoreConfig{Driver: store.DriverSQLite, DSN: filepath.Join(t.TempDir(), "support.db"), Seed: true},
		Checkpoint: config.CheckpointConfig{Backend: "memory"},
		Log:        config.LogConfig{Backend: "none"},
	}
}

func newSystem(t *testing.T, cfg *config.Config, optFns ...func(o *Options)) *System {
	t.Helper()
	sys, err := New(context.Background(), cfg, optFns...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sys.Close() })
	return sys
}

func TestDemo_Resolved(t *testing.T) {
	sys := newSystem(t, testConfig(t))
	ctx := context.Background()

	res, err := sys.RunTurn(ctx, "T-001", "How do I cancel my CultPass subscription?")
	require.NoError(t, err)
	assert.Equal(t, supervisor.StateResolve, res.Route)
	assert.False(t, res.Escalated)
	assert.Equal(t, "subscription", res.Classification.IssueType)
	assert.Equal(t, agent.BandFull, res.Retrieval.Band())
	assert.Contains(t, res.Reply, "How to cancel your CultPass subscription")

	tk, err := sys.Store.GetTicket(ctx, "T-001")
	require.NoError(t, err)
	assert.Equal(t, store.StatusResolved, tk.Status)
	assert.Contains(t, tk.Tags, "urgency:low")
}

func TestDemo_EscalatedOnLowConfidence(t *testing.T) {
	sys := newSystem(t, testConfig(t))
	ctx := context.Background()

	res, err := sys.RunTurn(ctx, "T-003", "My account was blocked without any notice. Please unblock immediately.")
	require.NoError(t, err)
	assert.Equal(t, []supervisor.State{
		supervisor.StateNew, supervisor.StateClassify, supervisor.StateRetrieve,
		supervisor.StateRouteDecision, supervisor.StateEscalate, supervisor.StateDone,
	}, res.Path)
	assert.True(t, res.Escalated)
	assert.Contains(t, res.Reply, "4 hours")

	tk, err := sys.Store.GetTicket(ctx, "T-003")
	require.NoError(t, err)
	assert.Equal(t, store.StatusEscalated, tk.Status)
}

func TestDemo_ResolverHandsOff(t *testing.T) {
	sys := newSystem(t, testConfig(t))

	res, err := sys.RunTurn(context.Background(), "T-002", "I was charged twice for January. Please refund the duplicate payment.")
	require.NoError(t, err)
	assert.Equal(t, []supervisor.State{
		supervisor.StateNew, supervisor.StateClassify, supervisor.StateRetrieve,
		supervisor.StateRouteDecision, supervisor.StateResolve, supervisor.StateEscalate, supervisor.StateDone,
	}, res.Path)
	assert.Contains(t, res.Reply, "24 hours")
	assert.NotEqual(t, agent.EscalationSentinel, res.Reply)
}

func TestNew_RedisCheckpoints(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := testConfig(t)
	cfg.Checkpoint.Backend = "redis"
	sys := newSystem(t, cfg, func(o *Options) {
		o.Redis = client
		o.Logger = logging.NoOpLogger{}
	})
	ctx := context.Background()

	_, err := sys.RunTurn(ctx, "T-001", "How do I cancel my CultPass subscription?")
	require.NoError(t, err)
	assert.True(t, mr.Exists(checkpoint.DefaultKeyPrefix+"T-001"))

	// second turn reads the JSON checkpoint back and skips the classifier
	res, err := sys.RunTurn(ctx, "T-001", "And can I pause it instead?")
	require.NoError(t, err)
	assert.NotContains(t, res.Path, supervisor.StateClassify)

	th, err := sys.Checkpoints.Get(ctx, "T-001")
	require.NoError(t, err)
	var users int
	for _, m := range th.Transcript.Messages() {
		if m.Role == core.RoleUser {
			users++
		}
	}
	assert.Equal(t, 2, users)
	assert.Equal(t, 2, th.Turns)
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Error(t, err)

	cfg := testConfig(t)
	cfg.Store.Driver = "mysql"
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewModel(t *testing.T) {
	for provider, want := range map[string]string{"openai": "openai", "anthropic": "anthropic", "mock": "mock"} {
		m, err := NewModel(config.ModelConfig{Provider: provider, Name: "x", APIKey: "k"})
		require.NoError(t, err, provider)
		assert.Equal(t, want, m.Info().Provider)
	}
	_, err := NewModel(config.ModelConfig{Provider: "llama"})
	assert.Error(t, err)
}

func TestDemoClassify(t *testing.T) {
	assert.Equal(t, "account", demoClassify("My account is BLOCKED").IssueType)
	assert.Equal(t, "billing", demoClassify("please refund me").IssueType)
	c := demoClassify("hello")
	assert.Equal(t, "general", c.IssueType)
	assert.True(t, strings.HasPrefix(c.Summary, "CLASSIFIED:"))
}
