// Package gateway exposes the ticket store, the CultPass account data and the
// knowledge search as tools. It is the only path through which agents touch
// external state.
//
// Every gateway tool honours one contract: Call never returns a Go error.
// Failures of any kind (validation, missing records, store outages, panics)
// come back as {"error": "<message>"} payloads, and no domain field is ever
// mixed into an error payload.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mohamed711/customer-support-agent/core"
	"github.com/Mohamed711/customer-support-agent/knowledge"
	"github.com/Mohamed711/customer-support-agent/logging"
	"github.com/Mohamed711/customer-support-agent/store"
	"github.com/Mohamed711/customer-support-agent/tool"
)

// Tool names.
const (
	GetTicketInfo              = "get_ticket_info"
	UpdateTicketStatus         = "update_ticket_status"
	AddTicketMessage           = "add_ticket_message"
	GetCustomerTicketHistory   = "get_customer_ticket_history"
	GetUserPreferences         = "get_user_preferences"
	UpdateUserPreferences      = "update_user_preferences"
	GetCultPassUserInfo        = "get_cultpass_user_info"
	GetUserSubscription        = "get_user_subscription"
	GetUserReservations        = "get_user_reservations"
	SearchExperiencesByKeyword = "search_experiences_by_keyword"
	GetExperienceAvailability  = "get_experience_availability"
	SearchKnowledgeBase        = "search_knowledge_base"
)

// History limits for get_customer_ticket_history.
const (
	DefaultHistoryLimit = 5
	MaxHistoryLimit     = 20
)

// Store is the persistence surface the gateway needs.
type Store interface {
	GetTicket(ctx context.Context, id string) (*store.Ticket, error)
	UpdateTicket(ctx context.Context, id, status, issueType, tags string) (*store.Ticket, error)
	AddMessage(ctx context.Context, ticketID, role, content string) (*store.Message, error)
	TicketHistory(ctx context.Context, userID string, limit int) ([]store.TicketSummary, error)
	GetPreferences(ctx context.Context, userID string) (*store.Preferences, error)
	UpdatePreferences(ctx context.Context, userID string, patch store.PreferencesPatch) (*store.Preferences, error)
	GetUser(ctx context.Context, id string) (*store.User, error)
	GetSubscription(ctx context.Context, userID string) (*store.Subscription, error)
	GetReservations(ctx context.Context, userID string) ([]store.Reservation, error)
	GetExperience(ctx context.Context, id string) (*store.Experience, error)
}

// Options configure a Gateway.
type Options struct {
	Logger logging.Logger
}

// Gateway owns the tool catalogue.
type Gateway struct {
	store    Store
	catalog  *knowledge.Catalog
	logger   logging.Logger
	registry *tool.Registry
}

// New builds every tool over st and catalog and registers them.
func New(st Store, catalog *knowledge.Catalog, optFns ...func(o *Options)) *Gateway {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	g := &Gateway{
		store:    st,
		catalog:  catalog,
		logger:   opts.Logger,
		registry: tool.NewRegistry(),
	}
	for _, t := range g.tools() {
		g.registry.Register(&payloadTool{inner: t, logger: g.logger})
	}
	return g
}

// Registry returns the registry holding every gateway tool.
func (g *Gateway) Registry() *tool.Registry { return g.registry }

// Tools returns the named tools, in order.
func (g *Gateway) Tools(names ...string) ([]tool.Tool, error) {
	return g.registry.Subset(names...)
}

// payloadTool enforces the payload contract around a tool.
type payloadTool struct {
	inner  tool.Tool
	logger logging.Logger
}

func (p *payloadTool) Name() string               { return p.inner.Name() }
func (p *payloadTool) Description() string        { return p.inner.Description() }
func (p *payloadTool) Parameters() map[string]any { return p.inner.Parameters() }

// Call never returns an error.
func (p *payloadTool) Call(toolCtx *core.ToolContext, args map[string]any) (result map[string]any, _ error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("gateway.tool.panic", "tool", p.inner.Name(), "panic", fmt.Sprint(r))
			result = tool.ErrorPayload(fmt.Sprintf("An error occurred while running %s.", p.inner.Name()))
		}
	}()

	res, err := p.inner.Call(toolCtx, args)
	if err != nil {
		p.logger.Warn("gateway.tool.error", "tool", p.inner.Name(), "thread_id", toolCtx.ThreadID(),
			"agent", toolCtx.AgentName(), "error", err.Error())
	}
	return tool.Payload(res, err), nil
}

// lookupError converts a store failure into a ToolError whose message is safe
// to show the model.
func lookupError(toolName string, err error, generic string) error {
	var nf *store.NotFoundError
	if errors.As(err, &nf) {
		return tool.NewToolError(toolName, notFoundMessage(nf), tool.CodeNotFound)
	}
	return &tool.ToolError{Tool: toolName, Message: generic, Code: tool.CodeExecution, Details: err.Error()}
}

func notFoundMessage(nf *store.NotFoundError) string {
	switch nf.Entity {
	case "ticket":
		return fmt.Sprintf("No ticket found with id: %s", nf.ID)
	case "user":
		return fmt.Sprintf("No CultPass user found with id: %s", nf.ID)
	case "subscription":
		return fmt.Sprintf("User %s has no active subscription.", nf.ID)
	case "experience":
		return fmt.Sprintf("No experience found with ID: %s", nf.ID)
	default:
		return nf.Error()
	}
}
