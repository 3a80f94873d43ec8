package gateway

import (
	"fmt"
	"strings"

	"github.com/Mohamed711/customer-support-agent/core"
	"github.com/Mohamed711/customer-support-agent/knowledge"
	"github.com/Mohamed711/customer-support-agent/store"
	"github.com/Mohamed711/customer-support-agent/tool"
)

// Argument structs feed tool.NewFunctionToolFromStruct. Handlers still read
// the raw argument map; the structs only describe it.
type (
	ticketArgs struct {
		TicketID string `json:"ticket_id" description:"Ticket id, for example T-001"`
	}
	updateTicketStatusArgs struct {
		TicketID  string `json:"ticket_id" description:"Ticket id, for example T-001"`
		Status    string `json:"status" enum:"open,in_progress,resolved,escalated,closed" description:"New ticket status"`
		IssueType string `json:"issue_type,omitempty" description:"Main issue category, e.g. login, billing, reservation, subscription"`
		Tags      string `json:"tags,omitempty" description:"Comma separated tags to add"`
	}
	addTicketMessageArgs struct {
		TicketID string `json:"ticket_id" description:"Ticket id, for example T-001"`
		Content  string `json:"content" description:"Message text"`
		Role     string `json:"role,omitempty" description:"agent, user or system"`
	}
	ticketHistoryArgs struct {
		UserID string `json:"user_id" description:"CultPass user id"`
		Limit  int    `json:"limit,omitempty" description:"Maximum tickets to return (default 5, max 20)"`
	}
	userArgs struct {
		UserID string `json:"user_id" description:"CultPass user id"`
	}
	updatePreferencesArgs struct {
		UserID           string  `json:"user_id" description:"CultPass user id"`
		Language         *string `json:"language" description:"Preferred language code"`
		PreferredChannel *string `json:"preferred_channel" description:"Preferred contact channel"`
		Notes            *string `json:"notes" description:"Free form notes"`
	}
	keywordArgs struct {
		Keyword string `json:"keyword" description:"Keyword or phrase"`
	}
	experienceArgs struct {
		ExperienceID string `json:"experience_id" description:"Experience id"`
	}
	queryArgs struct {
		Query string `json:"query" description:"Natural language question or keywords"`
	}
)

func (g *Gateway) tools() []tool.Tool {
	return []tool.Tool{
		tool.NewFunctionToolFromStruct(GetTicketInfo,
			"Retrieve a support ticket with its metadata and full message history.",
			ticketArgs{}, g.getTicketInfo),
		tool.NewFunctionToolFromStruct(UpdateTicketStatus,
			"Update a ticket's status and classification. Tags are merged into the existing set.",
			updateTicketStatusArgs{}, g.updateTicketStatus),
		tool.NewFunctionToolFromStruct(AddTicketMessage,
			"Append a message to a ticket conversation. Role is agent, user or system (default agent).",
			addTicketMessageArgs{}, g.addTicketMessage),
		tool.NewFunctionToolFromStruct(GetCustomerTicketHistory,
			"List a customer's previous tickets, most recent first.",
			ticketHistoryArgs{}, g.getCustomerTicketHistory),
		tool.NewFunctionToolFromStruct(GetUserPreferences,
			"Read a customer's stored preferences (language, preferred channel, notes).",
			userArgs{}, g.getUserPreferences),
		tool.NewFunctionToolFromStruct(UpdateUserPreferences,
			"Update a customer's stored preferences. Omitted fields keep their value.",
			updatePreferencesArgs{}, g.updateUserPreferences),
		tool.NewFunctionToolFromStruct(GetCultPassUserInfo,
			"Retrieve a CultPass user's profile and account status (ACTIVE or BLOCKED).",
			userArgs{}, g.getCultPassUserInfo),
		tool.NewFunctionToolFromStruct(GetUserSubscription,
			"Retrieve a CultPass user's subscription status and tier.",
			userArgs{}, g.getUserSubscription),
		tool.NewFunctionToolFromStruct(GetUserReservations,
			"List a CultPass user's reservations with experience details.",
			userArgs{}, g.getUserReservations),
		tool.NewFunctionToolFromStruct(SearchExperiencesByKeyword,
			fmt.Sprintf("Search CultPass experiences by keyword; returns up to %d matches.", knowledge.ExperienceTopK),
			keywordArgs{}, g.searchExperiences),
		tool.NewFunctionToolFromStruct(GetExperienceAvailability,
			"Check the details and remaining slots of an experience.",
			experienceArgs{}, g.getExperienceAvailability),
		tool.NewFunctionToolFromStruct(SearchKnowledgeBase,
			fmt.Sprintf("Search the CultPass knowledge base; returns up to %d articles with title, content and tags.", knowledge.ArticleTopK),
			queryArgs{}, g.searchKnowledgeBase),
	}
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

func optionalString(args map[string]any, key string) *string {
	s, ok := args[key].(string)
	if !ok {
		return nil
	}
	return &s
}

func (g *Gateway) getTicketInfo(tc *core.ToolContext, args map[string]any) (map[string]any, error) {
	id := stringArg(args, "ticket_id")
	t, err := g.store.GetTicket(tc.Context(), id)
	if err != nil {
		return nil, lookupError(GetTicketInfo, err, fmt.Sprintf("An error occurred while retrieving ticket %s.", id))
	}

	msgs := make([]map[string]any, 0, len(t.Messages))
	for _, m := range t.Messages {
		msgs = append(msgs, map[string]any{"role": m.Role, "content": m.Content})
	}
	return map[string]any{
		"ticket_id":  t.ID,
		"channel":    t.Channel,
		"created_at": t.CreatedAt,
		"user":       t.UserName,
		"user_id":    t.UserID,
		"status":     t.Status,
		"issue_type": t.IssueType,
		"tags":       t.Tags,
		"messages":   msgs,
	}, nil
}

func (g *Gateway) updateTicketStatus(tc *core.ToolContext, args map[string]any) (map[string]any, error) {
	id := stringArg(args, "ticket_id")
	status := stringArg(args, "status")
	if !store.ValidStatus(status) {
		return nil, tool.NewToolError(UpdateTicketStatus,
			fmt.Sprintf("Invalid status %q. Valid values: %s.", status, strings.Join(store.Statuses, ", ")), tool.CodeValidation)
	}

	t, err := g.store.UpdateTicket(tc.Context(), id, status, stringArg(args, "issue_type"), stringArg(args, "tags"))
	if err != nil {
		return nil, lookupError(UpdateTicketStatus, err, fmt.Sprintf("An error occurred while updating ticket %s.", id))
	}
	return map[string]any{
		"ticket_id":  t.ID,
		"status":     t.Status,
		"issue_type": t.IssueType,
		"tags":       t.Tags,
	}, nil
}

func (g *Gateway) addTicketMessage(tc *core.ToolContext, args map[string]any) (map[string]any, error) {
	id := stringArg(args, "ticket_id")
	m, err := g.store.AddMessage(tc.Context(), id, stringArg(args, "role"), stringArg(args, "content"))
	if err != nil {
		return nil, lookupError(AddTicketMessage, err, fmt.Sprintf("An error occurred while adding a message to ticket %s.", id))
	}
	return map[string]any{
		"ticket_id":  m.TicketID,
		"role":       m.Role,
		"message_id": m.ID,
	}, nil
}

func (g *Gateway) getCustomerTicketHistory(tc *core.ToolContext, args map[string]any) (map[string]any, error) {
	userID := stringArg(args, "user_id")
	limit := DefaultHistoryLimit
	if v, ok := args["limit"].(float64); ok {
		limit = int(v)
	} else if v, ok := args["limit"].(int); ok {
		limit = v
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	rows, err := g.store.TicketHistory(tc.Context(), userID, limit)
	if err != nil {
		return nil, lookupError(GetCustomerTicketHistory, err, fmt.Sprintf("An error occurred while retrieving ticket history for user %s.", userID))
	}

	tickets := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		tickets = append(tickets, map[string]any{
			"ticket_id":  r.ID,
			"status":     r.Status,
			"issue_type": r.IssueType,
			"created_at": r.CreatedAt,
			"summary":    r.Summary,
		})
	}
	return map[string]any{"user_id": userID, "tickets": tickets}, nil
}

func preferencesPayload(p *store.Preferences) map[string]any {
	return map[string]any{
		"user_id":           p.UserID,
		"language":          p.Language,
		"preferred_channel": p.PreferredChannel,
		"notes":             p.Notes,
	}
}

func (g *Gateway) getUserPreferences(tc *core.ToolContext, args map[string]any) (map[string]any, error) {
	userID := stringArg(args, "user_id")
	p, err := g.store.GetPreferences(tc.Context(), userID)
	if err != nil {
		return nil, lookupError(GetUserPreferences, err, fmt.Sprintf("An error occurred while retrieving preferences for user %s.", userID))
	}
	return preferencesPayload(p), nil
}

func (g *Gateway) updateUserPreferences(tc *core.ToolContext, args map[string]any) (map[string]any, error) {
	userID := stringArg(args, "user_id")
	p, err := g.store.UpdatePreferences(tc.Context(), userID, store.PreferencesPatch{
		Language:         optionalString(args, "language"),
		PreferredChannel: optionalString(args, "preferred_channel"),
		Notes:            optionalString(args, "notes"),
	})
	if err != nil {
		return nil, lookupError(UpdateUserPreferences, err, fmt.Sprintf("An error occurred while updating preferences for user %s.", userID))
	}
	return preferencesPayload(p), nil
}

func (g *Gateway) getCultPassUserInfo(tc *core.ToolContext, args map[string]any) (map[string]any, error) {
	userID := stringArg(args, "user_id")
	u, err := g.store.GetUser(tc.Context(), userID)
	if err != nil {
		return nil, lookupError(GetCultPassUserInfo, err, fmt.Sprintf("An error occurred while retrieving general info for user %s.", userID))
	}
	return map[string]any{
		"user_id":        u.ID,
		"name":           u.FullName,
		"email":          u.Email,
		"account_status": u.AccountStatus(),
	}, nil
}

func (g *Gateway) getUserSubscription(tc *core.ToolContext, args map[string]any) (map[string]any, error) {
	userID := stringArg(args, "user_id")
	s, err := g.store.GetSubscription(tc.Context(), userID)
	if err != nil {
		return nil, lookupError(GetUserSubscription, err, fmt.Sprintf("An error occurred while retrieving subscription status for user %s.", userID))
	}
	var ended any
	if s.EndedAt != nil {
		ended = *s.EndedAt
	}
	return map[string]any{
		"user_id":                 userID,
		"subscription_status":     s.Status,
		"subscription_tier":       s.Tier,
		"subscription_started_at": s.StartedAt,
		"subscription_ended_at":   ended,
	}, nil
}

func (g *Gateway) getUserReservations(tc *core.ToolContext, args map[string]any) (map[string]any, error) {
	userID := stringArg(args, "user_id")
	rows, err := g.store.GetReservations(tc.Context(), userID)
	if err != nil {
		return nil, lookupError(GetUserReservations, err, fmt.Sprintf("An error occurred while retrieving reservations for user %s.", userID))
	}

	reservations := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		reservations = append(reservations, map[string]any{
			"experience_title":      r.ExperienceTitle,
			"experience_location":   r.ExperienceLocation,
			"experience_time":       r.ExperienceTime,
			"experience_is_premium": r.ExperienceIsPremium,
			"reservation_status":    r.Status,
		})
	}
	out := map[string]any{"user_id": userID, "reservations": reservations}
	if len(reservations) == 0 {
		out["message"] = fmt.Sprintf("User %s has no reservations.", userID)
	}
	return out, nil
}

func (g *Gateway) getExperienceAvailability(tc *core.ToolContext, args map[string]any) (map[string]any, error) {
	id := stringArg(args, "experience_id")
	e, err := g.store.GetExperience(tc.Context(), id)
	if err != nil {
		return nil, lookupError(GetExperienceAvailability, err, fmt.Sprintf("An error occurred while retrieving experience details for '%s'.", id))
	}
	return map[string]any{
		"experience_id":         e.ID,
		"experience_title":      e.Title,
		"experience_location":   e.Location,
		"experience_time":       e.When,
		"experience_is_premium": e.IsPremium,
		"slots_available":       e.SlotsAvailable,
	}, nil
}

func (g *Gateway) searchExperiences(tc *core.ToolContext, args map[string]any) (map[string]any, error) {
	keyword := stringArg(args, "keyword")
	if g.catalog == nil || g.catalog.Experiences == nil {
		return nil, tool.NewToolError(SearchExperiencesByKeyword, "Experience search is not available.", tool.CodeExecution)
	}
	hits, err := g.catalog.Experiences.Search(tc.Context(), keyword, knowledge.ExperienceTopK)
	if err != nil {
		return nil, &tool.ToolError{Tool: SearchExperiencesByKeyword, Code: tool.CodeExecution, Details: err.Error(),
			Message: fmt.Sprintf("An error occurred while searching for experiences matching '%s'.", keyword)}
	}
	if len(hits) == 0 {
		return map[string]any{"experiences": []map[string]any{}, "message": fmt.Sprintf("No experiences found matching '%s'.", keyword)}, nil
	}
	return map[string]any{"experiences": knowledge.Payloads(hits)}, nil
}

func (g *Gateway) searchKnowledgeBase(tc *core.ToolContext, args map[string]any) (map[string]any, error) {
	query := stringArg(args, "query")
	if g.catalog == nil || g.catalog.Articles == nil {
		return nil, tool.NewToolError(SearchKnowledgeBase, "Knowledge search is not available.", tool.CodeExecution)
	}
	hits, err := g.catalog.Articles.Search(tc.Context(), query, knowledge.ArticleTopK)
	if err != nil {
		return nil, &tool.ToolError{Tool: SearchKnowledgeBase, Code: tool.CodeExecution, Details: err.Error(),
			Message: "An error occurred while searching the knowledge base."}
	}
	if len(hits) == 0 {
		return map[string]any{"articles": []map[string]any{}, "message": "No knowledge articles found for the given query."}, nil
	}
	return map[string]any{"articles": knowledge.Payloads(hits)}, nil
}
