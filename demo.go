package support

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Mohamed711/customer-support-agent/agent"
	"github.com/Mohamed711/customer-support-agent/core"
	"github.com/Mohamed711/customer-support-agent/gateway"
	"github.com/Mohamed711/customer-support-agent/model"
)

var (
	ticketRe   = regexp.MustCompile(`ticket ([A-Za-z]+-[0-9]+)`)
	followUpRe = regexp.MustCompile(`within (\d+ hours)`)
)

// demoConfidence is the retrieval confidence the demo model reports per
// issue type when the knowledge search found at least one article.
var demoConfidence = map[string]float64{
	"subscription": 0.92,
	"reservation":  0.85,
	"login":        0.80,
	"billing":      0.70,
	"general":      0.55,
	"account":      0.45,
}

// NewDemoModel returns an offline model that plays every specialist with
// keyword rules. It drives the real tools, so scenarios run end to end
// against the seeded store without a provider account.
func NewDemoModel() *model.MockModel {
	return model.NewMockModel("demo").WithHandler(demoHandle)
}

func demoHandle(_ context.Context, req model.Request) (model.Response, error) {
	tr := core.NewTranscript(req.Contents...)
	question := tr.LastText(core.RoleUser)
	labels := demoClassify(question)
	ticket := demoTicket(req)

	if rf := req.ResponseFormat; rf != nil {
		switch rf.Name {
		case "classification":
			return model.JSONResponse(labels), nil
		case "retrieval_result":
			arts := searchedArticles(req.Contents)
			conf := 0.1
			if len(arts) > 0 {
				conf = demoConfidence[labels.IssueType]
			}
			found := make([]map[string]any, 0, len(arts))
			for _, a := range arts {
				found = append(found, map[string]any{
					"title": a["title"], "summary": firstSentence(fmt.Sprint(a["content"])), "relevance": labels.IssueType,
				})
			}
			return model.JSONResponse(map[string]any{
				"confidence": conf, "articles_found": len(arts), "retrieved_articles": found,
			}), nil
		default:
			return model.Response{}, fmt.Errorf("demo: unknown response format %q", rf.Name)
		}
	}

	last, ok := tr.Last()
	answered := ok && last.Role == core.RoleTool

	switch demoRole(req.Tools) {
	case "retriever":
		if answered {
			return model.TextResponse("Knowledge base searched."), nil
		}
		return model.ToolCallResponse(model.Call(gateway.SearchKnowledgeBase, map[string]any{"query": question})), nil

	case "classifier":
		if answered {
			return model.TextResponse(labels.CanonicalSummary()), nil
		}
		return model.ToolCallResponse(model.Call(gateway.UpdateTicketStatus, map[string]any{
			"ticket_id":  ticket,
			"status":     "in_progress",
			"issue_type": labels.IssueType,
			"tags":       fmt.Sprintf("urgency:%s,sentiment:%s", labels.Urgency, labels.Sentiment),
		})), nil

	case "resolver":
		arts := searchedArticles(req.Contents)
		if len(arts) == 0 || strings.Contains(strings.ToLower(question), "refund") {
			return model.TextResponse(agent.EscalationSentinel), nil
		}
		reply := fmt.Sprintf("Based on our help article %q: %s", arts[0]["title"], arts[0]["content"])
		if answered {
			return model.TextResponse(reply), nil
		}
		return model.ToolCallResponse(
			model.Call(gateway.GetTicketInfo, map[string]any{"ticket_id": ticket}),
			model.Call(gateway.AddTicketMessage, map[string]any{"ticket_id": ticket, "role": "agent", "content": reply}),
			model.Call(gateway.UpdateTicketStatus, map[string]any{"ticket_id": ticket, "status": "resolved"}),
		), nil

	case "escalation":
		window := agent.FollowUpHigh
		if m := followUpRe.FindStringSubmatch(req.Instructions); m != nil {
			window = m[1]
		}
		reply := fmt.Sprintf("I have escalated ticket %s to a support specialist, who will follow up within %s.", ticket, window)
		if answered {
			return model.TextResponse(reply), nil
		}
		return model.ToolCallResponse(
			model.Call(gateway.GetTicketInfo, map[string]any{"ticket_id": ticket}),
			model.Call(gateway.AddTicketMessage, map[string]any{
				"ticket_id": ticket, "role": "system",
				"content": fmt.Sprintf("Escalation: %s. Customer wrote: %s", labels.CanonicalSummary(), question),
			}),
			model.Call(gateway.AddTicketMessage, map[string]any{"ticket_id": ticket, "role": "agent", "content": reply}),
			model.Call(gateway.UpdateTicketStatus, map[string]any{"ticket_id": ticket, "status": "escalated"}),
		), nil
	}
	return model.TextResponse("How can I help you today?"), nil
}

// demoRole recognises the specialist by the tools it was given.
func demoRole(tools []model.ToolDefinition) string {
	names := make(map[string]bool, len(tools))
	for _, t := range tools {
		names[t.Function.Name] = true
	}
	switch {
	case names[gateway.SearchKnowledgeBase]:
		return "retriever"
	case names[gateway.GetUserReservations]:
		return "resolver"
	case names[gateway.AddTicketMessage]:
		return "escalation"
	case names[gateway.UpdateTicketStatus]:
		return "classifier"
	}
	return ""
}

func demoClassify(text string) agent.ClassificationResult {
	t := strings.ToLower(text)
	var c agent.ClassificationResult
	switch {
	case strings.Contains(t, "block") || strings.Contains(t, "suspend"):
		c = agent.ClassificationResult{IssueType: "account", Urgency: agent.UrgencyHigh, Sentiment: "frustrated"}
	case strings.Contains(t, "password") || strings.Contains(t, "log in") || strings.Contains(t, "login"):
		c = agent.ClassificationResult{IssueType: "login", Urgency: agent.UrgencyMedium, Sentiment: "negative"}
	case strings.Contains(t, "charge") || strings.Contains(t, "refund") || strings.Contains(t, "payment"):
		c = agent.ClassificationResult{IssueType: "billing", Urgency: agent.UrgencyMedium, Sentiment: "negative"}
	case strings.Contains(t, "reservation") || strings.Contains(t, "booking"):
		c = agent.ClassificationResult{IssueType: "reservation", Urgency: agent.UrgencyLow, Sentiment: "neutral"}
	case strings.Contains(t, "subscription") || strings.Contains(t, "cancel") || strings.Contains(t, "pause"):
		c = agent.ClassificationResult{IssueType: "subscription", Urgency: agent.UrgencyLow, Sentiment: "neutral"}
	default:
		c = agent.ClassificationResult{IssueType: "general", Urgency: agent.UrgencyLow, Sentiment: "neutral"}
	}
	c.Summary = c.CanonicalSummary()
	return c
}

func demoTicket(req model.Request) string {
	if m := ticketRe.FindStringSubmatch(req.Instructions); m != nil {
		return m[1]
	}
	for _, c := range req.Contents {
		if c.Role != core.RoleSystem {
			continue
		}
		if m := ticketRe.FindStringSubmatch(c.Text()); m != nil {
			return m[1]
		}
	}
	return ""
}

// searchedArticles returns the articles of the latest knowledge search in
// contents. Checkpoints decoded from JSON carry []any instead of []map.
func searchedArticles(contents []core.Content) []map[string]any {
	for i := len(contents) - 1; i >= 0; i-- {
		for _, fr := range contents[i].FunctionResponses() {
			if fr.Name != gateway.SearchKnowledgeBase {
				continue
			}
			switch arts := fr.Response["articles"].(type) {
			case []map[string]any:
				return arts
			case []any:
				out := make([]map[string]any, 0, len(arts))
				for _, a := range arts {
					if m, ok := a.(map[string]any); ok {
						out = append(out, m)
					}
				}
				return out
			}
			return nil
		}
	}
	return nil
}

func firstSentence(s string) string {
	if i := strings.Index(s, ". "); i >= 0 {
		return s[:i+1]
	}
	return s
}
