package agent

import (
	"context"

	"github.com/Mohamed711/customer-support-agent/gateway"
)

// EscalationTools are the tools bound to the escalation agent.
var EscalationTools = []string{
	gateway.GetTicketInfo,
	gateway.UpdateTicketStatus,
	gateway.AddTicketMessage,
	gateway.GetCultPassUserInfo,
}

// Follow-up windows promised to the customer.
const (
	FollowUpHigh     = "4 hours"
	FollowUpStandard = "24 hours"
)

// FollowUpWindow returns the promised response time for urgency. Anything
// that is not medium or low gets the high urgency window.
func FollowUpWindow(urgency string) string {
	switch urgency {
	case UrgencyMedium, UrgencyLow:
		return FollowUpStandard
	default:
		return FollowUpHigh
	}
}

// EscalationOptions configure an Escalation agent.
type EscalationOptions struct {
	Prompt string
}

// Escalation hands a ticket over to a human.
type Escalation struct {
	specialist
}

// NewEscalation binds the escalation tools from src.
func NewEscalation(rt *Runtime, src ToolSource, optFns ...func(o *EscalationOptions)) (*Escalation, error) {
	opts := EscalationOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	base, err := newSpecialist("escalation", rt, src, EscalationTools, instructionOr(opts.Prompt, DefaultEscalationPrompt))
	if err != nil {
		return nil, err
	}
	return &Escalation{specialist: base}, nil
}

// Escalate writes the internal note and the customer notice and returns the
// customer notice. urgency selects the follow-up window in the prompt.
func (e *Escalation) Escalate(ctx context.Context, task Task, urgency string) (string, error) {
	if task.State == nil {
		task.State = map[string]any{}
	} else {
		st := make(map[string]any, len(task.State)+2)
		for k, v := range task.State {
			st[k] = v
		}
		task.State = st
	}
	task.State["urgency"] = urgency
	task.State["follow_up"] = FollowUpWindow(urgency)

	inv, err := e.invocation(task)
	if err != nil {
		return "", err
	}
	inv.Policy = PolicyDone

	out, err := e.runtime.Run(ctx, inv)
	if err != nil {
		return "", err
	}
	return out.Text, nil
}
