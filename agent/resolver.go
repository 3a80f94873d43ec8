package agent

import (
	"context"

	"github.com/Mohamed711/customer-support-agent/core"
	"github.com/Mohamed711/customer-support-agent/gateway"
)

// EscalationSentinel is the exact final message by which the resolver hands a
// ticket to the escalation agent.
const EscalationSentinel = "NEEDS_ESCALATION"

// IsEscalationSignal reports whether msg is the sentinel. The match is byte
// exact; a decorated sentinel is an ordinary reply.
func IsEscalationSignal(msg core.Content) bool {
	return msg.Text() == EscalationSentinel
}

// ResolverTools are the tools bound to the resolver.
var ResolverTools = []string{
	gateway.GetTicketInfo,
	gateway.UpdateTicketStatus,
	gateway.AddTicketMessage,
	gateway.GetCustomerTicketHistory,
	gateway.GetUserPreferences,
	gateway.UpdateUserPreferences,
	gateway.GetCultPassUserInfo,
	gateway.GetUserSubscription,
	gateway.GetUserReservations,
	gateway.GetExperienceAvailability,
	gateway.SearchExperiencesByKeyword,
}

// OutcomeKind tags a ResolverOutcome.
type OutcomeKind int

const (
	// Resolved carries the customer reply.
	Resolved OutcomeKind = iota
	// NeedsEscalation asks the supervisor to escalate.
	NeedsEscalation
)

func (k OutcomeKind) String() string {
	if k == NeedsEscalation {
		return "needs_escalation"
	}
	return "resolved"
}

// ResolverOutcome is the structured result of a resolver run.
type ResolverOutcome struct {
	Kind OutcomeKind
	Text string // reply for Resolved; the sentinel for NeedsEscalation
}

// ResolverOptions configure a Resolver.
type ResolverOptions struct {
	Prompt string
}

// Resolver answers the customer or signals escalation.
type Resolver struct {
	specialist
}

// NewResolver binds the resolver tools from src.
func NewResolver(rt *Runtime, src ToolSource, optFns ...func(o *ResolverOptions)) (*Resolver, error) {
	opts := ResolverOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	base, err := newSpecialist("resolver", rt, src, ResolverTools, instructionOr(opts.Prompt, DefaultResolverPrompt))
	if err != nil {
		return nil, err
	}
	return &Resolver{specialist: base}, nil
}

// Resolve runs the resolver loop. The sentinel halts the loop before any tool
// call in the same message is executed.
func (r *Resolver) Resolve(ctx context.Context, task Task) (ResolverOutcome, error) {
	inv, err := r.invocation(task)
	if err != nil {
		return ResolverOutcome{}, err
	}
	inv.Policy = PolicyDone
	inv.StopWhen = IsEscalationSignal

	out, err := r.runtime.Run(ctx, inv)
	if err != nil {
		return ResolverOutcome{}, err
	}
	if out.Stopped {
		return ResolverOutcome{Kind: NeedsEscalation, Text: EscalationSentinel}, nil
	}
	return ResolverOutcome{Kind: Resolved, Text: out.Text}, nil
}
