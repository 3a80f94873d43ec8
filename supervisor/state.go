package supervisor

import (
	"fmt"

	"github.com/Mohamed711/customer-support-agent/agent"
)

// State is a node of the turn state machine.
type State string

// Turn states.
const (
	StateNew           State = "NEW"
	StateClassify      State = "CLASSIFY"
	StateRetrieve      State = "RETRIEVE"
	StateRouteDecision State = "ROUTE_DECISION"
	StateResolve       State = "RESOLVE"
	StateEscalate      State = "ESCALATE"
	StateDone          State = "DONE"
)

// Confidence thresholds for routing to RESOLVE. Both are inclusive.
const (
	HighUrgencyThreshold = 0.75
	StandardThreshold    = 0.60
)

// Threshold returns the minimum retrieval confidence needed to resolve a
// ticket of the given urgency. Unknown urgencies get the strictest threshold.
func Threshold(urgency string) float64 {
	switch urgency {
	case agent.UrgencyMedium, agent.UrgencyLow:
		return StandardThreshold
	default:
		return HighUrgencyThreshold
	}
}

// Route picks RESOLVE or ESCALATE from urgency and retrieval confidence.
func Route(urgency string, confidence float64) State {
	if confidence >= Threshold(urgency) {
		return StateResolve
	}
	return StateEscalate
}

// Facts are the inputs of the transition table.
type Facts struct {
	HasClassification bool
	TopicChanged      bool
	Urgency           string
	Confidence        float64
	NeedsEscalation   bool
}

// transitions is the complete transition table. States absent from it are
// terminal.
var transitions = map[State]func(f Facts) State{
	StateNew: func(f Facts) State {
		if !f.HasClassification || f.TopicChanged {
			return StateClassify
		}
		return StateRetrieve
	},
	StateClassify:      func(Facts) State { return StateRetrieve },
	StateRetrieve:      func(Facts) State { return StateRouteDecision },
	StateRouteDecision: func(f Facts) State { return Route(f.Urgency, f.Confidence) },
	StateResolve: func(f Facts) State {
		if f.NeedsEscalation {
			return StateEscalate
		}
		return StateDone
	},
	StateEscalate: func(Facts) State { return StateDone },
}

// Next returns the successor of s. It fails for terminal or unknown states.
func Next(s State, f Facts) (State, error) {
	fn, ok := transitions[s]
	if !ok {
		return "", fmt.Errorf("supervisor: no transition from %s", s)
	}
	return fn(f), nil
}
