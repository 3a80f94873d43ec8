package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoute_Boundaries(t *testing.T) {
	cases := []struct {
		urgency    string
		confidence float64
		want       State
	}{
		{"high", 0.75, StateResolve},
		{"high", 0.7499, StateEscalate},
		{"high", 0.74, StateEscalate},
		{"high", 1, StateResolve},
		{"medium", 0.60, StateResolve},
		{"medium", 0.5999, StateEscalate},
		{"low", 0.60, StateResolve},
		{"low", 0.59, StateEscalate},
		{"low", 0.0, StateEscalate},
		{"", 0.70, StateEscalate},
		{"critical", 0.74, StateEscalate},
		{"critical", 0.75, StateResolve},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Route(c.urgency, c.confidence), "%s %.4f", c.urgency, c.confidence)
	}
}

func TestThreshold(t *testing.T) {
	assert.Equal(t, 0.75, Threshold("high"))
	assert.Equal(t, 0.60, Threshold("medium"))
	assert.Equal(t, 0.60, Threshold("low"))
	assert.Equal(t, 0.75, Threshold("unknown"))
}

func TestNext_Table(t *testing.T) {
	cases := []struct {
		from  State
		facts Facts
		want  State
	}{
		{StateNew, Facts{}, StateClassify},
		{StateNew, Facts{HasClassification: true}, StateRetrieve},
		{StateNew, Facts{HasClassification: true, TopicChanged: true}, StateClassify},
		{StateClassify, Facts{}, StateRetrieve},
		{StateRetrieve, Facts{}, StateRouteDecision},
		{StateRouteDecision, Facts{Urgency: "low", Confidence: 0.9}, StateResolve},
		{StateRouteDecision, Facts{Urgency: "high", Confidence: 0.7}, StateEscalate},
		{StateResolve, Facts{}, StateDone},
		{StateResolve, Facts{NeedsEscalation: true}, StateEscalate},
		{StateEscalate, Facts{}, StateDone},
	}
	for _, c := range cases {
		got, err := Next(c.from, c.facts)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "from %s", c.from)
	}

	_, err := Next(StateDone, Facts{})
	assert.Error(t, err)
	_, err = Next("BOGUS", Facts{})
	assert.Error(t, err)
}

func TestNext_AlwaysTerminates(t *testing.T) {
	for _, f := range []Facts{
		{},
		{HasClassification: true, Urgency: "high", Confidence: 0.1},
		{HasClassification: true, Urgency: "low", Confidence: 0.9, NeedsEscalation: true},
	} {
		s, hops := StateNew, 0
		for s != StateDone {
			var err error
			s, err = Next(s, f)
			require.NoError(t, err)
			hops++
			require.LessOrEqual(t, hops, 6)
		}
	}
}
