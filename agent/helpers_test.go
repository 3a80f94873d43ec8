package agent

import (
	"sync"

	"github.com/Mohamed711/customer-support-agent/core"
	"github.com/Mohamed711/customer-support-agent/gateway"
	"github.com/Mohamed711/customer-support-agent/tool"
)

// recorder counts tool invocations by name.
type recorder struct {
	mu    sync.Mutex
	calls []string
	args  []map[string]any
}

func (r *recorder) record(name string, args map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
	r.args = append(r.args, args)
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// fakeSource serves echo tools for every gateway tool name.
type fakeSource struct {
	reg *tool.Registry
	rec *recorder
}

func newFakeSource() *fakeSource {
	rec := &recorder{}
	reg := tool.NewRegistry()
	names := []string{
		gateway.GetTicketInfo, gateway.UpdateTicketStatus, gateway.AddTicketMessage,
		gateway.GetCustomerTicketHistory, gateway.GetUserPreferences, gateway.UpdateUserPreferences,
		gateway.GetCultPassUserInfo, gateway.GetUserSubscription, gateway.GetUserReservations,
		gateway.GetExperienceAvailability, gateway.SearchExperiencesByKeyword, gateway.SearchKnowledgeBase,
	}
	for _, n := range names {
		name := n
		reg.Register(tool.NewFunctionTool(name, "fake "+name, map[string]any{"type": "object"},
			func(_ *core.ToolContext, args map[string]any) (map[string]any, error) {
				rec.record(name, args)
				return map[string]any{"tool": name, "ok": true}, nil
			}))
	}
	return &fakeSource{reg: reg, rec: rec}
}

func (f *fakeSource) Tools(names ...string) ([]tool.Tool, error) { return f.reg.Subset(names...) }

func newTask(threadID string) Task {
	return Task{
		ThreadID:   threadID,
		Transcript: core.NewTranscript(core.NewTextContent(core.RoleUser, "help")),
	}
}
