package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/Mohamed711/customer-support-agent/agent"
	"github.com/Mohamed711/customer-support-agent/core"
	"github.com/Mohamed711/customer-support-agent/supervisor"
)

var (
	userColor   = color.New(color.FgCyan, color.Bold)
	agentColor  = color.New(color.FgGreen)
	toolColor   = color.New(color.FgYellow)
	systemColor = color.New(color.FgHiBlack)
)

// renderMessages prints the messages a turn appended.
func renderMessages(w io.Writer, msgs []core.Content) {
	for _, m := range msgs {
		switch m.Role {
		case core.RoleUser:
			fmt.Fprintf(w, "%s %s\n", userColor.Sprint("customer>"), m.Text())
		case core.RoleSystem:
			fmt.Fprintf(w, "%s %s\n", systemColor.Sprint("system>"), m.Text())
		case core.RoleTool:
			for _, fr := range m.FunctionResponses() {
				fmt.Fprintf(w, "  %s %s %s\n", toolColor.Sprint("<-"), fr.Name, compact(fr.Response))
			}
		default:
			for _, fc := range m.FunctionCalls() {
				fmt.Fprintf(w, "  %s %s(%s)\n", toolColor.Sprint("->"), fc.Name, fc.Arguments)
			}
			if t := m.Text(); t != "" {
				fmt.Fprintf(w, "  %s %s\n", systemColor.Sprint("agent:"), t)
			}
		}
	}
}

// renderResult prints the route summary and the final reply.
func renderResult(w io.Writer, res *supervisor.TurnResult) {
	path := make([]string, 0, len(res.Path))
	for _, s := range res.Path {
		path = append(path, string(s))
	}
	fmt.Fprintf(w, "%s %s (%d steps)\n", systemColor.Sprint("path:"), strings.Join(path, " -> "), res.Steps)
	if c := res.Classification; c != nil {
		fmt.Fprintf(w, "%s %s\n", systemColor.Sprint("classification:"), c.CanonicalSummary())
	}
	r := res.Retrieval
	if r == nil {
		// A turn that failed after retrieval still carries the marker.
		if marked, ok := agent.LastRetrieval(core.NewTranscript(res.Messages...)); ok {
			r = &marked
		}
	}
	if r != nil {
		fmt.Fprintf(w, "%s %.2f (%s, %d articles)\n", systemColor.Sprint("confidence:"), r.Confidence, r.Band(), r.ArticlesFound)
	}
	label := "resolved"
	if res.Escalated {
		label = "escalated"
	}
	fmt.Fprintf(w, "%s [%s] %s\n", agentColor.Sprint("support>"), label, res.Reply)
}

func compact(v map[string]any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	s := string(data)
	if len(s) > 160 {
		s = s[:157] + "..."
	}
	return s
}
