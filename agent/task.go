package agent

import (
	"fmt"

	"github.com/Mohamed711/customer-support-agent/core"
	"github.com/Mohamed711/customer-support-agent/tool"
)

// Task is the explicit input of one specialist invocation. The transcript and
// the turn limiter belong to the caller and are shared across the turn.
type Task struct {
	ThreadID    string
	Transcript  *core.Transcript
	TurnLimiter *core.StepLimiter
	State       map[string]any // prompt template values
}

// state returns the template state with the thread id filled in.
func (t Task) state() map[string]any {
	st := make(map[string]any, len(t.State)+1)
	for k, v := range t.State {
		st[k] = v
	}
	if _, ok := st["ticket_id"]; !ok {
		st["ticket_id"] = t.ThreadID
	}
	return st
}

// ToolSource hands out tools by name. *gateway.Gateway satisfies it.
type ToolSource interface {
	Tools(names ...string) ([]tool.Tool, error)
}

// specialist holds what every specialist agent shares.
type specialist struct {
	name        string
	runtime     *Runtime
	tools       []tool.Tool
	instruction Instruction
}

func newSpecialist(name string, rt *Runtime, src ToolSource, toolNames []string, inst Instruction) (specialist, error) {
	if rt == nil {
		return specialist{}, fmt.Errorf("agent %s: nil runtime", name)
	}
	tools, err := src.Tools(toolNames...)
	if err != nil {
		return specialist{}, fmt.Errorf("agent %s: %w", name, err)
	}
	return specialist{name: name, runtime: rt, tools: tools, instruction: inst}, nil
}

// Name returns the agent name.
func (s specialist) Name() string { return s.name }

// ToolNames returns the names of the bound tools, in binding order.
func (s specialist) ToolNames() []string {
	names := make([]string, 0, len(s.tools))
	for _, t := range s.tools {
		names = append(names, t.Name())
	}
	return names
}

// invocation resolves the prompt and fills the fields common to every run.
func (s specialist) invocation(task Task) (Invocation, error) {
	instructions, err := s.instruction.Resolve(task.state())
	if err != nil {
		return Invocation{}, fmt.Errorf("agent %s: render instructions: %w", s.name, err)
	}
	return Invocation{
		Agent:        s.name,
		ThreadID:     task.ThreadID,
		Instructions: instructions,
		Tools:        s.tools,
		Transcript:   task.Transcript,
		TurnLimiter:  task.TurnLimiter,
	}, nil
}

// instructionOr returns text as an Instruction, or def when text is empty.
func instructionOr(text string, def string) Instruction {
	if text == "" {
		text = def
	}
	return NewInstructionFromText(text)
}
