package agent

import (
	"github.com/Mohamed711/customer-support-agent/internal/util"
)

// Provider supplies dynamic instruction text at runtime.
// Implementations can derive instructions from the prompt state of a task.
type Provider interface {
	Instruction(state map[string]any) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(state map[string]any) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(state map[string]any) (string, error) { return f(state) }

// Instruction represents either a static prompt template or a dynamic provider.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a prompt template.
// Template actions ({{.ticket_id}}) are filled from the task state.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(state map[string]any) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a template string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// IsZero reports whether neither text nor provider is set.
func (i Instruction) IsZero() bool { return i.provider == nil && i.text == "" }

// Resolve returns the instruction text, rendering the template or invoking
// the provider as needed.
func (i Instruction) Resolve(state map[string]any) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(state)
	}
	return util.RenderTemplate(i.text, state)
}
