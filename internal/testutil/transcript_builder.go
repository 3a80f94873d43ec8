package testutil

import (
	"encoding/json"
	"fmt"

	"github.com/Mohamed711/customer-support-agent/core"
)

// TranscriptBuilder provides a fluent helper for constructing transcripts in
// tests. Example:
//
//	tr := testutil.NewTranscriptBuilder().
//		User("How do I cancel?").
//		ToolRound("search_knowledge_base", map[string]any{"query": "cancel"}, map[string]any{"articles": nil}).
//		Assistant("Open Settings.").
//		Build()
//
// Tool calls get deterministic ids (call-1, call-2, ...) so assertions can
// match them.
type TranscriptBuilder struct {
	msgs  []core.Content
	calls int
}

// NewTranscriptBuilder creates an empty builder.
func NewTranscriptBuilder() *TranscriptBuilder { return &TranscriptBuilder{} }

// System appends a system message (chainable).
func (b *TranscriptBuilder) System(t string) *TranscriptBuilder {
	return b.add(core.NewTextContent(core.RoleSystem, t))
}

// User appends a customer message (chainable).
func (b *TranscriptBuilder) User(t string) *TranscriptBuilder {
	return b.add(core.NewTextContent(core.RoleUser, t))
}

// Assistant appends an assistant text message (chainable).
func (b *TranscriptBuilder) Assistant(t string) *TranscriptBuilder {
	return b.add(core.NewTextContent(core.RoleAssistant, t))
}

// ToolRound appends an assistant message calling name with args followed by
// the tool message answering it with result (chainable).
func (b *TranscriptBuilder) ToolRound(name string, args, result map[string]any) *TranscriptBuilder {
	b.calls++
	data, err := json.Marshal(args)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal args: %v", err))
	}
	fc := core.FunctionCall{ID: fmt.Sprintf("call-%d", b.calls), Name: name, Arguments: string(data)}
	b.add(core.Content{Role: core.RoleAssistant, Parts: []core.Part{core.FunctionCallPart{FunctionCall: fc}}})
	return b.add(core.NewFunctionResponseContent(fc, result))
}

// Build returns a transcript holding the messages in order.
func (b *TranscriptBuilder) Build() *core.Transcript {
	return core.NewTranscript(b.Messages()...)
}

// Messages returns a copy of the messages built so far.
func (b *TranscriptBuilder) Messages() []core.Content {
	return append([]core.Content(nil), b.msgs...)
}

func (b *TranscriptBuilder) add(c core.Content) *TranscriptBuilder {
	b.msgs = append(b.msgs, c)
	return b
}
