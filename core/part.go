package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Conversation roles understood by the runtime and the model adapters.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Part represents a polymorphic segment of role-based content. Concrete part
// types implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text string `json:"text"`
}

// isPart implements the Part interface for TextPart.
func (TextPart) isPart() {}

// FunctionCall describes a tool invocation requested by the model.
type FunctionCall struct {
	ID        string `json:"id,omitempty"`        // Provider supplied call id
	Name      string `json:"name"`                // Tool name
	Arguments string `json:"arguments,omitempty"` // JSON encoded argument object
}

// FunctionCallPart wraps a FunctionCall as a content part.
type FunctionCallPart struct {
	FunctionCall FunctionCall `json:"function_call"`
}

// isPart implements the Part interface for FunctionCallPart.
func (FunctionCallPart) isPart() {}

// FunctionResponse carries the payload a tool produced for a FunctionCall.
type FunctionResponse struct {
	ID       string         `json:"id,omitempty"` // Matches originating FunctionCall ID
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// FunctionResponsePart wraps a FunctionResponse as a content part.
type FunctionResponsePart struct {
	FunctionResponse FunctionResponse `json:"function_response"`
}

// isPart implements the Part interface for FunctionResponsePart.
func (FunctionResponsePart) isPart() {}

// Content is one message of a transcript: a role plus ordered parts.
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// NewTextContent builds a single text part message.
func NewTextContent(role, text string) Content {
	return Content{Role: role, Parts: []Part{TextPart{Text: text}}}
}

// NewFunctionResponseContent builds the tool-role message answering a call.
func NewFunctionResponseContent(call FunctionCall, payload map[string]any) Content {
	return Content{
		Role: RoleTool,
		Parts: []Part{FunctionResponsePart{FunctionResponse: FunctionResponse{
			ID:       call.ID,
			Name:     call.Name,
			Response: payload,
		}}},
	}
}

// Text concatenates all text parts of the message.
func (c Content) Text() string {
	var b strings.Builder
	for _, p := range c.Parts {
		if tp, ok := p.(TextPart); ok {
			b.WriteString(tp.Text)
		}
	}
	return b.String()
}

// FunctionCalls returns the tool calls requested by the message in order.
func (c Content) FunctionCalls() []FunctionCall {
	var calls []FunctionCall
	for _, p := range c.Parts {
		if fc, ok := p.(FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}
	return calls
}

// FunctionResponses returns the tool results carried by the message.
func (c Content) FunctionResponses() []FunctionResponse {
	var out []FunctionResponse
	for _, p := range c.Parts {
		if fr, ok := p.(FunctionResponsePart); ok {
			out = append(out, fr.FunctionResponse)
		}
	}
	return out
}

// partEnvelope is the tagged wire form of a Part.
type partEnvelope struct {
	Type             string            `json:"type"`
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"function_call,omitempty"`
	FunctionResponse *FunctionResponse `json:"function_response,omitempty"`
}

// MarshalJSON encodes parts with an explicit type tag so checkpoints round-trip.
func (c Content) MarshalJSON() ([]byte, error) {
	parts := make([]partEnvelope, 0, len(c.Parts))
	for _, p := range c.Parts {
		switch v := p.(type) {
		case TextPart:
			parts = append(parts, partEnvelope{Type: "text", Text: v.Text})
		case FunctionCallPart:
			fc := v.FunctionCall
			parts = append(parts, partEnvelope{Type: "function_call", FunctionCall: &fc})
		case FunctionResponsePart:
			fr := v.FunctionResponse
			parts = append(parts, partEnvelope{Type: "function_response", FunctionResponse: &fr})
		default:
			return nil, fmt.Errorf("unsupported part type %T", p)
		}
	}
	return json.Marshal(struct {
		Role  string         `json:"role"`
		Parts []partEnvelope `json:"parts"`
	}{Role: c.Role, Parts: parts})
}

// UnmarshalJSON decodes the tagged wire form produced by MarshalJSON.
func (c *Content) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role  string         `json:"role"`
		Parts []partEnvelope `json:"parts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Role = raw.Role
	c.Parts = make([]Part, 0, len(raw.Parts))
	for _, p := range raw.Parts {
		switch p.Type {
		case "text":
			c.Parts = append(c.Parts, TextPart{Text: p.Text})
		case "function_call":
			if p.FunctionCall == nil {
				return fmt.Errorf("function_call part without payload")
			}
			c.Parts = append(c.Parts, FunctionCallPart{FunctionCall: *p.FunctionCall})
		case "function_response":
			if p.FunctionResponse == nil {
				return fmt.Errorf("function_response part without payload")
			}
			c.Parts = append(c.Parts, FunctionResponsePart{FunctionResponse: *p.FunctionResponse})
		default:
			return fmt.Errorf("unknown part type %q", p.Type)
		}
	}
	return nil
}
