package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Mohamed711/customer-support-agent/internal/util"
)

// ErrMalformedOutput reports structured output that is not valid JSON or does
// not satisfy the requested schema.
var ErrMalformedOutput = errors.New("malformed structured output")

// Extract performs a schema constrained invocation and decodes the single JSON
// object the model returns into out. Tools are never bound on this path.
func Extract(ctx context.Context, m Model, req Request, out any) error {
	if req.ResponseFormat == nil {
		return fmt.Errorf("extract: request has no response format")
	}
	req.Tools = nil
	req.Stream = false

	resp, err := Collect(ctx, m, req)
	if err != nil {
		return err
	}

	raw := stripCodeFence(strings.TrimSpace(resp.Content.Text()))
	if raw == "" {
		return fmt.Errorf("%w: empty response for %s", ErrMalformedOutput, req.ResponseFormat.Name)
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedOutput, req.ResponseFormat.Name, err)
	}
	if err := util.ValidateParameters(fields, req.ResponseFormat.Schema); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedOutput, req.ResponseFormat.Name, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedOutput, req.ResponseFormat.Name, err)
	}
	return nil
}

// stripCodeFence removes a surrounding ```json fence some providers add.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
