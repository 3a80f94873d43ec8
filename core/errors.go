package core

import (
	"errors"
	"fmt"
)

var (
	// ErrStepLimitExceeded matches every *StepLimitError.
	ErrStepLimitExceeded = errors.New("step limit exceeded")
	// ErrModel matches every *ModelError.
	ErrModel = errors.New("model invocation failed")
)

// StepLimitError reports that a bounded loop hit its ceiling. It is fatal for
// the turn and is never retried.
type StepLimitError struct {
	Scope string // "agent:<name>" or "turn"
	Limit int
}

func (e *StepLimitError) Error() string {
	return fmt.Sprintf("%s: exceeded max steps (%d)", e.Scope, e.Limit)
}

// Is makes errors.Is(err, ErrStepLimitExceeded) succeed.
func (e *StepLimitError) Is(target error) bool { return target == ErrStepLimitExceeded }

// ModelError wraps a failure of the model backend, including malformed
// structured output.
type ModelError struct {
	Agent string
	Err   error
}

// NewModelError wraps err for agent unless it already is a ModelError.
func NewModelError(agent string, err error) error {
	var me *ModelError
	if errors.As(err, &me) {
		return err
	}
	return &ModelError{Agent: agent, Err: err}
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("agent %s: model error: %v", e.Agent, e.Err)
}

// Unwrap returns the underlying backend error.
func (e *ModelError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrModel) succeed.
func (e *ModelError) Is(target error) bool { return target == ErrModel }
