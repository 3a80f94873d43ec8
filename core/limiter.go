package core

import (
	"sync"
)

// StepLimiter enforces a hard ceiling on steps taken within one scope
// (a single agent invocation or a whole supervisor turn).
type StepLimiter struct {
	scope string
	max   int
	count int
	mu    sync.Mutex
}

// NewStepLimiter creates a limiter for scope allowing at most max steps.
// If max == 0, unlimited steps are allowed.
func NewStepLimiter(scope string, max int) *StepLimiter {
	return &StepLimiter{scope: scope, max: max}
}

// Increment charges one step and returns a *StepLimitError once the ceiling
// is crossed. A nil limiter never fails.
func (l *StepLimiter) Increment() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.count++
	if l.max > 0 && l.count > l.max {
		return &StepLimitError{Scope: l.scope, Limit: l.max}
	}

	return nil
}

// Count returns the number of steps charged so far.
func (l *StepLimiter) Count() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.count
}

// Remaining returns how many steps are left before hitting the limit, or -1
// for a nil or unlimited limiter.
func (l *StepLimiter) Remaining() int {
	if l == nil {
		return -1
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.max == 0 {
		return -1 // unlimited
	}

	return l.max - l.count
}
