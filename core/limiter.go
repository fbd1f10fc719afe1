package core

import (
	"fmt"
	"sync"
)

// ModelLimiter caps the number of model backend calls one invocation may make.
// A max of 0 disables the cap. Safe for concurrent use across branches that
// share an invocation.
type ModelLimiter struct {
	mu    sync.Mutex
	max   int
	count int
}

// NewModelLimiter creates a limiter allowing up to max calls.
func NewModelLimiter(max int) *ModelLimiter {
	return &ModelLimiter{max: max}
}

// Increment records one call. It fails once the cap has been crossed; the
// counter keeps advancing so Count reflects attempts, not successes.
func (ml *ModelLimiter) Increment() error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	ml.count++
	if ml.max > 0 && ml.count > ml.max {
		return fmt.Errorf("exceeded max model calls: %d", ml.max)
	}
	return nil
}

// Count reports calls recorded so far.
func (ml *ModelLimiter) Count() int {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	return ml.count
}

// Remaining reports the budget left, or -1 when the limiter is uncapped.
func (ml *ModelLimiter) Remaining() int {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	if ml.max == 0 {
		return -1
	}
	return ml.max - ml.count
}
