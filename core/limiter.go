package core

import (
	"fmt"
	"sync"
)

// TurnLimiter enforces a maximum number of backend calls per request.
type TurnLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewTurnLimiter creates a new limiter with a max number of turns.
// If max == 0, unlimited turns are allowed.
func NewTurnLimiter(max int) *TurnLimiter {
	return &TurnLimiter{max: max}
}

// Increment claims the next turn and returns an error wrapping
// ErrMaxTurnsExceeded once the budget is exhausted. A refused turn is not counted.
func (tl *TurnLimiter) Increment() error {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	if tl.max > 0 && tl.count >= tl.max {
		return fmt.Errorf("%w: limit %d", ErrMaxTurnsExceeded, tl.max)
	}
	tl.count++

	return nil
}

// Count returns the number of turns claimed so far.
func (tl *TurnLimiter) Count() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	return tl.count
}

// Remaining returns how many turns are left before hitting the limit.
func (tl *TurnLimiter) Remaining() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	if tl.max == 0 {
		return -1 // unlimited
	}

	return tl.max - tl.count
}
