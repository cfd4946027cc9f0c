package core

import (
	"sync"
	"sync/atomic"
)

// CancelSignal is a shared, externally settable cancellation flag. It owns no
// work: the prompt loop checks it at the start of every turn and hands it to
// hooks and tools, which are expected to observe it on a best-effort basis.
//
// The zero value is not usable; construct with NewCancelSignal. A nil
// *CancelSignal reports "not cancelled" and ignores Cancel.
type CancelSignal struct {
	cancelled atomic.Bool
	once      sync.Once
	done      chan struct{}
}

// NewCancelSignal returns an unset signal.
func NewCancelSignal() *CancelSignal {
	return &CancelSignal{done: make(chan struct{})}
}

// Cancel sets the flag. It is safe to call multiple times and from multiple goroutines.
func (s *CancelSignal) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.cancelled.Store(true)
		close(s.done)
	})
}

// IsCancelled reports whether Cancel has been called.
func (s *CancelSignal) IsCancelled() bool {
	if s == nil {
		return false
	}
	return s.cancelled.Load()
}

// Done returns a channel that is closed once the signal is cancelled. A nil
// signal returns a nil channel, which blocks forever in a select.
func (s *CancelSignal) Done() <-chan struct{} {
	if s == nil {
		return nil
	}
	return s.done
}
