package zwave

import "context"

// Wakeup is a level-triggered, coalescing cross-goroutine signal.
//
// Any number of Signal calls before the consumer resumes produce a single
// wake. The consumer must therefore drain the queue to empty on every wake
// instead of assuming one record per signal.
type Wakeup struct {
	ch chan struct{}
}

// NewWakeup creates a wakeup signal in the cleared state.
func NewWakeup() *Wakeup {
	return &Wakeup{ch: make(chan struct{}, 1)}
}

// Signal marks the wakeup as pending. It never blocks.
func (w *Wakeup) Signal() {
	select {
	case w.ch <- struct{}{}:
	default:
		// Already pending.
	}
}

// C returns the channel that receives once per coalesced wake.
// Receiving from it clears the pending state.
func (w *Wakeup) C() <-chan struct{} {
	return w.ch
}

// Wait blocks until the wakeup is pending or ctx is done.
//
// Returns:
//   - bool: true if a wake was consumed, false if ctx ended first
func (w *Wakeup) Wait(ctx context.Context) bool {
	select {
	case <-w.ch:
		return true
	case <-ctx.Done():
		return false
	}
}

// Pending reports whether a wake is pending, without consuming it.
func (w *Wakeup) Pending() bool {
	return len(w.ch) > 0
}
