package coordinator

import (
	"context"
	"sort"
	"sync"
)

// Barrier holds back winners queries until every expected agency has
// reported that it finished sending bets.
//
// State machine:
//
//	WAITING --Report(agency)--> WAITING | RELEASED
//
// RELEASED is terminal. The set of finished agencies only grows, and a
// repeated report from the same agency is absorbed by set semantics.
//
// Waiters select on a channel that is closed exactly once on release.
//
// Thread Safety:
// All methods are safe for concurrent use. The lock is held only for the
// insert, size check and release; never across I/O.
type Barrier struct {
	finished map[int]struct{} // Agencies that reported completion
	released chan struct{}    // Closed on release
	mu       sync.Mutex       // Protects finished and done
	expected int              // Distinct agencies needed for release
	done     bool             // Set once, together with closing released
}

// NewBarrier creates a barrier that releases once expected distinct
// agencies have reported. A barrier expecting no agencies starts released.
func NewBarrier(expected int) *Barrier {
	b := &Barrier{
		finished: make(map[int]struct{}),
		released: make(chan struct{}),
		expected: expected,
	}
	if expected <= 0 {
		b.release()
	}
	return b
}

// Report records that agency finished sending bets. It returns true only
// for the call that released the barrier.
func (b *Barrier) Report(agency int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.finished[agency] = struct{}{}
	if b.done || len(b.finished) < b.expected {
		return false
	}
	b.release()
	return true
}

// release must be called with mu held, or before b is shared.
func (b *Barrier) release() {
	b.done = true
	close(b.released)
}

// Wait blocks until the barrier is released or ctx is done. It returns
// immediately once released, for any number of callers.
//
// Returns ctx.Err() when ctx ends first. Release wins when both are ready.
func (b *Barrier) Wait(ctx context.Context) error {
	select {
	case <-b.released:
		return nil
	default:
	}

	select {
	case <-b.released:
		return nil
	case <-ctx.Done():
		select {
		case <-b.released:
			return nil
		default:
			return ctx.Err()
		}
	}
}

// Done returns a channel that is closed when the barrier releases.
func (b *Barrier) Done() <-chan struct{} {
	return b.released
}

// Released reports whether the barrier has released.
func (b *Barrier) Released() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}

// Expected returns the number of distinct agencies needed for release.
func (b *Barrier) Expected() int {
	return b.expected
}

// Count returns the number of distinct agencies that reported completion.
func (b *Barrier) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.finished)
}

// Finished returns the agencies that reported completion, in ascending order.
func (b *Barrier) Finished() []int {
	b.mu.Lock()
	defer b.mu.Unlock()

	agencies := make([]int, 0, len(b.finished))
	for agency := range b.finished {
		agencies = append(agencies, agency)
	}
	sort.Ints(agencies)
	return agencies
}
