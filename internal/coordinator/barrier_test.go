package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBarrierReleasesOnLastDistinctAgency verifies release happens exactly
// when the number of distinct agencies reaches the expected count.
func TestBarrierReleasesOnLastDistinctAgency(t *testing.T) {
	barrier := NewBarrier(3)

	assert.False(t, barrier.Report(1))
	assert.False(t, barrier.Released())

	// Repeated reports do not count twice
	assert.False(t, barrier.Report(1))
	assert.False(t, barrier.Report(1))
	assert.False(t, barrier.Released())
	assert.Equal(t, []int{1}, barrier.Finished())

	assert.False(t, barrier.Report(2))
	assert.False(t, barrier.Released())

	assert.True(t, barrier.Report(3), "third distinct agency should release")
	assert.True(t, barrier.Released())
	assert.Equal(t, []int{1, 2, 3}, barrier.Finished())

	// Released is terminal and only one report releases
	assert.False(t, barrier.Report(3))
	assert.False(t, barrier.Report(4))
	assert.True(t, barrier.Released())
}

func TestBarrierWithoutExpectedAgencies(t *testing.T) {
	barrier := NewBarrier(0)
	assert.True(t, barrier.Released())
	require.NoError(t, barrier.Wait(context.Background()))
}

// TestBarrierWaitBlocksUntilRelease verifies that every waiter blocks before
// release and all of them return once it happens.
func TestBarrierWaitBlocksUntilRelease(t *testing.T) {
	barrier := NewBarrier(2)

	numWaiters := 50
	var returned sync.WaitGroup
	returned.Add(numWaiters)

	var mu sync.Mutex
	woken := 0

	for i := 0; i < numWaiters; i++ {
		go func() {
			defer returned.Done()
			if err := barrier.Wait(context.Background()); err != nil {
				t.Errorf("Wait returned error: %v", err)
				return
			}
			mu.Lock()
			woken++
			mu.Unlock()
		}()
	}

	barrier.Report(1)
	barrier.Report(1)
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	assert.Zero(t, woken, "no waiter may return before release")
	mu.Unlock()

	barrier.Report(2)
	returned.Wait()
	assert.Equal(t, numWaiters, woken)
}

// TestBarrierWaitAfterReleaseIsImmediate verifies late callers never block.
func TestBarrierWaitAfterReleaseIsImmediate(t *testing.T) {
	barrier := NewBarrier(1)
	barrier.Report(7)

	// An already cancelled context must not matter once released.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, barrier.Wait(ctx))
		}()
	}
	wg.Wait()

	select {
	case <-barrier.Done():
	default:
		t.Fatal("Done channel should be closed after release")
	}
}

// TestBarrierWaitInterrupted verifies a waiter can be unblocked without release.
func TestBarrierWaitInterrupted(t *testing.T) {
	barrier := NewBarrier(2)
	barrier.Report(1)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := barrier.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, barrier.Released())
}

// TestBarrierConcurrentReports verifies exactly one report releases under contention.
func TestBarrierConcurrentReports(t *testing.T) {
	numAgencies := 100
	barrier := NewBarrier(numAgencies)

	var wg sync.WaitGroup
	var mu sync.Mutex
	releases := 0

	for agency := 1; agency <= numAgencies; agency++ {
		for repeat := 0; repeat < 3; repeat++ {
			wg.Add(1)
			go func(agency int) {
				defer wg.Done()
				if barrier.Report(agency) {
					mu.Lock()
					releases++
					mu.Unlock()
				}
			}(agency)
		}
	}
	wg.Wait()

	assert.Equal(t, 1, releases)
	assert.True(t, barrier.Released())
	assert.Len(t, barrier.Finished(), numAgencies)
	assert.Equal(t, numAgencies, barrier.Expected())
}

// TestBarrierCount verifies repeated reports from one agency count once.
func TestBarrierCount(t *testing.T) {
	barrier := NewBarrier(3)
	assert.Equal(t, 0, barrier.Count())

	barrier.Report(2)
	barrier.Report(2)
	barrier.Report(1)
	assert.Equal(t, 2, barrier.Count())
	assert.Equal(t, []int{1, 2}, barrier.Finished())

	barrier.Report(3)
	assert.Equal(t, 3, barrier.Count())
	assert.True(t, barrier.Released())
}
