package coordinator

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	closed atomic.Bool
}

func (c *fakeConn) Close() error {
	if c.closed.Swap(true) {
		return errors.New("already closed")
	}
	return nil
}

func TestRegistryConns(t *testing.T) {
	registry := NewRegistry()
	a, b := &fakeConn{}, &fakeConn{}

	registry.AddConn("a", a)
	registry.AddConn("b", b)
	assert.Equal(t, 2, registry.ConnCount())

	snapshot := registry.Conns()
	assert.Len(t, snapshot, 2)

	registry.RemoveConn("a")
	registry.RemoveConn("missing")
	assert.Equal(t, 1, registry.ConnCount())

	// The snapshot is unaffected by later removals
	assert.Len(t, snapshot, 2)
}

func TestRegistryWorkers(t *testing.T) {
	registry := NewRegistry()
	release := make(chan struct{})

	fast := registry.Go("fast", func() {})
	slow := registry.Go("slow", func() { <-release })

	require.True(t, fast.Join(time.Second))
	assert.True(t, fast.Finished())
	assert.False(t, slow.Finished())

	assert.Equal(t, 1, registry.Prune())
	workers := registry.Workers()
	require.Len(t, workers, 1)
	assert.Equal(t, "slow", workers[0].ID)

	close(release)
	require.True(t, slow.Join(time.Second))
	assert.Equal(t, 1, registry.Prune())
	assert.Empty(t, registry.Workers())
}

// TestRegistryJoinAll verifies the shared deadline and the stuck worker report.
func TestRegistryJoinAll(t *testing.T) {
	registry := NewRegistry()
	release := make(chan struct{})
	defer close(release)

	for i := 0; i < 5; i++ {
		registry.Go(fmt.Sprintf("quick-%d", i), func() { time.Sleep(10 * time.Millisecond) })
	}
	registry.Go("stuck-1", func() { <-release })
	registry.Go("stuck-2", func() { <-release })

	start := time.Now()
	stuck := registry.JoinAll(100 * time.Millisecond)
	elapsed := time.Since(start)

	assert.ElementsMatch(t, []string{"stuck-1", "stuck-2"}, stuck)
	assert.Less(t, elapsed, time.Second, "deadline is shared, not per worker")
}

func TestRegistryConcurrentUse(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("conn-%d", i)
			registry.AddConn(id, &fakeConn{})
			registry.Go(id, func() {})
			registry.Prune()
			registry.RemoveConn(id)
		}(i)
	}
	wg.Wait()

	assert.Zero(t, registry.ConnCount())
	assert.Empty(t, registry.JoinAll(time.Second))
}
