package coordinator

import (
	"io"
	"sync"
	"time"

	"golang.org/x/exp/slices"
)

// Worker is a goroutine started through a Registry. It can be joined
// with a timeout, which is all shutdown needs from it.
type Worker struct {
	done chan struct{}
	ID   string
}

// Done returns a channel closed when the worker's function returns.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Finished reports whether the worker has exited.
func (w *Worker) Finished() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

// Join waits up to timeout for the worker to exit and reports whether it did.
func (w *Worker) Join(timeout time.Duration) bool {
	if w.Finished() {
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-w.done:
		return true
	case <-timer.C:
		return false
	}
}

// Registry tracks live client connections and the workers serving them so
// shutdown can close every socket and wait for every worker. It is never
// used to route requests.
//
// Thread Safety:
// One mutex guards both sets and is held only for mutation and snapshots.
// Callers close connections and join workers on snapshots, outside the lock.
type Registry struct {
	conns   map[string]io.Closer // Open connections by id
	workers []*Worker            // Started workers not yet pruned
	mu      sync.Mutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]io.Closer),
	}
}

// AddConn registers an open connection under id.
func (r *Registry) AddConn(id string, conn io.Closer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = conn
}

// RemoveConn forgets the connection registered under id. Unknown ids are ignored.
func (r *Registry) RemoveConn(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

// Conns returns a snapshot of the open connections.
func (r *Registry) Conns() []io.Closer {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := make([]io.Closer, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	return conns
}

// ConnCount returns the number of open connections.
func (r *Registry) ConnCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// Go registers a worker and runs fn on a new goroutine.
// The worker is registered before fn starts.
func (r *Registry) Go(id string, fn func()) *Worker {
	w := &Worker{ID: id, done: make(chan struct{})}

	r.mu.Lock()
	r.workers = append(r.workers, w)
	r.mu.Unlock()

	go func() {
		defer close(w.done)
		fn()
	}()
	return w
}

// Prune drops workers that have exited and returns how many were dropped.
func (r *Registry) Prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := len(r.workers)
	r.workers = slices.DeleteFunc(r.workers, (*Worker).Finished)
	return before - len(r.workers)
}

// Workers returns a snapshot of the registered workers.
func (r *Registry) Workers() []*Worker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.workers)
}

// JoinAll waits for every registered worker to exit, sharing one deadline
// of timeout across all of them. It returns the ids of workers still
// running when the deadline passed.
func (r *Registry) JoinAll(timeout time.Duration) []string {
	deadline := time.Now().Add(timeout)

	var stuck []string
	for _, w := range r.Workers() {
		if !w.Join(time.Until(deadline)) {
			stuck = append(stuck, w.ID)
		}
	}
	return stuck
}
