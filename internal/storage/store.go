package storage

import (
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/dreamware/lotto/internal/lottery"
)

// ErrStorage wraps every failure to append or read back bets.
var ErrStorage = errors.New("storage error")

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "csv"
	BackendSQLite = "sqlite"
)

// BetStore is the persistence contract of the lottery server.
type BetStore interface {
	// Append stores bets in the given order. An empty slice is a no-op.
	Append(bets []lottery.Bet) error

	// All yields every stored bet in the order it was appended.
	// Each range over the result starts from the first bet.
	All() iter.Seq2[lottery.Bet, error]

	// Close releases the store's resources.
	Close() error
}

// Open creates the store for a backend name. path is ignored by the
// memory backend.
func Open(backend, path string) (BetStore, error) {
	switch backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		return NewFileStore(path), nil
	case BackendSQLite:
		return OpenSQLiteStore(path)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrStorage, backend)
	}
}

// MemoryStore implements BetStore in memory.
// Uses sync.RWMutex for thread-safe concurrent access.
type MemoryStore struct {
	mu   sync.RWMutex  // Protects bets
	bets []lottery.Bet // Append-only
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append stores bets after every bet already stored.
func (m *MemoryStore) Append(bets []lottery.Bet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bets = append(m.bets, bets...)
	return nil
}

// All yields the bets stored at the moment ranging starts.
// The slice is append-only, so the prefix captured under the lock never changes.
func (m *MemoryStore) All() iter.Seq2[lottery.Bet, error] {
	return func(yield func(lottery.Bet, error) bool) {
		m.mu.RLock()
		snapshot := m.bets[:len(m.bets):len(m.bets)]
		m.mu.RUnlock()

		for _, bet := range snapshot {
			if !yield(bet, nil) {
				return
			}
		}
	}
}

// Len returns the number of stored bets.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bets)
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

// Synchronized serializes access to a BetStore that is not safe for
// concurrent use: appends are exclusive and scans share the lock.
type Synchronized struct {
	store BetStore
	mu    sync.RWMutex
}

// Synchronize wraps store. Wrapping an already synchronized store returns it unchanged.
func Synchronize(store BetStore) *Synchronized {
	if s, ok := store.(*Synchronized); ok {
		return s
	}
	return &Synchronized{store: store}
}

// Append stores bets while holding the exclusive lock.
func (s *Synchronized) Append(bets []lottery.Bet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Append(bets)
}

// All ranges over the wrapped store while holding the shared lock.
func (s *Synchronized) All() iter.Seq2[lottery.Bet, error] {
	return func(yield func(lottery.Bet, error) bool) {
		s.mu.RLock()
		defer s.mu.RUnlock()

		for bet, err := range s.store.All() {
			if !yield(bet, err) {
				return
			}
		}
	}
}

// Close closes the wrapped store once no append or scan is in progress.
func (s *Synchronized) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Close()
}

// Collect drains a sequence into a slice, stopping at the first error.
func Collect(seq iter.Seq2[lottery.Bet, error]) ([]lottery.Bet, error) {
	var bets []lottery.Bet
	for bet, err := range seq {
		if err != nil {
			return bets, err
		}
		bets = append(bets, bet)
	}
	return bets, nil
}
