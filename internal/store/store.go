// Package store persists the outreach state aggregate. The aggregate is
// loaded whole, mutated, and flushed whole under an optimistic version
// stamp; concurrent writers are serialized in-process by a mutex and
// across processes by compare-and-swap with bounded retry.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"mubot/internal/models"
)

// ErrVersionConflict is returned by a Backend when the stored version no
// longer matches the version the aggregate was loaded at.
var ErrVersionConflict = errors.New("state version conflict")

// ConflictError is returned by Update when conflict retries are exhausted.
// The prior flushed state remains authoritative; nothing was written.
type ConflictError struct {
	Attempts int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("storage conflict persisted after %d attempts", e.Attempts)
}

// Backend is the durable storage port for the state aggregate
type Backend interface {
	// Load returns the last flushed aggregate and its version stamp.
	// A backend holding no state returns an empty aggregate at version 0.
	Load(ctx context.Context) (*models.PersistedState, int64, error)

	// Save flushes the aggregate atomically if the stored version still
	// equals expectedVersion, and returns ErrVersionConflict otherwise.
	Save(ctx context.Context, state *models.PersistedState, expectedVersion int64) error
}

// Store wraps a Backend with the read-modify-write discipline every
// mutation must follow
type Store struct {
	backend     Backend
	mu          sync.Mutex
	maxAttempts int
	newBackoff  func() backoff.BackOff
}

// New creates a store over the given backend
func New(backend Backend) *Store {
	return &Store{
		backend:     backend,
		maxAttempts: 5,
		newBackoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 50 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
}

// Update runs fn inside an exclusive read-modify-write cycle: load the
// aggregate, apply fn, flush under the loaded version. A version conflict
// restarts the whole cycle against fresh state, with exponential backoff,
// up to the attempt limit. An error from fn aborts without flushing.
func (s *Store) Update(ctx context.Context, fn func(state *models.PersistedState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempts := 0
	op := func() error {
		attempts++

		state, version, err := s.backend.Load(ctx)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to load state: %w", err))
		}

		if err := fn(state); err != nil {
			return backoff.Permanent(err)
		}

		if err := s.backend.Save(ctx, state, version); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				return err // retryable
			}
			return backoff.Permanent(fmt.Errorf("failed to flush state: %w", err))
		}
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(s.newBackoff(), uint64(s.maxAttempts-1)), ctx)
	if err := backoff.Retry(op, b); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return &ConflictError{Attempts: attempts}
		}
		return err
	}
	return nil
}

// Snapshot returns a deep copy of the last flushed aggregate. Snapshot
// readers never block writers and never observe a state mid-flush.
func (s *Store) Snapshot(ctx context.Context) (*models.PersistedState, error) {
	state, _, err := s.backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	return state.Clone(), nil
}
