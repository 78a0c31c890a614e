package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"mubot/internal/models"
)

// memoryBackend holds the aggregate in memory as its serialized document,
// so the JSON round trip is exercised exactly as with a durable backend.
// Used for development mode and tests.
type memoryBackend struct {
	mu      sync.Mutex
	doc     []byte
	version int64
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() Backend {
	return &memoryBackend{}
}

func (b *memoryBackend) Load(_ context.Context) (*models.PersistedState, int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.version == 0 {
		return models.NewPersistedState(), 0, nil
	}

	state := models.NewPersistedState()
	if err := json.Unmarshal(b.doc, state); err != nil {
		return nil, 0, fmt.Errorf("failed to decode state document: %w", err)
	}
	return state, b.version, nil
}

func (b *memoryBackend) Save(_ context.Context, state *models.PersistedState, expectedVersion int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.version != expectedVersion {
		return ErrVersionConflict
	}

	doc, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state document: %w", err)
	}

	b.doc = doc
	b.version++
	return nil
}
