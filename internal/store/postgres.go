package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"mubot/internal/models"
)

// postgresBackend stores the aggregate as a single versioned JSONB row
type postgresBackend struct {
	db *sql.DB
}

// NewPostgresBackend creates a Postgres-backed storage backend. The
// outreach_state table holds exactly one row (see scripts/migrate).
func NewPostgresBackend(db *sql.DB) Backend {
	return &postgresBackend{db: db}
}

// Load reads the current aggregate and version
func (b *postgresBackend) Load(ctx context.Context) (*models.PersistedState, int64, error) {
	query := `
		SELECT version, doc
		FROM outreach_state
		WHERE id = 1
	`

	var version int64
	var doc []byte
	err := b.db.QueryRowContext(ctx, query).Scan(&version, &doc)
	if err == sql.ErrNoRows {
		return models.NewPersistedState(), 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load state row: %w", err)
	}

	state := models.NewPersistedState()
	if err := json.Unmarshal(doc, state); err != nil {
		return nil, 0, fmt.Errorf("failed to decode state document: %w", err)
	}

	return state, version, nil
}

// Save writes the aggregate in one statement guarded by the version stamp
func (b *postgresBackend) Save(ctx context.Context, state *models.PersistedState, expectedVersion int64) error {
	doc, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state document: %w", err)
	}

	if expectedVersion == 0 {
		query := `
			INSERT INTO outreach_state (id, version, doc, updated_at)
			VALUES (1, 1, $1, NOW())
			ON CONFLICT (id) DO NOTHING
		`
		result, err := b.db.ExecContext(ctx, query, doc)
		if err != nil {
			return fmt.Errorf("failed to insert state row: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			// Another writer created the row first.
			return ErrVersionConflict
		}
		return nil
	}

	query := `
		UPDATE outreach_state
		SET doc = $1, version = version + 1, updated_at = NOW()
		WHERE id = 1 AND version = $2
	`
	result, err := b.db.ExecContext(ctx, query, doc, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update state row: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrVersionConflict
	}
	return nil
}
