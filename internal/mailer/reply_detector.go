package mailer

import (
	"context"
	"database/sql"
	"fmt"

	"mubot/internal/models"
)

// ReplyDetector checks the inbound_replies table for replies received
// since an entry was sent. The table is populated by an external mail
// ingest job; this detector only reads it.
type ReplyDetector struct {
	db *sql.DB
}

// NewReplyDetector creates a reply detector over the given database
func NewReplyDetector(db *sql.DB) *ReplyDetector {
	return &ReplyDetector{db: db}
}

// HasReplied reports whether a reply from the entry's recipient arrived
// after the entry was sent. Cheap enough for per-pass polling.
func (d *ReplyDetector) HasReplied(ctx context.Context, entry *models.OutreachEntry) (bool, error) {
	if entry.SentAt == nil {
		return false, nil
	}

	query := `
		SELECT EXISTS (
			SELECT 1
			FROM inbound_replies
			WHERE sender_email = $1 AND received_at > $2
		)
	`

	var replied bool
	err := d.db.QueryRowContext(ctx, query, entry.RecipientEmail, *entry.SentAt).Scan(&replied)
	if err != nil {
		return false, fmt.Errorf("failed to check replies for %s: %w", entry.ID, err)
	}
	return replied, nil
}
