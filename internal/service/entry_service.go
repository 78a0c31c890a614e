package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mubot/internal/models"
	"mubot/internal/store"
)

// EntryService handles outreach entry lifecycle operations
type EntryService struct {
	store *store.Store
}

// NewEntryService creates a new entry service
func NewEntryService(st *store.Store) *EntryService {
	return &EntryService{store: st}
}

// CreateEntryRequest represents a request to record a sent outreach
type CreateEntryRequest struct {
	Company        string     `json:"company"`
	Role           string     `json:"role"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject"`
	Body           string     `json:"body"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
}

// Validate validates the create entry request
func (r *CreateEntryRequest) Validate() error {
	if r.Company == "" {
		return fmt.Errorf("company is required")
	}
	if r.RecipientEmail == "" {
		return fmt.Errorf("recipient_email is required")
	}
	return nil
}

// CreateEntry records an already-sent outreach and schedules its follow-up
// sequence in the same atomic flush
func (s *EntryService) CreateEntry(ctx context.Context, req *CreateEntryRequest) (*models.OutreachEntry, []*models.ScheduledFollowup, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, &ValidationError{Message: err.Error()}
	}

	now := time.Now()
	sentAt := now
	if req.SentAt != nil {
		sentAt = *req.SentAt
	}

	entry := &models.OutreachEntry{
		ID:             uuid.NewString(),
		Company:        req.Company,
		Role:           req.Role,
		RecipientEmail: req.RecipientEmail,
		Subject:        req.Subject,
		Body:           req.Body,
		Status:         models.EntryStatusSent,
		SentAt:         &sentAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := entry.Validate(); err != nil {
		return nil, nil, &ValidationError{Message: err.Error()}
	}

	var created []*models.ScheduledFollowup
	err := s.store.Update(ctx, func(state *models.PersistedState) error {
		followups, err := planFollowups(state, entry)
		if err != nil {
			return err
		}
		state.Entries[entry.ID] = entry.Clone()
		state.Followups = append(state.Followups, followups...)
		state.RecordSend(sentAt)

		created = make([]*models.ScheduledFollowup, len(followups))
		for i, f := range followups {
			created[i] = f.Clone()
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return entry, created, nil
}

// GetEntry retrieves an entry and its follow-ups from the last flushed state
func (s *EntryService) GetEntry(ctx context.Context, id string) (*models.OutreachEntry, []*models.ScheduledFollowup, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}

	entry := snap.Entry(id)
	if entry == nil {
		return nil, nil, &NotFoundError{Resource: "entry", ID: id}
	}
	return entry, snap.FollowupsFor(id), nil
}

// ListPendingFollowups returns every unsent, non-cancelled follow-up from
// the last flushed state. Read-only: never blocks a concurrent pass.
func (s *EntryService) ListPendingFollowups(ctx context.Context) ([]*models.ScheduledFollowup, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	pending := []*models.ScheduledFollowup{}
	for _, f := range snap.Followups {
		if f.Pending() {
			pending = append(pending, f)
		}
	}
	return pending, nil
}

// MarkDoNotContact transitions an entry to do_not_contact and cascades
// cancellation of its unsent follow-ups. Returns how many were cancelled.
func (s *EntryService) MarkDoNotContact(ctx context.Context, entryID string) (int, error) {
	cancelled := 0
	err := s.store.Update(ctx, func(state *models.PersistedState) error {
		entry := state.Entry(entryID)
		if entry == nil {
			return &NotFoundError{Resource: "entry", ID: entryID}
		}
		if entry.Status == models.EntryStatusReplied {
			return &InvalidEntryStateError{
				EntryID: entryID,
				Status:  string(entry.Status),
				Message: "replied entries cannot transition to do_not_contact",
			}
		}

		entry.Status = models.EntryStatusDoNotContact
		entry.UpdatedAt = time.Now()
		cancelled = state.CancelPendingFollowups(entryID)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return cancelled, nil
}

// AttachDraft attaches pre-drafted content to a pending follow-up so the
// reconciliation pass can run the content policy check before sending
func (s *EntryService) AttachDraft(ctx context.Context, entryID string, index int, subject, body string) error {
	return s.store.Update(ctx, func(state *models.PersistedState) error {
		for _, f := range state.FollowupsFor(entryID) {
			if f.Index != index {
				continue
			}
			if !f.Pending() {
				return &InvalidEntryStateError{
					EntryID: entryID,
					Status:  string(state.Entry(entryID).Status),
					Message: fmt.Sprintf("follow-up %d is already sent or cancelled", index),
				}
			}
			f.Subject = subject
			f.Body = body
			return nil
		}
		return &NotFoundError{Resource: "follow-up", ID: fmt.Sprintf("%s/%d", entryID, index)}
	})
}
