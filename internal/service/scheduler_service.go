package service

import (
	"context"
	"fmt"

	"mubot/internal/calendar"
	"mubot/internal/models"
	"mubot/internal/store"
)

// FollowupScheduler creates the bounded follow-up sequence for a sent entry
type FollowupScheduler struct {
	store *store.Store
}

// NewFollowupScheduler creates a new follow-up scheduler
func NewFollowupScheduler(st *store.Store) *FollowupScheduler {
	return &FollowupScheduler{store: st}
}

// Schedule creates the three follow-ups for the given entry and persists
// them atomically. Calling it a second time for the same entry fails with
// DuplicateScheduleError and leaves state untouched.
func (s *FollowupScheduler) Schedule(ctx context.Context, entryID string) ([]*models.ScheduledFollowup, error) {
	var created []*models.ScheduledFollowup

	err := s.store.Update(ctx, func(state *models.PersistedState) error {
		entry := state.Entry(entryID)
		if entry == nil {
			return &NotFoundError{Resource: "entry", ID: entryID}
		}

		followups, err := planFollowups(state, entry)
		if err != nil {
			return err
		}

		state.Followups = append(state.Followups, followups...)

		created = make([]*models.ScheduledFollowup, len(followups))
		for i, f := range followups {
			created[i] = f.Clone()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// planFollowups builds the three follow-up records for an entry after
// checking its preconditions. It does not mutate state; callers append the
// result inside their own write cycle so entry creation and scheduling can
// share one atomic flush.
func planFollowups(state *models.PersistedState, entry *models.OutreachEntry) ([]*models.ScheduledFollowup, error) {
	if !entry.CanScheduleFollowups() {
		return nil, &InvalidEntryStateError{
			EntryID: entry.ID,
			Status:  string(entry.Status),
			Message: "follow-ups can only be scheduled for sent entries",
		}
	}
	if state.HasFollowups(entry.ID) {
		return nil, &DuplicateScheduleError{EntryID: entry.ID}
	}

	followups := make([]*models.ScheduledFollowup, 0, models.MaxFollowups)
	for i, offset := range models.FollowupOffsets {
		dueAt, err := calendar.DueTime(*entry.SentAt, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to compute due date for follow-up %d: %w", i+1, err)
		}
		followups = append(followups, &models.ScheduledFollowup{
			EntryID: entry.ID,
			Index:   i + 1,
			DueAt:   dueAt,
		})
	}
	return followups, nil
}
