package service

import (
	"context"
	"testing"
	"time"

	"mubot/internal/guardrail"
	"mubot/internal/models"
	"mubot/internal/store"
)

// mockSender mocks the Sender collaborator
type mockSender struct {
	SendFunc func(ctx context.Context, entry *models.OutreachEntry, followupIndex int) error
	Calls    []string
}

func (m *mockSender) Send(ctx context.Context, entry *models.OutreachEntry, followupIndex int) error {
	m.Calls = append(m.Calls, entry.ID)
	if m.SendFunc != nil {
		return m.SendFunc(ctx, entry, followupIndex)
	}
	return nil
}

// mockDetector mocks the ReplyDetector collaborator
type mockDetector struct {
	HasRepliedFunc func(ctx context.Context, entry *models.OutreachEntry) (bool, error)
	Calls          int
}

func (m *mockDetector) HasReplied(ctx context.Context, entry *models.OutreachEntry) (bool, error) {
	m.Calls++
	if m.HasRepliedFunc != nil {
		return m.HasRepliedFunc(ctx, entry)
	}
	return false, nil
}

// mondaySend is the canonical fixture instant: Monday Feb 3 2025, 09:00 UTC
var mondaySend = time.Date(2025, time.February, 3, 9, 0, 0, 0, time.UTC)

func newTestStore() *store.Store {
	return store.New(store.NewMemoryBackend())
}

func defaultGuard() *guardrail.Evaluator {
	return guardrail.NewEvaluator(guardrail.Config{
		DailyCap:        20,
		MinSendInterval: 0,
	})
}

// seedEntry writes a sent entry directly into the store
func seedEntry(t *testing.T, st *store.Store, id string, sentAt time.Time) *models.OutreachEntry {
	t.Helper()

	entry := &models.OutreachEntry{
		ID:             id,
		Company:        "TechCorp",
		Role:           "Platform Engineer",
		RecipientEmail: "hiring@techcorp.example",
		Subject:        "Platform Engineer role",
		Body:           "Initial outreach. Reply 'unsubscribe' to opt out.",
		Status:         models.EntryStatusSent,
		SentAt:         &sentAt,
		CreatedAt:      sentAt,
		UpdatedAt:      sentAt,
	}
	err := st.Update(context.Background(), func(state *models.PersistedState) error {
		state.Entries[id] = entry.Clone()
		return nil
	})
	if err != nil {
		t.Fatalf("failed to seed entry: %v", err)
	}
	return entry
}

// newRunner builds a runner with a fixed clock
func newRunner(st *store.Store, guard *guardrail.Evaluator, sender Sender, detector ReplyDetector, now time.Time) *ReconciliationRunner {
	r := NewReconciliationRunner(st, guard, sender, detector, nil)
	r.now = func() time.Time { return now }
	return r
}
