package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cenkalti/backoff/v4"

	"mubot/internal/models"
)

// newTestBackoff keeps conflict-retry tests fast
func newTestBackoff() backoff.BackOff {
	return backoff.NewConstantBackOff(time.Millisecond)
}

func TestStore_UpdateAndSnapshotRoundTrip(t *testing.T) {
	s := New(NewMemoryBackend())
	ctx := context.Background()

	loc := time.FixedZone("EAT", 3*60*60)
	sentAt := time.Date(2025, time.February, 3, 9, 0, 0, 0, loc)
	due := time.Date(2025, time.February, 7, 9, 0, 0, 0, loc)

	err := s.Update(ctx, func(state *models.PersistedState) error {
		state.Entries["entry-1"] = &models.OutreachEntry{
			ID:             "entry-1",
			Company:        "TechCorp",
			Role:           "Platform Engineer",
			RecipientEmail: "hiring@techcorp.example",
			Status:         models.EntryStatusSent,
			SentAt:         &sentAt,
			CreatedAt:      sentAt,
			UpdatedAt:      sentAt,
		}
		state.Followups = append(state.Followups, &models.ScheduledFollowup{
			EntryID: "entry-1",
			Index:   1,
			DueAt:   due,
		})
		state.RecordSend(sentAt)
		return nil
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	entry := snap.Entry("entry-1")
	if entry == nil {
		t.Fatal("entry missing after round trip")
	}
	if !entry.SentAt.Equal(sentAt) {
		t.Errorf("sent_at = %v, want %v", entry.SentAt, sentAt)
	}
	if len(snap.Followups) != 1 || !snap.Followups[0].DueAt.Equal(due) {
		t.Errorf("follow-up due_at not preserved: %+v", snap.Followups)
	}
	if snap.CounterFor(sentAt).EmailsSent != 1 {
		t.Errorf("counter = %d, want 1", snap.CounterFor(sentAt).EmailsSent)
	}
	if snap.LastSendAt == nil || !snap.LastSendAt.Equal(sentAt) {
		t.Errorf("last_send_at not preserved: %v", snap.LastSendAt)
	}
}

func TestStore_SnapshotIsolatedFromLaterMutation(t *testing.T) {
	s := New(NewMemoryBackend())
	ctx := context.Background()

	if err := s.Update(ctx, func(state *models.PersistedState) error {
		state.Followups = append(state.Followups, &models.ScheduledFollowup{
			EntryID: "entry-1", Index: 1, DueAt: time.Now(),
		})
		return nil
	}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	snap.Followups[0].Cancelled = true

	fresh, _ := s.Snapshot(ctx)
	if fresh.Followups[0].Cancelled {
		t.Error("mutating a snapshot leaked into stored state")
	}
}

func TestStore_ErrorFromFnAbortsWithoutFlush(t *testing.T) {
	s := New(NewMemoryBackend())
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.Update(ctx, func(state *models.PersistedState) error {
		state.Followups = append(state.Followups, &models.ScheduledFollowup{
			EntryID: "entry-1", Index: 1, DueAt: time.Now(),
		})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error surfaced, got %v", err)
	}

	snap, _ := s.Snapshot(ctx)
	if len(snap.Followups) != 0 {
		t.Error("aborted update must not flush partial state")
	}
}

// conflictBackend wraps a backend and forces version conflicts on the
// first n saves
type conflictBackend struct {
	Backend
	remaining int
	saves     int
}

func (b *conflictBackend) Save(ctx context.Context, state *models.PersistedState, expectedVersion int64) error {
	b.saves++
	if b.remaining > 0 {
		b.remaining--
		return ErrVersionConflict
	}
	return b.Backend.Save(ctx, state, expectedVersion)
}

func TestStore_RetriesConflictsThenSucceeds(t *testing.T) {
	backend := &conflictBackend{Backend: NewMemoryBackend(), remaining: 2}
	s := New(backend)
	s.newBackoff = newTestBackoff

	err := s.Update(context.Background(), func(state *models.PersistedState) error {
		state.CounterFor(time.Now()).EmailsSent++
		return nil
	})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if backend.saves != 3 {
		t.Errorf("saves = %d, want 3 (two conflicts then success)", backend.saves)
	}
}

func TestStore_SurfacesConflictAfterBoundedRetries(t *testing.T) {
	backend := &conflictBackend{Backend: NewMemoryBackend(), remaining: 100}
	s := New(backend)
	s.newBackoff = newTestBackoff

	err := s.Update(context.Background(), func(state *models.PersistedState) error { return nil })

	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Attempts != s.maxAttempts {
		t.Errorf("attempts = %d, want %d", conflict.Attempts, s.maxAttempts)
	}
}

func TestPostgresBackend_LoadEmpty(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT version, doc").WillReturnRows(sqlmock.NewRows([]string{"version", "doc"}))

	state, version, err := NewPostgresBackend(db).Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if version != 0 {
		t.Errorf("version = %d, want 0", version)
	}
	if len(state.Entries) != 0 || len(state.Followups) != 0 {
		t.Error("empty backend must yield empty aggregate")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresBackend_FirstSaveInserts(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO outreach_state").WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewPostgresBackend(db).Save(context.Background(), models.NewPersistedState(), 0); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresBackend_StaleVersionConflicts(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	// Another writer bumped the version: zero rows match the guard.
	mock.ExpectExec("UPDATE outreach_state").WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewPostgresBackend(db).Save(context.Background(), models.NewPersistedState(), 7)
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
