package models

import (
	"testing"
	"time"
)

func pendingFollowup(entryID string, index int, due time.Time) *ScheduledFollowup {
	return &ScheduledFollowup{EntryID: entryID, Index: index, DueAt: due}
}

func TestDueFollowups_OrderedByDueAtThenIndex(t *testing.T) {
	now := time.Date(2025, time.February, 17, 10, 0, 0, 0, time.UTC)
	early := time.Date(2025, time.February, 7, 9, 0, 0, 0, time.UTC)
	later := time.Date(2025, time.February, 13, 9, 0, 0, 0, time.UTC)

	s := NewPersistedState()
	s.Followups = []*ScheduledFollowup{
		pendingFollowup("b", 2, later),
		pendingFollowup("a", 1, early),
		pendingFollowup("b", 1, later),
		pendingFollowup("c", 1, now.AddDate(0, 0, 5)), // not yet due
	}

	due := s.DueFollowups(now)
	if len(due) != 3 {
		t.Fatalf("due count = %d, want 3", len(due))
	}
	if due[0].EntryID != "a" {
		t.Errorf("earliest due first: got %s/%d", due[0].EntryID, due[0].Index)
	}
	if due[1].Index != 1 || due[2].Index != 2 {
		t.Errorf("equal due_at must order by index: got %d then %d", due[1].Index, due[2].Index)
	}
}

func TestDueFollowups_SkipsSentAndCancelled(t *testing.T) {
	now := time.Date(2025, time.February, 17, 10, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -3)

	sent := pendingFollowup("a", 1, past)
	sent.Sent = true
	cancelled := pendingFollowup("a", 2, past)
	cancelled.Cancelled = true

	s := NewPersistedState()
	s.Followups = []*ScheduledFollowup{sent, cancelled, pendingFollowup("a", 3, past)}

	due := s.DueFollowups(now)
	if len(due) != 1 || due[0].Index != 3 {
		t.Errorf("only the pending record is due, got %d records", len(due))
	}
}

func TestCancelPendingFollowups_LeavesSentRecordsAlone(t *testing.T) {
	past := time.Date(2025, time.February, 7, 9, 0, 0, 0, time.UTC)

	sent := pendingFollowup("a", 1, past)
	sent.Sent = true

	s := NewPersistedState()
	s.Followups = []*ScheduledFollowup{sent, pendingFollowup("a", 2, past), pendingFollowup("a", 3, past)}

	n := s.CancelPendingFollowups("a")
	if n != 2 {
		t.Errorf("cancelled %d, want 2", n)
	}
	if sent.Cancelled {
		t.Error("sent record must never become cancelled")
	}
	if sent.Validate() != nil {
		t.Errorf("sent record invalid: %v", sent.Validate())
	}
}

func TestFollowupValidate_RejectsSentAndCancelled(t *testing.T) {
	f := pendingFollowup("a", 1, time.Now())
	f.Sent = true
	f.Cancelled = true

	if f.Validate() == nil {
		t.Error("sent+cancelled must be invalid")
	}
}

func TestPersistedStateClone_IsDeep(t *testing.T) {
	sentAt := time.Date(2025, time.February, 3, 9, 0, 0, 0, time.UTC)

	s := NewPersistedState()
	s.Entries["a"] = &OutreachEntry{
		ID: "a", Company: "TechCorp", RecipientEmail: "x@y.z",
		Status: EntryStatusSent, SentAt: &sentAt,
	}
	s.Followups = []*ScheduledFollowup{pendingFollowup("a", 1, sentAt.AddDate(0, 0, 4))}
	s.RecordSend(sentAt)

	c := s.Clone()
	c.Entries["a"].Status = EntryStatusReplied
	c.Followups[0].Cancelled = true
	c.CounterFor(sentAt).EmailsSent = 99

	if s.Entries["a"].Status != EntryStatusSent {
		t.Error("clone shares entry pointer")
	}
	if s.Followups[0].Cancelled {
		t.Error("clone shares follow-up pointer")
	}
	if s.CounterFor(sentAt).EmailsSent != 1 {
		t.Error("clone shares counter pointer")
	}
}

func TestRecordSend_BackdatedSendNeverRewindsLastSendAt(t *testing.T) {
	recent := time.Date(2025, time.February, 7, 9, 0, 0, 0, time.UTC)
	backdated := time.Date(2025, time.February, 3, 9, 0, 0, 0, time.UTC)

	s := NewPersistedState()
	s.RecordSend(recent)
	s.RecordSend(backdated)

	if !s.LastSendAt.Equal(recent) {
		t.Errorf("last_send_at = %v, want %v", s.LastSendAt, recent)
	}
	if s.CounterFor(backdated).EmailsSent != 1 {
		t.Error("backdated send must still count against its own day")
	}
	if s.CounterFor(recent).EmailsSent != 1 {
		t.Error("recent day's counter must be untouched")
	}

	later := recent.Add(time.Hour)
	s.RecordSend(later)
	if !s.LastSendAt.Equal(later) {
		t.Errorf("last_send_at = %v, want %v", s.LastSendAt, later)
	}
}

func TestEntryValidate(t *testing.T) {
	sentAt := time.Now()

	valid := &OutreachEntry{
		ID: "a", Company: "TechCorp", RecipientEmail: "hiring@techcorp.example",
		Status: EntryStatusSent, SentAt: &sentAt,
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid entry rejected: %v", err)
	}

	noSentAt := &OutreachEntry{
		ID: "a", Company: "TechCorp", RecipientEmail: "hiring@techcorp.example",
		Status: EntryStatusSent,
	}
	if noSentAt.Validate() == nil {
		t.Error("sent entry without sent_at must be invalid")
	}

	badEmail := &OutreachEntry{
		ID: "a", Company: "TechCorp", RecipientEmail: "not-an-email",
		Status: EntryStatusSent, SentAt: &sentAt,
	}
	if badEmail.Validate() == nil {
		t.Error("malformed email must be invalid")
	}
}
