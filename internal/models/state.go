package models

import (
	"sort"
	"time"
)

// CounterDateFormat is the calendar-date key format for daily counters
const CounterDateFormat = "2006-01-02"

// DailyCounter represents the per-calendar-day send counter used for rate limiting
type DailyCounter struct {
	Date       string `json:"date"` // YYYY-MM-DD
	EmailsSent int    `json:"emails_sent"`
}

// PersistedState is the aggregate root persisted as a whole on every
// scheduling call and reconciliation pass. It is never partially visible:
// the store flushes it atomically under a version stamp.
type PersistedState struct {
	LastRunAt  *time.Time                `json:"last_run_at,omitempty"`
	LastSendAt *time.Time                `json:"last_send_at,omitempty"`
	Entries    map[string]*OutreachEntry `json:"entries"`
	Followups  []*ScheduledFollowup      `json:"followups"`
	Counters   map[string]*DailyCounter  `json:"counters"` // keyed by date
}

// NewPersistedState creates an empty state aggregate
func NewPersistedState() *PersistedState {
	return &PersistedState{
		Entries:   make(map[string]*OutreachEntry),
		Followups: []*ScheduledFollowup{},
		Counters:  make(map[string]*DailyCounter),
	}
}

// Entry returns the entry with the given id, or nil
func (s *PersistedState) Entry(id string) *OutreachEntry {
	return s.Entries[id]
}

// FollowupsFor returns all follow-ups owned by the given entry, in index order
func (s *PersistedState) FollowupsFor(entryID string) []*ScheduledFollowup {
	out := []*ScheduledFollowup{}
	for _, f := range s.Followups {
		if f.EntryID == entryID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// HasFollowups reports whether any follow-ups exist for the given entry
func (s *PersistedState) HasFollowups(entryID string) bool {
	for _, f := range s.Followups {
		if f.EntryID == entryID {
			return true
		}
	}
	return false
}

// DueFollowups returns pending follow-ups due at or before now,
// in ascending (due_at, index) order
func (s *PersistedState) DueFollowups(now time.Time) []*ScheduledFollowup {
	due := []*ScheduledFollowup{}
	for _, f := range s.Followups {
		if f.DueBy(now) {
			due = append(due, f)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].DueAt.Equal(due[j].DueAt) {
			return due[i].DueAt.Before(due[j].DueAt)
		}
		return due[i].Index < due[j].Index
	})
	return due
}

// CancelPendingFollowups marks every unsent, non-cancelled follow-up for the
// entry as cancelled and returns how many were cancelled
func (s *PersistedState) CancelPendingFollowups(entryID string) int {
	n := 0
	for _, f := range s.Followups {
		if f.EntryID == entryID && f.Pending() {
			f.Cancelled = true
			n++
		}
	}
	return n
}

// CounterFor returns the counter for the given day, creating it if absent
func (s *PersistedState) CounterFor(day time.Time) *DailyCounter {
	key := day.Format(CounterDateFormat)
	c, ok := s.Counters[key]
	if !ok {
		c = &DailyCounter{Date: key}
		s.Counters[key] = c
	}
	return c
}

// RecordSend increments the counter for the given day and advances
// last_send_at. A backdated send still counts against its day but never
// moves last_send_at backwards, which would weaken the rate limit.
func (s *PersistedState) RecordSend(at time.Time) {
	s.CounterFor(at).EmailsSent++
	if s.LastSendAt == nil || at.After(*s.LastSendAt) {
		t := at
		s.LastSendAt = &t
	}
}

// Clone returns a deep copy of the whole aggregate. Snapshot readers get a
// clone so they can never observe a state mid-mutation.
func (s *PersistedState) Clone() *PersistedState {
	c := NewPersistedState()
	if s.LastRunAt != nil {
		t := *s.LastRunAt
		c.LastRunAt = &t
	}
	if s.LastSendAt != nil {
		t := *s.LastSendAt
		c.LastSendAt = &t
	}
	for id, e := range s.Entries {
		c.Entries[id] = e.Clone()
	}
	for _, f := range s.Followups {
		c.Followups = append(c.Followups, f.Clone())
	}
	for key, ctr := range s.Counters {
		cc := *ctr
		c.Counters[key] = &cc
	}
	return c
}

// Summary represents the outcome of one reconciliation pass
type Summary struct {
	RepliesDetected    int       `json:"replies_detected"`
	FollowupsSent      int       `json:"followups_sent"`
	FollowupsDeferred  int       `json:"followups_deferred"`
	FollowupsCancelled int       `json:"followups_cancelled"`
	Errors             []string  `json:"errors"`
	RanAt              time.Time `json:"ran_at"`
}

// IsNoOp reports whether the pass changed nothing
func (s *Summary) IsNoOp() bool {
	return s.RepliesDetected == 0 &&
		s.FollowupsSent == 0 &&
		s.FollowupsDeferred == 0 &&
		s.FollowupsCancelled == 0 &&
		len(s.Errors) == 0
}
