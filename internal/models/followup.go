package models

import (
	"fmt"
	"time"
)

// FollowupOffsets holds the business-day offsets from the initial send for
// follow-ups 1, 2 and 3.
var FollowupOffsets = [3]int{4, 8, 10}

// MaxFollowups is the maximum number of follow-ups per entry
const MaxFollowups = 3

// ScheduledFollowup represents one planned reminder tied to an entry
type ScheduledFollowup struct {
	EntryID   string     `json:"entry_id"`
	Index     int        `json:"index"` // 1-based, never reused
	DueAt     time.Time  `json:"due_at"`
	Sent      bool       `json:"sent"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	Cancelled bool       `json:"cancelled"`

	// Optional pre-drafted content, attached by the drafting layer.
	// Empty until a draft exists; the sender resolves content itself
	// when none is attached.
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body,omitempty"`
}

// Validate checks if the follow-up fields are valid
func (f *ScheduledFollowup) Validate() error {
	if f.EntryID == "" {
		return fmt.Errorf("entry_id is required")
	}
	if f.Index < 1 || f.Index > MaxFollowups {
		return fmt.Errorf("index must be between 1 and %d", MaxFollowups)
	}
	if f.DueAt.IsZero() {
		return fmt.Errorf("due_at is required")
	}
	if f.Sent && f.Cancelled {
		return fmt.Errorf("follow-up cannot be both sent and cancelled")
	}
	return nil
}

// Pending reports whether the follow-up is still awaiting delivery
func (f *ScheduledFollowup) Pending() bool {
	return !f.Sent && !f.Cancelled
}

// DueBy reports whether the follow-up is pending and due at the given time
func (f *ScheduledFollowup) DueBy(now time.Time) bool {
	return f.Pending() && !f.DueAt.After(now)
}

// HasDraft reports whether pre-drafted content is attached
func (f *ScheduledFollowup) HasDraft() bool {
	return f.Subject != "" || f.Body != ""
}

// Clone returns a deep copy of the follow-up
func (f *ScheduledFollowup) Clone() *ScheduledFollowup {
	c := *f
	if f.SentAt != nil {
		t := *f.SentAt
		c.SentAt = &t
	}
	return &c
}
