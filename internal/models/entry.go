package models

import (
	"fmt"
	"strings"
	"time"
)

// EntryStatus represents valid outreach entry statuses
type EntryStatus string

const (
	EntryStatusSent         EntryStatus = "sent"
	EntryStatusReplied      EntryStatus = "replied"
	EntryStatusDoNotContact EntryStatus = "do_not_contact"
)

// OutreachEntry represents one tracked outreach action: a sent initial
// message and its follow-up lifecycle
type OutreachEntry struct {
	ID             string      `json:"id"`
	Company        string      `json:"company"`
	Role           string      `json:"role"`
	RecipientEmail string      `json:"recipient_email"`
	Subject        string      `json:"subject"`
	Body           string      `json:"body"`
	Status         EntryStatus `json:"status"`
	SentAt         *time.Time  `json:"sent_at,omitempty"`
	RepliedAt      *time.Time  `json:"replied_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Validate checks if the entry fields are valid
func (e *OutreachEntry) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("entry id is required")
	}
	if e.Company == "" {
		return fmt.Errorf("company is required")
	}
	if e.RecipientEmail == "" || !strings.Contains(e.RecipientEmail, "@") {
		return fmt.Errorf("valid recipient email is required")
	}
	switch e.Status {
	case EntryStatusSent, EntryStatusReplied, EntryStatusDoNotContact:
	default:
		return fmt.Errorf("invalid status: must be one of sent, replied, do_not_contact")
	}
	if e.Status == EntryStatusSent && e.SentAt == nil {
		return fmt.Errorf("sent entry must have sent_at")
	}
	return nil
}

// IsOpen reports whether the entry is still awaiting a reply.
// Replied and DoNotContact are terminal.
func (e *OutreachEntry) IsOpen() bool {
	return e.Status == EntryStatusSent
}

// CanScheduleFollowups checks if follow-ups may be scheduled for this entry
func (e *OutreachEntry) CanScheduleFollowups() bool {
	return e.Status == EntryStatusSent && e.SentAt != nil
}

// MarkReplied transitions the entry to replied at the given time
func (e *OutreachEntry) MarkReplied(at time.Time) {
	e.Status = EntryStatusReplied
	e.RepliedAt = &at
	e.UpdatedAt = at
}

// Clone returns a deep copy of the entry
func (e *OutreachEntry) Clone() *OutreachEntry {
	c := *e
	if e.SentAt != nil {
		t := *e.SentAt
		c.SentAt = &t
	}
	if e.RepliedAt != nil {
		t := *e.RepliedAt
		c.RepliedAt = &t
	}
	return &c
}
