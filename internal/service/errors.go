package service

import "fmt"

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// ValidationError represents a validation error
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}

// DuplicateScheduleError represents an attempt to schedule follow-ups for
// an entry that already has a sequence
type DuplicateScheduleError struct {
	EntryID string
}

func (e *DuplicateScheduleError) Error() string {
	return fmt.Sprintf("follow-ups already scheduled for entry %s", e.EntryID)
}

// InvalidEntryStateError represents an operation attempted on an entry in
// the wrong status
type InvalidEntryStateError struct {
	EntryID string
	Status  string
	Message string
}

func (e *InvalidEntryStateError) Error() string {
	return fmt.Sprintf("entry %s has status %s: %s", e.EntryID, e.Status, e.Message)
}
