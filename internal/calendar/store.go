// Package calendar defines the calendar store contract and the repository built on it.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"materialhub/internal/models"
)

// Store is the generic query/insert/update/delete surface of a calendar store.
// Implementations assign event ids; callers treat them as opaque.
type Store interface {
	// QueryEvents returns events with start >= from and end <= to, ordered by start.
	QueryEvents(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error)
	InsertEvent(ctx context.Context, event models.CalendarEvent) (string, error)
	UpdateEvent(ctx context.Context, event models.CalendarEvent) error
	DeleteEvent(ctx context.Context, id string) error
	ListCalendars(ctx context.Context) ([]models.Calendar, error)
}

// Access is the grant an operation needs.
type Access string

const (
	AccessRead  Access = "read"
	AccessWrite Access = "write"
)

// PermissionError reports that the store refused an operation for lack of a grant.
type PermissionError struct {
	Op     string
	Access Access
	Err    error
}

func (e *PermissionError) Error() string {
	msg := fmt.Sprintf("calendar %s permission denied for %s", e.Access, e.Op)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PermissionError) Unwrap() error {
	return e.Err
}

// IsPermissionDenied reports whether err carries a *PermissionError.
func IsPermissionDenied(err error) bool {
	var permErr *PermissionError
	return errors.As(err, &permErr)
}

var (
	// ErrInvalidInterval is returned for events whose end is not after their start.
	ErrInvalidInterval = errors.New("event end must be after its start")
	// ErrEventNotFound is returned by stores when no event has the given id.
	ErrEventNotFound = errors.New("event not found")
)
