package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"materialhub/internal/models"
)

// Repository passes calls straight through to a Store, adding interval validation and
// default-calendar resolution.
type Repository struct {
	store  Store
	logger *slog.Logger
}

func NewRepository(logger *slog.Logger, store Store) *Repository {
	return &Repository{store: store, logger: logger}
}

// Events returns the events lying inside the half-open window [from, to).
func (r *Repository) Events(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error) {
	events, err := r.store.QueryEvents(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	r.logger.Debug("Queried calendar events.", "from", from, "to", to, "count", len(events))
	return events, nil
}

// Insert adds event and returns the id the store assigned to it.
func (r *Repository) Insert(ctx context.Context, event models.CalendarEvent) (string, error) {
	if !event.EndTime.After(event.StartTime) {
		return "", ErrInvalidInterval
	}
	id, err := r.store.InsertEvent(ctx, event)
	if err != nil {
		return "", fmt.Errorf("failed to insert event: %w", err)
	}
	r.logger.Info("Inserted calendar event.", "id", id, "title", event.Title)
	return id, nil
}

func (r *Repository) Update(ctx context.Context, event models.CalendarEvent) error {
	if !event.EndTime.After(event.StartTime) {
		return ErrInvalidInterval
	}
	if err := r.store.UpdateEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.store.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// Calendars lists the calendars the store exposes.
func (r *Repository) Calendars(ctx context.Context) ([]models.Calendar, error) {
	calendars, err := r.store.ListCalendars(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}
	return calendars, nil
}

// DefaultCalendarID prefers the primary calendar, then the one with the lowest id.
// ok is false when the store has no calendars at all.
func (r *Repository) DefaultCalendarID(ctx context.Context) (id string, ok bool, err error) {
	calendars, err := r.Calendars(ctx)
	if err != nil {
		return "", false, err
	}
	cal, ok := DefaultCalendar(calendars)
	return cal.ID, ok, nil
}

// DefaultCalendar picks the primary calendar, else the lowest id.
func DefaultCalendar(calendars []models.Calendar) (models.Calendar, bool) {
	if len(calendars) == 0 {
		return models.Calendar{}, false
	}
	for _, cal := range calendars {
		if cal.Primary {
			return cal, true
		}
	}

	sorted := make([]models.Calendar, len(calendars))
	copy(sorted, calendars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return lessID(sorted[i].ID, sorted[j].ID)
	})
	return sorted[0], true
}

// lessID compares numerically when both ids are integers and lexically otherwise.
func lessID(a, b string) bool {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}

// DayWindow returns [midnight, next midnight) of the day containing t, in t's location.
func DayWindow(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
