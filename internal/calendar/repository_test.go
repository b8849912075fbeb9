package calendar

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"materialhub/internal/models"
)

type fakeStore struct {
	calendars []models.Calendar
	inserted  []models.CalendarEvent
	err       error
}

func (f *fakeStore) QueryEvents(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error) {
	return nil, f.err
}

func (f *fakeStore) InsertEvent(ctx context.Context, event models.CalendarEvent) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.inserted = append(f.inserted, event)
	return "1", nil
}

func (f *fakeStore) UpdateEvent(ctx context.Context, event models.CalendarEvent) error {
	return f.err
}

func (f *fakeStore) DeleteEvent(ctx context.Context, id string) error {
	return f.err
}

func (f *fakeStore) ListCalendars(ctx context.Context) ([]models.Calendar, error) {
	return f.calendars, f.err
}

func TestDefaultCalendarPrefersPrimary(t *testing.T) {
	got, ok := DefaultCalendar([]models.Calendar{{ID: "1"}, {ID: "7", Primary: true}, {ID: "3"}})
	if !ok || got.ID != "7" {
		t.Fatalf("expected primary calendar 7, got %+v (ok=%v)", got, ok)
	}
}

func TestDefaultCalendarFallsBackToLowestID(t *testing.T) {
	got, ok := DefaultCalendar([]models.Calendar{{ID: "10"}, {ID: "9"}, {ID: "11"}})
	if !ok || got.ID != "9" {
		t.Fatalf("expected numeric lowest id 9, got %+v", got)
	}

	got, ok = DefaultCalendar([]models.Calendar{{ID: "/cal/work/"}, {ID: "/cal/home/"}})
	if !ok || got.ID != "/cal/home/" {
		t.Fatalf("expected lexical lowest id, got %+v", got)
	}
}

func TestDefaultCalendarIDWithNoCalendars(t *testing.T) {
	repo := NewRepository(discardLogger(), &fakeStore{})
	id, ok, err := repo.DefaultCalendarID(context.Background())
	if err != nil {
		t.Fatalf("default calendar: %v", err)
	}
	if ok || id != "" {
		t.Fatalf("expected no default calendar, got %q", id)
	}
}

func TestInsertRejectsInvertedInterval(t *testing.T) {
	store := &fakeStore{}
	repo := NewRepository(discardLogger(), store)
	start := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

	_, err := repo.Insert(context.Background(), models.CalendarEvent{Title: "standup", StartTime: start, EndTime: start})
	if !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
	if len(store.inserted) != 0 {
		t.Fatalf("expected store to be untouched")
	}
}

func TestPermissionErrorsSurviveWrapping(t *testing.T) {
	store := &fakeStore{err: &PermissionError{Op: "query", Access: AccessRead}}
	repo := NewRepository(discardLogger(), store)

	_, err := repo.Events(context.Background(), time.Now(), time.Now().Add(time.Hour))
	if !IsPermissionDenied(err) {
		t.Fatalf("expected permission error, got %v", err)
	}
}

func TestDayWindowCoversOneLocalDay(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	start, end := DayWindow(time.Date(2026, 10, 19, 15, 30, 0, 0, loc))
	if !start.Equal(time.Date(2026, 10, 19, 0, 0, 0, 0, loc)) {
		t.Fatalf("unexpected window start %v", start)
	}
	if end.Sub(start) != 24*time.Hour {
		t.Fatalf("unexpected window length %v", end.Sub(start))
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
