package screens

import (
	"context"
	"log/slog"
	"time"

	"materialhub/internal/calendar"
	"materialhub/internal/models"
	"materialhub/internal/observable"
	"materialhub/internal/viewstate"
)

// CalendarScreen shows the events of the selected day.
type CalendarScreen struct {
	repo     *calendar.Repository
	logger   *slog.Logger
	selected *observable.Value[time.Time]
	events   *viewstate.Holder[[]models.CalendarEvent]
}

// NewCalendarScreen selects day and starts loading its events.
func NewCalendarScreen(ctx context.Context, logger *slog.Logger, repo *calendar.Repository, day time.Time) *CalendarScreen {
	s := &CalendarScreen{
		repo:     repo,
		logger:   logger,
		selected: observable.New(day),
		events:   viewstate.NewHolder[[]models.CalendarEvent](ctx),
	}
	s.refresh()
	return s
}

func (s *CalendarScreen) State() viewstate.State[[]models.CalendarEvent] {
	return s.events.State()
}

func (s *CalendarScreen) Subscribe(ctx context.Context) <-chan viewstate.State[[]models.CalendarEvent] {
	return s.events.Subscribe(ctx)
}

func (s *CalendarScreen) SelectedDate() time.Time {
	return s.selected.Get()
}

// SetSelectedDate switches to day. A load still running for an earlier selection is cancelled
// and its result dropped.
func (s *CalendarScreen) SetSelectedDate(day time.Time) {
	s.selected.Set(day)
	s.refresh()
}

func (s *CalendarScreen) refresh() {
	from, to := calendar.DayWindow(s.selected.Get())
	s.events.Load(func(ctx context.Context) ([]models.CalendarEvent, error) {
		return s.repo.Events(ctx, from, to)
	})
}

func (s *CalendarScreen) AddEvent(event models.CalendarEvent) {
	s.mutate("add event", func(ctx context.Context) error {
		_, err := s.repo.Insert(ctx, event)
		return err
	})
}

func (s *CalendarScreen) UpdateEvent(event models.CalendarEvent) {
	s.mutate("update event", func(ctx context.Context) error {
		return s.repo.Update(ctx, event)
	})
}

func (s *CalendarScreen) DeleteEvent(id string) {
	s.mutate("delete event", func(ctx context.Context) error {
		return s.repo.Delete(ctx, id)
	})
}

// mutate runs fn and reloads the selected day on success.
func (s *CalendarScreen) mutate(op string, fn func(ctx context.Context) error) {
	s.events.Launch(func(ctx context.Context) {
		if err := fn(ctx); err != nil {
			s.logger.Error("Calendar action failed", "op", op, "error", err)
			s.events.Fail(err.Error())
			return
		}
		s.refresh()
	})
}

// DefaultCalendarID resolves the calendar new events go to.
func (s *CalendarScreen) DefaultCalendarID(ctx context.Context) (string, bool, error) {
	return s.repo.DefaultCalendarID(ctx)
}

func (s *CalendarScreen) Wait() {
	s.events.Wait()
}

func (s *CalendarScreen) Close() {
	s.events.Close()
}
