// Package devicecal is the on-device calendar store: a sqlite database of calendars and events
// guarded by read and write grants, in the manner of an OS calendar provider.
package devicecal

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"materialhub/internal/calendar"
	"materialhub/internal/models"
)

//go:embed schema.sql
var schemaFS embed.FS

// Open opens (or creates) the calendar database at path.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("calendar db path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("read schema: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON; " + string(schemaSQL)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

// Grants are the permissions the user has given the application.
type Grants struct {
	Read  bool
	Write bool
}

// ParseGrants reads a comma-separated list such as "read,write".
func ParseGrants(value string) Grants {
	var g Grants
	for _, part := range strings.Split(value, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "read":
			g.Read = true
		case "write":
			g.Write = true
		}
	}
	return g
}

// Store implements calendar.Store. Event and calendar ids are decimal row ids.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	mu     sync.RWMutex
	grants Grants
}

func NewStore(logger *slog.Logger, db *sql.DB, grants Grants) *Store {
	return &Store{db: db, logger: logger, grants: grants}
}

// SetGrants replaces the grants, as after the user answers a permission prompt.
func (s *Store) SetGrants(grants Grants) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants = grants
}

func (s *Store) require(op string, access calendar.Access) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	granted := s.grants.Read
	if access == calendar.AccessWrite {
		granted = s.grants.Write
	}
	if !granted {
		return &calendar.PermissionError{Op: op, Access: access}
	}
	return nil
}

// CreateCalendar adds a calendar and returns its id. At most one calendar is primary.
func (s *Store) CreateCalendar(ctx context.Context, name string, primary bool) (string, error) {
	if err := s.require("create calendar", calendar.AccessWrite); err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if primary {
		if _, err := tx.ExecContext(ctx, "UPDATE calendars SET is_primary = 0"); err != nil {
			return "", fmt.Errorf("clear primary calendar: %w", err)
		}
	}
	res, err := tx.ExecContext(ctx, "INSERT INTO calendars (name, is_primary) VALUES (?, ?)", name, primary)
	if err != nil {
		return "", fmt.Errorf("insert calendar: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

// EnsureCalendar creates a primary calendar called name when the store has none.
func (s *Store) EnsureCalendar(ctx context.Context, name string) error {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM calendars").Scan(&count); err != nil {
		return fmt.Errorf("count calendars: %w", err)
	}
	if count > 0 {
		return nil
	}
	id, err := s.CreateCalendar(ctx, name, true)
	if err != nil {
		return err
	}
	s.logger.Info("Created device calendar.", "id", id, "name", name)
	return nil
}

func (s *Store) ListCalendars(ctx context.Context) ([]models.Calendar, error) {
	if err := s.require("list calendars", calendar.AccessRead); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, is_primary FROM calendars ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}
	defer rows.Close()

	var calendars []models.Calendar
	for rows.Next() {
		var (
			id  int64
			cal models.Calendar
		)
		if err := rows.Scan(&id, &cal.Name, &cal.Primary); err != nil {
			return nil, err
		}
		cal.ID = strconv.FormatInt(id, 10)
		calendars = append(calendars, cal)
	}
	return calendars, rows.Err()
}

func (s *Store) QueryEvents(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error) {
	if err := s.require("query events", calendar.AccessRead); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, calendar_id, title, description, dtstart, dtend, event_location, event_timezone
		FROM events WHERE dtstart >= ? AND dtend <= ? ORDER BY dtstart ASC, id ASC`,
		from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []models.CalendarEvent{}
	for rows.Next() {
		var (
			id, calendarID int64
			event          models.CalendarEvent
			description    sql.NullString
			location       sql.NullString
			start, end     int64
		)
		if err := rows.Scan(&id, &calendarID, &event.Title, &description, &start, &end, &location, &event.TimeZone); err != nil {
			return nil, err
		}
		event.ID = strconv.FormatInt(id, 10)
		event.CalendarID = strconv.FormatInt(calendarID, 10)
		event.StartTime = time.UnixMilli(start)
		event.EndTime = time.UnixMilli(end)
		if description.Valid {
			event.Description = &description.String
		}
		if location.Valid {
			event.Location = &location.String
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (s *Store) InsertEvent(ctx context.Context, event models.CalendarEvent) (string, error) {
	if err := s.require("insert event", calendar.AccessWrite); err != nil {
		return "", err
	}

	calendarID, err := strconv.ParseInt(event.CalendarID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid calendar id %q", event.CalendarID)
	}
	zone := event.TimeZone
	if zone == "" {
		zone = "UTC"
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events (calendar_id, title, description, dtstart, dtend, event_location, event_timezone)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		calendarID, event.Title, nullString(event.Description), event.StartTime.UnixMilli(),
		event.EndTime.UnixMilli(), nullString(event.Location), zone)
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

// UpdateEvent rewrites the title, description, times and location of event.ID.
func (s *Store) UpdateEvent(ctx context.Context, event models.CalendarEvent) error {
	if err := s.require("update event", calendar.AccessWrite); err != nil {
		return err
	}

	id, err := parseEventID(event.ID)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET title = ?, description = ?, dtstart = ?, dtend = ?, event_location = ? WHERE id = ?`,
		event.Title, nullString(event.Description), event.StartTime.UnixMilli(), event.EndTime.UnixMilli(),
		nullString(event.Location), id)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return expectRow(res, event.ID)
}

func (s *Store) DeleteEvent(ctx context.Context, eventID string) error {
	if err := s.require("delete event", calendar.AccessWrite); err != nil {
		return err
	}

	id, err := parseEventID(eventID)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return expectRow(res, eventID)
}

func parseEventID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid event id %q: %w", id, calendar.ErrEventNotFound)
	}
	return n, nil
}

func expectRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("event %s: %w", id, calendar.ErrEventNotFound)
	}
	return nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

var _ calendar.Store = (*Store)(nil)
