package google

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"materialhub/internal/calendar"
	"materialhub/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler) *CalendarClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	service, err := gcal.NewService(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return NewCalendarClient(slog.New(slog.NewTextHandler(io.Discard, nil)), service)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestQueryEventsKeepsTimedEventsInsideWindow(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/me/calendarList":
			writeJSON(w, http.StatusOK, map[string]any{
				"items": []map[string]any{{"id": "team", "summary": "Team", "primary": true}},
			})
		case "/calendars/team/events":
			if r.URL.Query().Get("singleEvents") != "true" {
				t.Errorf("expected singleEvents=true, got %q", r.URL.RawQuery)
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"items": []map[string]any{
					{"id": "late", "summary": "Retro", "start": map[string]any{"dateTime": "2026-10-19T16:00:00Z"}, "end": map[string]any{"dateTime": "2026-10-19T17:00:00Z"}},
					{"id": "early", "summary": "Standup", "location": "Room 1", "start": map[string]any{"dateTime": "2026-10-19T09:00:00Z", "timeZone": "Europe/Lisbon"}, "end": map[string]any{"dateTime": "2026-10-19T09:15:00Z"}},
					{"id": "allday", "summary": "Holiday", "start": map[string]any{"date": "2026-10-19"}, "end": map[string]any{"date": "2026-10-20"}},
					{"id": "spill", "summary": "Overnight", "start": map[string]any{"dateTime": "2026-10-19T23:00:00Z"}, "end": map[string]any{"dateTime": "2026-10-20T01:00:00Z"}},
				},
			})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
		}
	}))

	from := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	events, err := client.QueryEvents(context.Background(), from, from.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("query events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %+v", events)
	}
	if events[0].ID != "team/early" || events[1].ID != "team/late" {
		t.Fatalf("expected events ordered by start, got %s and %s", events[0].ID, events[1].ID)
	}
	if events[0].Location == nil || *events[0].Location != "Room 1" || events[0].TimeZone != "Europe/Lisbon" {
		t.Fatalf("unexpected mapping %+v", events[0])
	}
	if events[1].Description != nil || events[1].TimeZone != "UTC" {
		t.Fatalf("unexpected optional fields %+v", events[1])
	}
}

func TestInsertEventReturnsCompositeID(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/calendars/team/events" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body gcal.Event
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Summary != "Planning" || body.Start == nil || body.Start.DateTime != "2026-10-21T10:00:00Z" {
			t.Errorf("unexpected event body %+v", body)
		}
		body.Id = "evt9"
		writeJSON(w, http.StatusOK, body)
	}))

	start := time.Date(2026, 10, 21, 10, 0, 0, 0, time.UTC)
	id, err := client.InsertEvent(context.Background(), models.CalendarEvent{
		Title: "Planning", StartTime: start, EndTime: start.Add(time.Hour), CalendarID: "team",
	})
	if err != nil {
		t.Fatalf("insert event: %v", err)
	}
	if id != "team/evt9" {
		t.Fatalf("expected composite id, got %q", id)
	}
}

func TestDeleteEventMapsAPIErrors(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/calendars/team/events/locked":
			writeJSON(w, http.StatusForbidden, map[string]any{"error": map[string]any{"code": 403, "message": "Forbidden"}})
		case "/calendars/team/events/gone":
			writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"code": 404, "message": "Not Found"}})
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	ctx := context.Background()

	var permErr *calendar.PermissionError
	if err := client.DeleteEvent(ctx, "team/locked"); !errors.As(err, &permErr) || permErr.Access != calendar.AccessWrite {
		t.Fatalf("expected write permission error, got %v", err)
	}
	if err := client.DeleteEvent(ctx, "team/gone"); !errors.Is(err, calendar.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
	if err := client.DeleteEvent(ctx, "team/ok"); err != nil {
		t.Fatalf("delete event: %v", err)
	}
	if err := client.DeleteEvent(ctx, "no-separator"); !errors.Is(err, calendar.ErrEventNotFound) {
		t.Fatalf("expected malformed id to be reported as not found, got %v", err)
	}
}

func TestTokenFilesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"}

	if err := SaveToken(TokenPath(dir, "work"), token); err != nil {
		t.Fatalf("save token: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{}"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	accounts, err := GetTokenAccounts(dir)
	if err != nil {
		t.Fatalf("get token accounts: %v", err)
	}
	if len(accounts) != 1 || accounts[0] != "work" {
		t.Fatalf("expected [work], got %v", accounts)
	}

	loaded, err := tokenFromFile(TokenPath(dir, "work"))
	if err != nil {
		t.Fatalf("load token: %v", err)
	}
	if loaded.RefreshToken != "refresh" {
		t.Fatalf("unexpected token %+v", loaded)
	}
}

func TestResolveAccountPicksOnlyTokenFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := ResolveAccount(dir, ""); err == nil {
		t.Fatalf("expected an error without token files")
	}
	if _, err := ResolveAccount(filepath.Join(dir, "missing"), ""); err == nil {
		t.Fatalf("expected an error for a missing directory")
	}

	token := &oauth2.Token{AccessToken: "access"}
	if err := SaveToken(TokenPath(dir, "personal"), token); err != nil {
		t.Fatalf("save token: %v", err)
	}
	if got, err := ResolveAccount(dir, ""); err != nil || got != "personal" {
		t.Fatalf("expected personal, got %q, %v", got, err)
	}
	if got, err := ResolveAccount(dir, "work"); err != nil || got != "work" {
		t.Fatalf("expected the configured account to win, got %q, %v", got, err)
	}

	if err := SaveToken(TokenPath(dir, "work"), token); err != nil {
		t.Fatalf("save token: %v", err)
	}
	if _, err := ResolveAccount(dir, ""); err == nil || !strings.Contains(err.Error(), "GOOGLE_ACCOUNT") {
		t.Fatalf("expected ambiguity error, got %v", err)
	}
}
