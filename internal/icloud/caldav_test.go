package icloud

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	"materialhub/internal/calendar"
	"materialhub/internal/models"
)

func TestICalMappingKeepsEventFields(t *testing.T) {
	start := time.Date(2026, 10, 19, 14, 0, 0, 0, time.FixedZone("UTC+2", 2*60*60))
	description := "Quarterly numbers"
	location := "Room 4"
	event := models.CalendarEvent{
		Title:       "Review",
		Description: &description,
		StartTime:   start,
		EndTime:     start.Add(90 * time.Minute),
		Location:    &location,
		CalendarID:  "/123/calendars/home/",
	}

	cal := toICal(event, "abc-123")
	events := cal.Events()
	if len(events) != 1 {
		t.Fatalf("expected one VEVENT, got %d", len(events))
	}
	if uid, _ := events[0].Props.Text(ical.PropUID); uid != "abc-123" {
		t.Fatalf("unexpected UID %q", uid)
	}

	got, err := fromICal("/123/calendars/home/abc-123.ics", event.CalendarID, events[0])
	if err != nil {
		t.Fatalf("fromICal: %v", err)
	}
	if got.ID != "/123/calendars/home/abc-123.ics" || got.CalendarID != event.CalendarID {
		t.Fatalf("unexpected ids %+v", got)
	}
	if got.Title != "Review" || !got.StartTime.Equal(start) || !got.EndTime.Equal(event.EndTime) {
		t.Fatalf("unexpected event %+v", got)
	}
	if got.Description == nil || *got.Description != description || got.Location == nil || *got.Location != location {
		t.Fatalf("expected description and location to survive, got %+v", got)
	}
}

func TestICalMappingOmitsEmptyOptionals(t *testing.T) {
	start := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	cal := toICal(models.CalendarEvent{Title: "Focus", StartTime: start, EndTime: start.Add(time.Hour)}, "uid-1")

	got, err := fromICal("/cal/uid-1.ics", "/cal/", cal.Events()[0])
	if err != nil {
		t.Fatalf("fromICal: %v", err)
	}
	if got.Description != nil || got.Location != nil {
		t.Fatalf("expected nil optionals, got %+v", got)
	}
	if got.TimeZone != "UTC" {
		t.Fatalf("expected UTC time zone, got %q", got.TimeZone)
	}
}

func TestTransportReportsForbiddenAsPermissionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); !ok || user != "me" || pass != "secret" {
			t.Errorf("missing basic auth")
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := &http.Client{Transport: &customTransport{Username: "me", Password: "secret", Transport: http.DefaultTransport}}
	req, err := http.NewRequest(http.MethodPut, srv.URL+"/cal/x.ics", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	_, err = client.Do(req)

	var permErr *calendar.PermissionError
	if !errors.As(err, &permErr) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if permErr.Access != calendar.AccessWrite {
		t.Fatalf("expected write access for PUT, got %v", permErr.Access)
	}
}

func TestMissingObjectIsReportedAsEventNotFound(t *testing.T) {
	var mu sync.Mutex
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		methods = append(methods, r.Method)
		mu.Unlock()
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusGone)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	httpClient := &http.Client{Transport: &customTransport{Username: "me", Password: "secret", Transport: http.DefaultTransport}}
	caldavClient, err := caldav.NewClient(httpClient, srv.URL)
	if err != nil {
		t.Fatalf("caldav client: %v", err)
	}
	webdavClient, err := webdav.NewClient(httpClient, srv.URL)
	if err != nil {
		t.Fatalf("webdav client: %v", err)
	}
	c := &CalDAVClient{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	ctx := context.Background()

	event := models.CalendarEvent{
		ID:        "/calendars/me/home/gone.ics",
		Title:     "Vanished",
		StartTime: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC),
	}
	if err := c.UpdateEvent(ctx, event); !errors.Is(err, calendar.ErrEventNotFound) {
		t.Fatalf("expected update of a missing object to report not found, got %v", err)
	}
	if err := c.DeleteEvent(ctx, event.ID); !errors.Is(err, calendar.ErrEventNotFound) {
		t.Fatalf("expected delete of a missing object to report not found, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, m := range methods {
		if m == http.MethodPut {
			t.Fatalf("expected no PUT for a missing object, got %v", methods)
		}
	}
}
