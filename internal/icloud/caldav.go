package icloud

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	"materialhub/internal/calendar"
	"materialhub/internal/models"
)

const (
	// DefaultEndpoint is iCloud's CalDAV entry point. Any CalDAV server works.
	DefaultEndpoint = "https://caldav.icloud.com/"
	productID       = "-//materialhub//EN"
)

// customTransport handles adding Basic Auth and custom headers to requests, and turns
// authorization failures into calendar permission errors and missing objects into
// calendar.ErrEventNotFound.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "materialhub/1.0")

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		resp.Body.Close()
		return nil, &calendar.PermissionError{
			Op:     req.Method + " " + req.URL.Path,
			Access: accessFor(req.Method),
			Err:    fmt.Errorf("server answered %s", resp.Status),
		}
	}
	// Only object reads and deletes; a 404 on discovery is a configuration problem.
	if (resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone) &&
		(req.Method == http.MethodGet || req.Method == http.MethodDelete) {
		resp.Body.Close()
		return nil, fmt.Errorf("%s %s: server answered %s: %w", req.Method, req.URL.Path, resp.Status, calendar.ErrEventNotFound)
	}
	return resp, nil
}

func accessFor(method string) calendar.Access {
	switch method {
	case http.MethodPut, http.MethodDelete, http.MethodPost, "MKCOL", "MKCALENDAR", "PROPPATCH", "MOVE", "COPY":
		return calendar.AccessWrite
	default:
		return calendar.AccessRead
	}
}

// CalDAVClient is a calendar.Store backed by a CalDAV server. Event ids are object paths
// and calendar ids are collection paths.
type CalDAVClient struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	homeSetPath  string
	primaryName  string
}

// NewClient creates and initializes a new CalDAVClient. The calendar named primaryName, if any,
// is reported as the primary calendar.
func NewClient(ctx context.Context, logger *slog.Logger, endpoint, username, password, primaryName string) (*CalDAVClient, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	transport := &customTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}
	httpClient := &http.Client{Transport: transport, Timeout: 30 * time.Second}

	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	webdavClient, err := webdav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	c := &CalDAVClient{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
		primaryName:  primaryName,
	}

	logger.Info("Discovering CalDAV calendar home.", "endpoint", endpoint)
	homeSetPath, err := c.findHomeSet(ctx)
	if err != nil {
		return nil, err
	}
	c.homeSetPath = homeSetPath
	logger.Info("Found CalDAV calendar home.", "path", homeSetPath)

	return c, nil
}

func (c *CalDAVClient) findHomeSet(ctx context.Context) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}
	return homeSetPath, nil
}

// ListCalendars returns every calendar collection under the home set.
func (c *CalDAVClient) ListCalendars(ctx context.Context) ([]models.Calendar, error) {
	cals, err := c.caldavClient.FindCalendars(ctx, c.homeSetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to find calendars: %w", err)
	}

	calendars := make([]models.Calendar, 0, len(cals))
	for _, cal := range cals {
		calendars = append(calendars, models.Calendar{
			ID:      cal.Path,
			Name:    cal.Name,
			Primary: c.primaryName != "" && cal.Name == c.primaryName,
		})
	}
	return calendars, nil
}

// QueryEvents asks every calendar for VEVENTs overlapping the window and keeps those lying
// entirely inside it.
func (c *CalDAVClient) QueryEvents(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error) {
	cals, err := c.ListCalendars(ctx)
	if err != nil {
		return nil, err
	}

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:  "VCALENDAR",
			Comps: []caldav.CalendarCompRequest{{Name: "VEVENT", AllProps: true}},
		},
		CompFilter: caldav.CompFilter{
			Name:  "VCALENDAR",
			Comps: []caldav.CompFilter{{Name: "VEVENT", Start: from.UTC(), End: to.UTC()}},
		},
	}

	events := []models.CalendarEvent{}
	for _, cal := range cals {
		objects, err := c.caldavClient.QueryCalendar(ctx, cal.ID, query)
		if err != nil {
			return nil, fmt.Errorf("failed to query calendar %s: %w", cal.Name, err)
		}
		for _, obj := range objects {
			if obj.Data == nil {
				continue
			}
			for _, vevent := range obj.Data.Events() {
				event, err := fromICal(obj.Path, cal.ID, vevent)
				if err != nil {
					c.logger.Warn("Skipping unreadable event.", "path", obj.Path, "error", err)
					continue
				}
				if event.StartTime.Before(from) || event.EndTime.After(to) {
					continue
				}
				events = append(events, event)
			}
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartTime.Before(events[j].StartTime)
	})
	return events, nil
}

// InsertEvent writes a new <uuid>.ics object into the event's calendar.
func (c *CalDAVClient) InsertEvent(ctx context.Context, event models.CalendarEvent) (string, error) {
	if event.CalendarID == "" {
		return "", fmt.Errorf("event has no calendar")
	}
	uid := GenerateUID()
	objectPath := path.Join(event.CalendarID, uid+".ics")

	c.logger.Debug("Creating CalDAV event.", "title", event.Title, "uid", uid)
	if _, err := c.caldavClient.PutCalendarObject(ctx, objectPath, toICal(event, uid)); err != nil {
		return "", fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}
	c.logger.Info("Created CalDAV event.", "title", event.Title, "path", objectPath)
	return objectPath, nil
}

// UpdateEvent rewrites the object at event.ID, keeping its UID.
func (c *CalDAVClient) UpdateEvent(ctx context.Context, event models.CalendarEvent) error {
	obj, err := c.caldavClient.GetCalendarObject(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch event %s: %w", event.ID, err)
	}

	uid := strings.TrimSuffix(path.Base(event.ID), ".ics")
	if obj.Data != nil {
		if existing := obj.Data.Events(); len(existing) > 0 {
			if value, err := existing[0].Props.Text(ical.PropUID); err == nil && value != "" {
				uid = value
			}
		}
	}

	if _, err := c.caldavClient.PutCalendarObject(ctx, event.ID, toICal(event, uid)); err != nil {
		return fmt.Errorf("failed to update event on CalDAV server: %w", err)
	}
	return nil
}

// DeleteEvent removes the object at id.
func (c *CalDAVClient) DeleteEvent(ctx context.Context, id string) error {
	if err := c.webdavClient.RemoveAll(ctx, id); err != nil {
		return fmt.Errorf("failed to delete event on CalDAV server: %w", err)
	}
	return nil
}

// toICal converts an event into a single-VEVENT calendar.
func toICal(event models.CalendarEvent, uid string) *ical.Calendar {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, uid)
	ve.Props.SetText(ical.PropSummary, event.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, event.StartTime.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, event.EndTime.UTC())

	if event.Description != nil && *event.Description != "" {
		ve.Props.SetText(ical.PropDescription, *event.Description)
	}
	if event.Location != nil && *event.Location != "" {
		ve.Props.SetText(ical.PropLocation, *event.Location)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Children = append(cal.Children, ve)
	return cal
}

// fromICal converts a VEVENT stored at objectPath back into an event.
func fromICal(objectPath, calendarPath string, ve ical.Event) (models.CalendarEvent, error) {
	start, err := ve.DateTimeStart(time.UTC)
	if err != nil {
		return models.CalendarEvent{}, fmt.Errorf("read DTSTART: %w", err)
	}
	end, err := ve.DateTimeEnd(time.UTC)
	if err != nil {
		return models.CalendarEvent{}, fmt.Errorf("read DTEND: %w", err)
	}
	title, _ := ve.Props.Text(ical.PropSummary)

	event := models.CalendarEvent{
		ID:         objectPath,
		Title:      title,
		StartTime:  start,
		EndTime:    end,
		CalendarID: calendarPath,
		TimeZone:   "UTC",
	}
	if prop := ve.Props.Get(ical.PropDateTimeStart); prop != nil {
		if tzid := prop.Params.Get("TZID"); tzid != "" {
			event.TimeZone = tzid
		}
	}
	if value, err := ve.Props.Text(ical.PropDescription); err == nil && value != "" {
		event.Description = &value
	}
	if value, err := ve.Props.Text(ical.PropLocation); err == nil && value != "" {
		event.Location = &value
	}
	return event, nil
}

// GenerateUID creates a new unique identifier for an event.
func GenerateUID() string {
	return uuid.New().String()
}

var _ calendar.Store = (*CalDAVClient)(nil)
