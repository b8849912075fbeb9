package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"materialhub/internal/calendar"
	"materialhub/internal/models"
)

const (
	credentialsFile = "credentials.json"
)

// CalendarClient is a calendar.Store over the Google Calendar API. Event ids have the form
// <calendarID>/<eventID>.
type CalendarClient struct {
	service *gcal.Service
	logger  *slog.Logger
}

// NewClient creates a new Google Calendar client.
// It supports multiple accounts by looking for token files like token-personal.json, token-work.json,
// etc. in tokenDir. The accountName is used to find the correct token file.
func NewClient(ctx context.Context, logger *slog.Logger, clientID, clientSecret, tokenDir, accountName string) (*CalendarClient, error) {
	config, err := getOAuthConfig(clientID, clientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}

	tokenFile := TokenPath(tokenDir, accountName)
	token, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("could not load token for account %s: %w. Please run the 'auth' command first", accountName, err)
	}

	service, err := gcal.NewService(ctx, option.WithHTTPClient(config.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return NewCalendarClient(logger, service), nil
}

// NewCalendarClient wraps an already configured service.
func NewCalendarClient(logger *slog.Logger, service *gcal.Service) *CalendarClient {
	return &CalendarClient{service: service, logger: logger}
}

// ListCalendars lists the calendars of the authenticated account.
func (c *CalendarClient) ListCalendars(ctx context.Context) ([]models.Calendar, error) {
	var calendars []models.Calendar
	err := c.service.CalendarList.List().Pages(ctx, func(list *gcal.CalendarList) error {
		for _, item := range list.Items {
			calendars = append(calendars, models.Calendar{
				ID:      item.Id,
				Name:    item.Summary,
				Primary: item.Primary,
			})
		}
		return nil
	})
	if err != nil {
		return nil, mapError("list calendars", calendar.AccessRead, err)
	}
	return calendars, nil
}

// QueryEvents fetches the timed events of every calendar that lie inside [from, to).
func (c *CalendarClient) QueryEvents(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error) {
	cals, err := c.ListCalendars(ctx)
	if err != nil {
		return nil, err
	}

	events := []models.CalendarEvent{}
	for _, cal := range cals {
		c.logger.Debug("Fetching events.", "calendarID", cal.ID, "from", from, "to", to)
		err := c.service.Events.List(cal.ID).
			ShowDeleted(false).
			SingleEvents(true).
			TimeMin(from.Format(time.RFC3339)).
			TimeMax(to.Format(time.RFC3339)).
			OrderBy("startTime").
			Pages(ctx, func(page *gcal.Events) error {
				for _, item := range page.Items {
					event, ok := toInternalEvent(item, cal.ID)
					if !ok || event.StartTime.Before(from) || event.EndTime.After(to) {
						continue
					}
					events = append(events, event)
				}
				return nil
			})
		if err != nil {
			return nil, mapError("query events", calendar.AccessRead, err)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartTime.Before(events[j].StartTime)
	})
	c.logger.Info("Successfully fetched events from Google Calendar.", "count", len(events))
	return events, nil
}

// InsertEvent creates the event in event.CalendarID.
func (c *CalendarClient) InsertEvent(ctx context.Context, event models.CalendarEvent) (string, error) {
	if event.CalendarID == "" {
		return "", fmt.Errorf("event has no calendar")
	}
	created, err := c.service.Events.Insert(event.CalendarID, toGoogleEvent(event)).Context(ctx).Do()
	if err != nil {
		return "", mapError("insert event", calendar.AccessWrite, err)
	}
	c.logger.Info("Created Google Calendar event.", "title", event.Title, "id", created.Id)
	return event.CalendarID + "/" + created.Id, nil
}

// UpdateEvent replaces the event identified by event.ID.
func (c *CalendarClient) UpdateEvent(ctx context.Context, event models.CalendarEvent) error {
	calendarID, eventID, err := splitEventID(event.ID)
	if err != nil {
		return err
	}
	if _, err := c.service.Events.Update(calendarID, eventID, toGoogleEvent(event)).Context(ctx).Do(); err != nil {
		return mapError("update event", calendar.AccessWrite, err)
	}
	return nil
}

func (c *CalendarClient) DeleteEvent(ctx context.Context, id string) error {
	calendarID, eventID, err := splitEventID(id)
	if err != nil {
		return err
	}
	if err := c.service.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		return mapError("delete event", calendar.AccessWrite, err)
	}
	return nil
}

func splitEventID(id string) (string, string, error) {
	i := strings.LastIndex(id, "/")
	if i <= 0 || i == len(id)-1 {
		return "", "", fmt.Errorf("invalid event id %q: %w", id, calendar.ErrEventNotFound)
	}
	return id[:i], id[i+1:], nil
}

// mapError turns API authorization failures into permission errors and missing events into
// calendar.ErrEventNotFound.
func mapError(op string, access calendar.Access, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &calendar.PermissionError{Op: op, Access: access, Err: err}
		case http.StatusNotFound, http.StatusGone:
			return fmt.Errorf("failed to %s: %w: %v", op, calendar.ErrEventNotFound, err)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// toInternalEvent converts a Google Calendar event. All-day events have no DateTime and are skipped.
func toInternalEvent(item *gcal.Event, calendarID string) (models.CalendarEvent, bool) {
	if item.Start == nil || item.Start.DateTime == "" || item.End == nil || item.End.DateTime == "" {
		return models.CalendarEvent{}, false
	}

	startTime, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return models.CalendarEvent{}, false
	}
	endTime, err := time.Parse(time.RFC3339, item.End.DateTime)
	if err != nil {
		return models.CalendarEvent{}, false
	}

	event := models.CalendarEvent{
		ID:         calendarID + "/" + item.Id,
		Title:      item.Summary,
		StartTime:  startTime,
		EndTime:    endTime,
		CalendarID: calendarID,
		TimeZone:   item.Start.TimeZone,
	}
	if event.TimeZone == "" {
		event.TimeZone = "UTC"
	}
	if item.Description != "" {
		description := item.Description
		event.Description = &description
	}
	if item.Location != "" {
		location := item.Location
		event.Location = &location
	}
	return event, true
}

func toGoogleEvent(event models.CalendarEvent) *gcal.Event {
	item := &gcal.Event{
		Summary: event.Title,
		Start:   &gcal.EventDateTime{DateTime: event.StartTime.Format(time.RFC3339), TimeZone: event.TimeZone},
		End:     &gcal.EventDateTime{DateTime: event.EndTime.Format(time.RFC3339), TimeZone: event.TimeZone},
	}
	if event.Description != nil {
		item.Description = *event.Description
	}
	if event.Location != nil {
		item.Location = *event.Location
	}
	return item
}

// GetOAuthConfigForAuthFlow is used by the auth command to get the config for the web flow.
func GetOAuthConfigForAuthFlow(clientID, clientSecret string) (*oauth2.Config, error) {
	return getOAuthConfig(clientID, clientSecret)
}

// getOAuthConfig reads credentials and returns an OAuth2 config.
// It prioritizes environment variables over a local credentials.json file.
func getOAuthConfig(clientID, clientSecret string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
			Scopes:       []string{gcal.CalendarScope},
			Endpoint:     google.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		if _, ok := err.(*fs.PathError); ok {
			return nil, fmt.Errorf("credentials.json not found. Please provide GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars or place credentials.json in the working directory")
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, gcal.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = "urn:ietf:wg:oauth:2.0:oob" // For desktop app flow
	return config, nil
}

// TokenFromWeb is called by the auth flow to retrieve a token.
func TokenFromWeb(ctx context.Context, config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(ctx, authCode)
}

// TokenPath is where the token of accountName lives.
func TokenPath(dir, accountName string) string {
	return filepath.Join(dir, "token-"+accountName+".json")
}

// SaveToken saves a token to a file path.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// tokenFromFile retrieves a token from a local file.
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// GetTokenAccounts lists the accounts that have a token file in dir.
func GetTokenAccounts(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var accounts []string
	for _, file := range files {
		if strings.HasPrefix(file.Name(), "token-") && strings.HasSuffix(file.Name(), ".json") {
			accountName := strings.TrimSuffix(strings.TrimPrefix(file.Name(), "token-"), ".json")
			accounts = append(accounts, accountName)
		}
	}
	return accounts, nil
}

// ResolveAccount returns account when it is set. Otherwise it picks the only account that has a
// token file in dir.
func ResolveAccount(dir, account string) (string, error) {
	if account != "" {
		return account, nil
	}
	accounts, err := GetTokenAccounts(dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to list token files: %w", err)
	}
	switch len(accounts) {
	case 0:
		return "", errors.New("no authenticated google account found. Please run the 'auth' command first")
	case 1:
		return accounts[0], nil
	default:
		return "", fmt.Errorf("several google accounts are authenticated (%s); set GOOGLE_ACCOUNT", strings.Join(accounts, ", "))
	}
}

var _ calendar.Store = (*CalendarClient)(nil)
