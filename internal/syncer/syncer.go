// Package syncer mirrors the events of one calendar store into another.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"materialhub/internal/calendar"
	"materialhub/internal/models"
)

// StateFile is the default name of the id-mapping file.
const StateFile = "sync-state.json"

// SyncState keeps track of which events have been synced.
// The key is the source event id, and the value is the id of the copy in the target store.
type SyncState map[string]string

// Report counts what a sync cycle did.
type Report struct {
	Created int
	Updated int
	Failed  int
}

// Syncer orchestrates one-way mirroring from a source store to a calendar of the target store.
type Syncer struct {
	logger           *slog.Logger
	source           calendar.Store
	target           calendar.Store
	targetCalendarID string
	statePath        string
	state            SyncState
	dryRun           bool
	primaryTimeZone  *time.Location
}

// NewSyncer creates a new Syncer, loading the id mapping from statePath.
func NewSyncer(logger *slog.Logger, source, target calendar.Store, targetCalendarID, statePath string, dryRun bool, tz *time.Location) (*Syncer, error) {
	if statePath == "" {
		statePath = StateFile
	}
	if tz == nil {
		tz = time.UTC
	}

	state, err := loadState(statePath)
	if err != nil {
		// If the file doesn't exist, we can start with an empty state.
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("No sync state file found, starting fresh.", "file", statePath)
			state = make(SyncState)
		} else {
			return nil, fmt.Errorf("failed to load sync state: %w", err)
		}
	}

	return &Syncer{
		logger:           logger,
		source:           source,
		target:           target,
		targetCalendarID: targetCalendarID,
		statePath:        statePath,
		state:            state,
		dryRun:           dryRun,
		primaryTimeZone:  tz,
	}, nil
}

// Sync performs a full synchronization cycle over the events inside [from, to).
func (s *Syncer) Sync(ctx context.Context, from, to time.Time) (Report, error) {
	s.logger.Info("Starting sync cycle.", "from", from, "to", to)

	events, err := s.source.QueryEvents(ctx, from, to)
	if err != nil {
		return Report{}, fmt.Errorf("failed to fetch source events: %w", err)
	}
	s.logger.Info("Fetched source events.", "count", len(events))

	var report Report
	for _, event := range events {
		created, err := s.syncEvent(ctx, event)
		switch {
		case err != nil:
			report.Failed++
			s.logger.Error("Failed to sync event", "title", event.Title, "error", err)
			// Continue with the next event even if one fails.
		case created:
			report.Created++
		default:
			report.Updated++
		}
	}

	if !s.dryRun {
		if err := s.saveState(); err != nil {
			return report, err
		}
	}

	s.logger.Info("Sync cycle finished.", "created", report.Created, "updated", report.Updated, "failed", report.Failed)
	return report, nil
}

// syncEvent copies one event, reporting whether a new target event was created.
func (s *Syncer) syncEvent(ctx context.Context, event models.CalendarEvent) (bool, error) {
	copied := event
	copied.CalendarID = s.targetCalendarID
	copied.StartTime = event.StartTime.In(s.primaryTimeZone)
	copied.EndTime = event.EndTime.In(s.primaryTimeZone)
	if copied.TimeZone == "" {
		copied.TimeZone = s.primaryTimeZone.String()
	}

	if targetID, exists := s.state[event.ID]; exists {
		copied.ID = targetID
		if s.dryRun {
			s.logger.Info("[DRY RUN] Would update synced event", "title", event.Title, "targetID", targetID)
			return false, nil
		}
		err := s.target.UpdateEvent(ctx, copied)
		if err == nil {
			return false, nil
		}
		if !errors.Is(err, calendar.ErrEventNotFound) {
			return false, fmt.Errorf("failed to update synced event: %w", err)
		}
		s.logger.Warn("Synced copy disappeared, recreating it.", "title", event.Title, "targetID", targetID)
		delete(s.state, event.ID)
	}

	if s.dryRun {
		s.logger.Info("[DRY RUN] Would create new event", "title", event.Title, "startTime", copied.StartTime)
		return true, nil
	}

	copied.ID = ""
	targetID, err := s.target.InsertEvent(ctx, copied)
	if err != nil {
		return false, fmt.Errorf("failed to create synced event: %w", err)
	}
	s.logger.Info("New event synced.", "title", event.Title, "targetID", targetID)

	// If successful, update the state.
	s.state[event.ID] = targetID
	return true, nil
}

// loadState loads the sync state from the JSON file.
func loadState(path string) (SyncState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var state SyncState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state == nil {
		state = make(SyncState)
	}
	return state, nil
}

// saveState saves the current sync state to the JSON file.
func (s *Syncer) saveState() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sync state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.statePath), 0o755); err != nil {
		return fmt.Errorf("failed to create sync state directory: %w", err)
	}
	if err := os.WriteFile(s.statePath, data, 0644); err != nil {
		return fmt.Errorf("failed to save sync state: %w", err)
	}
	return nil
}
