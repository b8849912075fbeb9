package models

import "time"

// CalendarEvent represents a single event held by a calendar store.
// The ID is assigned by the store that owns the event and is opaque to everything else.
type CalendarEvent struct {
	ID          string    // Store-assigned identifier; empty until the event has been inserted
	Title       string    // Summary or title of the event
	Description *string   // Optional free-form description
	StartTime   time.Time // Start of the event
	EndTime     time.Time // End of the event, always after StartTime
	Location    *string   // Optional location text
	CalendarID  string    // Identifier of the owning calendar within the same store
	TimeZone    string    // IANA zone the event was created in
}

// Calendar describes one calendar exposed by a calendar store.
type Calendar struct {
	ID      string
	Name    string
	Primary bool
}
