package models

import (
	"fmt"
	"strings"
	"time"
)

// Priority orders tasks from least to most urgent. The zero value is medium.
type Priority int

const (
	PriorityLow    Priority = -1
	PriorityMedium Priority = 0
	PriorityHigh   Priority = 1
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// ParsePriority accepts the names produced by String, case-insensitively.
func ParsePriority(value string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "low":
		return PriorityLow, nil
	case "", "medium":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	}
	return PriorityMedium, fmt.Errorf("unknown priority %q", value)
}

// Task is a to-do entry kept in the local store.
type Task struct {
	ID          int64
	Title       string
	Description *string
	Completed   bool
	Priority    Priority
	DueAt       *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskFilter selects which tasks a listing returns.
type TaskFilter int

const (
	FilterAll TaskFilter = iota
	FilterActive
	FilterCompleted
)

func (f TaskFilter) String() string {
	switch f {
	case FilterActive:
		return "active"
	case FilterCompleted:
		return "completed"
	default:
		return "all"
	}
}

// TaskSort is the ordering applied to a task listing.
type TaskSort int

const (
	SortCreatedAt TaskSort = iota
	SortDueDate
	SortPriority
)

// ParseTaskFilter accepts all, active and completed.
func ParseTaskFilter(value string) (TaskFilter, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "all":
		return FilterAll, nil
	case "active":
		return FilterActive, nil
	case "completed", "done":
		return FilterCompleted, nil
	}
	return FilterAll, fmt.Errorf("unknown filter %q", value)
}

// ParseTaskSort accepts created, due and priority.
func ParseTaskSort(value string) (TaskSort, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "created":
		return SortCreatedAt, nil
	case "due":
		return SortDueDate, nil
	case "priority":
		return SortPriority, nil
	}
	return SortCreatedAt, fmt.Errorf("unknown sort %q", value)
}
