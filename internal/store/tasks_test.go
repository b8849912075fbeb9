package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"materialhub/internal/models"
)

func TestInsertAssignsIDAndDefaults(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	desc := "two litres"
	id, err := store.Insert(context.Background(), models.Task{Title: "Buy milk", Description: &desc, Priority: models.PriorityLow})
	if err != nil {
		t.Fatalf("insert task: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected task ID to be set")
	}

	got, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Title != "Buy milk" || got.Description == nil || *got.Description != desc {
		t.Fatalf("unexpected task %+v", got)
	}
	if got.Completed {
		t.Fatalf("expected new task to be active")
	}
	if got.Priority != models.PriorityLow {
		t.Fatalf("expected priority low, got %s", got.Priority)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps to be set")
	}
}

func TestInsertWithoutPriorityStoresMedium(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	id, err := store.Insert(ctx, models.Task{Title: "No priority given"})
	if err != nil {
		t.Fatalf("insert task: %v", err)
	}
	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Priority != models.PriorityMedium {
		t.Fatalf("expected priority medium, got %s", got.Priority)
	}

	var raw int64
	if err := store.DB.QueryRowContext(ctx, "SELECT priority FROM todos WHERE id = ?", id).Scan(&raw); err != nil {
		t.Fatalf("read raw priority: %v", err)
	}
	if raw != 0 {
		t.Fatalf("expected stored priority 0, got %d", raw)
	}
}

func TestInsertWithExistingIDReplaces(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	id, err := store.Insert(ctx, models.Task{Title: "Draft"})
	if err != nil {
		t.Fatalf("insert task: %v", err)
	}
	again, err := store.Insert(ctx, models.Task{ID: id, Title: "Final"})
	if err != nil {
		t.Fatalf("replace task: %v", err)
	}
	if again != id {
		t.Fatalf("expected id %d, got %d", id, again)
	}

	tasks, err := store.List(ctx, models.FilterAll, models.SortCreatedAt)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "Final" {
		t.Fatalf("expected single replaced task, got %+v", tasks)
	}
}

func TestListOrdersNewestFirstAndFilters(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	for i, title := range []string{"first", "second", "third"} {
		_, err := store.Insert(ctx, models.Task{Title: title, Completed: i == 1, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
		if err != nil {
			t.Fatalf("insert %s: %v", title, err)
		}
	}

	all, err := store.List(ctx, models.FilterAll, models.SortCreatedAt)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if titles(all) != "third,second,first" {
		t.Fatalf("expected newest first, got %s", titles(all))
	}

	active, err := store.List(ctx, models.FilterActive, models.SortCreatedAt)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if titles(active) != "third,first" {
		t.Fatalf("unexpected active tasks %s", titles(active))
	}

	completed, err := store.List(ctx, models.FilterCompleted, models.SortCreatedAt)
	if err != nil {
		t.Fatalf("list completed: %v", err)
	}
	if titles(completed) != "second" {
		t.Fatalf("unexpected completed tasks %s", titles(completed))
	}
}

func TestListSortsByDueDateAndPriority(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	soon := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	later := soon.AddDate(0, 1, 0)
	inputs := []models.Task{
		{Title: "undated", Priority: models.PriorityHigh},
		{Title: "later", DueAt: &later, Priority: models.PriorityLow},
		{Title: "soon", DueAt: &soon, Priority: models.PriorityMedium},
	}
	for _, task := range inputs {
		if _, err := store.Insert(ctx, task); err != nil {
			t.Fatalf("insert %s: %v", task.Title, err)
		}
	}

	byDue, err := store.List(ctx, models.FilterAll, models.SortDueDate)
	if err != nil {
		t.Fatalf("list by due: %v", err)
	}
	if titles(byDue) != "soon,later,undated" {
		t.Fatalf("unexpected due order %s", titles(byDue))
	}

	byPriority, err := store.List(ctx, models.FilterAll, models.SortPriority)
	if err != nil {
		t.Fatalf("list by priority: %v", err)
	}
	if titles(byPriority) != "undated,soon,later" {
		t.Fatalf("unexpected priority order %s", titles(byPriority))
	}
}

func TestDeleteCompletedLeavesActiveTasks(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := store.Insert(ctx, models.Task{Title: "task", Completed: i%2 == 0}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	removed, err := store.DeleteCompleted(ctx)
	if err != nil {
		t.Fatalf("delete completed: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}

	remaining, err := store.List(ctx, models.FilterAll, models.SortCreatedAt)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("expected 2 remaining, got %d", len(remaining))
	}
	for _, task := range remaining {
		if task.Completed {
			t.Fatalf("expected only active tasks to remain")
		}
	}
}

func TestUpdateAndDeleteMissingTask(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.Update(ctx, models.Task{ID: 42, Title: "ghost"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from update, got %v", err)
	}
	if err := store.Delete(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from delete, got %v", err)
	}
	if _, err := store.Get(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from get, got %v", err)
	}
}

func TestOpenRecordsSchemaVersion(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("read version: %v", err)
	}
	if version != SchemaVersion {
		t.Fatalf("expected schema version %d, got %d", SchemaVersion, version)
	}
}

func titles(tasks []models.Task) string {
	out := ""
	for i, task := range tasks {
		if i > 0 {
			out += ","
		}
		out += task.Title
	}
	return out
}

func newTestStore(t *testing.T) (*TaskStore, func()) {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return NewTaskStore(db), func() {
		_ = db.Close()
	}
}
