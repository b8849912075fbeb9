// Package todo exposes the task store as continuously updating streams plus write operations.
package todo

import (
	"context"
	"fmt"
	"log/slog"

	"materialhub/internal/models"
	"materialhub/internal/observable"
	"materialhub/internal/store"
)

// Snapshot is one emission of an observed task listing.
type Snapshot struct {
	Tasks []models.Task
	Err   error
}

// Repository wraps a TaskStore. Every committed write bumps a change counter, which makes
// each open observation re-query the table.
type Repository struct {
	store   *store.TaskStore
	logger  *slog.Logger
	changes *observable.Value[uint64]
}

func NewRepository(logger *slog.Logger, tasks *store.TaskStore) *Repository {
	return &Repository{
		store:   tasks,
		logger:  logger,
		changes: observable.New[uint64](0),
	}
}

// ObserveAll streams every task, newest first. The channel closes when ctx is done.
func (r *Repository) ObserveAll(ctx context.Context) <-chan Snapshot {
	return r.observe(ctx, models.FilterAll)
}

// ObserveActive streams the tasks that are not completed.
func (r *Repository) ObserveActive(ctx context.Context) <-chan Snapshot {
	return r.observe(ctx, models.FilterActive)
}

// ObserveCompleted streams the completed tasks.
func (r *Repository) ObserveCompleted(ctx context.Context) <-chan Snapshot {
	return r.observe(ctx, models.FilterCompleted)
}

func (r *Repository) observe(ctx context.Context, filter models.TaskFilter) <-chan Snapshot {
	out := make(chan Snapshot, 1)
	ticks := r.changes.Subscribe(ctx)

	go func() {
		defer close(out)
		for range ticks {
			tasks, err := r.store.List(ctx, filter, models.SortCreatedAt)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				r.logger.Error("Failed to query tasks", "filter", filter, "error", err)
			}
			// Sole sender: after draining, the send cannot block.
			select {
			case <-out:
			default:
			}
			out <- Snapshot{Tasks: tasks, Err: err}
		}
	}()

	return out
}

// List is a one-shot query with an explicit order.
func (r *Repository) List(ctx context.Context, filter models.TaskFilter, order models.TaskSort) ([]models.Task, error) {
	return r.store.List(ctx, filter, order)
}

func (r *Repository) Get(ctx context.Context, id int64) (models.Task, error) {
	return r.store.Get(ctx, id)
}

// Insert stores task and returns the id assigned by the store.
func (r *Repository) Insert(ctx context.Context, task models.Task) (int64, error) {
	id, err := r.store.Insert(ctx, task)
	if err != nil {
		return 0, fmt.Errorf("failed to insert task: %w", err)
	}
	r.logger.Debug("Inserted task.", "id", id, "title", task.Title)
	r.changed()
	return id, nil
}

func (r *Repository) Update(ctx context.Context, task models.Task) error {
	if err := r.store.Update(ctx, task); err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	r.changed()
	return nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	if err := r.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	r.changed()
	return nil
}

// DeleteCompleted removes every completed task in one statement.
func (r *Repository) DeleteCompleted(ctx context.Context) (int64, error) {
	n, err := r.store.DeleteCompleted(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete completed tasks: %w", err)
	}
	r.logger.Debug("Deleted completed tasks.", "count", n)
	if n > 0 {
		r.changed()
	}
	return n, nil
}

func (r *Repository) changed() {
	r.changes.Update(func(v uint64) uint64 { return v + 1 })
}
