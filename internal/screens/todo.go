// Package screens holds the state behind each section of the hub. Every screen publishes a
// viewstate.State and runs its work in its own scope until Close.
package screens

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"materialhub/internal/models"
	"materialhub/internal/todo"
	"materialhub/internal/viewstate"
)

// TodoScreen shows every task, newest first, and applies the user's edits.
type TodoScreen struct {
	repo   *todo.Repository
	logger *slog.Logger
	tasks  *viewstate.Holder[[]models.Task]
}

func NewTodoScreen(ctx context.Context, logger *slog.Logger, repo *todo.Repository) *TodoScreen {
	s := &TodoScreen{
		repo:   repo,
		logger: logger,
		tasks:  viewstate.NewHolder[[]models.Task](ctx),
	}
	s.tasks.Watch(func(ctx context.Context) {
		for snapshot := range repo.ObserveAll(ctx) {
			if snapshot.Err != nil {
				s.tasks.Publish(viewstate.Failure[[]models.Task](snapshot.Err.Error()))
				continue
			}
			s.tasks.Publish(viewstate.Success(snapshot.Tasks))
		}
	})
	return s
}

func (s *TodoScreen) State() viewstate.State[[]models.Task] {
	return s.tasks.State()
}

func (s *TodoScreen) Subscribe(ctx context.Context) <-chan viewstate.State[[]models.Task] {
	return s.tasks.Subscribe(ctx)
}

// Add creates an active task. A blank title is ignored.
func (s *TodoScreen) Add(title, description string, priority models.Priority, due *time.Time) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	task := models.Task{Title: title, Priority: priority, DueAt: due}
	if description = strings.TrimSpace(description); description != "" {
		task.Description = &description
	}

	s.act("add task", func(ctx context.Context) error {
		_, err := s.repo.Insert(ctx, task)
		return err
	})
}

// Toggle flips the completion flag of task.
func (s *TodoScreen) Toggle(task models.Task) {
	task.Completed = !task.Completed
	s.Update(task)
}

func (s *TodoScreen) Update(task models.Task) {
	s.act("update task", func(ctx context.Context) error {
		return s.repo.Update(ctx, task)
	})
}

func (s *TodoScreen) Delete(task models.Task) {
	s.act("delete task", func(ctx context.Context) error {
		return s.repo.Delete(ctx, task.ID)
	})
}

func (s *TodoScreen) DeleteCompleted() {
	s.act("delete completed tasks", func(ctx context.Context) error {
		_, err := s.repo.DeleteCompleted(ctx)
		return err
	})
}

// act runs fn in the screen scope and publishes its failure, if any.
func (s *TodoScreen) act(op string, fn func(ctx context.Context) error) {
	s.tasks.Launch(func(ctx context.Context) {
		if err := fn(ctx); err != nil {
			s.logger.Error("Task action failed", "op", op, "error", err)
			s.tasks.Fail(err.Error())
		}
	})
}

// Wait blocks until every action started so far has finished.
func (s *TodoScreen) Wait() {
	s.tasks.Wait()
}

func (s *TodoScreen) Close() {
	s.tasks.Close()
}
