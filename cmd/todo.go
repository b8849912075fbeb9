package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"materialhub/internal/models"
	"materialhub/internal/screens"
	"materialhub/internal/store"
	"materialhub/internal/todo"
)

func todoCommand() *cli.Command {
	return &cli.Command{
		Name:  "todo",
		Usage: "Manage the local task list.",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List tasks.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "filter", Value: "all", Usage: "all, active or completed"},
					&cli.StringFlag{Name: "sort", Value: "created", Usage: "created, due or priority"},
				},
				Action: func(c *cli.Context) error {
					filter, err := models.ParseTaskFilter(c.String("filter"))
					if err != nil {
						return err
					}
					order, err := models.ParseTaskSort(c.String("sort"))
					if err != nil {
						return err
					}
					return withTodo(c, func(repo *todo.Repository, _ *screens.TodoScreen) error {
						tasks, err := repo.List(c.Context, filter, order)
						if err != nil {
							return err
						}
						for _, task := range tasks {
							printTask(task)
						}
						return nil
					})
				},
			},
			{
				Name:      "add",
				Usage:     "Add a task.",
				ArgsUsage: "TITLE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}},
					&cli.StringFlag{Name: "priority", Aliases: []string{"p"}, Value: "medium", Usage: "low, medium or high"},
					&cli.StringFlag{Name: "due", Usage: "due date as YYYY-MM-DD"},
				},
				Action: func(c *cli.Context) error {
					priority, err := models.ParsePriority(c.String("priority"))
					if err != nil {
						return err
					}
					var due *time.Time
					if value := c.String("due"); value != "" {
						t, err := time.ParseInLocation(time.DateOnly, value, time.Local)
						if err != nil {
							return fmt.Errorf("invalid due date %q: %w", value, err)
						}
						due = &t
					}
					return withTodo(c, func(_ *todo.Repository, screen *screens.TodoScreen) error {
						screen.Add(c.Args().First(), c.String("description"), priority, due)
						return finish(screen)
					})
				},
			},
			{
				Name:      "toggle",
				Usage:     "Flip a task between active and completed.",
				ArgsUsage: "ID",
				Action: func(c *cli.Context) error {
					id, err := taskID(c)
					if err != nil {
						return err
					}
					return withTodo(c, func(repo *todo.Repository, screen *screens.TodoScreen) error {
						task, err := repo.Get(c.Context, id)
						if err != nil {
							return err
						}
						screen.Toggle(task)
						return finish(screen)
					})
				},
			},
			{
				Name:      "rm",
				Usage:     "Delete a task.",
				ArgsUsage: "ID",
				Action: func(c *cli.Context) error {
					id, err := taskID(c)
					if err != nil {
						return err
					}
					return withTodo(c, func(_ *todo.Repository, screen *screens.TodoScreen) error {
						screen.Delete(models.Task{ID: id})
						return finish(screen)
					})
				},
			},
			{
				Name:  "clear",
				Usage: "Delete every completed task.",
				Action: func(c *cli.Context) error {
					return withTodo(c, func(_ *todo.Repository, screen *screens.TodoScreen) error {
						screen.DeleteCompleted()
						return finish(screen)
					})
				},
			},
		},
	}
}

// withTodo opens the task database and hands fn a repository and a screen whose first listing
// has already arrived.
func withTodo(c *cli.Context, fn func(*todo.Repository, *screens.TodoScreen) error) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return err
	}

	db, err := store.Open(cfg.TodoDBPath)
	if err != nil {
		return fmt.Errorf("failed to open task database: %w", err)
	}
	defer db.Close()

	repo := todo.NewRepository(logger, store.NewTaskStore(db))
	screen := screens.NewTodoScreen(c.Context, logger, repo)
	defer screen.Close()

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	first, err := settle(ctx, screen.Subscribe(ctx))
	if err != nil {
		return err
	}
	if _, err := result(first); err != nil {
		return err
	}
	return fn(repo, screen)
}

// finish waits for the screen's actions and reports a published failure.
func finish(screen *screens.TodoScreen) error {
	screen.Wait()
	_, err := result(screen.State())
	return err
}

func taskID(c *cli.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid task id %q", c.Args().First())
	}
	return id, nil
}

func printTask(task models.Task) {
	mark := " "
	if task.Completed {
		mark = "x"
	}
	line := fmt.Sprintf("[%s] %4d  %-6s  %s", mark, task.ID, task.Priority, task.Title)
	if task.DueAt != nil {
		line += "  (due " + task.DueAt.Format(time.DateOnly) + ")"
	}
	fmt.Println(line)
	if task.Description != nil {
		fmt.Println("            " + *task.Description)
	}
}
