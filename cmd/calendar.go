package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"materialhub/internal/calendar"
	"materialhub/internal/config"
	"materialhub/internal/devicecal"
	"materialhub/internal/google"
	"materialhub/internal/icloud"
	"materialhub/internal/models"
	"materialhub/internal/screens"
	"materialhub/internal/syncer"
)

func calendarCommand() *cli.Command {
	eventFlags := []cli.Flag{
		&cli.StringFlag{Name: "title", Required: true},
		&cli.StringFlag{Name: "start", Required: true, Usage: "RFC 3339 or \"YYYY-MM-DD HH:MM\" in PRIMARY_TIMEZONE"},
		&cli.StringFlag{Name: "end", Required: true, Usage: "same formats as --start"},
		&cli.StringFlag{Name: "description"},
		&cli.StringFlag{Name: "location"},
		&cli.StringFlag{Name: "calendar", Usage: "calendar id; defaults to the primary calendar"},
	}

	return &cli.Command{
		Name:  "calendar",
		Usage: "Browse and edit calendar events.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "backend", EnvVars: []string{"CALENDAR_BACKEND"}, Usage: "device, caldav or google"},
		},
		Subcommands: []*cli.Command{
			{
				Name:  "events",
				Usage: "List the events of one day.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "date", Usage: "YYYY-MM-DD, default today"},
				},
				Action: func(c *cli.Context) error {
					return withCalendar(c, func(env calendarEnv) error {
						if value := c.String("date"); value != "" {
							parsed, err := time.ParseInLocation(time.DateOnly, value, env.loc)
							if err != nil {
								return fmt.Errorf("invalid date %q: %w", value, err)
							}
							env.screen.SetSelectedDate(parsed)
						}
						env.screen.Wait()

						events, err := result(env.screen.State())
						if err != nil {
							return err
						}
						fmt.Printf("%s\n", env.screen.SelectedDate().Format("Monday, 2 January 2006"))
						for _, event := range events {
							printEvent(event, env.loc)
						}
						return nil
					})
				},
			},
			{
				Name:  "calendars",
				Usage: "List calendars.",
				Action: func(c *cli.Context) error {
					return withCalendar(c, func(env calendarEnv) error {
						cals, err := env.repo.Calendars(c.Context)
						if err != nil {
							return err
						}
						for _, cal := range cals {
							marker := " "
							if cal.Primary {
								marker = "*"
							}
							fmt.Printf("%s %s  %s\n", marker, cal.ID, cal.Name)
						}
						return nil
					})
				},
			},
			{
				Name:  "default",
				Usage: "Show the calendar new events go to.",
				Action: func(c *cli.Context) error {
					return withCalendar(c, func(env calendarEnv) error {
						id, ok, err := env.screen.DefaultCalendarID(c.Context)
						if err != nil {
							return err
						}
						if !ok {
							return errors.New("no calendars available")
						}
						fmt.Println(id)
						return nil
					})
				},
			},
			{
				Name:  "add",
				Usage: "Add an event.",
				Flags: eventFlags,
				Action: func(c *cli.Context) error {
					return withCalendar(c, func(env calendarEnv) error {
						event, err := eventFromFlags(c, env)
						if err != nil {
							return err
						}
						env.screen.SetSelectedDate(event.StartTime)
						env.screen.AddEvent(event)
						return finishCalendar(env.screen)
					})
				},
			},
			{
				Name:      "update",
				Usage:     "Replace an event.",
				ArgsUsage: "ID",
				Flags:     eventFlags,
				Action: func(c *cli.Context) error {
					return withCalendar(c, func(env calendarEnv) error {
						event, err := eventFromFlags(c, env)
						if err != nil {
							return err
						}
						event.ID = c.Args().First()
						env.screen.SetSelectedDate(event.StartTime)
						env.screen.UpdateEvent(event)
						return finishCalendar(env.screen)
					})
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete an event.",
				ArgsUsage: "ID",
				Action: func(c *cli.Context) error {
					return withCalendar(c, func(env calendarEnv) error {
						env.screen.DeleteEvent(c.Args().First())
						return finishCalendar(env.screen)
					})
				},
			},
			syncCommand(),
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Mirror events from one calendar backend into another.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Required: true, Usage: "source backend"},
			&cli.StringFlag{Name: "to", Required: true, Usage: "target backend"},
			&cli.StringFlag{Name: "target-calendar", Usage: "target calendar id; defaults to its primary calendar"},
			&cli.IntFlag{Name: "days", Value: 7, Usage: "number of days ahead to mirror"},
			&cli.StringFlag{Name: "state", Usage: "id-mapping file; defaults to the data directory"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be synced without making changes."},
			&cli.IntFlag{Name: "watch", Value: 300, Usage: "Run sync every N seconds."},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			if c.Bool("dry-run") {
				logger.Info("Performing a dry run. No changes will be made.")
			}

			source, closeSource, err := openStore(c.Context, cfg, logger, c.String("from"))
			if err != nil {
				return fmt.Errorf("failed to open source calendar: %w", err)
			}
			defer closeSource()
			target, closeTarget, err := openStore(c.Context, cfg, logger, c.String("to"))
			if err != nil {
				return fmt.Errorf("failed to open target calendar: %w", err)
			}
			defer closeTarget()

			targetCalendar := c.String("target-calendar")
			if targetCalendar == "" {
				id, ok, err := calendar.NewRepository(logger, target).DefaultCalendarID(c.Context)
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("target backend has no calendars")
				}
				targetCalendar = id
			}

			statePath := c.String("state")
			if statePath == "" {
				statePath = filepath.Join(cfg.DataDir, syncer.StateFile)
			}
			s, err := syncer.NewSyncer(logger, source, target, targetCalendar, statePath, c.Bool("dry-run"), loc)
			if err != nil {
				return fmt.Errorf("failed to create syncer: %w", err)
			}

			cycle := func() error {
				from, _ := calendar.DayWindow(time.Now().In(loc))
				_, err := s.Sync(c.Context, from, from.AddDate(0, 0, c.Int("days")))
				return err
			}

			// --watch keeps running; otherwise a single cycle.
			if c.IsSet("watch") {
				interval := time.Duration(c.Int("watch")) * time.Second
				logger.Info("Starting watcher.", "interval", interval)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					if err := cycle(); err != nil {
						logger.Error("Sync cycle failed", "error", err)
					}
					select {
					case <-c.Context.Done():
						return nil
					case <-ticker.C:
					}
				}
			}

			logger.Info("Running a single sync cycle.")
			if err := cycle(); err != nil {
				return fmt.Errorf("single sync cycle failed: %w", err)
			}
			return nil
		},
	}
}

type calendarEnv struct {
	repo   *calendar.Repository
	screen *screens.CalendarScreen
	loc    *time.Location
}

func withCalendar(c *cli.Context, fn func(calendarEnv) error) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if backend := c.String("backend"); backend != "" {
		cfg.CalendarBackend = backend
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	st, closeStore, err := openStore(c.Context, cfg, logger, cfg.CalendarBackend)
	if err != nil {
		return err
	}
	defer closeStore()

	repo := calendar.NewRepository(logger, st)
	screen := screens.NewCalendarScreen(c.Context, logger, repo, time.Now().In(loc))
	defer screen.Close()

	return fn(calendarEnv{repo: repo, screen: screen, loc: loc})
}

// openStore connects to the named calendar backend.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger, backend string) (calendar.Store, func(), error) {
	noop := func() {}
	switch backend {
	case config.BackendDevice:
		if err := cfg.EnsureDataDir(); err != nil {
			return nil, noop, err
		}
		db, err := devicecal.Open(cfg.DeviceCalendarPath)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open device calendar: %w", err)
		}
		st := devicecal.NewStore(logger, db, devicecal.ParseGrants(cfg.CalendarPermissions))
		if err := st.EnsureCalendar(ctx, "Personal"); err != nil {
			logger.Warn("Could not create the default device calendar.", "error", err)
		}
		return st, func() { _ = db.Close() }, nil
	case config.BackendCalDAV:
		st, err := icloud.NewClient(ctx, logger, cfg.CalDAVEndpoint, cfg.CalDAVUsername, cfg.CalDAVPassword, cfg.CalDAVCalendarName)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create caldav client: %w", err)
		}
		return st, noop, nil
	case config.BackendGoogle:
		account, err := google.ResolveAccount(cfg.DataDir, cfg.GoogleAccount)
		if err != nil {
			return nil, noop, err
		}
		if cfg.GoogleAccount == "" {
			logger.Info("Using the only authenticated Google account.", "account", account)
		}
		st, err := google.NewClient(ctx, logger, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.DataDir, account)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create google client: %w", err)
		}
		return st, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown calendar backend %q", backend)
	}
}

func eventFromFlags(c *cli.Context, env calendarEnv) (models.CalendarEvent, error) {
	start, err := parseEventTime(c.String("start"), env.loc)
	if err != nil {
		return models.CalendarEvent{}, err
	}
	end, err := parseEventTime(c.String("end"), env.loc)
	if err != nil {
		return models.CalendarEvent{}, err
	}

	event := models.CalendarEvent{
		Title:      c.String("title"),
		StartTime:  start,
		EndTime:    end,
		CalendarID: c.String("calendar"),
		TimeZone:   env.loc.String(),
	}
	if v := c.String("description"); v != "" {
		event.Description = &v
	}
	if v := c.String("location"); v != "" {
		event.Location = &v
	}

	if event.CalendarID == "" {
		id, ok, err := env.screen.DefaultCalendarID(c.Context)
		if err != nil {
			return models.CalendarEvent{}, err
		}
		if !ok {
			return models.CalendarEvent{}, errors.New("no calendars available")
		}
		event.CalendarID = id
	}
	return event, nil
}

func parseEventTime(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", value)
	}
	return t, nil
}

// finishCalendar waits for the mutation and the reload it triggers.
func finishCalendar(screen *screens.CalendarScreen) error {
	screen.Wait()
	events, err := result(screen.State())
	if err != nil {
		return err
	}
	fmt.Printf("%d event(s) on %s\n", len(events), screen.SelectedDate().Format(time.DateOnly))
	return nil
}

func printEvent(event models.CalendarEvent, loc *time.Location) {
	fmt.Printf("%s-%s  %s  [%s]\n", event.StartTime.In(loc).Format("15:04"), event.EndTime.In(loc).Format("15:04"), event.Title, event.ID)
	if event.Location != nil {
		fmt.Println("             @ " + *event.Location)
	}
	if event.Description != nil {
		fmt.Println("             " + *event.Description)
	}
}
