package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"materialhub/internal/config"
	"materialhub/internal/google"
	"materialhub/internal/logging"
	"materialhub/internal/viewstate"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "materialhub",
		Usage: "Tasks, news, weather and calendar from one place.",
		Commands: []*cli.Command{
			todoCommand(),
			newsCommand(),
			weatherCommand(),
			calendarCommand(),
			authCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

// setup loads the configuration and builds the logger every command starts from.
func setup() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, logging.New(cfg.LogLevel), nil
}

// settle waits until the stream leaves the Loading state and returns that state.
func settle[T any](ctx context.Context, states <-chan viewstate.State[T]) (viewstate.State[T], error) {
	for {
		select {
		case s, ok := <-states:
			if !ok {
				return viewstate.State[T]{}, ctx.Err()
			}
			if s.Status != viewstate.StatusLoading {
				return s, nil
			}
		case <-ctx.Done():
			return viewstate.State[T]{}, ctx.Err()
		}
	}
}

// result turns a settled state into the command's outcome.
func result[T any](s viewstate.State[T]) (T, error) {
	if s.Status == viewstate.StatusError {
		var zero T
		return zero, fmt.Errorf("%s", s.Message)
	}
	return s.Data, nil
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Action: func(c *cli.Context) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			logger.Info("Starting Google authentication flow.")

			oauthConfig, err := google.GetOAuthConfigForAuthFlow(cfg.GoogleClientID, cfg.GoogleClientSecret)
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(c.Context, oauthConfig, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			accountName := cfg.GoogleAccount
			if accountName == "" {
				fmt.Print("Enter a name for this account (e.g., 'personal', 'work'): ")
				accountName, _ = reader.ReadString('\n')
				accountName = strings.TrimSpace(accountName)
			}
			if err := cfg.EnsureDataDir(); err != nil {
				return err
			}
			tokenFile := google.TokenPath(cfg.DataDir, accountName)

			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			return nil
		},
	}
}
