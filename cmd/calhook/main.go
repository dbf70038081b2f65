package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"calhook/internal/config"
	"calhook/internal/crm"
	"calhook/internal/ical"
	"calhook/internal/intake"
	"calhook/internal/models"
	"calhook/internal/server"
	"calhook/internal/sqlitestore"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "calhook",
		Usage: "Ingest appointment bookings and reconcile them against a CRM.",
		Commands: []*cli.Command{
			serveCommand(),
			processCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the appointment webhook server.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "Path to a YAML config file."},
			&cli.IntFlag{Name: "port", Usage: "Listen port. Overrides config and PORT."},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if c.IsSet("port") {
				cfg.Server.Port = c.Int("port")
			}
			logger := setupLogger(cfg.LogLevel)

			store, cleanup, err := buildStore(cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			processor := intake.NewProcessor(store, logger)
			srv := server.New(processor, logger, cfg.Server.Host, cfg.Server.Port)
			return srv.Start()
		},
	}
}

func processCommand() *cli.Command {
	return &cli.Command{
		Name:  "process",
		Usage: "Run a single appointment intake from the command line.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "Path to a YAML config file."},
			&cli.StringFlag{Name: "name", Usage: "Contact display name."},
			&cli.StringFlag{Name: "email", Usage: "Contact email (required)."},
			&cli.StringFlag{Name: "title", Usage: "Event title."},
			&cli.StringFlag{Name: "start", Usage: "Event start time (RFC 3339)."},
			&cli.StringFlag{Name: "end", Usage: "Event end time (RFC 3339)."},
			&cli.StringFlag{Name: "location", Usage: "Event location."},
			&cli.StringFlag{Name: "description", Usage: "Event description."},
			&cli.BoolFlag{Name: "invite", Usage: "Print the iCalendar invite for the booked event."},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger := setupLogger(cfg.LogLevel)

			store, cleanup, err := buildStore(cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			processor := intake.NewProcessor(store, logger)
			payload := models.AppointmentPayload{
				Name:        c.String("name"),
				Email:       c.String("email"),
				Title:       c.String("title"),
				StartTime:   c.String("start"),
				EndTime:     c.String("end"),
				Location:    c.String("location"),
				Description: c.String("description"),
			}

			result, err := processor.Process(c.Context, payload)
			if err != nil {
				return fmt.Errorf("intake failed: %w", err)
			}

			fmt.Printf("personId:      %s\n", result.PersonID)
			fmt.Printf("eventId:       %s\n", result.EventID)
			fmt.Printf("participantId: %s\n", result.ParticipantID)

			if c.Bool("invite") {
				invite, err := ical.Invite(result.Event, payload.Email, models.ParticipantStatusAccepted)
				if err != nil {
					return fmt.Errorf("failed to render invite: %w", err)
				}
				fmt.Println(invite)
			}
			return nil
		},
	}
}

// buildStore wires the configured entity-graph backend. The cleanup func is
// always safe to call.
func buildStore(cfg *config.Config, logger *slog.Logger) (intake.Store, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		store, err := sqlitestore.Open(cfg.Store.Path)
		if err != nil {
			return nil, func() {}, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		logger.Info("Using local sqlite store.", "path", cfg.Store.Path)
		return store, func() { store.Close() }, nil
	default:
		client, err := crm.New(logger, cfg.CRM.BaseURL, cfg.CRM.APIKey)
		if err != nil {
			return nil, func() {}, fmt.Errorf("failed to create CRM client: %w", err)
		}
		return client, func() {}, nil
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
