package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/AdamBeresnev/fedbrackets/internal/config"
	"github.com/AdamBeresnev/fedbrackets/internal/db"
	"github.com/AdamBeresnev/fedbrackets/internal/service"
	"github.com/AdamBeresnev/fedbrackets/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
)

type services struct {
	events   *service.EventService
	brackets *service.BracketService
}

func main() {
	var (
		cfg      *config.Config
		logger   *slog.Logger
		database *sqlx.DB
	)

	open := func(c *cli.Context) (*sqlx.DB, error) {
		if database != nil {
			return database, nil
		}
		path := c.String("db")
		if path == "" {
			path = cfg.DatabasePath
		}
		conn, err := db.InitDB(path)
		if err != nil {
			return nil, err
		}
		database = conn
		return conn, nil
	}

	newServices := func(c *cli.Context) (*services, error) {
		conn, err := open(c)
		if err != nil {
			return nil, err
		}
		events := store.NewEventStore(conn)
		matches := store.NewMatchStore(conn)
		return &services{
			events:   service.NewEventService(conn, events, logger),
			brackets: service.NewBracketService(conn, events, matches, logger, otel.Tracer("bracketctl"), nil),
		}, nil
	}

	app := &cli.App{
		Name:  "bracketctl",
		Usage: "operate the bracket database",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db", Usage: "path to the SQLite database, defaults to DATABASE_PATH"},
		},
		Before: func(c *cli.Context) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
			slog.SetDefault(logger)
			return nil
		},
		After: func(c *cli.Context) error {
			if database != nil {
				return database.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "database migrations",
				Subcommands: []*cli.Command{
					{
						Name:  "up",
						Usage: "apply pending migrations",
						Action: func(c *cli.Context) error {
							conn, err := open(c)
							if err != nil {
								return err
							}
							if err := db.RunMigrations(conn.DB); err != nil {
								return err
							}
							return printVersion(c.App.Writer, conn)
						},
					},
					{
						Name:  "down",
						Usage: "roll back migrations",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "steps", Value: 1, Usage: "migrations to roll back, 0 rolls back everything"},
						},
						Action: func(c *cli.Context) error {
							conn, err := open(c)
							if err != nil {
								return err
							}
							if err := db.RollbackMigrations(conn.DB, c.Int("steps")); err != nil {
								return err
							}
							return printVersion(c.App.Writer, conn)
						},
					},
					{
						Name:  "version",
						Usage: "print the applied schema version",
						Action: func(c *cli.Context) error {
							conn, err := open(c)
							if err != nil {
								return err
							}
							return printVersion(c.App.Writer, conn)
						},
					},
				},
			},
			{
				Name:  "event",
				Usage: "inspect events",
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "list events, newest first",
						Action: func(c *cli.Context) error {
							svc, err := newServices(c)
							if err != nil {
								return err
							}
							events, err := svc.events.ListEvents(c.Context)
							if err != nil {
								return err
							}
							tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
							fmt.Fprintln(tw, "ID\tNAME\tFORMAT\tBEST OF\tCOMPLETED")
							for _, e := range events {
								fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%t\n", e.ID, e.Name, e.Format, e.BestOf, e.Completed)
							}
							return tw.Flush()
						},
					},
				},
			},
			{
				Name:  "bracket",
				Usage: "generate, show or reset an event's bracket",
				Subcommands: []*cli.Command{
					{
						Name:      "show",
						Usage:     "print the bracket round by round",
						ArgsUsage: "<event-id>",
						Action: func(c *cli.Context) error {
							eventID, err := eventArg(c)
							if err != nil {
								return err
							}
							svc, err := newServices(c)
							if err != nil {
								return err
							}
							view, err := svc.brackets.GetBracket(c.Context, eventID)
							if err != nil {
								return err
							}
							return printBracket(c.App.Writer, view)
						},
					},
					{
						Name:      "generate",
						Usage:     "generate the bracket from the stored registrations and seeds",
						ArgsUsage: "<event-id>",
						Action: func(c *cli.Context) error {
							eventID, err := eventArg(c)
							if err != nil {
								return err
							}
							svc, err := newServices(c)
							if err != nil {
								return err
							}
							result, err := svc.brackets.GenerateForEvent(c.Context, eventID, nil)
							if err != nil {
								return err
							}
							fmt.Fprintf(c.App.Writer, "Generated %d matches, %d rounds, bracket size %d\n",
								result.MatchCount, result.TotalRounds, result.BracketSize)
							return nil
						},
					},
					{
						Name:      "reset",
						Usage:     "delete every match of the event and clear its seeds",
						ArgsUsage: "<event-id>",
						Action: func(c *cli.Context) error {
							eventID, err := eventArg(c)
							if err != nil {
								return err
							}
							svc, err := newServices(c)
							if err != nil {
								return err
							}
							if err := svc.brackets.ResetBracket(c.Context, eventID); err != nil {
								return err
							}
							fmt.Fprintln(c.App.Writer, "Bracket reset")
							return nil
						},
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("bracketctl failed", "error", err)
		os.Exit(1)
	}
}

func eventArg(c *cli.Context) (uuid.UUID, error) {
	if c.NArg() != 1 {
		return uuid.Nil, cli.Exit("expected exactly one event id", 2)
	}
	id, err := uuid.Parse(c.Args().First())
	if err != nil {
		return uuid.Nil, cli.Exit(fmt.Sprintf("invalid event id: %v", err), 2)
	}
	return id, nil
}

func printVersion(w io.Writer, conn *sqlx.DB) error {
	version, dirty, err := db.MigrationVersion(conn.DB)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Schema version %d (dirty: %t)\n", version, dirty)
	return nil
}
