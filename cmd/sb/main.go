// Command sb is a terminal client for sprintboard: projects, sprints, issues
// and their comments, stored in a local SQLite database.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/satyaki-up/sprintboard/internal/config"
	"github.com/satyaki-up/sprintboard/internal/db"
	"github.com/satyaki-up/sprintboard/internal/logging"
	"github.com/satyaki-up/sprintboard/internal/telemetry"
	"github.com/satyaki-up/sprintboard/internal/tracker"
)

var version = "dev"

// Global flags
var (
	jsonOutput bool
	dbFlag     string
	verbose    bool
)

// app holds what PersistentPreRunE opened for the running command.
var app struct {
	cfg      *config.Config
	log      zerolog.Logger
	db       *sql.DB
	engine   *tracker.Engine
	shutdown func(context.Context) error
}

var rootCmd = &cobra.Command{
	Use:   "sb",
	Short: "Track projects, sprints and issues",
	Long: `sb keeps a project board in a local SQLite database.

Configuration is read from the nearest .sprintboard.yaml and SB_* environment
variables.

Examples:
  sb project create WEB --name "Website"
  sb issue create --title "Login page" --type story --points 3
  sb sprint start "Sprint 12" --rebase-dates
  sb board`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: openApp,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeApp(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "SQLite database path (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(sprintCmd)
	rootCmd.AddCommand(issueCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(backlogCmd)
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(orphansCmd)
	rootCmd.AddCommand(epicCmd)
	rootCmd.AddCommand(treeCmd)
}

func main() {
	ctx := context.Background()
	err := rootCmd.ExecuteContext(ctx)
	if app.db != nil {
		// PostRun is skipped when RunE fails.
		_ = closeApp(ctx)
	}
	if err != nil {
		os.Exit(renderError(err))
	}
}

func openApp(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	app.cfg = cfg
	app.log = logging.New(cfg.Log, os.Stderr)

	app.shutdown, err = telemetry.Init(ctx, cfg.Telemetry, "sprintboard", version)
	if err != nil {
		return err
	}

	path := dbFlag
	if strings.TrimSpace(path) == "" {
		path = cfg.DBPath
	}
	if strings.TrimSpace(path) == "" {
		path = db.DefaultPath()
	}
	app.db, err = db.Open(ctx, path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	app.engine, err = tracker.Open(ctx, db.NewSnapshotStore(app.db),
		tracker.WithOptions(tracker.Options{
			ReopenEpics:       cfg.Engine.ReopenEpics,
			StrictTransitions: cfg.Engine.StrictTransitions,
		}),
		tracker.WithLogger(app.log.With().Str("component", "engine").Logger()),
		tracker.WithObserver(telemetry.NewCommandObserver()),
	)
	if err != nil {
		return err
	}
	app.log.Debug().Str("db", path).Str("config", cfg.Path).Msg("board opened")
	return nil
}

func closeApp(ctx context.Context) error {
	var errs []error
	if app.db != nil {
		errs = append(errs, app.db.Close())
		app.db = nil
	}
	if app.shutdown != nil {
		errs = append(errs, app.shutdown(ctx))
		app.shutdown = nil
	}
	return errors.Join(errs...)
}

func renderError(err error) int {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	switch {
	case errors.Is(err, tracker.ErrInvalidInput), errors.Is(err, tracker.ErrInvalidStateTransition):
		return 2
	case errors.Is(err, tracker.ErrNotFound):
		return 3
	case errors.Is(err, tracker.ErrConflict), errors.Is(err, tracker.ErrInvariantViolation):
		return 4
	default:
		return 1
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
