package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/CTAG07/Lyrebird/pkg/markov"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var configPath string

func main() {
	app := &cli.Command{
		Name:    "lyrebird",
		Usage:   "Markov chain text generator",
		Version: fmt.Sprintf("%s (%s, built %s)", Version, Commit, BuildDate),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Usage:       "path to the config file",
				Value:       "./config.json",
				Destination: &configPath,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			generateCmd(),
			trainCmd(),
			modelsCmd(),
			exportCmd(),
			importCmd(),
			serveCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger builds the application logger from the configured level.
func newLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// openStore opens the configured database, ensures the schema exists, and
// returns a model store on top of it. The caller closes both.
func openStore(config *Config, logger *slog.Logger) (*sql.DB, *markov.Store, error) {
	db, err := initDB(config.Server.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = markov.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to set up model schema: %w", err)
	}

	store, err := markov.NewStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to create model store: %w", err)
	}
	store.SetLogger(logger)

	return db, store, nil
}
