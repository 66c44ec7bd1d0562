package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/CTAG07/Lyrebird/pkg/markov"
)

func modelsCmd() *cli.Command {
	return &cli.Command{
		Name:  "models",
		Usage: "Inspect and manage stored models",
		Commands: []*cli.Command{
			modelsListCmd(),
			modelsStatsCmd(),
			modelsDeleteCmd(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
	}
}

func modelsListCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List all stored models",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			config, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			logger := newLogger(config.Server.LogLevel)

			db, store, err := openStore(config, logger)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			defer store.Close()

			infos, err := store.GetModelInfos(ctx)
			if err != nil {
				return fmt.Errorf("failed to list models: %w", err)
			}
			if len(infos) == 0 {
				fmt.Println("no models stored")
				return nil
			}

			names := make([]string, 0, len(infos))
			for name := range infos {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("%s\tngram-size=%d\n", name, infos[name].Order)
			}
			return nil
		},
	}
}

func modelsStatsCmd() *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "Show size statistics for a stored model",
		ArgsUsage: "NAME",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" {
				return errors.New("stats needs a model name: lyrebird models stats NAME")
			}

			config, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			logger := newLogger(config.Server.LogLevel)

			db, store, err := openStore(config, logger)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			defer store.Close()

			m, err := store.LoadModel(ctx, name)
			if err != nil {
				return describeStoreError(err, name)
			}

			stats := m.Stats()
			fmt.Printf("model:           %s\n", name)
			fmt.Printf("ngram size:      %d\n", m.Order())
			fmt.Printf("keys:            %d\n", stats.Keys)
			fmt.Printf("transitions:     %d\n", stats.Transitions)
			fmt.Printf("vocabulary:      %d\n", stats.Vocabulary)
			fmt.Printf("sentence starts: %d\n", markov.SentenceStarts(m))
			return nil
		},
	}
}

func modelsDeleteCmd() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a stored model",
		ArgsUsage: "NAME",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" {
				return errors.New("delete needs a model name: lyrebird models delete NAME")
			}

			config, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			logger := newLogger(config.Server.LogLevel)

			db, store, err := openStore(config, logger)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			defer store.Close()

			info, err := store.GetModelInfo(ctx, name)
			if err != nil {
				return describeStoreError(err, name)
			}
			if err = store.DeleteModel(ctx, info); err != nil {
				return fmt.Errorf("failed to delete model '%s': %w", name, err)
			}
			fmt.Printf("deleted model '%s'\n", name)
			return nil
		},
	}
}

// describeStoreError turns sql.ErrNoRows into a message naming the model.
func describeStoreError(err error, name string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("no model named '%s'; see 'lyrebird models list'", name)
	}
	return fmt.Errorf("failed to load model '%s': %w", name, err)
}
