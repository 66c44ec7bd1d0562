package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/CTAG07/Lyrebird/pkg/markov"
)

func trainCmd() *cli.Command {
	var (
		corpusPath string
		ngramSize  int64
		replace    bool
	)

	return &cli.Command{
		Name:      "train",
		Usage:     "Train a model from a corpus and store it under a name",
		ArgsUsage: "NAME",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "corpus file to train from (default: stdin)",
				Destination: &corpusPath,
			},
			&cli.Int64Flag{
				Name:        "ngram-size",
				Aliases:     []string{"n"},
				Usage:       "n-gram size (0 = config default)",
				Destination: &ngramSize,
			},
			&cli.BoolFlag{
				Name:        "replace",
				Usage:       "replace an existing model with the same name",
				Destination: &replace,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" {
				return errors.New("train needs a model name: lyrebird train NAME")
			}

			config, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			logger := newLogger(config.Server.LogLevel)

			corpus, err := openCorpus(corpusPath)
			if err != nil {
				return err
			}
			defer func() { _ = corpus.Close() }()

			if ngramSize == 0 {
				ngramSize = int64(config.Generation.NgramSize)
			}
			m, err := markov.BuildText(markov.NewWhitespaceTokenizer(), corpus, int(ngramSize))
			if err != nil {
				return fmt.Errorf("failed to build model: %w", err)
			}
			m.SetLogger(logger)

			db, store, err := openStore(config, logger)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			defer store.Close()

			if replace {
				if err = removeExisting(ctx, store, name); err != nil {
					return err
				}
			}

			if err = store.SaveModel(ctx, name, m); err != nil {
				return fmt.Errorf("failed to save model '%s': %w", name, err)
			}

			stats := m.Stats()
			logger.Info("Model trained",
				slog.String("model_name", name),
				slog.Int64("ngram_size", ngramSize),
				slog.Int("keys", stats.Keys),
				slog.Int("transitions", stats.Transitions),
				slog.Int("vocabulary", stats.Vocabulary),
			)
			return nil
		},
	}
}

// removeExisting deletes a stored model by name if it exists.
func removeExisting(ctx context.Context, store *markov.Store, name string) error {
	info, err := store.GetModelInfo(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	if err = store.DeleteModel(ctx, info); err != nil {
		return fmt.Errorf("failed to replace model '%s': %w", name, err)
	}
	return nil
}
