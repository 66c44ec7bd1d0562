package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/CTAG07/Lyrebird/pkg/markov"
)

func exportCmd() *cli.Command {
	var outputPath string

	return &cli.Command{
		Name:      "export",
		Usage:     "Export a stored model as JSON",
		ArgsUsage: "NAME",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output file (default: stdout)",
				Destination: &outputPath,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" {
				return errors.New("export needs a model name: lyrebird export NAME")
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

			var out io.Writer = os.Stdout
			if outputPath != "" {
				f, err := os.Create(outputPath)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer func() { _ = f.Close() }()
				out = f
			}

			if err = m.Export(out); err != nil {
				return fmt.Errorf("failed to export model '%s': %w", name, err)
			}
			return nil
		},
	}
}

func importCmd() *cli.Command {
	var (
		inputPath string
		replace   bool
	)

	return &cli.Command{
		Name:      "import",
		Usage:     "Import a JSON model and store it under a name",
		ArgsUsage: "NAME",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "input file (default: stdin)",
				Destination: &inputPath,
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
				return errors.New("import needs a model name: lyrebird import NAME")
			}

			config, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			logger := newLogger(config.Server.LogLevel)

			var in io.Reader = os.Stdin
			if inputPath != "" {
				f, err := os.Open(inputPath)
				if err != nil {
					return fmt.Errorf("failed to open input file: %w", err)
				}
				defer func() { _ = f.Close() }()
				in = f
			}

			m, err := markov.Import[string](in)
			if err != nil {
				return fmt.Errorf("failed to import model: %w", err)
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
			return nil
		},
	}
}
