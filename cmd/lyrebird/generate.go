package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/CTAG07/Lyrebird/pkg/markov"
)

func generateCmd() *cli.Command {
	var (
		modelName  string
		corpusPath string
		ngramSize  int64
		words      int64
		minWords   int64
		attempts   int64
		seed       int64
		startKey   string
		count      int64
	)

	return &cli.Command{
		Name:  "generate",
		Usage: "Generate sentences from a stored model or an ad-hoc corpus",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "model",
				Aliases:     []string{"m"},
				Usage:       "name of a stored model to generate from",
				Destination: &modelName,
			},
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "corpus file to train an ad-hoc model from (default: stdin)",
				Destination: &corpusPath,
			},
			&cli.Int64Flag{
				Name:        "ngram-size",
				Aliases:     []string{"n"},
				Usage:       "n-gram size for an ad-hoc model (0 = config default)",
				Destination: &ngramSize,
			},
			&cli.Int64Flag{
				Name:        "words",
				Aliases:     []string{"w"},
				Usage:       "target word count before boundary trimming (0 = config default)",
				Destination: &words,
			},
			&cli.Int64Flag{
				Name:        "min-words",
				Usage:       "smallest acceptable word count after trimming (0 = config default)",
				Destination: &minWords,
			},
			&cli.Int64Flag{
				Name:        "attempts",
				Usage:       "generation attempts before giving up (0 = config default)",
				Destination: &attempts,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "random seed (default -1 = random)",
				Value:       -1,
				Destination: &seed,
			},
			&cli.StringFlag{
				Name:        "start",
				Usage:       "explicit start key, exactly ngram-size words",
				Destination: &startKey,
			},
			&cli.Int64Flag{
				Name:        "count",
				Aliases:     []string{"c"},
				Usage:       "number of sentences to generate",
				Value:       1,
				Destination: &count,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			config, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			logger := newLogger(config.Server.LogLevel)

			m, err := resolveModel(ctx, config, logger, modelName, corpusPath, int(ngramSize))
			if err != nil {
				return err
			}

			opts := sentenceOpts(config, int(words), int(minWords), int(attempts))
			if seed != -1 {
				opts = append(opts, markov.WithSentenceRand(rand.New(rand.NewPCG(uint64(seed), 0))))
			}
			if startKey != "" {
				opts = append(opts, markov.WithSentenceStart(strings.Fields(startKey)))
			}

			for i := int64(0); i < count; i++ {
				sentence, err := markov.Sentence(ctx, m, opts...)
				if err != nil {
					return describeSentenceError(err)
				}
				fmt.Println(sentence)
			}
			return nil
		},
	}
}

// resolveModel loads a stored model by name, or trains an ad-hoc one from a
// corpus file or stdin.
func resolveModel(ctx context.Context, config *Config, logger *slog.Logger, modelName, corpusPath string, ngramSize int) (*markov.Model[string], error) {
	if modelName != "" {
		db, store, err := openStore(config, logger)
		if err != nil {
			return nil, err
		}
		defer func() { _ = db.Close() }()
		defer store.Close()

		m, err := store.LoadModel(ctx, modelName)
		if err != nil {
			return nil, describeStoreError(err, modelName)
		}
		m.SetLogger(logger)
		return m, nil
	}

	corpus, err := openCorpus(corpusPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = corpus.Close() }()

	if ngramSize == 0 {
		ngramSize = config.Generation.NgramSize
	}
	m, err := markov.BuildText(markov.NewWhitespaceTokenizer(), corpus, ngramSize)
	if err != nil {
		return nil, fmt.Errorf("failed to build model: %w", err)
	}
	m.SetLogger(logger)
	return m, nil
}

// openCorpus opens the corpus file, or stdin when no path is given. A stdin
// corpus must be piped in; an interactive terminal is rejected.
func openCorpus(path string) (io.ReadCloser, error) {
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open corpus file: %w", err)
		}
		return f, nil
	}

	stat, err := os.Stdin.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat stdin: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice != 0 {
		return nil, errors.New("no corpus: pipe text on stdin, pass --file, or name a stored model with --model")
	}
	return io.NopCloser(os.Stdin), nil
}

// sentenceOpts merges flag overrides over the configured generation defaults.
func sentenceOpts(config *Config, words, minWords, attempts int) []markov.SentenceOption {
	if words == 0 {
		words = config.Generation.Words
	}
	if minWords == 0 {
		minWords = config.Generation.MinWords
	}
	if attempts == 0 {
		attempts = config.Generation.Attempts
	}
	return []markov.SentenceOption{
		markov.WithWords(words),
		markov.WithMinWords(minWords),
		markov.WithAttempts(attempts),
	}
}

func describeSentenceError(err error) error {
	switch {
	case errors.Is(err, markov.ErrSentenceTooShort):
		return fmt.Errorf("%w\nlower --min-words or raise --words / --attempts", err)
	case errors.Is(err, markov.ErrNoSentenceStart):
		return fmt.Errorf("%w: the corpus has no word ending in a full stop; pass --start to begin anywhere", err)
	default:
		return err
	}
}
