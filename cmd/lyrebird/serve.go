package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os/signal"
	"sort"
	"sync"
	"syscall"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/CTAG07/Lyrebird/pkg/markov"
)

func serveCmd() *cli.Command {
	var addr string

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the sentence generation HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address (default: config value)",
				Destination: &addr,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			config, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			logger := newLogger(config.Server.LogLevel)
			if addr == "" {
				addr = config.Server.Addr
			}

			db, store, err := openStore(config, logger)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			defer store.Close()

			server := newAPIServer(store, config.Generation, logger)

			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info("Starting API server", slog.String("address", addr))
			sc := echo.StartConfig{Address: addr}
			return sc.Start(ctx, e)
		},
	}
}

// apiServer serves stored models over HTTP. Loaded models are cached for the
// lifetime of the process; the model list is always read from the database.
type apiServer struct {
	store  *markov.Store
	config *GenerationConfig
	logger *slog.Logger

	mu     sync.RWMutex
	models map[string]*markov.Model[string]
}

func newAPIServer(store *markov.Store, config *GenerationConfig, logger *slog.Logger) *apiServer {
	return &apiServer{
		store:  store,
		config: config,
		logger: logger,
		models: make(map[string]*markov.Model[string]),
	}
}

// Register attaches the API routes to an echo instance.
func (s *apiServer) Register(e *echo.Echo) {
	e.GET("/v1/models", s.handleListModels)
	e.POST("/v1/sentence", s.handleSentence)
}

// ModelSummary is the per-model entry in the list response.
type ModelSummary struct {
	Name      string `json:"name"`
	NgramSize int    `json:"ngram_size"`
}

// ListModelsResponse is the body of GET /v1/models.
type ListModelsResponse struct {
	Models []ModelSummary `json:"models"`
}

// SentenceRequest is the body of POST /v1/sentence. Zero-valued generation
// parameters fall back to the server's configured defaults.
type SentenceRequest struct {
	Model    string   `json:"model"`
	Words    int      `json:"words"`
	MinWords int      `json:"min_words"`
	Attempts int      `json:"attempts"`
	Start    []string `json:"start"`
	Seed     *uint64  `json:"seed"`
}

// SentenceResponse is the body of a successful POST /v1/sentence.
type SentenceResponse struct {
	Model    string `json:"model"`
	Sentence string `json:"sentence"`
}

func (s *apiServer) handleListModels(c *echo.Context) error {
	infos, err := s.store.GetModelInfos(c.Request().Context())
	if err != nil {
		return writeError(c, http.StatusInternalServerError, err.Error())
	}

	models := make([]ModelSummary, 0, len(infos))
	for name, info := range infos {
		models = append(models, ModelSummary{Name: name, NgramSize: info.Order})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })

	return c.JSON(http.StatusOK, ListModelsResponse{Models: models})
}

func (s *apiServer) handleSentence(c *echo.Context) error {
	req, err := decodeJSON[SentenceRequest](c.Request().Body)
	if err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	if req.Model == "" {
		return writeError(c, http.StatusBadRequest, "missing model name")
	}

	ctx := c.Request().Context()
	m, err := s.getModel(ctx, req.Model)
	if errors.Is(err, sql.ErrNoRows) {
		return writeError(c, http.StatusNotFound, fmt.Sprintf("no model named '%s'", req.Model))
	}
	if err != nil {
		return writeError(c, http.StatusInternalServerError, err.Error())
	}

	opts := []markov.SentenceOption{
		markov.WithWords(orDefault(req.Words, s.config.Words)),
		markov.WithMinWords(orDefault(req.MinWords, s.config.MinWords)),
		markov.WithAttempts(orDefault(req.Attempts, s.config.Attempts)),
	}
	if len(req.Start) > 0 {
		opts = append(opts, markov.WithSentenceStart(req.Start))
	}
	if req.Seed != nil {
		opts = append(opts, markov.WithSentenceRand(seededRand(*req.Seed)))
	}

	sentence, err := markov.Sentence(ctx, m, opts...)
	if err != nil {
		switch {
		case errors.Is(err, markov.ErrSentenceTooShort),
			errors.Is(err, markov.ErrNoSentenceStart),
			errors.Is(err, markov.ErrEmptyModel):
			return writeError(c, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, markov.ErrUnknownStartKey),
			errors.Is(err, markov.ErrInvalidLength):
			return writeError(c, http.StatusBadRequest, err.Error())
		default:
			return writeError(c, http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, SentenceResponse{Model: req.Model, Sentence: sentence})
}

// getModel returns the cached model, loading and caching it on first use.
func (s *apiServer) getModel(ctx context.Context, name string) (*markov.Model[string], error) {
	s.mu.RLock()
	m, ok := s.models[name]
	s.mu.RUnlock()
	if ok {
		return m, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok = s.models[name]; ok {
		return m, nil
	}

	m, err := s.store.LoadModel(ctx, name)
	if err != nil {
		return nil, err
	}
	m.SetLogger(s.logger)
	s.models[name] = m
	s.logger.Info("Model cached for serving", slog.String("model_name", name))
	return m, nil
}

func writeError(c *echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]any{"error": msg})
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var v T
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return v, fmt.Errorf("invalid json body: %w", err)
	}
	return v, nil
}

func seededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0))
}

func orDefault(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}
