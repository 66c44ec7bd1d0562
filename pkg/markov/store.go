package markov

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
)

// ModelInfo holds the essential metadata for a stored model, including its
// unique ID, name, and the order of the chain.
type ModelInfo struct {
	Id    int
	Name  string
	Order int
}

// SetupSchema initializes the necessary tables in the provided database.
// This function should be called once on a new database before any other
// operations are performed. It is idempotent and safe to call on an
// already-initialized database.
//
// The markov_chains table carries a position column so that successor lists
// round-trip with order and duplicates intact; duplicates are the frequency
// weighting and must not be collapsed.
func SetupSchema(db *sql.DB) error {

	const (
		schemaModels = `
CREATE TABLE IF NOT EXISTS markov_models (
    model_id INTEGER PRIMARY KEY,
    model_name TEXT NOT NULL UNIQUE,
    model_order INTEGER NOT NULL
);
`
		schemaVocab = `
CREATE TABLE IF NOT EXISTS markov_vocabulary (
    model_id INTEGER NOT NULL,
    token_id INTEGER NOT NULL,
    token_text TEXT NOT NULL,
    PRIMARY KEY (model_id, token_id)
);
`
		schemaPrefixes = `
CREATE TABLE IF NOT EXISTS markov_prefixes (
    model_id INTEGER NOT NULL,
    prefix_id INTEGER NOT NULL,
    prefix_text TEXT NOT NULL,
    PRIMARY KEY (model_id, prefix_id)
);
`
		schemaChains = `
CREATE TABLE IF NOT EXISTS markov_chains (
    model_id INTEGER NOT NULL,
    prefix_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    next_token_id INTEGER NOT NULL,
    PRIMARY KEY (model_id, prefix_id, position)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	for _, schema := range []string{schemaModels, schemaVocab, schemaPrefixes, schemaChains} {
		if _, err = tx.Exec(schema); err != nil {
			return fmt.Errorf("could not create schema: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// Store persists word models to a SQLite database. It holds the database
// connection and prepared SQL statements for efficient interaction.
type Store struct {
	db              *sql.DB
	stmtGetModel    *sql.Stmt
	stmtGetModels   *sql.Stmt
	stmtAddModel    *sql.Stmt
	stmtGetVocab    *sql.Stmt
	stmtGetPrefixes *sql.Stmt
	stmtGetChains   *sql.Stmt
	logger          *slog.Logger
}

// NewStore creates and returns a new Store for the given database connection,
// pre-compiling all necessary SQL statements. SetupSchema must have been
// called on the database first.
func NewStore(db *sql.DB) (*Store, error) {
	stmtGetModel, err := db.Prepare(`SELECT model_id, model_order FROM markov_models WHERE model_name = ?;`)
	if err != nil {
		return nil, err
	}

	stmtGetModels, err := db.Prepare(`SELECT model_id, model_name, model_order FROM markov_models;`)
	if err != nil {
		return nil, err
	}

	stmtAddModel, err := db.Prepare(`INSERT INTO markov_models (model_name, model_order) VALUES (?, ?);`)
	if err != nil {
		return nil, err
	}

	stmtGetVocab, err := db.Prepare(`SELECT token_text FROM markov_vocabulary WHERE model_id = ? ORDER BY token_id;`)
	if err != nil {
		return nil, err
	}

	stmtGetPrefixes, err := db.Prepare(`SELECT prefix_text FROM markov_prefixes WHERE model_id = ? ORDER BY prefix_id;`)
	if err != nil {
		return nil, err
	}

	stmtGetChains, err := db.Prepare(`SELECT prefix_id, next_token_id FROM markov_chains WHERE model_id = ? ORDER BY prefix_id, position;`)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:              db,
		stmtGetModel:    stmtGetModel,
		stmtGetModels:   stmtGetModels,
		stmtAddModel:    stmtAddModel,
		stmtGetVocab:    stmtGetVocab,
		stmtGetPrefixes: stmtGetPrefixes,
		stmtGetChains:   stmtGetChains,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases all prepared SQL statements held by the Store. It should be
// called when the Store is no longer needed to free up database resources.
func (s *Store) Close() {
	_ = s.stmtGetModel.Close()
	_ = s.stmtGetModels.Close()
	_ = s.stmtAddModel.Close()
	_ = s.stmtGetVocab.Close()
	_ = s.stmtGetPrefixes.Close()
	_ = s.stmtGetChains.Close()
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// GetModelInfos retrieves metadata for all models currently in the database,
// returning them in a map keyed by model name.
func (s *Store) GetModelInfos(ctx context.Context) (map[string]ModelInfo, error) {
	rows, err := s.stmtGetModels.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	models := make(map[string]ModelInfo)
	for rows.Next() {
		var model ModelInfo
		if err = rows.Scan(&model.Id, &model.Name, &model.Order); err != nil {
			return nil, err
		}
		models[model.Name] = model
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return models, nil
}

// GetModelInfo retrieves the metadata for a single model specified by name.
// A missing model surfaces as sql.ErrNoRows.
func (s *Store) GetModelInfo(ctx context.Context, modelName string) (ModelInfo, error) {
	var modelId, modelOrder int
	err := s.stmtGetModel.QueryRowContext(ctx, modelName).Scan(&modelId, &modelOrder)
	if err != nil {
		return ModelInfo{}, err
	}
	return ModelInfo{
		Id:    modelId,
		Name:  modelName,
		Order: modelOrder,
	}, nil
}

// SaveModel persists a word model under the given name. The operation is
// performed within a single transaction; saving over an existing name fails
// on the unique constraint, so callers replacing a model should call
// DeleteModel first.
func (s *Store) SaveModel(ctx context.Context, name string, m *Model[string]) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction for save: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	res, err := tx.StmtContext(ctx, s.stmtAddModel).ExecContext(ctx, name, m.order)
	if err != nil {
		return fmt.Errorf("failed to insert model '%s': %w", name, err)
	}
	modelID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to resolve id for model '%s': %w", name, err)
	}

	stmtInsertVocab, err := tx.PrepareContext(ctx, `INSERT INTO markov_vocabulary (model_id, token_id, token_text) VALUES (?, ?, ?);`)
	if err != nil {
		return fmt.Errorf("failed to prepare vocabulary insert statement: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmtInsertVocab)

	for id, text := range m.tokens {
		if _, err = stmtInsertVocab.ExecContext(ctx, modelID, id, text); err != nil {
			return fmt.Errorf("failed to insert vocabulary entry %d: %w", id, err)
		}
	}

	stmtInsertPrefix, err := tx.PrepareContext(ctx, `INSERT INTO markov_prefixes (model_id, prefix_id, prefix_text) VALUES (?, ?, ?);`)
	if err != nil {
		return fmt.Errorf("failed to prepare prefix insert statement: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmtInsertPrefix)

	stmtInsertChain, err := tx.PrepareContext(ctx, `INSERT INTO markov_chains (model_id, prefix_id, position, next_token_id) VALUES (?, ?, ?, ?);`)
	if err != nil {
		return fmt.Errorf("failed to prepare chain insert statement: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmtInsertChain)

	chains := 0
	for prefixID, key := range m.keys {
		if _, err = stmtInsertPrefix.ExecContext(ctx, modelID, prefixID, key); err != nil {
			return fmt.Errorf("failed to insert prefix '%s': %w", key, err)
		}
		for position, next := range m.chain[key] {
			if _, err = stmtInsertChain.ExecContext(ctx, modelID, prefixID, position, next); err != nil {
				return fmt.Errorf("failed to insert chain link (%d, %d): %w", prefixID, position, err)
			}
			chains++
		}
	}

	s.logger.InfoContext(ctx, "Model saved",
		slog.String("model_name", name),
		slog.Int64("model_id", modelID),
		slog.Int("vocab_items_saved", len(m.tokens)),
		slog.Int("prefixes_saved", len(m.keys)),
		slog.Int("chains_saved", chains),
	)

	return tx.Commit()
}

// LoadModel reconstructs a stored word model by name. The reconstructed
// model is identical to the one saved: vocabulary IDs, key order, and the
// order and duplicates of every successor list are preserved. A missing
// model surfaces as sql.ErrNoRows.
func (s *Store) LoadModel(ctx context.Context, name string) (*Model[string], error) {
	info, err := s.GetModelInfo(ctx, name)
	if err != nil {
		return nil, err
	}

	m := newModel[string](info.Order)

	vRows, err := s.stmtGetVocab.QueryContext(ctx, info.Id)
	if err != nil {
		return nil, fmt.Errorf("could not query vocabulary for model '%s': %w", name, err)
	}
	for vRows.Next() {
		var text string
		if err = vRows.Scan(&text); err != nil {
			_ = vRows.Close()
			return nil, err
		}
		m.vocab[text] = len(m.tokens)
		m.tokens = append(m.tokens, text)
	}
	if err = closeRows(vRows); err != nil {
		return nil, err
	}

	pRows, err := s.stmtGetPrefixes.QueryContext(ctx, info.Id)
	if err != nil {
		return nil, fmt.Errorf("could not query prefixes for model '%s': %w", name, err)
	}
	for pRows.Next() {
		var text string
		if err = pRows.Scan(&text); err != nil {
			_ = pRows.Close()
			return nil, err
		}
		m.keys = append(m.keys, text)
	}
	if err = closeRows(pRows); err != nil {
		return nil, err
	}

	cRows, err := s.stmtGetChains.QueryContext(ctx, info.Id)
	if err != nil {
		return nil, fmt.Errorf("could not query chains for model '%s': %w", name, err)
	}
	for cRows.Next() {
		var prefixID, next int
		if err = cRows.Scan(&prefixID, &next); err != nil {
			_ = cRows.Close()
			return nil, err
		}
		if prefixID < 0 || prefixID >= len(m.keys) {
			_ = cRows.Close()
			return nil, fmt.Errorf("consistency error: chain row references unknown prefix id %d", prefixID)
		}
		key := m.keys[prefixID]
		m.chain[key] = append(m.chain[key], next)
	}
	if err = closeRows(cRows); err != nil {
		return nil, err
	}

	for _, key := range m.keys {
		if len(m.chain[key]) == 0 {
			return nil, fmt.Errorf("consistency error: prefix '%s' has no chain rows", key)
		}
	}

	s.logger.InfoContext(ctx, "Model loaded",
		slog.String("model_name", name),
		slog.Int("model_id", info.Id),
		slog.Int("vocab_items_loaded", len(m.tokens)),
		slog.Int("prefixes_loaded", len(m.keys)),
	)

	return m, nil
}

// DeleteModel removes a model and all of its associated data from the
// database. The operation is performed within a transaction.
func (s *Store) DeleteModel(ctx context.Context, model ModelInfo) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction for delete: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	for _, table := range []string{"markov_chains", "markov_prefixes", "markov_vocabulary", "markov_models"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE model_id = ?", model.Id); err != nil {
			return fmt.Errorf("failed to remove model %d from %s: %w", model.Id, table, err)
		}
	}

	s.logger.InfoContext(ctx, "Model removed",
		slog.String("model_name", model.Name),
		slog.Int("model_id", model.Id),
	)

	return tx.Commit()
}

func closeRows(rows *sql.Rows) error {
	err := rows.Err()
	_ = rows.Close()
	return err
}
