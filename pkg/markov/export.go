package markov

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// ExportedModel is the serializable representation of a model, used for
// JSON-based import and export. Chains map prefix keys (space-joined token
// IDs) to successor ID lists with order and duplicates intact, since
// duplicate entries encode the frequency weighting; Keys records the
// first-seen order of the prefixes so a round-trip reproduces key sampling
// order exactly.
type ExportedModel[T comparable] struct {
	Order  int              `json:"order"`
	Tokens []T              `json:"tokens"` // token_id -> token
	Keys   []string         `json:"keys"`
	Chains map[string][]int `json:"chains"`
}

// Export serializes the model as JSON to the provided io.Writer. This is
// useful for backups or for transferring models between processes.
func (m *Model[T]) Export(w io.Writer) error {
	exported := ExportedModel[T]{
		Order:  m.order,
		Tokens: m.tokens,
		Keys:   m.keys,
		Chains: m.chain,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(exported); err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}

	m.logger.Info("Model exported",
		slog.Int("order", m.order),
		slog.Int("vocab_items_exported", len(m.tokens)),
		slog.Int("keys_exported", len(m.keys)),
	)
	return nil
}

// Import reads a JSON representation of a model from an io.Reader, validates
// its internal consistency, and returns the reconstructed model. The token
// type parameter must match the type the model was exported with.
func Import[T comparable](r io.Reader) (*Model[T], error) {
	var imported ExportedModel[T]
	if err := json.NewDecoder(r).Decode(&imported); err != nil {
		return nil, fmt.Errorf("failed to decode json model: %w", err)
	}

	if imported.Order < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, imported.Order)
	}
	if len(imported.Keys) != len(imported.Chains) {
		return nil, fmt.Errorf("consistency error: %d keys listed but %d chain entries present",
			len(imported.Keys), len(imported.Chains))
	}

	m := newModel[T](imported.Order)
	m.tokens = imported.Tokens
	for id, tok := range imported.Tokens {
		if _, ok := m.vocab[tok]; ok {
			return nil, fmt.Errorf("consistency error: duplicate vocabulary entry for token id %d", id)
		}
		m.vocab[tok] = id
	}

	for _, key := range imported.Keys {
		succs, ok := imported.Chains[key]
		if !ok {
			return nil, fmt.Errorf("consistency error: key '%s' listed but missing from chains", key)
		}
		if len(succs) == 0 {
			return nil, fmt.Errorf("consistency error: key '%s' has an empty successor list", key)
		}
		if err := checkKeyIDs(key, imported.Order, len(imported.Tokens)); err != nil {
			return nil, err
		}
		for _, id := range succs {
			if id < 0 || id >= len(imported.Tokens) {
				return nil, fmt.Errorf("consistency error: successor id %d of key '%s' not in vocabulary", id, key)
			}
		}
		m.keys = append(m.keys, key)
		m.chain[key] = succs
	}

	m.logger.Info("Model imported",
		slog.Int("order", m.order),
		slog.Int("vocab_items_merged", len(m.tokens)),
		slog.Int("keys_merged", len(m.keys)),
	)
	return m, nil
}

// checkKeyIDs validates that a prefix key holds exactly order decimal token
// IDs, each inside the vocabulary.
func checkKeyIDs(key string, order, vocabLen int) error {
	parts := strings.Split(key, " ")
	if len(parts) != order {
		return fmt.Errorf("consistency error: key '%s' does not name %d tokens", key, order)
	}
	for _, part := range parts {
		id, err := strconv.Atoi(part)
		if err != nil || id < 0 || id >= vocabLen {
			return fmt.Errorf("consistency error: token id '%s' in key '%s' not in vocabulary", part, key)
		}
	}
	return nil
}
