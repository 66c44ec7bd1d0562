package markov

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// Model is an n-gram Markov model over tokens of type T. Tokens are interned
// to integer IDs; a key is the space-joined decimal IDs of an n-gram, and the
// chain maps each key to the IDs of every token observed immediately after
// that n-gram in the corpus. Duplicates in a successor list are deliberate:
// they are the frequency weighting, and uniform selection over the list
// reproduces the observed distribution.
//
// A Model is read-only after construction and safe for concurrent use.
type Model[T comparable] struct {
	order  int
	vocab  map[T]int
	tokens []T              // token_id -> token
	chain  map[string][]int // prefix key -> successor token ids, duplicates intact
	keys   []string         // prefix keys in first-seen corpus order
	logger *slog.Logger
}

func newModel[T comparable](order int) *Model[T] {
	return &Model[T]{
		order:  order,
		vocab:  make(map[T]int),
		chain:  make(map[string][]int),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Build constructs a model from a finite corpus using n-grams of the given
// order. It slides a window of order+1 tokens across the corpus one token at
// a time; the first order tokens of each window form the key and the last is
// appended to that key's successor list. Building is deterministic: the same
// corpus and order always produce an identical model.
//
// The corpus must contain at least order+1 tokens or ErrInsufficientCorpus
// is returned.
func Build[T comparable](corpus []T, order int) (*Model[T], error) {
	if order < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, order)
	}
	if len(corpus) < order+1 {
		return nil, fmt.Errorf("%w: need at least %d tokens, got %d", ErrInsufficientCorpus, order+1, len(corpus))
	}

	m := newModel[T](order)
	ids := make([]int, len(corpus))
	for i, tok := range corpus {
		ids[i] = m.intern(tok)
	}

	var keyBuf []byte
	for i := 0; i+order < len(ids); i++ {
		keyBuf = appendPrefixKey(keyBuf[:0], ids[i:i+order])
		m.observe(string(keyBuf), ids[i+order])
	}

	return m, nil
}

// Order returns the n-gram size the model was built with.
func (m *Model[T]) Order() int {
	return m.order
}

// Len returns the number of distinct keys in the model.
func (m *Model[T]) Len() int {
	return len(m.chain)
}

// Keys returns every key in the model as a token tuple, in first-seen corpus
// order. The returned slices are copies and may be used as start keys.
func (m *Model[T]) Keys() [][]T {
	keys := make([][]T, len(m.keys))
	for i, key := range m.keys {
		keys[i] = m.decodeTokens(key)
	}
	return keys
}

// Successors returns the ordered, duplicate-preserving list of tokens
// observed to follow the given key, and whether the key is present at all.
func (m *Model[T]) Successors(key []T) ([]T, bool) {
	encoded, ok := m.lookupKey(key)
	if !ok {
		return nil, false
	}
	ids := m.chain[encoded]
	succs := make([]T, len(ids))
	for i, id := range ids {
		succs[i] = m.tokens[id]
	}
	return succs, true
}

// SetLogger sets the logger for the model. By default, all logs are discarded.
func (m *Model[T]) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// intern returns the ID for a token, assigning the next free ID on first use.
func (m *Model[T]) intern(tok T) int {
	if id, ok := m.vocab[tok]; ok {
		return id
	}
	id := len(m.tokens)
	m.vocab[tok] = id
	m.tokens = append(m.tokens, tok)
	return id
}

// observe appends a successor to a key's list, registering the key on first use.
func (m *Model[T]) observe(key string, next int) {
	if _, ok := m.chain[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.chain[key] = append(m.chain[key], next)
}

// lookupKey encodes a token tuple to its prefix key, reporting whether the
// key exists in the chain. Tuples of the wrong length or containing tokens
// outside the vocabulary never match.
func (m *Model[T]) lookupKey(key []T) (string, bool) {
	if len(key) != m.order {
		return "", false
	}
	ids := make([]int, len(key))
	for i, tok := range key {
		id, ok := m.vocab[tok]
		if !ok {
			return "", false
		}
		ids[i] = id
	}
	encoded := string(appendPrefixKey(nil, ids))
	_, ok := m.chain[encoded]
	return encoded, ok
}

// decodeKey parses a prefix key back into token IDs.
func (m *Model[T]) decodeKey(key string) []int {
	parts := strings.Split(key, " ")
	ids := make([]int, len(parts))
	for i, part := range parts {
		id, _ := strconv.Atoi(part)
		ids[i] = id
	}
	return ids
}

// decodeTokens parses a prefix key into the tokens it names.
func (m *Model[T]) decodeTokens(key string) []T {
	ids := m.decodeKey(key)
	tokens := make([]T, len(ids))
	for i, id := range ids {
		tokens[i] = m.tokens[id]
	}
	return tokens
}

// appendPrefixKey appends the space-joined decimal form of ids to buf.
func appendPrefixKey(buf []byte, ids []int) []byte {
	for j, id := range ids {
		if j > 0 {
			buf = append(buf, ' ')
		}
		buf = strconv.AppendInt(buf, int64(id), 10)
	}
	return buf
}
