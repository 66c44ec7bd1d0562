package markov

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
)

// DefaultLength is the number of tokens Generate emits when no length
// option is given.
const DefaultLength = 30

// generateOptions Is used by the generate functions to configure default options.
type generateOptions struct {
	length int
	rng    *rand.Rand
}

// GenerateOption is a function that configures generation parameters. It's
// used as a variadic argument in Generate, GenerateFrom, Stream and StreamFrom.
type GenerateOption func(*generateOptions)

// WithLength sets the number of tokens to generate. Generate defaults to
// DefaultLength; for Stream a length of 0 means unbounded.
func WithLength(n int) GenerateOption {
	return func(o *generateOptions) { o.length = n }
}

// WithRand sets the random source used for key and successor selection,
// making generation deterministic under a seeded source. When unset, the
// shared top-level source of math/rand/v2 is used.
func WithRand(rng *rand.Rand) GenerateOption {
	return func(o *generateOptions) { o.rng = rng }
}

func (o *generateOptions) intN(n int) int {
	return intN(o.rng, n)
}

// Generate performs a bounded random walk over the model and returns the
// resulting chain, starting from a key chosen uniformly at random. Each step
// picks one entry uniformly from the current key's successor list (so
// higher-frequency successors are proportionally more likely), emits it, and
// shifts the key by one token.
//
// The chain has exactly the requested length unless the walk reaches the
// corpus-final key and that n-gram occurs nowhere else; such a dead-end
// terminates the walk early and the shorter chain is returned without error.
func (m *Model[T]) Generate(opts ...GenerateOption) ([]T, error) {
	options := &generateOptions{length: DefaultLength}
	for _, opt := range opts {
		opt(options)
	}
	if options.length < 1 {
		return nil, fmt.Errorf("%w: got length %d", ErrInvalidLength, options.length)
	}

	key, err := m.randomKey(options)
	if err != nil {
		return nil, err
	}
	return m.walk(key, options), nil
}

// GenerateFrom is like Generate but starts the walk from the given key,
// which must be present in the model. ErrUnknownStartKey is returned
// otherwise; it is never silently substituted with a random key.
func (m *Model[T]) GenerateFrom(start []T, opts ...GenerateOption) ([]T, error) {
	options := &generateOptions{length: DefaultLength}
	for _, opt := range opts {
		opt(options)
	}
	if options.length < 1 {
		return nil, fmt.Errorf("%w: got length %d", ErrInvalidLength, options.length)
	}

	key, ok := m.lookupKey(start)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownStartKey, start)
	}
	return m.walk(key, options), nil
}

// walk contains the main loop for generating a markov chain.
func (m *Model[T]) walk(key string, options *generateOptions) []T {
	chain := make([]T, 0, options.length)
	prefix := m.decodeKey(key)
	var keyBuf []byte

	for len(chain) < options.length {
		succs, ok := m.chain[key]
		if !ok { // Dead end in chain
			m.logger.Debug("Generation terminated at dead-end key",
				slog.String("last_key", key),
				slog.Int("generated_length", len(chain)),
			)
			break
		}

		next := succs[options.intN(len(succs))]
		chain = append(chain, m.tokens[next])

		// Shift the key window and append the emitted token.
		prefix = append(prefix[1:], next)
		keyBuf = appendPrefixKey(keyBuf[:0], prefix)
		key = string(keyBuf)
	}

	return chain
}

// randomKey picks a start key uniformly at random from the model's keys.
func (m *Model[T]) randomKey(options *generateOptions) (string, error) {
	if len(m.keys) == 0 {
		return "", ErrEmptyModel
	}
	return m.keys[options.intN(len(m.keys))], nil
}
