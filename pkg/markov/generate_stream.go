package markov

import (
	"context"
	"fmt"
	"log/slog"
)

// Stream starts a random walk from a randomly chosen key and returns a
// read-only channel of tokens. With no length option the walk is unbounded
// and the consumer is expected to cancel the context or stop reading; the
// channel is closed when the length limit is reached, the walk dead-ends,
// or the context is cancelled. The walk is a single forward pass: call
// Stream again for a fresh one. A source injected with WithRand belongs to
// the producer goroutine until the channel closes and must not be used
// elsewhere before then.
func (m *Model[T]) Stream(ctx context.Context, opts ...GenerateOption) (<-chan T, error) {
	options := &generateOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.length < 0 {
		return nil, fmt.Errorf("%w: got length %d", ErrInvalidLength, options.length)
	}

	key, err := m.randomKey(options)
	if err != nil {
		return nil, err
	}
	return m.stream(ctx, key, options), nil
}

// StreamFrom is like Stream but starts the walk from the given key, which
// must be present in the model.
func (m *Model[T]) StreamFrom(ctx context.Context, start []T, opts ...GenerateOption) (<-chan T, error) {
	options := &generateOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.length < 0 {
		return nil, fmt.Errorf("%w: got length %d", ErrInvalidLength, options.length)
	}

	key, ok := m.lookupKey(start)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownStartKey, start)
	}
	return m.stream(ctx, key, options), nil
}

// stream contains the core loop for streaming generation.
func (m *Model[T]) stream(ctx context.Context, key string, options *generateOptions) <-chan T {
	out := make(chan T)

	go func() {
		defer close(out)

		prefix := m.decodeKey(key)
		var keyBuf []byte
		emitted := 0

		for options.length <= 0 || emitted < options.length {
			if ctx.Err() != nil {
				return
			}
			succs, ok := m.chain[key]
			if !ok { // Dead end in chain
				m.logger.Debug("Generation stream terminated at dead-end key",
					slog.String("last_key", key),
					slog.Int("generated_length", emitted),
				)
				return
			}

			next := succs[options.intN(len(succs))]
			select {
			case <-ctx.Done():
				return
			case out <- m.tokens[next]:
			}
			emitted++

			prefix = append(prefix[1:], next)
			keyBuf = appendPrefixKey(keyBuf[:0], prefix)
			key = string(keyBuf)
		}
	}()

	return out
}
