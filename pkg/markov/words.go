package markov

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultOrder is the n-gram size used when callers pass no explicit order.
	DefaultOrder = 2
	// DefaultWords is the target word count for a generated sentence.
	DefaultWords = 30
	// DefaultMinWords is the smallest acceptable word count for a sentence
	// after boundary trimming.
	DefaultMinWords = 5
	// DefaultAttempts caps how many times sentence generation is retried
	// before giving up with ErrSentenceTooShort.
	DefaultAttempts = 100
)

// sentenceEnd holds the characters that may close a sentence. A chain is
// trimmed back to the last token whose final character is one of these.
const sentenceEnd = ".!?\"'"

// BuildText constructs a word model from a text corpus in a single streaming
// pass, tokenizing r with the given tokenizer and windowing the words exactly
// like Build. The corpus is never materialized, so r may be arbitrarily large.
func BuildText(tok Tokenizer, r io.Reader, order int) (*Model[string], error) {
	if order < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, order)
	}

	m := newModel[string](order)
	stream := tok.NewStream(r)
	window := make([]int, 0, order+1)
	var keyBuf []byte
	count := 0

	for {
		word, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tokenizer error: %w", err)
		}

		count++
		window = append(window, m.intern(word))
		if len(window) == order+1 {
			keyBuf = appendPrefixKey(keyBuf[:0], window[:order])
			m.observe(string(keyBuf), window[order])
			copy(window, window[1:])
			window = window[:order]
		}
	}

	if count < order+1 {
		return nil, fmt.Errorf("%w: need at least %d tokens, got %d", ErrInsufficientCorpus, order+1, count)
	}

	return m, nil
}

// sentenceOptions Is used by Sentence to configure default options.
type sentenceOptions struct {
	words    int
	minWords int
	attempts int
	startKey []string
	rng      *rand.Rand
}

// SentenceOption is a function that configures sentence generation. It's
// used as a variadic argument in Sentence.
type SentenceOption func(*sentenceOptions)

// WithWords sets the target word count drawn from the model before boundary
// trimming. The returned sentence will often be shorter.
func WithWords(n int) SentenceOption {
	return func(o *sentenceOptions) { o.words = n }
}

// WithMinWords sets the smallest acceptable word count after trimming.
// Shorter results are discarded and regenerated.
func WithMinWords(n int) SentenceOption {
	return func(o *sentenceOptions) { o.minWords = n }
}

// WithAttempts caps how many full generation attempts are made before
// Sentence fails with ErrSentenceTooShort.
func WithAttempts(n int) SentenceOption {
	return func(o *sentenceOptions) { o.attempts = n }
}

// WithSentenceStart sets an explicit start key instead of searching for one
// that ends a sentence. The key must be present in the model.
func WithSentenceStart(key []string) SentenceOption {
	return func(o *sentenceOptions) { o.startKey = key }
}

// WithSentenceRand sets the random source used for start-key and successor
// selection, making sentence generation deterministic under a seeded source.
func WithSentenceRand(rng *rand.Rand) SentenceOption {
	return func(o *sentenceOptions) { o.rng = rng }
}

// Sentence generates a sentence-like string of words from a word model.
//
// Unless an explicit start key is supplied, the walk starts from a key whose
// last token ends in a full stop, which biases the chain toward beginning at
// a sentence boundary; ErrNoSentenceStart is returned when the model has no
// such key. The walk draws up to the target word count, then the chain is
// trimmed back to the most recent token ending in sentence punctuation. A
// trimmed result below the minimum word count is discarded and regenerated
// from a fresh start key; after the attempt cap is exhausted, Sentence fails
// with ErrSentenceTooShort and the caller should retry or raise the target
// word count. Words are joined with single spaces.
func Sentence(ctx context.Context, m *Model[string], opts ...SentenceOption) (string, error) {
	options := &sentenceOptions{
		words:    DefaultWords,
		minWords: DefaultMinWords,
		attempts: DefaultAttempts,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.words < 1 {
		return "", fmt.Errorf("%w: got words %d", ErrInvalidLength, options.words)
	}
	if options.minWords < 1 {
		return "", fmt.Errorf("%w: got min words %d", ErrInvalidLength, options.minWords)
	}
	if options.attempts < 1 {
		return "", fmt.Errorf("%w: got attempts %d", ErrInvalidLength, options.attempts)
	}

	var starts []string
	if options.startKey == nil {
		starts = sentenceStartKeys(m)
		if len(starts) == 0 {
			if len(m.chain) == 0 {
				return "", ErrEmptyModel
			}
			return "", ErrNoSentenceStart
		}
	}

	for attempt := 1; attempt <= options.attempts; attempt++ {
		var key string
		if options.startKey != nil {
			encoded, ok := m.lookupKey(options.startKey)
			if !ok {
				return "", fmt.Errorf("%w: %v", ErrUnknownStartKey, options.startKey)
			}
			key = encoded
		} else {
			key = starts[intN(options.rng, len(starts))]
		}

		words, err := takeWords(ctx, m, key, options)
		if err != nil {
			return "", err
		}

		words = trimToSentenceEnd(words)
		if len(words) >= options.minWords {
			return strings.Join(words, " "), nil
		}

		m.logger.Debug("Sentence attempt below minimum length",
			slog.Int("attempt", attempt),
			slog.Int("trimmed_words", len(words)),
			slog.Int("min_words", options.minWords),
		)
	}

	return "", fmt.Errorf("%w: no sentence with at least %d words after %d attempts (requested %d words)",
		ErrSentenceTooShort, options.minWords, options.attempts, options.words)
}

// SentenceStarts reports how many keys in the model can start a sentence,
// i.e. whose last token ends in a full stop.
func SentenceStarts(m *Model[string]) int {
	return len(sentenceStartKeys(m))
}

// takeWords draws the target word count with a bounded synchronous walk.
// Keeping the walk on the calling goroutine means the random source is only
// ever touched from one goroutine at a time across retries.
func takeWords(ctx context.Context, m *Model[string], key string, options *sentenceOptions) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.walk(key, &generateOptions{length: options.words, rng: options.rng}), nil
}

// sentenceStartKeys collects every key whose last token ends in a full stop.
// Keys ending in other sentence punctuation tend to produce worse openings,
// so only the full stop qualifies here.
func sentenceStartKeys(m *Model[string]) []string {
	var starts []string
	for _, key := range m.keys {
		ids := m.decodeKey(key)
		if strings.HasSuffix(m.tokens[ids[len(ids)-1]], ".") {
			starts = append(starts, key)
		}
	}
	return starts
}

// trimToSentenceEnd truncates the chain at the most recent token ending in
// sentence punctuation. A chain with no such token anywhere trims to empty.
func trimToSentenceEnd(words []string) []string {
	for i := len(words) - 1; i >= 0; i-- {
		if endsSentence(words[i]) {
			return words[:i+1]
		}
	}
	return words[:0]
}

func endsSentence(word string) bool {
	r, _ := utf8.DecodeLastRuneInString(word)
	return r != utf8.RuneError && strings.ContainsRune(sentenceEnd, r)
}

func intN(rng *rand.Rand, n int) int {
	if rng != nil {
		return rng.IntN(n)
	}
	return rand.IntN(n)
}
