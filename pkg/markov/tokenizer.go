package markov

import (
	"bufio"
	"io"
	"strings"
)

// Tokenizer is an interface that defines the contract for splitting input
// text into word tokens. This keeps the model builder independent of the
// specific tokenization strategy.
type Tokenizer interface {
	// NewStream returns a stateful StreamTokenizer for processing an io.Reader.
	NewStream(r io.Reader) StreamTokenizer
}

// StreamTokenizer is an interface for a stateful tokenizer that processes a
// stream of data, returning one token at a time.
type StreamTokenizer interface {
	// Next returns the next token from the stream. It returns io.EOF as the
	// error when the stream is fully consumed.
	Next() (string, error)
}

// WhitespaceTokenizer splits input lines on runs of whitespace, discarding
// empty fragments and preserving token content verbatim. Punctuation stays
// attached to its word, which is what lets the sentence-boundary heuristics
// inspect the trailing characters of whole tokens.
type WhitespaceTokenizer struct{}

// NewWhitespaceTokenizer returns the default word tokenizer.
func NewWhitespaceTokenizer() *WhitespaceTokenizer {
	return &WhitespaceTokenizer{}
}

// NewStream Returns the stream processor.
func (t *WhitespaceTokenizer) NewStream(r io.Reader) StreamTokenizer {
	return &whitespaceStream{scanner: bufio.NewScanner(r)}
}

type whitespaceStream struct {
	scanner *bufio.Scanner
	buffer  []string
}

// Next returns the next token from the stream. When the stream is exhausted,
// it returns an empty string and io.EOF. Any other error indicates a problem
// reading from the underlying stream.
func (s *whitespaceStream) Next() (string, error) {
	for len(s.buffer) == 0 { // Loop until we have tokens
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		s.buffer = strings.Fields(s.scanner.Text())
	}

	word := s.buffer[0]
	s.buffer = s.buffer[1:] // Consume the token

	return word, nil
}
