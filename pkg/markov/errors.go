package markov

import "errors"

var (
	// ErrInvalidOrder is returned when a model is requested with an n-gram
	// order below 1.
	ErrInvalidOrder = errors.New("ngram order must be at least 1")

	// ErrInsufficientCorpus is returned when a corpus contains fewer than
	// order+1 tokens, which is too short to form a single window.
	ErrInsufficientCorpus = errors.New("corpus is shorter than order+1 tokens")

	// ErrInvalidLength is returned when a length, word count, or attempt
	// option is set below its minimum. Options come straight from flags and
	// request bodies, so bad values surface as errors rather than panics.
	ErrInvalidLength = errors.New("generation length must be positive")

	// ErrEmptyModel is returned when generation is requested against a model
	// that contains no keys.
	ErrEmptyModel = errors.New("model contains no keys")

	// ErrUnknownStartKey is returned when a caller-supplied start key is not
	// present in the model. It is never silently substituted.
	ErrUnknownStartKey = errors.New("start key not present in model")

	// ErrNoSentenceStart is returned when a model contains no key whose last
	// token ends a sentence, so no start key can be selected.
	ErrNoSentenceStart = errors.New("model contains no sentence-ending keys")

	// ErrSentenceTooShort is returned when the sentence generator cannot
	// assemble a sentence of the minimum word count within its attempt cap.
	ErrSentenceTooShort = errors.New("could not generate a sentence of the minimum length")
)
