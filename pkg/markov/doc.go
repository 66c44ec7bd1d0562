/*
Package markov implements a generic, in-memory n-gram Markov model for
generating statistically plausible token sequences from a corpus.

A model maps every fixed-length window of tokens seen in the corpus to the
list of tokens observed immediately after it. Successor lists keep duplicates
in corpus order, so the multiplicity of an entry is its frequency weight and
uniform selection over a list reproduces the observed distribution. The model
is generic over any comparable token type; a word-specialized layer adds
whitespace tokenization and sentence-boundary heuristics for producing
readable text, plus JSON export and a SQLite-backed store for persisting
trained word models.

Models are immutable once built, so any number of goroutines may generate
from the same model concurrently.
*/
package markov
