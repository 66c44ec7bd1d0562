package markov

import (
	"database/sql"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

// testRand returns a seeded source so generation is reproducible in tests.
func testRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0))
}

// buildWordModel is a convenience helper that builds a word model from a
// corpus string and fails the test on error.
func buildWordModel(t *testing.T, corpus string, order int) *Model[string] {
	t.Helper()
	m, err := BuildText(NewWhitespaceTokenizer(), strings.NewReader(corpus), order)
	if err != nil {
		t.Fatalf("BuildText() failed: %v", err)
	}
	return m
}

// setupTestStore creates a new SQLite database file and a Store for testing.
// It uses t.Cleanup to ensure resources are released.
func setupTestStore(t *testing.T) (*sql.DB, *Store) {
	t.Helper()
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", dbFile)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}

	s, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(s.Close)

	return db, s
}

// benchmarkCorpus builds a repetitive but non-trivial word corpus.
func benchmarkCorpus() string {
	var sb strings.Builder
	sentences := []string{
		"the quick brown fox jumps over the lazy dog.",
		"a watched pot never boils on an open fire.",
		"all that glitters is not gold in the morning light.",
		"the early bird catches the worm every single day.",
	}
	for i := 0; i < 250; i++ {
		sb.WriteString(sentences[i%len(sentences)])
		sb.WriteString(" ")
	}
	return sb.String()
}
