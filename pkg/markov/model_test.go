package markov

import (
	"errors"
	"reflect"
	"testing"
)

func TestBuild(t *testing.T) {
	corpus := []int{1, 2, 3, 1, 2, 1, 4, 5, 6, 1, 2, 1, 3}
	m, err := Build(corpus, 2)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	// Successor lists keep corpus order and duplicates.
	succs, ok := m.Successors([]int{1, 2})
	if !ok {
		t.Fatal("expected key (1,2) to be present")
	}
	if want := []int{3, 1, 1}; !reflect.DeepEqual(succs, want) {
		t.Errorf("Successors(1,2) = %v, want %v", succs, want)
	}

	succs, ok = m.Successors([]int{2, 1})
	if !ok {
		t.Fatal("expected key (2,1) to be present")
	}
	if want := []int{4, 3}; !reflect.DeepEqual(succs, want) {
		t.Errorf("Successors(2,1) = %v, want %v", succs, want)
	}

	// Every overlapping window contributes one transition.
	if stats := m.Stats(); stats.Transitions != len(corpus)-2 {
		t.Errorf("expected %d transitions, got %d", len(corpus)-2, stats.Transitions)
	}

	if _, ok := m.Successors([]int{9, 9}); ok {
		t.Error("expected unseen key to be absent")
	}
}

func TestBuildTransitionCounts(t *testing.T) {
	testCases := []struct {
		name   string
		corpus []string
		order  int
	}{
		{name: "order 1", corpus: []string{"a", "b", "a", "c", "a", "b"}, order: 1},
		{name: "order 2", corpus: []string{"a", "b", "c", "d", "e", "f", "g"}, order: 2},
		{name: "order 3 with repeats", corpus: []string{"x", "y", "x", "y", "x", "y", "x"}, order: 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := Build(tc.corpus, tc.order)
			if err != nil {
				t.Fatalf("Build() failed: %v", err)
			}
			stats := m.Stats()
			if want := len(tc.corpus) - tc.order; stats.Transitions != want {
				t.Errorf("expected %d transitions, got %d", want, stats.Transitions)
			}
			for _, key := range m.Keys() {
				succs, ok := m.Successors(key)
				if !ok || len(succs) == 0 {
					t.Errorf("key %v has an empty successor list", key)
				}
			}
		})
	}
}

func TestBuildErrors(t *testing.T) {
	if _, err := Build([]int{1, 2}, 2); !errors.Is(err, ErrInsufficientCorpus) {
		t.Errorf("expected ErrInsufficientCorpus for a 2-token corpus at order 2, got %v", err)
	}
	if _, err := Build([]int{1, 2, 3}, 0); !errors.Is(err, ErrInvalidOrder) {
		t.Errorf("expected ErrInvalidOrder for order 0, got %v", err)
	}
}

func TestBuildBoundary(t *testing.T) {
	// A corpus of exactly order+1 tokens forms a single window.
	m, err := Build([]string{"a", "b", "c"}, 2)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if m.Len() != 1 {
		t.Errorf("expected exactly 1 key, got %d", m.Len())
	}
	succs, ok := m.Successors([]string{"a", "b"})
	if !ok || !reflect.DeepEqual(succs, []string{"c"}) {
		t.Errorf("Successors(a,b) = %v ok=%v, want [c]", succs, ok)
	}
}

func TestBuildIdempotent(t *testing.T) {
	corpus := []int{1, 2, 3, 1, 2, 1, 4, 5, 6, 1, 2, 1, 3}
	m1, err := Build(corpus, 2)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	m2, err := Build(corpus, 2)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	if !reflect.DeepEqual(m1.chain, m2.chain) {
		t.Error("expected identical chains from repeated builds")
	}
	if !reflect.DeepEqual(m1.keys, m2.keys) {
		t.Error("expected identical key order from repeated builds")
	}
	if !reflect.DeepEqual(m1.tokens, m2.tokens) {
		t.Error("expected identical vocabularies from repeated builds")
	}
}

func TestKeys(t *testing.T) {
	m, err := Build([]string{"a", "b", "c", "d"}, 2)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	want := [][]string{{"a", "b"}, {"b", "c"}}
	if got := m.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func TestStats(t *testing.T) {
	m := buildWordModel(t, "one fish. two fish. red fish. blue fish.", 2)
	stats := m.Stats()

	if stats.Vocabulary != 5 { // one, fish., two, red, blue
		t.Errorf("expected vocabulary of 5, got %d", stats.Vocabulary)
	}
	if stats.Transitions != 6 { // 8 tokens, order 2
		t.Errorf("expected 6 transitions, got %d", stats.Transitions)
	}
	if stats.Keys != m.Len() {
		t.Errorf("stats keys %d disagrees with Len() %d", stats.Keys, m.Len())
	}
}
