package markov

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func collect[T comparable](t *testing.T, ch <-chan T, limit int) []T {
	t.Helper()
	var out []T
	deadline := time.After(5 * time.Second)
	for {
		select {
		case tok, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, tok)
			if limit > 0 && len(out) > limit {
				t.Fatalf("stream produced more than %d tokens without closing", limit)
			}
		case <-deadline:
			t.Fatal("timed out waiting for stream")
		}
	}
}

func TestStreamBounded(t *testing.T) {
	m, err := Build(cycleCorpus(5), 2)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	ch, err := m.Stream(context.Background(), WithLength(10), WithRand(testRand(1)))
	if err != nil {
		t.Fatalf("Stream() failed: %v", err)
	}
	tokens := collect(t, ch, 10)
	if len(tokens) != 10 {
		t.Errorf("expected 10 tokens from the bounded stream, got %d", len(tokens))
	}
}

func TestStreamFrom(t *testing.T) {
	m, err := Build(cycleCorpus(5), 2)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	ch, err := m.StreamFrom(context.Background(), []int{1, 2}, WithLength(4))
	if err != nil {
		t.Fatalf("StreamFrom() failed: %v", err)
	}
	tokens := collect(t, ch, 4)
	if want := []int{3, 1, 2, 3}; !reflect.DeepEqual(tokens, want) {
		t.Errorf("StreamFrom(1,2) = %v, want %v", tokens, want)
	}

	if _, err := m.StreamFrom(context.Background(), []int{9, 9}); !errors.Is(err, ErrUnknownStartKey) {
		t.Errorf("expected ErrUnknownStartKey, got %v", err)
	}
}

func TestStreamRejectsNegativeLength(t *testing.T) {
	m, err := Build(cycleCorpus(5), 2)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	if _, err := m.Stream(context.Background(), WithLength(-1)); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("Stream: expected ErrInvalidLength, got %v", err)
	}
	if _, err := m.StreamFrom(context.Background(), []int{1, 2}, WithLength(-1)); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("StreamFrom: expected ErrInvalidLength, got %v", err)
	}
}

func TestStreamCancel(t *testing.T) {
	m, err := Build(cycleCorpus(5), 2)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := m.Stream(ctx, WithRand(testRand(1))) // unbounded
	if err != nil {
		t.Fatalf("Stream() failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, ok := <-ch; !ok {
			t.Fatal("stream closed before cancellation")
		}
	}
	cancel()

	// The stream must close shortly after cancellation; it may deliver at
	// most one buffered token first.
	collect(t, ch, 2)
}

func TestStreamDeadEnd(t *testing.T) {
	m, err := Build([]int{1, 2, 3, 4, 5}, 2)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	ch, err := m.StreamFrom(context.Background(), []int{1, 2}) // unbounded
	if err != nil {
		t.Fatalf("StreamFrom() failed: %v", err)
	}
	tokens := collect(t, ch, 10)
	if want := []int{3, 4, 5}; !reflect.DeepEqual(tokens, want) {
		t.Errorf("expected the stream to close at the dead-end after %v, got %v", want, tokens)
	}
}
