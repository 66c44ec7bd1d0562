package markov

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"
)

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()

	original := buildWordModel(t, "one fish. two fish. red fish. blue fish.", 2)
	if err := s.SaveModel(ctx, "fish", original); err != nil {
		t.Fatalf("SaveModel() failed: %v", err)
	}

	loaded, err := s.LoadModel(ctx, "fish")
	if err != nil {
		t.Fatalf("LoadModel() failed: %v", err)
	}

	if loaded.order != original.order {
		t.Errorf("order = %d, want %d", loaded.order, original.order)
	}
	if !reflect.DeepEqual(loaded.tokens, original.tokens) {
		t.Error("vocabulary did not survive the round trip")
	}
	if !reflect.DeepEqual(loaded.keys, original.keys) {
		t.Error("key order did not survive the round trip")
	}
	if !reflect.DeepEqual(loaded.chain, original.chain) {
		t.Error("chains did not survive the round trip")
	}
}

func TestStorePreservesDuplicateSuccessors(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()

	// "fish." follows (one,) three times; the three entries weight the draw
	// and must all come back.
	original := buildWordModel(t, "one fish. one fish. one fish. one two", 1)
	if err := s.SaveModel(ctx, "weighted", original); err != nil {
		t.Fatalf("SaveModel() failed: %v", err)
	}

	loaded, err := s.LoadModel(ctx, "weighted")
	if err != nil {
		t.Fatalf("LoadModel() failed: %v", err)
	}

	succs, ok := loaded.Successors([]string{"one"})
	if !ok {
		t.Fatal("expected the loaded model to know the key (one)")
	}
	want := []string{"fish.", "fish.", "fish.", "two"}
	if !reflect.DeepEqual(succs, want) {
		t.Errorf("Successors(one) = %v, want %v", succs, want)
	}
}

func TestStoreGetModelInfos(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()

	infos, err := s.GetModelInfos(ctx)
	if err != nil {
		t.Fatalf("GetModelInfos() failed: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("expected an empty store, got %d models", len(infos))
	}

	m2 := buildWordModel(t, "one fish. two fish. red fish. blue fish.", 2)
	m3 := buildWordModel(t, "one fish. two fish. red fish. blue fish.", 3)
	if err = s.SaveModel(ctx, "bigrams", m2); err != nil {
		t.Fatalf("SaveModel() failed: %v", err)
	}
	if err = s.SaveModel(ctx, "trigrams", m3); err != nil {
		t.Fatalf("SaveModel() failed: %v", err)
	}

	infos, err = s.GetModelInfos(ctx)
	if err != nil {
		t.Fatalf("GetModelInfos() failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 models, got %d", len(infos))
	}
	if info := infos["bigrams"]; info.Order != 2 {
		t.Errorf("bigrams order = %d, want 2", info.Order)
	}
	if info := infos["trigrams"]; info.Order != 3 {
		t.Errorf("trigrams order = %d, want 3", info.Order)
	}
}

func TestStoreDuplicateNameRejected(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()

	m := buildWordModel(t, "one fish. two fish. red fish. blue fish.", 2)
	if err := s.SaveModel(ctx, "fish", m); err != nil {
		t.Fatalf("SaveModel() failed: %v", err)
	}
	if err := s.SaveModel(ctx, "fish", m); err == nil {
		t.Error("expected the unique name constraint to reject the second save")
	}
}

func TestStoreDeleteModel(t *testing.T) {
	db, s := setupTestStore(t)
	ctx := context.Background()

	m := buildWordModel(t, "one fish. two fish. red fish. blue fish.", 2)
	if err := s.SaveModel(ctx, "fish", m); err != nil {
		t.Fatalf("SaveModel() failed: %v", err)
	}
	info, err := s.GetModelInfo(ctx, "fish")
	if err != nil {
		t.Fatalf("GetModelInfo() failed: %v", err)
	}

	if err = s.DeleteModel(ctx, info); err != nil {
		t.Fatalf("DeleteModel() failed: %v", err)
	}

	if _, err = s.GetModelInfo(ctx, "fish"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows after delete, got %v", err)
	}
	for _, table := range []string{"markov_vocabulary", "markov_prefixes", "markov_chains"} {
		var count int
		if err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE model_id = ?", info.Id).Scan(&count); err != nil {
			t.Fatalf("counting rows in %s failed: %v", table, err)
		}
		if count != 0 {
			t.Errorf("expected %s to hold no rows for the deleted model, got %d", table, count)
		}
	}

	// The name is free again after deletion.
	if err = s.SaveModel(ctx, "fish", m); err != nil {
		t.Errorf("expected the name to be reusable after delete, got %v", err)
	}
}

func TestStoreLoadMissingModel(t *testing.T) {
	_, s := setupTestStore(t)
	if _, err := s.LoadModel(context.Background(), "absent"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestStoreLoadedModelGenerates(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()

	original := buildWordModel(t, "one fish. two fish. red fish. blue fish. one fish. two fish.", 2)
	if err := s.SaveModel(ctx, "fish", original); err != nil {
		t.Fatalf("SaveModel() failed: %v", err)
	}
	loaded, err := s.LoadModel(ctx, "fish")
	if err != nil {
		t.Fatalf("LoadModel() failed: %v", err)
	}

	want, err := Sentence(ctx, original, WithMinWords(2), WithSentenceRand(testRand(11)))
	if err != nil {
		t.Fatalf("Sentence() on the original failed: %v", err)
	}
	got, err := Sentence(ctx, loaded, WithMinWords(2), WithSentenceRand(testRand(11)))
	if err != nil {
		t.Fatalf("Sentence() on the loaded model failed: %v", err)
	}
	if got != want {
		t.Errorf("loaded model produced %q, original produced %q", got, want)
	}
}
