package out_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	datasetout "drawclass/internal/modules/dataset/adapter/out"
	"drawclass/internal/modules/dataset/domain"
)

func TestSQLiteSampleStorePersistsOrder(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), ".drawclass", "dataset.db")
	store, err := datasetout.NewSQLiteSampleStore(dbPath)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for _, s := range []struct{ label, payload string }{
		{"Sol", "s1"}, {"Gato", "g1"}, {"Sol", "s2"}, {"Casa", "c1"},
	} {
		if err := store.Append(ctx, s.label, s.payload, now); err != nil {
			t.Fatalf("append %s: %v", s.label, err)
		}
	}
	if err := store.Declare(ctx, "Vacía"); err != nil {
		t.Fatalf("declare: %v", err)
	}

	reopened, err := datasetout.NewSQLiteSampleStore(dbPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	loaded, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := domain.New()
	for _, s := range []struct{ label, payload string }{
		{"Sol", "s1"}, {"Gato", "g1"}, {"Sol", "s2"}, {"Casa", "c1"},
	} {
		if err := want.Add(s.label, s.payload); err != nil {
			t.Fatalf("want add: %v", err)
		}
	}
	if err := want.Declare("Vacía"); err != nil {
		t.Fatalf("want declare: %v", err)
	}
	if !loaded.Equal(want) {
		t.Fatalf("loaded dataset differs: %v", loaded.Counts())
	}
}

func TestSQLiteSampleStoreReplaceAndClear(t *testing.T) {
	t.Parallel()
	store, err := datasetout.NewSQLiteSampleStore(filepath.Join(t.TempDir(), "dataset.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()
	if err := store.Append(ctx, "Old", "o1", time.Now()); err != nil {
		t.Fatalf("append: %v", err)
	}
	replacement, err := domain.Unmarshal([]byte(`{"Casa":["c1","c2"],"Gato":["g1"]}`))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := store.Replace(ctx, replacement); err != nil {
		t.Fatalf("replace: %v", err)
	}
	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !loaded.Equal(replacement) {
		t.Fatalf("replace not applied: %v", loaded.Counts())
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	loaded, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Labels()) != 0 {
		t.Fatalf("expected empty dataset after clear, got %v", loaded.Labels())
	}
}
