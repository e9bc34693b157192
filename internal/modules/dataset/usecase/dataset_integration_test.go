package usecase_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	datasetout "drawclass/internal/modules/dataset/adapter/out"
	"drawclass/internal/modules/dataset/dto"
	"drawclass/internal/modules/dataset/service"
	"drawclass/internal/modules/dataset/usecase"
	"drawclass/internal/platform/clock"
	apperrors "drawclass/internal/platform/errors"
)

func TestImportExportThroughSQLite(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), ".drawclass", "dataset.db")
	store, err := datasetout.NewSQLiteSampleStore(dbPath)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	uc := usecase.NewInteractor(service.NewDatasetService(clock.SystemClock{}, store))
	ctx := context.Background()

	raw := []byte(`{"Gato":["data:image/png;base64,AAAA","data:image/png;base64,BBBB"],"Casa":[],"Sol \"☀\"":["data:image/jpeg;base64,CCCC"]}`)
	imported, err := uc.Import(ctx, dto.ImportInput{Data: raw})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if imported.Categories != 3 || imported.Samples != 3 {
		t.Fatalf("unexpected import summary: %+v", imported)
	}

	listed, err := uc.ListCategories(ctx)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(listed) != 2 || listed[0].Label != "Gato" || listed[1].Label != `Sol "☀"` {
		t.Fatalf("unexpected categories: %+v", listed)
	}

	exported, err := uc.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	reloaded := usecase.NewInteractor(service.NewDatasetService(clock.SystemClock{}, store))
	again, err := reloaded.Export(ctx)
	if err != nil {
		t.Fatalf("export after reload: %v", err)
	}
	if string(exported.Data) != string(again.Data) {
		t.Fatalf("persisted dataset differs:\n%s\n%s", exported.Data, again.Data)
	}
	if _, err := reloaded.Import(ctx, dto.ImportInput{Data: again.Data}); err != nil {
		t.Fatalf("re-import: %v", err)
	}
	third, err := reloaded.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if string(third.Data) != string(again.Data) {
		t.Fatalf("export/import is not the identity:\n%s\n%s", again.Data, third.Data)
	}
}

func TestSnapshotListsNonEmptyInOrder(t *testing.T) {
	t.Parallel()
	store, err := datasetout.NewSQLiteSampleStore(filepath.Join(t.TempDir(), "dataset.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	uc := usecase.NewInteractor(service.NewDatasetService(clock.SystemClock{}, store))
	ctx := context.Background()
	if err := uc.DeclareCategory(ctx, "Sol"); err != nil {
		t.Fatalf("declare: %v", err)
	}
	for _, in := range []dto.AddSampleInput{{Label: "Cat", Payload: "a"}, {Label: "House", Payload: "b"}, {Label: "Cat", Payload: "c"}} {
		if _, err := uc.AddSample(ctx, in); err != nil {
			t.Fatalf("add sample: %v", err)
		}
	}
	snap, err := uc.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Categories) != 2 || snap.Categories[0].Label != "Cat" || len(snap.Categories[0].Payloads) != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if _, err := uc.Preview(ctx, dto.PreviewInput{Label: "Sol"}); err != nil {
		t.Fatalf("preview declared category: %v", err)
	}
	if _, err := uc.AddSample(ctx, dto.AddSampleInput{Label: "", Payload: "x"}); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
