package out_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	captureout "drawclass/internal/modules/capture/adapter/out"
	"drawclass/internal/modules/capture/domain"
)

func TestFileManifestStoreLoadMissingReturnsEmpty(t *testing.T) {
	t.Parallel()
	store := captureout.NewFileManifestStore(filepath.Join(t.TempDir(), "plugins.json"))
	manifests, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load manifests: %v", err)
	}
	if len(manifests) != 0 {
		t.Fatalf("expected empty manifests, got %d", len(manifests))
	}
}

func TestFileManifestStoreResolvesRelativeBinary(t *testing.T) {
	t.Parallel()
	base := t.TempDir()
	raw := `[
  {
    "name": "dircapture",
    "version": "1.0.0",
    "binary": "bin/dircapture",
    "sha256": "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
    "enabled": true,
    "devices": ["scans"]
  }
]`
	path := filepath.Join(base, "plugins.json")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write manifests: %v", err)
	}
	manifests, err := captureout.NewFileManifestStore(path).Load(context.Background())
	if err != nil {
		t.Fatalf("load manifests: %v", err)
	}
	if len(manifests) != 1 {
		t.Fatalf("expected one manifest, got %d", len(manifests))
	}
	if want := filepath.Join(base, "bin", "dircapture"); manifests[0].Binary != want {
		t.Fatalf("expected %s, got %s", want, manifests[0].Binary)
	}
}

func TestFileManifestStoreRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "plugins.json")
	if err := os.WriteFile(path, []byte(`[{"name":"x","capabilities":["command"]}]`), 0o644); err != nil {
		t.Fatalf("write manifests: %v", err)
	}
	if _, err := captureout.NewFileManifestStore(path).Load(context.Background()); err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestFileDevicePicksNewestImage(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	older := filepath.Join(dir, "a.png")
	newer := filepath.Join(dir, "b.jpg")
	for _, p := range []string{older, newer, filepath.Join(dir, "notes.txt")} {
		if err := os.WriteFile(p, []byte(filepath.Base(p)), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	img, err := captureout.NewFileDevice().Grab(context.Background(), domain.Request{Device: dir})
	if err != nil {
		t.Fatalf("grab: %v", err)
	}
	if string(img.Data) != "b.jpg" || img.MediaType != "image/jpeg" {
		t.Fatalf("unexpected image %q (%s)", img.Data, img.MediaType)
	}

	img, err = captureout.NewFileDevice().Grab(context.Background(), domain.Request{Device: older})
	if err != nil {
		t.Fatalf("grab file: %v", err)
	}
	if string(img.Data) != "a.png" {
		t.Fatalf("unexpected image %q", img.Data)
	}
}

func TestFileDeviceErrors(t *testing.T) {
	t.Parallel()
	device := captureout.NewFileDevice()
	if _, err := device.Grab(context.Background(), domain.Request{}); err == nil {
		t.Fatalf("expected error without a path")
	}
	empty := t.TempDir()
	_, err := device.Grab(context.Background(), domain.Request{Device: empty})
	if err == nil || !strings.Contains(err.Error(), "no images") {
		t.Fatalf("expected no images error, got %v", err)
	}
}
