package out_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	captureout "drawclass/internal/modules/capture/adapter/out"
	"drawclass/internal/modules/capture/domain"
)

func TestGRPCHostIntegrationDirCapturePlugin(t *testing.T) {
	binPath, checksum := buildDirCapturePlugin(t)
	manifest := domain.Manifest{
		Name:    "dircapture",
		Version: "1.0.0",
		Binary:  binPath,
		SHA256:  checksum,
		Enabled: true,
	}

	dir := t.TempDir()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 3, 3))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "frame.png"), buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	host := captureout.NewGRPCHost(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := host.CheckLifecycle(ctx, manifest); err != nil {
		t.Fatalf("check lifecycle: %v", err)
	}
	metadata, err := host.GetMetadata(ctx, manifest)
	if err != nil {
		t.Fatalf("get metadata: %v", err)
	}
	if metadata.Name != "dircapture" {
		t.Fatalf("unexpected metadata name: %s", metadata.Name)
	}
	img, err := host.Capture(ctx, manifest, domain.Request{Device: dir})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if !bytes.Equal(img.Data, buf.Bytes()) || img.MediaType != "image/png" {
		t.Fatalf("unexpected frame: %d bytes, %s", len(img.Data), img.MediaType)
	}
}

func buildDirCapturePlugin(t *testing.T) (string, string) {
	t.Helper()
	binPath := filepath.Join(t.TempDir(), "dircapture")
	cmd := exec.Command("go", "build", "-o", binPath, "./plugins/dircapture")
	cmd.Dir = repositoryRoot(t)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build dircapture plugin: %v\n%s", err, string(out))
	}
	data, err := os.ReadFile(binPath)
	if err != nil {
		t.Fatalf("read built plugin: %v", err)
	}
	hash := sha256.Sum256(data)
	return binPath, hex.EncodeToString(hash[:])
}

func repositoryRoot(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller failed")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "../../../../../"))
}
