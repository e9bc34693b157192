package logging_test

import (
	"bytes"
	"strings"
	"testing"

	"drawclass/internal/platform/logging"
)

func TestNewRespectsLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := logging.New(logging.Options{Level: "warn", Output: &buf})
	logger.Info("hidden")
	logger.Warn("shown", "epoch", 2)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line must be filtered: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "epoch=2") {
		t.Fatalf("expected warn line with fields: %s", out)
	}
}

func TestNewFallsBackToInfo(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := logging.New(logging.Options{Level: "chatty", Output: &buf})
	logger.Info("ready")
	if !strings.Contains(buf.String(), "ready") {
		t.Fatalf("expected info output, got %q", buf.String())
	}
}
