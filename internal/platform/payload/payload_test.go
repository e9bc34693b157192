package payload_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	apperrors "drawclass/internal/platform/errors"
	"drawclass/internal/platform/payload"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestFromBytesSniffsMediaType(t *testing.T) {
	t.Parallel()
	url := payload.FromBytes(pngHeader)
	if !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Fatalf("unexpected data url: %s", url)
	}
	data, err := payload.Decode(url)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(data, pngHeader) {
		t.Fatalf("bytes changed after decode")
	}
}

func TestDecodeAcceptsBareBase64(t *testing.T) {
	t.Parallel()
	data, err := payload.Decode("aGVsbG8")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("unexpected bytes %q", data)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	t.Parallel()
	for _, input := range []string{"", "   ", "data:image/png;base64", "data:image/png,plain", "***", "data:image/png;base64,"} {
		if _, err := payload.Decode(input); !errors.Is(err, apperrors.ErrDecode) {
			t.Fatalf("%q: expected decode error, got %v", input, err)
		}
	}
}

func TestInspectReportsMediaTypeAndSize(t *testing.T) {
	t.Parallel()
	info, err := payload.Inspect(payload.Encode("image/jpeg", []byte("abc")))
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if info.MediaType != "image/jpeg" || info.Bytes != 3 {
		t.Fatalf("unexpected info %+v", info)
	}

	bare, err := payload.Inspect(strings.TrimPrefix(payload.FromBytes(pngHeader), "data:image/png;base64,"))
	if err != nil {
		t.Fatalf("inspect bare: %v", err)
	}
	if bare.MediaType != "image/png" || bare.Bytes != len(pngHeader) {
		t.Fatalf("unexpected bare info %+v", bare)
	}
}
