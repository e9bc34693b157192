// Package payload converts between raw image bytes and the base64 data URL
// strings stored in the dataset.
package payload

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	apperrors "drawclass/internal/platform/errors"
)

const scheme = "data:"

// FromBytes returns a data URL for data, sniffing its media type.
func FromBytes(data []byte) string {
	return Encode(http.DetectContentType(data), data)
}

func Encode(mediaType string, data []byte) string {
	return scheme + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Decode accepts a base64 data URL or bare base64 text and returns the bytes.
func Decode(payload string) ([]byte, error) {
	text := strings.TrimSpace(payload)
	if text == "" {
		return nil, fmt.Errorf("%w: empty payload", apperrors.ErrDecode)
	}
	if strings.HasPrefix(text, scheme) {
		meta, body, ok := strings.Cut(text[len(scheme):], ",")
		if !ok {
			return nil, fmt.Errorf("%w: data url without body", apperrors.ErrDecode)
		}
		if !strings.HasSuffix(meta, ";base64") {
			return nil, fmt.Errorf("%w: data url is not base64 encoded", apperrors.ErrDecode)
		}
		text = body
	}
	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(text)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrDecode, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", apperrors.ErrDecode)
	}
	return data, nil
}

// Info summarises a payload for previews.
type Info struct {
	MediaType string
	Bytes     int
}

// Inspect decodes payload and reports its declared media type, or the sniffed
// one for bare base64.
func Inspect(payload string) (Info, error) {
	data, err := Decode(payload)
	if err != nil {
		return Info{}, err
	}
	text := strings.TrimSpace(payload)
	if strings.HasPrefix(text, scheme) {
		meta, _, _ := strings.Cut(text[len(scheme):], ",")
		mediaType := strings.TrimSuffix(meta, ";base64")
		if mediaType != "" {
			return Info{MediaType: mediaType, Bytes: len(data)}, nil
		}
	}
	return Info{MediaType: http.DetectContentType(data), Bytes: len(data)}, nil
}
