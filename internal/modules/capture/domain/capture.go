package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

type SourceKind string

const (
	SourceFile   SourceKind = "file"
	SourceWebcam SourceKind = "webcam"
	SourcePlugin SourceKind = "plugin"
)

var (
	ErrPluginDisabled   = errors.New("capture plugin is disabled")
	ErrChecksumMismatch = errors.New("capture plugin checksum mismatch")
	ErrPluginTimeout    = errors.New("capture plugin timeout")
	ErrUnknownSource    = errors.New("unknown capture source")
)

// Source names where frames come from: "file", "webcam" or "plugin:<name>".
type Source struct {
	Kind   SourceKind
	Plugin string
}

func ParseSource(raw string) (Source, error) {
	value := strings.TrimSpace(raw)
	switch {
	case value == string(SourceFile):
		return Source{Kind: SourceFile}, nil
	case value == string(SourceWebcam):
		return Source{Kind: SourceWebcam}, nil
	case strings.HasPrefix(value, string(SourcePlugin)+":"):
		name := strings.TrimSpace(strings.TrimPrefix(value, string(SourcePlugin)+":"))
		if name == "" {
			return Source{}, fmt.Errorf("%w: plugin source needs a name", ErrUnknownSource)
		}
		return Source{Kind: SourcePlugin, Plugin: name}, nil
	default:
		return Source{}, fmt.Errorf("%w: %q", ErrUnknownSource, raw)
	}
}

func (s Source) String() string {
	if s.Kind == SourcePlugin {
		return string(SourcePlugin) + ":" + s.Plugin
	}
	return string(s.Kind)
}

type Request struct {
	// Device is a path for file sources, a camera index for webcams and
	// plugin specific otherwise.
	Device string
}

// Frame is one captured image, already encoded as a data URL payload.
type Frame struct {
	Source     string
	Payload    string
	MediaType  string
	Width      int
	Height     int
	CapturedAt time.Time
}

var sha256Pattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

type Manifest struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Binary  string   `json:"binary"`
	SHA256  string   `json:"sha256"`
	Enabled bool     `json:"enabled"`
	Devices []string `json:"devices,omitempty"`
}

func (m Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("plugin name is required")
	}
	if strings.ContainsAny(m.Name, ": ") {
		return fmt.Errorf("plugin name %q must not contain spaces or colons", m.Name)
	}
	if m.Version == "" {
		return fmt.Errorf("plugin version is required")
	}
	if m.Binary == "" {
		return fmt.Errorf("plugin binary path is required")
	}
	if !sha256Pattern.MatchString(m.SHA256) {
		return fmt.Errorf("plugin sha256 must be lowercase 64-char hex")
	}
	return nil
}

type Metadata struct {
	Name    string
	Version string
	Devices []string
}

// Image is raw image bytes returned by a device before validation.
type Image struct {
	Data      []byte
	MediaType string
}
