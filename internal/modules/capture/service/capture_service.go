package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"drawclass/internal/modules/capture/domain"
	"drawclass/internal/modules/capture/dto"
	captureout "drawclass/internal/modules/capture/port/out"
	"drawclass/internal/platform/clock"
	apperrors "drawclass/internal/platform/errors"
	"drawclass/internal/platform/payload"
)

type CaptureService struct {
	logger        hclog.Logger
	clock         clock.Clock
	store         captureout.ManifestStore
	host          captureout.PluginHost
	devices       map[domain.SourceKind]captureout.Device
	defaultSource string
	defaultDevice string
}

type Options struct {
	DefaultSource string
	DefaultDevice string
}

func NewCaptureService(logger hclog.Logger, clock clock.Clock, store captureout.ManifestStore, host captureout.PluginHost, devices map[domain.SourceKind]captureout.Device, opts Options) *CaptureService {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &CaptureService{
		logger:        logger,
		clock:         clock,
		store:         store,
		host:          host,
		devices:       devices,
		defaultSource: opts.DefaultSource,
		defaultDevice: opts.DefaultDevice,
	}
}

// Capture grabs one frame and checks that it decodes as an image.
func (s *CaptureService) Capture(ctx context.Context, rawSource, device string) (domain.Frame, error) {
	if rawSource == "" {
		rawSource = s.defaultSource
	}
	if device == "" {
		device = s.defaultDevice
	}
	source, err := domain.ParseSource(rawSource)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("%w: %w", apperrors.ErrCapture, err)
	}
	request := domain.Request{Device: device}

	var img domain.Image
	switch source.Kind {
	case domain.SourcePlugin:
		manifest, err := s.runnableManifest(ctx, source.Plugin)
		if err != nil {
			return domain.Frame{}, fmt.Errorf("%w: %w", apperrors.ErrCapture, err)
		}
		img, err = s.host.Capture(ctx, manifest, request)
		if err != nil {
			return domain.Frame{}, fmt.Errorf("%w: %w", apperrors.ErrCapture, err)
		}
	default:
		dev, ok := s.devices[source.Kind]
		if !ok || dev == nil {
			return domain.Frame{}, fmt.Errorf("%w: %s source is not available in this build", apperrors.ErrCapture, source.Kind)
		}
		img, err = dev.Grab(ctx, request)
		if err != nil {
			return domain.Frame{}, fmt.Errorf("%w: %w", apperrors.ErrCapture, err)
		}
	}

	frame, err := s.frame(source, img)
	if err != nil {
		return domain.Frame{}, err
	}
	s.logger.Debug("frame captured", "source", frame.Source, "width", frame.Width, "height", frame.Height)
	return frame, nil
}

func (s *CaptureService) frame(source domain.Source, img domain.Image) (domain.Frame, error) {
	if len(img.Data) == 0 {
		return domain.Frame{}, fmt.Errorf("%w: %s returned an empty image", apperrors.ErrCapture, source)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return domain.Frame{}, fmt.Errorf("%w: %s returned an unreadable image: %v", apperrors.ErrCapture, source, err)
	}
	mediaType := img.MediaType
	if mediaType == "" {
		mediaType = http.DetectContentType(img.Data)
	}
	return domain.Frame{
		Source:     source.String(),
		Payload:    payload.Encode(mediaType, img.Data),
		MediaType:  mediaType,
		Width:      cfg.Width,
		Height:     cfg.Height,
		CapturedAt: s.clock.Now(),
	}, nil
}

func (s *CaptureService) ListPlugins(ctx context.Context) ([]dto.PluginInfo, error) {
	manifests, err := s.loadValidated(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PluginInfo, 0, len(manifests))
	for _, m := range manifests {
		out = append(out, dto.PluginInfo{Name: m.Name, Version: m.Version, Enabled: m.Enabled, Binary: m.Binary, Devices: m.Devices})
	}
	return out, nil
}

func (s *CaptureService) Doctor(ctx context.Context) ([]dto.DoctorResult, error) {
	manifests, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]dto.DoctorResult, 0, len(manifests))
	for _, m := range manifests {
		result := dto.DoctorResult{Name: m.Name}
		if err := m.Validate(); err != nil {
			result.Error = err.Error()
			results = append(results, result)
			continue
		}
		result.BinaryReachable = fileExists(m.Binary)
		if result.BinaryReachable {
			result.ChecksumValid = checksumMatches(m.Binary, m.SHA256) == nil
		}
		switch {
		case !result.BinaryReachable:
			result.Error = fmt.Sprintf("binary does not exist: %s", m.Binary)
		case !result.ChecksumValid:
			result.Error = "checksum mismatch"
		case m.Enabled && s.host != nil:
			if err := s.host.CheckLifecycle(ctx, m); err != nil {
				result.Error = err.Error()
			} else {
				result.LifecycleOK = true
			}
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *CaptureService) loadValidated(ctx context.Context) ([]domain.Manifest, error) {
	manifests, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	for _, manifest := range manifests {
		if err := manifest.Validate(); err != nil {
			return nil, err
		}
		if _, ok := seen[manifest.Name]; ok {
			return nil, fmt.Errorf("duplicate plugin name: %s", manifest.Name)
		}
		seen[manifest.Name] = struct{}{}
	}
	return manifests, nil
}

func (s *CaptureService) runnableManifest(ctx context.Context, name string) (domain.Manifest, error) {
	if s.host == nil {
		return domain.Manifest{}, fmt.Errorf("plugin capture is not configured")
	}
	manifests, err := s.loadValidated(ctx)
	if err != nil {
		return domain.Manifest{}, err
	}
	for _, manifest := range manifests {
		if manifest.Name != name {
			continue
		}
		if !manifest.Enabled {
			return domain.Manifest{}, fmt.Errorf("%w: %s", domain.ErrPluginDisabled, name)
		}
		if err := checksumMatches(manifest.Binary, manifest.SHA256); err != nil {
			return domain.Manifest{}, err
		}
		return manifest, nil
	}
	return domain.Manifest{}, fmt.Errorf("%w: plugin %q", apperrors.ErrNotFound, name)
}

func checksumMatches(path string, expected string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read plugin binary: %w", err)
	}
	hash := sha256.Sum256(data)
	if hex.EncodeToString(hash[:]) != expected {
		return fmt.Errorf("%w: %s", domain.ErrChecksumMismatch, filepath.Base(path))
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
