package out

import (
	"context"

	capturedto "drawclass/internal/modules/capture/dto"
	capturein "drawclass/internal/modules/capture/port/in"
)

// CaptureSource grabs frames for classification from the capture module's
// configured source.
type CaptureSource struct {
	capture capturein.Usecase
	source  string
	device  string
}

func NewCaptureSource(capture capturein.Usecase, source, device string) *CaptureSource {
	return &CaptureSource{capture: capture, source: source, device: device}
}

func (s *CaptureSource) Capture(ctx context.Context) (string, error) {
	frame, err := s.capture.Capture(ctx, capturedto.CaptureInput{Source: s.source, Device: s.device})
	if err != nil {
		return "", err
	}
	return frame.Payload, nil
}
