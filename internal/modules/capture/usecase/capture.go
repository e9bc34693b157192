package usecase

import (
	"context"

	"drawclass/internal/modules/capture/dto"
	capturein "drawclass/internal/modules/capture/port/in"
	"drawclass/internal/modules/capture/service"
)

type Interactor struct {
	svc *service.CaptureService
}

func NewInteractor(svc *service.CaptureService) capturein.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) Capture(ctx context.Context, input dto.CaptureInput) (dto.CaptureOutput, error) {
	frame, err := i.svc.Capture(ctx, input.Source, input.Device)
	if err != nil {
		return dto.CaptureOutput{}, err
	}
	return dto.CaptureOutput{
		Source:     frame.Source,
		Payload:    frame.Payload,
		MediaType:  frame.MediaType,
		Width:      frame.Width,
		Height:     frame.Height,
		CapturedAt: frame.CapturedAt,
	}, nil
}

func (i *Interactor) ListPlugins(ctx context.Context) ([]dto.PluginInfo, error) {
	return i.svc.ListPlugins(ctx)
}

func (i *Interactor) Doctor(ctx context.Context) ([]dto.DoctorResult, error) {
	return i.svc.Doctor(ctx)
}
