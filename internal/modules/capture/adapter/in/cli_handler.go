package in

import (
	"context"

	"drawclass/internal/modules/capture/dto"
	capturein "drawclass/internal/modules/capture/port/in"
)

type CLIHandler struct {
	usecase capturein.Usecase
}

func NewCLIHandler(usecase capturein.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Capture(ctx context.Context, source, device string) (dto.CaptureOutput, error) {
	return h.usecase.Capture(ctx, dto.CaptureInput{Source: source, Device: device})
}

func (h CLIHandler) ListPlugins(ctx context.Context) ([]dto.PluginInfo, error) {
	return h.usecase.ListPlugins(ctx)
}

func (h CLIHandler) Doctor(ctx context.Context) ([]dto.DoctorResult, error) {
	return h.usecase.Doctor(ctx)
}
