package in

import (
	"context"

	"drawclass/internal/modules/capture/dto"
)

type Usecase interface {
	Capture(ctx context.Context, input dto.CaptureInput) (dto.CaptureOutput, error)
	ListPlugins(ctx context.Context) ([]dto.PluginInfo, error)
	Doctor(ctx context.Context) ([]dto.DoctorResult, error)
}
