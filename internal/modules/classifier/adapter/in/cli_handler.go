package in

import (
	"context"
	"fmt"
	"os"

	"drawclass/internal/modules/classifier/dto"
	classifierin "drawclass/internal/modules/classifier/port/in"
	"drawclass/internal/platform/payload"
)

type CLIHandler struct {
	usecase classifierin.Usecase
}

func NewCLIHandler(usecase classifierin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Train(ctx context.Context) (dto.TrainOutput, error) {
	return h.usecase.Train(ctx)
}

func (h CLIHandler) Status(ctx context.Context) (dto.StatusOutput, error) {
	return h.usecase.Status(ctx)
}

func (h CLIHandler) Model(ctx context.Context) (dto.ModelOutput, error) {
	return h.usecase.Model(ctx)
}

// ClassifyFile classifies the image stored at path.
func (h CLIHandler) ClassifyFile(ctx context.Context, path string) (dto.PredictOutput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return dto.PredictOutput{}, fmt.Errorf("read image: %w", err)
	}
	return h.usecase.Predict(ctx, dto.PredictInput{Payload: payload.FromBytes(data)})
}

func (h CLIHandler) Classify(ctx context.Context, raw string) (dto.PredictOutput, error) {
	return h.usecase.Predict(ctx, dto.PredictInput{Payload: raw})
}

func (h CLIHandler) ClassifyCapture(ctx context.Context) (dto.PredictOutput, error) {
	return h.usecase.PredictCapture(ctx)
}

func (h CLIHandler) SkipTraining(ctx context.Context) bool {
	return h.usecase.SkipTrainingAnimation(ctx)
}

func (h CLIHandler) SkipPrediction(ctx context.Context) bool {
	return h.usecase.SkipPredictionAnimation(ctx)
}
