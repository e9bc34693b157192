package in

import (
	"context"

	"drawclass/internal/modules/classifier/dto"
)

type Usecase interface {
	Train(ctx context.Context) (dto.TrainOutput, error)
	Status(ctx context.Context) (dto.StatusOutput, error)
	Model(ctx context.Context) (dto.ModelOutput, error)
	Predict(ctx context.Context, input dto.PredictInput) (dto.PredictOutput, error)
	PredictCapture(ctx context.Context) (dto.PredictOutput, error)
	SkipTrainingAnimation(ctx context.Context) bool
	SkipPredictionAnimation(ctx context.Context) bool
}
