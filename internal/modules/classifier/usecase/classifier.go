package usecase

import (
	"context"
	"fmt"

	"drawclass/internal/modules/classifier/domain"
	"drawclass/internal/modules/classifier/dto"
	classifierin "drawclass/internal/modules/classifier/port/in"
	classifierout "drawclass/internal/modules/classifier/port/out"
	"drawclass/internal/modules/classifier/service"
	apperrors "drawclass/internal/platform/errors"
)

type Interactor struct {
	trainer   *service.Trainer
	predictor *service.Predictor
	registry  *service.ModelRegistry
	capture   classifierout.CaptureSource
}

func NewInteractor(trainer *service.Trainer, predictor *service.Predictor, registry *service.ModelRegistry, capture classifierout.CaptureSource) classifierin.Usecase {
	return &Interactor{trainer: trainer, predictor: predictor, registry: registry, capture: capture}
}

func (i *Interactor) Train(ctx context.Context) (dto.TrainOutput, error) {
	summary, err := i.trainer.Start(ctx)
	if err != nil {
		return dto.TrainOutput{}, err
	}
	return dto.TrainOutput{
		RunID:      summary.RunID,
		Categories: summary.Categories,
		Samples:    summary.Samples,
		Progress:   toProgress(summary.Progress),
		TrainedAt:  summary.TrainedAt,
	}, nil
}

func (i *Interactor) Status(_ context.Context) (dto.StatusOutput, error) {
	status := i.trainer.Status()
	out := dto.StatusOutput{
		State:       string(status.State),
		RunID:       status.RunID,
		Epochs:      status.Epochs,
		Progress:    toProgress(status.Progress),
		Activations: toActivations(status.Activations),
	}
	if status.Err != nil {
		out.Error = status.Err.Error()
	}
	return out, nil
}

func (i *Interactor) Model(_ context.Context) (dto.ModelOutput, error) {
	info, ok := i.registry.Info()
	if !ok {
		return dto.ModelOutput{}, nil
	}
	return dto.ModelOutput{
		Trained:    true,
		RunID:      info.RunID,
		Categories: info.Categories,
		TrainedAt:  info.TrainedAt,
		Final:      dto.EpochProgress(info.Final),
	}, nil
}

func (i *Interactor) Predict(ctx context.Context, input dto.PredictInput) (dto.PredictOutput, error) {
	result, err := i.predictor.Predict(ctx, input.Payload)
	if err != nil {
		return dto.PredictOutput{}, err
	}
	scores := make([]dto.Score, len(result.Prediction))
	for idx, score := range result.Prediction {
		scores[idx] = dto.Score(score)
	}
	return dto.PredictOutput{RunID: result.RunID, Scores: scores, Activations: toActivations(result.Activations)}, nil
}

// PredictCapture grabs a frame from the capture source and classifies it.
func (i *Interactor) PredictCapture(ctx context.Context) (dto.PredictOutput, error) {
	if i.capture == nil {
		return dto.PredictOutput{}, fmt.Errorf("%w: no capture source configured", apperrors.ErrCapture)
	}
	if _, ok := i.registry.Info(); !ok {
		return dto.PredictOutput{}, apperrors.AtStage("predict", apperrors.ErrModelNotTrained)
	}
	payload, err := i.capture.Capture(ctx)
	if err != nil {
		return dto.PredictOutput{}, apperrors.AtStage("capture", err)
	}
	return i.Predict(ctx, dto.PredictInput{Payload: payload})
}

func (i *Interactor) SkipTrainingAnimation(_ context.Context) bool {
	return i.trainer.SkipAnimation()
}

func (i *Interactor) SkipPredictionAnimation(_ context.Context) bool {
	return i.predictor.SkipAnimation()
}

func toProgress(entries []domain.Progress) []dto.EpochProgress {
	out := make([]dto.EpochProgress, len(entries))
	for idx, entry := range entries {
		out[idx] = dto.EpochProgress(entry)
	}
	return out
}

func toActivations(snapshot domain.ActivationSnapshot) []dto.LayerActivation {
	out := make([]dto.LayerActivation, len(snapshot))
	for idx, layer := range snapshot {
		out[idx] = dto.LayerActivation(layer)
	}
	return out
}
