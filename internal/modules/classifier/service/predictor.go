package service

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/go-hclog"

	"drawclass/internal/modules/classifier/domain"
	classifierout "drawclass/internal/modules/classifier/port/out"
	visualdomain "drawclass/internal/modules/visualization/domain"
	"drawclass/internal/platform/clock"
	apperrors "drawclass/internal/platform/errors"
)

const stagePredict = "predict"

type PredictorDeps struct {
	Logger       hclog.Logger
	Clock        clock.Clock
	Preprocessor classifierout.Preprocessor
	Engine       classifierout.Engine
	Sampler      *ActivationSampler
	Registry     *ModelRegistry
	Animator     classifierout.Animator
	Sink         classifierout.EventSink
}

type PredictionResult struct {
	RunID       string
	Prediction  domain.Prediction
	Activations domain.ActivationSnapshot
}

// Predictor classifies one payload with the installed model.
type Predictor struct {
	deps  PredictorDeps
	delay time.Duration
}

func NewPredictor(deps PredictorDeps, animationDelay time.Duration) *Predictor {
	if deps.Logger == nil {
		deps.Logger = hclog.NewNullLogger()
	}
	if deps.Sink == nil {
		deps.Sink = discardSink{}
	}
	if deps.Clock == nil {
		deps.Clock = clock.SystemClock{}
	}
	return &Predictor{deps: deps, delay: animationDelay}
}

func (p *Predictor) Predict(ctx context.Context, payload string) (PredictionResult, error) {
	var result PredictionResult
	err := p.deps.Registry.Use(func(model InstalledModel) error {
		scope := &tensorScope{}
		defer scope.release()

		image, err := p.deps.Preprocessor.Encode(payload)
		if err != nil {
			return err
		}
		scope.track(image)
		batch, err := p.deps.Engine.ExpandDims(image)
		if err != nil {
			return err
		}
		scope.track(batch)

		activations, err := p.deps.Sampler.Sample(model.Pair.Probe, batch)
		if err != nil {
			return err
		}
		if err := p.animate(ctx); err != nil {
			return err
		}

		output, err := model.Pair.Model.Predict(batch)
		if err != nil {
			return err
		}
		scope.track(output)
		prediction, err := domain.Rank(model.Categories, output.Values())
		if err != nil {
			return err
		}
		result = PredictionResult{RunID: model.RunID, Prediction: prediction, Activations: activations}
		return nil
	})
	if err != nil {
		return PredictionResult{}, apperrors.AtStage(stagePredict, err)
	}
	if top, ok := result.Prediction.Top(); ok {
		p.deps.Logger.Debug("prediction", "run", result.RunID, "label", top.Label, "probability", top.Probability)
	}
	p.deps.Sink.Publish(domain.Event{
		Kind:        domain.EventPrediction,
		Phase:       domain.PhasePredict,
		RunID:       result.RunID,
		At:          p.deps.Clock.Now(),
		Activations: result.Activations,
		Prediction:  result.Prediction,
	})
	return result, nil
}

func (p *Predictor) SkipAnimation() bool {
	if p.deps.Animator == nil {
		return false
	}
	return p.deps.Animator.RequestSkip()
}

// animate plays the inference stages unless another prediction is already
// animating, in which case this one runs without a pass.
func (p *Predictor) animate(ctx context.Context) error {
	if p.deps.Animator == nil {
		return nil
	}
	if err := p.deps.Animator.Begin(len(domain.InferenceStages)); err != nil {
		if errors.Is(err, visualdomain.ErrPassInProgress) {
			return nil
		}
		return err
	}
	_, err := p.deps.Animator.StepThrough(ctx, p.delay)
	return err
}
