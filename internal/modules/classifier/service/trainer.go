package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"drawclass/internal/modules/classifier/domain"
	classifierout "drawclass/internal/modules/classifier/port/out"
	"drawclass/internal/platform/clock"
	apperrors "drawclass/internal/platform/errors"
	"drawclass/internal/platform/id"
)

type TrainingConfig struct {
	Epochs         int
	BatchSize      int
	Shuffle        bool
	AnimationDelay time.Duration
}

type TrainerDeps struct {
	Logger       hclog.Logger
	Clock        clock.Clock
	IDs          id.Generator
	Dataset      classifierout.DatasetSource
	Preprocessor classifierout.Preprocessor
	Engine       classifierout.Engine
	Builder      *ModelBuilder
	Sampler      *ActivationSampler
	Registry     *ModelRegistry
	Animator     classifierout.Animator
	Sink         classifierout.EventSink
}

// Trainer runs one training session at a time:
// idle -> validating -> building_tensors -> training -> completed | failed.
type Trainer struct {
	deps        TrainerDeps
	cfg         TrainingConfig
	subscribers []EpochSubscriber

	mu          sync.Mutex
	state       domain.RunState
	runID       string
	progress    domain.ProgressLog
	activations domain.ActivationSnapshot
	lastErr     error
}

func NewTrainer(deps TrainerDeps, cfg TrainingConfig) *Trainer {
	if deps.Logger == nil {
		deps.Logger = hclog.NewNullLogger()
	}
	if deps.Sink == nil {
		deps.Sink = discardSink{}
	}
	if deps.Clock == nil {
		deps.Clock = clock.SystemClock{}
	}
	if deps.IDs == nil {
		deps.IDs = id.UUID{}
	}
	t := &Trainer{deps: deps, cfg: cfg, state: domain.StateIdle}
	t.subscribers = []EpochSubscriber{
		EpochSubscriberFunc(t.record),
		sinkForwarder{sink: deps.Sink, clock: deps.Clock},
	}
	if deps.Animator != nil {
		t.subscribers = append(t.subscribers, animationDriver{animator: deps.Animator, delay: cfg.AnimationDelay})
	}
	return t
}

// Start trains a new model on the current dataset and installs it. A second
// call while a run is active fails without touching the active run. A dataset
// that cannot be trained on is rejected before the status changes.
func (t *Trainer) Start(ctx context.Context) (domain.RunSummary, error) {
	previous, ok := t.acquire()
	if !ok {
		return domain.RunSummary{}, apperrors.ErrTrainingInProgress
	}
	sets, err := t.validate(ctx)
	if err != nil {
		t.setState(previous)
		t.deps.Logger.Warn("training rejected", "error", err)
		return domain.RunSummary{}, err
	}
	runID := t.begin()
	logger := t.deps.Logger.With("run", runID)
	logger.Info("training started", "epochs", t.cfg.Epochs, "batch_size", t.cfg.BatchSize)
	t.publishPhase(runID, domain.PhaseCompiling, nil)

	summary, err := t.run(ctx, runID, logger, sets)
	t.finish(err)
	if err != nil {
		logger.Error("training failed", "error", err)
		t.publishPhase(runID, domain.PhaseFailed, err)
		return domain.RunSummary{}, err
	}
	logger.Info("training completed", "categories", len(summary.Categories), "samples", summary.Samples)
	t.publishPhase(runID, domain.PhaseTrained, nil)
	return summary, nil
}

func (t *Trainer) Status() domain.RunStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return domain.RunStatus{
		State:       t.state,
		RunID:       t.runID,
		Epochs:      t.cfg.Epochs,
		Progress:    t.progress.Entries(),
		Activations: append(domain.ActivationSnapshot(nil), t.activations...),
		Err:         t.lastErr,
	}
}

// SkipAnimation cuts the current training animation pass short.
func (t *Trainer) SkipAnimation() bool {
	if t.deps.Animator == nil {
		return false
	}
	return t.deps.Animator.RequestSkip()
}

// acquire moves the trainer to validating and returns the state it left.
func (t *Trainer) acquire() (domain.RunState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Active() {
		return "", false
	}
	previous := t.state
	t.state = domain.StateValidating
	return previous, true
}

// begin drops the previous run's log and assigns a new run id.
func (t *Trainer) begin() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runID = t.deps.IDs.New()
	t.progress.Reset()
	t.activations = nil
	t.lastErr = nil
	return t.runID
}

func (t *Trainer) setState(state domain.RunState) {
	t.mu.Lock()
	t.state = state
	t.mu.Unlock()
}

func (t *Trainer) finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.state = domain.StateFailed
		t.lastErr = err
		return
	}
	t.state = domain.StateCompleted
}

// validate reads the dataset and keeps the non-empty categories in order.
func (t *Trainer) validate(ctx context.Context) ([]domain.LabeledSamples, error) {
	sets, err := t.deps.Dataset.Snapshot(ctx)
	if err != nil {
		return nil, apperrors.AtStage(string(domain.StateValidating), err)
	}
	sets = nonEmpty(sets)
	if len(sets) < 2 {
		return nil, apperrors.AtStage(string(domain.StateValidating),
			fmt.Errorf("%w: found %d", apperrors.ErrInsufficientCategories, len(sets)))
	}
	return sets, nil
}

func (t *Trainer) run(ctx context.Context, runID string, logger hclog.Logger, sets []domain.LabeledSamples) (domain.RunSummary, error) {
	categories := make([]string, len(sets))
	for i, set := range sets {
		categories[i] = set.Label
	}

	t.setState(domain.StateBuildingTensors)
	scope := &tensorScope{}
	defer scope.release()
	x, y, probeInput, samples, err := t.buildTensors(scope, sets)
	if err != nil {
		return domain.RunSummary{}, apperrors.AtStage(string(domain.StateBuildingTensors), err)
	}
	logger.Debug("tensors ready", "samples", samples, "live", t.deps.Engine.LiveTensors())
	t.publishPhase(runID, domain.PhaseCreatedTensors, nil)

	t.setState(domain.StateTraining)
	pair, err := t.deps.Builder.Build(len(categories))
	if err != nil {
		return domain.RunSummary{}, apperrors.AtStage(string(domain.StateTraining), err)
	}
	installed := false
	defer func() {
		if !installed {
			pair.Dispose()
		}
	}()
	t.publishPhase(runID, domain.PhaseTraining, nil)

	err = pair.Model.Fit(ctx, x, y, classifierout.FitConfig{
		Epochs:    t.cfg.Epochs,
		BatchSize: t.cfg.BatchSize,
		Shuffle:   t.cfg.Shuffle,
		OnEpochEnd: func(epoch int, metrics classifierout.Metrics) error {
			return t.endEpoch(ctx, runID, pair.Probe, probeInput, epoch, metrics)
		},
	})
	if err != nil {
		return domain.RunSummary{}, apperrors.AtStage(string(domain.StateTraining), err)
	}

	status := t.Status()
	var final domain.Progress
	if len(status.Progress) > 0 {
		final = status.Progress[len(status.Progress)-1]
	}
	trainedAt := t.deps.Clock.Now()
	t.deps.Registry.Install(InstalledModel{
		Pair:       pair,
		Categories: categories,
		RunID:      runID,
		TrainedAt:  trainedAt,
		Final:      final,
	})
	installed = true
	return domain.RunSummary{
		RunID:      runID,
		Categories: categories,
		Samples:    samples,
		Progress:   status.Progress,
		TrainedAt:  trainedAt,
	}, nil
}

// buildTensors stacks every sample into x, one-hot labels into y and keeps
// a single-item batch of the first sample for activation probing.
func (t *Trainer) buildTensors(scope *tensorScope, sets []domain.LabeledSamples) (x, y, probeInput classifierout.Tensor, samples int, err error) {
	items := &tensorScope{}
	defer items.release()
	var encoded []classifierout.Tensor
	var indices []int
	for classIndex, set := range sets {
		for i, payload := range set.Payloads {
			tensor, err := t.deps.Preprocessor.Encode(payload)
			if err != nil {
				return nil, nil, nil, 0, fmt.Errorf("category %q sample %d: %w", set.Label, i+1, err)
			}
			encoded = append(encoded, items.track(tensor))
			indices = append(indices, classIndex)
		}
	}
	x, err = t.deps.Engine.Stack(encoded)
	if err != nil {
		return nil, nil, nil, 0, err
	}
	scope.track(x)
	y, err = t.deps.Engine.OneHot(indices, len(sets))
	if err != nil {
		return nil, nil, nil, 0, err
	}
	scope.track(y)
	probeInput, err = t.deps.Engine.ExpandDims(encoded[0])
	if err != nil {
		return nil, nil, nil, 0, err
	}
	scope.track(probeInput)
	return x, y, probeInput, len(encoded), nil
}

func (t *Trainer) endEpoch(ctx context.Context, runID string, probe classifierout.ProbeView, input classifierout.Tensor, epoch int, metrics classifierout.Metrics) error {
	activations, err := t.deps.Sampler.Sample(probe, input)
	if err != nil {
		return err
	}
	event := EpochEvent{
		RunID:       runID,
		Epochs:      t.cfg.Epochs,
		Progress:    domain.Progress{Epoch: epoch + 1, Loss: metrics.Loss, Accuracy: metrics.Accuracy},
		Activations: activations,
	}
	for _, subscriber := range t.subscribers {
		if err := subscriber.OnEpoch(ctx, event); err != nil {
			return err
		}
	}
	runtime.Gosched()
	return ctx.Err()
}

func (t *Trainer) record(_ context.Context, event EpochEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.progress.Append(event.Progress)
	t.activations = event.Activations
	t.deps.Logger.Info("epoch finished", "run", event.RunID, "epoch", event.Progress.Epoch,
		"loss", event.Progress.Loss, "accuracy", event.Progress.Accuracy)
	return nil
}

func (t *Trainer) publishPhase(runID string, phase domain.Phase, err error) {
	t.deps.Sink.Publish(domain.Event{
		Kind:   domain.EventPhase,
		Phase:  phase,
		RunID:  runID,
		At:     t.deps.Clock.Now(),
		Epochs: t.cfg.Epochs,
		Err:    err,
	})
}

func nonEmpty(sets []domain.LabeledSamples) []domain.LabeledSamples {
	out := make([]domain.LabeledSamples, 0, len(sets))
	for _, set := range sets {
		if len(set.Payloads) > 0 {
			out = append(out, set)
		}
	}
	return out
}
