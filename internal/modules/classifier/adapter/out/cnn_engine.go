package out

import (
	"context"
	"errors"
	"fmt"

	"drawclass/internal/engine"
	"drawclass/internal/modules/classifier/domain"
	classifierout "drawclass/internal/modules/classifier/port/out"
	apperrors "drawclass/internal/platform/errors"
)

// CNNEngine backs the classifier with the in-process engine package.
type CNNEngine struct {
	pool    *engine.Pool
	workers int
}

func NewCNNEngine(pool *engine.Pool, workers int) *CNNEngine {
	return &CNNEngine{pool: pool, workers: workers}
}

func (e *CNNEngine) FromPixels(shape []int, values []float64) (classifierout.Tensor, error) {
	t, err := e.pool.FromValues(shape, values)
	if err != nil {
		return nil, engineError(err)
	}
	return t, nil
}

func (e *CNNEngine) Stack(items []classifierout.Tensor) (classifierout.Tensor, error) {
	raw := make([]*engine.Tensor, len(items))
	for i, item := range items {
		t, err := unwrap(item)
		if err != nil {
			return nil, err
		}
		raw[i] = t
	}
	t, err := e.pool.Stack(raw)
	if err != nil {
		return nil, engineError(err)
	}
	return t, nil
}

func (e *CNNEngine) OneHot(indices []int, depth int) (classifierout.Tensor, error) {
	t, err := e.pool.OneHot(indices, depth)
	if err != nil {
		return nil, engineError(err)
	}
	return t, nil
}

func (e *CNNEngine) ExpandDims(t classifierout.Tensor) (classifierout.Tensor, error) {
	raw, err := unwrap(t)
	if err != nil {
		return nil, err
	}
	out, err := e.pool.ExpandDims(raw)
	if err != nil {
		return nil, engineError(err)
	}
	return out, nil
}

func (e *CNNEngine) LiveTensors() int {
	return e.pool.Live()
}

func (e *CNNEngine) Compile(arch domain.Architecture) (classifierout.ModelPair, error) {
	if arch.Optimizer != "adam" || arch.Loss != "categorical_crossentropy" || arch.Metric != "accuracy" {
		return classifierout.ModelPair{}, fmt.Errorf("%w: engine supports adam with categorical cross-entropy and accuracy, got %s/%s/%s",
			apperrors.ErrConfig, arch.Optimizer, arch.Loss, arch.Metric)
	}
	layers := make([]engine.LayerConfig, len(arch.Layers))
	for i, spec := range arch.Layers {
		activation := engine.Activation(spec.Activation)
		if activation == "" {
			activation = engine.Linear
		}
		layers[i] = engine.LayerConfig{
			Kind:       engine.Kind(spec.Kind),
			Name:       spec.Name,
			Filters:    spec.Filters,
			Kernel:     spec.Kernel,
			Pool:       spec.Pool,
			Units:      spec.Units,
			Activation: activation,
		}
	}
	model, err := engine.NewSequential(e.pool, engine.Options{
		InputShape:   arch.InputShape,
		Layers:       layers,
		LearningRate: arch.LearningRate,
		Seed:         arch.Seed,
		Workers:      e.workers,
	})
	if err != nil {
		return classifierout.ModelPair{}, fmt.Errorf("%w: %v", apperrors.ErrConfig, err)
	}
	return classifierout.ModelPair{
		Model: &cnnModel{seq: model},
		Probe: &cnnProbe{probe: model.Probe()},
	}, nil
}

type cnnModel struct {
	seq *engine.Sequential
}

// callbackError carries an OnEpochEnd failure through the engine untouched.
type callbackError struct {
	err error
}

func (e callbackError) Error() string { return e.err.Error() }

func (m *cnnModel) Fit(ctx context.Context, x, y classifierout.Tensor, cfg classifierout.FitConfig) error {
	xs, err := unwrap(x)
	if err != nil {
		return err
	}
	ys, err := unwrap(y)
	if err != nil {
		return err
	}
	err = m.seq.Fit(ctx, xs, ys, engine.FitConfig{
		Epochs:    cfg.Epochs,
		BatchSize: cfg.BatchSize,
		Shuffle:   cfg.Shuffle,
		OnEpochEnd: func(epoch int, logs engine.EpochLogs) error {
			if cfg.OnEpochEnd == nil {
				return nil
			}
			if err := cfg.OnEpochEnd(epoch, classifierout.Metrics{Loss: logs.Loss, Accuracy: logs.Accuracy}); err != nil {
				return callbackError{err: err}
			}
			return nil
		},
	})
	if err == nil {
		return nil
	}
	var cbErr callbackError
	if errors.As(err, &cbErr) {
		return cbErr.err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return engineError(err)
}

func (m *cnnModel) Predict(x classifierout.Tensor) (classifierout.Tensor, error) {
	xs, err := unwrap(x)
	if err != nil {
		return nil, err
	}
	out, err := m.seq.Predict(xs)
	if err != nil {
		return nil, engineError(err)
	}
	return out, nil
}

func (m *cnnModel) Dispose() {
	m.seq.Dispose()
}

type cnnProbe struct {
	probe *engine.Probe
}

func (p *cnnProbe) LayerNames() []string {
	return p.probe.LayerNames()
}

func (p *cnnProbe) Outputs(x classifierout.Tensor) ([]classifierout.Tensor, error) {
	xs, err := unwrap(x)
	if err != nil {
		return nil, err
	}
	outputs, err := p.probe.Outputs(xs)
	if err != nil {
		return nil, engineError(err)
	}
	views := make([]classifierout.Tensor, len(outputs))
	for i, output := range outputs {
		views[i] = output
	}
	return views, nil
}

func unwrap(t classifierout.Tensor) (*engine.Tensor, error) {
	raw, ok := t.(*engine.Tensor)
	if !ok || raw == nil {
		return nil, fmt.Errorf("%w: tensor %T was not created by this engine", apperrors.ErrEngine, t)
	}
	return raw, nil
}

func engineError(err error) error {
	return fmt.Errorf("%w: %w", apperrors.ErrEngine, err)
}
