package out

import (
	"context"

	"drawclass/internal/modules/classifier/domain"
)

// Tensor is engine-owned memory. Dispose is idempotent.
type Tensor interface {
	Shape() []int
	Values() []float64
	Dispose()
}

type Metrics struct {
	Loss     float64
	Accuracy float64
}

type FitConfig struct {
	Epochs    int
	BatchSize int
	Shuffle   bool
	// OnEpochEnd receives the zero-based epoch; an error stops training and
	// is returned from Fit unchanged.
	OnEpochEnd func(epoch int, metrics Metrics) error
}

type Model interface {
	Fit(ctx context.Context, x, y Tensor, cfg FitConfig) error
	Predict(x Tensor) (Tensor, error)
	Dispose()
}

// ProbeView exposes every layer output of the model it was built with.
type ProbeView interface {
	LayerNames() []string
	Outputs(x Tensor) ([]Tensor, error)
}

// ModelPair is a model and the probe sharing its weights. They are created,
// installed and released together.
type ModelPair struct {
	Model Model
	Probe ProbeView
}

func (p ModelPair) Dispose() {
	if p.Model != nil {
		p.Model.Dispose()
	}
}

type Engine interface {
	FromPixels(shape []int, values []float64) (Tensor, error)
	Stack(items []Tensor) (Tensor, error)
	OneHot(indices []int, depth int) (Tensor, error)
	ExpandDims(t Tensor) (Tensor, error)
	Compile(arch domain.Architecture) (ModelPair, error)
	LiveTensors() int
}

type Preprocessor interface {
	Encode(payload string) (Tensor, error)
}
