package engine_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"drawclass/internal/engine"
)

func smallNet(classes int) []engine.LayerConfig {
	return []engine.LayerConfig{
		{Kind: engine.KindConv2D, Name: "conv_1", Filters: 4, Kernel: 3, Activation: engine.ReLU},
		{Kind: engine.KindMaxPool2D, Name: "pool_1", Pool: 2},
		{Kind: engine.KindFlatten, Name: "flatten"},
		{Kind: engine.KindDense, Name: "hidden", Units: 8, Activation: engine.ReLU},
		{Kind: engine.KindDense, Name: "output", Units: classes, Activation: engine.Softmax},
	}
}

// stripes builds a bright-left or bright-right 8x8x1 image.
func stripes(left bool) []float64 {
	out := make([]float64, 64)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if (x < 4) == left {
				out[y*8+x] = 1
			}
		}
	}
	return out
}

func TestPoolStackOneHotAndDispose(t *testing.T) {
	t.Parallel()
	pool := engine.NewPool()
	a, err := pool.FromValues([]int{2}, []float64{1, 2})
	if err != nil {
		t.Fatalf("from values: %v", err)
	}
	b, err := pool.FromValues([]int{2}, []float64{3, 4})
	if err != nil {
		t.Fatalf("from values: %v", err)
	}
	stacked, err := pool.Stack([]*engine.Tensor{a, b})
	if err != nil {
		t.Fatalf("stack: %v", err)
	}
	if got := stacked.Shape(); len(got) != 2 || got[0] != 2 || got[1] != 2 {
		t.Fatalf("unexpected stacked shape %v", got)
	}
	hot, err := pool.OneHot([]int{1, 0, 2}, 3)
	if err != nil {
		t.Fatalf("one hot: %v", err)
	}
	want := []float64{0, 1, 0, 1, 0, 0, 0, 0, 1}
	for i, v := range hot.Values() {
		if v != want[i] {
			t.Fatalf("one hot value %d = %v, want %v", i, v, want[i])
		}
	}
	if _, err := pool.OneHot([]int{3}, 3); !errors.Is(err, engine.ErrShape) {
		t.Fatalf("expected shape error, got %v", err)
	}
	if pool.Live() != 4 {
		t.Fatalf("expected 4 live tensors, got %d", pool.Live())
	}
	for _, tensor := range []*engine.Tensor{a, b, stacked, hot} {
		tensor.Dispose()
	}
	a.Dispose()
	if pool.Live() != 0 {
		t.Fatalf("expected no live tensors, got %d", pool.Live())
	}
	if _, err := pool.Stack([]*engine.Tensor{a}); !errors.Is(err, engine.ErrDisposed) {
		t.Fatalf("expected disposed error, got %v", err)
	}
}

func TestNewSequentialRejectsTinyInput(t *testing.T) {
	t.Parallel()
	_, err := engine.NewSequential(engine.NewPool(), engine.Options{
		InputShape:   []int{2, 2, 1},
		Layers:       smallNet(2),
		LearningRate: 0.01,
		Seed:         1,
	})
	if !errors.Is(err, engine.ErrShape) {
		t.Fatalf("expected shape error, got %v", err)
	}
}

func TestFitLearnsStripes(t *testing.T) {
	t.Parallel()
	pool := engine.NewPool()
	model, err := engine.NewSequential(pool, engine.Options{
		InputShape:   []int{8, 8, 1},
		Layers:       smallNet(2),
		LearningRate: 0.01,
		Seed:         7,
		Workers:      2,
	})
	if err != nil {
		t.Fatalf("new sequential: %v", err)
	}
	defer model.Dispose()

	var xs []float64
	var labels []int
	for i := 0; i < 8; i++ {
		xs = append(xs, stripes(i%2 == 0)...)
		labels = append(labels, i%2)
	}
	x, err := pool.FromValues([]int{8, 8, 8, 1}, xs)
	if err != nil {
		t.Fatalf("inputs: %v", err)
	}
	defer x.Dispose()
	y, err := pool.OneHot(labels, 2)
	if err != nil {
		t.Fatalf("targets: %v", err)
	}
	defer y.Dispose()

	var history []engine.EpochLogs
	err = model.Fit(context.Background(), x, y, engine.FitConfig{
		Epochs:    40,
		BatchSize: 4,
		Shuffle:   true,
		OnEpochEnd: func(epoch int, logs engine.EpochLogs) error {
			if epoch != len(history) {
				t.Errorf("epoch %d reported out of order", epoch)
			}
			history = append(history, logs)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if len(history) != 40 {
		t.Fatalf("expected 40 epoch callbacks, got %d", len(history))
	}
	if history[len(history)-1].Loss >= history[0].Loss {
		t.Fatalf("loss did not decrease: first %.4f last %.4f", history[0].Loss, history[len(history)-1].Loss)
	}
	if history[len(history)-1].Accuracy < 0.75 {
		t.Fatalf("expected the separable set to be learned, accuracy %.2f", history[len(history)-1].Accuracy)
	}

	probs, err := model.Predict(x)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	defer probs.Dispose()
	values := probs.Values()
	for row := 0; row < 8; row++ {
		sum := values[row*2] + values[row*2+1]
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("row %d probabilities sum to %v", row, sum)
		}
	}
}

func TestProbeOutputsEveryLayer(t *testing.T) {
	t.Parallel()
	pool := engine.NewPool()
	model, err := engine.NewSequential(pool, engine.Options{
		InputShape:   []int{8, 8, 1},
		Layers:       smallNet(3),
		LearningRate: 0.001,
		Seed:         3,
	})
	if err != nil {
		t.Fatalf("new sequential: %v", err)
	}
	x, err := pool.FromValues([]int{1, 8, 8, 1}, stripes(true))
	if err != nil {
		t.Fatalf("input: %v", err)
	}
	outs, err := model.Probe().Outputs(x)
	if err != nil {
		t.Fatalf("outputs: %v", err)
	}
	wantShapes := [][]int{{1, 6, 6, 4}, {1, 3, 3, 4}, {1, 36}, {1, 8}, {1, 3}}
	if len(outs) != len(wantShapes) {
		t.Fatalf("expected %d outputs, got %d", len(wantShapes), len(outs))
	}
	for i, out := range outs {
		got := out.Shape()
		for d := range wantShapes[i] {
			if got[d] != wantShapes[i][d] {
				t.Fatalf("layer %d shape %v, want %v", i, got, wantShapes[i])
			}
		}
		out.Dispose()
	}
	x.Dispose()
	if pool.Live() != 0 {
		t.Fatalf("expected no live tensors, got %d", pool.Live())
	}

	model.Dispose()
	if _, err := model.Probe().Outputs(x); !errors.Is(err, engine.ErrDisposed) {
		t.Fatalf("expected disposed error, got %v", err)
	}
}

func TestFitStopsOnCallbackError(t *testing.T) {
	t.Parallel()
	pool := engine.NewPool()
	model, err := engine.NewSequential(pool, engine.Options{
		InputShape:   []int{8, 8, 1},
		Layers:       smallNet(2),
		LearningRate: 0.001,
		Seed:         5,
	})
	if err != nil {
		t.Fatalf("new sequential: %v", err)
	}
	x, _ := pool.FromValues([]int{2, 8, 8, 1}, append(stripes(true), stripes(false)...))
	y, _ := pool.OneHot([]int{0, 1}, 2)
	stop := errors.New("stop")
	calls := 0
	err = model.Fit(context.Background(), x, y, engine.FitConfig{
		Epochs:    5,
		BatchSize: 16,
		OnEpochEnd: func(int, engine.EpochLogs) error {
			calls++
			return stop
		},
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Fatalf("expected stop after first epoch, got %v after %d calls", err, calls)
	}
}
