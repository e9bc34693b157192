package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

const lossEpsilon = 1e-7

type Options struct {
	// InputShape is the per-sample shape, without the batch dimension.
	InputShape   []int
	Layers       []LayerConfig
	LearningRate float64
	// Seed fixes weight initialisation and shuffling; zero picks a random seed.
	Seed uint64
	// Workers bounds the goroutines used per batch; zero means GOMAXPROCS.
	Workers int
}

type EpochLogs struct {
	Loss     float64
	Accuracy float64
}

type FitConfig struct {
	Epochs    int
	BatchSize int
	Shuffle   bool
	// OnEpochEnd runs after every epoch with the zero-based epoch index.
	// Returning an error stops training.
	OnEpochEnd func(epoch int, logs EpochLogs) error
}

// Sequential is a feed-forward stack trained with Adam against categorical
// cross-entropy. Its last layer must be a softmax dense layer.
type Sequential struct {
	pool     *Pool
	input    []int
	layers   []layer
	opt      *adam
	rng      *rand.Rand
	workers  int
	disposed atomic.Bool
}

func NewSequential(pool *Pool, opts Options) (*Sequential, error) {
	if len(opts.Layers) == 0 {
		return nil, fmt.Errorf("%w: model has no layers", ErrUnsupported)
	}
	if _, err := volume(opts.InputShape); err != nil {
		return nil, err
	}
	if opts.LearningRate <= 0 {
		return nil, fmt.Errorf("%w: learning rate %g", ErrUnsupported, opts.LearningRate)
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	s := &Sequential{pool: pool, input: append([]int(nil), opts.InputShape...), opt: newAdam(opts.LearningRate), rng: rng, workers: workers}
	shape := s.input
	for i, cfg := range opts.Layers {
		if cfg.Name == "" {
			cfg.Name = fmt.Sprintf("%s_%d", cfg.Kind, i+1)
		}
		l, err := buildLayer(cfg, shape, rng)
		if err != nil {
			return nil, err
		}
		s.layers = append(s.layers, l)
		shape = l.outShape()
	}
	last, ok := s.layers[len(s.layers)-1].(*dense)
	if !ok || last.act != Softmax {
		return nil, fmt.Errorf("%w: categorical cross-entropy needs a softmax dense output", ErrUnsupported)
	}
	return s, nil
}

func (s *Sequential) LayerNames() []string {
	names := make([]string, len(s.layers))
	for i, l := range s.layers {
		names[i] = l.name()
	}
	return names
}

func (s *Sequential) Classes() int {
	return s.layers[len(s.layers)-1].outShape()[0]
}

// Dispose releases the weights. The model and its probe are unusable afterwards.
func (s *Sequential) Dispose() {
	if s.disposed.CompareAndSwap(false, true) {
		s.layers = nil
	}
}

func (s *Sequential) Fit(ctx context.Context, x, y *Tensor, cfg FitConfig) error {
	if s.disposed.Load() {
		return ErrDisposed
	}
	n, err := s.checkBatch(x)
	if err != nil {
		return err
	}
	if y.Disposed() {
		return ErrDisposed
	}
	if !sameShape(y.shape, []int{n, s.Classes()}) {
		return fmt.Errorf("%w: targets %v, want [%d %d]", ErrShape, y.shape, n, s.Classes())
	}
	if cfg.Epochs <= 0 || cfg.BatchSize <= 0 {
		return fmt.Errorf("%w: epochs %d batch size %d", ErrUnsupported, cfg.Epochs, cfg.BatchSize)
	}

	states := make([]*worker, min(s.workers, cfg.BatchSize, n))
	for i := range states {
		states[i] = s.newWorker()
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if cfg.Shuffle {
			s.rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
		}
		var lossSum float64
		correct := 0
		for start := 0; start < n; start += cfg.BatchSize {
			loss, hits, err := s.trainBatch(x, y, order[start:min(start+cfg.BatchSize, n)], states)
			if err != nil {
				return fmt.Errorf("epoch %d: %w", epoch+1, err)
			}
			lossSum += loss
			correct += hits
		}
		logs := EpochLogs{Loss: lossSum / float64(n), Accuracy: float64(correct) / float64(n)}
		if math.IsNaN(logs.Loss) || math.IsInf(logs.Loss, 0) {
			return fmt.Errorf("epoch %d: loss diverged", epoch+1)
		}
		if cfg.OnEpochEnd != nil {
			if err := cfg.OnEpochEnd(epoch, logs); err != nil {
				return err
			}
		}
	}
	return nil
}

// Predict returns the softmax output for every item of the batch x.
func (s *Sequential) Predict(x *Tensor) (*Tensor, error) {
	outputs, err := s.trace(x, false)
	if err != nil {
		return nil, err
	}
	return outputs[0], nil
}

// Probe returns a view exposing every layer output of this model.
func (s *Sequential) Probe() *Probe {
	return &Probe{model: s}
}

// Probe shares its model's weights; it is never trained on its own.
type Probe struct {
	model *Sequential
}

func (p *Probe) LayerNames() []string {
	return p.model.LayerNames()
}

// Outputs runs x forward and returns one tensor per layer, each shaped
// [batch, layer output...].
func (p *Probe) Outputs(x *Tensor) ([]*Tensor, error) {
	return p.model.trace(x, true)
}

func (s *Sequential) checkBatch(x *Tensor) (int, error) {
	if x.Disposed() {
		return 0, ErrDisposed
	}
	if len(x.shape) != len(s.input)+1 || !sameShape(x.shape[1:], s.input) {
		return 0, fmt.Errorf("%w: input %v, want [batch %v]", ErrShape, x.shape, s.input)
	}
	return x.shape[0], nil
}

// trace runs the batch forward. With all set it returns every layer output,
// otherwise only the final one.
func (s *Sequential) trace(x *Tensor, all bool) ([]*Tensor, error) {
	if s.disposed.Load() {
		return nil, ErrDisposed
	}
	n, err := s.checkBatch(x)
	if err != nil {
		return nil, err
	}
	w := s.newWorker()
	inSize := len(x.data) / n
	collected := make([][]float64, len(s.layers))
	for i, l := range s.layers {
		size, _ := volume(l.outShape())
		collected[i] = make([]float64, 0, size*n)
	}
	for item := 0; item < n; item++ {
		s.forward(w.acts, x.data[item*inSize:(item+1)*inSize])
		for i := range s.layers {
			collected[i] = append(collected[i], w.acts[i+1]...)
		}
	}
	if !all {
		last := len(s.layers) - 1
		return []*Tensor{s.pool.wrap(append([]int{n}, s.layers[last].outShape()...), collected[last])}, nil
	}
	out := make([]*Tensor, len(s.layers))
	for i, l := range s.layers {
		out[i] = s.pool.wrap(append([]int{n}, l.outShape()...), collected[i])
	}
	return out, nil
}

type worker struct {
	acts    [][]float64
	deltas  [][]float64
	grads   [][][]float64
	loss    float64
	correct int
}

func (s *Sequential) newWorker() *worker {
	w := &worker{
		acts:   make([][]float64, len(s.layers)+1),
		deltas: make([][]float64, len(s.layers)+1),
		grads:  make([][][]float64, len(s.layers)),
	}
	inSize, _ := volume(s.input)
	w.deltas[0] = make([]float64, inSize)
	for i, l := range s.layers {
		size, _ := volume(l.outShape())
		w.acts[i+1] = make([]float64, size)
		w.deltas[i+1] = make([]float64, size)
		for _, p := range l.params() {
			w.grads[i] = append(w.grads[i], make([]float64, len(p.w)))
		}
	}
	return w
}

func (w *worker) reset() {
	w.loss, w.correct = 0, 0
	for _, layerGrads := range w.grads {
		for _, g := range layerGrads {
			zero(g)
		}
	}
}

func (s *Sequential) forward(acts [][]float64, sample []float64) {
	acts[0] = sample
	for i, l := range s.layers {
		l.forward(acts[i], acts[i+1])
	}
}

func (s *Sequential) backward(w *worker, target []float64) {
	last := len(s.layers)
	floats.SubTo(w.deltas[last], w.acts[last], target)
	for i := last - 1; i >= 0; i-- {
		var dIn []float64
		if i > 0 {
			dIn = w.deltas[i]
		}
		s.layers[i].backward(w.acts[i], w.acts[i+1], w.deltas[i+1], dIn, w.grads[i])
	}
}

func (s *Sequential) trainBatch(x, y *Tensor, batch []int, states []*worker) (float64, int, error) {
	inSize := len(x.data) / x.shape[0]
	classes := s.Classes()
	active := min(len(states), len(batch))

	var g errgroup.Group
	for wi := 0; wi < active; wi++ {
		w := states[wi]
		w.reset()
		g.Go(func() error {
			for j := wi; j < len(batch); j += active {
				item := batch[j]
				target := y.data[item*classes : (item+1)*classes]
				s.forward(w.acts, x.data[item*inSize:(item+1)*inSize])
				probs := w.acts[len(s.layers)]
				w.loss += crossEntropy(probs, target)
				if floats.MaxIdx(probs) == floats.MaxIdx(target) {
					w.correct++
				}
				s.backward(w, target)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}

	total := states[0]
	for _, w := range states[1:active] {
		total.loss += w.loss
		total.correct += w.correct
		for i := range total.grads {
			for p := range total.grads[i] {
				floats.Add(total.grads[i][p], w.grads[i][p])
			}
		}
	}
	scale := 1 / float64(len(batch))
	for i, l := range s.layers {
		for p, prm := range l.params() {
			floats.Scale(scale, total.grads[i][p])
			s.opt.update(prm, total.grads[i][p])
		}
	}
	s.opt.tick()
	return total.loss, total.correct, nil
}

func crossEntropy(probs, target []float64) float64 {
	var loss float64
	for i, t := range target {
		if t != 0 {
			loss -= t * math.Log(max(probs[i], lossEpsilon))
		}
	}
	return loss
}
