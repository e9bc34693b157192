package engine

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

type Kind string

const (
	KindConv2D    Kind = "conv2d"
	KindMaxPool2D Kind = "max_pooling2d"
	KindFlatten   Kind = "flatten"
	KindDense     Kind = "dense"
)

type Activation string

const (
	Linear  Activation = "linear"
	ReLU    Activation = "relu"
	Softmax Activation = "softmax"
)

// LayerConfig describes one stage of a Sequential model.
type LayerConfig struct {
	Kind       Kind
	Name       string
	Filters    int
	Kernel     int
	Pool       int
	Units      int
	Activation Activation
}

type param struct {
	w []float64
	m []float64
	v []float64
}

func newParam(size int) *param {
	return &param{w: make([]float64, size), m: make([]float64, size), v: make([]float64, size)}
}

// layer works on one sample at a time. backward receives the gradient with
// respect to the layer output (for a softmax layer: with respect to its
// logits), accumulates parameter gradients into grads and writes the input
// gradient into dIn unless dIn is nil.
type layer interface {
	name() string
	outShape() []int
	params() []*param
	forward(in, out []float64)
	backward(in, out, dOut, dIn []float64, grads [][]float64)
}

func buildLayer(cfg LayerConfig, in []int, rng *rand.Rand) (layer, error) {
	switch cfg.Kind {
	case KindConv2D:
		return newConv2D(cfg, in, rng)
	case KindMaxPool2D:
		return newMaxPool2D(cfg, in)
	case KindFlatten:
		size, err := volume(in)
		if err != nil {
			return nil, err
		}
		return &flatten{label: cfg.Name, size: size}, nil
	case KindDense:
		return newDense(cfg, in, rng)
	default:
		return nil, fmt.Errorf("%w: layer kind %q", ErrUnsupported, cfg.Kind)
	}
}

// glorot fills w from the Glorot uniform distribution.
func glorot(w []float64, fanIn, fanOut int, rng *rand.Rand) {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	for i := range w {
		w[i] = (rng.Float64()*2 - 1) * limit
	}
}

func relu(x []float64) {
	for i, v := range x {
		if v < 0 {
			x[i] = 0
		}
	}
}

func reluMask(out, dOut []float64) []float64 {
	masked := make([]float64, len(dOut))
	for i, v := range out {
		if v > 0 {
			masked[i] = dOut[i]
		}
	}
	return masked
}

func softmax(x []float64) {
	peak := floats.Max(x)
	var sum float64
	for i, v := range x {
		x[i] = math.Exp(v - peak)
		sum += x[i]
	}
	floats.Scale(1/sum, x)
}

func zero(x []float64) {
	for i := range x {
		x[i] = 0
	}
}

func checkActivation(cfg LayerConfig, allowed ...Activation) (Activation, error) {
	act := cfg.Activation
	if act == "" {
		act = Linear
	}
	for _, a := range allowed {
		if a == act {
			return act, nil
		}
	}
	return "", fmt.Errorf("%w: activation %q on %s", ErrUnsupported, cfg.Activation, cfg.Kind)
}

// ─── conv2d ──────────────────────────────────────────────────────────────────

// conv2D is a stride-one convolution with valid padding over HWC input.
type conv2D struct {
	label         string
	inH, inW, inC int
	outH, outW    int
	k, filters    int
	act           Activation
	kernel, bias  *param
}

func newConv2D(cfg LayerConfig, in []int, rng *rand.Rand) (*conv2D, error) {
	if len(in) != 3 {
		return nil, fmt.Errorf("%w: conv2d %s needs HWC input, got %v", ErrShape, cfg.Name, in)
	}
	act, err := checkActivation(cfg, Linear, ReLU)
	if err != nil {
		return nil, err
	}
	if cfg.Kernel <= 0 || cfg.Filters <= 0 {
		return nil, fmt.Errorf("%w: conv2d %s kernel %d filters %d", ErrShape, cfg.Name, cfg.Kernel, cfg.Filters)
	}
	c := &conv2D{
		label: cfg.Name, inH: in[0], inW: in[1], inC: in[2],
		outH: in[0] - cfg.Kernel + 1, outW: in[1] - cfg.Kernel + 1,
		k: cfg.Kernel, filters: cfg.Filters, act: act,
	}
	if c.outH <= 0 || c.outW <= 0 {
		return nil, fmt.Errorf("%w: conv2d %s input %v smaller than kernel %d", ErrShape, cfg.Name, in, cfg.Kernel)
	}
	c.kernel = newParam(c.k * c.k * c.inC * c.filters)
	c.bias = newParam(c.filters)
	glorot(c.kernel.w, c.k*c.k*c.inC, c.k*c.k*c.filters, rng)
	return c, nil
}

func (c *conv2D) name() string     { return c.label }
func (c *conv2D) outShape() []int  { return []int{c.outH, c.outW, c.filters} }
func (c *conv2D) params() []*param { return []*param{c.kernel, c.bias} }

func (c *conv2D) forward(in, out []float64) {
	f := c.filters
	for oy := 0; oy < c.outH; oy++ {
		for ox := 0; ox < c.outW; ox++ {
			pos := (oy*c.outW + ox) * f
			o := out[pos : pos+f]
			copy(o, c.bias.w)
			for ky := 0; ky < c.k; ky++ {
				for kx := 0; kx < c.k; kx++ {
					base := ((oy+ky)*c.inW + ox + kx) * c.inC
					wbase := (ky*c.k + kx) * c.inC * f
					for ch := 0; ch < c.inC; ch++ {
						x := in[base+ch]
						if x == 0 {
							continue
						}
						floats.AddScaled(o, x, c.kernel.w[wbase+ch*f:wbase+(ch+1)*f])
					}
				}
			}
			if c.act == ReLU {
				relu(o)
			}
		}
	}
}

func (c *conv2D) backward(in, out, dOut, dIn []float64, grads [][]float64) {
	f := c.filters
	d := dOut
	if c.act == ReLU {
		d = reluMask(out, dOut)
	}
	gk, gb := grads[0], grads[1]
	if dIn != nil {
		zero(dIn)
	}
	for oy := 0; oy < c.outH; oy++ {
		for ox := 0; ox < c.outW; ox++ {
			pos := (oy*c.outW + ox) * f
			g := d[pos : pos+f]
			floats.Add(gb, g)
			for ky := 0; ky < c.k; ky++ {
				for kx := 0; kx < c.k; kx++ {
					base := ((oy+ky)*c.inW + ox + kx) * c.inC
					wbase := (ky*c.k + kx) * c.inC * f
					for ch := 0; ch < c.inC; ch++ {
						lo, hi := wbase+ch*f, wbase+(ch+1)*f
						if x := in[base+ch]; x != 0 {
							floats.AddScaled(gk[lo:hi], x, g)
						}
						if dIn != nil {
							dIn[base+ch] += floats.Dot(c.kernel.w[lo:hi], g)
						}
					}
				}
			}
		}
	}
}

// ─── max_pooling2d ───────────────────────────────────────────────────────────

type maxPool2D struct {
	label         string
	inH, inW, inC int
	outH, outW    int
	size          int
}

func newMaxPool2D(cfg LayerConfig, in []int) (*maxPool2D, error) {
	if len(in) != 3 {
		return nil, fmt.Errorf("%w: max_pooling2d %s needs HWC input, got %v", ErrShape, cfg.Name, in)
	}
	if cfg.Pool <= 0 {
		return nil, fmt.Errorf("%w: max_pooling2d %s pool %d", ErrShape, cfg.Name, cfg.Pool)
	}
	p := &maxPool2D{label: cfg.Name, inH: in[0], inW: in[1], inC: in[2], size: cfg.Pool}
	p.outH, p.outW = p.inH/p.size, p.inW/p.size
	if p.outH <= 0 || p.outW <= 0 {
		return nil, fmt.Errorf("%w: max_pooling2d %s input %v smaller than pool %d", ErrShape, cfg.Name, in, cfg.Pool)
	}
	return p, nil
}

func (p *maxPool2D) name() string     { return p.label }
func (p *maxPool2D) outShape() []int  { return []int{p.outH, p.outW, p.inC} }
func (p *maxPool2D) params() []*param { return nil }

// argmax returns the input offset holding the window maximum for one output cell.
func (p *maxPool2D) argmax(in []float64, oy, ox, ch int) int {
	best := -1
	for dy := 0; dy < p.size; dy++ {
		for dx := 0; dx < p.size; dx++ {
			idx := ((oy*p.size+dy)*p.inW+ox*p.size+dx)*p.inC + ch
			if best < 0 || in[idx] > in[best] {
				best = idx
			}
		}
	}
	return best
}

func (p *maxPool2D) forward(in, out []float64) {
	for oy := 0; oy < p.outH; oy++ {
		for ox := 0; ox < p.outW; ox++ {
			for ch := 0; ch < p.inC; ch++ {
				out[(oy*p.outW+ox)*p.inC+ch] = in[p.argmax(in, oy, ox, ch)]
			}
		}
	}
}

func (p *maxPool2D) backward(in, _, dOut, dIn []float64, _ [][]float64) {
	if dIn == nil {
		return
	}
	zero(dIn)
	for oy := 0; oy < p.outH; oy++ {
		for ox := 0; ox < p.outW; ox++ {
			for ch := 0; ch < p.inC; ch++ {
				dIn[p.argmax(in, oy, ox, ch)] += dOut[(oy*p.outW+ox)*p.inC+ch]
			}
		}
	}
}

// ─── flatten ─────────────────────────────────────────────────────────────────

type flatten struct {
	label string
	size  int
}

func (f *flatten) name() string     { return f.label }
func (f *flatten) outShape() []int  { return []int{f.size} }
func (f *flatten) params() []*param { return nil }

func (f *flatten) forward(in, out []float64) { copy(out, in) }

func (f *flatten) backward(_, _, dOut, dIn []float64, _ [][]float64) {
	if dIn != nil {
		copy(dIn, dOut)
	}
}

// ─── dense ───────────────────────────────────────────────────────────────────

// dense stores its kernel as a units×inputs row-major matrix.
type dense struct {
	label        string
	in, units    int
	act          Activation
	kernel, bias *param
}

func newDense(cfg LayerConfig, in []int, rng *rand.Rand) (*dense, error) {
	if len(in) != 1 {
		return nil, fmt.Errorf("%w: dense %s needs flat input, got %v", ErrShape, cfg.Name, in)
	}
	act, err := checkActivation(cfg, Linear, ReLU, Softmax)
	if err != nil {
		return nil, err
	}
	if cfg.Units <= 0 {
		return nil, fmt.Errorf("%w: dense %s units %d", ErrShape, cfg.Name, cfg.Units)
	}
	d := &dense{label: cfg.Name, in: in[0], units: cfg.Units, act: act}
	d.kernel = newParam(d.units * d.in)
	d.bias = newParam(d.units)
	glorot(d.kernel.w, d.in, d.units, rng)
	return d, nil
}

func (d *dense) name() string     { return d.label }
func (d *dense) outShape() []int  { return []int{d.units} }
func (d *dense) params() []*param { return []*param{d.kernel, d.bias} }

func (d *dense) weights() *mat.Dense {
	return mat.NewDense(d.units, d.in, d.kernel.w)
}

func (d *dense) forward(in, out []float64) {
	y := mat.NewVecDense(d.units, out)
	y.MulVec(d.weights(), mat.NewVecDense(d.in, in))
	floats.Add(out, d.bias.w)
	switch d.act {
	case ReLU:
		relu(out)
	case Softmax:
		softmax(out)
	}
}

func (d *dense) backward(in, out, dOut, dIn []float64, grads [][]float64) {
	g := dOut
	if d.act == ReLU {
		g = reluMask(out, dOut)
	}
	gk, gb := grads[0], grads[1]
	floats.Add(gb, g)
	for u := 0; u < d.units; u++ {
		if g[u] != 0 {
			floats.AddScaled(gk[u*d.in:(u+1)*d.in], g[u], in)
		}
	}
	if dIn != nil {
		x := mat.NewVecDense(d.in, dIn)
		x.MulVec(d.weights().T(), mat.NewVecDense(d.units, g))
	}
}
