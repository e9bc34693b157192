// Package engine is a small CPU implementation of a sequential convolutional
// network: tensors with explicit disposal, conv/pool/dense layers, Adam and a
// categorical cross-entropy training loop.
package engine

import (
	"errors"
	"fmt"
	"sync/atomic"
)

var (
	ErrShape       = errors.New("shape mismatch")
	ErrDisposed    = errors.New("use after dispose")
	ErrUnsupported = errors.New("unsupported configuration")
)

// Tensor is a dense row-major array. Batched tensors carry the batch
// dimension first.
type Tensor struct {
	shape    []int
	data     []float64
	pool     *Pool
	released atomic.Bool
}

func (t *Tensor) Shape() []int {
	return append([]int(nil), t.shape...)
}

// Values exposes the backing slice. It is nil once the tensor is disposed.
func (t *Tensor) Values() []float64 {
	if t.released.Load() {
		return nil
	}
	return t.data
}

func (t *Tensor) Disposed() bool {
	return t.released.Load()
}

// Dispose releases the tensor. Calling it more than once is harmless.
func (t *Tensor) Dispose() {
	if !t.released.CompareAndSwap(false, true) {
		return
	}
	t.data = nil
	if t.pool != nil {
		t.pool.live.Add(-1)
	}
}

// Pool creates tensors and counts the ones not yet disposed.
type Pool struct {
	live atomic.Int64
}

func NewPool() *Pool {
	return &Pool{}
}

// Live reports how many tensors created by the pool are still alive.
func (p *Pool) Live() int {
	return int(p.live.Load())
}

// FromValues wraps values (taking ownership) as a tensor of the given shape.
func (p *Pool) FromValues(shape []int, values []float64) (*Tensor, error) {
	size, err := volume(shape)
	if err != nil {
		return nil, err
	}
	if size != len(values) {
		return nil, fmt.Errorf("%w: shape %v needs %d values, got %d", ErrShape, shape, size, len(values))
	}
	return p.wrap(shape, values), nil
}

func (p *Pool) Zeros(shape []int) (*Tensor, error) {
	size, err := volume(shape)
	if err != nil {
		return nil, err
	}
	return p.wrap(shape, make([]float64, size)), nil
}

// Stack joins same-shaped tensors along a new leading batch dimension.
func (p *Pool) Stack(items []*Tensor) (*Tensor, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: stack needs at least one tensor", ErrShape)
	}
	first := items[0].shape
	per := len(items[0].data)
	data := make([]float64, 0, per*len(items))
	for i, item := range items {
		if item.Disposed() {
			return nil, fmt.Errorf("%w: stack item %d", ErrDisposed, i)
		}
		if !sameShape(first, item.shape) {
			return nil, fmt.Errorf("%w: stack item %d has shape %v, want %v", ErrShape, i, item.shape, first)
		}
		data = append(data, item.data...)
	}
	shape := append([]int{len(items)}, first...)
	return p.wrap(shape, data), nil
}

// OneHot encodes class indices as rows of width depth.
func (p *Pool) OneHot(indices []int, depth int) (*Tensor, error) {
	if depth <= 0 {
		return nil, fmt.Errorf("%w: one-hot depth %d", ErrShape, depth)
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("%w: one-hot needs at least one index", ErrShape)
	}
	data := make([]float64, len(indices)*depth)
	for row, index := range indices {
		if index < 0 || index >= depth {
			return nil, fmt.Errorf("%w: index %d outside depth %d", ErrShape, index, depth)
		}
		data[row*depth+index] = 1
	}
	return p.wrap([]int{len(indices), depth}, data), nil
}

// ExpandDims returns a copy of t with a leading batch dimension of one.
func (p *Pool) ExpandDims(t *Tensor) (*Tensor, error) {
	if t.Disposed() {
		return nil, ErrDisposed
	}
	data := append([]float64(nil), t.data...)
	return p.wrap(append([]int{1}, t.shape...), data), nil
}

func (p *Pool) wrap(shape []int, data []float64) *Tensor {
	p.live.Add(1)
	return &Tensor{shape: append([]int(nil), shape...), data: data, pool: p}
}

func volume(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, fmt.Errorf("%w: empty shape", ErrShape)
	}
	size := 1
	for _, d := range shape {
		if d <= 0 {
			return 0, fmt.Errorf("%w: non-positive dimension in %v", ErrShape, shape)
		}
		size *= d
	}
	return size, nil
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
