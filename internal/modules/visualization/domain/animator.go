package domain

import (
	"context"
	"errors"
	"sync"
	"time"

	"drawclass/internal/platform/clock"
)

// NoLayer is the index reported when nothing is highlighted.
const NoLayer = -1

var ErrPassInProgress = errors.New("animation pass already in progress")

// AnimationState is what observers see after every change.
type AnimationState struct {
	Context    string
	Active     int
	LayerCount int
	Skip       bool
}

type Observer interface {
	Observe(state AnimationState)
}

type PassResult struct {
	Visited int
	Skipped bool
}

// SkipSignal carries a skip request from any goroutine to the pass in
// progress. Requests made while no pass is running are dropped.
type SkipSignal struct {
	mu        sync.Mutex
	armed     bool
	requested bool
	wake      chan struct{}
}

func NewSkipSignal() *SkipSignal {
	return &SkipSignal{wake: make(chan struct{}, 1)}
}

// Request reports whether the request reached a running pass.
func (s *SkipSignal) Request() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.armed {
		return false
	}
	s.requested = true
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

func (s *SkipSignal) Requested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requested
}

func (s *SkipSignal) arm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = true
}

// reset disarms the signal and drops any pending request.
func (s *SkipSignal) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = false
	s.requested = false
	select {
	case <-s.wake:
	default:
	}
}

// Animator highlights layers one at a time with a delay between steps.
type Animator struct {
	name     string
	clock    clock.Clock
	skip     *SkipSignal
	observer Observer

	mu       sync.Mutex
	active   int
	count    int
	claimed  bool
	stepping bool
}

func NewAnimator(name string, clk clock.Clock, observer Observer) *Animator {
	return &Animator{name: name, clock: clk, skip: NewSkipSignal(), observer: observer, active: NoLayer}
}

// Begin claims the animator for a pass over layerCount layers. While another
// pass holds the claim it returns ErrPassInProgress and changes nothing.
func (a *Animator) Begin(layerCount int) error {
	a.mu.Lock()
	if a.claimed || a.stepping {
		a.mu.Unlock()
		return ErrPassInProgress
	}
	a.claimed = true
	a.active = NoLayer
	a.count = max(layerCount, 0)
	a.mu.Unlock()
	a.skip.reset()
	a.notify()
	return nil
}

// StepThrough highlights layers 0..n-1, waiting delay after each. A skip
// request stops the pass before the next step.
func (a *Animator) StepThrough(ctx context.Context, delay time.Duration) (PassResult, error) {
	a.mu.Lock()
	if a.stepping {
		a.mu.Unlock()
		return PassResult{}, ErrPassInProgress
	}
	a.stepping = true
	count := a.count
	a.mu.Unlock()
	a.skip.arm()

	result := PassResult{}
	defer func() {
		a.skip.reset()
		a.mu.Lock()
		a.active = NoLayer
		a.claimed = false
		a.stepping = false
		a.mu.Unlock()
		a.notify()
	}()

	for i := 0; i < count; i++ {
		if a.skip.Requested() {
			result.Skipped = true
			return result, nil
		}
		a.mu.Lock()
		a.active = i
		a.mu.Unlock()
		a.notify()
		result.Visited++
		if delay <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-a.skip.wake:
		case <-a.clock.After(delay):
		}
	}
	return result, nil
}

func (a *Animator) RequestSkip() bool {
	return a.skip.Request()
}

func (a *Animator) State() AnimationState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return AnimationState{Context: a.name, Active: a.active, LayerCount: a.count, Skip: a.skip.Requested()}
}

func (a *Animator) notify() {
	if a.observer != nil {
		a.observer.Observe(a.State())
	}
}
