package service_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"drawclass/internal/engine"
	classifierout "drawclass/internal/modules/classifier/adapter/out"
	"drawclass/internal/modules/classifier/domain"
	classifierport "drawclass/internal/modules/classifier/port/out"
	"drawclass/internal/modules/classifier/service"
	visualdomain "drawclass/internal/modules/visualization/domain"
	"drawclass/internal/platform/clock"
	"drawclass/internal/platform/id"
	"drawclass/internal/platform/payload"
)

const testImageSize = 12

func solidPNG(t *testing.T, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return payload.FromBytes(buf.Bytes())
}

func catHouse(t *testing.T, perClass int) []domain.LabeledSamples {
	t.Helper()
	red := solidPNG(t, color.RGBA{R: 230, A: 255})
	blue := solidPNG(t, color.RGBA{B: 230, A: 255})
	cat := domain.LabeledSamples{Label: "Cat"}
	house := domain.LabeledSamples{Label: "House"}
	for i := 0; i < perClass; i++ {
		cat.Payloads = append(cat.Payloads, red)
		house.Payloads = append(house.Payloads, blue)
	}
	return []domain.LabeledSamples{cat, house}
}

type staticSource struct {
	mu   sync.Mutex
	sets []domain.LabeledSamples
}

func (s *staticSource) set(sets []domain.LabeledSamples) {
	s.mu.Lock()
	s.sets = sets
	s.mu.Unlock()
}

func (s *staticSource) Snapshot(context.Context) ([]domain.LabeledSamples, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets, nil
}

type recordingSink struct {
	mu      sync.Mutex
	events  []domain.Event
	onEpoch func(domain.Event)
}

func (s *recordingSink) Publish(event domain.Event) {
	s.mu.Lock()
	s.events = append(s.events, event)
	hook := s.onEpoch
	s.mu.Unlock()
	if hook != nil && event.Kind == domain.EventEpoch {
		hook(event)
	}
}

func (s *recordingSink) phases() []domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Phase, 0, len(s.events))
	for _, event := range s.events {
		out = append(out, event.Phase)
	}
	return out
}

type recordingAnimator struct {
	mu     sync.Mutex
	begins []int
	passes int
}

func (a *recordingAnimator) Begin(layerCount int) error {
	a.mu.Lock()
	a.begins = append(a.begins, layerCount)
	a.mu.Unlock()
	return nil
}

func (a *recordingAnimator) StepThrough(_ context.Context, _ time.Duration) (visualdomain.PassResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.passes++
	return visualdomain.PassResult{Visited: a.begins[len(a.begins)-1]}, nil
}

func (a *recordingAnimator) RequestSkip() bool { return false }

type harness struct {
	pool      *engine.Pool
	source    *staticSource
	sink      *recordingSink
	animator  *recordingAnimator
	registry  *service.ModelRegistry
	cnn       *classifierout.CNNEngine
	pre       *classifierout.ImagePreprocessor
	trainer   *service.Trainer
	predictor *service.Predictor
}

func newHarness(t *testing.T, epochs int) *harness {
	t.Helper()
	h := &harness{
		pool:     engine.NewPool(),
		source:   &staticSource{},
		sink:     &recordingSink{},
		animator: &recordingAnimator{},
		registry: service.NewModelRegistry(),
	}
	cnn := classifierout.NewCNNEngine(h.pool, 2)
	pre := classifierout.NewImagePreprocessor(cnn, testImageSize)
	h.cnn, h.pre = cnn, pre
	sampler := service.NewActivationSampler()
	clk := clock.Instant{}
	h.trainer = service.NewTrainer(service.TrainerDeps{
		Clock:        clk,
		IDs:          &id.Sequence{Prefix: "run"},
		Dataset:      h.source,
		Preprocessor: pre,
		Engine:       cnn,
		Builder:      service.NewModelBuilder(cnn, testImageSize, 0.01, 7),
		Sampler:      sampler,
		Registry:     h.registry,
		Animator:     h.animator,
		Sink:         h.sink,
	}, service.TrainingConfig{Epochs: epochs, BatchSize: 4, Shuffle: true})
	h.predictor = service.NewPredictor(service.PredictorDeps{
		Clock:        clk,
		Preprocessor: pre,
		Engine:       cnn,
		Sampler:      sampler,
		Registry:     h.registry,
		Sink:         h.sink,
	}, 0)
	t.Cleanup(h.registry.Close)
	return h
}

// predictorWith builds a predictor sharing the harness model that animates
// through animator.
func (h *harness) predictorWith(animator classifierport.Animator, delay time.Duration) *service.Predictor {
	return service.NewPredictor(service.PredictorDeps{
		Clock:        clock.SystemClock{},
		Preprocessor: h.pre,
		Engine:       h.cnn,
		Sampler:      service.NewActivationSampler(),
		Registry:     h.registry,
		Animator:     animator,
		Sink:         h.sink,
	}, delay)
}
