package service_test

import (
	"context"
	"errors"
	"testing"

	classifierout "drawclass/internal/modules/classifier/port/out"
	"drawclass/internal/modules/classifier/service"
	apperrors "drawclass/internal/platform/errors"
)

type countedTensor struct {
	values   []float64
	disposed *int
}

func (t *countedTensor) Shape() []int      { return []int{1, len(t.values)} }
func (t *countedTensor) Values() []float64 { return t.values }
func (t *countedTensor) Dispose()          { *t.disposed++ }

type fakeProbe struct {
	names   []string
	outputs [][]float64
	freed   int
}

func (p *fakeProbe) LayerNames() []string { return p.names }

func (p *fakeProbe) Outputs(classifierout.Tensor) ([]classifierout.Tensor, error) {
	out := make([]classifierout.Tensor, len(p.outputs))
	for i, values := range p.outputs {
		out[i] = &countedTensor{values: values, disposed: &p.freed}
	}
	return out, nil
}

func TestActivationSamplerMeansAndDisposes(t *testing.T) {
	t.Parallel()
	probe := &fakeProbe{names: []string{"a", "b"}, outputs: [][]float64{{1, 2, 3}, {0, 0, 4}}}
	snapshot, err := service.NewActivationSampler().Sample(probe, nil)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if len(snapshot) != 2 || snapshot[0].Name != "a" || snapshot[0].Mean != 2 || snapshot[1].Mean != 4.0/3 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
	if probe.freed < 2 {
		t.Fatalf("expected every output disposed, got %d", probe.freed)
	}
}

func TestActivationSamplerDisposesOnMismatch(t *testing.T) {
	t.Parallel()
	probe := &fakeProbe{names: []string{"only"}, outputs: [][]float64{{1}, {2}}}
	if _, err := service.NewActivationSampler().Sample(probe, nil); !errors.Is(err, apperrors.ErrEngine) {
		t.Fatalf("expected engine error, got %v", err)
	}
	if probe.freed != 2 {
		t.Fatalf("expected both outputs disposed, got %d", probe.freed)
	}
}

type fakeModel struct{ disposed int }

func (m *fakeModel) Fit(_ context.Context, _, _ classifierout.Tensor, _ classifierout.FitConfig) error {
	return nil
}
func (m *fakeModel) Predict(classifierout.Tensor) (classifierout.Tensor, error) { return nil, nil }
func (m *fakeModel) Dispose()                                                   { m.disposed++ }

func TestModelRegistrySwapsAndReleases(t *testing.T) {
	t.Parallel()
	registry := service.NewModelRegistry()
	if err := registry.Use(func(service.InstalledModel) error { return nil }); !errors.Is(err, apperrors.ErrModelNotTrained) {
		t.Fatalf("expected model not trained, got %v", err)
	}

	first := &fakeModel{}
	registry.Install(service.InstalledModel{Pair: classifierout.ModelPair{Model: first}, Categories: []string{"Cat", "Sun"}, RunID: "r1"})
	second := &fakeModel{}
	registry.Install(service.InstalledModel{Pair: classifierout.ModelPair{Model: second}, Categories: []string{"House", "Sun"}, RunID: "r2"})
	if first.disposed != 1 || second.disposed != 0 {
		t.Fatalf("expected only the replaced model released: first=%d second=%d", first.disposed, second.disposed)
	}
	err := registry.Use(func(m service.InstalledModel) error {
		if m.RunID != "r2" || m.Categories[0] != "House" {
			t.Errorf("model and categories from different runs: %+v", m)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("use: %v", err)
	}
	registry.Close()
	if second.disposed != 1 {
		t.Fatalf("close should release the installed model")
	}
	if _, ok := registry.Info(); ok {
		t.Fatalf("registry should be empty after close")
	}
}
