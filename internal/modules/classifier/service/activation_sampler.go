package service

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"drawclass/internal/modules/classifier/domain"
	classifierout "drawclass/internal/modules/classifier/port/out"
	apperrors "drawclass/internal/platform/errors"
)

type ActivationSampler struct{}

func NewActivationSampler() *ActivationSampler {
	return &ActivationSampler{}
}

// Sample runs input, a single-item batch, through the probe and reduces
// each layer output to its mean. Every layer output is disposed before
// Sample returns.
func (s *ActivationSampler) Sample(probe classifierout.ProbeView, input classifierout.Tensor) (domain.ActivationSnapshot, error) {
	outputs, err := probe.Outputs(input)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, output := range outputs {
			output.Dispose()
		}
	}()
	names := probe.LayerNames()
	if len(names) != len(outputs) {
		return nil, fmt.Errorf("%w: probe returned %d outputs for %d layers", apperrors.ErrEngine, len(outputs), len(names))
	}
	snapshot := make(domain.ActivationSnapshot, len(outputs))
	for i, output := range outputs {
		values := output.Values()
		if len(values) == 0 {
			return nil, fmt.Errorf("%w: layer %s produced no values", apperrors.ErrEngine, names[i])
		}
		snapshot[i] = domain.LayerActivation{Name: names[i], Mean: stat.Mean(values, nil)}
		output.Dispose()
	}
	return snapshot, nil
}
