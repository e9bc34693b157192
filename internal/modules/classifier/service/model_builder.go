package service

import (
	"fmt"

	"drawclass/internal/modules/classifier/domain"
	classifierout "drawclass/internal/modules/classifier/port/out"
	apperrors "drawclass/internal/platform/errors"
)

type ModelBuilder struct {
	engine       classifierout.Engine
	imageSize    int
	learningRate float64
	seed         uint64
}

func NewModelBuilder(engine classifierout.Engine, imageSize int, learningRate float64, seed uint64) *ModelBuilder {
	return &ModelBuilder{engine: engine, imageSize: imageSize, learningRate: learningRate, seed: seed}
}

// Build compiles a fresh classifier for numClasses outputs together with its
// probe view.
func (b *ModelBuilder) Build(numClasses int) (classifierout.ModelPair, error) {
	arch, err := domain.Classifier(numClasses, b.imageSize, b.learningRate)
	if err != nil {
		return classifierout.ModelPair{}, err
	}
	arch.Seed = b.seed
	pair, err := b.engine.Compile(arch)
	if err != nil {
		return classifierout.ModelPair{}, err
	}
	if pair.Model == nil || pair.Probe == nil {
		pair.Dispose()
		return classifierout.ModelPair{}, fmt.Errorf("%w: compile returned an incomplete model", apperrors.ErrEngine)
	}
	return pair, nil
}
