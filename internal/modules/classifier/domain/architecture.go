package domain

import (
	"fmt"

	apperrors "drawclass/internal/platform/errors"
)

const Channels = 3

type LayerKind string

const (
	LayerConv2D    LayerKind = "conv2d"
	LayerMaxPool2D LayerKind = "max_pooling2d"
	LayerFlatten   LayerKind = "flatten"
	LayerDense     LayerKind = "dense"
)

type LayerSpec struct {
	Kind       LayerKind
	Name       string
	Filters    int
	Kernel     int
	Pool       int
	Units      int
	Activation string
}

// Architecture is everything an engine needs to compile a model.
type Architecture struct {
	InputShape   []int
	Layers       []LayerSpec
	Optimizer    string
	LearningRate float64
	Loss         string
	Metric       string
	Seed         uint64
}

// Classifier returns the fixed drawing classifier for numClasses categories
// over square RGB images of side imageSize.
func Classifier(numClasses, imageSize int, learningRate float64) (Architecture, error) {
	if numClasses < 2 {
		return Architecture{}, fmt.Errorf("%w: need at least 2 classes, got %d", apperrors.ErrConfig, numClasses)
	}
	if learningRate <= 0 {
		return Architecture{}, fmt.Errorf("%w: learning rate must be positive", apperrors.ErrConfig)
	}
	side := imageSize
	for block := 0; block < 2; block++ {
		side = (side - 2) / 2
		if side < 1 {
			return Architecture{}, fmt.Errorf("%w: image size %d is too small for two conv blocks", apperrors.ErrConfig, imageSize)
		}
	}
	return Architecture{
		InputShape: []int{imageSize, imageSize, Channels},
		Layers: []LayerSpec{
			{Kind: LayerConv2D, Name: "conv2d_1", Filters: 16, Kernel: 3, Activation: "relu"},
			{Kind: LayerMaxPool2D, Name: "max_pooling2d_1", Pool: 2},
			{Kind: LayerConv2D, Name: "conv2d_2", Filters: 32, Kernel: 3, Activation: "relu"},
			{Kind: LayerMaxPool2D, Name: "max_pooling2d_2", Pool: 2},
			{Kind: LayerFlatten, Name: "flatten"},
			{Kind: LayerDense, Name: "dense_1", Units: 64, Activation: "relu"},
			{Kind: LayerDense, Name: "dense_2", Units: numClasses, Activation: "softmax"},
		},
		Optimizer:    "adam",
		LearningRate: learningRate,
		Loss:         "categorical_crossentropy",
		Metric:       "accuracy",
	}, nil
}
