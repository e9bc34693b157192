package domain

import (
	"cmp"
	"fmt"
	"slices"

	apperrors "drawclass/internal/platform/errors"
)

// InferenceStages are the layers highlighted while classifying one capture.
var InferenceStages = []string{"input", "features", "output"}

type LayerActivation struct {
	Name string
	Mean float64
}

// ActivationSnapshot holds one mean activation per layer, in layer order.
type ActivationSnapshot []LayerActivation

type Score struct {
	Label       string
	Probability float64
}

// Prediction is sorted by descending probability.
type Prediction []Score

func (p Prediction) Top() (Score, bool) {
	if len(p) == 0 {
		return Score{}, false
	}
	return p[0], true
}

// Rank pairs probabilities with the labels of the same index and sorts them.
func Rank(labels []string, probabilities []float64) (Prediction, error) {
	if len(labels) != len(probabilities) {
		return nil, fmt.Errorf("%w: %d outputs for %d categories", apperrors.ErrEngine, len(probabilities), len(labels))
	}
	out := make(Prediction, len(labels))
	for i, label := range labels {
		out[i] = Score{Label: label, Probability: probabilities[i]}
	}
	slices.SortStableFunc(out, func(a, b Score) int {
		return cmp.Compare(b.Probability, a.Probability)
	})
	return out, nil
}
