package report_test

import (
	"strings"
	"testing"
	"time"

	classifierdto "drawclass/internal/modules/classifier/dto"
	"drawclass/internal/ui/views/report"
)

func TestMarkdownWithoutRun(t *testing.T) {
	t.Parallel()
	out := report.Markdown(nil, "", nil)
	if !strings.Contains(out, "No model has been trained") {
		t.Fatalf("unexpected report: %q", out)
	}
}

func TestMarkdownListsEpochsAndScores(t *testing.T) {
	t.Parallel()
	run := &classifierdto.TrainOutput{
		RunID:      "run1",
		Categories: []string{"Gato", "Ca|sa"},
		Samples:    4,
		TrainedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Progress: []classifierdto.EpochProgress{
			{Epoch: 1, Loss: 0.7, Accuracy: 0.5},
			{Epoch: 2, Loss: 0.4, Accuracy: 0.75},
		},
	}
	prediction := &classifierdto.PredictOutput{
		RunID: "run1",
		Scores: []classifierdto.Score{
			{Label: "Ca|sa", Probability: 0.8},
			{Label: "Gato", Probability: 0.2},
		},
		Activations: []classifierdto.LayerActivation{{Name: "conv2d_1", Mean: 0.25}},
	}

	out := report.Markdown(run, "capture", prediction)
	for _, want := range []string{
		"`run1`",
		"2026-01-02T03:04:05Z",
		"| 2 | 0.4000 | 75.0% |",
		"## Prediction: capture",
		`| Ca\|sa | 80.00% |`,
		"`conv2d_1`: 0.2500",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report is missing %q:\n%s", want, out)
		}
	}
}
