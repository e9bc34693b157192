package dto

import "time"

type EpochProgress struct {
	Epoch    int
	Loss     float64
	Accuracy float64
}

type LayerActivation struct {
	Name string
	Mean float64
}

type TrainOutput struct {
	RunID      string
	Categories []string
	Samples    int
	Progress   []EpochProgress
	TrainedAt  time.Time
}

type StatusOutput struct {
	State       string
	RunID       string
	Epochs      int
	Progress    []EpochProgress
	Activations []LayerActivation
	Error       string
}

type ModelOutput struct {
	Trained    bool
	RunID      string
	Categories []string
	TrainedAt  time.Time
	Final      EpochProgress
}

type PredictInput struct {
	Payload string
}

type Score struct {
	Label       string
	Probability float64
}

// PredictOutput lists scores by descending probability.
type PredictOutput struct {
	RunID       string
	Scores      []Score
	Activations []LayerActivation
}
