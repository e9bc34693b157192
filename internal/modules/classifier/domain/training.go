package domain

import "time"

type RunState string

const (
	StateIdle            RunState = "idle"
	StateValidating      RunState = "validating"
	StateBuildingTensors RunState = "building_tensors"
	StateTraining        RunState = "training"
	StateCompleted       RunState = "completed"
	StateFailed          RunState = "failed"
)

// Active reports whether a run in this state still holds the trainer.
func (s RunState) Active() bool {
	switch s {
	case StateValidating, StateBuildingTensors, StateTraining:
		return true
	default:
		return false
	}
}

// Phase is the coarse progress marker shown next to the network diagram.
type Phase string

const (
	PhaseCompiling      Phase = "compiling"
	PhaseCreatedTensors Phase = "created_tensors"
	PhaseTraining       Phase = "training"
	PhaseEpoch          Phase = "epoch"
	PhaseTrained        Phase = "trained"
	PhaseFailed         Phase = "failed"
	PhasePredict        Phase = "predict"
)

type Progress struct {
	Epoch    int
	Loss     float64
	Accuracy float64
}

// ProgressLog holds the epochs of one run in the order they finished.
type ProgressLog struct {
	entries []Progress
}

func (l *ProgressLog) Append(p Progress) {
	l.entries = append(l.entries, p)
}

func (l *ProgressLog) Reset() {
	l.entries = nil
}

func (l ProgressLog) Entries() []Progress {
	return append([]Progress(nil), l.entries...)
}

func (l ProgressLog) Last() (Progress, bool) {
	if len(l.entries) == 0 {
		return Progress{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// LabeledSamples is one category of the frozen training set.
type LabeledSamples struct {
	Label    string
	Payloads []string
}

type EventKind string

const (
	EventPhase      EventKind = "phase"
	EventEpoch      EventKind = "epoch"
	EventPrediction EventKind = "prediction"
)

// Event is published to sinks during training and prediction.
type Event struct {
	Kind        EventKind
	Phase       Phase
	RunID       string
	At          time.Time
	Epochs      int
	Progress    Progress
	Activations ActivationSnapshot
	Prediction  Prediction
	Err         error
}

type RunSummary struct {
	RunID      string
	Categories []string
	Samples    int
	Progress   []Progress
	TrainedAt  time.Time
}

type RunStatus struct {
	State       RunState
	RunID       string
	Epochs      int
	Progress    []Progress
	Activations ActivationSnapshot
	Err         error
}
