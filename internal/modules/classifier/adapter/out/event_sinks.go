package out

import (
	"github.com/hashicorp/go-hclog"

	"drawclass/internal/modules/classifier/domain"
	classifierout "drawclass/internal/modules/classifier/port/out"
)

type LogSink struct {
	logger hclog.Logger
}

func NewLogSink(logger hclog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(event domain.Event) {
	switch event.Kind {
	case domain.EventPhase:
		if event.Err != nil {
			s.logger.Debug("phase", "run", event.RunID, "phase", event.Phase, "error", event.Err)
			return
		}
		s.logger.Debug("phase", "run", event.RunID, "phase", event.Phase)
	case domain.EventEpoch:
		s.logger.Trace("activations", "run", event.RunID, "epoch", event.Progress.Epoch, "layers", len(event.Activations))
	case domain.EventPrediction:
		if top, ok := event.Prediction.Top(); ok {
			s.logger.Debug("predicted", "run", event.RunID, "label", top.Label, "probability", top.Probability)
		}
	}
}

// ChannelSink buffers events for a UI loop, dropping them when the buffer is
// full.
type ChannelSink struct {
	events chan domain.Event
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{events: make(chan domain.Event, buffer)}
}

func (s *ChannelSink) Publish(event domain.Event) {
	select {
	case s.events <- event:
	default:
	}
}

func (s *ChannelSink) Events() <-chan domain.Event {
	return s.events
}

type MultiSink []classifierout.EventSink

func (m MultiSink) Publish(event domain.Event) {
	for _, sink := range m {
		sink.Publish(event)
	}
}
