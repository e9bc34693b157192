package out

import (
	"drawclass/internal/modules/visualization/domain"

	hclog "github.com/hashicorp/go-hclog"
)

// LogObserver traces every highlight change.
type LogObserver struct {
	logger hclog.Logger
}

func NewLogObserver(logger hclog.Logger) *LogObserver {
	return &LogObserver{logger: logger.Named("animation")}
}

func (o *LogObserver) Observe(state domain.AnimationState) {
	if state.Active == domain.NoLayer {
		o.logger.Trace("pass idle", "context", state.Context, "layers", state.LayerCount)
		return
	}
	o.logger.Trace("layer active", "context", state.Context, "layer", state.Active, "layers", state.LayerCount)
}

// ChannelObserver forwards states to a buffered channel and drops them when
// the reader falls behind, so a slow UI never stalls a pass.
type ChannelObserver struct {
	ch chan domain.AnimationState
}

func NewChannelObserver(buffer int) *ChannelObserver {
	return &ChannelObserver{ch: make(chan domain.AnimationState, buffer)}
}

func (o *ChannelObserver) Observe(state domain.AnimationState) {
	select {
	case o.ch <- state:
	default:
	}
}

func (o *ChannelObserver) States() <-chan domain.AnimationState {
	return o.ch
}

// Fanout delivers each state to every observer in order.
type Fanout []domain.Observer

func (f Fanout) Observe(state domain.AnimationState) {
	for _, o := range f {
		if o != nil {
			o.Observe(state)
		}
	}
}
