package out_test

import (
	"testing"

	visout "drawclass/internal/modules/visualization/adapter/out"
	"drawclass/internal/modules/visualization/domain"

	hclog "github.com/hashicorp/go-hclog"
)

func TestChannelObserverDropsWhenFull(t *testing.T) {
	t.Parallel()
	ch := visout.NewChannelObserver(1)
	fan := visout.Fanout{visout.NewLogObserver(hclog.NewNullLogger()), ch, nil}
	fan.Observe(domain.AnimationState{Context: "training", Active: 0, LayerCount: 2})
	fan.Observe(domain.AnimationState{Context: "training", Active: 1, LayerCount: 2})
	got := <-ch.States()
	if got.Active != 0 {
		t.Fatalf("expected the first state to be kept, got %+v", got)
	}
	select {
	case extra := <-ch.States():
		t.Fatalf("expected the second state to be dropped, got %+v", extra)
	default:
	}
}
