package service

import (
	"context"
	"time"

	"drawclass/internal/modules/classifier/domain"
	classifierout "drawclass/internal/modules/classifier/port/out"
	"drawclass/internal/platform/clock"
)

// EpochEvent is delivered to every subscriber once per finished epoch.
type EpochEvent struct {
	RunID       string
	Epochs      int
	Progress    domain.Progress
	Activations domain.ActivationSnapshot
}

// EpochSubscriber consumes epoch events in registration order. An error
// stops the run.
type EpochSubscriber interface {
	OnEpoch(ctx context.Context, event EpochEvent) error
}

type EpochSubscriberFunc func(ctx context.Context, event EpochEvent) error

func (f EpochSubscriberFunc) OnEpoch(ctx context.Context, event EpochEvent) error {
	return f(ctx, event)
}

// sinkForwarder republishes epoch events to an external sink.
type sinkForwarder struct {
	sink  classifierout.EventSink
	clock clock.Clock
}

func (f sinkForwarder) OnEpoch(_ context.Context, event EpochEvent) error {
	f.sink.Publish(domain.Event{
		Kind:        domain.EventEpoch,
		Phase:       domain.PhaseEpoch,
		RunID:       event.RunID,
		At:          f.clock.Now(),
		Epochs:      event.Epochs,
		Progress:    event.Progress,
		Activations: event.Activations,
	})
	return nil
}

// animationDriver plays one full pass over the layers of the snapshot.
type animationDriver struct {
	animator classifierout.Animator
	delay    time.Duration
}

func (d animationDriver) OnEpoch(ctx context.Context, event EpochEvent) error {
	if err := d.animator.Begin(len(event.Activations)); err != nil {
		return err
	}
	_, err := d.animator.StepThrough(ctx, d.delay)
	return err
}

type discardSink struct{}

func (discardSink) Publish(domain.Event) {}
