package out

import (
	"context"
	"time"

	"drawclass/internal/modules/classifier/domain"
	visualdomain "drawclass/internal/modules/visualization/domain"
)

// DatasetSource returns the non-empty categories in index order.
type DatasetSource interface {
	Snapshot(ctx context.Context) ([]domain.LabeledSamples, error)
}

type Animator interface {
	Begin(layerCount int) error
	StepThrough(ctx context.Context, delay time.Duration) (visualdomain.PassResult, error)
	RequestSkip() bool
}

// CaptureSource grabs one image from the configured capture device.
type CaptureSource interface {
	Capture(ctx context.Context) (string, error)
}

// EventSink receives training and prediction events. Publish must not block.
type EventSink interface {
	Publish(event domain.Event)
}
