package out

import (
	"context"
	"time"

	"drawclass/internal/modules/dataset/domain"
)

// SampleStore persists the dataset between runs of the tool.
type SampleStore interface {
	Load(ctx context.Context) (domain.Dataset, error)
	Append(ctx context.Context, label, payload string, capturedAt time.Time) error
	Declare(ctx context.Context, label string) error
	// Replace swaps the whole dataset atomically.
	Replace(ctx context.Context, dataset domain.Dataset) error
	Clear(ctx context.Context) error
}
