package out

import (
	"context"

	"drawclass/internal/modules/capture/domain"
)

type ManifestStore interface {
	Load(ctx context.Context) ([]domain.Manifest, error)
}

// Device grabs a single image from local hardware or the filesystem.
type Device interface {
	Grab(ctx context.Context, request domain.Request) (domain.Image, error)
}

type PluginHost interface {
	CheckLifecycle(ctx context.Context, manifest domain.Manifest) error
	GetMetadata(ctx context.Context, manifest domain.Manifest) (domain.Metadata, error)
	Capture(ctx context.Context, manifest domain.Manifest, request domain.Request) (domain.Image, error)
}
