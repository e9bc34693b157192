package in

import (
	"context"

	"drawclass/internal/modules/dataset/dto"
)

type Usecase interface {
	AddSample(ctx context.Context, input dto.AddSampleInput) (dto.AddSampleOutput, error)
	DeclareCategory(ctx context.Context, label string) error
	ListCategories(ctx context.Context) ([]dto.CategoryOutput, error)
	AllCategories(ctx context.Context) ([]dto.CategoryOutput, error)
	Preview(ctx context.Context, input dto.PreviewInput) (dto.PreviewOutput, error)
	Clear(ctx context.Context) error
	Import(ctx context.Context, input dto.ImportInput) (dto.ImportOutput, error)
	Export(ctx context.Context) (dto.ExportOutput, error)
	Snapshot(ctx context.Context) (dto.SnapshotOutput, error)
}
