package usecase

import (
	"context"

	"drawclass/internal/modules/dataset/dto"
	datasetin "drawclass/internal/modules/dataset/port/in"
	"drawclass/internal/modules/dataset/service"
)

const defaultPreviewLimit = 6

type Interactor struct {
	svc *service.DatasetService
}

func NewInteractor(svc *service.DatasetService) datasetin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) AddSample(ctx context.Context, input dto.AddSampleInput) (dto.AddSampleOutput, error) {
	count, err := i.svc.AddSample(ctx, input.Label, input.Payload)
	if err != nil {
		return dto.AddSampleOutput{}, err
	}
	return dto.AddSampleOutput{Label: input.Label, Count: count}, nil
}

func (i *Interactor) DeclareCategory(ctx context.Context, label string) error {
	return i.svc.Declare(ctx, label)
}

func (i *Interactor) ListCategories(ctx context.Context) ([]dto.CategoryOutput, error) {
	all, err := i.AllCategories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CategoryOutput, 0, len(all))
	for _, c := range all {
		if c.Count > 0 {
			out = append(out, c)
		}
	}
	return out, nil
}

func (i *Interactor) AllCategories(ctx context.Context) ([]dto.CategoryOutput, error) {
	snapshot, err := i.svc.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	counts := snapshot.Counts()
	out := make([]dto.CategoryOutput, 0, len(counts))
	for _, c := range counts {
		out = append(out, dto.CategoryOutput{Label: c.Label, Count: c.Count})
	}
	return out, nil
}

func (i *Interactor) Preview(ctx context.Context, input dto.PreviewInput) (dto.PreviewOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultPreviewLimit
	}
	payloads, total, err := i.svc.Preview(ctx, input.Label, limit)
	if err != nil {
		return dto.PreviewOutput{}, err
	}
	return dto.PreviewOutput{Label: input.Label, Total: total, Payloads: payloads}, nil
}

func (i *Interactor) Clear(ctx context.Context) error {
	return i.svc.Clear(ctx)
}

func (i *Interactor) Import(ctx context.Context, input dto.ImportInput) (dto.ImportOutput, error) {
	imported, err := i.svc.Import(ctx, input.Data)
	if err != nil {
		return dto.ImportOutput{}, err
	}
	return dto.ImportOutput{Categories: len(imported.Labels()), Samples: imported.Len()}, nil
}

func (i *Interactor) Export(ctx context.Context) (dto.ExportOutput, error) {
	data, err := i.svc.Export(ctx)
	if err != nil {
		return dto.ExportOutput{}, err
	}
	return dto.ExportOutput{Data: data}, nil
}

func (i *Interactor) Snapshot(ctx context.Context) (dto.SnapshotOutput, error) {
	snapshot, err := i.svc.Snapshot(ctx)
	if err != nil {
		return dto.SnapshotOutput{}, err
	}
	labels := snapshot.NonEmpty()
	out := dto.SnapshotOutput{Categories: make([]dto.CategorySamples, 0, len(labels))}
	for _, label := range labels {
		out.Categories = append(out.Categories, dto.CategorySamples{Label: label, Payloads: snapshot.Samples(label)})
	}
	return out, nil
}
