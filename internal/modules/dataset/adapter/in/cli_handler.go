package in

import (
	"context"
	"fmt"
	"os"

	"drawclass/internal/modules/dataset/dto"
	datasetin "drawclass/internal/modules/dataset/port/in"
	"drawclass/internal/platform/payload"
)

// DefaultExportName matches the file name the browser version offered.
const DefaultExportName = "dataset_clasificador.json"

type CLIHandler struct {
	usecase datasetin.Usecase
}

func NewCLIHandler(usecase datasetin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) AddSample(ctx context.Context, label, payload string) (dto.AddSampleOutput, error) {
	return h.usecase.AddSample(ctx, dto.AddSampleInput{Label: label, Payload: payload})
}

// AddFile stores the image at path as a sample of label.
func (h CLIHandler) AddFile(ctx context.Context, label, path string) (dto.AddSampleOutput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return dto.AddSampleOutput{}, fmt.Errorf("read image: %w", err)
	}
	return h.AddSample(ctx, label, payload.FromBytes(data))
}

func (h CLIHandler) DeclareCategory(ctx context.Context, label string) error {
	return h.usecase.DeclareCategory(ctx, label)
}

func (h CLIHandler) ListCategories(ctx context.Context) ([]dto.CategoryOutput, error) {
	return h.usecase.ListCategories(ctx)
}

func (h CLIHandler) AllCategories(ctx context.Context) ([]dto.CategoryOutput, error) {
	return h.usecase.AllCategories(ctx)
}

func (h CLIHandler) Preview(ctx context.Context, label string, limit int) (dto.PreviewOutput, error) {
	return h.usecase.Preview(ctx, dto.PreviewInput{Label: label, Limit: limit})
}

func (h CLIHandler) Clear(ctx context.Context) error {
	return h.usecase.Clear(ctx)
}

func (h CLIHandler) ImportFile(ctx context.Context, path string) (dto.ImportOutput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return dto.ImportOutput{}, fmt.Errorf("read dataset file: %w", err)
	}
	return h.usecase.Import(ctx, dto.ImportInput{Data: data})
}

func (h CLIHandler) ExportFile(ctx context.Context, path string) (int, error) {
	if path == "" {
		path = DefaultExportName
	}
	out, err := h.usecase.Export(ctx)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, out.Data, 0o644); err != nil {
		return 0, fmt.Errorf("write dataset file: %w", err)
	}
	return len(out.Data), nil
}
