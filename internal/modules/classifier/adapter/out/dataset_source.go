package out

import (
	"context"

	"drawclass/internal/modules/classifier/domain"
	datasetin "drawclass/internal/modules/dataset/port/in"
)

// DatasetSource reads the training set through the dataset module.
type DatasetSource struct {
	dataset datasetin.Usecase
}

func NewDatasetSource(dataset datasetin.Usecase) *DatasetSource {
	return &DatasetSource{dataset: dataset}
}

func (s *DatasetSource) Snapshot(ctx context.Context) ([]domain.LabeledSamples, error) {
	snapshot, err := s.dataset.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.LabeledSamples, len(snapshot.Categories))
	for i, category := range snapshot.Categories {
		out[i] = domain.LabeledSamples{
			Label:    category.Label,
			Payloads: append([]string(nil), category.Payloads...),
		}
	}
	return out, nil
}
