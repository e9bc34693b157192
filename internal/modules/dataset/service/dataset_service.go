package service

import (
	"context"
	"fmt"
	"sync"

	"drawclass/internal/modules/dataset/domain"
	datasetout "drawclass/internal/modules/dataset/port/out"
	"drawclass/internal/platform/clock"
	apperrors "drawclass/internal/platform/errors"
)

// DatasetService keeps the dataset in memory and writes every change through
// to the store before it becomes visible.
type DatasetService struct {
	clock clock.Clock
	store datasetout.SampleStore

	mu      sync.RWMutex
	loaded  bool
	current domain.Dataset
}

func NewDatasetService(clock clock.Clock, store datasetout.SampleStore) *DatasetService {
	return &DatasetService{clock: clock, store: store}
}

func (s *DatasetService) AddSample(ctx context.Context, label, payload string) (int, error) {
	if err := domain.ValidateLabel(label); err != nil {
		return 0, err
	}
	if err := domain.ValidatePayload(payload); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return 0, err
	}
	if err := s.store.Append(ctx, label, payload, s.clock.Now()); err != nil {
		return 0, err
	}
	if err := s.current.Add(label, payload); err != nil {
		return 0, err
	}
	return len(s.current.Samples(label)), nil
}

func (s *DatasetService) Declare(ctx context.Context, label string) error {
	if err := domain.ValidateLabel(label); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	if s.current.Has(label) {
		return nil
	}
	if err := s.store.Declare(ctx, label); err != nil {
		return err
	}
	return s.current.Declare(label)
}

func (s *DatasetService) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	s.current = domain.New()
	s.loaded = true
	return nil
}

// Import replaces the dataset with raw. Malformed input or a failing store
// leaves the current dataset untouched.
func (s *DatasetService) Import(ctx context.Context, raw []byte) (domain.Dataset, error) {
	incoming, err := domain.Unmarshal(raw)
	if err != nil {
		return domain.Dataset{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Replace(ctx, incoming); err != nil {
		return domain.Dataset{}, fmt.Errorf("replace dataset: %w", err)
	}
	s.current = incoming.Clone()
	s.loaded = true
	return incoming, nil
}

func (s *DatasetService) Export(ctx context.Context) ([]byte, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return domain.Marshal(snapshot)
}

// Snapshot returns a deep copy that later writes cannot reach.
func (s *DatasetService) Snapshot(ctx context.Context) (domain.Dataset, error) {
	if err := s.load(ctx); err != nil {
		return domain.Dataset{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone(), nil
}

func (s *DatasetService) Preview(ctx context.Context, label string, limit int) ([]string, int, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return nil, 0, err
	}
	if !snapshot.Has(label) {
		return nil, 0, fmt.Errorf("%w: category %q", apperrors.ErrNotFound, label)
	}
	return snapshot.Recent(label, limit), len(snapshot.Samples(label)), nil
}

func (s *DatasetService) load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLoaded(ctx)
}

func (s *DatasetService) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	current, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	s.current = current
	s.loaded = true
	return nil
}
