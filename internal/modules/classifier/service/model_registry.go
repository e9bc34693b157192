package service

import (
	"sync"
	"time"

	"drawclass/internal/modules/classifier/domain"
	classifierout "drawclass/internal/modules/classifier/port/out"
	apperrors "drawclass/internal/platform/errors"
)

// InstalledModel is the unit swapped in by a completed run. Categories is the
// label order frozen when the run started.
type InstalledModel struct {
	Pair       classifierout.ModelPair
	Categories []string
	RunID      string
	TrainedAt  time.Time
	Final      domain.Progress
}

type ModelInfo struct {
	RunID      string
	Categories []string
	TrainedAt  time.Time
	Final      domain.Progress
}

// ModelRegistry holds at most one installed model. Readers never observe a
// model from one run next to categories from another.
type ModelRegistry struct {
	mu      sync.RWMutex
	current *InstalledModel
}

func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{}
}

// Install replaces the current model and releases the previous one once no
// reader holds it.
func (r *ModelRegistry) Install(model InstalledModel) {
	model.Categories = append([]string(nil), model.Categories...)
	r.mu.Lock()
	defer r.mu.Unlock()
	previous := r.current
	r.current = &model
	if previous != nil {
		previous.Pair.Dispose()
	}
}

// Use runs fn with the installed model held against replacement.
func (r *ModelRegistry) Use(fn func(InstalledModel) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return apperrors.ErrModelNotTrained
	}
	return fn(*r.current)
}

func (r *ModelRegistry) Info() (ModelInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return ModelInfo{}, false
	}
	return ModelInfo{
		RunID:      r.current.RunID,
		Categories: append([]string(nil), r.current.Categories...),
		TrainedAt:  r.current.TrainedAt,
		Final:      r.current.Final,
	}, true
}

func (r *ModelRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		r.current.Pair.Dispose()
		r.current = nil
	}
}
