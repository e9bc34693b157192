package service

import classifierout "drawclass/internal/modules/classifier/port/out"

// tensorScope disposes every tensor it tracked, newest first.
type tensorScope struct {
	tensors []classifierout.Tensor
}

func (s *tensorScope) track(t classifierout.Tensor) classifierout.Tensor {
	if t != nil {
		s.tensors = append(s.tensors, t)
	}
	return t
}

func (s *tensorScope) release() {
	for i := len(s.tensors) - 1; i >= 0; i-- {
		s.tensors[i].Dispose()
	}
	s.tensors = nil
}
