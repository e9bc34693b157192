package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrValidation             = errors.New("validation failed")
	ErrInvalidInput           = fmt.Errorf("%w: invalid input", ErrValidation)
	ErrInsufficientCategories = fmt.Errorf("%w: at least two categories with samples are required", ErrValidation)
	ErrMalformedImport        = fmt.Errorf("%w: malformed dataset", ErrValidation)
	ErrDecode                 = errors.New("cannot decode image")
	ErrConfig                 = errors.New("invalid configuration")
	ErrEngine                 = errors.New("engine failure")
	ErrModelNotTrained        = errors.New("model not trained")
	ErrTrainingInProgress     = errors.New("training already in progress")
	ErrCapture                = errors.New("capture failed")
	ErrNotFound               = errors.New("not found")
)

// StageError tags an error with the pipeline stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// AtStage wraps err with stage context. A nil err stays nil and an error that
// already carries a stage keeps its original one.
func AtStage(stage string, err error) error {
	if err == nil {
		return nil
	}
	var staged *StageError
	if errors.As(err, &staged) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf reports the stage recorded on err, if any.
func StageOf(err error) (string, bool) {
	var staged *StageError
	if errors.As(err, &staged) {
		return staged.Stage, true
	}
	return "", false
}
