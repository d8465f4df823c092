package rag

import "errors"

var (
	// ErrNoText means the document parsed but contained no extractable text.
	ErrNoText     = errors.New("no text could be extracted from the document")
	ErrEmptyQuery = errors.New("query must not be empty")
)

const (
	StageEmbedding  = "embedding"
	StageIndex      = "index"
	StageGeneration = "generation"
)

// ServiceError is a failure of an external collaborator, as opposed to a
// problem with the caller's input.
type ServiceError struct {
	Stage string
	Err   error
}

func (e *ServiceError) Error() string {
	return e.Stage + " failed: " + e.Err.Error()
}

func (e *ServiceError) Unwrap() error { return e.Err }

func serviceError(stage string, err error) error {
	return &ServiceError{Stage: stage, Err: err}
}
