package model

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyTitle      = errors.New("title is required")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrNotFound        = errors.New("task not found")
	ErrCorruptSnapshot = errors.New("corrupt task snapshot")
)

// FetchError wraps a failed remote read. Readers log it and keep the
// state they already have.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch tasks: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// WriteError wraps a failed write. It always reaches the caller that
// issued the mutation.
type WriteError struct {
	Op  string
	ID  string
	Err error
}

func (e *WriteError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s tasks: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s task %s: %v", e.Op, e.ID, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// IsValidation reports whether err rejects user input rather than
// signalling a storage problem.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyTitle) || errors.Is(err, ErrInvalidPriority)
}
