package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrStore        = errors.New("store error")
)

// ValidationError reports the first invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// BlobCleanupError reports blobs that could not be deleted after their
// metadata was already gone. Failed holds the exact blob ids left behind.
type BlobCleanupError struct {
	ContentID string
	Failed    []string
	Err       error
}

func (e *BlobCleanupError) Error() string {
	return fmt.Sprintf("content %s: %d blob(s) not deleted: %s", e.ContentID, len(e.Failed), strings.Join(e.Failed, ", "))
}

func (e *BlobCleanupError) Unwrap() error {
	return e.Err
}

// storeErr wraps an underlying storage failure as ErrStore.
func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
