// Package apperr holds the sentinel errors shared by the store and its callers.
package apperr

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrDuplicateID          = errors.New("duplicate id")
	ErrHasProtectedChildren = errors.New("has children with status in-progress or done")
	ErrInvalidInput         = errors.New("invalid input")
	// ErrInvalidQuery is recovered inside the store by the substring fallback.
	ErrInvalidQuery = errors.New("invalid search query")
)

// Error codes reported to tool and HTTP callers.
const (
	CodeNotFound             = "not_found"
	CodeDuplicateID          = "duplicate_id"
	CodeHasProtectedChildren = "has_protected_children"
	CodeInvalidInput         = "invalid_input"
	CodeStorageFailure       = "storage_failure"
)

// Code maps err to a stable failure code. Anything that is not one of the
// domain sentinels is a storage failure.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrDuplicateID):
		return CodeDuplicateID
	case errors.Is(err, ErrHasProtectedChildren):
		return CodeHasProtectedChildren
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	default:
		return CodeStorageFailure
	}
}
