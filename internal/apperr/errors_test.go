package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestCode_WrappedSentinels(t *testing.T) {
	cases := map[error]string{
		fmt.Errorf("feature AUTH: %w", ErrNotFound):           CodeNotFound,
		fmt.Errorf("feature AUTH: %w", ErrDuplicateID):        CodeDuplicateID,
		fmt.Errorf("x: %w", ErrHasProtectedChildren):          CodeHasProtectedChildren,
		fmt.Errorf("status %q: %w", "bogus", ErrInvalidInput): CodeInvalidInput,
		errors.New("disk I/O error"):                          CodeStorageFailure,
	}
	for err, want := range cases {
		if got := Code(err); got != want {
			t.Errorf("Code(%v) = %q, want %q", err, got, want)
		}
	}
}
