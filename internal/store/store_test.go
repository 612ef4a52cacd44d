package store

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrorsWrap(t *testing.T) {
	err := fmt.Errorf("resolve %s: %w", "ABCD", ErrMintNotFound)
	if !errors.Is(err, ErrMintNotFound) {
		t.Errorf("expected wrapped error to match ErrMintNotFound")
	}
	if errors.Is(err, ErrDuplicateMint) {
		t.Errorf("ErrMintNotFound should not match ErrDuplicateMint")
	}

	// Ensure the interface is non-nil type.
	var _ IssuanceStore
}
