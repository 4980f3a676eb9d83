package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := NewStoreError("failed to insert appointment", errors.New("connection reset"))
	assert.Equal(t, "STORE: failed to insert appointment: connection reset", err.Error())

	err = NewValidationError("provider_id is required")
	assert.Equal(t, "VALIDATION: provider_id is required", err.Error())
}

func TestTypeOf_WalksWrappedChain(t *testing.T) {
	inner := NewProviderNotFoundError("P1")
	wrapped := fmt.Errorf("resolve provider: %w", inner)

	assert.Equal(t, ErrorTypeProviderNotFound, TypeOf(wrapped))
	assert.True(t, IsType(wrapped, ErrorTypeProviderNotFound))
	assert.False(t, IsType(wrapped, ErrorTypeStore))
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
}

func TestAppError_UnwrapExposesCause(t *testing.T) {
	cause := errors.New("quota exceeded")
	err := NewCalendarCommitFailedError("calendar rejected event", cause)

	assert.ErrorIs(t, err, cause)
}
