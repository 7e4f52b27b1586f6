package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_WrapAndContext(t *testing.T) {
	cause := errors.New("address already in use")
	err := NewError(ErrCodeSetup, "bind listener").Wrap(cause).WithContext("addr", ":8080")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "bind listener: address already in use")
	assert.Contains(t, err.Error(), ":8080")

	wrapped := fmt.Errorf("%w: %w", ErrSetup, err)
	var apiErr *Error
	assert.True(t, errors.As(wrapped, &apiErr))
	assert.Equal(t, ErrCodeSetup, apiErr.Code)
	assert.ErrorIs(t, wrapped, ErrSetup)
}

func TestError_NoContext(t *testing.T) {
	err := &Error{Code: ErrCodeClosed, Message: "closed"}
	assert.Equal(t, "closed", err.Error())
	assert.Nil(t, err.Unwrap())
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "unknown", State(42).String())
	assert.Equal(t, "closing", ConnClosing.String())
}
