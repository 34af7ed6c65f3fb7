// internal/core/errors_test.go
package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	err := &Error{Code: "TEST_ERROR", Message: "test message"}
	assert.Equal(t, "[TEST_ERROR] test message", err.Error())

	wrapped := WrapError(ErrNoData, errors.New("empty series"))
	assert.Equal(t, "[NO_DATA] no data available: empty series", wrapped.Error())
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{Code: "WRAP", Message: "wrapped", Cause: cause}
	assert.ErrorIs(t, err, cause)
}

func TestError_IsMatchesByCode(t *testing.T) {
	wrapped := WrapError(ErrTickerNotFound, errors.New("ZZZZ"))
	assert.ErrorIs(t, wrapped, ErrTickerNotFound)
	assert.NotErrorIs(t, wrapped, ErrNoData)

	// survives fmt wrapping
	outer := fmt.Errorf("fetching: %w", wrapped)
	assert.ErrorIs(t, outer, ErrTickerNotFound)
}

func TestWrapError(t *testing.T) {
	cause := errors.New("original")
	wrapped := WrapError(ErrCollectorFailed, cause)
	assert.Equal(t, cause, wrapped.Cause)
	assert.Equal(t, ErrCollectorFailed.Code, wrapped.Code)
	assert.Nil(t, ErrCollectorFailed.Cause, "sentinel must not be mutated")
}
