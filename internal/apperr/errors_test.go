package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode_HTTPStatus(t *testing.T) {
	tests := map[Code]int{
		CodeNotFound:     http.StatusNotFound,
		CodeForbidden:    http.StatusForbidden,
		CodeValidation:   http.StatusBadRequest,
		CodeConflict:     http.StatusConflict,
		CodeUnauthorized: http.StatusUnauthorized,
		CodeRateLimited:  http.StatusTooManyRequests,
		CodeInternal:     http.StatusInternalServerError,
		Code("UNKNOWN"):  http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, code.HTTPStatus(), code)
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("update entry: %w", Forbidden("only the creator can edit"))

	assert.True(t, errors.Is(err, ErrForbidden))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, CodeForbidden, CodeOf(err))
}

func TestError_WithCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("load entry", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "load entry: connection reset", err.Error())
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestError_WithDetails(t *testing.T) {
	err := Validation("validation failed").WithDetails(map[string]string{"groupName": "is required"})

	assert.Equal(t, CodeValidation, err.Code)
	assert.Equal(t, map[string]string{"groupName": "is required"}, err.Details)
}
