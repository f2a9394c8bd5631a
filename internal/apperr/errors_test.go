package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := Wrap(errors.New("smtp down"), CodeDeliveryFailed, "send failed")
	assert.ErrorIs(t, err, ErrDeliveryFailed)
	assert.NotErrorIs(t, err, ErrUploadFailed)

	wrapped := fmt.Errorf("register: %w", err)
	assert.ErrorIs(t, wrapped, ErrDeliveryFailed)
}

func TestUnwrapReachesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Persistence(cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestStatus(t *testing.T) {
	cases := map[*Error]int{
		ErrValidationFailed:   http.StatusBadRequest,
		ErrDuplicateIdentity:  http.StatusConflict,
		ErrInvalidCredentials: http.StatusUnauthorized,
		ErrNotVerified:        http.StatusForbidden,
		ErrTokenExpired:       http.StatusUnauthorized,
		ErrOTPExpired:         http.StatusGone,
		ErrTooManyAttempts:    http.StatusTooManyRequests,
		ErrUploadFailed:       http.StatusBadGateway,
		ErrPersistenceFailure: http.StatusInternalServerError,
		New("unknown", "x"):   http.StatusInternalServerError,
	}
	for e, want := range cases {
		assert.Equal(t, want, e.Status(), string(e.Code))
	}
}

func TestAsFallsBackToPersistence(t *testing.T) {
	e := As(errors.New("boom"))
	assert.Equal(t, CodePersistenceFailure, e.Code)

	v := As(fmt.Errorf("wrap: %w", Validation(map[string]string{"email": "required"})))
	assert.Equal(t, CodeValidationFailed, v.Code)
	assert.Equal(t, "required", v.Fields["email"])
}
