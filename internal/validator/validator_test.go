package validator

import (
	"testing"

	"recipe-blog/backend/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Username        string `json:"username" validate:"required,username"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

type code struct {
	Code string `json:"code" validate:"required,len=6,numeric_code"`
}

func TestValidStruct(t *testing.T) {
	v := New()
	err := v.Validate(signup{Username: "chef1", Email: "chef1@example.com", Password: "longpass1", ConfirmPassword: "longpass1"})
	assert.NoError(t, err)
}

func TestFieldMessagesUseJSONNames(t *testing.T) {
	v := New()
	fields := v.Fields(signup{Username: "a b", Email: "nope", Password: "short", ConfirmPassword: "other"})
	require.NotNil(t, fields)
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "email")
	assert.Equal(t, "must be at least 8 characters long", fields["password"])
	assert.Equal(t, "must match password", fields["confirmPassword"])
}

func TestValidateReturnsAppError(t *testing.T) {
	v := New()
	err := v.Validate(signup{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)

	e := apperr.As(err)
	assert.Len(t, e.Fields, 4)
}

func TestNumericCode(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate(code{Code: "012345"}))
	assert.Error(t, v.Validate(code{Code: "01234a"}))
	assert.Error(t, v.Validate(code{Code: "123"}))
}
