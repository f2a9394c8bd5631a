package account

import (
	"strings"
	"time"

	"recipe-blog/backend/internal/model"
)

type RegisterInput struct {
	Username        string `json:"username" validate:"required,username"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

func (in *RegisterInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
}

// VerifyInput identifies the account by exactly one of Email or AccountID.
type VerifyInput struct {
	Email     string `json:"email" validate:"omitempty,email"`
	AccountID string `json:"accountId" validate:"omitempty,uuid"`
	Code      string `json:"code" validate:"required,numeric_code"`
}

type ResendInput struct {
	Email string `json:"email" validate:"required,email"`
}

type LoginInput struct {
	Username string `json:"username" validate:"required,max=30"`
	Password string `json:"password" validate:"required,max=72"`
}

type Avatar struct {
	Filename string
	Data     []byte
}

// UpdateProfileInput carries optional changes; nil fields stay untouched.
type UpdateProfileInput struct {
	Username *string `json:"username" validate:"omitempty,username"`
	Password *string `json:"password"`
	Avatar   *Avatar `json:"-" validate:"-"`
}

type LoginResult struct {
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expiresAt"`
	User      model.PublicAccount `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
