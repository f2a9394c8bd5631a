// Package account implements the credential workflows: registration gated by
// an emailed one-time code, verification, password login and self-service
// profile management.
package account

import (
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"recipe-blog/backend/internal/otp"
	"recipe-blog/backend/internal/store"
	"recipe-blog/backend/internal/token"
	"recipe-blog/backend/internal/upload"
	"recipe-blog/backend/internal/validator"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	PasswordMinLength int
	BcryptCost        int
	MaxOTPAttempts    int
	MaxAvatarBytes    int64
}

type Service struct {
	store    store.Store
	otp      *otp.Issuer
	tokens   *token.Manager
	uploader upload.Uploader
	validate *validator.Validator
	log      *slog.Logger

	cfg Config
	// dummyHash is compared against when a login names an unknown user so
	// both paths pay for one bcrypt comparison.
	dummyHash []byte
}

func NewService(
	st store.Store,
	issuer *otp.Issuer,
	tokens *token.Manager,
	uploader upload.Uploader,
	v *validator.Validator,
	l *slog.Logger,
	cfg Config,
) (*Service, error) {
	if st == nil || issuer == nil || tokens == nil {
		return nil, errors.New("account: store, otp issuer and token manager are required")
	}
	if cfg.PasswordMinLength <= 0 {
		cfg.PasswordMinLength = 8
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.MaxOTPAttempts <= 0 {
		cfg.MaxOTPAttempts = 5
	}
	if cfg.MaxAvatarBytes <= 0 {
		cfg.MaxAvatarBytes = 5 << 20
	}
	if v == nil {
		v = validator.New()
	}
	if l == nil {
		l = slog.Default()
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("timing-equalizer"), cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("account: prepare dummy hash: %w", err)
	}

	return &Service{
		store:     st,
		otp:       issuer,
		tokens:    tokens,
		uploader:  uploader,
		validate:  v,
		log:       l,
		cfg:       cfg,
		dummyHash: dummy,
	}, nil
}

func (s *Service) hashPassword(pw string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), s.cfg.BcryptCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// maxPasswordBytes is bcrypt's input limit.
const maxPasswordBytes = 72

// passwordProblem reports why pw cannot be stored. The minimum counts
// characters, the maximum counts bytes.
func (s *Service) passwordProblem(pw string) (string, bool) {
	if utf8.RuneCountInString(pw) < s.cfg.PasswordMinLength {
		return fmt.Sprintf("must be at least %d characters long", s.cfg.PasswordMinLength), true
	}
	if len(pw) > maxPasswordBytes {
		return fmt.Sprintf("must be at most %d bytes", maxPasswordBytes), true
	}
	return "", false
}
