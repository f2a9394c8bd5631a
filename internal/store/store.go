package store

import (
	"context"
	"errors"
	"time"

	"recipe-blog/backend/internal/model"
)

var (
	ErrNotFound = errors.New("not_found")
	ErrConflict = errors.New("conflict")
)

// AccountPatch lists the self-service mutable fields. Nil means unchanged.
// Status and role are deliberately absent.
type AccountPatch struct {
	Username     *string
	PasswordHash *string
	AvatarURL    *string
}

func (p AccountPatch) Empty() bool {
	return p.Username == nil && p.PasswordHash == nil && p.AvatarURL == nil
}

type Store interface {
	InsertAccount(ctx context.Context, a model.Account) (model.Account, error)
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*model.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	UpdateAccount(ctx context.Context, id string, patch AccountPatch) (*model.Account, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)

	// ReplaceOTP drops every OTP of the account and stores rec as the only active one.
	ReplaceOTP(ctx context.Context, rec model.OTPRecord) (model.OTPRecord, error)
	GetActiveOTP(ctx context.Context, accountID string) (*model.OTPRecord, error)
	IncrementOTPAttempts(ctx context.Context, id string) (int, error)
	DeleteOTP(ctx context.Context, id string) error
	PurgeExpiredOTPs(ctx context.Context, before time.Time) (int, error)

	// CompleteVerification flips a pending account to verified and removes the
	// OTP in one step. ErrConflict if the account is already verified,
	// ErrNotFound if the account or that OTP is gone.
	CompleteVerification(ctx context.Context, accountID, otpID string) (*model.Account, error)
}
