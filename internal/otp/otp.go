// Package otp issues and checks the numeric one-time passcodes that prove
// ownership of a registration email.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"recipe-blog/backend/internal/apperr"
	"recipe-blog/backend/internal/mail"
	"recipe-blog/backend/internal/model"
	"recipe-blog/backend/internal/store"
)

type Result int

const (
	Match Result = iota
	Mismatch
	Expired
)

type Issuer struct {
	store  store.Store
	mailer mail.Sender
	log    *slog.Logger

	ttl    time.Duration
	length int
	now    func() time.Time
}

type Options struct {
	TTL    time.Duration
	Length int
	Now    func() time.Time
}

func NewIssuer(st store.Store, mailer mail.Sender, l *slog.Logger, opts Options) *Issuer {
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Minute
	}
	if opts.Length <= 0 {
		opts.Length = 6
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if l == nil {
		l = slog.Default()
	}
	return &Issuer{
		store:  st,
		mailer: mailer,
		log:    l,
		ttl:    opts.TTL,
		length: opts.Length,
		now:    opts.Now,
	}
}

func (i *Issuer) Length() int {
	return i.length
}

// Issue replaces the active code of a pending account and mails it. When
// delivery fails the stored record is kept and ErrDeliveryFailed returned.
func (i *Issuer) Issue(ctx context.Context, acc model.Account) (model.OTPRecord, error) {
	if acc.Verified() {
		return model.OTPRecord{}, apperr.ErrAlreadyVerified
	}

	code, err := GenerateCode(i.length)
	if err != nil {
		return model.OTPRecord{}, apperr.Wrap(err, apperr.CodePersistenceFailure, "could not generate code")
	}

	rec, err := i.store.ReplaceOTP(ctx, model.OTPRecord{
		AccountID: acc.ID,
		Email:     acc.Email,
		CodeHash:  HashCode(acc.ID, code),
		ExpiresAt: i.now().Add(i.ttl),
	})
	if err != nil {
		return model.OTPRecord{}, apperr.Persistence(err)
	}

	if err := i.mailer.SendOTP(ctx, acc.Email, code, rec.ExpiresAt); err != nil {
		i.log.ErrorContext(ctx, "otp delivery failed", "account_id", acc.ID, "error", err)
		return rec, apperr.Wrap(err, apperr.CodeDeliveryFailed, apperr.ErrDeliveryFailed.Message)
	}

	i.log.InfoContext(ctx, "otp issued", "account_id", acc.ID, "expires_at", rec.ExpiresAt)
	return rec, nil
}

// Check compares code against rec at the current time. Expiry wins over a
// correct code.
func (i *Issuer) Check(rec model.OTPRecord, code string) Result {
	if rec.Expired(i.now()) {
		return Expired
	}
	want := []byte(rec.CodeHash)
	got := []byte(HashCode(rec.AccountID, code))
	if subtle.ConstantTimeCompare(want, got) != 1 {
		return Mismatch
	}
	return Match
}

// GenerateCode returns n uniformly random decimal digits.
func GenerateCode(n int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	v, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", n, v), nil
}

func HashCode(accountID, code string) string {
	sum := sha256.Sum256([]byte(accountID + ":" + code))
	return hex.EncodeToString(sum[:])
}
