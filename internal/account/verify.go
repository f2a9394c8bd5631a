package account

import (
	"context"
	"errors"
	"fmt"

	"recipe-blog/backend/internal/apperr"
	"recipe-blog/backend/internal/model"
	"recipe-blog/backend/internal/otp"
	"recipe-blog/backend/internal/store"
)

// Verify consumes a submitted code and moves the account from pending to
// verified. This is the only place that transition happens.
func (s *Service) Verify(ctx context.Context, in VerifyInput) (model.PublicAccount, error) {
	in.Email = normalizeEmail(in.Email)

	fields := s.validate.Fields(in)
	if fields == nil {
		fields = map[string]string{}
	}
	switch {
	case in.Email == "" && in.AccountID == "":
		fields["email"] = "email or accountId is required"
	case in.Email != "" && in.AccountID != "":
		fields["accountId"] = "cannot be combined with email"
	}
	if _, bad := fields["code"]; !bad && len(in.Code) != s.otp.Length() {
		fields["code"] = fmt.Sprintf("must be exactly %d digits", s.otp.Length())
	}
	if len(fields) > 0 {
		return model.PublicAccount{}, apperr.Validation(fields)
	}

	acc, err := s.lookupForVerification(ctx, in)
	if err != nil {
		return model.PublicAccount{}, err
	}
	if acc.Verified() {
		return model.PublicAccount{}, apperr.ErrAlreadyVerified
	}

	rec, err := s.store.GetActiveOTP(ctx, acc.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.PublicAccount{}, apperr.New(apperr.CodeNotFound, "no active verification code, request a new one")
		}
		return model.PublicAccount{}, apperr.Persistence(err)
	}

	switch s.otp.Check(*rec, in.Code) {
	case otp.Expired:
		if err := s.store.DeleteOTP(ctx, rec.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			s.log.WarnContext(ctx, "purge expired otp failed", "account_id", acc.ID, "error", err)
		}
		return model.PublicAccount{}, apperr.ErrOTPExpired

	case otp.Mismatch:
		attempts, err := s.store.IncrementOTPAttempts(ctx, rec.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return model.PublicAccount{}, apperr.Persistence(err)
		}
		if attempts >= s.cfg.MaxOTPAttempts {
			if err := s.store.DeleteOTP(ctx, rec.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
				s.log.WarnContext(ctx, "purge exhausted otp failed", "account_id", acc.ID, "error", err)
			}
			s.log.WarnContext(ctx, "otp attempts exhausted", "account_id", acc.ID)
			return model.PublicAccount{}, apperr.ErrTooManyAttempts
		}
		return model.PublicAccount{}, apperr.ErrOTPMismatch
	}

	verified, err := s.store.CompleteVerification(ctx, acc.ID, rec.ID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			return model.PublicAccount{}, apperr.ErrAlreadyVerified
		case errors.Is(err, store.ErrNotFound):
			return model.PublicAccount{}, apperr.New(apperr.CodeNotFound, "verification code was replaced, use the latest one")
		}
		return model.PublicAccount{}, apperr.Persistence(err)
	}

	s.log.InfoContext(ctx, "account verified", "account_id", verified.ID)
	return verified.Public(), nil
}

// ResendOTP issues a fresh code for a pending account, invalidating the
// previous one.
func (s *Service) ResendOTP(ctx context.Context, in ResendInput) error {
	in.Email = normalizeEmail(in.Email)
	if err := s.validate.Validate(in); err != nil {
		return err
	}

	acc, err := s.store.GetAccountByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.ErrNotFound
		}
		return apperr.Persistence(err)
	}

	_, err = s.otp.Issue(ctx, *acc)
	return err
}

func (s *Service) lookupForVerification(ctx context.Context, in VerifyInput) (*model.Account, error) {
	var (
		acc *model.Account
		err error
	)
	if in.AccountID != "" {
		acc, err = s.store.GetAccountByID(ctx, in.AccountID)
	} else {
		acc, err = s.store.GetAccountByEmail(ctx, in.Email)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Persistence(err)
	}
	return acc, nil
}
