package account

import (
	"context"
	"errors"

	"recipe-blog/backend/internal/apperr"
	"recipe-blog/backend/internal/model"
	"recipe-blog/backend/internal/store"
)

// Register creates a pending account and mails it a verification code.
//
// Validation and uniqueness failures are reported before any write. When the
// account is stored but the code cannot be mailed, the created account is
// returned together with ErrDeliveryFailed; the user can ask for a resend.
func (s *Service) Register(ctx context.Context, in RegisterInput) (model.PublicAccount, error) {
	in.normalize()

	fields := s.validate.Fields(in)
	if msg, bad := s.passwordProblem(in.Password); bad && in.Password != "" {
		if fields == nil {
			fields = map[string]string{}
		}
		if _, exists := fields["password"]; !exists {
			fields["password"] = msg
		}
	}
	if fields != nil {
		return model.PublicAccount{}, apperr.Validation(fields)
	}

	if err := s.checkUnique(ctx, in.Username, in.Email); err != nil {
		return model.PublicAccount{}, err
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return model.PublicAccount{}, apperr.Wrap(err, apperr.CodePersistenceFailure, "could not hash password")
	}

	acc, err := s.store.InsertAccount(ctx, model.Account{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Status:       model.AccountStatusPending,
		Role:         model.RoleUser,
	})
	if err != nil {
		// The pre-check is not atomic with the insert; the store's unique
		// constraint is the final word.
		if errors.Is(err, store.ErrConflict) {
			return model.PublicAccount{}, apperr.ErrDuplicateIdentity
		}
		s.log.ErrorContext(ctx, "insert account failed", "error", err)
		return model.PublicAccount{}, apperr.Persistence(err)
	}

	s.log.InfoContext(ctx, "account registered", "account_id", acc.ID)

	if _, err := s.otp.Issue(ctx, acc); err != nil {
		return acc.Public(), err
	}
	return acc.Public(), nil
}

func (s *Service) checkUnique(ctx context.Context, username, email string) error {
	taken := map[string]string{}

	if _, err := s.store.GetAccountByUsername(ctx, username); err == nil {
		taken["username"] = "already taken"
	} else if !errors.Is(err, store.ErrNotFound) {
		return apperr.Persistence(err)
	}

	if _, err := s.store.GetAccountByEmail(ctx, email); err == nil {
		taken["email"] = "already registered"
	} else if !errors.Is(err, store.ErrNotFound) {
		return apperr.Persistence(err)
	}

	if len(taken) > 0 {
		return &apperr.Error{
			Code:    apperr.CodeDuplicateIdentity,
			Message: apperr.ErrDuplicateIdentity.Message,
			Fields:  taken,
		}
	}
	return nil
}
