package account

import (
	"context"
	"errors"
	"strings"

	"recipe-blog/backend/internal/apperr"
	"recipe-blog/backend/internal/store"

	"golang.org/x/crypto/bcrypt"
)

// Login checks credentials and issues a session token. Unknown usernames and
// wrong passwords produce the same error; the verification state is only
// reported once the password is known to be correct.
func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := s.validate.Validate(in); err != nil {
		return LoginResult{}, err
	}

	acc, err := s.store.GetAccountByUsername(ctx, in.Username)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, apperr.Persistence(err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(in.Password))
		s.log.WarnContext(ctx, "login failed", "reason", "unknown_username")
		return LoginResult{}, apperr.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(in.Password)); err != nil {
		s.log.WarnContext(ctx, "login failed", "reason", "bad_password", "account_id", acc.ID)
		return LoginResult{}, apperr.ErrInvalidCredentials
	}

	if !acc.Verified() {
		return LoginResult{}, apperr.ErrNotVerified
	}

	tok, exp, err := s.tokens.Issue(acc.ID, acc.Role)
	if err != nil {
		return LoginResult{}, apperr.Wrap(err, apperr.CodePersistenceFailure, "could not issue token")
	}

	s.log.InfoContext(ctx, "login succeeded", "account_id", acc.ID)
	return LoginResult{Token: tok, ExpiresAt: exp, User: acc.Public()}, nil
}
