package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"recipe-blog/backend/internal/apperr"
	"recipe-blog/backend/internal/model"
	"recipe-blog/backend/internal/store"
	"recipe-blog/backend/internal/upload"
)

// Profile returns the public projection of the acting account.
func (s *Service) Profile(ctx context.Context, accountID string) (model.PublicAccount, error) {
	acc, err := s.store.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.PublicAccount{}, apperr.ErrNotFound
		}
		return model.PublicAccount{}, apperr.Persistence(err)
	}
	return acc.Public(), nil
}

// UpdateProfile applies a self-service change to the acting account.
//
// The update is all-or-nothing: inputs and username uniqueness are checked
// first, the avatar is uploaded before anything is persisted, and a failed
// store write removes the freshly uploaded object.
func (s *Service) UpdateProfile(ctx context.Context, accountID string, in UpdateProfileInput) (model.PublicAccount, error) {
	if in.Username != nil {
		u := strings.TrimSpace(*in.Username)
		in.Username = &u
	}

	fields := s.validate.Fields(in)
	if fields == nil {
		fields = map[string]string{}
	}
	if in.Username != nil && *in.Username == "" {
		fields["username"] = "cannot be empty"
	}
	if in.Password != nil {
		if msg, bad := s.passwordProblem(*in.Password); bad {
			if _, exists := fields["password"]; !exists {
				fields["password"] = msg
			}
		}
	}
	if in.Avatar != nil {
		switch {
		case len(in.Avatar.Data) == 0:
			fields["avatar"] = "file is empty"
		case int64(len(in.Avatar.Data)) > s.cfg.MaxAvatarBytes:
			fields["avatar"] = fmt.Sprintf("must be at most %d bytes", s.cfg.MaxAvatarBytes)
		}
	}
	if len(fields) > 0 {
		return model.PublicAccount{}, apperr.Validation(fields)
	}

	current, err := s.store.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.PublicAccount{}, apperr.ErrNotFound
		}
		return model.PublicAccount{}, apperr.Persistence(err)
	}

	var patch store.AccountPatch

	if in.Username != nil && *in.Username != current.Username {
		other, err := s.store.GetAccountByUsername(ctx, *in.Username)
		switch {
		case err == nil && other.ID != current.ID:
			return model.PublicAccount{}, &apperr.Error{
				Code:    apperr.CodeDuplicateIdentity,
				Message: apperr.ErrDuplicateIdentity.Message,
				Fields:  map[string]string{"username": "already taken"},
			}
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return model.PublicAccount{}, apperr.Persistence(err)
		}
		patch.Username = in.Username
	}

	if in.Password != nil {
		hash, err := s.hashPassword(*in.Password)
		if err != nil {
			return model.PublicAccount{}, apperr.Wrap(err, apperr.CodePersistenceFailure, "could not hash password")
		}
		patch.PasswordHash = &hash
	}

	var uploadedURL string
	if in.Avatar != nil {
		url, err := s.uploadAvatar(ctx, current.ID, in.Avatar)
		if err != nil {
			return model.PublicAccount{}, err
		}
		uploadedURL = url
		patch.AvatarURL = &uploadedURL
	}

	if patch.Empty() {
		return current.Public(), nil
	}

	updated, err := s.store.UpdateAccount(ctx, current.ID, patch)
	if err != nil {
		if uploadedURL != "" {
			s.discardAvatar(ctx, uploadedURL)
		}
		switch {
		case errors.Is(err, store.ErrConflict):
			return model.PublicAccount{}, apperr.ErrDuplicateIdentity
		case errors.Is(err, store.ErrNotFound):
			return model.PublicAccount{}, apperr.ErrNotFound
		}
		return model.PublicAccount{}, apperr.Persistence(err)
	}

	if uploadedURL != "" && current.AvatarURL != "" && current.AvatarURL != uploadedURL {
		s.discardAvatar(ctx, current.AvatarURL)
	}

	s.log.InfoContext(ctx, "profile updated",
		"account_id", updated.ID,
		"username_changed", patch.Username != nil,
		"password_changed", patch.PasswordHash != nil,
		"avatar_changed", patch.AvatarURL != nil,
	)
	return updated.Public(), nil
}

// ListAccounts returns every account, oldest first. Callers gate it on the
// admin role.
func (s *Service) ListAccounts(ctx context.Context) ([]model.PublicAccount, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	out := make([]model.PublicAccount, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.Public())
	}
	return out, nil
}

func (s *Service) uploadAvatar(ctx context.Context, accountID string, av *Avatar) (string, error) {
	if s.uploader == nil {
		return "", apperr.New(apperr.CodeUploadFailed, "avatar uploads are not configured")
	}

	contentType, ext, err := upload.DetectImage(av.Data)
	if err != nil {
		if errors.Is(err, upload.ErrUnsupportedType) {
			return "", apperr.Validation(map[string]string{"avatar": "must be a jpeg, png, gif or webp image"})
		}
		return "", apperr.Wrap(err, apperr.CodeUploadFailed, apperr.ErrUploadFailed.Message)
	}

	url, err := s.uploader.Upload(ctx, upload.AvatarKey(accountID, ext), contentType, av.Data)
	if err != nil {
		s.log.ErrorContext(ctx, "avatar upload failed", "account_id", accountID, "error", err)
		return "", apperr.Wrap(err, apperr.CodeUploadFailed, apperr.ErrUploadFailed.Message)
	}
	return url, nil
}

func (s *Service) discardAvatar(ctx context.Context, url string) {
	if err := s.uploader.Delete(ctx, url); err != nil {
		s.log.WarnContext(ctx, "avatar cleanup failed", "url", url, "error", err)
	}
}
