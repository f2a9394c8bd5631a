package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"recipe-blog/backend/internal/model"
	"recipe-blog/backend/internal/store"
)

type Store struct {
	mu sync.Mutex

	accounts map[string]model.Account
	otps     map[string]model.OTPRecord

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[string]model.Account),
		otps:     make(map[string]model.OTPRecord),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock swaps the timestamp source, used by tests that pin time.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) InsertAccount(_ context.Context, a model.Account) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.TrimSpace(a.Username)
	email := strings.TrimSpace(a.Email)
	if username == "" {
		return model.Account{}, errWithCode("username_required")
	}
	if email == "" {
		return model.Account{}, errWithCode("email_required")
	}

	for _, existing := range s.accounts {
		if strings.EqualFold(existing.Username, username) || strings.EqualFold(existing.Email, email) {
			return model.Account{}, store.ErrConflict
		}
	}

	now := s.now()
	a.ID = newID()
	a.Username = username
	a.Email = email
	if a.Status == "" {
		a.Status = model.AccountStatusPending
	}
	if a.Role == "" {
		a.Role = model.RoleUser
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	s.accounts[a.ID] = a
	return a, nil
}

func (s *Store) GetAccountByID(_ context.Context, id string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (s *Store) GetAccountByUsername(_ context.Context, username string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.findLocked(func(a model.Account) bool {
		return strings.EqualFold(a.Username, strings.TrimSpace(username))
	})
}

func (s *Store) GetAccountByEmail(_ context.Context, email string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.findLocked(func(a model.Account) bool {
		return strings.EqualFold(a.Email, strings.TrimSpace(email))
	})
}

func (s *Store) findLocked(match func(model.Account) bool) (*model.Account, error) {
	for _, a := range s.accounts {
		if match(a) {
			return &a, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpdateAccount(_ context.Context, id string, patch store.AccountPatch) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	if patch.Username != nil {
		username := strings.TrimSpace(*patch.Username)
		if username == "" {
			return nil, errWithCode("username_required")
		}
		for otherID, existing := range s.accounts {
			if otherID != id && strings.EqualFold(existing.Username, username) {
				return nil, store.ErrConflict
			}
		}
		a.Username = username
	}
	if patch.PasswordHash != nil {
		a.PasswordHash = *patch.PasswordHash
	}
	if patch.AvatarURL != nil {
		a.AvatarURL = *patch.AvatarURL
	}

	a.UpdatedAt = s.now()
	s.accounts[id] = a
	return &a, nil
}

func (s *Store) ListAccounts(_ context.Context) ([]model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) CompleteVerification(_ context.Context, accountID, otpID string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if a.Status == model.AccountStatusVerified {
		return nil, store.ErrConflict
	}
	if rec, ok := s.otps[otpID]; !ok || rec.AccountID != accountID {
		return nil, store.ErrNotFound
	}

	a.Status = model.AccountStatusVerified
	a.UpdatedAt = s.now()
	s.accounts[accountID] = a
	delete(s.otps, otpID)
	return &a, nil
}

type codeErr string

func (e codeErr) Error() string { return string(e) }

func errWithCode(code string) error { return codeErr(code) }
