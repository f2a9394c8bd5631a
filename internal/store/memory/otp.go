package memory

import (
	"context"
	"time"

	"recipe-blog/backend/internal/model"
	"recipe-blog/backend/internal/store"
)

func (s *Store) ReplaceOTP(_ context.Context, rec model.OTPRecord) (model.OTPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[rec.AccountID]; !ok {
		return model.OTPRecord{}, store.ErrNotFound
	}

	for id, existing := range s.otps {
		if existing.AccountID == rec.AccountID {
			delete(s.otps, id)
		}
	}

	rec.ID = newID()
	rec.Attempts = 0
	rec.CreatedAt = s.now()
	s.otps[rec.ID] = rec
	return rec, nil
}

func (s *Store) GetActiveOTP(_ context.Context, accountID string) (*model.OTPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.otps {
		if rec.AccountID == accountID {
			return &rec, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) IncrementOTPAttempts(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.otps[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	rec.Attempts++
	s.otps[id] = rec
	return rec.Attempts, nil
}

func (s *Store) DeleteOTP(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.otps[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.otps, id)
	return nil
}

func (s *Store) PurgeExpiredOTPs(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, rec := range s.otps {
		if !rec.ExpiresAt.After(before) {
			delete(s.otps, id)
			n++
		}
	}
	return n, nil
}
