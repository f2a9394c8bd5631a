package postgres

import (
	"context"
	"errors"
	"time"

	"recipe-blog/backend/internal/model"
	"recipe-blog/backend/internal/store"

	"github.com/jackc/pgx/v5"
)

const otpColumns = `id::text, account_id::text, email, code_hash, attempts, expires_at, created_at`

func scanOTP(row pgx.Row) (*model.OTPRecord, error) {
	var rec model.OTPRecord
	err := row.Scan(&rec.ID, &rec.AccountID, &rec.Email, &rec.CodeHash, &rec.Attempts, &rec.ExpiresAt, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, mapPgErr(err)
	}
	return &rec, nil
}

func (s *Store) ReplaceOTP(ctx context.Context, rec model.OTPRecord) (model.OTPRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.OTPRecord{}, mapPgErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `delete from public.otp_codes where account_id = $1::uuid`, rec.AccountID); err != nil {
		return model.OTPRecord{}, mapPgErr(err)
	}

	out, err := scanOTP(tx.QueryRow(ctx, `
		insert into public.otp_codes (account_id, email, code_hash, expires_at)
		values ($1::uuid, $2, $3, $4)
		returning `+otpColumns,
		rec.AccountID, rec.Email, rec.CodeHash, rec.ExpiresAt,
	))
	if err != nil {
		return model.OTPRecord{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.OTPRecord{}, mapPgErr(err)
	}
	return *out, nil
}

func (s *Store) GetActiveOTP(ctx context.Context, accountID string) (*model.OTPRecord, error) {
	return scanOTP(s.pool.QueryRow(ctx, `
		select `+otpColumns+`
		from public.otp_codes
		where account_id = $1::uuid
	`, accountID))
}

func (s *Store) IncrementOTPAttempts(ctx context.Context, id string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		update public.otp_codes
		set attempts = attempts + 1
		where id = $1::uuid
		returning attempts
	`, id).Scan(&n)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, store.ErrNotFound
		}
		return 0, mapPgErr(err)
	}
	return n, nil
}

func (s *Store) DeleteOTP(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `delete from public.otp_codes where id = $1::uuid`, id)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) PurgeExpiredOTPs(ctx context.Context, before time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `delete from public.otp_codes where expires_at <= $1`, before)
	if err != nil {
		return 0, mapPgErr(err)
	}
	return int(tag.RowsAffected()), nil
}
