package postgres

import (
	"context"
	"errors"
	"strings"

	"recipe-blog/backend/internal/model"
	"recipe-blog/backend/internal/store"

	"github.com/jackc/pgx/v5"
)

const accountColumns = `id::text, username, email, password_hash, status, role, avatar_url, created_at, updated_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.PasswordHash,
		&a.Status,
		&a.Role,
		&a.AvatarURL,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, mapPgErr(err)
	}
	return &a, nil
}

func (s *Store) InsertAccount(ctx context.Context, a model.Account) (model.Account, error) {
	if a.Status == "" {
		a.Status = model.AccountStatusPending
	}
	if a.Role == "" {
		a.Role = model.RoleUser
	}

	out, err := scanAccount(s.pool.QueryRow(ctx, `
		insert into public.accounts (username, email, password_hash, status, role, avatar_url)
		values ($1, $2, $3, $4, $5, $6)
		returning `+accountColumns,
		strings.TrimSpace(a.Username), strings.TrimSpace(a.Email), a.PasswordHash,
		string(a.Status), string(a.Role), a.AvatarURL,
	))
	if err != nil {
		return model.Account{}, err
	}
	return *out, nil
}

func (s *Store) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	return scanAccount(s.pool.QueryRow(ctx, `
		select `+accountColumns+`
		from public.accounts
		where id = $1::uuid
	`, id))
}

func (s *Store) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	return scanAccount(s.pool.QueryRow(ctx, `
		select `+accountColumns+`
		from public.accounts
		where lower(username) = lower($1)
	`, strings.TrimSpace(username)))
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	return scanAccount(s.pool.QueryRow(ctx, `
		select `+accountColumns+`
		from public.accounts
		where lower(email) = lower($1)
	`, strings.TrimSpace(email)))
}

func (s *Store) UpdateAccount(ctx context.Context, id string, patch store.AccountPatch) (*model.Account, error) {
	if patch.Empty() {
		return s.GetAccountByID(ctx, id)
	}

	var username *string
	if patch.Username != nil {
		u := strings.TrimSpace(*patch.Username)
		username = &u
	}

	return scanAccount(s.pool.QueryRow(ctx, `
		update public.accounts
		set username = coalesce($2, username),
		    password_hash = coalesce($3, password_hash),
		    avatar_url = coalesce($4, avatar_url)
		where id = $1::uuid
		returning `+accountColumns,
		id, username, patch.PasswordHash, patch.AvatarURL,
	))
}

func (s *Store) ListAccounts(ctx context.Context) ([]model.Account, error) {
	rows, err := s.pool.Query(ctx, `
		select `+accountColumns+`
		from public.accounts
		order by created_at asc
	`)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgErr(err)
	}
	return out, nil
}

func (s *Store) CompleteVerification(ctx context.Context, accountID, otpID string) (*model.Account, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status string
	err = tx.QueryRow(ctx, `
		select status
		from public.accounts
		where id = $1::uuid
		for update
	`, accountID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, mapPgErr(err)
	}
	if model.AccountStatus(status) == model.AccountStatusVerified {
		return nil, store.ErrConflict
	}

	// A code replaced by a resend after it was read no longer verifies.
	tag, err := tx.Exec(ctx, `
		delete from public.otp_codes
		where id = $1::uuid
		  and account_id = $2::uuid
	`, otpID, accountID)
	if err != nil {
		return nil, mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return nil, store.ErrNotFound
	}

	a, err := scanAccount(tx.QueryRow(ctx, `
		update public.accounts
		set status = 'verified'
		where id = $1::uuid
		returning `+accountColumns,
		accountID,
	))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapPgErr(err)
	}
	return a, nil
}
