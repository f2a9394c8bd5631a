package model

import "time"

type AccountStatus string

const (
	AccountStatusPending  AccountStatus = "pending"
	AccountStatusVerified AccountStatus = "verified"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type Account struct {
	ID           string        `json:"id"`
	Username     string        `json:"username"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	Status       AccountStatus `json:"status"`
	Role         Role          `json:"role"`
	AvatarURL    string        `json:"avatar,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (a Account) Verified() bool {
	return a.Status == AccountStatusVerified
}

// PublicAccount is the only account shape that leaves the service.
type PublicAccount struct {
	ID        string        `json:"id"`
	Username  string        `json:"username"`
	Email     string        `json:"email"`
	Role      Role          `json:"role"`
	Status    AccountStatus `json:"status"`
	Avatar    *string       `json:"avatar"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (a Account) Public() PublicAccount {
	out := PublicAccount{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		Role:      a.Role,
		Status:    a.Status,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if a.AvatarURL != "" {
		avatar := a.AvatarURL
		out.Avatar = &avatar
	}
	return out
}

// OTPRecord is a one-time passcode issued to a pending account. Only the
// digest of the code is kept.
type OTPRecord struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Email     string    `json:"email"`
	CodeHash  string    `json:"-"`
	Attempts  int       `json:"attempts"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (o OTPRecord) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}
