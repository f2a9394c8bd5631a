// Package token mints and verifies the signed session tokens handed out at
// login. Tokens are stateless: nothing about them is stored server-side.
package token

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"recipe-blog/backend/internal/apperr"
	"recipe-blog/backend/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

// NumericDate claims carry milliseconds so the signed expiry matches the
// one reported to the client.
func init() {
	jwt.TimePrecision = time.Millisecond
}

type Claims struct {
	jwt.RegisteredClaims
	Role model.Role `json:"role"`
}

// GetExpirationTime undoes the float rounding jwt applies when decoding a
// fractional exp, so validation compares against the instant that was signed.
func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	if c.ExpiresAt == nil {
		return nil, nil
	}
	return &jwt.NumericDate{Time: c.ExpiresAt.Time.Round(jwt.TimePrecision)}, nil
}

// Identity is what a verified token resolves to.
type Identity struct {
	AccountID string
	Role      model.Role
	ExpiresAt time.Time
}

type Manager struct {
	key    []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewManager builds a manager signing with secret. An empty secret yields a
// random per-process key.
func NewManager(secret string, ttl time.Duration, issuer string) (*Manager, error) {
	key := []byte(secret)
	if secret == "" {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate jwt key: %w", err)
		}
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &Manager{
		key:    key,
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
	}, nil
}

// WithClock replaces the time source for issuing and verifying.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Issue signs a token for the account, returning it with its expiry.
func (m *Manager) Issue(accountID string, role model.Role) (string, time.Time, error) {
	now := m.now().Truncate(jwt.TimePrecision)
	exp := now.Add(m.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Role: role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse verifies signature, structure and expiry. Errors are
// apperr.ErrInvalidToken or apperr.ErrTokenExpired.
func (m *Manager) Parse(raw string) (Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, apperr.ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.key, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, apperr.Wrap(err, apperr.CodeTokenExpired, apperr.ErrTokenExpired.Message)
		}
		return Identity{}, apperr.Wrap(err, apperr.CodeInvalidToken, apperr.ErrInvalidToken.Message)
	}
	if !tok.Valid || claims.Subject == "" || !claims.Role.Valid() {
		return Identity{}, apperr.ErrInvalidToken
	}

	exp, _ := claims.GetExpirationTime()
	return Identity{
		AccountID: claims.Subject,
		Role:      claims.Role,
		ExpiresAt: exp.Time,
	}, nil
}
