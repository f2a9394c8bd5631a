package account

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"recipe-blog/backend/internal/apperr"
	"recipe-blog/backend/internal/logger"
	"recipe-blog/backend/internal/model"
	"recipe-blog/backend/internal/otp"
	"recipe-blog/backend/internal/store"
	"recipe-blog/backend/internal/store/memory"
	"recipe-blog/backend/internal/token"
	"recipe-blog/backend/internal/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

type fakeMailer struct {
	codes map[string]string
	err   error
}

func (m *fakeMailer) SendOTP(_ context.Context, to, code string, _ time.Time) error {
	if m.err != nil {
		return m.err
	}
	m.codes[to] = code
	return nil
}

type fakeUploader struct {
	uploaded []string
	deleted  []string
	err      error
}

func (u *fakeUploader) Upload(_ context.Context, key, _ string, _ []byte) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	url := "https://cdn.test/" + key
	u.uploaded = append(u.uploaded, url)
	return url, nil
}

func (u *fakeUploader) Delete(_ context.Context, url string) error {
	u.deleted = append(u.deleted, url)
	return nil
}

type harness struct {
	svc      *Service
	store    *memory.Store
	mailer   *fakeMailer
	uploader *fakeUploader
	tokens   *token.Manager
	now      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:    memory.NewStore(),
		mailer:   &fakeMailer{codes: map[string]string{}},
		uploader: &fakeUploader{},
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return h.now }

	issuer := otp.NewIssuer(h.store, h.mailer, logger.Discard(), otp.Options{
		TTL:    10 * time.Minute,
		Length: 6,
		Now:    clock,
	})
	tokens, err := token.NewManager("test-secret", time.Hour, "recipe-blog")
	require.NoError(t, err)
	h.tokens = tokens.WithClock(clock)

	svc, err := NewService(h.store, issuer, h.tokens, h.uploader, validator.New(), logger.Discard(), Config{
		PasswordMinLength: 8,
		BcryptCost:        bcrypt.MinCost,
		MaxOTPAttempts:    3,
		MaxAvatarBytes:    1 << 20,
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func chef1() RegisterInput {
	return RegisterInput{
		Username:        "chef1",
		Email:           "chef1@example.com",
		Password:        "longpass1",
		ConfirmPassword: "longpass1",
	}
}

func (h *harness) registerVerified(t *testing.T, in RegisterInput) model.PublicAccount {
	t.Helper()
	acc, err := h.svc.Register(context.Background(), in)
	require.NoError(t, err)
	_, err = h.svc.Verify(context.Background(), VerifyInput{Email: in.Email, Code: h.mailer.codes[in.Email]})
	require.NoError(t, err)
	return acc
}

func wrongCode(code string) string {
	if code == "000000" {
		return "000001"
	}
	return "000000"
}

func TestChefScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	acc, err := h.svc.Register(ctx, chef1())
	require.NoError(t, err)
	assert.Equal(t, model.AccountStatusPending, acc.Status)
	code := h.mailer.codes["chef1@example.com"]
	require.Len(t, code, 6)

	_, err = h.svc.Verify(ctx, VerifyInput{Email: "chef1@example.com", Code: wrongCode(code)})
	require.ErrorIs(t, err, apperr.ErrOTPMismatch)
	stored, err := h.store.GetAccountByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AccountStatusPending, stored.Status)

	verified, err := h.svc.Verify(ctx, VerifyInput{Email: "chef1@example.com", Code: code})
	require.NoError(t, err)
	assert.Equal(t, model.AccountStatusVerified, verified.Status)

	res, err := h.svc.Login(ctx, LoginInput{Username: "chef1", Password: "longpass1"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)

	id, err := h.tokens.Parse(res.Token)
	require.NoError(t, err)
	profile, err := h.svc.Profile(ctx, id.AccountID)
	require.NoError(t, err)
	assert.Equal(t, "chef1", profile.Username)
	assert.Equal(t, "chef1@example.com", profile.Email)
	assert.Equal(t, model.RoleUser, profile.Role)
	assert.Nil(t, profile.Avatar)
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name  string
		mod   func(*RegisterInput)
		field string
	}{
		{"missing username", func(in *RegisterInput) { in.Username = "" }, "username"},
		{"bad username", func(in *RegisterInput) { in.Username = "a b" }, "username"},
		{"bad email", func(in *RegisterInput) { in.Email = "nope" }, "email"},
		{"short password", func(in *RegisterInput) { in.Password, in.ConfirmPassword = "short", "short" }, "password"},
		{"confirm mismatch", func(in *RegisterInput) { in.ConfirmPassword = "different1" }, "confirmPassword"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := chef1()
			tt.mod(&in)
			_, err := h.svc.Register(context.Background(), in)
			require.ErrorIs(t, err, apperr.ErrValidationFailed)
			assert.Contains(t, apperr.As(err).Fields, tt.field)
		})
	}

	accounts, err := h.store.ListAccounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)
	assert.Empty(t, h.mailer.codes)
}

func TestRegisterDuplicate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Register(ctx, chef1())
	require.NoError(t, err)

	in := chef1()
	in.Username = "CHEF1"
	in.Email = "other@example.com"
	_, err = h.svc.Register(ctx, in)
	require.ErrorIs(t, err, apperr.ErrDuplicateIdentity)
	assert.Contains(t, apperr.As(err).Fields, "username")

	in = chef1()
	in.Username = "chef2"
	in.Email = " Chef1@Example.com "
	_, err = h.svc.Register(ctx, in)
	require.ErrorIs(t, err, apperr.ErrDuplicateIdentity)
	assert.Contains(t, apperr.As(err).Fields, "email")

	accounts, err := h.store.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "chef1@example.com", accounts[0].Email)
	assert.Len(t, h.mailer.codes, 1)
}

func TestRegisterStoresHashNotPlaintext(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	acc, err := h.svc.Register(ctx, chef1())
	require.NoError(t, err)

	stored, err := h.store.GetAccountByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "longpass1", stored.PasswordHash)
	assert.NotContains(t, stored.PasswordHash, "longpass1")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("longpass1")))
}

// racingStore passes the uniqueness lookups and loses at insert time, as
// when a concurrent registration commits first.
type racingStore struct {
	*memory.Store
}

func (racingStore) InsertAccount(context.Context, model.Account) (model.Account, error) {
	return model.Account{}, store.ErrConflict
}

func TestRegisterInsertConflictIsDuplicate(t *testing.T) {
	st := racingStore{memory.NewStore()}
	mailer := &fakeMailer{codes: map[string]string{}}
	issuer := otp.NewIssuer(st, mailer, logger.Discard(), otp.Options{})
	tokens, err := token.NewManager("test-secret", time.Hour, "recipe-blog")
	require.NoError(t, err)
	svc, err := NewService(st, issuer, tokens, nil, validator.New(), logger.Discard(), Config{BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), chef1())
	require.ErrorIs(t, err, apperr.ErrDuplicateIdentity)
	assert.Equal(t, apperr.CodeDuplicateIdentity, apperr.As(err).Code)
	assert.Empty(t, mailer.codes)
}

func TestPasswordLengthCountsBytesForBcrypt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	long := strings.Repeat("é", 40)
	in := chef1()
	in.Password, in.ConfirmPassword = long, long
	_, err := h.svc.Register(ctx, in)
	require.ErrorIs(t, err, apperr.ErrValidationFailed)
	assert.Equal(t, "must be at most 72 bytes", apperr.As(err).Fields["password"])

	short := strings.Repeat("é", 7)
	in.Password, in.ConfirmPassword = short, short
	_, err = h.svc.Register(ctx, in)
	require.ErrorIs(t, err, apperr.ErrValidationFailed)
	assert.Equal(t, "must be at least 8 characters long", apperr.As(err).Fields["password"])

	ok := strings.Repeat("é", 8)
	in.Password, in.ConfirmPassword = ok, ok
	acc, err := h.svc.Register(ctx, in)
	require.NoError(t, err)
	_, err = h.svc.Verify(ctx, VerifyInput{Email: in.Email, Code: h.mailer.codes[in.Email]})
	require.NoError(t, err)

	_, err = h.svc.UpdateProfile(ctx, acc.ID, UpdateProfileInput{Password: &long})
	require.ErrorIs(t, err, apperr.ErrValidationFailed)
	assert.Contains(t, apperr.As(err).Fields, "password")
}

func TestRegisterDeliveryFailureKeepsAccount(t *testing.T) {
	h := newHarness(t)
	h.mailer.err = errors.New("smtp down")
	ctx := context.Background()

	acc, err := h.svc.Register(ctx, chef1())
	require.ErrorIs(t, err, apperr.ErrDeliveryFailed)
	require.NotEmpty(t, acc.ID)

	h.mailer.err = nil
	require.NoError(t, h.svc.ResendOTP(ctx, ResendInput{Email: "chef1@example.com"}))
	_, err = h.svc.Verify(ctx, VerifyInput{AccountID: acc.ID, Code: h.mailer.codes["chef1@example.com"]})
	require.NoError(t, err)
}

func TestVerifyExpiredCode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	acc, err := h.svc.Register(ctx, chef1())
	require.NoError(t, err)
	code := h.mailer.codes["chef1@example.com"]

	h.now = h.now.Add(10 * time.Minute)
	_, err = h.svc.Verify(ctx, VerifyInput{Email: "chef1@example.com", Code: code})
	require.ErrorIs(t, err, apperr.ErrOTPExpired)

	stored, err := h.store.GetAccountByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.False(t, stored.Verified())

	_, err = h.svc.Verify(ctx, VerifyInput{Email: "chef1@example.com", Code: code})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestVerifyReplay(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Register(ctx, chef1())
	require.NoError(t, err)
	code := h.mailer.codes["chef1@example.com"]

	_, err = h.svc.Verify(ctx, VerifyInput{Email: "chef1@example.com", Code: code})
	require.NoError(t, err)
	_, err = h.svc.Verify(ctx, VerifyInput{Email: "chef1@example.com", Code: code})
	require.ErrorIs(t, err, apperr.ErrAlreadyVerified)

	err = h.svc.ResendOTP(ctx, ResendInput{Email: "chef1@example.com"})
	require.ErrorIs(t, err, apperr.ErrAlreadyVerified)
}

func TestVerifyResendInvalidatesPrevious(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Register(ctx, chef1())
	require.NoError(t, err)
	first := h.mailer.codes["chef1@example.com"]

	require.NoError(t, h.svc.ResendOTP(ctx, ResendInput{Email: "chef1@example.com"}))
	second := h.mailer.codes["chef1@example.com"]

	if first != second {
		_, err = h.svc.Verify(ctx, VerifyInput{Email: "chef1@example.com", Code: first})
		require.ErrorIs(t, err, apperr.ErrOTPMismatch)
	}
	_, err = h.svc.Verify(ctx, VerifyInput{Email: "chef1@example.com", Code: second})
	require.NoError(t, err)
}

func TestVerifyTooManyAttempts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Register(ctx, chef1())
	require.NoError(t, err)
	code := h.mailer.codes["chef1@example.com"]
	bad := wrongCode(code)

	for i := 0; i < 2; i++ {
		_, err = h.svc.Verify(ctx, VerifyInput{Email: "chef1@example.com", Code: bad})
		require.ErrorIs(t, err, apperr.ErrOTPMismatch)
	}
	_, err = h.svc.Verify(ctx, VerifyInput{Email: "chef1@example.com", Code: bad})
	require.ErrorIs(t, err, apperr.ErrTooManyAttempts)

	_, err = h.svc.Verify(ctx, VerifyInput{Email: "chef1@example.com", Code: code})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestVerifyInputRules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Verify(ctx, VerifyInput{Code: "123456"})
	require.ErrorIs(t, err, apperr.ErrValidationFailed)

	_, err = h.svc.Verify(ctx, VerifyInput{Email: "chef1@example.com", Code: "12345"})
	require.ErrorIs(t, err, apperr.ErrValidationFailed)
	assert.Contains(t, apperr.As(err).Fields, "code")

	_, err = h.svc.Verify(ctx, VerifyInput{Email: "chef1@example.com", Code: "12a456"})
	require.ErrorIs(t, err, apperr.ErrValidationFailed)

	_, err = h.svc.Verify(ctx, VerifyInput{Email: "ghost@example.com", Code: "123456"})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Register(ctx, chef1())
	require.NoError(t, err)

	_, err = h.svc.Login(ctx, LoginInput{Username: "chef1", Password: "longpass1"})
	require.ErrorIs(t, err, apperr.ErrNotVerified)

	_, err = h.svc.Login(ctx, LoginInput{Username: "chef1", Password: "wrongpass1"})
	require.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, err = h.svc.Login(ctx, LoginInput{Username: "nobody", Password: "longpass1"})
	require.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, err = h.svc.Login(ctx, LoginInput{Username: "chef1"})
	require.ErrorIs(t, err, apperr.ErrValidationFailed)
}

func TestLoginTokenCarriesRoleAndExpiry(t *testing.T) {
	h := newHarness(t)
	acc := h.registerVerified(t, chef1())

	res, err := h.svc.Login(context.Background(), LoginInput{Username: "chef1", Password: "longpass1"})
	require.NoError(t, err)
	assert.Equal(t, h.now.Add(time.Hour).Unix(), res.ExpiresAt.Unix())

	id, err := h.tokens.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, id.AccountID)
	assert.Equal(t, model.RoleUser, id.Role)

	h.now = h.now.Add(time.Hour + time.Second)
	_, err = h.tokens.Parse(res.Token)
	require.ErrorIs(t, err, apperr.ErrTokenExpired)
}

func TestUpdateProfileAvatarOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	acc := h.registerVerified(t, chef1())

	before, err := h.store.GetAccountByID(ctx, acc.ID)
	require.NoError(t, err)

	out, err := h.svc.UpdateProfile(ctx, acc.ID, UpdateProfileInput{Avatar: &Avatar{Filename: "me.png", Data: pngBytes}})
	require.NoError(t, err)
	require.NotNil(t, out.Avatar)
	assert.Equal(t, h.uploader.uploaded[0], *out.Avatar)

	after, err := h.store.GetAccountByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Username, after.Username)
	assert.Equal(t, before.PasswordHash, after.PasswordHash)

	_, err = h.svc.UpdateProfile(ctx, acc.ID, UpdateProfileInput{Avatar: &Avatar{Data: pngBytes}})
	require.NoError(t, err)
	assert.Equal(t, []string{h.uploader.uploaded[0]}, h.uploader.deleted)
}

func TestUpdateProfilePassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	acc := h.registerVerified(t, chef1())

	pw := "brandnew99"
	_, err := h.svc.UpdateProfile(ctx, acc.ID, UpdateProfileInput{Password: &pw})
	require.NoError(t, err)

	_, err = h.svc.Login(ctx, LoginInput{Username: "chef1", Password: "longpass1"})
	require.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	_, err = h.svc.Login(ctx, LoginInput{Username: "chef1", Password: pw})
	require.NoError(t, err)

	short := "tiny"
	_, err = h.svc.UpdateProfile(ctx, acc.ID, UpdateProfileInput{Password: &short})
	require.ErrorIs(t, err, apperr.ErrValidationFailed)
}

func TestUpdateProfileUsernameCollision(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	acc := h.registerVerified(t, chef1())

	other := chef1()
	other.Username = "chef2"
	other.Email = "chef2@example.com"
	h.registerVerified(t, other)

	name := "Chef2"
	_, err := h.svc.UpdateProfile(ctx, acc.ID, UpdateProfileInput{Username: &name, Avatar: &Avatar{Data: pngBytes}})
	require.ErrorIs(t, err, apperr.ErrDuplicateIdentity)
	assert.Empty(t, h.uploader.uploaded)

	name = "chef1-renamed"
	out, err := h.svc.UpdateProfile(ctx, acc.ID, UpdateProfileInput{Username: &name})
	require.NoError(t, err)
	assert.Equal(t, "chef1-renamed", out.Username)
}

func TestUpdateProfileUploadFailureIsAtomic(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	acc := h.registerVerified(t, chef1())
	h.uploader.err = errors.New("bucket unavailable")

	name := "chef1-new"
	_, err := h.svc.UpdateProfile(ctx, acc.ID, UpdateProfileInput{Username: &name, Avatar: &Avatar{Data: pngBytes}})
	require.ErrorIs(t, err, apperr.ErrUploadFailed)

	stored, err := h.store.GetAccountByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "chef1", stored.Username)
	assert.Empty(t, stored.AvatarURL)
}

func TestUpdateProfileRejectsNonImage(t *testing.T) {
	h := newHarness(t)
	acc := h.registerVerified(t, chef1())

	_, err := h.svc.UpdateProfile(context.Background(), acc.ID, UpdateProfileInput{Avatar: &Avatar{Data: []byte("plain text, not an image")}})
	require.ErrorIs(t, err, apperr.ErrValidationFailed)
	assert.Empty(t, h.uploader.uploaded)
}

func TestProfileUnknownAccount(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Profile(context.Background(), "missing")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	name := "whoever"
	_, err = h.svc.UpdateProfile(context.Background(), "missing", UpdateProfileInput{Username: &name})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListAccounts(t *testing.T) {
	h := newHarness(t)
	h.registerVerified(t, chef1())

	list, err := h.svc.ListAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "chef1", list[0].Username)
}
