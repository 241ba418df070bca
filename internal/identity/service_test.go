package identity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finvault/FinVault/internal/logging"
)

type fakeStore struct {
	mu      sync.Mutex
	users   map[string]*User
	codes   map[string]*VerificationCode
	secrets map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   make(map[string]*User),
		codes:   make(map[string]*VerificationCode),
		secrets: make(map[string]string),
	}
}

func (s *fakeStore) CreateUser(_ context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = &user
	return nil
}

func (s *fakeStore) FindByID(_ context.Context, userID string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *fakeStore) FindByEmailOrLogin(_ context.Context, emailOrLogin string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == emailOrLogin || user.Login == emailOrLogin {
			clone := *user
			return &clone, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *fakeStore) ExistsByEmailOrLogin(_ context.Context, email, login string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email || user.Login == login {
			clone := *user
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) Activate(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.IsActive = true
	return nil
}

func (s *fakeStore) SetPassword(_ context.Context, userID, passwordHash, hashToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	user.HashToken = hashToken
	return nil
}

func (s *fakeStore) SaveVerificationCode(_ context.Context, userID string, code VerificationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	code.CreatedAt = time.Now().UTC()
	s.codes[userID] = &code
	return nil
}

func (s *fakeStore) GetVerificationCode(_ context.Context, userID string) (*VerificationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.codes[userID]
	if !ok {
		return nil, ErrNoCodeIssued
	}
	clone := *code
	return &clone, nil
}

func (s *fakeStore) DeleteVerificationCode(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, userID)
	return nil
}

func (s *fakeStore) EnableTwoFactor(_ context.Context, userID, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.TwoFactorEnabled = true
	s.secrets[userID] = secret
	return nil
}

func (s *fakeStore) DisableTwoFactor(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.TwoFactorEnabled = false
	delete(s.secrets, userID)
	return nil
}

func (s *fakeStore) SaveTwoFactorSecret(_ context.Context, userID, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[userID] = secret
	return nil
}

func (s *fakeStore) GetTwoFactorSecret(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	secret, ok := s.secrets[userID]
	if !ok || secret == "" {
		return "", ErrTwoFactorNotEnabled
	}
	return secret, nil
}

// backdateCode rewinds the stored code's timestamps for rate-limit and
// expiry tests.
func (s *fakeStore) backdateCode(userID string, by time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := s.codes[userID]; ok {
		code.CreatedAt = code.CreatedAt.Add(-by)
		code.ExpiresAt = code.ExpiresAt.Add(-by)
	}
}

type sentMail struct {
	to      string
	purpose string
	code    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) SendVerificationCode(to, _, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, purpose: PurposeVerify, code: code})
}

func (m *fakeMailer) SendPasswordResetCode(to, _, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, purpose: PurposePasswordReset, code: code})
}

func (m *fakeMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "expected at least one email")
	return m.sent[len(m.sent)-1]
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type identityFixture struct {
	service *Service
	store   *fakeStore
	mailer  *fakeMailer
}

func newIdentityFixture() *identityFixture {
	store := newFakeStore()
	mailer := &fakeMailer{}
	service := NewService(
		store,
		mailer,
		NewTokenManager("test-secret"),
		NewTOTPAuthenticator("FinVault"),
		NewSessionStore(),
		logging.Discard(),
	)
	return &identityFixture{service: service, store: store, mailer: mailer}
}

// registerActive registers a user and walks through email verification.
func (f *identityFixture) registerActive(t *testing.T, email, password string) *User {
	t.Helper()
	ctx := context.Background()
	user, err := f.service.Register(ctx, email, "", password)
	require.NoError(t, err)
	require.NoError(t, f.service.VerifyEmail(ctx, email, f.mailer.last(t).code))
	return user
}

func TestRegisterIssuesVerificationCode(t *testing.T) {
	f := newIdentityFixture()

	user, err := f.service.Register(context.Background(), "anna.k@example.com", "", "correct-horse")
	require.NoError(t, err)

	assert.Equal(t, "anna.k", user.Login, "login derives from the email local part")
	assert.False(t, user.IsActive)

	mail := f.mailer.last(t)
	assert.Equal(t, "anna.k@example.com", mail.to)
	assert.Equal(t, PurposeVerify, mail.purpose)
	assert.Len(t, mail.code, 6)

	stored, err := f.store.GetVerificationCode(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, mail.code, stored.Code)
}

func TestRegisterValidation(t *testing.T) {
	f := newIdentityFixture()
	ctx := context.Background()

	_, err := f.service.Register(ctx, "not-an-email", "", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = f.service.Register(ctx, "ok@example.com", "abc", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidLogin)

	_, err = f.service.Register(ctx, "ok@example.com", "", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestRegisterConflicts(t *testing.T) {
	f := newIdentityFixture()
	ctx := context.Background()

	_, err := f.service.Register(ctx, "taken@example.com", "firstlogin", "correct-horse")
	require.NoError(t, err)

	_, err = f.service.Register(ctx, "taken@example.com", "otherlogin", "correct-horse")
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = f.service.Register(ctx, "other@example.com", "firstlogin", "correct-horse")
	assert.ErrorIs(t, err, ErrLoginTaken)
}

func TestVerifyEmail(t *testing.T) {
	f := newIdentityFixture()
	ctx := context.Background()

	user, err := f.service.Register(ctx, "verify@example.com", "", "correct-horse")
	require.NoError(t, err)
	code := f.mailer.last(t).code

	err = f.service.VerifyEmail(ctx, "verify@example.com", "000000")
	assert.ErrorIs(t, err, ErrInvalidCode)

	require.NoError(t, f.service.VerifyEmail(ctx, "verify@example.com", code))

	activated, err := f.store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, activated.IsActive)

	_, err = f.store.GetVerificationCode(ctx, user.ID)
	assert.ErrorIs(t, err, ErrNoCodeIssued, "used code must be deleted")

	err = f.service.VerifyEmail(ctx, "verify@example.com", code)
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestVerifyEmailExpiredCode(t *testing.T) {
	f := newIdentityFixture()
	ctx := context.Background()

	user, err := f.service.Register(ctx, "stale@example.com", "", "correct-horse")
	require.NoError(t, err)
	code := f.mailer.last(t).code
	f.store.backdateCode(user.ID, codeValidity+time.Minute)

	err = f.service.VerifyEmail(ctx, "stale@example.com", code)
	assert.ErrorIs(t, err, ErrExpiredCode)
}

func TestResendVerificationCodeRateLimited(t *testing.T) {
	f := newIdentityFixture()
	ctx := context.Background()

	user, err := f.service.Register(ctx, "resend@example.com", "", "correct-horse")
	require.NoError(t, err)

	err = f.service.ResendVerificationCode(ctx, "resend@example.com")
	assert.ErrorIs(t, err, ErrTooManyCodeRequests)
	assert.Equal(t, 1, f.mailer.count())

	f.store.backdateCode(user.ID, codeResendInterval+time.Second)
	require.NoError(t, f.service.ResendVerificationCode(ctx, "resend@example.com"))
	assert.Equal(t, 2, f.mailer.count())
}

func TestLogin(t *testing.T) {
	f := newIdentityFixture()
	ctx := context.Background()
	user := f.registerActive(t, "login@example.com", "correct-horse")

	result, err := f.service.Login(ctx, "login@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	assert.False(t, result.TwoFactorPending)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)

	// Login also works with the derived login name.
	_, err = f.service.Login(ctx, "login", "correct-horse")
	require.NoError(t, err)

	_, err = f.service.Login(ctx, "login@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.service.Login(ctx, "nobody@example.com", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "unknown address must look like a bad password")
}

func TestLoginUnverifiedReissuesCode(t *testing.T) {
	f := newIdentityFixture()
	ctx := context.Background()

	user, err := f.service.Register(ctx, "pending@example.com", "", "correct-horse")
	require.NoError(t, err)
	f.store.backdateCode(user.ID, codeResendInterval+time.Second)

	_, err = f.service.Login(ctx, "pending@example.com", "correct-horse")
	assert.ErrorIs(t, err, ErrUserNotVerified)
	assert.Equal(t, 2, f.mailer.count(), "login on an inactive account re-sends the code")
}

func TestLoginWithTwoFactor(t *testing.T) {
	f := newIdentityFixture()
	ctx := context.Background()
	user := f.registerActive(t, "totp@example.com", "correct-horse")
	secret := enableTwoFactor(t, f, user.ID)

	result, err := f.service.Login(ctx, "totp@example.com", "correct-horse")
	require.NoError(t, err)
	assert.True(t, result.TwoFactorPending)
	assert.Empty(t, result.AccessToken, "no tokens before the second factor")
	require.NotEmpty(t, result.SessionToken)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	finished, err := f.service.VerifyTwoFactor(ctx, result.SessionToken, code)
	require.NoError(t, err)
	assert.NotEmpty(t, finished.AccessToken)
	assert.NotEmpty(t, finished.RefreshToken)

	// The pending session is one-shot.
	_, err = f.service.VerifyTwoFactor(ctx, result.SessionToken, code)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestVerifyTwoFactorWrongCode(t *testing.T) {
	f := newIdentityFixture()
	ctx := context.Background()
	user := f.registerActive(t, "totp2@example.com", "correct-horse")
	enableTwoFactor(t, f, user.ID)

	result, err := f.service.Login(ctx, "totp2@example.com", "correct-horse")
	require.NoError(t, err)

	_, err = f.service.VerifyTwoFactor(ctx, result.SessionToken, "000000")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestTwoFactorSetupFlow(t *testing.T) {
	f := newIdentityFixture()
	ctx := context.Background()
	user := f.registerActive(t, "setup@example.com", "correct-horse")

	uri, err := f.service.BeginTwoFactorSetup(ctx, user.ID)
	require.NoError(t, err)
	assert.Contains(t, uri, "otpauth://totp/")

	// The flag stays off until the user proves they hold the secret.
	pending, err := f.store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, pending.TwoFactorEnabled)

	err = f.service.ConfirmTwoFactor(ctx, user.ID, "000000")
	assert.ErrorIs(t, err, ErrInvalidCode)

	secret, err := f.store.GetTwoFactorSecret(ctx, user.ID)
	require.NoError(t, err)
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.service.ConfirmTwoFactor(ctx, user.ID, code))

	enabled, err := f.store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, enabled.TwoFactorEnabled)

	_, err = f.service.BeginTwoFactorSetup(ctx, user.ID)
	assert.ErrorIs(t, err, ErrTwoFactorEnabled)

	code, err = totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.service.DisableTwoFactor(ctx, user.ID, code))

	disabled, err := f.store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, disabled.TwoFactorEnabled)
}

func TestRefresh(t *testing.T) {
	f := newIdentityFixture()
	ctx := context.Background()
	f.registerActive(t, "refresh@example.com", "correct-horse")

	result, err := f.service.Login(ctx, "refresh@example.com", "correct-horse")
	require.NoError(t, err)

	renewed, err := f.service.Refresh(ctx, result.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, renewed.AccessToken)

	_, err = f.service.Refresh(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordChangeInvalidatesRefreshTokens(t *testing.T) {
	f := newIdentityFixture()
	ctx := context.Background()
	user := f.registerActive(t, "rotate@example.com", "correct-horse")

	result, err := f.service.Login(ctx, "rotate@example.com", "correct-horse")
	require.NoError(t, err)

	err = f.service.ChangePassword(ctx, user.ID, "wrong-old", "brand-new-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = f.service.ChangePassword(ctx, user.ID, "correct-horse", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	require.NoError(t, f.service.ChangePassword(ctx, user.ID, "correct-horse", "brand-new-password"))

	_, err = f.service.Login(ctx, "rotate@example.com", "brand-new-password")
	require.NoError(t, err)

	// The pre-rotation refresh token no longer matches the hash token.
	_, err = f.service.Refresh(ctx, result.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newIdentityFixture()
	ctx := context.Background()
	f.registerActive(t, "forgot@example.com", "correct-horse")

	require.NoError(t, f.service.RequestPasswordReset(ctx, "forgot@example.com"))
	mail := f.mailer.last(t)
	assert.Equal(t, PurposePasswordReset, mail.purpose)

	err := f.service.ResetPassword(ctx, "forgot@example.com", "000000", "brand-new-password")
	assert.ErrorIs(t, err, ErrInvalidCode)

	require.NoError(t, f.service.ResetPassword(ctx, "forgot@example.com", mail.code, "brand-new-password"))

	_, err = f.service.Login(ctx, "forgot@example.com", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.service.Login(ctx, "forgot@example.com", "brand-new-password")
	require.NoError(t, err)
}

func TestResetCodeRejectedForVerification(t *testing.T) {
	f := newIdentityFixture()
	ctx := context.Background()

	_, err := f.service.Register(ctx, "crossed@example.com", "", "correct-horse")
	require.NoError(t, err)
	verifyCode := f.mailer.last(t).code

	// A verification code must not work as a password-reset code.
	err = f.service.ResetPassword(ctx, "crossed@example.com", verifyCode, "brand-new-password")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func enableTwoFactor(t *testing.T, f *identityFixture, userID string) string {
	t.Helper()
	ctx := context.Background()
	_, err := f.service.BeginTwoFactorSetup(ctx, userID)
	require.NoError(t, err)
	secret, err := f.store.GetTwoFactorSecret(ctx, userID)
	require.NoError(t, err)
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.service.ConfirmTwoFactor(ctx, userID, code))
	return secret
}

func TestSessionStoreExpiry(t *testing.T) {
	store := NewSessionStore()
	token, err := store.Create("user-1")
	require.NoError(t, err)

	store.mu.Lock()
	session := store.sessions[token]
	session.expiresAt = time.Now().Add(-time.Second)
	store.sessions[token] = session
	store.mu.Unlock()

	_, err = store.Consume(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestTokenManagerRefreshBinding(t *testing.T) {
	tokens := NewTokenManager("test-secret")

	refresh, err := tokens.IssueRefreshToken("user-1", "hash-token-a")
	require.NoError(t, err)

	userID, err := tokens.UserIDFromRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	require.NoError(t, tokens.ValidateRefreshToken(refresh, "hash-token-a"))
	assert.ErrorIs(t, tokens.ValidateRefreshToken(refresh, "hash-token-b"), ErrInvalidToken)

	// Access tokens are not accepted where refresh tokens are expected.
	access, err := tokens.IssueAccessToken("user-1")
	require.NoError(t, err)
	assert.ErrorIs(t, tokens.ValidateRefreshToken(access, "hash-token-a"), ErrInvalidToken)
}
