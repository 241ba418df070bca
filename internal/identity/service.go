package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/finvault/FinVault/internal/logging"
)

const (
	bcryptCost = 12

	PurposeVerify        = "verify"
	PurposePasswordReset = "password"

	codeValidity       = 10 * time.Minute
	codeResendInterval = 2 * time.Minute
)

var ErrTooManyCodeRequests = errors.New("a code was sent recently, wait before requesting another")

// UserStore is the persistence surface the service needs; implemented by
// Repository and by in-memory fakes in tests.
type UserStore interface {
	CreateUser(ctx context.Context, user User) error
	FindByID(ctx context.Context, userID string) (*User, error)
	FindByEmailOrLogin(ctx context.Context, emailOrLogin string) (*User, error)
	ExistsByEmailOrLogin(ctx context.Context, email, login string) (*User, error)
	Activate(ctx context.Context, userID string) error
	SetPassword(ctx context.Context, userID, passwordHash, hashToken string) error
	SaveVerificationCode(ctx context.Context, userID string, code VerificationCode) error
	GetVerificationCode(ctx context.Context, userID string) (*VerificationCode, error)
	DeleteVerificationCode(ctx context.Context, userID string) error
	EnableTwoFactor(ctx context.Context, userID, secret string) error
	DisableTwoFactor(ctx context.Context, userID string) error
	SaveTwoFactorSecret(ctx context.Context, userID, secret string) error
	GetTwoFactorSecret(ctx context.Context, userID string) (string, error)
}

// Mailer delivers the emailed codes. Delivery is fire-and-forget; failures
// are the mailer's to log.
type Mailer interface {
	SendVerificationCode(to, login, code string)
	SendPasswordResetCode(to, login, code string)
}

// LoginResult is what a successful password check yields: either a token
// pair, or a pending session when a second factor is still required.
type LoginResult struct {
	User             *User  `json:"user"`
	AccessToken      string `json:"accessToken,omitempty"`
	RefreshToken     string `json:"-"`
	TwoFactorPending bool   `json:"twoFactorPending"`
	SessionToken     string `json:"sessionToken,omitempty"`
}

type Service struct {
	store    UserStore
	mailer   Mailer
	tokens   *TokenManager
	totp     *TOTPAuthenticator
	sessions *SessionStore
	logger   *logging.Logger
}

func NewService(store UserStore, mailer Mailer, tokens *TokenManager, totp *TOTPAuthenticator, sessions *SessionStore, logger *logging.Logger) *Service {
	return &Service{
		store:    store,
		mailer:   mailer,
		tokens:   tokens,
		totp:     totp,
		sessions: sessions,
		logger:   logger.WithComponent("identity"),
	}
}

// Register creates an inactive account and emails a verification code.
func (s *Service) Register(ctx context.Context, email, login, password string) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	login, err := DeriveLogin(login, email)
	if err != nil {
		return nil, err
	}
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}

	existing, err := s.store.ExistsByEmailOrLogin(ctx, email, login)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Email == email {
			return nil, ErrEmailTaken
		}
		return nil, ErrLoginTaken
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, err
	}
	hashToken, err := randomHex(32)
	if err != nil {
		return nil, err
	}

	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		Login:        login,
		PasswordHash: string(passwordHash),
		HashToken:    hashToken,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	if err := s.issueCode(ctx, &user, PurposeVerify); err != nil {
		s.logger.Error("failed to issue verification code", "user_id", user.ID, "error", err)
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return &user, nil
}

// VerifyEmail activates the account when the emailed code matches.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) error {
	user, err := s.store.FindByEmailOrLogin(ctx, email)
	if err != nil {
		return err
	}
	if user.IsActive {
		return ErrAlreadyVerified
	}
	if err := s.checkCode(ctx, user.ID, PurposeVerify, code); err != nil {
		return err
	}
	if err := s.store.Activate(ctx, user.ID); err != nil {
		return err
	}
	return s.store.DeleteVerificationCode(ctx, user.ID)
}

// ResendVerificationCode issues a fresh code, rate-limited per user.
func (s *Service) ResendVerificationCode(ctx context.Context, email string) error {
	user, err := s.store.FindByEmailOrLogin(ctx, email)
	if err != nil {
		return err
	}
	if user.IsActive {
		return ErrAlreadyVerified
	}
	return s.issueCodeRateLimited(ctx, user, PurposeVerify)
}

// Login checks credentials. Inactive accounts get a fresh verification code
// and an ErrUserNotVerified; accounts with a second factor get a pending
// session instead of tokens.
func (s *Service) Login(ctx context.Context, emailOrLogin, password string) (*LoginResult, error) {
	user, err := s.store.FindByEmailOrLogin(ctx, emailOrLogin)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		if err := s.issueCodeRateLimited(ctx, user, PurposeVerify); err != nil && !errors.Is(err, ErrTooManyCodeRequests) {
			s.logger.Error("failed to re-issue verification code", "user_id", user.ID, "error", err)
		}
		return nil, ErrUserNotVerified
	}

	if user.TwoFactorEnabled {
		sessionToken, err := s.sessions.Create(user.ID)
		if err != nil {
			return nil, err
		}
		return &LoginResult{User: user, TwoFactorPending: true, SessionToken: sessionToken}, nil
	}

	return s.issueTokenPair(user)
}

// VerifyTwoFactor exchanges a pending session plus a TOTP code for tokens.
func (s *Service) VerifyTwoFactor(ctx context.Context, sessionToken, code string) (*LoginResult, error) {
	userID, err := s.sessions.Consume(sessionToken)
	if err != nil {
		return nil, err
	}
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.TwoFactorEnabled {
		return nil, ErrTwoFactorNotEnabled
	}
	secret, err := s.store.GetTwoFactorSecret(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !s.totp.VerifyCode(secret, code) {
		return nil, ErrInvalidCode
	}
	return s.issueTokenPair(user)
}

// Refresh validates a refresh token against the user's current hash token
// and issues a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	userID, err := s.tokens.UserIDFromRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.ValidateRefreshToken(refreshToken, user.HashToken); err != nil {
		return nil, err
	}
	return s.issueTokenPair(user)
}

// BeginTwoFactorSetup generates a TOTP secret and stores it pending
// confirmation. Returns the provisioning URI for the authenticator app.
func (s *Service) BeginTwoFactorSetup(ctx context.Context, userID string) (string, error) {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.TwoFactorEnabled {
		return "", ErrTwoFactorEnabled
	}
	uri, secret, err := s.totp.GenerateSecret(user.Email)
	if err != nil {
		return "", err
	}
	if err := s.store.SaveTwoFactorSecret(ctx, userID, secret); err != nil {
		return "", err
	}
	return uri, nil
}

// ConfirmTwoFactor turns the pending secret on once the user proves they
// hold it.
func (s *Service) ConfirmTwoFactor(ctx context.Context, userID, code string) error {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.TwoFactorEnabled {
		return ErrTwoFactorEnabled
	}
	secret, err := s.store.GetTwoFactorSecret(ctx, userID)
	if err != nil {
		return err
	}
	if !s.totp.VerifyCode(secret, code) {
		return ErrInvalidCode
	}
	return s.store.EnableTwoFactor(ctx, userID, secret)
}

// DisableTwoFactor requires a valid current code.
func (s *Service) DisableTwoFactor(ctx context.Context, userID, code string) error {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TwoFactorEnabled {
		return ErrTwoFactorNotEnabled
	}
	secret, err := s.store.GetTwoFactorSecret(ctx, userID)
	if err != nil {
		return err
	}
	if !s.totp.VerifyCode(secret, code) {
		return ErrInvalidCode
	}
	return s.store.DisableTwoFactor(ctx, userID)
}

// RequestPasswordReset emails a reset code. Callers must treat unknown
// addresses identically to known ones to avoid account probing.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.store.FindByEmailOrLogin(ctx, email)
	if err != nil {
		return err
	}
	return s.issueCodeRateLimited(ctx, user, PurposePasswordReset)
}

// ResetPassword sets a new password after checking the emailed code. The
// hash-token rotation inside SetPassword logs out every other device.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if len(newPassword) < 8 {
		return ErrWeakPassword
	}
	user, err := s.store.FindByEmailOrLogin(ctx, email)
	if err != nil {
		return err
	}
	if err := s.checkCode(ctx, user.ID, PurposePasswordReset, code); err != nil {
		return err
	}
	if err := s.setPassword(ctx, user.ID, newPassword); err != nil {
		return err
	}
	return s.store.DeleteVerificationCode(ctx, user.ID)
}

// ChangePassword rotates the password for a logged-in user who knows the
// current one.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return ErrWeakPassword
	}
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return ErrInvalidCredentials
	}
	return s.setPassword(ctx, userID, newPassword)
}

func (s *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	return s.store.FindByID(ctx, userID)
}

func (s *Service) issueTokenPair(user *User) (*LoginResult, error) {
	accessToken, err := s.tokens.IssueAccessToken(user.ID)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.tokens.IssueRefreshToken(user.ID, user.HashToken)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *Service) setPassword(ctx context.Context, userID, newPassword string) error {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return err
	}
	hashToken, err := randomHex(32)
	if err != nil {
		return err
	}
	return s.store.SetPassword(ctx, userID, string(passwordHash), hashToken)
}

func (s *Service) issueCode(ctx context.Context, user *User, purpose string) error {
	code, err := numericCode(6)
	if err != nil {
		return err
	}
	record := VerificationCode{
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: time.Now().UTC().Add(codeValidity),
	}
	if err := s.store.SaveVerificationCode(ctx, user.ID, record); err != nil {
		return err
	}

	switch purpose {
	case PurposePasswordReset:
		s.mailer.SendPasswordResetCode(user.Email, user.Login, code)
	default:
		s.mailer.SendVerificationCode(user.Email, user.Login, code)
	}
	return nil
}

func (s *Service) issueCodeRateLimited(ctx context.Context, user *User, purpose string) error {
	existing, err := s.store.GetVerificationCode(ctx, user.ID)
	if err != nil && !errors.Is(err, ErrNoCodeIssued) {
		return err
	}
	if existing != nil && time.Now().UTC().Sub(existing.CreatedAt.UTC()) < codeResendInterval {
		return ErrTooManyCodeRequests
	}
	return s.issueCode(ctx, user, purpose)
}

func (s *Service) checkCode(ctx context.Context, userID, purpose, code string) error {
	stored, err := s.store.GetVerificationCode(ctx, userID)
	if err != nil {
		return err
	}
	if stored.Purpose != purpose || stored.Code != code {
		return ErrInvalidCode
	}
	if time.Now().UTC().After(stored.ExpiresAt) {
		return ErrExpiredCode
	}
	return nil
}

func randomHex(n int) (string, error) {
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

func numericCode(n int) (string, error) {
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	for i := range raw {
		raw[i] = '0' + raw[i]%10
	}
	return string(raw), nil
}
