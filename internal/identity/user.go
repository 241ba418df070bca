package identity

import (
	"errors"
	"strings"
	"time"

	"github.com/badoux/checkmail"
)

const (
	minLoginLength = 5
	maxLoginLength = 30
	maxEmailLength = 255
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidEmail        = errors.New("email address is not valid")
	ErrInvalidLogin        = errors.New("login must be between 5 and 30 characters")
	ErrWeakPassword        = errors.New("password must be at least 8 characters")
	ErrEmailTaken          = errors.New("email already registered")
	ErrLoginTaken          = errors.New("login already taken")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserNotVerified     = errors.New("account has not been verified")
	ErrAlreadyVerified     = errors.New("account already verified")
	ErrInvalidCode         = errors.New("verification code is invalid")
	ErrExpiredCode         = errors.New("verification code has expired")
	ErrNoCodeIssued        = errors.New("no verification code has been issued")
	ErrTwoFactorRequired   = errors.New("two-factor code required")
	ErrTwoFactorEnabled    = errors.New("two-factor auth already enabled")
	ErrTwoFactorNotEnabled = errors.New("two-factor auth is not enabled")
)

// User is an account holder. HashToken salts the refresh-token signature so
// that changing the password invalidates every outstanding refresh token.
type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Login            string    `json:"login"`
	PasswordHash     string    `json:"-"`
	HashToken        string    `json:"-"`
	IsActive         bool      `json:"isActive"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// ValidateEmail checks format and length. Host checks are skipped: they are
// slow, flaky behind firewalls, and the verification email is the real probe.
func ValidateEmail(email string) error {
	if err := checkmail.ValidateFormat(email); err != nil {
		return ErrInvalidEmail
	}
	if len(email) > maxEmailLength {
		return ErrInvalidEmail
	}
	return nil
}

// DeriveLogin fills an empty login from the email's local part.
func DeriveLogin(login, email string) (string, error) {
	if login == "" {
		local, _, found := strings.Cut(email, "@")
		if !found || local == "" {
			return "", ErrInvalidEmail
		}
		return local, nil
	}
	if len(login) < minLoginLength || len(login) > maxLoginLength {
		return "", ErrInvalidLogin
	}
	return login, nil
}
