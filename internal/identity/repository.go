package identity

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// VerificationCode is a short-lived emailed code bound to one purpose. At
// most one code per user exists at a time; issuing a new one replaces it.
type VerificationCode struct {
	Code      string
	Purpose   string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, email, login, password_hash, hash_token, is_active, two_factor_enabled, created_at, updated_at`

func (r *Repository) CreateUser(ctx context.Context, user User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, login, password_hash, hash_token)
         VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Email, user.Login, user.PasswordHash, user.HashToken)
	return err
}

func (r *Repository) FindByID(ctx context.Context, userID string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
}

func (r *Repository) FindByEmailOrLogin(ctx context.Context, emailOrLogin string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 OR login = $1`, emailOrLogin)
}

// ExistsByEmailOrLogin returns the conflicting user, or nil when both are free.
func (r *Repository) ExistsByEmailOrLogin(ctx context.Context, email, login string) (*User, error) {
	user, err := r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 OR login = $2`, email, login)
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	return user, err
}

func (r *Repository) findOne(ctx context.Context, query string, args ...any) (*User, error) {
	var user User
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &user.Email, &user.Login, &user.PasswordHash, &user.HashToken,
		&user.IsActive, &user.TwoFactorEnabled, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) Activate(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_active = TRUE, updated_at = now() WHERE id = $1`, userID)
	return err
}

// SetPassword stores a new password hash together with a fresh hash token,
// cutting off all previously issued refresh tokens.
func (r *Repository) SetPassword(ctx context.Context, userID, passwordHash, hashToken string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, hash_token = $2, updated_at = now() WHERE id = $3`,
		passwordHash, hashToken, userID)
	return err
}

func (r *Repository) SaveVerificationCode(ctx context.Context, userID string, code VerificationCode) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_verification_codes (user_id, code, purpose, expires_at)
         VALUES ($1, $2, $3, $4)
         ON CONFLICT (user_id) DO UPDATE
         SET code = EXCLUDED.code, purpose = EXCLUDED.purpose, expires_at = EXCLUDED.expires_at, created_at = now()`,
		userID, code.Code, code.Purpose, code.ExpiresAt)
	return err
}

func (r *Repository) GetVerificationCode(ctx context.Context, userID string) (*VerificationCode, error) {
	var code VerificationCode
	err := r.db.QueryRowContext(ctx,
		`SELECT code, purpose, expires_at, created_at FROM user_verification_codes WHERE user_id = $1`, userID).
		Scan(&code.Code, &code.Purpose, &code.ExpiresAt, &code.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoCodeIssued
	}
	if err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *Repository) DeleteVerificationCode(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_verification_codes WHERE user_id = $1`, userID)
	return err
}

func (r *Repository) EnableTwoFactor(ctx context.Context, userID, secret string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET two_factor_enabled = TRUE, two_factor_secret = $1, updated_at = now() WHERE id = $2`,
		secret, userID)
	return err
}

func (r *Repository) DisableTwoFactor(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET two_factor_enabled = FALSE, two_factor_secret = NULL, updated_at = now() WHERE id = $1`,
		userID)
	return err
}

// SaveTwoFactorSecret stores a pending secret without flipping the enabled
// flag; the flag turns on once the user confirms with a valid code.
func (r *Repository) SaveTwoFactorSecret(ctx context.Context, userID, secret string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET two_factor_secret = $1, updated_at = now() WHERE id = $2`, secret, userID)
	return err
}

func (r *Repository) GetTwoFactorSecret(ctx context.Context, userID string) (string, error) {
	var secret sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT two_factor_secret FROM users WHERE id = $1`, userID).Scan(&secret)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", err
	}
	if !secret.Valid || secret.String == "" {
		return "", ErrTwoFactorNotEnabled
	}
	return secret.String, nil
}
