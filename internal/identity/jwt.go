package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

var (
	ErrInvalidToken = errors.New("token is invalid")
	ErrExpiredToken = errors.New("token is expired")
)

const (
	accessTokenDuration  = 15 * time.Minute
	refreshTokenDuration = 720 * time.Hour
)

type accessClaims struct {
	UserID string `json:"user_id"`
	jwt.StandardClaims
}

type refreshClaims struct {
	UserID string `json:"user_id"`
	CusKey string `json:"cus_key"`
	jwt.StandardClaims
}

// TokenManager issues and validates the JWT pair. Refresh tokens embed an
// HMAC of the user ID keyed by the user's hash token, so rotating the hash
// token (on password change) invalidates every refresh token in the wild.
type TokenManager struct {
	secret []byte
}

func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret)}
}

func (m *TokenManager) customKey(userID, hashToken string) string {
	h := hmac.New(sha256.New, []byte(hashToken))
	h.Write([]byte(userID))
	return hex.EncodeToString(h.Sum(nil))
}

func (m *TokenManager) IssueAccessToken(userID string) (string, error) {
	claims := &accessClaims{
		UserID: userID,
		StandardClaims: jwt.StandardClaims{
			Subject:   userID,
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(accessTokenDuration).Unix(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *TokenManager) IssueRefreshToken(userID, hashToken string) (string, error) {
	claims := &refreshClaims{
		UserID: userID,
		CusKey: m.customKey(userID, hashToken),
		StandardClaims: jwt.StandardClaims{
			Subject:   userID,
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(refreshTokenDuration).Unix(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// ValidateAccessToken returns the user ID carried by a valid access token.
func (m *TokenManager) ValidateAccessToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &accessClaims{}, m.keyFunc)
	if err != nil {
		return "", mapJWTError(err)
	}
	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}

// UserIDFromRefreshToken extracts the user ID without checking the custom
// key, so the caller can load the user's current hash token first.
func (m *TokenManager) UserIDFromRefreshToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &refreshClaims{}, m.keyFunc)
	if err != nil {
		return "", mapJWTError(err)
	}
	claims, ok := token.Claims.(*refreshClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}

// ValidateRefreshToken checks signature, expiry and the hash-token binding.
func (m *TokenManager) ValidateRefreshToken(tokenString, hashToken string) error {
	token, err := jwt.ParseWithClaims(tokenString, &refreshClaims{}, m.keyFunc)
	if err != nil {
		return mapJWTError(err)
	}
	claims, ok := token.Claims.(*refreshClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return ErrInvalidToken
	}
	if claims.CusKey != m.customKey(claims.UserID, hashToken) {
		return ErrInvalidToken
	}
	return nil
}

func (m *TokenManager) keyFunc(_ *jwt.Token) (interface{}, error) {
	return m.secret, nil
}

func mapJWTError(err error) error {
	var validationErr *jwt.ValidationError
	if errors.As(err, &validationErr) && validationErr.Errors&jwt.ValidationErrorExpired != 0 {
		return ErrExpiredToken
	}
	return ErrInvalidToken
}
