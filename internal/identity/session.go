package identity

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

var ErrInvalidSession = errors.New("login session is invalid or expired")

const pendingSessionDuration = 5 * time.Minute

type pendingSession struct {
	userID    string
	expiresAt time.Time
}

// SessionStore holds short-lived login sessions for the window between a
// correct password and the matching two-factor code. In-memory on purpose:
// losing them on restart only forces the user to log in again.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]pendingSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]pendingSession)}
}

func (s *SessionStore) Create(userID string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	token := hex.EncodeToString(raw)

	s.mu.Lock()
	s.sessions[token] = pendingSession{userID: userID, expiresAt: time.Now().Add(pendingSessionDuration)}
	s.mu.Unlock()
	return token, nil
}

// Consume resolves and removes a session token. One-shot: a second attempt
// with the same token fails even inside the validity window.
func (s *SessionStore) Consume(token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return "", ErrInvalidSession
	}
	delete(s.sessions, token)
	if time.Now().After(session.expiresAt) {
		return "", ErrInvalidSession
	}
	return session.userID, nil
}

// StartCleanup evicts expired sessions in the background.
func (s *SessionStore) StartCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			now := time.Now()
			s.mu.Lock()
			for token, session := range s.sessions {
				if now.After(session.expiresAt) {
					delete(s.sessions, token)
				}
			}
			s.mu.Unlock()
		}
	}()
}
