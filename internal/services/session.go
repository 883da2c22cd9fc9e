package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gestornet/internal/core"
)

// Session holds the logged-in manager for one caller. The zero value is
// logged out.
type Session struct {
	mu      sync.RWMutex
	manager *core.Manager
	token   string
}

func NewSession() *Session { return &Session{} }

func (s *Session) Manager() (core.Manager, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.manager == nil {
		return core.Manager{}, false
	}
	return *s.manager, true
}

// ManagerName is empty when logged out.
func (s *Session) ManagerName() string {
	m, _ := s.Manager()
	return m.Name
}

func (s *Session) IsLoggedIn() bool {
	_, ok := s.Manager()
	return ok
}

// Token is the signed session token issued at login or at the last
// password change.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) set(m core.Manager, token string) {
	s.mu.Lock()
	s.manager = &m
	s.token = token
	s.mu.Unlock()
}

func (s *Session) clear() {
	s.mu.Lock()
	s.manager = nil
	s.token = ""
	s.mu.Unlock()
}

// SessionClaims identify a manager without carrying the password. Cred is a
// fingerprint of the credential the token was issued for, so a password
// change invalidates older tokens.
type SessionClaims struct {
	Name string `json:"name"`
	Cred string `json:"cred"`
	jwt.RegisteredClaims
}

// SessionTokens signs and verifies HS256 session tokens.
type SessionTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionTokens(secret string, ttl time.Duration) *SessionTokens {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *SessionTokens) Issue(m core.Manager) (string, error) {
	now := t.now()
	claims := SessionClaims{
		Name: m.Name,
		Cred: credentialFingerprint(m),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   m.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

func (t *SessionTokens) Parse(token string) (*SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &SessionClaims{}, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, core.ErrNotLoggedIn
	}
	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, core.ErrNotLoggedIn
	}
	return claims, nil
}
