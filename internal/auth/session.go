package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionCookie is the name of the cookie carrying the session token.
const SessionCookie = "session"

const sessionSubject = "staff"

// ErrInvalidSession is returned for missing, expired or forged tokens.
var ErrInvalidSession = errors.New("invalid session")

// Sessions issues and validates HS256 session tokens.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessions creates a session issuer. ttl defaults to 12 hours.
func NewSessions(secret string, ttl time.Duration) (*Sessions, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Sessions{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL returns how long issued sessions stay valid.
func (s *Sessions) TTL() time.Duration { return s.ttl }

// Issue signs a new session token.
func (s *Sessions) Issue() (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		ID:        uuid.New().String(),
		Subject:   sessionSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return token, expires, nil
}

// Validate checks the signature, algorithm and expiry of a token.
func (s *Sessions) Validate(token string) (*jwt.RegisteredClaims, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithSubject(sessionSubject),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
