package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pixelpanic/pixel-panic-api/models"
)

// SessionClaims is the payload of the session token
type SessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SessionService signs HS256 session tokens. Verification lives in the
// middleware package so the same secret, issuer and audience are used there.
type SessionService struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionService creates a signer
func NewSessionService(secret, issuer, audience string, ttl time.Duration) *SessionService {
	return &SessionService{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Issue signs a session for user and returns the token with its expiry
func (s *SessionService) Issue(user *models.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := SessionClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, expiresAt, nil
}

// TTL is the lifetime of issued sessions
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}
