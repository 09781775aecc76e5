package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonathan/screening-agent/internal/server/middleware"
)

const tokenIssuer = "screening-agent"

// SessionClaims represents JWT claims identifying one screening session.
type SessionClaims struct {
	SessionID uuid.UUID `json:"sid"`
	jwt.RegisteredClaims
}

// GetSessionID returns the session ID from the claims.
// This implements the middleware.SessionIDGetter interface.
func (c *SessionClaims) GetSessionID() uuid.UUID {
	return c.SessionID
}

// TokenIssuer signs and validates session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates a token issuer. ttl is the lifetime of issued tokens.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret cannot be empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive, got %s", ttl)
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue creates a new session and returns its signed token.
func (s *TokenIssuer) Issue() (string, *SessionClaims, error) {
	now := s.now()
	claims := &SessionClaims{
		SessionID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, claims, nil
}

// Validate verifies a session token and returns its claims.
func (s *TokenIssuer) Validate(tokenString string) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token string is empty")
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("token expired: %w", err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("invalid token signature: %w", err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("malformed token: %w", err)
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid || claims.SessionID == uuid.Nil {
		return nil, fmt.Errorf("token is not valid")
	}
	return claims, nil
}

// AsTokenValidator adapts the issuer to middleware.TokenValidator.
func (s *TokenIssuer) AsTokenValidator() middleware.TokenValidator {
	return tokenValidator{issuer: s}
}

type tokenValidator struct {
	issuer *TokenIssuer
}

func (v tokenValidator) ValidateToken(tokenString string) (middleware.SessionIDGetter, error) {
	claims, err := v.issuer.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
