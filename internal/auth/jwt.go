// Package auth mints and verifies the JWT access and refresh tokens issued
// by the mock marketplace API.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the claims.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Default token lifetimes.
const (
	DefaultAccessTTL  = 60 * time.Minute
	DefaultRefreshTTL = 24 * time.Hour
)

var (
	// ErrExpired is returned for a well-formed token past its expiry.
	ErrExpired = errors.New("token expired")
	// ErrInvalid is returned for any other verification failure.
	ErrInvalid = errors.New("invalid token")
)

// Claims is the token payload.
type Claims struct {
	UserID    int64  `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Issuer signs tokens with an HMAC secret.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// IssuerOption configures an Issuer.
type IssuerOption func(*Issuer)

// WithAccessTTL sets the access token lifetime.
func WithAccessTTL(d time.Duration) IssuerOption {
	return func(i *Issuer) {
		if d != 0 {
			i.accessTTL = d
		}
	}
}

// WithRefreshTTL sets the refresh token lifetime.
func WithRefreshTTL(d time.Duration) IssuerOption {
	return func(i *Issuer) {
		if d != 0 {
			i.refreshTTL = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.now = now
	}
}

// NewIssuer creates an Issuer for secret.
func NewIssuer(secret string, opts ...IssuerOption) *Issuer {
	i := &Issuer{
		secret:     []byte(secret),
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Pair is an access and refresh token issued together.
type Pair struct {
	Access  string
	Refresh string
}

// IssuePair mints a fresh access and refresh token for userID.
func (i *Issuer) IssuePair(userID int64) (Pair, error) {
	access, err := i.Issue(userID, TypeAccess)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := i.Issue(userID, TypeRefresh)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

// Issue mints one token of the given type.
func (i *Issuer) Issue(userID int64, tokenType string) (string, error) {
	ttl := i.accessTTL
	if tokenType == TypeRefresh {
		ttl = i.refreshTTL
	}

	now := i.now()
	claims := &Claims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   fmt.Sprint(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies a token and checks its type. An expired token wraps
// ErrExpired; every other failure wraps ErrInvalid.
func (i *Issuer) Validate(token, wantType string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%w: %w", ErrExpired, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if wantType != "" && claims.TokenType != wantType {
		return nil, fmt.Errorf("%w: want %s token, got %q", ErrInvalid, wantType, claims.TokenType)
	}
	return claims, nil
}
