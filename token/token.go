package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for every validation failure. Callers
// cannot distinguish a malformed token from an expired one.
var ErrInvalidToken = errors.New("token: invalid or expired")

// Claims is the JWT payload: subject email plus issued-at and expiry.
type Claims struct {
	jwt.RegisteredClaims
}

// Service issues and validates signed bearer tokens. It is pure
// computation over an immutable secret; it performs no I/O and keeps
// no state between calls.
//
// Access and refresh tokens are structurally identical and differ
// only in TTL, so a refresh token passes validation anywhere an
// access token is accepted. There is no revocation for either kind.
type Service struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// New creates a token Service. The secret comes from startup
// configuration and must not change while the process runs.
func New(secret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssueAccess signs a short-lived token for the given user email.
func (s *Service) IssueAccess(email string) (string, error) {
	return s.issue(email, s.accessTTL)
}

// IssueRefresh signs a long-lived token for the given user email.
func (s *Service) IssueRefresh(email string) (string, error) {
	return s.issue(email, s.refreshTTL)
}

func (s *Service) issue(email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Validate checks the signature and expiry of a token string and
// returns the subject email. All failure modes collapse into
// ErrInvalidToken.
func (s *Service) Validate(tokenStr string) (string, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return "", ErrInvalidToken
	}
	claims, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
