package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultExpiration = 30 * time.Minute

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrEmptySecret  = errors.New("jwt secret is empty")
	ErrEmptySubject = errors.New("token subject is empty")
)

// Issuer signs and verifies HS256 bearer tokens carrying only sub and exp.
// Tokens are stateless: there is no revocation list, a token stays valid
// until exp.
type Issuer struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

type Option func(*Issuer)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

func NewIssuer(secret string, expiration time.Duration, opts ...Option) (*Issuer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if expiration <= 0 {
		expiration = DefaultExpiration
	}
	issuer := &Issuer{
		secret:     []byte(secret),
		expiration: expiration,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(issuer)
	}
	return issuer, nil
}

func (i *Issuer) Issue(subject string) (string, error) {
	if subject == "" {
		return "", ErrEmptySubject
	}
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(i.now().UTC().Add(i.expiration)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token failed: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the subject. A token whose
// exp is at or before now is expired.
func (i *Issuer) Verify(token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return i.now().UTC() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
