package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier checks session tokens signed with a shared HMAC secret.
// It holds no mutable state and is safe for concurrent use.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// VerifierOption customizes a Verifier
type VerifierOption func(*verifierOptions)

type verifierOptions struct {
	now    func() time.Time
	leeway time.Duration
}

// WithClock overrides the time source used for expiry checks
func WithClock(now func() time.Time) VerifierOption {
	return func(o *verifierOptions) {
		o.now = now
	}
}

// WithLeeway tolerates small clock skew between issuer and verifier
func WithLeeway(d time.Duration) VerifierOption {
	return func(o *verifierOptions) {
		o.leeway = d
	}
}

// NewVerifier creates a verifier for the given secret
func NewVerifier(secret string, opts ...VerifierOption) (*Verifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret cannot be empty")
	}

	o := &verifierOptions{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(o.now),
		jwt.WithLeeway(o.leeway),
	)

	return &Verifier{secret: []byte(secret), parser: parser}, nil
}

// Verify returns the session claim embedded in token. The signature is
// checked before any claim is trusted.
func (v *Verifier) Verify(token string) (*Claim, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrMalformedToken)
	}

	claims := &sessionClaims{}
	_, err := v.parser.ParseWithClaims(token, claims, v.keyFunc)
	if err != nil {
		return nil, classify(err)
	}

	return claims.toClaim()
}

func (v *Verifier) keyFunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return v.secret, nil
}

// classify maps a parser error onto one of the three verification failures.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenNotValidYet):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
}
