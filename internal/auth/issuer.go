package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer signs session tokens with the same layout Verifier accepts
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// NewIssuer creates a token issuer
func NewIssuer(secret string) (*Issuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret cannot be empty")
	}
	return &Issuer{secret: []byte(secret), now: time.Now}, nil
}

// Issue signs a token for the account that expires after ttl
func (i *Issuer) Issue(internalID int64, publicID string, localeID int, ttl time.Duration) (string, time.Time, error) {
	if internalID <= 0 || publicID == "" {
		return "", time.Time{}, fmt.Errorf("cannot issue token without account identity")
	}
	if ttl <= 0 {
		return "", time.Time{}, fmt.Errorf("token ttl must be positive")
	}

	issuedAt := i.now().UTC()
	expiresAt := issuedAt.Add(ttl)
	lang := numericID(localeID)

	claims := &sessionClaims{
		ID:         numericID(internalID),
		UserID:     publicID,
		LanguageID: &lang,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Days converts a day count into a token lifetime
func Days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
