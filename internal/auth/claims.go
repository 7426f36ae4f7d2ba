package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claim is the verified identity of a caller for the duration of one request.
// It is only ever produced by Verifier.Verify.
type Claim struct {
	InternalID int64     `json:"internal_id"`
	PublicID   string    `json:"public_id"`
	LocaleID   int       `json:"locale_id"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// sessionClaims is the wire layout of a session token.
type sessionClaims struct {
	ID         numericID  `json:"id"`
	UserID     string     `json:"user_id"`
	LanguageID *numericID `json:"language_id,omitempty"`
	jwt.RegisteredClaims
}

// numericID accepts both JSON numbers and numeric strings. Older clients
// issued tokens with string ids.
type numericID int64

// UnmarshalJSON implements json.Unmarshaler
func (n *numericID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("numeric id is null")
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("numeric id %q: %w", s, err)
		}
		*n = numericID(v)
		return nil
	}

	var f json.Number
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	v, err := f.Int64()
	if err != nil {
		return fmt.Errorf("numeric id %s: %w", f, err)
	}
	*n = numericID(v)
	return nil
}

// toClaim validates the identity fields and converts the wire claims.
func (c *sessionClaims) toClaim() (*Claim, error) {
	if c.ID <= 0 {
		return nil, fmt.Errorf("%w: id must be a positive integer", ErrMalformedToken)
	}
	if c.UserID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrMalformedToken)
	}
	if c.LanguageID == nil {
		return nil, fmt.Errorf("%w: language_id is required", ErrMalformedToken)
	}

	claim := &Claim{
		InternalID: int64(c.ID),
		PublicID:   c.UserID,
		LocaleID:   int(*c.LanguageID),
	}
	if c.ExpiresAt != nil {
		claim.ExpiresAt = c.ExpiresAt.Time
	}
	return claim, nil
}
