package auth

import "errors"

// Verification failures. Every error returned by Verifier.Verify matches
// exactly one of them with errors.Is.
var (
	// ErrMalformedToken is returned when the token cannot be decoded
	ErrMalformedToken = errors.New("malformed token")

	// ErrInvalidSignature is returned when the signature does not match the secret
	ErrInvalidSignature = errors.New("invalid token signature")

	// ErrExpired is returned when the token is outside its validity window or carries no expiry
	ErrExpired = errors.New("token expired")
)

// ErrMissingToken is returned when a request carries no Authorization header.
// It is a request-shape error, not a verification failure.
var ErrMissingToken = errors.New("authorization header is required")

// IsVerificationError reports whether err is one of the gate's verification failures
func IsVerificationError(err error) bool {
	return errors.Is(err, ErrMalformedToken) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrExpired)
}
