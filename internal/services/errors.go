package services

import (
	"errors"
	"fmt"

	"profiles-api/internal/locale"
	"profiles-api/internal/repositories"
)

// Kind classifies a service failure. Handlers map kinds to HTTP status
// codes; nothing below the handler layer knows about status codes.
type Kind int

const (
	KindInternal Kind = iota
	KindRequestShape
	KindAuth
	KindNotFound
	KindConflict
	KindInvalid
	KindDatabase
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindRequestShape:
		return "request_shape"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalid:
		return "invalid"
	case KindDatabase:
		return "database"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Error is a tagged service failure. Key selects the localized message shown
// to the caller; Err is the cause and is only logged.
type Error struct {
	Kind Kind
	Key  locale.Key
	Err  error
	// LocaleID, when non-zero, is the account's stored locale and overrides
	// the request locale for the message
	LocaleID int
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Kind, e.Key, e.Err)
	}
	return fmt.Sprintf("%s (%s)", e.Kind, e.Key)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// inLocale returns e rendered in the account's locale
func (e *Error) inLocale(localeID int) *Error {
	e.LocaleID = localeID
	return e
}

func newError(kind Kind, key locale.Key, err error) *Error {
	return &Error{Kind: kind, Key: key, Err: err}
}

// RequestShapeError reports a missing or malformed request field
func RequestShapeError(err error) *Error {
	return newError(KindRequestShape, locale.RequestShape, err)
}

// AuthError reports a caller that may not perform the operation
func AuthError(key locale.Key, err error) *Error {
	return newError(KindAuth, key, err)
}

// NotFoundError reports a missing resource
func NotFoundError(key locale.Key, err error) *Error {
	return newError(KindNotFound, key, err)
}

// ConflictError reports a request that clashes with current state
func ConflictError(key locale.Key, err error) *Error {
	return newError(KindConflict, key, err)
}

// InvalidError reports a well-formed request the rules reject
func InvalidError(key locale.Key, err error) *Error {
	return newError(KindInvalid, key, err)
}

// UpstreamError reports a failing external service
func UpstreamError(err error) *Error {
	return newError(KindUpstream, locale.UpstreamError, err)
}

// InternalError reports an unexpected failure
func InternalError(err error) *Error {
	return newError(KindInternal, locale.InternalError, err)
}

// DatabaseError classifies a repository failure. Missing rows become
// NotFound with notFoundKey; lost compare-and-set races become Conflict.
func DatabaseError(err error, notFoundKey locale.Key) *Error {
	switch {
	case repositories.IsNotFound(err):
		return NotFoundError(notFoundKey, err)
	case repositories.IsConcurrency(err):
		return ConflictError(locale.Conflict, err)
	default:
		return newError(KindDatabase, locale.InternalError, err)
	}
}

// AsError returns err as a tagged service error, treating untagged errors
// as internal
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return InternalError(err)
}
