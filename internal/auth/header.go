package auth

import "strings"

// TokenFromHeader extracts the bearer token from an Authorization header
// value. Both "Bearer <token>" and a bare token are accepted.
func TokenFromHeader(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "Bearer") {
		return "", ErrMissingToken
	}

	if scheme, rest, ok := strings.Cut(value, " "); ok && strings.EqualFold(scheme, "Bearer") {
		value = strings.TrimSpace(rest)
		if value == "" {
			return "", ErrMissingToken
		}
	}

	return value, nil
}

// ExtractToken reads the token from the Authorization header. Header names
// are matched case-insensitively since gateways differ in how they pass them.
func ExtractToken(headers map[string]string) (string, error) {
	if v, ok := headers["Authorization"]; ok {
		return TokenFromHeader(v)
	}
	for name, v := range headers {
		if strings.EqualFold(name, "Authorization") {
			return TokenFromHeader(v)
		}
	}
	return "", ErrMissingToken
}
