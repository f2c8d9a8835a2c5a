package service

import "errors"

// Client-facing failures. Each maps to exactly one HTTP status and message
// in the http package.
var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password too short")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrMissingToken     = errors.New("missing session token")
	ErrInvalidToken     = errors.New("invalid session token")
	ErrExpiredToken     = errors.New("expired session token")
	ErrIdentityNotFound = errors.New("session identity not found")
)

// IsSessionRejection reports whether err means "not authenticated" rather
// than an internal failure.
func IsSessionRejection(err error) bool {
	return errors.Is(err, ErrMissingToken) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrExpiredToken) ||
		errors.Is(err, ErrIdentityNotFound)
}
