package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenMissing occurs when no bearer credential is presented.
	ErrTokenMissing = errors.New("token missing")
	// ErrTokenInvalid occurs when the bearer credential is malformed or expired.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrForbidden occurs when the caller's role does not allow the operation.
	ErrForbidden = errors.New("forbidden")
)

// UserSafeMessage returns a message suitable for API consumers, hiding
// internal detail behind a generic fallback.
func UserSafeMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "resource not found"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid credentials"
	case errors.Is(err, ErrForbidden):
		return "access denied"
	default:
		return "something went wrong"
	}
}
