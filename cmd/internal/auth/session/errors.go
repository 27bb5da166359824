package session

import (
	"errors"
	"fmt"
)

// Failure kinds. All of them mean "unauthorized" to a client.
var (
	// ErrAuthenticationFailed covers unknown email, wrong password and vanished users alike.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrTokenInvalid covers bad signature, bad structure, wrong type and expiry.
	ErrTokenInvalid = errors.New("token invalid")

	ErrTokenBlacklisted = errors.New("token blacklisted")

	// ErrRefreshNotRecognized means the refresh token is not in its owner's set
	// (logged out everywhere, already rotated, or lost a concurrent refresh).
	ErrRefreshNotRecognized = errors.New("refresh token not recognized")

	// ErrStoreUnavailable means a backing store failed; the check could not be made.
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// Error is the single failure type returned by Manager.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both Kind and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IsUnauthorized reports whether err came from Manager and should be answered with 401.
func IsUnauthorized(err error) bool {
	var se *Error
	return errors.As(err, &se)
}

// KindOf returns the failure kind of a Manager error, or nil.
func KindOf(err error) error {
	var se *Error
	if !errors.As(err, &se) {
		return nil
	}
	return se.Kind
}

// kindLabel is the stable metric/log label of a kind.
func kindLabel(kind error) string {
	switch kind {
	case ErrAuthenticationFailed:
		return "authentication_failed"
	case ErrTokenInvalid:
		return "token_invalid"
	case ErrTokenBlacklisted:
		return "token_blacklisted"
	case ErrRefreshNotRecognized:
		return "refresh_not_recognized"
	case ErrStoreUnavailable:
		return "store_unavailable"
	default:
		return "unknown"
	}
}
