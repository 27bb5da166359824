package password

import "errors"

// Policy and hash errors. Policy errors are safe to show to the registering user.
var (
	ErrPasswordTooShort = errors.New("password: shorter than policy minimum")
	ErrPasswordTooLong  = errors.New("password: longer than policy maximum")
	ErrWeakPassword     = errors.New("password: too weak")
	ErrInvalidHash      = errors.New("password: malformed or unsupported hash")
)
