package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"blog/cmd/security/password"
)

// User is a registered blog account.
type User struct {
	ID        string
	Email     string
	Username  string
	CreatedAt time.Time
}

// UserAuth is a User plus its encoded password hash. It never leaves the auth path.
type UserAuth struct {
	User         User
	PasswordHash string
}

// CreateUserInput describes a registration request.
type CreateUserInput struct {
	Email    string
	Username string
	Password string
	Now      time.Time
}

// Hasher turns a plaintext password into an encoded hash, enforcing policy.
// password.Config satisfies it.
type Hasher interface {
	Hash(password string) (string, error)
}

// Store is the credential persistence boundary.
type Store interface {
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)
	GetUserAuthByEmail(ctx context.Context, email string) (UserAuth, error)
	GetUserByID(ctx context.Context, id string) (User, error)
}

// userRow is a validated, hashed registration ready to persist.
type userRow struct {
	User
	EmailNorm    string
	UsernameNorm string
	PasswordHash string
}

// prepareUser validates and normalizes in, hashes the password and assigns an ID.
// Shared by every Store implementation so validation cannot drift between them.
func prepareUser(op string, h Hasher, in CreateUserInput) (userRow, error) {
	if h == nil {
		return userRow{}, invalid(op, "nil hasher")
	}

	email := strings.TrimSpace(in.Email)
	username := strings.TrimSpace(in.Username)

	if !validEmail(email) {
		return userRow{}, invalid(op, "invalid email")
	}
	if !validUsername(username) {
		return userRow{}, invalid(op, "invalid username")
	}

	pwHash, err := h.Hash(in.Password)
	if err != nil {
		switch {
		case errors.Is(err, password.ErrPasswordTooShort),
			errors.Is(err, password.ErrPasswordTooLong),
			errors.Is(err, password.ErrWeakPassword):
			return userRow{}, invalid(op, err.Error())
		default:
			return userRow{}, err
		}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC().Truncate(time.Microsecond) // timestamptz precision

	id, err := NewULID(now)
	if err != nil {
		return userRow{}, err
	}

	return userRow{
		User: User{
			ID:        id,
			Email:     email,
			Username:  username,
			CreatedAt: now,
		},
		EmailNorm:    NormalizeEmail(email),
		UsernameNorm: NormalizeUsername(username),
		PasswordHash: pwHash,
	}, nil
}
