// Package post implements ownership-checked blog post CRUD.
package post

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Error kinds.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
)

// OpError is a typed operation error with a stable Op + Kind contract.
type OpError struct {
	Op   string
	Kind error
	Msg  string
}

func (e OpError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Msg)
}

func (e OpError) Unwrap() error { return e.Kind }

// Post is a blog entry owned by its author.
type Post struct {
	ID        string
	AuthorID  string
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateInput is the body of a new post.
type CreateInput struct {
	Title   string
	Content string
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Title   *string
	Content *string
}

// Page bounds a List call.
type Page struct {
	Limit  int
	Offset int
}

// Store persists posts. List returns newest first.
type Store interface {
	Insert(ctx context.Context, p Post) error
	Get(ctx context.Context, id string) (Post, error)
	List(ctx context.Context, page Page) ([]Post, error)
	// Update and Delete only touch the row when it belongs to authorID.
	Update(ctx context.Context, p Post) error
	Delete(ctx context.Context, id, authorID string) error
}

func notFound(op string) error { return OpError{Op: op, Kind: ErrNotFound, Msg: "post"} }

func invalid(op, msg string) error { return OpError{Op: op, Kind: ErrInvalidInput, Msg: msg} }
