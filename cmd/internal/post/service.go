package post

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"blog/cmd/identity/ids"
)

const (
	MaxTitleLen   = 200
	MaxContentLen = 100_000

	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Service applies validation and ownership rules on top of a Store.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService returns a Service. now defaults to time.Now.
func NewService(store Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}
}

// Create stores a new post authored by authorID.
func (s *Service) Create(ctx context.Context, authorID string, in CreateInput) (Post, error) {
	const op = "post.Create"

	if strings.TrimSpace(authorID) == "" {
		return Post{}, invalid(op, "missing author")
	}
	title, content := strings.TrimSpace(in.Title), in.Content
	if err := validate(op, title, content); err != nil {
		return Post{}, err
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	id, err := ids.NewULID(now)
	if err != nil {
		return Post{}, err
	}

	p := Post{
		ID:        id,
		AuthorID:  authorID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Insert(ctx, p); err != nil {
		return Post{}, err
	}
	return p, nil
}

// Get returns one post.
func (s *Service) Get(ctx context.Context, id string) (Post, error) {
	if strings.TrimSpace(id) == "" {
		return Post{}, notFound("post.Get")
	}
	return s.store.Get(ctx, id)
}

// List returns a page of posts, newest first.
func (s *Service) List(ctx context.Context, page Page) ([]Post, error) {
	return s.store.List(ctx, clampPage(page))
}

// Update applies the non-nil fields of in. Only the author may update.
func (s *Service) Update(ctx context.Context, callerID, id string, in UpdateInput) (Post, error) {
	const op = "post.Update"

	p, err := s.owned(ctx, op, callerID, id)
	if err != nil {
		return Post{}, err
	}

	if in.Title != nil {
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		p.Content = *in.Content
	}
	if err := validate(op, p.Title, p.Content); err != nil {
		return Post{}, err
	}
	p.UpdatedAt = s.now().UTC().Truncate(time.Microsecond)

	if err := s.store.Update(ctx, p); err != nil {
		return Post{}, err
	}
	return p, nil
}

// Delete removes a post. Only the author may delete.
func (s *Service) Delete(ctx context.Context, callerID, id string) error {
	const op = "post.Delete"

	p, err := s.owned(ctx, op, callerID, id)
	if err != nil {
		return err
	}
	return s.store.Delete(ctx, p.ID, p.AuthorID)
}

func (s *Service) owned(ctx context.Context, op, callerID, id string) (Post, error) {
	if strings.TrimSpace(id) == "" {
		return Post{}, notFound(op)
	}
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return Post{}, err
	}
	if p.AuthorID != callerID {
		return Post{}, OpError{Op: op, Kind: ErrForbidden, Msg: "not the author"}
	}
	return p, nil
}

func validate(op, title, content string) error {
	switch n := utf8.RuneCountInString(title); {
	case n == 0:
		return invalid(op, "title is required")
	case n > MaxTitleLen:
		return invalid(op, "title is too long")
	}
	switch n := utf8.RuneCountInString(content); {
	case strings.TrimSpace(content) == "":
		return invalid(op, "content is required")
	case n > MaxContentLen:
		return invalid(op, "content is too long")
	}
	return nil
}

func clampPage(p Page) Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
