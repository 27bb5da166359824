package post

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	posts map[string]Post
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{posts: make(map[string]Post)}
}

// Insert implements Store.
func (s *MemoryStore) Insert(ctx context.Context, p Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[p.ID]; ok {
		return invalid("post.Insert", "duplicate id")
	}
	s.posts[p.ID] = p
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, id string) (Post, error) {
	if err := ctx.Err(); err != nil {
		return Post{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return Post{}, notFound("post.Get")
	}
	return p, nil
}

// List implements Store.
func (s *MemoryStore) List(ctx context.Context, page Page) ([]Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page = clampPage(page)

	s.mu.RLock()
	all := make([]Post, 0, len(s.posts))
	for _, p := range s.posts {
		all = append(all, p)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	if page.Offset >= len(all) {
		return []Post{}, nil
	}
	end := page.Offset + page.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[page.Offset:end], nil
}

// Update implements Store.
func (s *MemoryStore) Update(ctx context.Context, p Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.posts[p.ID]
	if !ok || cur.AuthorID != p.AuthorID {
		return notFound("post.Update")
	}
	cur.Title, cur.Content, cur.UpdatedAt = p.Title, p.Content, p.UpdatedAt
	s.posts[p.ID] = cur
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, id, authorID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.posts[id]
	if !ok || cur.AuthorID != authorID {
		return notFound("post.Delete")
	}
	delete(s.posts, id)
	return nil
}
