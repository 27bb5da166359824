// Package postapi exposes post CRUD over HTTP. Reads are public; writes
// need a bearer access token.
package postapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"blog/cmd/internal/auth/session"
	"blog/cmd/internal/httpx"
	"blog/cmd/internal/post"
)

// Authenticator resolves a bearer token. *session.Manager satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, now time.Time, accessToken string) (session.Principal, error)
}

// Handler serves /posts.
type Handler struct {
	log      *slog.Logger
	posts    *post.Service
	auth     Authenticator
	maxBytes int64
	now      func() time.Time
}

// NewHandler constructs a post Handler.
func NewHandler(log *slog.Logger, posts *post.Service, auth Authenticator, maxBodyBytes int64) (*Handler, error) {
	if posts == nil || auth == nil {
		return nil, errors.New("postapi: nil dependency")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log, posts: posts, auth: auth, maxBytes: maxBodyBytes, now: time.Now}, nil
}

// Register wires post routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /posts", h.requireAuth(h.handleCreate))
	mux.HandleFunc("GET /posts", h.handleList)
	mux.HandleFunc("GET /posts/{id}", h.handleGet)
	mux.HandleFunc("PUT /posts/{id}", h.requireAuth(h.handleUpdate))
	mux.HandleFunc("DELETE /posts/{id}", h.requireAuth(h.handleDelete))
}

type authedHandler func(w http.ResponseWriter, r *http.Request, p session.Principal)

func (h *Handler) requireAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok, ok := httpx.BearerToken(r)
		if !ok {
			httpx.WriteUnauthorized(w)
			return
		}
		p, err := h.auth.Authenticate(r.Context(), h.now(), tok)
		if err != nil {
			if !session.IsUnauthorized(err) {
				h.log.Error("posts.auth.unexpected_error", "err", err)
			}
			httpx.WriteUnauthorized(w)
			return
		}
		next(w, r, p)
	}
}

type createRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type updateRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

type postResponse struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toPostResponse(p post.Post) postResponse {
	return postResponse{
		ID:        p.ID,
		AuthorID:  p.AuthorID,
		Title:     p.Title,
		Content:   p.Content,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request, p session.Principal) {
	var req createRequest
	if err := httpx.DecodeJSON(w, r, h.maxBytes, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	created, err := h.posts.Create(r.Context(), p.User.ID, post.CreateInput{Title: req.Title, Content: req.Content})
	if err != nil {
		h.writeErr(w, "posts.create.fail", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toPostResponse(created))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := post.Page{Limit: atoiOr(q.Get("limit"), 0), Offset: atoiOr(q.Get("offset"), 0)}

	list, err := h.posts.List(r.Context(), page)
	if err != nil {
		h.writeErr(w, "posts.list.fail", err)
		return
	}
	out := make([]postResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toPostResponse(p))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.posts.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeErr(w, "posts.get.fail", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPostResponse(p))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request, p session.Principal) {
	var req updateRequest
	if err := httpx.DecodeJSON(w, r, h.maxBytes, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	updated, err := h.posts.Update(r.Context(), p.User.ID, r.PathValue("id"), post.UpdateInput{Title: req.Title, Content: req.Content})
	if err != nil {
		h.writeErr(w, "posts.update.fail", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPostResponse(updated))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, p session.Principal) {
	if err := h.posts.Delete(r.Context(), p.User.ID, r.PathValue("id")); err != nil {
		h.writeErr(w, "posts.delete.fail", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.MessageResponse{Message: "post deleted"})
}

func (h *Handler) writeErr(w http.ResponseWriter, event string, err error) {
	var oe post.OpError
	switch {
	case errors.Is(err, post.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "post not found")
	case errors.Is(err, post.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "only the author may change this post")
	case errors.As(err, &oe) && errors.Is(oe.Kind, post.ErrInvalidInput):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", oe.Msg)
	default:
		h.log.Error(event, "err", err)
		httpx.WriteInternal(w)
	}
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
