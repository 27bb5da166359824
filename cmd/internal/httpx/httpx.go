// Package httpx holds the JSON and bearer-token helpers shared by the HTTP handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// DefaultMaxBodyBytes bounds request bodies when a handler has no explicit limit.
const DefaultMaxBodyBytes int64 = 1 << 20

// ErrExtraData is returned when a body holds more than one JSON value.
var ErrExtraData = errors.New("extra data after JSON object")

// APIError is the error envelope body.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is {"error":{"code","message"}}.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// MessageResponse is {"message": "..."}.
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteJSON writes v with status. Responses are never cached.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the error envelope.
func WriteError(w http.ResponseWriter, status int, code, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: APIError{Code: code, Message: msg}})
}

// WriteUnauthorized writes the single 401 used for every credential or token failure.
func WriteUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	WriteError(w, http.StatusUnauthorized, "unauthorized", "could not validate credentials")
}

// WriteInternal writes a generic 500.
func WriteInternal(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
}

// WriteUnavailable writes a 503 for a backend that could not be reached.
func WriteUnavailable(w http.ResponseWriter) {
	WriteError(w, http.StatusServiceUnavailable, "unavailable", "service temporarily unavailable")
}

// DecodeJSON decodes exactly one JSON object from r into dst.
// Unknown fields are rejected and the body is capped at maxBytes.
func DecodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer func() { _ = r.Body.Close() }()

	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return ErrExtraData
	}
	return nil
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is case-insensitive; ok is false when no token is presented.
func BearerToken(r *http.Request) (string, bool) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, tok, found := strings.Cut(raw, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return "", false
	}
	return tok, true
}
