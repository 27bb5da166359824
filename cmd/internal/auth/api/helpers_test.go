package authapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	r.Header.Set("X-Forwarded-For", "bogus, 203.0.113.7, 10.0.0.2")
	r.Header.Set("X-Real-IP", "198.51.100.3")

	require.Equal(t, "10.0.0.1", clientIP(r, false).String())
	require.Equal(t, "203.0.113.7", clientIP(r, true).String())

	r.Header.Del("X-Forwarded-For")
	require.Equal(t, "198.51.100.3", clientIP(r, true).String())

	r.Header.Del("X-Real-IP")
	r.RemoteAddr = "garbage"
	require.Nil(t, clientIP(r, true))
}
