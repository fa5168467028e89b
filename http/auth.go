package http

import (
	"crypto/subtle"
	"net/http"
)

// DefaultAuthHeader is the request header compared against the shared
// secret when none is configured.
const DefaultAuthHeader = "X-Auth-Key"

// AuthConfig holds the shared-secret check applied to write and delete
// requests. The secret is injected at construction time and never logged.
type AuthConfig struct {
	// Header is the request header carrying the secret. Defaults to
	// DefaultAuthHeader when empty.
	Header string
	// Secret is the shared secret. An empty secret rejects every request.
	Secret string
}

// Matches reports whether the configured auth header carries a value
// byte-for-byte equal to the secret. The comparison is constant-time to
// avoid leaking the secret through response timing; a missing header or an
// empty configured secret never matches.
func (a AuthConfig) Matches(h http.Header) bool {
	if a.Secret == "" {
		return false
	}

	header := a.Header
	if header == "" {
		header = DefaultAuthHeader
	}

	got := h.Get(header)
	if got == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(got), []byte(a.Secret)) == 1
}
