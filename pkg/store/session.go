package store

import (
	"net/http"

	"github.com/google/uuid"
)

const sessionCookie = "cart_session"

// cookie lifetime; the backend expires abandoned carts on its own
const sessionMaxAge = 180 * 24 * 60 * 60

// EnsureCartSession guarantees a cart-tracking token exists before any
// cart or favorites call. Idempotent: an existing cookie is returned
// untouched; otherwise a fresh token is minted and set on the
// response.
func EnsureCartSession(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	token := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return token
}
