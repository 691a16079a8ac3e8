package web

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/uvcsweb/internal/application"
)

const (
	sessionCookieName = "uvcsweb_session"
	flashCookieName   = "uvcsweb_flash"
	sessionCookieAge  = 400 * 24 * time.Hour
)

type sessionKey struct{}

// sessionFrom returns the session attached by withSession.
func sessionFrom(ctx context.Context) *application.Session {
	sess, _ := ctx.Value(sessionKey{}).(*application.Session)
	return sess
}

// withSession resolves the browser session from its cookie, minting a new
// id when the cookie is missing or malformed, and attaches it to the context.
func (h *Handler) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			if _, err := uuid.Parse(cookie.Value); err == nil {
				id = cookie.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookieName,
				Value:    id,
				Path:     "/",
				MaxAge:   int(sessionCookieAge / time.Second),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				Secure:   h.cookieSecure,
			})
		}

		sess, err := h.registry.Get(r.Context(), id)
		if err != nil {
			h.logger.Error("failed to resolve session", "error", err)
			http.Error(w, "session storage unavailable", http.StatusServiceUnavailable)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

// setFlash stores a one-shot message shown on the next rendered page.
func (h *Handler) setFlash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(msg),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cookieSecure,
	})
}

// takeFlash returns and clears the pending flash message.
func (h *Handler) takeFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cookieSecure,
	})
	msg, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return ""
	}
	return msg
}
