// Package web implements the HTML GUI driving adapter using templ components.
package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/ericfisherdev/uvcsweb/internal/adapter/driving/web/templates"
	vm "github.com/ericfisherdev/uvcsweb/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/uvcsweb/internal/application"
)

// Handler is the web GUI driving adapter that serves HTML via templ components.
type Handler struct {
	registry     *application.SessionRegistry
	logger       *slog.Logger
	cookieSecure bool
}

// NewHandler creates a Handler. cookieSecure marks every cookie Secure and
// should be set when the site is served over HTTPS.
func NewHandler(registry *application.SessionRegistry, cookieSecure bool, logger *slog.Logger) *Handler {
	return &Handler{
		registry:     registry,
		logger:       logger,
		cookieSecure: cookieSecure,
	}
}

// render writes body inside the page shell. errMsg is shown in the error
// banner; a pending flash message is consumed.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, title string, body templ.Component, errMsg string) {
	page := vm.Layout{
		Title:     title,
		CSRFToken: h.csrfToken(w, r),
		Flash:     h.takeFlash(w, r),
		Error:     errMsg,
	}
	if sess := sessionFrom(r.Context()); sess != nil {
		page.IsAuthenticated = sess.Auth.IsAuthenticated()
		if u := sess.Auth.User(); u != nil {
			page.UserName = u.DisplayName()
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	ctx := templates.WithCSRF(r.Context(), page.CSRFToken)
	if err := templates.Layout(page, body).Render(ctx, w); err != nil {
		h.logger.Error("failed to render page", "title", title, "error", err)
	}
}

// redirect answers a form post with 303 See Other so the browser follows
// with a GET.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// errorStatus maps an action error to the HTTP status of the re-rendered page.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, application.ErrNoRepositorySelected):
		return http.StatusBadRequest
	case errors.Is(err, application.ErrDuplicateRequest):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

// errorMessage builds the banner text for a failed action: the store's
// message, followed by the server's explanation when it gave one.
func errorMessage(storeMsg string, err error) string {
	switch {
	case errors.Is(err, application.ErrNoRepositorySelected):
		return "No repository selected."
	case errors.Is(err, application.ErrDuplicateRequest):
		return "That request is already in progress."
	}

	msg := storeMsg
	if msg == "" {
		msg = "Request failed"
	}
	var se interface{ ServerMessage() string }
	if errors.As(err, &se) && se.ServerMessage() != "" {
		return msg + ": " + se.ServerMessage()
	}
	return msg + "."
}

// safeRedirect returns target when it is a local absolute path, else "/".
func safeRedirect(target string) string {
	if target == "" || target[0] != '/' {
		return "/"
	}
	if strings.HasPrefix(target, "//") || strings.HasPrefix(target, `/\`) {
		return "/"
	}
	if strings.ContainsAny(target, "\r\n") {
		return "/"
	}
	return target
}
