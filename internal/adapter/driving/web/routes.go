package web

import (
	"io/fs"
	"net/http"
	"net/url"
)

// access is the guard rule attached to a route.
type access int

const (
	accessPublic access = iota
	accessGuest         // signed-out users only
	accessAuth          // signed-in users only
)

// maxFormBytes bounds POST bodies, including commit uploads.
const maxFormBytes = 32 << 20

type route struct {
	name    string
	pattern string
	access  access
	handler http.HandlerFunc
}

func (h *Handler) routes() []route {
	return []route{
		{"home", "GET /{$}", accessPublic, h.Home},
		{"login", "GET /login", accessGuest, h.LoginPage},
		{"login", "POST /login", accessGuest, h.Login},
		{"register", "GET /register", accessGuest, h.RegisterPage},
		{"register", "POST /register", accessGuest, h.Register},
		{"logout", "POST /logout", accessPublic, h.Logout},
		{"open-repository", "POST /repository", accessAuth, h.OpenRepository},
		{"repository", "GET /repository/{name}", accessAuth, h.Repository},
		{"commits", "GET /repository/{name}/commits", accessAuth, h.Commits},
		{"commits", "POST /repository/{name}/commits", accessAuth, h.PostCommit},
		{"branches", "GET /repository/{name}/branches", accessAuth, h.Branches},
		{"branches", "POST /repository/{name}/branches", accessAuth, h.CreateBranch},
		{"delete-branch", "POST /repository/{name}/branches/{branch}/delete", accessAuth, h.DeleteBranch},
		{"repository-settings", "GET /repository/{name}/settings", accessAuth, h.Settings},
		{"grant-access", "POST /repository/{name}/settings/access", accessAuth, h.GrantAccess},
		{"revoke-access", "POST /repository/{name}/settings/access/revoke", accessAuth, h.RevokeAccess},
	}
}

// RegisterRoutes registers all web GUI routes on the provided mux.
// Static assets are served from the embedded filesystem at /static/*.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	staticFS, _ := fs.Sub(StaticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	for _, rt := range h.routes() {
		mux.Handle(rt.pattern, h.withSession(h.guard(rt, csrfProtect(rt.handler))))
	}
}

// guard enforces the route's access rule before the handler runs. It only
// reads the session's local signed-in flag.
func (h *Handler) guard(rt route, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signedIn := sessionFrom(r.Context()).Auth.IsAuthenticated()
		switch {
		case rt.access == accessAuth && !signedIn:
			h.logger.Debug("route requires sign-in", "route", rt.name, "path", r.URL.Path)
			redirect(w, r, "/login?redirect="+url.QueryEscape(r.URL.RequestURI()))
			return
		case rt.access == accessGuest && signedIn:
			redirect(w, r, "/")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// csrfProtect rejects POSTs whose token does not match the CSRF cookie.
func csrfProtect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
			if !validateCSRF(r) {
				http.Error(w, "invalid CSRF token", http.StatusForbidden)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
