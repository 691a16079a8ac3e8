package web

import (
	"net/http"
	"strings"

	"github.com/ericfisherdev/uvcsweb/internal/adapter/driving/web/templates/pages"
	vm "github.com/ericfisherdev/uvcsweb/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/uvcsweb/internal/domain/model"
)

// Home renders the landing page and drops any repository the session had open.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	sess.Repository.ClearRepository()
	h.render(w, r, http.StatusOK, "Home", pages.Home(vm.Home{
		IsAuthenticated: sess.Auth.IsAuthenticated(),
	}), "")
}

// LoginPage renders the sign-in form.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "Sign in", pages.Login(vm.LoginForm{
		Redirect: r.URL.Query().Get("redirect"),
	}), "")
}

// Login signs the session in and sends the user back to the page the guard
// turned them away from.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	form := vm.LoginForm{
		Identifier: strings.TrimSpace(r.FormValue("identifier")),
		Redirect:   r.FormValue("redirect"),
	}
	password := r.FormValue("password")

	if form.Identifier == "" || password == "" {
		h.render(w, r, http.StatusBadRequest, "Sign in", pages.Login(form), "Username and password are required.")
		return
	}

	if err := sess.Auth.Login(r.Context(), form.Identifier, password); err != nil {
		h.render(w, r, errorStatus(err), "Sign in", pages.Login(form), errorMessage("Sign in failed", err))
		return
	}

	redirect(w, r, safeRedirect(form.Redirect))
}

// RegisterPage renders the account creation form.
func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "Create account", pages.Register(vm.RegisterForm{}), "")
}

// Register creates an account and sends the user to sign in. Registration
// never signs the session in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	req := model.RegisterRequest{
		Username:  strings.TrimSpace(r.FormValue("username")),
		Email:     strings.TrimSpace(r.FormValue("email")),
		Password:  r.FormValue("password"),
		FirstName: strings.TrimSpace(r.FormValue("firstname")),
		LastName:  strings.TrimSpace(r.FormValue("lastname")),
	}
	form := vm.RegisterForm{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		h.render(w, r, http.StatusBadRequest, "Create account", pages.Register(form),
			"Username, email and password are required.")
		return
	}

	if err := sess.Auth.Register(r.Context(), req); err != nil {
		h.render(w, r, errorStatus(err), "Create account", pages.Register(form), errorMessage("Registration failed", err))
		return
	}

	h.setFlash(w, "Account created. Sign in to continue.")
	redirect(w, r, "/login")
}

// Logout signs the session out. The local state is cleared even when the
// stored keys could not be removed.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	sess.Repository.ClearRepository()
	if err := sess.Auth.Logout(r.Context()); err != nil {
		h.logger.Error("failed to clear session keys", "error", err)
		h.setFlash(w, "Signed out, but stored credentials could not be cleared.")
	} else {
		h.setFlash(w, "Signed out.")
	}
	redirect(w, r, "/")
}
