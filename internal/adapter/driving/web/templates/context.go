// Package templates holds the page shell and the form helpers shared by the
// page components.
package templates

import "context"

// HiddenField is a name/value pair posted by PostButton.
type HiddenField struct {
	Name  string
	Value string
}

type csrfKey struct{}

// WithCSRF stores the CSRF token rendered into every form.
func WithCSRF(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfKey{}, token)
}

// CSRFToken returns the token stored by WithCSRF.
func CSRFToken(ctx context.Context) string {
	token, _ := ctx.Value(csrfKey{}).(string)
	return token
}
