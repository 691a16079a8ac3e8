// Package uvcs implements the VCSClient port over the VCS hosting HTTP API.
// Every operation is a POST with a multipart form body; responses are JSON.
package uvcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ericfisherdev/uvcsweb/internal/domain/model"
	"github.com/ericfisherdev/uvcsweb/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.VCSClient = (*Client)(nil)

// Header names used to attach the session keys. The same names are used for
// the form fields.
const (
	headerSKey1 = "skey1"
	headerSKey2 = "skey2"
)

// maxErrorMessage caps the bytes of a non-JSON error body kept in APIError.
const maxErrorMessage = 200

// APIError is returned for every non-2xx response. The client does not
// classify server errors; callers that care can inspect StatusCode.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("uvcs api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("uvcs api: status %d: %s", e.StatusCode, e.Message)
}

// ServerMessage returns the message the server put in its error envelope.
func (e *APIError) ServerMessage() string {
	return e.Message
}

// Client implements the driven.VCSClient port.
type Client struct {
	http    *http.Client
	baseURL string
	logger  *slog.Logger
}

// NewClient creates a Client for the API at baseURL. A zero timeout leaves
// cancellation entirely to the caller's context.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	return NewClientWithHTTPClient(&http.Client{Timeout: timeout}, baseURL, logger)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parsing base URL: unsupported scheme %q", u.Scheme)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		http:    httpClient,
		baseURL: strings.TrimSuffix(u.String(), "/"),
		logger:  logger,
	}, nil
}

// Register creates an account. Registration does not sign the user in.
func (c *Client) Register(ctx context.Context, req model.RegisterRequest) error {
	f := newForm().
		set("username", req.Username).
		set("email", req.Email).
		set("password", req.Password).
		setOptional("firstname", req.FirstName).
		setOptional("lastname", req.LastName)

	return c.post(ctx, "/api/register", f, model.SessionKeys{}, nil)
}

// Login exchanges an identifier (username or email) and password for a pair
// of session keys.
func (c *Client) Login(ctx context.Context, identifier, password string) (*model.AuthResponse, error) {
	f := newForm().
		set("identifier", identifier).
		set("password", password)

	var resp loginResponse
	if err := c.post(ctx, "/api/login", f, model.SessionKeys{}, &resp); err != nil {
		return nil, err
	}

	auth := resp.toModel()
	if !auth.Keys.Complete() {
		return nil, errors.New("login response did not include both session keys")
	}
	return auth, nil
}

// GetRepository fetches the repository snapshot.
func (c *Client) GetRepository(ctx context.Context, keys model.SessionKeys, name, description string) (*model.RepositorySnapshot, error) {
	f := newForm().
		set("name", name).
		setOptional("description", description)

	var resp snapshotResponse
	if err := c.post(ctx, "/api/repository", f, keys, &resp); err != nil {
		return nil, fmt.Errorf("fetching repository %s: %w", name, err)
	}
	return resp.toModel(), nil
}

// CreateCommit submits files as a new commit on the named repository.
func (c *Client) CreateCommit(ctx context.Context, keys model.SessionKeys, name, message string, files []model.FileUpload, tags []string) (*model.CommitResult, error) {
	f := newForm().
		set("name", name).
		set("message", message).
		addFiles("files[]", files)
	if len(tags) > 0 {
		f.set("tags", strings.Join(tags, ","))
	}

	var resp commitResponse
	if err := c.post(ctx, "/api/repository/commit", f, keys, &resp); err != nil {
		return nil, fmt.Errorf("creating commit on %s: %w", name, err)
	}
	return &model.CommitResult{CommitID: resp.CommitID, CommitHash: resp.CommitHash}, nil
}

// ListBranches returns the branches of the named repository.
func (c *Client) ListBranches(ctx context.Context, keys model.SessionKeys, repoName string) ([]model.Branch, error) {
	var resp branchListResponse
	if err := c.post(ctx, repoPath(repoName, "branches"), newForm(), keys, &resp); err != nil {
		return nil, fmt.Errorf("listing branches of %s: %w", repoName, err)
	}
	return mapBranches(resp.Branches), nil
}

// CreateBranch creates a branch on the named repository.
func (c *Client) CreateBranch(ctx context.Context, keys model.SessionKeys, repoName, branchName string) error {
	f := newForm().set("name", branchName)
	if err := c.post(ctx, repoPath(repoName, "branches"), f, keys, nil); err != nil {
		return fmt.Errorf("creating branch %s on %s: %w", branchName, repoName, err)
	}
	return nil
}

// DeleteBranch deletes a branch of the named repository.
func (c *Client) DeleteBranch(ctx context.Context, keys model.SessionKeys, repoName, branchName string) error {
	path := repoPath(repoName, "branches", branchName, "delete")
	if err := c.post(ctx, path, newForm(), keys, nil); err != nil {
		return fmt.Errorf("deleting branch %s on %s: %w", branchName, repoName, err)
	}
	return nil
}

// GrantAccess grants username the given access level on the named repository.
func (c *Client) GrantAccess(ctx context.Context, keys model.SessionKeys, repoName, username string, level model.AccessLevel) error {
	f := newForm().
		set("username", username).
		set("access_level", string(level))
	if err := c.post(ctx, repoPath(repoName, "access"), f, keys, nil); err != nil {
		return fmt.Errorf("granting %s access to %s on %s: %w", level, username, repoName, err)
	}
	return nil
}

// RevokeAccess removes the grant of username on the named repository.
func (c *Client) RevokeAccess(ctx context.Context, keys model.SessionKeys, repoName, username string) error {
	f := newForm().set("username", username)
	if err := c.post(ctx, repoPath(repoName, "access", "revoke"), f, keys, nil); err != nil {
		return fmt.Errorf("revoking access of %s on %s: %w", username, repoName, err)
	}
	return nil
}

// ListAccess returns every access grant of the named repository.
func (c *Client) ListAccess(ctx context.Context, keys model.SessionKeys, repoName string) ([]model.RepositoryAccess, error) {
	var resp accessListResponse
	if err := c.post(ctx, repoPath(repoName, "access", "list"), newForm(), keys, &resp); err != nil {
		return nil, fmt.Errorf("listing access of %s: %w", repoName, err)
	}
	return mapAccess(resp.Access), nil
}

// post sends f to path and decodes the JSON response into out when out is
// non-nil. Complete keys are attached as both headers and form fields.
func (c *Client) post(ctx context.Context, path string, f *form, keys model.SessionKeys, out any) error {
	if keys.Complete() {
		f.set(headerSKey1, keys.SKey1).set(headerSKey2, keys.SKey2)
	}

	body, contentType, err := f.encode()
	if err != nil {
		return fmt.Errorf("encoding form for %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if keys.Complete() {
		req.Header.Set(headerSKey1, keys.SKey1)
		req.Header.Set(headerSKey2, keys.SKey2)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response of %s: %w", path, err)
	}

	c.logger.Debug("uvcs api call",
		"path", path,
		"status", resp.StatusCode,
		"authenticated", keys.Complete(),
		"duration", time.Since(start).Round(time.Microsecond),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, data)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response of %s: %w", path, err)
	}
	return nil
}

// newAPIError builds an APIError, taking the message from the server's
// {"error": "..."} envelope when the body carries one.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var envelope model.APIError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		apiErr.Message = envelope.Error
		return apiErr
	}

	apiErr.Message = truncate(strings.TrimSpace(string(body)), maxErrorMessage)
	return apiErr
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// repoPath builds /api/repository/{name}/... with every segment path-escaped.
func repoPath(repoName string, segments ...string) string {
	var b strings.Builder
	b.WriteString("/api/repository/")
	b.WriteString(url.PathEscape(repoName))
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}
