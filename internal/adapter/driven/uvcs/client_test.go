package uvcs_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/ericfisherdev/uvcsweb/internal/adapter/driven/uvcs"
	"github.com/ericfisherdev/uvcsweb/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKeys = model.SessionKeys{SKey1: "key-one", SKey2: "key-two"}

// newTestClient creates a Client backed by the given httptest handler.
func newTestClient(t *testing.T, handler http.Handler) *uvcs.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := uvcs.NewClientWithHTTPClient(server.Client(), server.URL+"/", nil)
	require.NoError(t, err)

	return client
}

// parseForm parses the multipart body and fails the test on error.
func parseForm(t *testing.T, r *http.Request) {
	t.Helper()
	require.NoError(t, r.ParseMultipartForm(1<<20))
}

func TestNewClient_RejectsBadScheme(t *testing.T) {
	_, err := uvcs.NewClient("ftp://example.com", 0, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scheme")
}

func TestLogin_SendsIdentifierAndReturnsKeys(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/login", r.URL.Path)
		parseForm(t, r)
		assert.Equal(t, "ada@example.com", r.FormValue("identifier"))
		assert.Equal(t, "secret", r.FormValue("password"))
		assert.Empty(t, r.Header.Get("skey1"), "login is unauthenticated")

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"firstname":"Ada","lastname":"Lovelace","email":"ada@example.com","skey1":"k1","skey2":"k2"}`)
	}))

	resp, err := client.Login(context.Background(), "ada@example.com", "secret")
	require.NoError(t, err)

	assert.Equal(t, model.SessionKeys{SKey1: "k1", SKey2: "k2"}, resp.Keys)
	require.NotNil(t, resp.User)
	assert.Equal(t, "Ada", resp.User.FirstName)
	assert.Equal(t, "Lovelace", resp.User.LastName)
	assert.Equal(t, "ada@example.com", resp.User.Email)
}

func TestLogin_NestedUserShape(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"user":{"id":7,"username":"ada","firstname":"Ada","skey1":"n1","skey2":"n2"}}`)
	}))

	resp, err := client.Login(context.Background(), "ada", "secret")
	require.NoError(t, err)

	assert.Equal(t, model.SessionKeys{SKey1: "n1", SKey2: "n2"}, resp.Keys)
	require.NotNil(t, resp.User)
	assert.Equal(t, int64(7), resp.User.ID)
	assert.Equal(t, "ada", resp.User.Username)
}

func TestLogin_KeysOnlyHasNoProfile(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"skey1":"k1","skey2":"k2"}`)
	}))

	resp, err := client.Login(context.Background(), "ada", "secret")
	require.NoError(t, err)
	assert.Nil(t, resp.User)
}

func TestLogin_MissingKeysIsError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"skey1":"k1"}`)
	}))

	_, err := client.Login(context.Background(), "ada", "secret")
	require.Error(t, err)
}

func TestLogin_RejectedReturnsAPIError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"Invalid credentials"}`)
	}))

	_, err := client.Login(context.Background(), "ada", "wrong")
	require.Error(t, err)

	var apiErr *uvcs.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
}

func TestAPIError_PlainTextBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))

	err := client.CreateBranch(context.Background(), testKeys, "repo", "main")

	var apiErr *uvcs.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestAPIError_LongBodyKeepsWholeRunes(t *testing.T) {
	body := strings.Repeat("a", 199) + "été indisponible"
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, body)
	}))

	err := client.DeleteBranch(context.Background(), testKeys, "repo", "main")

	var apiErr *uvcs.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, utf8.ValidString(apiErr.Message))
	assert.Equal(t, strings.Repeat("a", 199), apiErr.Message)
}

func TestRegister_SendsFieldsWithoutKeys(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/register", r.URL.Path)
		parseForm(t, r)
		assert.Equal(t, "ada", r.FormValue("username"))
		assert.Equal(t, "ada@example.com", r.FormValue("email"))
		assert.Equal(t, "pw", r.FormValue("password"))
		assert.Equal(t, "Ada", r.FormValue("firstname"))
		_, hasLast := r.MultipartForm.Value["lastname"]
		assert.False(t, hasLast, "empty optional fields are omitted")
		w.WriteHeader(http.StatusCreated)
	}))

	err := client.Register(context.Background(), model.RegisterRequest{
		Username:  "ada",
		Email:     "ada@example.com",
		Password:  "pw",
		FirstName: "Ada",
	})
	require.NoError(t, err)
}

func TestAuthenticatedRequest_AttachesKeys(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parseForm(t, r)
		assert.Equal(t, "key-one", r.Header.Get("skey1"))
		assert.Equal(t, "key-two", r.Header.Get("skey2"))
		assert.Equal(t, "key-one", r.FormValue("skey1"))
		assert.Equal(t, "key-two", r.FormValue("skey2"))
		_, _ = io.WriteString(w, `{"branches":[]}`)
	}))

	_, err := client.ListBranches(context.Background(), testKeys, "repo")
	require.NoError(t, err)
}

func TestIncompleteKeys_SentUnauthenticated(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parseForm(t, r)
		assert.Empty(t, r.Header.Get("skey1"))
		assert.Empty(t, r.Header.Get("skey2"))
		assert.Empty(t, r.FormValue("skey1"))
		_, _ = io.WriteString(w, `{"access":[]}`)
	}))

	_, err := client.ListAccess(context.Background(), model.SessionKeys{SKey1: "only-one"}, "repo")
	require.NoError(t, err)
}

func TestGetRepository_FlatContent(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/repository", r.URL.Path)
		parseForm(t, r)
		assert.Equal(t, "demo", r.FormValue("name"))
		_, _ = io.WriteString(w, `{
			"branches":[{"id":1,"name":"main","repository_id":3,"head_commit_id":9}],
			"commits":[{"id":9,"hash":"abcdef0123","message":"init","repository_id":3,"user_id":4,
				"datetime":"2026-01-02T03:04:05Z","tags":["v1"],"author":"Ada Lovelace",
				"changes":[{"id":1,"commit_id":9,"file_path":"README.md","change_type":"A","content_change":"# Demo","is_binary":false,"is_diff":false}]}],
			"content":{"README.md":"# Demo"},
			"access":[{"repository_id":3,"user_id":4,"username":"ada","access_level":"write","granted_by":4,"granted_at":"2026-01-02 03:04:05"}]
		}`)
	}))

	snap, err := client.GetRepository(context.Background(), testKeys, "demo", "")
	require.NoError(t, err)

	require.Len(t, snap.Branches, 1)
	assert.Equal(t, int64(9), snap.Branches[0].HeadCommitID)
	assert.True(t, snap.Branches[0].IsActive)

	require.Len(t, snap.Commits, 1)
	c := snap.Commits[0]
	assert.Equal(t, "Ada Lovelace", c.Author)
	assert.Equal(t, []string{"v1"}, c.Tags)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), c.DateTime)
	require.Len(t, c.Changes, 1)
	assert.Equal(t, model.ChangeAdded, c.Changes[0].ChangeType)
	assert.Equal(t, "# Demo", c.Changes[0].ContentChange)

	assert.Equal(t, map[string]string{"README.md": "# Demo"}, snap.Content)

	require.Len(t, snap.Access, 1)
	assert.Equal(t, model.AccessWrite, snap.Access[0].AccessLevel)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), snap.Access[0].GrantedAt)
}

func TestGetRepository_AlternateShapes(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{
			"branches":[{"id":1,"name":"main","head_commit":5,"is_active":false}],
			"commits":[{"id":5,"hash":"h","message":"m","author":{"id":4,"full_name":"Ada L"},
				"changes":[{"file_path":"a.go","change_type":"M","content_change":{"content":"@@ -1 +1 @@\n-a\n+b\n","is_code":true,"is_binary":false,"is_diff":true}}]}],
			"content":{"files":{"a.go":{"content":"b","commit_id":5,"timestamp":"2026-01-01T00:00:00Z"}}}
		}`)
	}))

	snap, err := client.GetRepository(context.Background(), testKeys, "demo", "desc")
	require.NoError(t, err)

	assert.Equal(t, int64(5), snap.Branches[0].HeadCommitID)
	assert.False(t, snap.Branches[0].IsActive)

	c := snap.Commits[0]
	assert.Equal(t, "Ada L", c.Author)
	assert.Equal(t, int64(4), c.UserID)
	assert.True(t, c.Changes[0].IsDiff)
	assert.Contains(t, c.Changes[0].ContentChange, "+b")

	assert.Equal(t, map[string]string{"a.go": "b"}, snap.Content)
	assert.Empty(t, snap.Access)
}

func TestCreateCommit_UploadsFilesAndTags(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/repository/commit", r.URL.Path)
		parseForm(t, r)
		assert.Equal(t, "demo", r.FormValue("name"))
		assert.Equal(t, "add files", r.FormValue("message"))
		assert.Equal(t, "v1,release", r.FormValue("tags"))

		files := r.MultipartForm.File["files[]"]
		require.Len(t, files, 2)
		f, err := files[0].Open()
		require.NoError(t, err)
		defer f.Close()
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, "package main", string(data))
		assert.Equal(t, "main.go", files[0].Filename)

		_, _ = io.WriteString(w, `{"commit_id":12,"commit_hash":"deadbeef"}`)
	}))

	res, err := client.CreateCommit(context.Background(), testKeys, "demo", "add files",
		[]model.FileUpload{
			{Path: "main.go", Content: []byte("package main")},
			{Path: "README.md", Content: []byte("# hi")},
		},
		[]string{"v1", "release"},
	)
	require.NoError(t, err)
	assert.Equal(t, int64(12), res.CommitID)
	assert.Equal(t, "deadbeef", res.CommitHash)
}

func TestBranchEndpoints_EscapePathSegments(t *testing.T) {
	var gotPaths []string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPaths = append(gotPaths, r.URL.EscapedPath())
		parseForm(t, r)
		if r.URL.EscapedPath() == "/api/repository/my%20repo/branches" {
			assert.Equal(t, "feature/x", r.FormValue("name"))
		}
		w.WriteHeader(http.StatusOK)
	}))

	ctx := context.Background()
	require.NoError(t, client.CreateBranch(ctx, testKeys, "my repo", "feature/x"))
	require.NoError(t, client.DeleteBranch(ctx, testKeys, "my repo", "feature/x"))

	assert.Equal(t, []string{
		"/api/repository/my%20repo/branches",
		"/api/repository/my%20repo/branches/feature%2Fx/delete",
	}, gotPaths)
}

func TestListBranches_BareArray(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"id":1,"name":"main"},{"id":2,"name":"dev"}]`)
	}))

	branches, err := client.ListBranches(context.Background(), testKeys, "demo")
	require.NoError(t, err)
	require.Len(t, branches, 2)
	assert.Equal(t, "dev", branches[1].Name)
}

func TestAccessEndpoints(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parseForm(t, r)
		switch r.URL.Path {
		case "/api/repository/demo/access":
			assert.Equal(t, "bob", r.FormValue("username"))
			assert.Equal(t, "read", r.FormValue("access_level"))
		case "/api/repository/demo/access/revoke":
			assert.Equal(t, "bob", r.FormValue("username"))
		case "/api/repository/demo/access/list":
			_, _ = io.WriteString(w, `{"access":[{"user_id":5,"username":"bob","access_level":"read"}]}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	ctx := context.Background()
	require.NoError(t, client.GrantAccess(ctx, testKeys, "demo", "bob", model.AccessRead))
	require.NoError(t, client.RevokeAccess(ctx, testKeys, "demo", "bob"))

	grants, err := client.ListAccess(ctx, testKeys, "demo")
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, "bob", grants[0].Username)
	assert.Equal(t, model.AccessRead, grants[0].AccessLevel)
}

func TestContextCancellation(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.CreateBranch(ctx, testKeys, "demo", "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
