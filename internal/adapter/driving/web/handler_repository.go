package web

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/ericfisherdev/uvcsweb/internal/adapter/driving/web/templates/pages"
	vm "github.com/ericfisherdev/uvcsweb/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/uvcsweb/internal/application"
	"github.com/ericfisherdev/uvcsweb/internal/domain/model"
)

// OpenRepository loads (or, on servers that create on first fetch, creates)
// the named repository and redirects to its file browser.
func (h *Handler) OpenRepository(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	form := vm.Home{
		IsAuthenticated: true,
		RepoName:        strings.TrimSpace(r.FormValue("name")),
		Description:     strings.TrimSpace(r.FormValue("description")),
	}

	if form.RepoName == "" {
		h.render(w, r, http.StatusBadRequest, "Home", pages.Home(form), "Repository name is required.")
		return
	}

	sess.Repository.ClearRepository()
	if err := sess.Repository.OpenRepository(r.Context(), form.RepoName, form.Description); err != nil {
		h.render(w, r, errorStatus(err), "Home", pages.Home(form),
			errorMessage(sess.Repository.Error(), err))
		return
	}
	redirect(w, r, repoURL(form.RepoName))
}

// ensureRepository makes the repository named in the path the session's
// current one. Switching repositories clears the previous snapshot first.
// With reload set the snapshot is fetched again even when already current.
// On failure the error page has been written and ok is false.
func (h *Handler) ensureRepository(w http.ResponseWriter, r *http.Request, reload bool) (*application.Session, bool) {
	sess := sessionFrom(r.Context())
	name := r.PathValue("name")

	current := sess.Repository.CurrentRepository()
	if current == name && !reload {
		return sess, true
	}
	if current != name {
		sess.Repository.ClearRepository()
	}

	if err := sess.Repository.LoadRepository(r.Context(), name); err != nil {
		h.render(w, r, errorStatus(err), name, pages.Home(vm.Home{
			IsAuthenticated: true,
			RepoName:        name,
		}), errorMessage(sess.Repository.Error(), err))
		return nil, false
	}
	return sess, true
}

// canWrite reports whether the signed-in user may change the repository.
// Without a known user id it falls back to "anyone has write access".
func canWrite(sess *application.Session) bool {
	if u := sess.Auth.User(); u != nil && u.ID != 0 {
		return sess.Repository.HasWriteAccessFor(u.ID)
	}
	return sess.Repository.HasWriteAccess()
}

// Repository renders the file browser; ?file= selects a file.
func (h *Handler) Repository(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ensureRepository(w, r, true)
	if !ok {
		return
	}
	st := sess.Repository.State()
	h.render(w, r, http.StatusOK, st.CurrentRepository,
		pages.Repository(toRepositoryViewModel(st, r.URL.Query().Get("file"))), "")
}

// Commits renders the commit log and upload form.
func (h *Handler) Commits(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ensureRepository(w, r, true)
	if !ok {
		return
	}
	h.renderCommits(w, r, sess, http.StatusOK, "", nil)
}

func (h *Handler) renderCommits(w http.ResponseWriter, r *http.Request, sess *application.Session, status int, errMsg string, edit func(*vm.Commits)) {
	st := sess.Repository.State()
	page := toCommitsViewModel(st, canWrite(sess))
	if edit != nil {
		edit(&page)
	}
	h.render(w, r, status, st.CurrentRepository+" · commits", pages.Commits(page), errMsg)
}

// PostCommit previews or commits the uploaded files depending on the
// submit button pressed.
func (h *Handler) PostCommit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ensureRepository(w, r, false)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxFormBytes); err != nil {
		h.renderCommits(w, r, sess, http.StatusBadRequest, "Upload could not be read.", nil)
		return
	}
	message := strings.TrimSpace(r.FormValue("message"))
	tagsField := r.FormValue("tags")
	keep := func(p *vm.Commits) {
		p.Message = message
		p.Tags = tagsField
	}

	files, err := readUploads(r.MultipartForm.File["files"])
	if err != nil {
		h.logger.Error("failed to read upload", "error", err)
		h.renderCommits(w, r, sess, http.StatusBadRequest, "Upload could not be read.", keep)
		return
	}
	if len(files) == 0 {
		h.renderCommits(w, r, sess, http.StatusBadRequest, "Select at least one file.", keep)
		return
	}

	if r.FormValue("action") == "preview" {
		previews := h.previews(sess.Repository.State().Content, files)
		h.renderCommits(w, r, sess, http.StatusOK, "", func(p *vm.Commits) {
			keep(p)
			p.Previews = previews
		})
		return
	}

	if message == "" {
		h.renderCommits(w, r, sess, http.StatusBadRequest, "Commit message is required.", keep)
		return
	}

	result, err := sess.Repository.CreateCommit(r.Context(), message, files, splitTags(tagsField))
	if err != nil {
		h.renderCommits(w, r, sess, errorStatus(err), errorMessage(sess.Repository.Error(), err), keep)
		return
	}

	short := result.CommitHash
	if len(short) > 7 {
		short = short[:7]
	}
	h.setFlash(w, fmt.Sprintf("Committed %d file(s) as %s.", len(files), short))
	redirect(w, r, repoURL(r.PathValue("name"), "commits"))
}

func (h *Handler) previews(content map[string]string, files []model.FileUpload) []vm.Preview {
	out := make([]vm.Preview, 0, len(files))
	for _, f := range files {
		current, exists := content[f.Path]
		text, err := PreviewDiff(f.Path, current, string(f.Content))
		if err != nil {
			h.logger.Warn("failed to diff upload", "path", f.Path, "error", err)
		}
		p := vm.Preview{Path: f.Path, IsNew: !exists}
		if text != "" {
			p.DiffHTML = RenderDiffHunk(text)
		}
		out = append(out, p)
	}
	return out
}

// readUploads reads every uploaded file into memory, keyed by its base name.
func readUploads(headers []*multipart.FileHeader) ([]model.FileUpload, error) {
	files := make([]model.FileUpload, 0, len(headers))
	for _, fh := range headers {
		name := path.Base(strings.ReplaceAll(fh.Filename, `\`, "/"))
		if name == "." || name == "/" {
			continue
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload %s: %w", name, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read upload %s: %w", name, err)
		}
		files = append(files, model.FileUpload{Path: name, Content: data})
	}
	return files, nil
}

// splitTags parses a comma-separated tag field, dropping blanks.
func splitTags(field string) []string {
	var tags []string
	for _, t := range strings.Split(field, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Branches renders the branch list.
func (h *Handler) Branches(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ensureRepository(w, r, true)
	if !ok {
		return
	}
	h.renderBranches(w, r, sess, http.StatusOK, "")
}

func (h *Handler) renderBranches(w http.ResponseWriter, r *http.Request, sess *application.Session, status int, errMsg string) {
	st := sess.Repository.State()
	h.render(w, r, status, st.CurrentRepository+" · branches",
		pages.Branches(toBranchesViewModel(st, canWrite(sess))), errMsg)
}

// CreateBranch creates the branch named in the form.
func (h *Handler) CreateBranch(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ensureRepository(w, r, false)
	if !ok {
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		h.renderBranches(w, r, sess, http.StatusBadRequest, "Branch name is required.")
		return
	}
	if err := sess.Repository.CreateBranch(r.Context(), name); err != nil {
		h.renderBranches(w, r, sess, errorStatus(err), errorMessage(sess.Repository.Error(), err))
		return
	}
	h.setFlash(w, "Created branch "+name+".")
	redirect(w, r, repoURL(r.PathValue("name"), "branches"))
}

// DeleteBranch deletes the branch named in the path.
func (h *Handler) DeleteBranch(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ensureRepository(w, r, false)
	if !ok {
		return
	}
	name := r.PathValue("branch")
	if err := sess.Repository.DeleteBranch(r.Context(), name); err != nil {
		h.renderBranches(w, r, sess, errorStatus(err), errorMessage(sess.Repository.Error(), err))
		return
	}
	h.setFlash(w, "Deleted branch "+name+".")
	redirect(w, r, repoURL(r.PathValue("name"), "branches"))
}

// Settings renders the access list.
func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ensureRepository(w, r, true)
	if !ok {
		return
	}
	h.renderSettings(w, r, sess, http.StatusOK, "")
}

func (h *Handler) renderSettings(w http.ResponseWriter, r *http.Request, sess *application.Session, status int, errMsg string) {
	st := sess.Repository.State()
	h.render(w, r, status, st.CurrentRepository+" · settings",
		pages.Settings(toSettingsViewModel(st, canWrite(sess))), errMsg)
}

// GrantAccess grants the named user read or write access.
func (h *Handler) GrantAccess(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ensureRepository(w, r, false)
	if !ok {
		return
	}
	username := strings.TrimSpace(r.FormValue("username"))
	level := model.AccessLevel(r.FormValue("access_level"))
	if username == "" || !level.Valid() {
		h.renderSettings(w, r, sess, http.StatusBadRequest, "A username and an access level of read or write are required.")
		return
	}
	if err := sess.Repository.GrantAccess(r.Context(), username, level); err != nil {
		h.renderSettings(w, r, sess, errorStatus(err), errorMessage(sess.Repository.Error(), err))
		return
	}
	h.setFlash(w, fmt.Sprintf("Granted %s access to %s.", level, username))
	redirect(w, r, repoURL(r.PathValue("name"), "settings"))
}

// RevokeAccess removes the named user's grant.
func (h *Handler) RevokeAccess(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ensureRepository(w, r, false)
	if !ok {
		return
	}
	username := strings.TrimSpace(r.FormValue("username"))
	if username == "" {
		h.renderSettings(w, r, sess, http.StatusBadRequest, "A username is required.")
		return
	}
	if err := sess.Repository.RevokeAccess(r.Context(), username); err != nil {
		h.renderSettings(w, r, sess, errorStatus(err), errorMessage(sess.Repository.Error(), err))
		return
	}
	h.setFlash(w, "Revoked access for "+username+".")
	redirect(w, r, repoURL(r.PathValue("name"), "settings"))
}
