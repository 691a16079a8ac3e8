package web

import (
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	vm "github.com/ericfisherdev/uvcsweb/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/uvcsweb/internal/application"
	"github.com/ericfisherdev/uvcsweb/internal/domain/model"
)

const timeLayout = "2006-01-02 15:04"

// repoURL builds /repository/{name}/... with escaped segments.
func repoURL(name string, segments ...string) string {
	var b strings.Builder
	b.WriteString("/repository/")
	b.WriteString(url.PathEscape(name))
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

func toRepoNav(name, active string) vm.RepoNav {
	return vm.RepoNav{
		Name:        name,
		Active:      active,
		FilesURL:    repoURL(name),
		CommitsURL:  repoURL(name, "commits"),
		BranchesURL: repoURL(name, "branches"),
		SettingsURL: repoURL(name, "settings"),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(timeLayout)
}

// findReadme returns the path of the top-level README, preferring markdown.
func findReadme(content map[string]string) string {
	best := ""
	for p := range content {
		if strings.Contains(p, "/") {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(p), "readme") {
			continue
		}
		if best == "" || (isMarkdown(p) && !isMarkdown(best)) || (isMarkdown(p) == isMarkdown(best) && p < best) {
			best = p
		}
	}
	return best
}

// toRepositoryViewModel builds the file browser. selected is the requested
// file path, ignored when it is not in the snapshot.
func toRepositoryViewModel(st application.RepositoryState, selected string) vm.Repository {
	name := st.CurrentRepository
	page := vm.Repository{
		Nav:         toRepoNav(name, "files"),
		BranchCount: len(st.Branches),
		CommitCount: len(st.Commits),
	}

	paths := make([]string, 0, len(st.Content))
	for p := range st.Content {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	if _, ok := st.Content[selected]; !ok {
		selected = ""
	}

	for _, p := range paths {
		page.Files = append(page.Files, vm.File{
			Path:     p,
			URL:      repoURL(name) + "?file=" + url.QueryEscape(p),
			Size:     len(st.Content[p]),
			Selected: p == selected,
		})
	}

	if selected != "" {
		page.SelectedPath = selected
		if isMarkdown(selected) {
			page.SelectedHTML = RenderMarkdown(st.Content[selected])
		}
		if page.SelectedHTML == "" {
			page.SelectedText = st.Content[selected]
		}
		return page
	}

	if readme := findReadme(st.Content); readme != "" {
		if isMarkdown(readme) {
			page.ReadmeHTML = RenderMarkdown(st.Content[readme])
		} else {
			page.SelectedPath = readme
			page.SelectedText = st.Content[readme]
		}
	}
	return page
}

func toCommitViewModel(c model.Commit) vm.Commit {
	out := vm.Commit{
		ID:        c.ID,
		Hash:      c.Hash,
		ShortHash: c.ShortHash(),
		Message:   c.Message,
		Author:    c.Author,
		When:      formatTime(c.DateTime),
		Tags:      c.Tags,
	}
	for _, d := range c.Changes {
		ch := vm.Change{
			FilePath:   d.FilePath,
			ChangeType: string(d.ChangeType),
			Label:      d.ChangeType.Label(),
			IsBinary:   d.IsBinary,
		}
		if !d.IsBinary && d.ChangeType != model.ChangeDeleted {
			ch.DiffHTML = RenderChange(d.ContentChange, d.IsDiff)
		}
		out.Changes = append(out.Changes, ch)
	}
	return out
}

// toCommitsViewModel lists commits newest first.
func toCommitsViewModel(st application.RepositoryState, canWrite bool) vm.Commits {
	commits := slices.Clone(st.Commits)
	sort.SliceStable(commits, func(i, j int) bool {
		if !commits[i].DateTime.Equal(commits[j].DateTime) {
			return commits[i].DateTime.After(commits[j].DateTime)
		}
		return commits[i].ID > commits[j].ID
	})

	page := vm.Commits{
		Nav:      toRepoNav(st.CurrentRepository, "commits"),
		CanWrite: canWrite,
		PostURL:  repoURL(st.CurrentRepository, "commits"),
	}
	for _, c := range commits {
		page.Commits = append(page.Commits, toCommitViewModel(c))
	}
	return page
}

func toBranchesViewModel(st application.RepositoryState, canWrite bool) vm.Branches {
	hashes := make(map[int64]string, len(st.Commits))
	for _, c := range st.Commits {
		hashes[c.ID] = c.ShortHash()
	}

	page := vm.Branches{
		Nav:      toRepoNav(st.CurrentRepository, "branches"),
		CanWrite: canWrite,
		PostURL:  repoURL(st.CurrentRepository, "branches"),
	}
	for _, b := range st.Branches {
		head := hashes[b.HeadCommitID]
		if head == "" && b.HeadCommitID != 0 {
			head = "#" + strconv.FormatInt(b.HeadCommitID, 10)
		}
		page.Branches = append(page.Branches, vm.Branch{
			Name:       b.Name,
			HeadCommit: head,
			IsActive:   b.IsActive,
			DeleteURL:  repoURL(st.CurrentRepository, "branches", b.Name, "delete"),
		})
	}
	return page
}

func toSettingsViewModel(st application.RepositoryState, canWrite bool) vm.Settings {
	page := vm.Settings{
		Nav:       toRepoNav(st.CurrentRepository, "settings"),
		CanWrite:  canWrite,
		GrantURL:  repoURL(st.CurrentRepository, "settings", "access"),
		RevokeURL: repoURL(st.CurrentRepository, "settings", "access", "revoke"),
	}
	for _, a := range st.Access {
		page.Grants = append(page.Grants, vm.Grant{
			Username:    a.Username,
			UserID:      a.UserID,
			AccessLevel: string(a.AccessLevel),
			GrantedAt:   formatTime(a.GrantedAt),
		})
	}
	return page
}
