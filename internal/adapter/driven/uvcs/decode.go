package uvcs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ericfisherdev/uvcsweb/internal/domain/model"
)

// Response DTOs. Servers in the wild disagree on a few shapes, so several
// fields accept more than one encoding.

type loginUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	SKey1     string `json:"skey1"`
	SKey2     string `json:"skey2"`
}

type loginResponse struct {
	loginUser
	User *loginUser `json:"user"`
}

func (r loginResponse) toModel() *model.AuthResponse {
	keys := model.SessionKeys{SKey1: r.SKey1, SKey2: r.SKey2}
	if !keys.Complete() && r.User != nil {
		keys = model.SessionKeys{SKey1: r.User.SKey1, SKey2: r.User.SKey2}
	}

	profile := r.loginUser
	if r.User != nil {
		profile = *r.User
		if profile.Email == "" {
			profile.Email = r.Email
		}
	}

	auth := &model.AuthResponse{Keys: keys}
	if profile.ID != 0 || profile.Username != "" || profile.Email != "" ||
		profile.FirstName != "" || profile.LastName != "" {
		auth.User = &model.User{
			ID:        profile.ID,
			Username:  profile.Username,
			Email:     profile.Email,
			FirstName: profile.FirstName,
			LastName:  profile.LastName,
		}
	}
	return auth
}

type commitResponse struct {
	CommitID   int64  `json:"commit_id"`
	CommitHash string `json:"commit_hash"`
}

type snapshotResponse struct {
	Branches []branchDTO `json:"branches"`
	Commits  []commitDTO `json:"commits"`
	Content  contentDTO  `json:"content"`
	Access   []accessDTO `json:"access"`
}

func (r snapshotResponse) toModel() *model.RepositorySnapshot {
	content := make(map[string]string, len(r.Content))
	for path, text := range r.Content {
		content[path] = text
	}

	commits := make([]model.Commit, 0, len(r.Commits))
	for _, c := range r.Commits {
		commits = append(commits, c.toModel())
	}

	return &model.RepositorySnapshot{
		Branches: mapBranches(r.Branches),
		Commits:  commits,
		Content:  content,
		Access:   mapAccess(r.Access),
	}
}

// contentDTO accepts either a flat {path: text} object or the
// {"files": {path: {"content": text, ...}}} form.
type contentDTO map[string]string

func (c *contentDTO) UnmarshalJSON(data []byte) error {
	var flat map[string]string
	if err := json.Unmarshal(data, &flat); err == nil {
		*c = flat
		return nil
	}

	var nested struct {
		Files map[string]struct {
			Content string `json:"content"`
		} `json:"files"`
	}
	if err := json.Unmarshal(data, &nested); err != nil {
		return fmt.Errorf("decode repository content: %w", err)
	}

	out := make(contentDTO, len(nested.Files))
	for path, f := range nested.Files {
		out[path] = f.Content
	}
	*c = out
	return nil
}

// decodeList accepts either {"<field>": [...]} or a bare array.
func decodeList[T any](data []byte, field string) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	raw, ok := envelope[field]
	if !ok || string(raw) == "null" {
		return nil, nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

type branchListResponse struct {
	Branches []branchDTO
}

func (r *branchListResponse) UnmarshalJSON(data []byte) error {
	items, err := decodeList[branchDTO](data, "branches")
	if err != nil {
		return fmt.Errorf("decode branch list: %w", err)
	}
	r.Branches = items
	return nil
}

type accessListResponse struct {
	Access []accessDTO
}

func (r *accessListResponse) UnmarshalJSON(data []byte) error {
	items, err := decodeList[accessDTO](data, "access")
	if err != nil {
		return fmt.Errorf("decode access list: %w", err)
	}
	r.Access = items
	return nil
}

type branchDTO struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	RepositoryID int64    `json:"repository_id"`
	HeadCommitID *int64   `json:"head_commit_id"`
	HeadCommit   *int64   `json:"head_commit"`
	Description  string   `json:"description"`
	CreatedAt    flexTime `json:"created_at"`
	CommitIDs    []int64  `json:"commit_ids"`
	IsActive     *bool    `json:"is_active"`
}

func (b branchDTO) toModel() model.Branch {
	out := model.Branch{
		ID:           b.ID,
		Name:         b.Name,
		RepositoryID: b.RepositoryID,
		Description:  b.Description,
		CreatedAt:    b.CreatedAt.Time,
		CommitIDs:    b.CommitIDs,
		IsActive:     true,
	}
	switch {
	case b.HeadCommitID != nil:
		out.HeadCommitID = *b.HeadCommitID
	case b.HeadCommit != nil:
		out.HeadCommitID = *b.HeadCommit
	}
	if b.IsActive != nil {
		out.IsActive = *b.IsActive
	}
	return out
}

func mapBranches(in []branchDTO) []model.Branch {
	out := make([]model.Branch, 0, len(in))
	for _, b := range in {
		out = append(out, b.toModel())
	}
	return out
}

type commitDTO struct {
	ID           int64             `json:"id"`
	Hash         string            `json:"hash"`
	Message      string            `json:"message"`
	RepositoryID int64             `json:"repository_id"`
	UserID       int64             `json:"user_id"`
	DateTime     flexTime          `json:"datetime"`
	Tags         []string          `json:"tags"`
	Author       authorDTO         `json:"author"`
	Changes      []commitDetailDTO `json:"changes"`
}

func (c commitDTO) toModel() model.Commit {
	out := model.Commit{
		ID:           c.ID,
		Hash:         c.Hash,
		Message:      c.Message,
		RepositoryID: c.RepositoryID,
		UserID:       c.UserID,
		DateTime:     c.DateTime.Time,
		Tags:         c.Tags,
		Author:       c.Author.Name,
	}
	if out.UserID == 0 {
		out.UserID = c.Author.ID
	}
	for _, d := range c.Changes {
		out.Changes = append(out.Changes, d.toModel())
	}
	return out
}

// authorDTO accepts a plain name or an {id, full_name} object.
type authorDTO struct {
	ID   int64
	Name string
}

func (a *authorDTO) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		a.Name = name
		return nil
	}

	var obj struct {
		ID       int64  `json:"id"`
		FullName string `json:"full_name"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode commit author: %w", err)
	}
	a.ID = obj.ID
	a.Name = obj.FullName
	if a.Name == "" {
		a.Name = obj.Username
	}
	return nil
}

type commitDetailDTO struct {
	ID            int64            `json:"id"`
	CommitID      int64            `json:"commit_id"`
	FilePath      string           `json:"file_path"`
	ChangeType    string           `json:"change_type"`
	ContentChange contentChangeDTO `json:"content_change"`
	IsBinary      *bool            `json:"is_binary"`
	IsDiff        *bool            `json:"is_diff"`
}

func (d commitDetailDTO) toModel() model.CommitDetail {
	out := model.CommitDetail{
		ID:            d.ID,
		CommitID:      d.CommitID,
		FilePath:      d.FilePath,
		ChangeType:    model.ChangeType(d.ChangeType),
		ContentChange: d.ContentChange.Content,
		IsBinary:      d.ContentChange.IsBinary,
		IsDiff:        d.ContentChange.IsDiff,
	}
	if d.IsBinary != nil {
		out.IsBinary = *d.IsBinary
	}
	if d.IsDiff != nil {
		out.IsDiff = *d.IsDiff
	}
	return out
}

// contentChangeDTO accepts raw text or a {content, is_binary, is_diff} object.
type contentChangeDTO struct {
	Content  string
	IsBinary bool
	IsDiff   bool
}

func (c *contentChangeDTO) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		c.Content = text
		return nil
	}

	var obj struct {
		Content  string `json:"content"`
		IsBinary bool   `json:"is_binary"`
		IsDiff   bool   `json:"is_diff"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode content change: %w", err)
	}
	c.Content = obj.Content
	c.IsBinary = obj.IsBinary
	c.IsDiff = obj.IsDiff
	return nil
}

type accessDTO struct {
	RepositoryID int64    `json:"repository_id"`
	UserID       int64    `json:"user_id"`
	Username     string   `json:"username"`
	AccessLevel  string   `json:"access_level"`
	GrantedBy    int64    `json:"granted_by"`
	GrantedAt    flexTime `json:"granted_at"`
}

func mapAccess(in []accessDTO) []model.RepositoryAccess {
	out := make([]model.RepositoryAccess, 0, len(in))
	for _, a := range in {
		out = append(out, model.RepositoryAccess{
			RepositoryID: a.RepositoryID,
			UserID:       a.UserID,
			Username:     a.Username,
			AccessLevel:  model.AccessLevel(a.AccessLevel),
			GrantedBy:    a.GrantedBy,
			GrantedAt:    a.GrantedAt.Time,
		})
	}
	return out
}

// timeLayouts are tried in order. The last two cover timestamps serialized
// straight out of SQL drivers without a zone designator.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// flexTime decodes any of timeLayouts. Unrecognised values decode to the zero
// time rather than failing the whole response.
type flexTime struct {
	time.Time
}

func (t *flexTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	t.Time = time.Time{}
	return nil
}
