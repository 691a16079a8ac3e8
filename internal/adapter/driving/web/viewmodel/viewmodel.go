// Package viewmodel defines presentation-ready structs for templ components.
// View models decouple template rendering from domain model types.
package viewmodel

// Layout holds the data shared by every page shell.
type Layout struct {
	Title           string
	IsAuthenticated bool
	UserName        string // empty when the server returned no profile
	CSRFToken       string
	Flash           string
	Error           string
}

// LoginForm is the sign-in page.
type LoginForm struct {
	Identifier string
	Redirect   string
}

// RegisterForm is the account creation page. Password is never echoed back.
type RegisterForm struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
}

// Home is the landing page.
type Home struct {
	IsAuthenticated bool
	RepoName        string
	Description     string
}

// RepoNav identifies the repository for the tab bar and form actions.
type RepoNav struct {
	Name        string
	Active      string // tab name: files, commits, branches, settings
	FilesURL    string
	CommitsURL  string
	BranchesURL string
	SettingsURL string
}

// File is one entry of the repository file list.
type File struct {
	Path     string
	URL      string
	Size     int
	Selected bool
}

// Repository is the file browser page.
type Repository struct {
	Nav          RepoNav
	Files        []File
	SelectedPath string
	// SelectedHTML is sanitized HTML for the selected file (markdown) or
	// empty when SelectedText should be shown verbatim.
	SelectedHTML string
	SelectedText string
	ReadmeHTML   string
	BranchCount  int
	CommitCount  int
}

// Change is one file change of a commit.
type Change struct {
	FilePath   string
	ChangeType string
	Label      string
	IsBinary   bool
	// DiffHTML is sanitized, line-classed diff markup.
	DiffHTML string
}

// Commit is one entry of the commit log.
type Commit struct {
	ID        int64
	Hash      string
	ShortHash string
	Message   string
	Author    string
	When      string
	Tags      []string
	Changes   []Change
}

// Preview is the diff of one uploaded file against the current content.
type Preview struct {
	Path     string
	IsNew    bool
	DiffHTML string
}

// Commits is the commit log page with the upload form.
type Commits struct {
	Nav      RepoNav
	Commits  []Commit
	CanWrite bool
	Message  string
	Tags     string
	Previews []Preview
	PostURL  string
}

// Branch is one entry of the branch list.
type Branch struct {
	Name       string
	HeadCommit string
	IsActive   bool
	DeleteURL  string
}

// Branches is the branch list page.
type Branches struct {
	Nav      RepoNav
	Branches []Branch
	CanWrite bool
	PostURL  string
}

// Grant is one access entry.
type Grant struct {
	Username    string
	UserID      int64
	AccessLevel string
	GrantedAt   string
}

// Settings is the repository access page.
type Settings struct {
	Nav       RepoNav
	Grants    []Grant
	CanWrite  bool
	GrantURL  string
	RevokeURL string
}
