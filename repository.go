package stagehand

import "context"

// FileChange is one changed path as reported by the repository status.
type FileChange struct {
	Path     string
	OrigPath string // set for renames and copies
	Code     byte   // porcelain status letter: M, A, D, R, C, T, U or ?
}

// Untracked reports whether the path is not yet known to the index.
func (c FileChange) Untracked() bool { return c.Code == '?' }

// Status is a snapshot of the repository's mutable surface.
type Status struct {
	Branch    string // "" when HEAD is detached
	Upstream  string
	Ahead     int
	Behind    int
	Staged    []FileChange
	Unstaged  []FileChange // includes untracked files
	Conflicts []string
}

// Clean reports whether there is nothing to stage or commit.
func (s *Status) Clean() bool {
	return len(s.Staged) == 0 && len(s.Unstaged) == 0 && len(s.Conflicts) == 0
}

// Branch is one local branch head.
type Branch struct {
	Name      string
	Upstream  string
	IsCurrent bool
}

// StashEntry is one entry in the stash reflog, newest first.
type StashEntry struct {
	Index   int
	Message string
}

// Remote is one configured remote.
type Remote struct {
	Name string
	URL  string
}

// Credential is a username/secret pair for remote access.
type Credential struct {
	Username string
	Password string
}

// Snapshot is the combined view of the repository's mutable surface that
// one refresh renders: the status plus both patch sets.
type Snapshot struct {
	Status   *Status
	Unstaged []*Patch
	Staged   []*Patch
}

// Repository is the mutable Git repository the tasks operate on. All
// mutating calls are expected to run on the single worker slot; the
// read-only calls are safe to run concurrently with each other.
type Repository interface {
	// Root returns the absolute path of the working tree.
	Root() string

	Status(ctx context.Context) (*Status, error)

	// Snapshot gathers the status and the unstaged and staged patch sets.
	Snapshot(ctx context.Context) (*Snapshot, error)

	// DiffWorkdir returns the unstaged patch for path, or the whole
	// working tree when path is "". Untracked files are rendered as
	// additions against /dev/null.
	DiffWorkdir(ctx context.Context, path string) ([]byte, error)
	// DiffStaged returns the staged patch for path, or the whole index
	// when path is "".
	DiffStaged(ctx context.Context, path string) ([]byte, error)

	// Apply applies a patch to the index or the working tree. The patch
	// bytes carry their own direction; reverse is passed through for
	// callers that apply unmodified patches backwards.
	Apply(ctx context.Context, patch []byte, to ApplyLocation, reverse bool) error

	StageFiles(ctx context.Context, paths []string) error
	UnstageFiles(ctx context.Context, paths []string) error
	// DiscardFiles restores paths to their index content. Untracked paths
	// are expected to be routed to a trash area by the caller instead.
	DiscardFiles(ctx context.Context, paths []string) error

	Commit(ctx context.Context, message string, amend bool) error
	// HeadMessage returns the full message of the HEAD commit.
	HeadMessage(ctx context.Context) (string, error)

	Branches(ctx context.Context) ([]Branch, error)
	CreateBranch(ctx context.Context, name, from string) error
	SwitchBranch(ctx context.Context, name string) error
	DeleteBranch(ctx context.Context, name string, force bool) error
	RenameBranch(ctx context.Context, oldName, newName string) error

	Stashes(ctx context.Context) ([]StashEntry, error)
	SaveStash(ctx context.Context, message string, includeUntracked bool) error
	ApplyStash(ctx context.Context, index int) error
	PopStash(ctx context.Context, index int) error
	DropStash(ctx context.Context, index int) error

	Remotes(ctx context.Context) ([]Remote, error)
	// Fetch updates remote-tracking refs. cred may be nil for remotes
	// that need no authentication.
	Fetch(ctx context.Context, remote string, cred *Credential) error
}
