package domain

import "context"

// Backend abstracts primitive operations against a single on-disk git
// repository. Implementations are not required to be goroutine-safe; callers
// serialize concurrent access to the same repository path.
type Backend interface {
	// IsRepository reports whether path is the root of an existing repository.
	IsRepository(path string) bool

	// Init creates an empty repository at path.
	Init(path string) error

	// Clone clones the repository at url into path.
	Clone(ctx context.Context, url, path string) error

	// RemoteOriginURL returns the first URL of the "origin" remote.
	RemoteOriginURL(path string) (string, error)

	// SetRemoteOrigin creates or replaces the "origin" remote.
	SetRemoteOrigin(path, url string) error

	// UserIdentity returns the committer name and email from git configuration,
	// falling back to defaults when none is configured.
	UserIdentity(path string) (name string, email string, err error)

	// StageFiles stages the given paths, relative to the repository root.
	StageFiles(path string, files []string) error

	// StageAll stages every change in the worktree.
	StageAll(path string) error

	// UnstageAll resets the index to the HEAD tree, keeping worktree content.
	// A repository without commits is left untouched.
	UnstageAll(path string) error

	// Commit writes the staged tree as a new commit and returns its id.
	Commit(path, message string) (string, error)

	// ResetToParent hard-resets the repository to the first parent of
	// commitID. A parentless commit is undone to the empty tree.
	ResetToParent(path, commitID string) error

	// Push pushes the current branch to origin, falling back to "main" and
	// then "master" when no branch is checked out.
	Push(ctx context.Context, path string) error

	// PushBranch pushes the named branch to origin.
	PushBranch(ctx context.Context, path, branch string) error

	// Pull fetches and integrates origin into the current branch.
	Pull(ctx context.Context, path string) error

	// Status returns a porcelain-style summary of the worktree, one file per
	// line, empty when the worktree is clean.
	Status(path string) (string, error)
}
