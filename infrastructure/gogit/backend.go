package gogit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	gitindex "github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/dot-scm/dot/domain"
)

const (
	// Fallback identity for machines without a configured git user.
	defaultUserName  = "dot"
	defaultUserEmail = "dot@localhost"
)

// Backend implements domain.Backend on go-git, so repository operations need
// no git binary on the machine.
type Backend struct{}

// New creates a new go-git backend.
func New() domain.Backend {
	return &Backend{}
}

func (b *Backend) IsRepository(path string) bool {
	_, err := git.PlainOpen(path)
	return err == nil
}

// Init creates a repository at path. An already initialized path is not an
// error, so repeated init calls converge.
func (b *Backend) Init(path string) error {
	_, err := git.PlainInit(path, false)
	if errors.Is(err, git.ErrRepositoryAlreadyExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to initialize a repository at %s: %w", path, err)
	}
	return nil
}

func (b *Backend) Clone(ctx context.Context, url, path string) error {
	if _, err := git.PlainCloneContext(ctx, path, false, &git.CloneOptions{URL: url}); err != nil {
		return fmt.Errorf("failed to clone %s into %s: %w", url, path, err)
	}
	return nil
}

func (b *Backend) RemoteOriginURL(path string) (string, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	remote, err := repo.Remote(git.DefaultRemoteName)
	if err != nil {
		return "", fmt.Errorf("failed to resolve the origin remote of %s: %w", path, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("the origin remote of %s has no URL", path)
	}
	return urls[0], nil
}

// SetRemoteOrigin points origin at url, replacing an existing origin remote.
func (b *Backend) SetRemoteOrigin(path, url string) error {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	if _, remoteErr := repo.Remote(git.DefaultRemoteName); remoteErr == nil {
		if deleteErr := repo.DeleteRemote(git.DefaultRemoteName); deleteErr != nil {
			return fmt.Errorf("failed to replace the origin remote of %s: %w", path, deleteErr)
		}
	}
	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: git.DefaultRemoteName,
		URLs: []string{url},
	})
	if err != nil {
		return fmt.Errorf("failed to attach the origin remote of %s: %w", path, err)
	}
	return nil
}

// UserIdentity resolves the committer identity from the repository and global
// git configuration, falling back to a fixed identity so commits never fail
// on an unconfigured machine.
func (b *Backend) UserIdentity(path string) (string, string, error) {
	var cfg *gitconfig.Config
	repo, err := git.PlainOpen(path)
	if err == nil {
		cfg, err = repo.ConfigScoped(gitconfig.GlobalScope)
	} else {
		cfg, err = gitconfig.LoadConfig(gitconfig.GlobalScope)
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to load the git configuration: %w", err)
	}

	name := cfg.User.Name
	if name == "" {
		name = defaultUserName
	}
	email := cfg.User.Email
	if email == "" {
		email = defaultUserEmail
	}
	return name, email, nil
}

// StageFiles stages the given paths even when an ignore rule covers them.
// Hidden repositories ignore their own content, so staging must not consult
// the ignore rules the way a plain add does.
func (b *Backend) StageFiles(path string, files []string) error {
	wt, err := worktree(path)
	if err != nil {
		return err
	}
	for _, file := range files {
		if addErr := wt.AddWithOptions(&git.AddOptions{Path: file, SkipStatus: true}); addErr != nil {
			return fmt.Errorf("failed to stage %s in %s: %w", file, path, addErr)
		}
	}
	return nil
}

func (b *Backend) StageAll(path string) error {
	wt, err := worktree(path)
	if err != nil {
		return err
	}
	if addErr := wt.AddWithOptions(&git.AddOptions{All: true}); addErr != nil {
		return fmt.Errorf("failed to stage the worktree of %s: %w", path, addErr)
	}
	return nil
}

// UnstageAll resets the index back to HEAD, keeping worktree changes. With no
// commit to reset to there is nothing recorded to restore, so the call is a
// no-op.
func (b *Backend) UnstageAll(path string) error {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	if _, headErr := repo.Head(); errors.Is(headErr, plumbing.ErrReferenceNotFound) {
		return nil
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open the worktree of %s: %w", path, err)
	}
	if resetErr := wt.Reset(&git.ResetOptions{Mode: git.MixedReset}); resetErr != nil {
		return fmt.Errorf("failed to unstage %s: %w", path, resetErr)
	}
	return nil
}

// Commit writes the staged tree as a commit and returns its id. A clean
// index still produces a commit: a hidden repository ignores its own content,
// so an unchanged tree is routine in the multi-repository flow and must not
// fail the whole transaction.
func (b *Backend) Commit(path, message string) (string, error) {
	name, email, err := b.UserIdentity(path)
	if err != nil {
		return "", err
	}
	wt, err := worktree(path)
	if err != nil {
		return "", err
	}
	commit, err := wt.Commit(message, &git.CommitOptions{
		Author:            &object.Signature{Name: name, Email: email, When: time.Now()},
		AllowEmptyCommits: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit in %s: %w", path, err)
	}
	return commit.String(), nil
}

// ResetToParent discards the commit identified by commitID, restoring the
// repository to its first parent. A parentless commit rewinds the repository
// to its unborn state.
func (b *Backend) ResetToParent(path, commitID string) error {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	commit, err := repo.CommitObject(plumbing.NewHash(commitID))
	if err != nil {
		return fmt.Errorf("failed to resolve commit %s in %s: %w", commitID, path, err)
	}

	if commit.NumParents() == 0 {
		return resetToEmpty(repo, commit, path)
	}

	parent, err := commit.Parent(0)
	if err != nil {
		return fmt.Errorf("failed to resolve the parent of %s: %w", commitID, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open the worktree of %s: %w", path, err)
	}
	if resetErr := wt.Reset(&git.ResetOptions{Commit: parent.Hash, Mode: git.HardReset}); resetErr != nil {
		return fmt.Errorf("failed to reset %s to %s: %w", path, parent.Hash, resetErr)
	}
	return nil
}

// Push publishes the current branch, or the main/master branch when HEAD does
// not name one.
func (b *Backend) Push(ctx context.Context, path string) error {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	var pushErr error
	for _, branch := range pushCandidates(repo) {
		if pushErr = pushBranch(ctx, repo, branch); pushErr == nil {
			return nil
		}
	}
	return fmt.Errorf("failed to push %s: %w", path, pushErr)
}

func (b *Backend) PushBranch(ctx context.Context, path, branch string) error {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	if pushErr := pushBranch(ctx, repo, branch); pushErr != nil {
		return fmt.Errorf("failed to push branch %s of %s: %w", branch, path, pushErr)
	}
	return nil
}

func (b *Backend) Pull(ctx context.Context, path string) error {
	wt, err := worktree(path)
	if err != nil {
		return err
	}
	pullErr := wt.PullContext(ctx, &git.PullOptions{RemoteName: git.DefaultRemoteName})
	if errors.Is(pullErr, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if pullErr != nil {
		return fmt.Errorf("failed to pull %s: %w", path, pullErr)
	}
	return nil
}

// Status returns a porcelain-style summary, one "XY path" line per changed
// file sorted by path, or the empty string for a clean worktree.
func (b *Backend) Status(path string) (string, error) {
	wt, err := worktree(path)
	if err != nil {
		return "", err
	}
	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("failed to read the status of %s: %w", path, err)
	}
	if status.IsClean() {
		return "", nil
	}

	paths := make([]string, 0, len(status))
	for file := range status {
		paths = append(paths, file)
	}
	slices.Sort(paths)

	var summary strings.Builder
	for _, file := range paths {
		fileStatus := status[file]
		fmt.Fprintf(&summary, "%c%c %s\n", fileStatus.Staging, fileStatus.Worktree, file)
	}
	return summary.String(), nil
}

func worktree(path string) (*git.Worktree, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to open the worktree of %s: %w", path, err)
	}
	return wt, nil
}

// pushCandidates returns the branch HEAD points at, or main and master when
// HEAD is detached or unborn.
func pushCandidates(repo *git.Repository) []string {
	head, err := repo.Reference(plumbing.HEAD, false)
	if err == nil && head.Type() == plumbing.SymbolicReference && head.Target().IsBranch() {
		return []string{head.Target().Short()}
	}
	return []string{"main", "master"}
}

func pushBranch(ctx context.Context, repo *git.Repository, branch string) error {
	// go-git treats a refspec with no matching local ref as "nothing to
	// push", which would silently satisfy the main/master fallback. Require
	// the branch to exist so the caller moves on to the next candidate.
	branchRef := plumbing.NewBranchReferenceName(branch)
	if _, err := repo.Reference(branchRef, false); err != nil {
		return fmt.Errorf("branch %s does not exist locally: %w", branch, err)
	}

	refSpec := gitconfig.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))
	err := repo.PushContext(ctx, &git.PushOptions{
		RemoteName: git.DefaultRemoteName,
		RefSpecs:   []gitconfig.RefSpec{refSpec},
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}

// resetToEmpty rewinds a repository whose history is a single commit back to
// its unborn state: the branch ref is removed, the index emptied, and the
// files recorded in the commit removed from the worktree.
func resetToEmpty(repo *git.Repository, commit *object.Commit, path string) error {
	head, err := repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return fmt.Errorf("failed to resolve HEAD of %s: %w", path, err)
	}
	if head.Type() == plumbing.SymbolicReference {
		if removeErr := repo.Storer.RemoveReference(head.Target()); removeErr != nil {
			return fmt.Errorf("failed to remove the branch ref of %s: %w", path, removeErr)
		}
	}
	if indexErr := repo.Storer.SetIndex(&gitindex.Index{Version: 2}); indexErr != nil {
		return fmt.Errorf("failed to clear the index of %s: %w", path, indexErr)
	}

	tree, err := commit.Tree()
	if err != nil {
		return fmt.Errorf("failed to resolve the tree of %s: %w", commit.Hash, err)
	}
	return tree.Files().ForEach(func(file *object.File) error {
		removeErr := os.Remove(filepath.Join(path, file.Name))
		if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			return removeErr
		}
		return nil
	})
}
