// Package testdoubles provides test doubles (spies, stubs, dummies) for domain
// interfaces. These are hand-crafted implementations — no mock frameworks.
package testdoubles

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dot-scm/dot/domain"
)

// ---------------------------------------------------------------------------
// SpyBackend
// ---------------------------------------------------------------------------

// SpyBackend implements domain.Backend as a configurable spy.
// Configure the response fields for the methods your test exercises,
// then inspect the call-tracking fields to verify behavior.
type SpyBackend struct {
	// --- IsRepository ---
	ExistingRepos map[string]bool // path -> is a repository

	// --- Init ---
	InitErr error
	// spy: paths initialized
	InitCalls []string

	// --- Clone ---
	CloneErrs map[string]error // url -> error
	// spy: clones requested
	CloneCalls []CloneCall

	// --- RemoteOriginURL ---
	RemoteURLs   map[string]string // path -> origin url
	RemoteURLErr error

	// --- SetRemoteOrigin ---
	SetRemoteErr error
	// spy: remotes attached
	SetRemoteCalls []SetRemoteCall

	// --- UserIdentity ---
	IdentityName  string
	IdentityEmail string
	IdentityErr   error

	// --- StageFiles ---
	StageFilesErrs map[string]error // path -> error
	// spy: stage requests received
	StageFilesCalls []StageFilesCall

	// --- StageAll ---
	StageAllErrs map[string]error // path -> error
	// spy: paths staged, in call order
	StageAllCalls []string

	// --- UnstageAll ---
	UnstageErrs map[string]error // path -> error
	// spy: paths unstaged, in call order
	UnstageCalls []string

	// --- Commit ---
	CommitIDs  map[string]string // path -> commit id
	CommitErrs map[string]error  // path -> error
	// spy: commits received
	CommitCalls []CommitCall

	// --- ResetToParent ---
	ResetErr error
	// spy: resets received, in call order
	ResetCalls []ResetCall

	// --- Push ---
	PushErrs map[string]error // path -> error
	// spy: paths pushed, in call order
	PushCalls []string

	// --- PushBranch ---
	PushBranchErrs map[string]error // branch -> error
	// spy: branch pushes received
	PushBranchCalls []PushBranchCall

	// --- Pull ---
	PullErr error
	// spy: paths pulled
	PullCalls []string

	// --- Status ---
	Statuses  map[string]string // path -> summary
	StatusErr error
}

// CloneCall records a single invocation of Clone.
type CloneCall struct {
	URL  string
	Path string
}

// SetRemoteCall records a single invocation of SetRemoteOrigin.
type SetRemoteCall struct {
	Path string
	URL  string
}

// StageFilesCall records a single invocation of StageFiles.
type StageFilesCall struct {
	Path  string
	Files []string
}

// CommitCall records a single invocation of Commit.
type CommitCall struct {
	Path    string
	Message string
}

// ResetCall records a single invocation of ResetToParent.
type ResetCall struct {
	Path     string
	CommitID string
}

// PushBranchCall records a single invocation of PushBranch.
type PushBranchCall struct {
	Path   string
	Branch string
}

var _ domain.Backend = (*SpyBackend)(nil)

func (b *SpyBackend) IsRepository(path string) bool {
	if b.ExistingRepos != nil {
		return b.ExistingRepos[path]
	}
	return false
}

func (b *SpyBackend) Init(path string) error {
	b.InitCalls = append(b.InitCalls, path)
	return b.InitErr
}

func (b *SpyBackend) Clone(_ context.Context, url, path string) error {
	b.CloneCalls = append(b.CloneCalls, CloneCall{URL: url, Path: path})
	if b.CloneErrs != nil {
		return b.CloneErrs[url]
	}
	return nil
}

func (b *SpyBackend) RemoteOriginURL(path string) (string, error) {
	if b.RemoteURLErr != nil {
		return "", b.RemoteURLErr
	}
	if b.RemoteURLs != nil {
		if url, ok := b.RemoteURLs[path]; ok {
			return url, nil
		}
	}
	return "", fmt.Errorf("no origin remote in %s", path)
}

func (b *SpyBackend) SetRemoteOrigin(path, url string) error {
	b.SetRemoteCalls = append(b.SetRemoteCalls, SetRemoteCall{Path: path, URL: url})
	return b.SetRemoteErr
}

func (b *SpyBackend) UserIdentity(_ string) (string, string, error) {
	if b.IdentityErr != nil {
		return "", "", b.IdentityErr
	}
	return b.IdentityName, b.IdentityEmail, nil
}

func (b *SpyBackend) StageFiles(path string, files []string) error {
	b.StageFilesCalls = append(b.StageFilesCalls, StageFilesCall{Path: path, Files: files})
	if b.StageFilesErrs != nil {
		return b.StageFilesErrs[path]
	}
	return nil
}

func (b *SpyBackend) StageAll(path string) error {
	b.StageAllCalls = append(b.StageAllCalls, path)
	if b.StageAllErrs != nil {
		return b.StageAllErrs[path]
	}
	return nil
}

func (b *SpyBackend) UnstageAll(path string) error {
	b.UnstageCalls = append(b.UnstageCalls, path)
	if b.UnstageErrs != nil {
		return b.UnstageErrs[path]
	}
	return nil
}

func (b *SpyBackend) Commit(path, message string) (string, error) {
	b.CommitCalls = append(b.CommitCalls, CommitCall{Path: path, Message: message})
	if b.CommitErrs != nil {
		if err := b.CommitErrs[path]; err != nil {
			return "", err
		}
	}
	if b.CommitIDs != nil {
		if id, ok := b.CommitIDs[path]; ok {
			return id, nil
		}
	}
	return "0000000000000000000000000000000000000000", nil
}

func (b *SpyBackend) ResetToParent(path, commitID string) error {
	b.ResetCalls = append(b.ResetCalls, ResetCall{Path: path, CommitID: commitID})
	return b.ResetErr
}

func (b *SpyBackend) Push(_ context.Context, path string) error {
	b.PushCalls = append(b.PushCalls, path)
	if b.PushErrs != nil {
		return b.PushErrs[path]
	}
	return nil
}

func (b *SpyBackend) PushBranch(_ context.Context, path, branch string) error {
	b.PushBranchCalls = append(b.PushBranchCalls, PushBranchCall{Path: path, Branch: branch})
	if b.PushBranchErrs != nil {
		return b.PushBranchErrs[branch]
	}
	return nil
}

func (b *SpyBackend) Pull(_ context.Context, path string) error {
	b.PullCalls = append(b.PullCalls, path)
	return b.PullErr
}

func (b *SpyBackend) Status(path string) (string, error) {
	if b.StatusErr != nil {
		return "", b.StatusErr
	}
	if b.Statuses != nil {
		return b.Statuses[path], nil
	}
	return "", nil
}

// ---------------------------------------------------------------------------
// SpyHosting
// ---------------------------------------------------------------------------

// SpyHosting implements domain.Hosting as a configurable spy.
type SpyHosting struct {
	// --- CreateRepository ---
	CreateErrs map[string]error  // name -> error
	RemoteURLs map[string]string // name -> returned remote url
	// spy: creations received, in call order
	CreateCalls []CreateRepositoryCall

	// --- DeleteRepository ---
	DeleteErr error
	// spy: deletions received, in call order
	DeleteCalls []DeleteRepositoryCall

	// --- AuthenticatedUser ---
	User    string
	UserErr error
}

// CreateRepositoryCall records a single invocation of CreateRepository.
type CreateRepositoryCall struct {
	Org         string
	Name        string
	Description string
}

// DeleteRepositoryCall records a single invocation of DeleteRepository.
type DeleteRepositoryCall struct {
	Org  string
	Name string
}

var _ domain.Hosting = (*SpyHosting)(nil)

func (h *SpyHosting) CreateRepository(
	_ context.Context,
	org, name, description string,
) (string, error) {
	h.CreateCalls = append(
		h.CreateCalls,
		CreateRepositoryCall{Org: org, Name: name, Description: description},
	)
	if h.CreateErrs != nil {
		if err := h.CreateErrs[name]; err != nil {
			return "", err
		}
	}
	if h.RemoteURLs != nil {
		if url, ok := h.RemoteURLs[name]; ok {
			return url, nil
		}
	}
	return fmt.Sprintf("git@github.com:%s/%s.git", org, name), nil
}

func (h *SpyHosting) DeleteRepository(_ context.Context, org, name string) error {
	h.DeleteCalls = append(h.DeleteCalls, DeleteRepositoryCall{Org: org, Name: name})
	return h.DeleteErr
}

func (h *SpyHosting) AuthenticatedUser(_ context.Context) (string, error) {
	if h.UserErr != nil {
		return "", h.UserErr
	}
	if h.User != "" {
		return h.User, nil
	}
	return "someone", nil
}

// ---------------------------------------------------------------------------
// SpyIndex
// ---------------------------------------------------------------------------

// SpyIndex implements domain.Index as a configurable in-memory registry.
type SpyIndex struct {
	// --- RegisterProject ---
	RegisterErr error
	// spy: registrations received, in call order
	Registered []domain.ProjectRegistration

	// --- FindProjectsByPrefix / Project ---
	Projects map[string]domain.ProjectRegistration
	// spy: prefixes queried
	PrefixQueries []string
}

var _ domain.Index = (*SpyIndex)(nil)

func (i *SpyIndex) RegisterProject(_ context.Context, reg domain.ProjectRegistration) error {
	if i.RegisterErr != nil {
		return i.RegisterErr
	}
	if _, exists := i.Projects[reg.RepositoryKey]; exists {
		return &domain.ProjectExistsError{Key: reg.RepositoryKey}
	}
	i.Registered = append(i.Registered, reg)
	if i.Projects == nil {
		i.Projects = make(map[string]domain.ProjectRegistration)
	}
	i.Projects[reg.RepositoryKey] = reg
	return nil
}

func (i *SpyIndex) FindProjectsByPrefix(base string) []domain.ProjectRegistration {
	i.PrefixQueries = append(i.PrefixQueries, base)
	matches := make([]domain.ProjectRegistration, 0)
	for key, reg := range i.Projects {
		if strings.HasPrefix(key, base) {
			matches = append(matches, reg)
		}
	}
	slices.SortFunc(matches, func(a, b domain.ProjectRegistration) int {
		return strings.Compare(a.RepositoryKey, b.RepositoryKey)
	})
	return matches
}

func (i *SpyIndex) Project(key string) (domain.ProjectRegistration, bool) {
	reg, ok := i.Projects[key]
	return reg, ok
}

// ---------------------------------------------------------------------------
// DummyBackend — satisfies the interface but does nothing (for compile checks)
// ---------------------------------------------------------------------------

// DummyBackend is a no-op implementation of domain.Backend.
// Use it only for interface compliance tests or as a placeholder.
type DummyBackend struct{}

var _ domain.Backend = (*DummyBackend)(nil)

func (d *DummyBackend) IsRepository(_ string) bool                 { return false }
func (d *DummyBackend) Init(_ string) error                        { return nil }
func (d *DummyBackend) Clone(_ context.Context, _, _ string) error { return nil }
func (d *DummyBackend) RemoteOriginURL(_ string) (string, error)   { return "", nil }
func (d *DummyBackend) SetRemoteOrigin(_, _ string) error          { return nil }
func (d *DummyBackend) UserIdentity(_ string) (string, string, error) {
	return "", "", nil
}
func (d *DummyBackend) StageFiles(_ string, _ []string) error      { return nil }
func (d *DummyBackend) StageAll(_ string) error                    { return nil }
func (d *DummyBackend) UnstageAll(_ string) error                  { return nil }
func (d *DummyBackend) Commit(_, _ string) (string, error)         { return "", nil }
func (d *DummyBackend) ResetToParent(_, _ string) error            { return nil }
func (d *DummyBackend) Push(_ context.Context, _ string) error     { return nil }
func (d *DummyBackend) PushBranch(_ context.Context, _, _ string) error {
	return nil
}
func (d *DummyBackend) Pull(_ context.Context, _ string) error     { return nil }
func (d *DummyBackend) Status(_ string) (string, error)            { return "", nil }

// ---------------------------------------------------------------------------
// DummyHosting — satisfies the interface but does nothing
// ---------------------------------------------------------------------------

// DummyHosting is a no-op implementation of domain.Hosting.
type DummyHosting struct{}

var _ domain.Hosting = (*DummyHosting)(nil)

func (d *DummyHosting) DeleteRepository(_ context.Context, _, _ string) error {
	return nil
}

func (d *DummyHosting) AuthenticatedUser(_ context.Context) (string, error) {
	return "", nil
}

func (d *DummyHosting) CreateRepository(
	_ context.Context,
	_, _, _ string,
) (string, error) {
	return "", nil
}
