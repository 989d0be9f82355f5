package index_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dot-scm/dot/domain"
	"github.com/dot-scm/dot/index"
	testdoubles "github.com/dot-scm/dot/test"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("should fail without a default organization", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		backend := &testdoubles.SpyBackend{}

		// when
		idx, err := index.New(ctx, backend, t.TempDir(), "")

		// then
		require.ErrorIs(t, err, index.ErrNoDefaultOrganization)
		assert.Nil(t, idx)
	})

	t.Run("should refresh an existing clone", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		dir := t.TempDir()
		document := `{
  "projects": {
    "github.com:user/repo/.kiro": {
      "repository_key": "github.com:user/repo/.kiro",
      "remote_repository_name": "github.com-user-repo-.kiro",
      "owning_user": "dev",
      "parent_remote_url": "git@github.com:user/repo.git",
      "parent_disk_path": "/work/repo",
      "hidden_directory_name": ".kiro",
      "created_at": "2025-01-02T15:04:05Z"
    }
  }
}`
		err := os.WriteFile(filepath.Join(dir, "index.json"), []byte(document), 0o644)
		require.NoError(t, err)
		backend := &testdoubles.SpyBackend{ExistingRepos: map[string]bool{dir: true}}

		// when
		idx, err := index.New(ctx, backend, dir, "acme-labs")

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{dir}, backend.PullCalls, "an existing clone should be refreshed")
		assert.Empty(t, backend.CloneCalls)
		registration, found := idx.Project("github.com:user/repo/.kiro")
		require.True(t, found)
		assert.Equal(t, ".kiro", registration.HiddenDirectoryName)
		assert.Equal(t, "dev", registration.OwningUser)
	})

	t.Run("should tolerate a failing refresh and use the local copy", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		dir := t.TempDir()
		backend := &testdoubles.SpyBackend{
			ExistingRepos: map[string]bool{dir: true},
			PullErr:       errors.New("remote unreachable"),
		}

		// when
		idx, err := index.New(ctx, backend, dir, "acme-labs")

		// then
		require.NoError(t, err, "a stale index is better than no index")
		assert.NotNil(t, idx)
	})

	t.Run("should clone the index when the local copy is absent", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		dir := filepath.Join(t.TempDir(), ".index")
		backend := &testdoubles.SpyBackend{}

		// when
		idx, err := index.New(ctx, backend, dir, "acme-labs")

		// then
		require.NoError(t, err)
		require.Len(t, backend.CloneCalls, 1)
		assert.Equal(t, "git@github.com:acme-labs/.index.git", backend.CloneCalls[0].URL)
		assert.Equal(t, dir, backend.CloneCalls[0].Path)
		assert.Empty(t, backend.InitCalls)
		assert.Empty(t, idx.FindProjectsByPrefix("github.com"))
	})

	t.Run("should bootstrap a fresh index when the clone fails", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		dir := filepath.Join(t.TempDir(), ".index")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		remoteURL := "git@github.com:acme-labs/.index.git"
		backend := &testdoubles.SpyBackend{
			CloneErrs: map[string]error{remoteURL: errors.New("repository not found")},
		}

		// when
		idx, err := index.New(ctx, backend, dir, "acme-labs")

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{dir}, backend.InitCalls)
		require.Len(t, backend.SetRemoteCalls, 1)
		assert.Equal(t, remoteURL, backend.SetRemoteCalls[0].URL)
		require.FileExists(t, filepath.Join(dir, "index.json"))
		raw, readErr := os.ReadFile(filepath.Join(dir, "index.json"))
		require.NoError(t, readErr)
		assert.Contains(t, string(raw), `"projects"`)
		assert.NotNil(t, idx)
	})

	t.Run("should surface an init failure during bootstrap", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		dir := filepath.Join(t.TempDir(), ".index")
		backend := &testdoubles.SpyBackend{
			CloneErrs: map[string]error{"git@github.com:acme-labs/.index.git": errors.New("repository not found")},
			InitErr:   errors.New("permission denied"),
		}

		// when
		idx, err := index.New(ctx, backend, dir, "acme-labs")

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialize the index repository")
		assert.Nil(t, idx)
	})

	t.Run("should fail when the index document is corrupt", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		dir := t.TempDir()
		err := os.WriteFile(filepath.Join(dir, "index.json"), []byte("{not json"), 0o644)
		require.NoError(t, err)
		backend := &testdoubles.SpyBackend{ExistingRepos: map[string]bool{dir: true}}

		// when
		idx, err := index.New(ctx, backend, dir, "acme-labs")

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse the index document")
		assert.Nil(t, idx)
	})

	t.Run("should accept a document with a null project map", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		dir := t.TempDir()
		err := os.WriteFile(filepath.Join(dir, "index.json"), []byte(`{"projects": null}`), 0o644)
		require.NoError(t, err)
		backend := &testdoubles.SpyBackend{ExistingRepos: map[string]bool{dir: true}}

		// when
		idx, err := index.New(ctx, backend, dir, "acme-labs")

		// then
		require.NoError(t, err)
		regErr := idx.RegisterProject(ctx, domain.ProjectRegistration{
			RepositoryKey: "github.com:user/repo/.kiro",
		})
		require.NoError(t, regErr)
	})
}

func TestRegisterProject(t *testing.T) {
	t.Parallel()

	t.Run("should persist and replicate a new registration", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		dir := t.TempDir()
		backend := &testdoubles.SpyBackend{ExistingRepos: map[string]bool{dir: true}}
		idx, err := index.New(ctx, backend, dir, "acme-labs")
		require.NoError(t, err)
		registration := domain.ProjectRegistration{
			RepositoryKey:        "github.com:user/repo/.kiro",
			RemoteRepositoryName: "github.com-user-repo-.kiro",
			OwningUser:           "dev",
			ParentRemoteURL:      "git@github.com:user/repo.git",
			ParentDiskPath:       "/work/repo",
			HiddenDirectoryName:  ".kiro",
			CreatedAt:            "2025-01-02T15:04:05Z",
		}

		// when
		err = idx.RegisterProject(ctx, registration)

		// then
		require.NoError(t, err)
		raw, readErr := os.ReadFile(filepath.Join(dir, "index.json"))
		require.NoError(t, readErr)
		assert.Contains(t, string(raw), `"github.com:user/repo/.kiro"`)
		require.Len(t, backend.StageFilesCalls, 1)
		assert.Equal(t, []string{"index.json"}, backend.StageFilesCalls[0].Files)
		require.Len(t, backend.CommitCalls, 1)
		assert.Equal(t, "Update index", backend.CommitCalls[0].Message)
		require.Len(t, backend.PushBranchCalls, 1)
		assert.Equal(t, "main", backend.PushBranchCalls[0].Branch)
	})

	t.Run("should fall back to master when main is rejected", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		dir := t.TempDir()
		backend := &testdoubles.SpyBackend{
			ExistingRepos:  map[string]bool{dir: true},
			PushBranchErrs: map[string]error{"main": errors.New("no such branch")},
		}
		idx, err := index.New(ctx, backend, dir, "acme-labs")
		require.NoError(t, err)

		// when
		err = idx.RegisterProject(ctx, domain.ProjectRegistration{RepositoryKey: "github.com:user/repo/.kiro"})

		// then
		require.NoError(t, err)
		require.Len(t, backend.PushBranchCalls, 2)
		assert.Equal(t, "main", backend.PushBranchCalls[0].Branch)
		assert.Equal(t, "master", backend.PushBranchCalls[1].Branch)
	})

	t.Run("should keep the local commit when every push fails", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		dir := t.TempDir()
		backend := &testdoubles.SpyBackend{
			ExistingRepos: map[string]bool{dir: true},
			PushBranchErrs: map[string]error{
				"main":   errors.New("remote unreachable"),
				"master": errors.New("remote unreachable"),
			},
		}
		idx, err := index.New(ctx, backend, dir, "acme-labs")
		require.NoError(t, err)

		// when
		err = idx.RegisterProject(ctx, domain.ProjectRegistration{RepositoryKey: "github.com:user/repo/.kiro"})

		// then
		require.NoError(t, err, "replication is eventually consistent, a failed push is not fatal")
		assert.Len(t, backend.CommitCalls, 1)
	})

	t.Run("should reject a duplicate key without touching the repository", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		dir := t.TempDir()
		backend := &testdoubles.SpyBackend{ExistingRepos: map[string]bool{dir: true}}
		idx, err := index.New(ctx, backend, dir, "acme-labs")
		require.NoError(t, err)
		registration := domain.ProjectRegistration{RepositoryKey: "github.com:user/repo/.kiro"}
		require.NoError(t, idx.RegisterProject(ctx, registration))

		// when
		err = idx.RegisterProject(ctx, registration)

		// then
		var existsErr *domain.ProjectExistsError
		require.ErrorAs(t, err, &existsErr)
		assert.Equal(t, "github.com:user/repo/.kiro", existsErr.Key)
		assert.Len(t, backend.CommitCalls, 1, "a rejected registration should not commit")
	})

	t.Run("should surface a staging failure", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		dir := t.TempDir()
		backend := &testdoubles.SpyBackend{
			ExistingRepos:  map[string]bool{dir: true},
			StageFilesErrs: map[string]error{dir: errors.New("index locked")},
		}
		idx, err := index.New(ctx, backend, dir, "acme-labs")
		require.NoError(t, err)

		// when
		err = idx.RegisterProject(ctx, domain.ProjectRegistration{RepositoryKey: "github.com:user/repo/.kiro"})

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to stage the index document")
	})

	t.Run("should allow a retry after a failed replication", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		dir := t.TempDir()
		backend := &testdoubles.SpyBackend{
			ExistingRepos:  map[string]bool{dir: true},
			StageFilesErrs: map[string]error{dir: errors.New("index locked")},
		}
		idx, err := index.New(ctx, backend, dir, "acme-labs")
		require.NoError(t, err)
		registration := domain.ProjectRegistration{RepositoryKey: "github.com:user/repo/.kiro"}
		require.Error(t, idx.RegisterProject(ctx, registration))
		_, found := idx.Project(registration.RepositoryKey)
		require.False(t, found, "a failed registration must not stay in the index")

		// when
		delete(backend.StageFilesErrs, dir)
		err = idx.RegisterProject(ctx, registration)

		// then
		require.NoError(t, err)
		_, found = idx.Project(registration.RepositoryKey)
		assert.True(t, found)
	})
}

func TestFindProjectsByPrefix(t *testing.T) {
	t.Parallel()

	t.Run("should return matches sorted by key", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		dir := t.TempDir()
		backend := &testdoubles.SpyBackend{ExistingRepos: map[string]bool{dir: true}}
		idx, err := index.New(ctx, backend, dir, "acme-labs")
		require.NoError(t, err)
		for _, key := range []string{
			"github.com:user/repo/.vscode",
			"github.com:user/repo/.kiro",
			"github.com:user/other/.kiro",
		} {
			require.NoError(t, idx.RegisterProject(ctx, domain.ProjectRegistration{RepositoryKey: key}))
		}

		// when
		matches := idx.FindProjectsByPrefix("github.com:user/repo")

		// then
		require.Len(t, matches, 2)
		assert.Equal(t, "github.com:user/repo/.kiro", matches[0].RepositoryKey)
		assert.Equal(t, "github.com:user/repo/.vscode", matches[1].RepositoryKey)
	})

	t.Run("should return an empty slice for an unmatched prefix", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		dir := t.TempDir()
		backend := &testdoubles.SpyBackend{ExistingRepos: map[string]bool{dir: true}}
		idx, err := index.New(ctx, backend, dir, "acme-labs")
		require.NoError(t, err)

		// when
		matches := idx.FindProjectsByPrefix("gitlab.com:user/repo")

		// then
		assert.Empty(t, matches)
	})
}

func TestProject(t *testing.T) {
	t.Parallel()

	t.Run("should look up a registration by exact key", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		dir := t.TempDir()
		backend := &testdoubles.SpyBackend{ExistingRepos: map[string]bool{dir: true}}
		idx, err := index.New(ctx, backend, dir, "acme-labs")
		require.NoError(t, err)
		registration := domain.ProjectRegistration{
			RepositoryKey:       "github.com:user/repo/.kiro",
			HiddenDirectoryName: ".kiro",
		}
		require.NoError(t, idx.RegisterProject(ctx, registration))

		// when
		found, ok := idx.Project("github.com:user/repo/.kiro")

		// then
		require.True(t, ok)
		assert.Equal(t, ".kiro", found.HiddenDirectoryName)
	})

	t.Run("should report a missing key", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		dir := t.TempDir()
		backend := &testdoubles.SpyBackend{ExistingRepos: map[string]bool{dir: true}}
		idx, err := index.New(ctx, backend, dir, "acme-labs")
		require.NoError(t, err)

		// when
		_, ok := idx.Project("github.com:user/repo/.kiro")

		// then
		assert.False(t, ok)
	})
}
