package setup_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dot-scm/dot/config"
	"github.com/dot-scm/dot/setup"
	testdoubles "github.com/dot-scm/dot/test"
)

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("should write the configuration and bootstrap the index", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		dir := t.TempDir()
		cfg, err := config.LoadFrom(dir)
		require.NoError(t, err)
		backend := &testdoubles.SpyBackend{IdentityName: "someone", IdentityEmail: "someone@acme.dev"}
		var out bytes.Buffer
		wizard := setup.New(backend, cfg, strings.NewReader("acme\n${GITHUB_TOKEN}\n"), &out)

		// when
		err = wizard.Run(ctx)

		// then
		require.NoError(t, err)
		saved, loadErr := config.LoadFrom(dir)
		require.NoError(t, loadErr)
		assert.Equal(t, "acme", saved.DefaultOrganization)
		assert.Equal(t, []string{"acme"}, saved.AuthorizedOrganizations)
		assert.True(t, saved.IsAuthorized("acme"))
		require.NotEmpty(t, backend.CloneCalls, "the index must be bootstrapped")
		assert.Equal(t, "git@github.com:acme/.index.git", backend.CloneCalls[0].URL)
		assert.Contains(t, out.String(), "Setup complete")
	})

	t.Run("should default the organization to the git identity", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		cfg, err := config.LoadFrom(t.TempDir())
		require.NoError(t, err)
		backend := &testdoubles.SpyBackend{IdentityName: "someone", IdentityEmail: "someone@acme.dev"}
		wizard := setup.New(backend, cfg, strings.NewReader("\n\n"), &bytes.Buffer{})

		// when
		err = wizard.Run(ctx)

		// then
		require.NoError(t, err)
		assert.Equal(t, "someone", cfg.DefaultOrganization)
	})

	t.Run("should keep an existing configuration unless overwriting is confirmed", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		dir := t.TempDir()
		cfg, err := config.LoadFrom(dir)
		require.NoError(t, err)
		cfg.DefaultOrganization = "acme"
		cfg.AuthorizedOrganizations = []string{"acme"}
		require.NoError(t, cfg.Save())
		backend := &testdoubles.SpyBackend{}
		wizard := setup.New(backend, cfg, strings.NewReader("n\n"), &bytes.Buffer{})

		// when
		err = wizard.Run(ctx)

		// then
		require.NoError(t, err)
		saved, loadErr := config.LoadFrom(dir)
		require.NoError(t, loadErr)
		assert.Equal(t, "acme", saved.DefaultOrganization)
		assert.Empty(t, backend.CloneCalls, "nothing must be bootstrapped when setup is declined")
	})

	t.Run("should fail when no organization can be determined", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		cfg, err := config.LoadFrom(t.TempDir())
		require.NoError(t, err)
		backend := &testdoubles.SpyBackend{}
		wizard := setup.New(backend, cfg, strings.NewReader("\n\n"), &bytes.Buffer{})

		// when
		err = wizard.Run(ctx)

		// then
		require.Error(t, err)
	})
}
