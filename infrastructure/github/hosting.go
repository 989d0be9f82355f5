// Package github implements the hosting collaborator on the GitHub API,
// managing the remote repositories that back hidden directories.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gh "github.com/google/go-github/v66/github"
	logger "github.com/sirupsen/logrus"

	"github.com/dot-scm/dot/domain"
)

// Hosting implements domain.Hosting for GitHub.
type Hosting struct {
	client *gh.Client
}

// New creates a GitHub hosting client authenticated with token.
func New(token string) domain.Hosting {
	return NewWithClient(gh.NewClient(nil).WithAuthToken(token))
}

// NewWithClient wraps an already configured go-github client. Tests use this
// to point the hosting at a local API server.
func NewWithClient(client *gh.Client) domain.Hosting {
	return &Hosting{client: client}
}

// CreateRepository creates a private repository under org, or under the
// authenticated user when org is empty, and returns its SSH clone URL.
// Creation is idempotent: a repository that already exists is success.
func (h *Hosting) CreateRepository(ctx context.Context, org, name, description string) (string, error) {
	repo := &gh.Repository{
		Name:        gh.String(name),
		Description: gh.String(description),
		Private:     gh.Bool(true),
	}

	created, resp, err := h.client.Repositories.Create(ctx, org, repo)
	if err == nil {
		if url := created.GetSSHURL(); url != "" {
			return url, nil
		}
		return h.sshURL(ctx, org, name)
	}

	if isAlreadyExists(resp, err) {
		logger.Debugf("Repository %s already exists, reusing it", name)
		return h.sshURL(ctx, org, name)
	}
	return "", fmt.Errorf("failed to create the repository %q: %w", name, err)
}

// DeleteRepository removes a repository. It runs only while undoing a
// partially completed init; a repository that is already gone is success.
func (h *Hosting) DeleteRepository(ctx context.Context, org, name string) error {
	owner := org
	if owner == "" {
		login, err := h.AuthenticatedUser(ctx)
		if err != nil {
			return err
		}
		owner = login
	}

	resp, err := h.client.Repositories.Delete(ctx, owner, name)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete the repository %q: %w", name, err)
	}
	return nil
}

// AuthenticatedUser returns the login behind the configured token.
func (h *Hosting) AuthenticatedUser(ctx context.Context) (string, error) {
	user, _, err := h.client.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("failed to resolve the authenticated user: %w", err)
	}
	return user.GetLogin(), nil
}

// sshURL builds the clone URL of an existing repository without a second API
// round trip, resolving the owner when the organization is the user account.
func (h *Hosting) sshURL(ctx context.Context, org, name string) (string, error) {
	owner := org
	if owner == "" {
		login, err := h.AuthenticatedUser(ctx)
		if err != nil {
			return "", err
		}
		owner = login
	}
	return fmt.Sprintf("git@github.com:%s/%s.git", owner, name), nil
}

// isAlreadyExists recognizes the 422 the API returns when the repository name
// is taken on the target account.
func isAlreadyExists(resp *gh.Response, err error) bool {
	if resp == nil || resp.StatusCode != http.StatusUnprocessableEntity {
		return false
	}
	var apiErr *gh.ErrorResponse
	if errors.As(err, &apiErr) {
		for _, detail := range apiErr.Errors {
			if strings.Contains(detail.Message, "already exists") {
				return true
			}
		}
	}
	return strings.Contains(err.Error(), "already exists")
}
