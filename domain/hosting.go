package domain

import "context"

// Hosting abstracts the remote hosting service used to create and delete the
// repositories backing hidden directories.
type Hosting interface {
	// CreateRepository creates a private repository and returns its SSH clone
	// URL. Creating a repository that already exists is success. An empty org
	// targets the authenticated user instead of an organization.
	CreateRepository(ctx context.Context, org, name, description string) (string, error)

	// DeleteRepository removes a repository. It is called only while undoing a
	// partially completed init; a repository that does not exist is success.
	DeleteRepository(ctx context.Context, org, name string) error

	// AuthenticatedUser returns the login associated with the configured token.
	AuthenticatedUser(ctx context.Context) (string, error)
}
