package domain

import "context"

// Index is the project registry: it maps repository keys to the hidden
// repositories bound to a parent, and replicates itself through a dedicated
// git repository shared by the organization.
type Index interface {
	// RegisterProject inserts a registration. A key that is already present
	// fails with ProjectExistsError and leaves the index unchanged.
	RegisterProject(ctx context.Context, reg ProjectRegistration) error

	// FindProjectsByPrefix returns every registration whose key starts with
	// base, sorted by key. An unmatched prefix yields an empty slice.
	FindProjectsByPrefix(base string) []ProjectRegistration

	// Project returns the registration stored under an exact key.
	Project(key string) (ProjectRegistration, bool)
}
