package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRemoteURL reports a remote URL that cannot produce a repository key.
	ErrInvalidRemoteURL = errors.New("invalid remote URL")

	// ErrNotRepository reports a path that is not the root of a git repository.
	ErrNotRepository = errors.New("not a git repository")
)

// ProjectExistsError reports an attempt to register a repository key that is
// already present in the index.
type ProjectExistsError struct {
	Key string
}

func (e *ProjectExistsError) Error() string {
	return fmt.Sprintf("project %q is already registered in the index", e.Key)
}
