package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/dot-scm/dot/domain"
)

const (
	remoteRepoName   = ".index"
	documentName     = "index.json"
	commitMessage    = "Update index"
	documentFileMode = 0o644
)

// ErrNoDefaultOrganization reports that the index cannot be located because
// no default organization has been configured yet.
var ErrNoDefaultOrganization = errors.New(`no default organization configured (run "dot setup" first)`)

// Store is the project index: a registry of hidden repositories serialized as
// a JSON document inside its own git repository, so every machine sharing the
// hosting account converges on the same registrations.
type Store struct {
	backend   domain.Backend
	dir       string
	remoteURL string
	data      *domain.IndexData
}

// New opens the local index clone rooted at dir, refreshing it from the
// organization's index repository when possible and bootstrapping a fresh one
// when neither a local clone nor a remote copy exists.
func New(ctx context.Context, backend domain.Backend, dir, organization string) (domain.Index, error) {
	if organization == "" {
		return nil, ErrNoDefaultOrganization
	}

	store := &Store{
		backend:   backend,
		dir:       dir,
		remoteURL: fmt.Sprintf("git@github.com:%s/%s.git", organization, remoteRepoName),
	}
	if err := store.ensureClone(ctx); err != nil {
		return nil, err
	}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

// RegisterProject inserts a registration under its repository key and
// replicates the updated document. Keys are insert-once; a duplicate is
// rejected before anything is written.
func (s *Store) RegisterProject(ctx context.Context, registration domain.ProjectRegistration) error {
	if _, exists := s.data.Projects[registration.RepositoryKey]; exists {
		return &domain.ProjectExistsError{Key: registration.RepositoryKey}
	}

	s.data.Projects[registration.RepositoryKey] = registration
	if err := s.write(); err != nil {
		delete(s.data.Projects, registration.RepositoryKey)
		return err
	}
	if err := s.commitAndPush(ctx); err != nil {
		// Keep memory in line with the last committed document, so a retry
		// in the same process is not rejected as a duplicate.
		delete(s.data.Projects, registration.RepositoryKey)
		return err
	}
	return nil
}

// FindProjectsByPrefix returns every registration whose repository key starts
// with base, sorted by key so callers see a deterministic order.
func (s *Store) FindProjectsByPrefix(base string) []domain.ProjectRegistration {
	var matches []domain.ProjectRegistration
	for key, registration := range s.data.Projects {
		if strings.HasPrefix(key, base) {
			matches = append(matches, registration)
		}
	}
	slices.SortFunc(matches, func(a, b domain.ProjectRegistration) int {
		return strings.Compare(a.RepositoryKey, b.RepositoryKey)
	})
	return matches
}

// Project looks up a registration by its full repository key.
func (s *Store) Project(key string) (domain.ProjectRegistration, bool) {
	registration, found := s.data.Projects[key]
	return registration, found
}

// ensureClone makes sure the index directory holds a usable repository. An
// existing clone is refreshed best-effort, so the last known state survives
// network failures.
func (s *Store) ensureClone(ctx context.Context) error {
	if s.backend.IsRepository(s.dir) {
		if err := s.backend.Pull(ctx, s.dir); err != nil {
			logger.Warnf("Failed to refresh the index from %s, using the local copy: %v", s.remoteURL, err)
		}
		return nil
	}

	cloneErr := s.backend.Clone(ctx, s.remoteURL, s.dir)
	if cloneErr == nil {
		return nil
	}
	logger.Infof("Could not clone the index from %s, starting a fresh one: %v", s.remoteURL, cloneErr)

	if err := s.backend.Init(s.dir); err != nil {
		return fmt.Errorf("failed to initialize the index repository: %w", err)
	}
	if err := s.backend.SetRemoteOrigin(s.dir, s.remoteURL); err != nil {
		return fmt.Errorf("failed to attach the index remote: %w", err)
	}

	s.data = domain.NewIndexData()
	return s.write()
}

// load reads the registry document from the clone. A missing document means a
// fresh index.
func (s *Store) load() error {
	raw, err := os.ReadFile(filepath.Join(s.dir, documentName))
	if errors.Is(err, os.ErrNotExist) {
		s.data = domain.NewIndexData()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read the index document: %w", err)
	}

	data := domain.NewIndexData()
	if unmarshalErr := json.Unmarshal(raw, data); unmarshalErr != nil {
		return fmt.Errorf("failed to parse the index document: %w", unmarshalErr)
	}
	// A document serialized as {"projects": null} unmarshals to a nil map.
	if data.Projects == nil {
		data.Projects = make(map[string]domain.ProjectRegistration)
	}
	s.data = data
	return nil
}

func (s *Store) write() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize the index document: %w", err)
	}
	raw = append(raw, '\n')

	if writeErr := os.WriteFile(filepath.Join(s.dir, documentName), raw, documentFileMode); writeErr != nil {
		return fmt.Errorf("failed to write the index document: %w", writeErr)
	}
	return nil
}

// commitAndPush records the document change locally and replicates it. The
// index repository may use either main or master upstream, so both are tried.
// A push failure leaves the local commit standing; a later successful push
// converges the remote.
func (s *Store) commitAndPush(ctx context.Context) error {
	if err := s.backend.StageFiles(s.dir, []string{documentName}); err != nil {
		return fmt.Errorf("failed to stage the index document: %w", err)
	}
	if _, err := s.backend.Commit(s.dir, commitMessage); err != nil {
		return fmt.Errorf("failed to commit the index update: %w", err)
	}

	var pushErr error
	for _, branch := range []string{"main", "master"} {
		if pushErr = s.backend.PushBranch(ctx, s.dir, branch); pushErr == nil {
			return nil
		}
	}
	logger.Warnf("Failed to push the index update, keeping the local commit: %v", pushErr)
	return nil
}
