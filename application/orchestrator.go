package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/dot-scm/dot/config"
	"github.com/dot-scm/dot/domain"
	"github.com/dot-scm/dot/transaction"
)

const (
	hiddenDirMode     = 0o755
	gitignoreFileMode = 0o644

	// hiddenGitignore keeps a hidden repository invisible to the parent:
	// everything inside is ignored except the ignore file itself.
	hiddenGitignore = "*\n!.gitignore\n"
)

// Orchestrator drives multi-repository commands: resolve the hidden
// repositories bound to the parent -> build one operation per repository ->
// run them as a single transaction.
type Orchestrator struct {
	backend domain.Backend
	hosting domain.Hosting
	index   domain.Index
	cfg     *config.Config
	workDir string
	out     io.Writer
}

// NewOrchestrator creates a new orchestrator rooted at workDir.
func NewOrchestrator(
	backend domain.Backend,
	hosting domain.Hosting,
	index domain.Index,
	cfg *config.Config,
	workDir string,
	out io.Writer,
) *Orchestrator {
	return &Orchestrator{
		backend: backend,
		hosting: hosting,
		index:   index,
		cfg:     cfg,
		workDir: workDir,
		out:     out,
	}
}

// Options holds runtime options for a single command.
type Options struct {
	SkipHidden bool // operate on the parent repository only
	Atomic     bool // roll back completed operations when a later one fails
}

// createdHidden records what Init has materialized for one directory, so a
// rollback removes exactly what this invocation created.
type createdHidden struct {
	dir           string
	key           string
	path          string
	remoteName    string
	dirCreated    bool
	remoteCreated bool
}

// Init binds hidden repositories to the parent repository: each directory
// gets a remote repository, a local repository with a self-ignoring
// .gitignore, and a registration in the project index. Nothing is mutated
// until every directory has passed validation.
func (o *Orchestrator) Init(ctx context.Context, dirs []string, opts Options) error {
	if err := o.ensureParentRepository(); err != nil {
		return err
	}

	parentRemote, err := o.backend.RemoteOriginURL(o.workDir)
	if err != nil {
		return fmt.Errorf(
			"the parent repository needs an origin remote before hidden repositories can be bound: %w", err,
		)
	}

	org := o.cfg.DefaultOrganization
	if org != "" && !o.cfg.IsAuthorized(org) {
		return &config.UnauthorizedOrganizationError{Org: org}
	}

	keys := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		key, keyErr := domain.RepositoryKey(parentRemote, dir)
		if keyErr != nil {
			return keyErr
		}
		if _, exists := o.index.Project(key); exists {
			return &domain.ProjectExistsError{Key: key}
		}
		keys = append(keys, key)
	}
	if opts.SkipHidden {
		logger.Infof("Validated %d directories, hidden repository creation skipped", len(dirs))
		return nil
	}

	owner := o.owningUser(ctx)
	if opts.Atomic {
		return o.initAtomic(ctx, dirs, keys, org, owner, parentRemote)
	}
	return o.initSequential(ctx, dirs, keys, org, owner, parentRemote)
}

// initAtomic creates every directory and remote before registering anything,
// so a rollback never has to touch the index.
func (o *Orchestrator) initAtomic(
	ctx context.Context,
	dirs, keys []string,
	org, owner, parentRemote string,
) error {
	created := make([]createdHidden, 0, len(dirs))
	for i, dir := range dirs {
		item, createErr := o.createHidden(ctx, dir, keys[i], org)
		created = append(created, item)
		if createErr != nil {
			logger.Errorf("Hidden repository %q failed, rolling back: %v", dir, createErr)
			o.rollbackCreated(ctx, created, org)
			return createErr
		}
	}

	for i, item := range created {
		if regErr := o.index.RegisterProject(ctx, o.registrationFor(item, owner, parentRemote)); regErr != nil {
			logger.Errorf("Registration of %q failed, rolling back: %v", item.dir, regErr)
			o.rollbackCreated(ctx, created, org)
			if i > 0 {
				logger.Warnf("%d earlier registrations remain in the index", i)
			}
			return regErr
		}
	}
	return nil
}

// initSequential registers each directory as soon as it is created and stops
// at the first failure, leaving completed directories in place.
func (o *Orchestrator) initSequential(
	ctx context.Context,
	dirs, keys []string,
	org, owner, parentRemote string,
) error {
	for i, dir := range dirs {
		item, createErr := o.createHidden(ctx, dir, keys[i], org)
		if createErr != nil {
			return createErr
		}
		if regErr := o.index.RegisterProject(ctx, o.registrationFor(item, owner, parentRemote)); regErr != nil {
			return regErr
		}
	}
	return nil
}

func (o *Orchestrator) createHidden(ctx context.Context, dir, key, org string) (createdHidden, error) {
	item := createdHidden{
		dir:        dir,
		key:        key,
		path:       filepath.Join(o.workDir, dir),
		remoteName: domain.HiddenRemoteName(key),
	}

	if _, err := os.Stat(item.path); errors.Is(err, os.ErrNotExist) {
		if mkErr := os.MkdirAll(item.path, hiddenDirMode); mkErr != nil {
			return item, fmt.Errorf("failed to create directory %q: %w", dir, mkErr)
		}
		item.dirCreated = true
	}

	gitignorePath := filepath.Join(item.path, ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte(hiddenGitignore), gitignoreFileMode); err != nil {
		return item, fmt.Errorf("failed to write %s: %w", gitignorePath, err)
	}

	description := fmt.Sprintf("Hidden repository %s", key)
	remoteURL, createErr := o.hosting.CreateRepository(ctx, org, item.remoteName, description)
	if createErr != nil {
		return item, fmt.Errorf("failed to create the remote repository %q: %w", item.remoteName, createErr)
	}
	item.remoteCreated = true

	if err := o.backend.Init(item.path); err != nil {
		return item, fmt.Errorf("failed to initialize %q: %w", dir, err)
	}
	if err := o.backend.SetRemoteOrigin(item.path, remoteURL); err != nil {
		return item, fmt.Errorf("failed to attach the remote of %q: %w", dir, err)
	}

	logger.Infof("Bound %s to %s", dir, remoteURL)
	return item, nil
}

// rollbackCreated removes, in reverse order, what this invocation created.
// Pre-existing directories are never deleted. Failures are logged and do not
// stop the remaining cleanup.
func (o *Orchestrator) rollbackCreated(ctx context.Context, created []createdHidden, org string) {
	for i := len(created) - 1; i >= 0; i-- {
		item := created[i]
		if item.remoteCreated {
			if err := o.hosting.DeleteRepository(ctx, org, item.remoteName); err != nil {
				logger.Warnf("Failed to delete the remote repository %q during rollback: %v", item.remoteName, err)
			}
		}
		if item.dirCreated {
			if err := os.RemoveAll(item.path); err != nil {
				logger.Warnf("Failed to remove %q during rollback: %v", item.path, err)
			}
		}
	}
}

func (o *Orchestrator) registrationFor(item createdHidden, owner, parentRemote string) domain.ProjectRegistration {
	return domain.ProjectRegistration{
		RepositoryKey:        item.key,
		RemoteRepositoryName: item.remoteName,
		OwningUser:           owner,
		ParentRemoteURL:      parentRemote,
		ParentDiskPath:       o.workDir,
		HiddenDirectoryName:  item.dir,
		CreatedAt:            time.Now().UTC().Format(time.RFC3339),
	}
}

// owningUser resolves the account recorded on new registrations, preferring
// the hosting login over the local git identity.
func (o *Orchestrator) owningUser(ctx context.Context) string {
	login, err := o.hosting.AuthenticatedUser(ctx)
	if err == nil && login != "" {
		return login
	}
	logger.Debugf("Could not resolve the hosting login, falling back to the git identity: %v", err)

	name, _, identityErr := o.backend.UserIdentity(o.workDir)
	if identityErr != nil {
		return ""
	}
	return name
}

// Status prints one section per repository, parent first. Registered
// directories missing on this machine get a section noting the absence, so
// the user sees hidden repositories a plain clone left behind.
func (o *Orchestrator) Status(opts Options) error {
	if err := o.ensureRepository(); err != nil {
		return err
	}

	fmt.Fprintln(o.out, "=== Parent Repository ===")
	if err := o.printStatus(o.workDir); err != nil {
		return err
	}
	if opts.SkipHidden {
		return nil
	}

	for _, registration := range o.registrations() {
		fmt.Fprintf(o.out, "\n=== Hidden Repository: %s ===\n", registration.HiddenDirectoryName)
		path := filepath.Join(o.workDir, registration.HiddenDirectoryName)
		if !o.backend.IsRepository(path) {
			fmt.Fprintln(o.out, "Repository not found locally")
			continue
		}
		if err := o.printStatus(path); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) printStatus(path string) error {
	summary, err := o.backend.Status(path)
	if err != nil {
		return fmt.Errorf("failed to read the status of %s: %w", path, err)
	}
	if summary == "" {
		fmt.Fprintln(o.out, "nothing to commit, working tree clean")
		return nil
	}
	fmt.Fprint(o.out, summary)
	return nil
}

// Add stages files in every bound repository and the parent.
func (o *Orchestrator) Add(ctx context.Context, files []string, opts Options) error {
	if err := o.ensureRepository(); err != nil {
		return err
	}
	operations := o.buildOperations(opts, func(path string) *transaction.Operation {
		return transaction.NewAdd(o.backend, path, files)
	})
	return transaction.New(operations, opts.Atomic).Execute(ctx)
}

// Commit records the staged tree of every bound repository and the parent
// under one message.
func (o *Orchestrator) Commit(ctx context.Context, message string, opts Options) error {
	if err := o.ensureRepository(); err != nil {
		return err
	}
	operations := o.buildOperations(opts, func(path string) *transaction.Operation {
		return transaction.NewCommit(o.backend, path, message)
	})
	return transaction.New(operations, opts.Atomic).Execute(ctx)
}

// Push publishes every bound repository and the parent.
func (o *Orchestrator) Push(ctx context.Context, opts Options) error {
	if err := o.ensureRepository(); err != nil {
		return err
	}
	operations := o.buildOperations(opts, func(path string) *transaction.Operation {
		return transaction.NewPush(o.backend, path)
	})
	return transaction.New(operations, opts.Atomic).Execute(ctx)
}

// Clone clones the parent repository and then every hidden repository the
// index binds to it. One hidden repository failing does not abort the rest.
func (o *Orchestrator) Clone(ctx context.Context, url, target string) error {
	if target == "" {
		derived, err := cloneTarget(url)
		if err != nil {
			return err
		}
		target = derived
	}
	path := target
	if !filepath.IsAbs(path) {
		path = filepath.Join(o.workDir, path)
	}

	logger.Infof("Cloning %s into %s", url, target)
	if err := o.backend.Clone(ctx, url, path); err != nil {
		return fmt.Errorf("failed to clone %s: %w", url, err)
	}

	baseKey, err := domain.BaseRepositoryKey(url)
	if err != nil {
		return err
	}
	bound := o.index.FindProjectsByPrefix(baseKey)
	if len(bound) == 0 {
		logger.Infof("No hidden repositories are bound to %s", baseKey)
		return nil
	}

	for _, registration := range bound {
		hiddenPath := filepath.Join(path, registration.HiddenDirectoryName)
		if _, statErr := os.Stat(hiddenPath); statErr == nil {
			logger.Warnf("Skipping %s, the directory already exists", registration.HiddenDirectoryName)
			continue
		}
		owner := o.cfg.DefaultOrganization
		if owner == "" {
			owner = registration.OwningUser
		}
		hiddenURL := fmt.Sprintf("git@github.com:%s/%s.git", owner, registration.RemoteRepositoryName)
		if cloneErr := o.backend.Clone(ctx, hiddenURL, hiddenPath); cloneErr != nil {
			logger.Errorf("Failed to clone the hidden repository %s: %v", registration.HiddenDirectoryName, cloneErr)
			continue
		}
		logger.Infof("Cloned hidden repository %s", registration.HiddenDirectoryName)
	}
	return nil
}

// buildOperations assembles one operation per repository, hidden repositories
// first so the parent never records state its hidden repositories lack.
func (o *Orchestrator) buildOperations(
	opts Options,
	build func(path string) *transaction.Operation,
) []*transaction.Operation {
	var operations []*transaction.Operation
	if !opts.SkipHidden {
		for _, registration := range o.boundHidden() {
			operations = append(operations, build(filepath.Join(o.workDir, registration.HiddenDirectoryName)))
		}
	}
	return append(operations, build(o.workDir))
}

// registrations resolves every index registration bound to the parent's base
// key, whether or not its directory exists on this machine.
func (o *Orchestrator) registrations() []domain.ProjectRegistration {
	remoteURL, err := o.backend.RemoteOriginURL(o.workDir)
	if err != nil {
		logger.Debugf("The parent has no origin remote, skipping hidden repositories: %v", err)
		return nil
	}
	baseKey, err := domain.BaseRepositoryKey(remoteURL)
	if err != nil {
		logger.Warnf("Could not derive the repository key from %s: %v", remoteURL, err)
		return nil
	}
	return o.index.FindProjectsByPrefix(baseKey)
}

// boundHidden narrows the registrations to directories that actually hold a
// repository on this machine, the set mutating operations run against.
func (o *Orchestrator) boundHidden() []domain.ProjectRegistration {
	bound := make([]domain.ProjectRegistration, 0)
	for _, registration := range o.registrations() {
		if o.backend.IsRepository(filepath.Join(o.workDir, registration.HiddenDirectoryName)) {
			bound = append(bound, registration)
		}
	}
	return bound
}

func (o *Orchestrator) ensureRepository() error {
	if !o.backend.IsRepository(o.workDir) {
		return fmt.Errorf("%w: %s (run \"dot init\" first)", domain.ErrNotRepository, o.workDir)
	}
	return nil
}

func (o *Orchestrator) ensureParentRepository() error {
	if o.backend.IsRepository(o.workDir) {
		return nil
	}
	logger.Infof("Initializing a git repository in %s", o.workDir)
	if err := o.backend.Init(o.workDir); err != nil {
		return fmt.Errorf("failed to initialize the parent repository: %w", err)
	}
	return nil
}

// cloneTarget derives the default clone directory from the last path segment
// of the URL, with a trailing ".git" stripped.
func cloneTarget(url string) (string, error) {
	trimmed := strings.TrimSuffix(url, ".git")
	trimmed = strings.TrimRight(trimmed, "/")
	if cut := strings.LastIndexAny(trimmed, "/:"); cut >= 0 {
		trimmed = trimmed[cut+1:]
	}
	if trimmed == "" {
		return "", fmt.Errorf("%w: cannot derive a directory name from %q", domain.ErrInvalidRemoteURL, url)
	}
	return trimmed, nil
}
