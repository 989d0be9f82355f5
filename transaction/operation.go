package transaction

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/dot-scm/dot/domain"
)

// Kind identifies one of the closed set of repository operations.
type Kind int

const (
	// KindAdd stages files in one repository.
	KindAdd Kind = iota
	// KindCommit writes the staged tree of one repository as a commit.
	KindCommit
	// KindPush publishes the current branch of one repository.
	KindPush
)

func (k Kind) String() string {
	switch k {
	case KindAdd:
		return "add"
	case KindCommit:
		return "commit"
	case KindPush:
		return "push"
	default:
		return "unknown"
	}
}

// ErrCannotRollbackPush reports a rollback request for a push that already
// reached the remote. A shared remote is never rewritten automatically.
var ErrCannotRollbackPush = errors.New("cannot auto-rollback a push")

// Operation is one undoable step of a transaction against a single
// repository. Execute records just enough applied state for Rollback to
// compensate; that state is guarded by a per-operation lock so execute and
// rollback may be driven from different goroutines.
type Operation struct {
	kind     Kind
	repoPath string
	files    []string // add only
	message  string   // commit only
	backend  domain.Backend

	mu          sync.Mutex
	stagedFiles []string
	commitID    string
	pushed      bool
}

// NewAdd returns an operation staging files in the repository at path. A
// literal "." entry stages the whole worktree.
func NewAdd(backend domain.Backend, path string, files []string) *Operation {
	return &Operation{kind: KindAdd, repoPath: path, files: files, backend: backend}
}

// NewCommit returns an operation committing the staged tree at path.
func NewCommit(backend domain.Backend, path, message string) *Operation {
	return &Operation{kind: KindCommit, repoPath: path, message: message, backend: backend}
}

// NewPush returns an operation pushing the current branch at path.
func NewPush(backend domain.Backend, path string) *Operation {
	return &Operation{kind: KindPush, repoPath: path, backend: backend}
}

// Describe returns a short label naming the operation and its target,
// used in failure reports and logs.
func (o *Operation) Describe() string {
	return fmt.Sprintf("%s on %s", o.kind, o.repoPath)
}

// Execute applies the operation and records its applied state.
func (o *Operation) Execute(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.kind {
	case KindAdd:
		return o.executeAdd()
	case KindCommit:
		return o.executeCommit()
	case KindPush:
		return o.executePush(ctx)
	default:
		return fmt.Errorf("unknown operation kind %d", int(o.kind))
	}
}

// Rollback compensates for a previous Execute. An operation that never
// applied anything rolls back as a no-op.
func (o *Operation) Rollback() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.kind {
	case KindAdd:
		return o.rollbackAdd()
	case KindCommit:
		return o.rollbackCommit()
	case KindPush:
		return o.rollbackPush()
	default:
		return fmt.Errorf("unknown operation kind %d", int(o.kind))
	}
}

func (o *Operation) executeAdd() error {
	if slices.Contains(o.files, ".") {
		if err := o.backend.StageAll(o.repoPath); err != nil {
			return fmt.Errorf("failed to stage all changes in %s: %w", o.repoPath, err)
		}
		o.stagedFiles = []string{"."}
		return nil
	}

	// Nonexistent files are skipped, not errors: the same file list is
	// applied to every repository in the transaction.
	existing := make([]string, 0, len(o.files))
	for _, file := range o.files {
		if _, err := os.Stat(filepath.Join(o.repoPath, file)); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return nil
	}

	if err := o.backend.StageFiles(o.repoPath, existing); err != nil {
		return fmt.Errorf("failed to stage files in %s: %w", o.repoPath, err)
	}
	o.stagedFiles = existing
	return nil
}

func (o *Operation) executeCommit() error {
	id, err := o.backend.Commit(o.repoPath, o.message)
	if err != nil {
		return fmt.Errorf("failed to commit in %s: %w", o.repoPath, err)
	}
	o.commitID = id
	return nil
}

func (o *Operation) executePush(ctx context.Context) error {
	if err := o.backend.Push(ctx, o.repoPath); err != nil {
		return fmt.Errorf("failed to push %s: %w", o.repoPath, err)
	}
	o.pushed = true
	return nil
}

func (o *Operation) rollbackAdd() error {
	if len(o.stagedFiles) == 0 {
		return nil
	}
	if err := o.backend.UnstageAll(o.repoPath); err != nil {
		return fmt.Errorf("failed to unstage changes in %s: %w", o.repoPath, err)
	}
	o.stagedFiles = nil
	return nil
}

func (o *Operation) rollbackCommit() error {
	if o.commitID == "" {
		return nil
	}
	if err := o.backend.ResetToParent(o.repoPath, o.commitID); err != nil {
		return fmt.Errorf("failed to reset %s: %w", o.repoPath, err)
	}
	o.commitID = ""
	return nil
}

func (o *Operation) rollbackPush() error {
	if !o.pushed {
		return nil
	}
	return fmt.Errorf("%w: %s already reached its remote", ErrCannotRollbackPush, o.repoPath)
}
