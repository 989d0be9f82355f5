package transaction

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"
)

// AtomicError reports an atomic transaction that stopped at a failed
// operation and rolled back the operations completed before it.
type AtomicError struct {
	Description string // label of the failed operation
	Cause       error
	Reverted    int // completed operations successfully rolled back
}

func (e *AtomicError) Error() string {
	return fmt.Sprintf(
		"atomic transaction failed at %s (%d completed operations reverted): %v",
		e.Description, e.Reverted, e.Cause,
	)
}

func (e *AtomicError) Unwrap() error { return e.Cause }

// Transaction is an ordered operation list executed under a single policy.
// Atomic mode stops at the first failure and rolls back every completed
// operation in reverse order; best-effort mode logs failures and keeps going.
// A transaction is built fresh per command invocation and discarded after
// Execute returns.
type Transaction struct {
	operations []*Operation
	atomic     bool
}

// New returns a transaction over operations with the given policy.
func New(operations []*Operation, atomic bool) *Transaction {
	return &Transaction{operations: operations, atomic: atomic}
}

// Execute runs the operations strictly in order. An empty transaction
// succeeds without doing anything.
func (t *Transaction) Execute(ctx context.Context) error {
	if len(t.operations) == 0 {
		return nil
	}
	if t.atomic {
		return t.executeAtomic(ctx)
	}
	t.executeBestEffort(ctx)
	return nil
}

func (t *Transaction) executeAtomic(ctx context.Context) error {
	for i, op := range t.operations {
		err := op.Execute(ctx)
		if err == nil {
			continue
		}

		logger.Errorf("Operation %s failed, rolling back %d completed operations", op.Describe(), i)

		// The failed operation itself is never rolled back; it is expected
		// to have applied nothing.
		reverted := 0
		for j := i - 1; j >= 0; j-- {
			if rollbackErr := t.operations[j].Rollback(); rollbackErr != nil {
				logger.Errorf("Rollback of %s failed: %v", t.operations[j].Describe(), rollbackErr)
				continue
			}
			reverted++
		}

		return &AtomicError{Description: op.Describe(), Cause: err, Reverted: reverted}
	}
	return nil
}

func (t *Transaction) executeBestEffort(ctx context.Context) {
	failed := 0
	for _, op := range t.operations {
		if err := op.Execute(ctx); err != nil {
			logger.Warnf("Operation %s failed: %v", op.Describe(), err)
			failed++
		}
	}
	if failed > 0 {
		logger.Warnf("%d of %d operations failed", failed, len(t.operations))
	}
}
