package txn

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/exograph/exo-core/dialect"
)

// Committer is the interface that wraps the Commit method.
type Committer interface {
	Commit(ctx context.Context, tx *Tx) error
}

// CommitFunc is an adapter to allow the use of an ordinary function as a Committer.
type CommitFunc func(ctx context.Context, tx *Tx) error

// Commit calls f(ctx, tx).
func (f CommitFunc) Commit(ctx context.Context, tx *Tx) error { return f(ctx, tx) }

// CommitHook defines the "commit middleware": a function that gets a
// Committer and returns a Committer. For example:
//
//	hook := func(next txn.Committer) txn.Committer {
//	    return txn.CommitFunc(func(ctx context.Context, tx *txn.Tx) error {
//	        // do something before
//	        if err := next.Commit(ctx, tx); err != nil {
//	            return err
//	        }
//	        // do something after
//	        return nil
//	    })
//	}
type CommitHook func(Committer) Committer

// Rollbacker is the interface that wraps the Rollback method.
type Rollbacker interface {
	Rollback(ctx context.Context, tx *Tx) error
}

// RollbackFunc is an adapter to allow the use of an ordinary function as a Rollbacker.
type RollbackFunc func(ctx context.Context, tx *Tx) error

// Rollback calls f(ctx, tx).
func (f RollbackFunc) Rollback(ctx context.Context, tx *Tx) error { return f(ctx, tx) }

// RollbackHook defines the "rollback middleware", mirroring CommitHook.
type RollbackHook func(Rollbacker) Rollbacker

// Tx wraps a dialect.Tx with the commit/rollback middleware chain the
// teacher generates per entity client (compiler/gen/sql/tx.go); here it's a
// single hand-written, entity-agnostic wrapper since this module has no
// generated per-entity clients to attach it to.
type Tx struct {
	driver dialect.Tx
	ctx    context.Context

	mu         sync.Mutex
	onCommit   []CommitHook
	onRollback []RollbackHook
}

// NewTx wraps an already-open dialect.Tx.
func NewTx(ctx context.Context, driver dialect.Tx) *Tx {
	return &Tx{driver: driver, ctx: ctx}
}

// Driver returns the underlying dialect.Tx, for building a Client against it.
func (tx *Tx) Driver() dialect.Tx { return tx.driver }

// Context returns the transaction's context.
func (tx *Tx) Context() context.Context { return tx.ctx }

// Commit commits the transaction, running registered hooks innermost-first
// (last-registered wraps closest to the real commit).
func (tx *Tx) Commit() error {
	var fn Committer = CommitFunc(func(ctx context.Context, _ *Tx) error {
		return tx.driver.Commit()
	})
	tx.mu.Lock()
	hooks := append([]CommitHook(nil), tx.onCommit...)
	tx.mu.Unlock()
	for i := len(hooks) - 1; i >= 0; i-- {
		fn = hooks[i](fn)
	}
	return fn.Commit(tx.ctx, tx)
}

// Rollback rolls back the transaction, running registered hooks innermost-first.
func (tx *Tx) Rollback() error {
	var fn Rollbacker = RollbackFunc(func(ctx context.Context, _ *Tx) error {
		return tx.driver.Rollback()
	})
	tx.mu.Lock()
	hooks := append([]RollbackHook(nil), tx.onRollback...)
	tx.mu.Unlock()
	for i := len(hooks) - 1; i >= 0; i-- {
		fn = hooks[i](fn)
	}
	return fn.Rollback(tx.ctx, tx)
}

// OnCommit adds a hook to call on commit.
func (tx *Tx) OnCommit(f CommitHook) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.onCommit = append(tx.onCommit, f)
}

// OnRollback adds a hook to call on rollback.
func (tx *Tx) OnRollback(f RollbackHook) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.onRollback = append(tx.onRollback, f)
}

// WithTx runs fn within a transaction started on driver. If fn returns an
// error the transaction is rolled back (errors are joined); if fn panics the
// transaction is rolled back and the panic re-raised; otherwise the
// transaction is committed.
func WithTx(ctx context.Context, driver dialect.Driver, fn func(tx *Tx) error) (err error) {
	dtx, err := driver.Tx(ctx)
	if err != nil {
		return fmt.Errorf("txn: begin: %w", err)
	}
	tx := NewTx(ctx, dtx)

	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()

	if ferr := fn(tx); ferr != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return errors.Join(ferr, fmt.Errorf("txn: rolling back: %w", rerr))
		}
		return ferr
	}
	if cerr := tx.Commit(); cerr != nil {
		return fmt.Errorf("txn: committing: %w", cerr)
	}
	return nil
}
