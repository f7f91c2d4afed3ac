package sqlgraph

import (
	"context"
	"fmt"

	"github.com/relkit/relkit"
	"github.com/relkit/relkit/dialect"
)

// WithTx runs fn within a transaction started on conn.
// If fn returns an error, the transaction is rolled back.
// If fn panics, the transaction is rolled back and the panic is re-raised.
// Otherwise, the transaction is committed.
//
// conn must be a driver. Nested transactions are not supported, and
// passing a transaction returns relkit.ErrTxStarted.
func WithTx(ctx context.Context, conn dialect.Conn, fn func(tx dialect.Tx) error) error {
	if _, ok := conn.(dialect.Tx); ok {
		return relkit.ErrTxStarted
	}
	drv, ok := conn.(dialect.Driver)
	if !ok {
		return fmt.Errorf("sqlgraph: %T cannot start a transaction", conn)
	}
	tx, err := drv.Tx(ctx)
	if err != nil {
		return relkit.NewConnectionError("begin", err)
	}
	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			err = fmt.Errorf("%w: %w", err, &relkit.RollbackError{Err: rerr})
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return relkit.NewConnectionError("commit", err)
	}
	return nil
}
