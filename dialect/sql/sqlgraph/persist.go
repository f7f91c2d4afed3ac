package sqlgraph

import (
	"context"
	"errors"
	"strings"

	"github.com/relkit/relkit"
	"github.com/relkit/relkit/dialect"
	"github.com/relkit/relkit/dialect/sql"
	"github.com/relkit/relkit/model"
)

// Insert writes the Set columns of a as a new row. Generated primary-key
// values are read back with RETURNING (OUTPUT on SQL Server), or from
// the last insert id on MySQL, and stored in a. On success every value
// of a becomes Unchanged.
func Insert(ctx context.Context, conn dialect.Conn, a *model.ActiveModel) error {
	e := a.Entity()
	ins := sql.Dialect(conn.Dialect()).Insert(e.Table).Schema(e.Schema)
	if cols := a.SetColumns(); len(cols) > 0 {
		values := make([]any, len(cols))
		for i, c := range cols {
			values[i], _ = a.Get(c).Value()
		}
		ins.Columns(cols...).Values(values...)
	} else {
		ins.Default()
	}
	returned := make(map[string]any)
	if dialect.Get(conn.Dialect()).Name() == dialect.MySQL {
		query, args := ins.Query()
		res, err := Exec(ctx, conn, query, args)
		if err != nil {
			return relkit.NewMutationError(e.Name, "insert", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return relkit.NewMutationError(e.Name, "insert", &relkit.RecordNotInsertedError{Entity: e.Name})
		}
		if _, ok := a.PrimaryKey(); !ok && len(e.PrimaryKey) == 1 {
			id, err := res.LastInsertId()
			if err != nil {
				return relkit.NewMutationError(e.Name, "insert", relkit.NewConnectionError("last insert id", err))
			}
			returned[e.PrimaryKey[0]] = id
		}
		return a.Persisted(returned)
	}
	query, args := ins.Returning(e.PrimaryKey...).Query()
	r, err := QueryOne(ctx, conn, query, args)
	if err != nil {
		return relkit.NewMutationError(e.Name, "insert", err)
	}
	if r == nil {
		return relkit.NewMutationError(e.Name, "insert", &relkit.RecordNotInsertedError{Entity: e.Name})
	}
	for _, c := range e.PrimaryKey {
		returned[c] = r[c]
	}
	return a.Persisted(returned)
}

// Update writes the Set non-key columns of a to the row identified by its
// primary key. It does nothing when no such column is Set, and fails
// with ErrRecordNotUpdated when no row matched the key.
func Update(ctx context.Context, conn dialect.Conn, a *model.ActiveModel) error {
	e := a.Entity()
	pk, ok := a.PrimaryKey()
	if !ok {
		return relkit.NewMutationError(e.Name, "update",
			relkit.NewValidationError(strings.Join(e.PrimaryKey, ","), errors.New("primary key not set")))
	}
	upd := sql.Dialect(conn.Dialect()).Update(e.Table).Schema(e.Schema)
	for _, c := range a.SetColumns() {
		if e.IsPrimaryKey(c) {
			continue
		}
		v, _ := a.Get(c).Value()
		upd.Set(c, v)
	}
	if upd.Empty() {
		return nil
	}
	preds := make([]sql.Predicate, len(pk))
	for i, c := range e.PrimaryKey {
		preds[i] = sql.EQ(c, pk[i])
	}
	query, args := upd.Where(sql.And(preds...)).Query()
	res, err := Exec(ctx, conn, query, args)
	if err != nil {
		return relkit.NewMutationError(e.Name, "update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return relkit.NewMutationError(e.Name, "update", relkit.NewConnectionError("rows affected", err))
	}
	if n == 0 {
		return relkit.NewMutationError(e.Name, "update", &relkit.RecordNotUpdatedError{Entity: e.Name})
	}
	return a.Persisted(nil)
}
