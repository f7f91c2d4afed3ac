package sqlgraph

import (
	"context"

	"github.com/relkit/relkit"
	"github.com/relkit/relkit/dialect"
	"github.com/relkit/relkit/dialect/sql"
)

// Row is one result row keyed by output column name.
type Row map[string]any

// QueryAll executes the query and reads every row. Driver failures are
// returned as *relkit.ConnectionError.
func QueryAll(ctx context.Context, conn dialect.ExecQuerier, query string, args []any) ([]Row, error) {
	rows, err := queryRows(ctx, conn, query, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, relkit.NewConnectionError("query", wrapConstraint(err))
	}
	return out, nil
}

// QueryOne executes the query and reads the first row. It returns a nil
// Row if the query returned none.
func QueryOne(ctx context.Context, conn dialect.ExecQuerier, query string, args []any) (Row, error) {
	rows, err := queryRows(ctx, conn, query, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, relkit.NewConnectionError("query", wrapConstraint(err))
		}
		return nil, nil
	}
	return scanRow(rows)
}

// Exec executes a statement that returns no rows. Constraint violations
// are classified as *relkit.ConstraintError inside the returned
// *relkit.ConnectionError.
func Exec(ctx context.Context, conn dialect.ExecQuerier, query string, args []any) (sql.Result, error) {
	var res sql.Result
	if err := conn.Exec(ctx, query, args, &res); err != nil {
		return nil, relkit.NewConnectionError("exec", wrapConstraint(err))
	}
	return res, nil
}

func queryRows(ctx context.Context, conn dialect.ExecQuerier, query string, args []any) (*sql.Rows, error) {
	if args == nil {
		args = []any{}
	}
	rows := &sql.Rows{}
	if err := conn.Query(ctx, query, args, rows); err != nil {
		return nil, relkit.NewConnectionError("query", wrapConstraint(err))
	}
	return rows, nil
}

func scanRow(rows *sql.Rows) (Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, relkit.NewConnectionError("columns", err)
	}
	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, relkit.NewConnectionError("scan", err)
	}
	r := make(Row, len(columns))
	for i, c := range columns {
		r[c] = values[i]
	}
	return r, nil
}
