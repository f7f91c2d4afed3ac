package sqlgraph

import (
	"context"
	"iter"

	"github.com/relkit/relkit"
	"github.com/relkit/relkit/dialect"
	"github.com/relkit/relkit/dialect/sql"
)

// Stream reads the rows of a Select one at a time. It must be closed.
//
//	st, err := sel.Stream(ctx, drv)
//	if err != nil {
//		return err
//	}
//	defer st.Close()
//	for st.Next() {
//		t := st.Tuple()
//	}
//	return st.Err()
type Stream struct {
	sel  *Select
	rows *sql.Rows
	cur  Tuple
	err  error
}

// Stream executes the plan and returns a row stream.
func (s *Select) Stream(ctx context.Context, conn dialect.Conn) (*Stream, error) {
	query, args := s.Query(conn.Dialect())
	rows, err := queryRows(ctx, conn, query, args)
	if err != nil {
		return nil, err
	}
	return &Stream{sel: s, rows: rows}, nil
}

// Next advances to the next row. It returns false at the end of the
// result or on the first error.
func (st *Stream) Next() bool {
	if st.err != nil || !st.rows.Next() {
		return false
	}
	r, err := scanRow(st.rows)
	if err == nil {
		st.cur, err = st.sel.FromRow(r)
	}
	if err != nil {
		st.err, st.cur = err, nil
		return false
	}
	return true
}

// Tuple returns the current row.
func (st *Stream) Tuple() Tuple { return st.cur }

// Err returns the first error met while reading.
func (st *Stream) Err() error {
	if st.err != nil {
		return st.err
	}
	if err := st.rows.Err(); err != nil {
		return relkit.NewConnectionError("query", err)
	}
	return nil
}

// Close releases the underlying rows.
func (st *Stream) Close() error { return st.rows.Close() }

// All returns an iterator over the remaining rows. The stream is closed
// when the iteration ends.
func (st *Stream) All() iter.Seq2[Tuple, error] {
	return func(yield func(Tuple, error) bool) {
		defer st.Close()
		for st.Next() {
			if !yield(st.cur, nil) {
				return
			}
		}
		if err := st.Err(); err != nil {
			yield(nil, err)
		}
	}
}
