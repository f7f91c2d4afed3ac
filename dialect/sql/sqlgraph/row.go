package sqlgraph

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cast"

	"github.com/relkit/relkit"
	"github.com/relkit/relkit/dialect"
	"github.com/relkit/relkit/internal/batch"
	"github.com/relkit/relkit/model"
)

// Tuple is one demultiplexed row of a Select: the model of every slot in
// slot order. The primary model is never nil; a joined model is nil when
// the row had no match for that slot.
type Tuple []*model.Model

// Primary returns the model of the primary slot.
func (t Tuple) Primary() *model.Model { return t[0] }

// At returns the model of the k-th slot, or nil when absent.
func (t Tuple) At(k int) *model.Model { return t[k] }

// FromRow splits a result row into one model per slot. A joined slot
// whose primary-key columns are all NULL yields nil. Any other slot is
// parsed in full, and a column that cannot be read as its declared type
// fails with a *relkit.TypeExtractionError.
func (s *Select) FromRow(row Row) (Tuple, error) {
	t := make(Tuple, len(s.slots))
	for k, sl := range s.slots {
		if k > 0 && sl.absent(row) {
			continue
		}
		raw := make([]any, len(sl.entity.Columns))
		for i, c := range sl.entity.Columns {
			v, ok := row[sl.as(c.Name)]
			if !ok {
				return nil, relkit.NewTypeExtractionError(sl.entity.Name, c.Name, nil, fmt.Errorf("column %s not in result", sl.as(c.Name)))
			}
			raw[i] = v
		}
		m, err := model.Extract(sl.entity, raw)
		if err != nil {
			return nil, err
		}
		t[k] = m
	}
	return t, nil
}

// absent reports whether all primary-key columns of the slot are NULL.
func (sl slot) absent(row Row) bool {
	for _, c := range sl.entity.PrimaryKey {
		if row[sl.as(c)] != nil {
			return false
		}
	}
	return true
}

// All executes the plan and returns every demultiplexed row.
func (s *Select) All(ctx context.Context, conn dialect.Conn) ([]Tuple, error) {
	rows, err := s.rows(ctx, conn)
	if err != nil {
		return nil, err
	}
	out := make([]Tuple, 0, len(rows))
	for _, r := range rows {
		t, err := s.FromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// One executes the plan with a limit of one row. It returns a nil Tuple
// when no row matched.
func (s *Select) One(ctx context.Context, conn dialect.Conn) (Tuple, error) {
	query, args := s.Limit(1).Query(conn.Dialect())
	r, err := QueryOne(ctx, conn, query, args)
	if err != nil || r == nil {
		return nil, err
	}
	return s.FromRow(r)
}

// Only returns the single row the plan matches. It returns a
// *relkit.NotFoundError when no row matched and a *relkit.NotSingularError
// when rows of more than one primary model matched. When a to-many
// relation is joined, the first row of the primary model is returned.
func (s *Select) Only(ctx context.Context, conn dialect.Conn) (Tuple, error) {
	sel := s
	if !s.fanout {
		sel = s.Limit(2)
	}
	tuples, err := sel.All(ctx, conn)
	if err != nil {
		return nil, err
	}
	tuples, _ = batch.Unique(tuples, func(t Tuple) model.Key { return t.Primary().PK() })
	label := s.slots[0].entity.Name
	switch n := len(tuples); {
	case n == 0:
		return nil, relkit.NewNotFoundError(label)
	case n == 1:
		return tuples[0], nil
	case s.fanout:
		return nil, relkit.NewNotSingularErrorWithCount(label, n)
	default:
		return nil, relkit.NewNotSingularError(label)
	}
}

// Count returns the number of rows the plan matches, ignoring its order,
// limit and offset.
func (s *Select) Count(ctx context.Context, conn dialect.Conn) (int, error) {
	query, args := s.CountQuery(conn.Dialect())
	rows, err := queryRows(ctx, conn, query, args)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, relkit.NewConnectionError("count", err)
		}
		return 0, relkit.NewConnectionError("count", errors.New("no rows returned"))
	}
	var v any
	if err := rows.Scan(&v); err != nil {
		return 0, relkit.NewConnectionError("count", err)
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, relkit.NewTypeExtractionError(s.slots[0].entity.Name, "COUNT(*)", v, err)
	}
	return n, nil
}

func (s *Select) rows(ctx context.Context, conn dialect.Conn) ([]Row, error) {
	query, args := s.Query(conn.Dialect())
	return QueryAll(ctx, conn, query, args)
}
