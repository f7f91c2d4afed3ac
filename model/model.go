// Package model holds materialized rows and the containers attached to
// them: HasOne and HasMany on the read side, ActiveModel, HasOneModel and
// HasManyModel on the write side.
package model

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/relkit/relkit/schema"
)

// Model is an immutable materialized row of an entity. It holds one
// value per declared column, nil for NULL.
type Model struct {
	entity *schema.Entity
	values []any
}

// Entity returns the entity descriptor of the model.
func (m *Model) Entity() *schema.Entity { return m.entity }

// Get returns the value of the named column. It returns nil for NULL and
// for unknown columns; use Lookup to tell them apart.
func (m *Model) Get(column string) any {
	v, _ := m.Lookup(column)
	return v
}

// Lookup returns the value of the named column and whether the column
// exists.
func (m *Model) Lookup(column string) (any, bool) {
	i := m.entity.ColumnIndex(column)
	if i < 0 {
		return nil, false
	}
	return m.values[i], true
}

// Values returns the column values in declared order.
func (m *Model) Values() []any { return slices.Clone(m.values) }

// PrimaryKey returns the primary-key values in declared order.
func (m *Model) PrimaryKey() []any { return m.Tuple(m.entity.PrimaryKey) }

// Tuple returns the values of the given columns.
func (m *Model) Tuple(columns []string) []any {
	t := make([]any, len(columns))
	for i, c := range columns {
		t[i] = m.Get(c)
	}
	return t
}

// PK returns the primary key as a comparable Key.
func (m *Model) PK() Key { return KeyOf(m.PrimaryKey()...) }

// Key returns the given columns as a comparable Key.
func (m *Model) Key(columns []string) Key { return KeyOf(m.Tuple(columns)...) }

// String implements fmt.Stringer.
func (m *Model) String() string {
	var b strings.Builder
	b.WriteString(m.entity.Name)
	b.WriteByte('(')
	for i, c := range m.entity.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", c.Name, m.values[i])
	}
	b.WriteByte(')')
	return b.String()
}

// IntoActiveModel returns an ActiveModel with every column Unchanged.
func (m *Model) IntoActiveModel() *ActiveModel {
	a := NewActiveModel(m.entity)
	for i, v := range m.values {
		a.values[i] = Unchanged(v)
	}
	return a
}

// Key is a comparable encoding of a key tuple. Equal tuples of
// normalized values produce equal keys.
type Key string

// KeyOf encodes the given values as a Key.
func KeyOf(values ...any) Key {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		switch v := v.(type) {
		case nil:
			b.WriteString("<nil>")
		case []byte:
			fmt.Fprintf(&b, "[]byte=%x", v)
		case time.Time:
			b.WriteString("time=")
			b.WriteString(v.UTC().Format(time.RFC3339Nano))
		default:
			fmt.Fprintf(&b, "%T=%v", v, v)
		}
	}
	return Key(b.String())
}
