// Package schema describes entities, their columns and the relations
// between them. A Registry is built once at startup and is read-only
// afterwards; every query plan and loader receives it explicitly.
package schema

import (
	"fmt"
	"slices"
	"strings"
)

// ColumnType is the semantic type of a column. Extracted values are
// normalized to one Go type per ColumnType.
type ColumnType uint8

// Column types.
const (
	TypeInvalid ColumnType = iota
	TypeInt                // int64
	TypeFloat              // float64
	TypeString             // string
	TypeBool               // bool
	TypeTime               // time.Time
	TypeBytes              // []byte
	TypeUUID               // uuid.UUID
	TypeDecimal            // decimal.Decimal
	TypeJSON               // json.RawMessage
)

var typeNames = [...]string{
	TypeInvalid: "invalid",
	TypeInt:     "int",
	TypeFloat:   "float",
	TypeString:  "string",
	TypeBool:    "bool",
	TypeTime:    "time",
	TypeBytes:   "bytes",
	TypeUUID:    "uuid",
	TypeDecimal: "decimal",
	TypeJSON:    "json",
}

// String returns the type name.
func (t ColumnType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("ColumnType(%d)", t)
}

// ParseColumnType returns the ColumnType with the given name.
func ParseColumnType(s string) (ColumnType, error) {
	for i, name := range typeNames {
		if i > 0 && strings.EqualFold(s, name) {
			return ColumnType(i), nil
		}
	}
	return TypeInvalid, fmt.Errorf("schema: unknown column type %q", s)
}

// Column describes a single table column.
type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool
}

// RelationKind is the cardinality of a relation seen from its owner.
type RelationKind uint8

// Relation kinds.
const (
	HasOne RelationKind = iota + 1
	HasMany
	BelongsTo
)

// String returns the kind name.
func (k RelationKind) String() string {
	switch k {
	case HasOne:
		return "has_one"
	case HasMany:
		return "has_many"
	case BelongsTo:
		return "belongs_to"
	}
	return fmt.Sprintf("RelationKind(%d)", k)
}

// ParseRelationKind returns the RelationKind with the given name.
// Both "has_many" and "HasMany" spellings are accepted.
func ParseRelationKind(s string) (RelationKind, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "_", "")) {
	case "hasone":
		return HasOne, nil
	case "hasmany":
		return HasMany, nil
	case "belongsto":
		return BelongsTo, nil
	}
	return 0, fmt.Errorf("schema: unknown relation kind %q", s)
}

// ToOne reports whether the relation resolves to at most one model.
func (k RelationKind) ToOne() bool { return k == HasOne || k == BelongsTo }

// Through describes the join entity of a many-to-many relation.
// FromColumns reference the owner's columns, ToColumns the target's.
type Through struct {
	Entity      *Entity
	FromColumns []string
	ToColumns   []string
}

// Relation is a declared association from one entity to another.
//
// Without Through, the relation joins From.FromColumns to To.ToColumns.
// With Through, From.FromColumns match Through.FromColumns and
// Through.ToColumns match To.ToColumns.
type Relation struct {
	Name        string
	Kind        RelationKind
	From        *Entity
	To          *Entity
	FromColumns []string
	ToColumns   []string
	Through     *Through
}

// String returns a short description of the relation.
func (r *Relation) String() string {
	s := r.From.Name + "." + r.Name + " " + r.Kind.String() + " " + r.To.Name
	if r.Through != nil {
		s += " through " + r.Through.Entity.Name
	}
	return s
}

// Entity is the typed descriptor of a table.
type Entity struct {
	Name       string
	Table      string
	Schema     string
	Columns    []Column
	PrimaryKey []string
	Relations  []*Relation

	index map[string]int
}

// Column returns the column with the given name.
func (e *Entity) Column(name string) (Column, bool) {
	i, ok := e.index[name]
	if !ok {
		return Column{}, false
	}
	return e.Columns[i], true
}

// ColumnIndex returns the position of the column in declared order, or -1.
func (e *Entity) ColumnIndex(name string) int {
	if i, ok := e.index[name]; ok {
		return i
	}
	return -1
}

// ColumnNames returns the column names in declared order.
func (e *Entity) ColumnNames() []string {
	names := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		names[i] = c.Name
	}
	return names
}

// Relation returns the relation with the given name, or nil.
func (e *Entity) Relation(name string) *Relation {
	for _, r := range e.Relations {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// RelationTo returns the first declared relation whose target has the
// same table identity as target. When via is not nil, only relations
// through an entity with via's table identity match.
func (e *Entity) RelationTo(target, via *Entity) *Relation {
	for _, r := range e.Relations {
		if !r.To.SameTable(target) {
			continue
		}
		if via != nil && (r.Through == nil || !r.Through.Entity.SameTable(via)) {
			continue
		}
		return r
	}
	return nil
}

// SameTable reports whether both entities map to the same table.
func (e *Entity) SameTable(other *Entity) bool {
	return other != nil && e.Table == other.Table && e.Schema == other.Schema
}

// IsPrimaryKey reports whether the column is part of the primary key.
func (e *Entity) IsPrimaryKey(column string) bool {
	return slices.Contains(e.PrimaryKey, column)
}

// String returns the entity name.
func (e *Entity) String() string { return e.Name }
