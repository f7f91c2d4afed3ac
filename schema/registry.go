package schema

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-openapi/inflect"
)

// Def is the declaration of an entity. Empty fields get defaults:
// the table name is the snake-cased plural of Name and the primary key
// is "id" when such a column exists.
type Def struct {
	Name       string
	Table      string
	Schema     string
	Columns    []Column
	PrimaryKey []string
	Relations  []RelationDef
}

// RelationDef is the declaration of a relation. Empty column lists
// follow foreign-key naming conventions: "<entity>_id" on the
// referencing side and the primary key on the referenced side.
type RelationDef struct {
	Name        string
	Kind        RelationKind
	To          string
	FromColumns []string
	ToColumns   []string
	Through     *ThroughDef
}

// ThroughDef declares the join entity of a many-to-many relation.
type ThroughDef struct {
	Entity      string
	FromColumns []string
	ToColumns   []string
}

// Registry holds the declared entities. It is immutable once built.
type Registry struct {
	entities map[string]*Entity
	order    []*Entity
}

// NewRegistry builds a registry from the given declarations. Relations
// may reference entities declared later in the list.
func NewRegistry(defs ...Def) (*Registry, error) {
	r := &Registry{entities: make(map[string]*Entity, len(defs))}
	for _, d := range defs {
		e, err := newEntity(d)
		if err != nil {
			return nil, err
		}
		if _, ok := r.entities[e.Name]; ok {
			return nil, fmt.Errorf("schema: entity %q declared twice", e.Name)
		}
		r.entities[e.Name] = e
		r.order = append(r.order, e)
	}
	var errs []error
	for i, d := range defs {
		for _, rd := range d.Relations {
			rel, err := r.newRelation(r.order[i], rd)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			r.order[i].Relations = append(r.order[i].Relations, rel)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error.
func MustRegistry(defs ...Def) *Registry {
	r, err := NewRegistry(defs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the entity with the given name.
func (r *Registry) Lookup(name string) (*Entity, bool) {
	e, ok := r.entities[name]
	return e, ok
}

// MustLookup returns the entity with the given name or panics.
func (r *Registry) MustLookup(name string) *Entity {
	e, ok := r.entities[name]
	if !ok {
		panic(fmt.Sprintf("schema: unknown entity %q", name))
	}
	return e
}

// Entities returns the entities in declaration order.
func (r *Registry) Entities() []*Entity {
	return slices.Clone(r.order)
}

// Contains reports whether e belongs to the registry.
func (r *Registry) Contains(e *Entity) bool {
	return e != nil && r.entities[e.Name] == e
}

func newEntity(d Def) (*Entity, error) {
	if d.Name == "" {
		return nil, errors.New("schema: entity without name")
	}
	if len(d.Columns) == 0 {
		return nil, fmt.Errorf("schema: entity %q has no columns", d.Name)
	}
	e := &Entity{
		Name:       d.Name,
		Table:      d.Table,
		Schema:     d.Schema,
		Columns:    slices.Clone(d.Columns),
		PrimaryKey: slices.Clone(d.PrimaryKey),
		index:      make(map[string]int, len(d.Columns)),
	}
	if e.Table == "" {
		e.Table = inflect.Underscore(inflect.Pluralize(d.Name))
	}
	for i, c := range e.Columns {
		if c.Type == TypeInvalid {
			return nil, fmt.Errorf("schema: column %s.%s has no type", e.Name, c.Name)
		}
		if _, ok := e.index[c.Name]; ok {
			return nil, fmt.Errorf("schema: column %s.%s declared twice", e.Name, c.Name)
		}
		e.index[c.Name] = i
	}
	if len(e.PrimaryKey) == 0 {
		if _, ok := e.index["id"]; !ok {
			return nil, fmt.Errorf("schema: entity %q has no primary key", e.Name)
		}
		e.PrimaryKey = []string{"id"}
	}
	if err := e.checkColumns(e.PrimaryKey); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *Registry) newRelation(from *Entity, d RelationDef) (*Relation, error) {
	to, ok := r.entities[d.To]
	if !ok {
		return nil, fmt.Errorf("schema: relation %s.%s references unknown entity %q", from.Name, d.Name, d.To)
	}
	rel := &Relation{
		Name:        d.Name,
		Kind:        d.Kind,
		From:        from,
		To:          to,
		FromColumns: slices.Clone(d.FromColumns),
		ToColumns:   slices.Clone(d.ToColumns),
	}
	if rel.Name == "" {
		rel.Name = inflect.Underscore(to.Name)
		if rel.Kind == HasMany {
			rel.Name = inflect.Underscore(inflect.Pluralize(to.Name))
		}
	}
	if from.Relation(rel.Name) != nil {
		return nil, fmt.Errorf("schema: relation %s.%s declared twice", from.Name, rel.Name)
	}
	switch {
	case d.Through != nil:
		via, ok := r.entities[d.Through.Entity]
		if !ok {
			return nil, fmt.Errorf("schema: relation %s.%s goes through unknown entity %q", from.Name, rel.Name, d.Through.Entity)
		}
		rel.Through = &Through{
			Entity:      via,
			FromColumns: slices.Clone(d.Through.FromColumns),
			ToColumns:   slices.Clone(d.Through.ToColumns),
		}
		rel.FromColumns = orDefault(rel.FromColumns, from.PrimaryKey)
		rel.ToColumns = orDefault(rel.ToColumns, to.PrimaryKey)
		rel.Through.FromColumns = orDefault(rel.Through.FromColumns, foreignKey(from))
		rel.Through.ToColumns = orDefault(rel.Through.ToColumns, foreignKey(to))
	case rel.Kind == BelongsTo:
		rel.FromColumns = orDefault(rel.FromColumns, foreignKey(to))
		rel.ToColumns = orDefault(rel.ToColumns, to.PrimaryKey)
	case rel.Kind == HasOne, rel.Kind == HasMany:
		rel.FromColumns = orDefault(rel.FromColumns, from.PrimaryKey)
		rel.ToColumns = orDefault(rel.ToColumns, foreignKey(from))
	default:
		return nil, fmt.Errorf("schema: relation %s.%s has invalid kind %s", from.Name, rel.Name, rel.Kind)
	}
	if err := rel.check(); err != nil {
		return nil, err
	}
	return rel, nil
}

func (rel *Relation) check() error {
	if len(rel.FromColumns) != len(rel.ToColumns) {
		return fmt.Errorf("schema: relation %s.%s joins %d columns to %d", rel.From.Name, rel.Name, len(rel.FromColumns), len(rel.ToColumns))
	}
	if err := rel.From.checkColumns(rel.FromColumns); err != nil {
		return err
	}
	if err := rel.To.checkColumns(rel.ToColumns); err != nil {
		return err
	}
	if t := rel.Through; t != nil {
		if len(t.FromColumns) != len(rel.FromColumns) || len(t.ToColumns) != len(rel.ToColumns) {
			return fmt.Errorf("schema: relation %s.%s through %s has mismatched key arity", rel.From.Name, rel.Name, t.Entity.Name)
		}
		if err := t.Entity.checkColumns(t.FromColumns); err != nil {
			return err
		}
		if err := t.Entity.checkColumns(t.ToColumns); err != nil {
			return err
		}
		if err := rel.checkTypes(rel.From, rel.FromColumns, t.Entity, t.FromColumns); err != nil {
			return err
		}
		return rel.checkTypes(t.Entity, t.ToColumns, rel.To, rel.ToColumns)
	}
	return rel.checkTypes(rel.From, rel.FromColumns, rel.To, rel.ToColumns)
}

// checkTypes requires joined key columns to share a column type. Batched
// loads group children by key value, and values of different types never
// compare equal.
func (rel *Relation) checkTypes(left *Entity, lcols []string, right *Entity, rcols []string) error {
	for i := range lcols {
		l, _ := left.Column(lcols[i])
		r, _ := right.Column(rcols[i])
		if l.Type != r.Type {
			return fmt.Errorf("schema: relation %s.%s joins %s.%s (%s) to %s.%s (%s)",
				rel.From.Name, rel.Name, left.Name, l.Name, l.Type, right.Name, r.Name, r.Type)
		}
	}
	return nil
}

func (e *Entity) checkColumns(columns []string) error {
	for _, c := range columns {
		if _, ok := e.index[c]; !ok {
			return fmt.Errorf("schema: entity %q has no column %q", e.Name, c)
		}
	}
	return nil
}

// foreignKey returns the conventional single-column foreign key
// referencing e, e.g. "bakery_id".
func foreignKey(e *Entity) []string {
	return []string{inflect.Underscore(e.Name) + "_id"}
}

func orDefault(columns, def []string) []string {
	if len(columns) > 0 {
		return columns
	}
	return slices.Clone(def)
}
