package sqlgraph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/relkit/relkit"
	"github.com/relkit/relkit/dialect/sql"
	"github.com/relkit/relkit/schema"
)

// Alias returns the table alias of the k-th (0-based) slot: A..Z, then
// AA, AB and so on. The column alias prefix of the slot is Alias(k)+"_".
func Alias(k int) string {
	var b []byte
	for k++; k > 0; k = (k - 1) / 26 {
		b = append(b, byte('A'+(k-1)%26))
	}
	slices.Reverse(b)
	return string(b)
}

// slot is one participating entity of a Select.
type slot struct {
	entity *schema.Entity
	alias  string
}

// column returns the qualified column reference, e.g. "B.name".
func (s slot) column(name string) string { return s.alias + "." + name }

// as returns the output column name, e.g. "B_name".
func (s slot) as(name string) string { return s.alias + "_" + name }

// joinSpec is a single rendered join.
type joinSpec struct {
	left   bool
	entity *schema.Entity
	alias  string
	on     [][2]string
}

// extra is an additional projected column that is not part of any slot.
type extra struct {
	expr, as string
}

// Select is a query plan over 1..N entities joined by declared relations.
// Every method returns a new plan; a Select is never mutated once built.
type Select struct {
	reg    *schema.Registry
	slots  []slot
	joins  []joinSpec
	extras []extra
	preds  []sql.Predicate
	order  []sql.OrderTerm
	limit  *int
	offset *int
	// fanout is set once a to-many relation is joined, so one primary
	// model may span several rows.
	fanout bool
}

// NewSelect starts a plan whose primary slot "A" is the given entity.
// It panics if the entity does not belong to the registry.
func NewSelect(reg *schema.Registry, e *schema.Entity) *Select {
	if !reg.Contains(e) {
		panic(fmt.Sprintf("sqlgraph: entity %s is not registered", e))
	}
	return &Select{reg: reg, slots: []slot{{entity: e, alias: Alias(0)}}}
}

func (s *Select) clone() *Select {
	c := *s
	c.slots = slices.Clone(s.slots)
	c.joins = slices.Clone(s.joins)
	c.extras = slices.Clone(s.extras)
	c.preds = slices.Clone(s.preds)
	c.order = slices.Clone(s.order)
	return &c
}

// Len returns the number of slots.
func (s *Select) Len() int { return len(s.slots) }

// Entity returns the entity of the k-th slot.
func (s *Select) Entity(k int) *schema.Entity { return s.slots[k].entity }

// C returns the qualified reference of a column of the k-th slot, for
// use in predicates and order terms.
//
//	sel.Where(sql.EQ(sel.C(1, "name"), "LakeSide"))
func (s *Select) C(k int, column string) string {
	if s.slots[k].entity.ColumnIndex(column) < 0 {
		panic(fmt.Sprintf("sqlgraph: entity %s has no column %q", s.slots[k].entity, column))
	}
	return s.slots[k].column(column)
}

// FindAlso returns a plan with one more slot for target, joined with a
// LEFT JOIN on the relation declared between a previous slot and target.
// The primary slot is searched first, then the other slots from the most
// recently added. When via is given, only a many-to-many relation through
// that entity matches, and the join chain is owner, via, target.
//
// It panics with a *relkit.RelationError if no relation matches.
func (s *Select) FindAlso(target *schema.Entity, via ...*schema.Entity) *Select {
	var through *schema.Entity
	if len(via) > 0 {
		through = via[0]
	}
	order := []int{0}
	for k := len(s.slots) - 1; k > 0; k-- {
		order = append(order, k)
	}
	for _, k := range order {
		if rel := s.slots[k].entity.RelationTo(target, through); rel != nil {
			return s.FindAlsoRelation(k, rel)
		}
	}
	err := &relkit.RelationError{From: s.slots[0].entity.Name, To: target.Name}
	if through != nil {
		err.Via = through.Name
	}
	panic(err)
}

// FindAlsoRelation returns a plan with one more slot for rel.To, joined
// with a LEFT JOIN from the slot at index from.
func (s *Select) FindAlsoRelation(from int, rel *schema.Relation) *Select {
	if from < 0 || from >= len(s.slots) || !s.slots[from].entity.SameTable(rel.From) {
		panic(&relkit.RelationError{From: rel.From.Name, To: rel.Name})
	}
	c := s.clone()
	owner := c.slots[from]
	target := slot{entity: rel.To, alias: Alias(len(c.slots))}
	if t := rel.Through; t != nil {
		via := target.alias + "_via"
		c.joins = append(c.joins,
			joinSpec{left: true, entity: t.Entity, alias: via, on: pairs(owner.alias, rel.FromColumns, via, t.FromColumns)},
			joinSpec{left: true, entity: rel.To, alias: target.alias, on: pairs(via, t.ToColumns, target.alias, rel.ToColumns)},
		)
	} else {
		c.joins = append(c.joins, joinSpec{left: true, entity: rel.To, alias: target.alias, on: pairs(owner.alias, rel.FromColumns, target.alias, rel.ToColumns)})
	}
	c.slots = append(c.slots, target)
	c.fanout = c.fanout || !rel.Kind.ToOne()
	return c
}

// joinThrough joins the through entity of a many-to-many rel to the
// primary slot, which holds rel.To, and projects the owner-side columns
// of the through entity. It returns their output names.
func (s *Select) joinThrough(rel *schema.Relation) (*Select, []string) {
	t := rel.Through
	c := s.clone()
	p := c.slots[0]
	via := p.alias + "_via"
	c.joins = append(c.joins, joinSpec{entity: t.Entity, alias: via, on: pairs(via, t.ToColumns, p.alias, rel.ToColumns)})
	names := make([]string, len(t.FromColumns))
	for i, col := range t.FromColumns {
		names[i] = via + "_" + col
		c.extras = append(c.extras, extra{expr: via + "." + col, as: names[i]})
	}
	return c, names
}

func pairs(la string, lcols []string, ra string, rcols []string) [][2]string {
	on := make([][2]string, len(lcols))
	for i := range lcols {
		on[i] = [2]string{la + "." + lcols[i], ra + "." + rcols[i]}
	}
	return on
}

// Where returns a plan filtered by p. Multiple calls are joined with AND.
func (s *Select) Where(p sql.Predicate) *Select {
	c := s.clone()
	c.preds = append(c.preds, p)
	return c
}

// OrderBy returns a plan with the given order terms appended.
func (s *Select) OrderBy(terms ...sql.OrderTerm) *Select {
	c := s.clone()
	c.order = append(c.order, terms...)
	return c
}

// Ordered reports whether the plan has an explicit order.
func (s *Select) Ordered() bool { return len(s.order) > 0 }

// OrderByIDAsc orders ascending by the primary key of the primary slot,
// in declared column order.
func (s *Select) OrderByIDAsc() *Select { return s.orderByID(false) }

// OrderByIDDesc orders descending by the primary key of the primary slot.
func (s *Select) OrderByIDDesc() *Select { return s.orderByID(true) }

func (s *Select) orderByID(desc bool) *Select {
	p := s.slots[0]
	terms := make([]sql.OrderTerm, len(p.entity.PrimaryKey))
	for i, c := range p.entity.PrimaryKey {
		terms[i] = sql.OrderTerm{Column: p.column(c), Desc: desc}
	}
	return s.OrderBy(terms...)
}

// FilterByID filters on all primary-key columns of the primary slot.
// It panics with a *relkit.RelationArityError if the number of values
// differs from the primary-key arity.
func (s *Select) FilterByID(pk ...any) *Select {
	p := s.slots[0]
	if len(pk) != len(p.entity.PrimaryKey) {
		panic(&relkit.RelationArityError{Entity: p.entity.Name, Want: len(p.entity.PrimaryKey), Got: len(pk)})
	}
	preds := make([]sql.Predicate, len(pk))
	for i, c := range p.entity.PrimaryKey {
		preds[i] = sql.EQ(p.column(c), pk[i])
	}
	return s.Where(sql.And(preds...))
}

// Limit returns a plan returning at most n rows.
func (s *Select) Limit(n int) *Select {
	c := s.clone()
	c.limit = &n
	return c
}

// Offset returns a plan skipping the first n rows.
func (s *Select) Offset(n int) *Select {
	c := s.clone()
	c.offset = &n
	return c
}

// Selector builds the SQL selector of the plan for the given dialect.
func (s *Select) Selector(dialect string) *sql.Selector {
	primary := s.slots[0]
	from := sql.Table(primary.entity.Table).Schema(primary.entity.Schema).As(primary.alias)
	sel := sql.Dialect(dialect).Select().From(from)
	for _, sl := range s.slots {
		for _, c := range sl.entity.Columns {
			sel.AppendSelectAs(sl.column(c.Name), sl.as(c.Name))
		}
	}
	for _, x := range s.extras {
		sel.AppendSelectAs(x.expr, x.as)
	}
	for _, j := range s.joins {
		t := sql.Table(j.entity.Table).Schema(j.entity.Schema).As(j.alias)
		if j.left {
			sel.LeftJoin(t)
		} else {
			sel.Join(t)
		}
		for _, p := range j.on {
			sel.On(p[0], p[1])
		}
	}
	for _, p := range s.preds {
		sel.Where(p)
	}
	sel.OrderBy(s.order...)
	if s.limit != nil {
		sel.Limit(*s.limit)
	}
	if s.offset != nil {
		sel.Offset(*s.offset)
	}
	return sel
}

// Query renders the plan for the given dialect.
func (s *Select) Query(dialect string) (string, []any) {
	return s.Selector(dialect).Query()
}

// CountQuery renders a COUNT over the plan without its order, limit and
// offset.
func (s *Select) CountQuery(dialect string) (string, []any) {
	return sql.Count(s.Selector(dialect), "sub").Query()
}

// Columns returns the output column names of the k-th slot.
func (s *Select) Columns(k int) []string {
	sl := s.slots[k]
	names := make([]string, len(sl.entity.Columns))
	for i, c := range sl.entity.Columns {
		names[i] = sl.as(c.Name)
	}
	return names
}

// String returns a short description of the plan.
func (s *Select) String() string {
	names := make([]string, len(s.slots))
	for i, sl := range s.slots {
		names[i] = sl.alias + ":" + sl.entity.Name
	}
	return "Select(" + strings.Join(names, ", ") + ")"
}
