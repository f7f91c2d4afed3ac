package sql

import (
	"strings"

	"github.com/relkit/relkit/dialect"
)

// Querier wraps the basic Query method that is implemented
// by the different builders in this file.
type Querier interface {
	// Query returns the query representation of the element
	// and its arguments (if any).
	Query() (string, []any)
}

// Builder is the base query builder for the sql dsl. Statements render
// themselves into a single Builder, so bind markers are numbered once
// across nested selects and predicates.
type Builder struct {
	sb   strings.Builder
	args []any
	d    dialect.Dialect
}

func newBuilder(name string) *Builder {
	if name == "" {
		name = dialect.MySQL
	}
	return &Builder{d: dialect.Get(name)}
}

// Dialect returns the rendering dialect of the builder.
func (b *Builder) Dialect() dialect.Dialect { return b.d }

// WriteString appends s to the statement as is.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// WriteByte appends c to the statement.
func (b *Builder) WriteByte(c byte) *Builder {
	b.sb.WriteByte(c)
	return b
}

// Pad appends a single space.
func (b *Builder) Pad() *Builder { return b.WriteByte(' ') }

// Ident appends a quoted identifier. Qualified names ("t.c") are quoted
// per part. Expressions containing '(' or a bare '*' are written raw.
func (b *Builder) Ident(s string) *Builder {
	switch {
	case s == "*", strings.ContainsAny(s, "()"):
		b.sb.WriteString(s)
	case strings.Contains(s, "."):
		parts := strings.Split(s, ".")
		for i, p := range parts {
			if i > 0 {
				b.sb.WriteByte('.')
			}
			if p == "*" {
				b.sb.WriteString(p)
				continue
			}
			b.sb.WriteString(b.d.Quote(p))
		}
	default:
		b.sb.WriteString(b.d.Quote(s))
	}
	return b
}

// IdentComma appends the quoted identifiers separated by commas.
func (b *Builder) IdentComma(s ...string) *Builder {
	for i := range s {
		if i > 0 {
			b.sb.WriteString(", ")
		}
		b.Ident(s[i])
	}
	return b
}

// Arg appends a bind marker for v and records v as an argument.
func (b *Builder) Arg(v any) *Builder {
	b.args = append(b.args, v)
	b.sb.WriteString(b.d.Placeholder(len(b.args)))
	return b
}

// Args appends the bind markers of vs separated by commas.
func (b *Builder) Args(vs ...any) *Builder {
	for i := range vs {
		if i > 0 {
			b.sb.WriteString(", ")
		}
		b.Arg(vs[i])
	}
	return b
}

// Nested wraps the output of fn with parentheses.
func (b *Builder) Nested(fn func(*Builder)) *Builder {
	b.sb.WriteByte('(')
	fn(b)
	b.sb.WriteByte(')')
	return b
}

// Query returns the rendered statement and its arguments.
func (b *Builder) Query() (string, []any) {
	return b.sb.String(), b.args
}

// DialectBuilder prefixes all root builders with the Dialect function.
// It's used to create builders that render for a specific database.
type DialectBuilder struct {
	dialect string
}

// Dialect creates a new DialectBuilder with the given dialect name.
func Dialect(name string) *DialectBuilder {
	return &DialectBuilder{dialect: name}
}

// Select creates a Selector for the configured dialect.
//
//	Dialect(dialect.Postgres).
//		Select("id", "name").From(Table("users"))
func (d *DialectBuilder) Select(columns ...string) *Selector {
	return Select(columns...).SetDialect(d.dialect)
}

// Insert creates an InsertBuilder for the configured dialect.
func (d *DialectBuilder) Insert(table string) *InsertBuilder {
	return &InsertBuilder{dialect: d.dialect, table: table}
}

// Update creates an UpdateBuilder for the configured dialect.
func (d *DialectBuilder) Update(table string) *UpdateBuilder {
	return &UpdateBuilder{dialect: d.dialect, table: table}
}

// SelectTable is a table reference in a FROM or JOIN clause.
type SelectTable struct {
	name   string
	schema string
	as     string
}

// Table returns a new table selector.
//
//	t1 := Table("users").As("u")
//	return Select(t1.C("name"))
func Table(name string) *SelectTable {
	return &SelectTable{name: name}
}

// Schema sets the schema name of the table.
func (t *SelectTable) Schema(name string) *SelectTable {
	t.schema = name
	return t
}

// As adds the AS clause to the table selector.
func (t *SelectTable) As(alias string) *SelectTable {
	t.as = alias
	return t
}

// C returns a formatted string for the table column.
func (t *SelectTable) C(column string) string {
	name := t.name
	if t.as != "" {
		name = t.as
	}
	return name + "." + column
}

// Name returns the table alias if set, and the table name otherwise.
func (t *SelectTable) Name() string {
	if t.as != "" {
		return t.as
	}
	return t.name
}

func (t *SelectTable) render(b *Builder) {
	if t.schema != "" {
		b.Ident(t.schema).WriteByte('.')
	}
	b.sb.WriteString(b.d.Quote(t.name))
	if t.as != "" {
		b.WriteString(" AS ").WriteString(b.d.Quote(t.as))
	}
}

// Predicate renders a boolean SQL expression into the Builder of the
// statement that holds it.
type Predicate func(*Builder)

// EQ returns a "=" predicate.
func EQ(col string, v any) Predicate {
	return func(b *Builder) { b.Ident(col).WriteString(" = ").Arg(v) }
}

// NEQ returns a "<>" predicate.
func NEQ(col string, v any) Predicate {
	return func(b *Builder) { b.Ident(col).WriteString(" <> ").Arg(v) }
}

// GT returns a ">" predicate.
func GT(col string, v any) Predicate {
	return func(b *Builder) { b.Ident(col).WriteString(" > ").Arg(v) }
}

// GTE returns a ">=" predicate.
func GTE(col string, v any) Predicate {
	return func(b *Builder) { b.Ident(col).WriteString(" >= ").Arg(v) }
}

// LT returns a "<" predicate.
func LT(col string, v any) Predicate {
	return func(b *Builder) { b.Ident(col).WriteString(" < ").Arg(v) }
}

// LTE returns a "<=" predicate.
func LTE(col string, v any) Predicate {
	return func(b *Builder) { b.Ident(col).WriteString(" <= ").Arg(v) }
}

// Like returns a "LIKE" predicate.
func Like(col, pattern string) Predicate {
	return func(b *Builder) { b.Ident(col).WriteString(" LIKE ").Arg(pattern) }
}

// IsNull returns an "IS NULL" predicate.
func IsNull(col string) Predicate {
	return func(b *Builder) { b.Ident(col).WriteString(" IS NULL") }
}

// NotNull returns an "IS NOT NULL" predicate.
func NotNull(col string) Predicate {
	return func(b *Builder) { b.Ident(col).WriteString(" IS NOT NULL") }
}

// ColumnsEQ returns a predicate comparing two columns, used in ON clauses.
func ColumnsEQ(col1, col2 string) Predicate {
	return func(b *Builder) { b.Ident(col1).WriteString(" = ").Ident(col2) }
}

// In returns an "IN" predicate. An empty list renders a false expression.
func In(col string, vs ...any) Predicate {
	return func(b *Builder) {
		if len(vs) == 0 {
			b.WriteString("1 = 0")
			return
		}
		b.Ident(col).WriteString(" IN ").Nested(func(b *Builder) { b.Args(vs...) })
	}
}

// InTuples returns a predicate matching rows whose columns equal one of
// the given tuples. Single columns render as IN, composite keys as a
// disjunction of conjunctions, which every supported dialect accepts.
func InTuples(cols []string, tuples [][]any) Predicate {
	if len(cols) == 1 {
		vs := make([]any, len(tuples))
		for i := range tuples {
			vs[i] = tuples[i][0]
		}
		return In(cols[0], vs...)
	}
	ors := make([]Predicate, len(tuples))
	for i, t := range tuples {
		ands := make([]Predicate, len(cols))
		for j := range cols {
			ands[j] = EQ(cols[j], t[j])
		}
		ors[i] = And(ands...)
	}
	if len(ors) == 0 {
		return func(b *Builder) { b.WriteString("1 = 0") }
	}
	return Or(ors...)
}

// And combines the predicates with AND.
func And(preds ...Predicate) Predicate {
	return join(" AND ", preds)
}

// Or combines the predicates with OR.
func Or(preds ...Predicate) Predicate {
	return join(" OR ", preds)
}

// Not negates the predicate.
func Not(pred Predicate) Predicate {
	return func(b *Builder) {
		b.WriteString("NOT ").Nested(func(b *Builder) { pred(b) })
	}
}

// Expr returns a raw predicate. Each '?' in expr is replaced with a bind
// marker for the matching argument.
func Expr(expr string, args ...any) Predicate {
	return func(b *Builder) {
		i := 0
		for _, r := range expr {
			if r == '?' && i < len(args) {
				b.Arg(args[i])
				i++
				continue
			}
			b.sb.WriteRune(r)
		}
	}
}

func join(op string, preds []Predicate) Predicate {
	ps := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			ps = append(ps, p)
		}
	}
	return func(b *Builder) {
		if len(ps) == 1 {
			ps[0](b)
			return
		}
		b.Nested(func(b *Builder) {
			for i, p := range ps {
				if i > 0 {
					b.WriteString(op)
				}
				p(b)
			}
		})
	}
}

// OrderTerm is a single ORDER BY term.
type OrderTerm struct {
	Column string
	Desc   bool
}

// Asc returns an ascending order term.
func Asc(col string) OrderTerm { return OrderTerm{Column: col} }

// Desc returns a descending order term.
func Desc(col string) OrderTerm { return OrderTerm{Column: col, Desc: true} }

type selection struct {
	expr string
	as   string
}

type joinClause struct {
	kind  string
	table *SelectTable
	on    Predicate
}

// Selector is a builder for the `SELECT` statement.
type Selector struct {
	dialect  string
	distinct bool
	columns  []selection
	from     *SelectTable
	fromSel  *Selector
	fromAs   string
	joins    []joinClause
	where    Predicate
	order    []OrderTerm
	limit    *int
	offset   *int
}

// Select returns a new selector for the `SELECT` statement.
//
//	t1 := Table("users").As("u")
//	t2 := Select().From(Table("groups")).Where(EQ("user_id", 10)).As("g")
//	return Select(t1.C("id"), t2.C("name")).
//			From(t1).
//			Join(t2).
//			On(t1.C("id"), t2.C("user_id"))
func Select(columns ...string) *Selector {
	s := &Selector{}
	for _, c := range columns {
		s.columns = append(s.columns, selection{expr: c})
	}
	return s
}

// SetDialect sets the rendering dialect of the selector.
func (s *Selector) SetDialect(name string) *Selector {
	s.dialect = name
	return s
}

// Dialect returns the dialect name of the selector.
func (s *Selector) Dialect() string { return s.dialect }

// Distinct adds the DISTINCT keyword to the `SELECT` statement.
func (s *Selector) Distinct() *Selector {
	s.distinct = true
	return s
}

// AppendSelect appends additional columns to the `SELECT` statement.
func (s *Selector) AppendSelect(columns ...string) *Selector {
	for _, c := range columns {
		s.columns = append(s.columns, selection{expr: c})
	}
	return s
}

// AppendSelectAs appends a column with an alias to the `SELECT` statement.
func (s *Selector) AppendSelectAs(column, as string) *Selector {
	s.columns = append(s.columns, selection{expr: column, as: as})
	return s
}

// SelectedColumns returns the output names of the selected columns,
// using the alias when one is set.
func (s *Selector) SelectedColumns() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.expr
		if c.as != "" {
			names[i] = c.as
		}
	}
	return names
}

// From sets the source of `FROM` clause.
func (s *Selector) From(t *SelectTable) *Selector {
	s.from, s.fromSel, s.fromAs = t, nil, ""
	return s
}

// FromSelect sets a nested select as the source of the `FROM` clause.
func (s *Selector) FromSelect(sel *Selector, as string) *Selector {
	s.from, s.fromSel, s.fromAs = nil, sel, as
	return s
}

// Table returns the table of the `FROM` clause.
func (s *Selector) Table() *SelectTable { return s.from }

// Join appends an `INNER JOIN` clause to the statement.
func (s *Selector) Join(t *SelectTable) *Selector {
	s.joins = append(s.joins, joinClause{kind: "JOIN", table: t})
	return s
}

// LeftJoin appends a `LEFT JOIN` clause to the statement.
func (s *Selector) LeftJoin(t *SelectTable) *Selector {
	s.joins = append(s.joins, joinClause{kind: "LEFT JOIN", table: t})
	return s
}

// On sets the `ON` clause of the last join as an equality of two columns.
func (s *Selector) On(c1, c2 string) *Selector {
	return s.OnP(ColumnsEQ(c1, c2))
}

// OnP sets or extends the `ON` predicate of the last join.
func (s *Selector) OnP(p Predicate) *Selector {
	if len(s.joins) == 0 {
		return s
	}
	j := &s.joins[len(s.joins)-1]
	if j.on == nil {
		j.on = p
	} else {
		j.on = And(j.on, p)
	}
	return s
}

// Where sets or appends the given predicate to the statement.
func (s *Selector) Where(p Predicate) *Selector {
	if p == nil {
		return s
	}
	if s.where == nil {
		s.where = p
	} else {
		s.where = And(s.where, p)
	}
	return s
}

// P returns the predicate of the statement.
func (s *Selector) P() Predicate { return s.where }

// OrderBy appends the given terms to the `ORDER BY` clause.
func (s *Selector) OrderBy(terms ...OrderTerm) *Selector {
	s.order = append(s.order, terms...)
	return s
}

// Ordered reports whether the selector has an `ORDER BY` clause.
func (s *Selector) Ordered() bool { return len(s.order) > 0 }

// ClearOrder removes the `ORDER BY` clause.
func (s *Selector) ClearOrder() *Selector {
	s.order = nil
	return s
}

// Limit adds the `LIMIT` clause to the `SELECT` statement.
func (s *Selector) Limit(limit int) *Selector {
	s.limit = &limit
	return s
}

// Offset adds the `OFFSET` clause to the `SELECT` statement.
func (s *Selector) Offset(offset int) *Selector {
	s.offset = &offset
	return s
}

// ClearLimitOffset removes the `LIMIT` and `OFFSET` clauses.
func (s *Selector) ClearLimitOffset() *Selector {
	s.limit, s.offset = nil, nil
	return s
}

// Clone returns a duplicate of the selector. Predicates are immutable
// functions and are shared.
func (s *Selector) Clone() *Selector {
	if s == nil {
		return nil
	}
	c := *s
	c.columns = append([]selection(nil), s.columns...)
	c.joins = append([]joinClause(nil), s.joins...)
	c.order = append([]OrderTerm(nil), s.order...)
	if s.from != nil {
		t := *s.from
		c.from = &t
	}
	c.fromSel = s.fromSel.Clone()
	if s.limit != nil {
		l := *s.limit
		c.limit = &l
	}
	if s.offset != nil {
		o := *s.offset
		c.offset = &o
	}
	return &c
}

// Query returns query representation of a `SELECT` statement.
func (s *Selector) Query() (string, []any) {
	b := newBuilder(s.dialect)
	s.render(b)
	return b.Query()
}

func (s *Selector) render(b *Builder) {
	b.WriteString("SELECT ")
	if s.distinct {
		b.WriteString("DISTINCT ")
	}
	if len(s.columns) == 0 {
		b.WriteString("*")
	}
	for i, c := range s.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Ident(c.expr)
		if c.as != "" {
			b.WriteString(" AS ").WriteString(b.d.Quote(c.as))
		}
	}
	switch {
	case s.from != nil:
		b.WriteString(" FROM ")
		s.from.render(b)
	case s.fromSel != nil:
		b.WriteString(" FROM ").Nested(s.fromSel.render)
		b.WriteString(" AS ").WriteString(b.d.Quote(s.fromAs))
	}
	for _, j := range s.joins {
		b.Pad().WriteString(j.kind).Pad()
		j.table.render(b)
		if j.on != nil {
			b.WriteString(" ON ")
			j.on(b)
		}
	}
	if s.where != nil {
		b.WriteString(" WHERE ")
		s.where(b)
	}
	if len(s.order) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range s.order {
			if i > 0 {
				b.WriteString(", ")
			}
			b.Ident(o.Column)
			if o.Desc {
				b.WriteString(" DESC")
			} else {
				b.WriteString(" ASC")
			}
		}
	}
	limit, offset := -1, 0
	if s.limit != nil {
		limit = *s.limit
	}
	if s.offset != nil {
		offset = *s.offset
	}
	b.WriteString(b.d.LimitOffset(limit, offset, len(s.order) > 0))
}

// InsertBuilder is a builder for `INSERT INTO` statement.
type InsertBuilder struct {
	dialect   string
	table     string
	schema    string
	columns   []string
	defaults  bool
	returning []string
	values    [][]any
}

// Insert creates a builder for the `INSERT INTO` statement.
func Insert(table string) *InsertBuilder { return &InsertBuilder{table: table} }

// Schema sets the database name for the insert table.
func (i *InsertBuilder) Schema(name string) *InsertBuilder {
	i.schema = name
	return i
}

// Columns sets the columns of the insert statement.
func (i *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	i.columns = append(i.columns, columns...)
	return i
}

// Values append a value tuple for the insert statement.
func (i *InsertBuilder) Values(values ...any) *InsertBuilder {
	i.values = append(i.values, values)
	return i
}

// Default sets the default values clause based on the dialect type.
func (i *InsertBuilder) Default() *InsertBuilder {
	i.defaults = true
	return i
}

// Returning adds the `RETURNING` clause to the insert statement.
// MySQL does not support it and the clause is skipped.
func (i *InsertBuilder) Returning(columns ...string) *InsertBuilder {
	i.returning = columns
	return i
}

// Query returns query representation of an `INSERT INTO` statement.
func (i *InsertBuilder) Query() (string, []any) {
	b := newBuilder(i.dialect)
	name := b.d.Name()
	b.WriteString("INSERT INTO ")
	if i.schema != "" {
		b.Ident(i.schema).WriteByte('.')
	}
	b.WriteString(b.d.Quote(i.table))
	if len(i.columns) > 0 {
		b.Pad().Nested(func(b *Builder) { b.IdentComma(i.columns...) })
	}
	if name == dialect.SQLServer && len(i.returning) > 0 {
		b.WriteString(" OUTPUT ")
		for j, c := range i.returning {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString("INSERTED.").Ident(c)
		}
	}
	switch {
	case i.defaults && len(i.columns) == 0 && name == dialect.MySQL:
		b.WriteString(" VALUES ()")
	case i.defaults && len(i.columns) == 0:
		b.WriteString(" DEFAULT VALUES")
	default:
		b.WriteString(" VALUES ")
		for j, v := range i.values {
			if j > 0 {
				b.WriteString(", ")
			}
			b.Nested(func(b *Builder) { b.Args(v...) })
		}
	}
	if len(i.returning) > 0 && (name == dialect.Postgres || name == dialect.SQLite) {
		b.WriteString(" RETURNING ").IdentComma(i.returning...)
	}
	return b.Query()
}

// UpdateBuilder is a builder for `UPDATE` statement.
type UpdateBuilder struct {
	dialect string
	table   string
	schema  string
	columns []string
	values  []any
	where   Predicate
}

// Update creates a builder for the `UPDATE` statement.
func Update(table string) *UpdateBuilder { return &UpdateBuilder{table: table} }

// Schema sets the database name for the updated table.
func (u *UpdateBuilder) Schema(name string) *UpdateBuilder {
	u.schema = name
	return u
}

// Set sets a column to a given value.
func (u *UpdateBuilder) Set(column string, v any) *UpdateBuilder {
	u.columns = append(u.columns, column)
	u.values = append(u.values, v)
	return u
}

// Empty reports whether this builder does not contain update changes.
func (u *UpdateBuilder) Empty() bool { return len(u.columns) == 0 }

// Where adds a where predicate for update statement.
func (u *UpdateBuilder) Where(p Predicate) *UpdateBuilder {
	if u.where == nil {
		u.where = p
	} else {
		u.where = And(u.where, p)
	}
	return u
}

// Query returns query representation of an `UPDATE` statement.
func (u *UpdateBuilder) Query() (string, []any) {
	b := newBuilder(u.dialect)
	b.WriteString("UPDATE ")
	if u.schema != "" {
		b.Ident(u.schema).WriteByte('.')
	}
	b.WriteString(b.d.Quote(u.table)).WriteString(" SET ")
	for i, c := range u.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Ident(c).WriteString(" = ").Arg(u.values[i])
	}
	if u.where != nil {
		b.WriteString(" WHERE ")
		u.where(b)
	}
	return b.Query()
}

// Count renders `SELECT COUNT(*) FROM (<sel>) AS "<as>"`, dropping the
// ordering and row limiting of sel.
func Count(sel *Selector, as string) *Selector {
	inner := sel.Clone().ClearOrder().ClearLimitOffset()
	return Select("COUNT(*)").SetDialect(sel.dialect).FromSelect(inner, as)
}
