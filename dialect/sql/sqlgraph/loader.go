package sqlgraph

import (
	"context"
	"log/slog"
	"slices"

	"github.com/relkit/relkit"
	"github.com/relkit/relkit/dialect"
	"github.com/relkit/relkit/dialect/sql"
	"github.com/relkit/relkit/internal/batch"
	"github.com/relkit/relkit/model"
	"github.com/relkit/relkit/schema"
)

// Loader loads models of an entity together with a set of relations.
// To-one relations are folded into the main query as LEFT JOINs. Each
// to-many relation costs one extra query over all parents, whatever the
// number of parents. The owner keys of that query are bound as
// parameters, so a load whose keys exceed the parameter limit of the
// dialect (2000 on SQL Server) is split into one query per chunk of keys.
//
//	cakes, err := sqlgraph.NewLoader(reg, cake).
//		With(bakery).
//		With(baker, cakeBaker).
//		All(ctx, drv)
type Loader struct {
	entity *schema.Entity
	base   *Select
	rels   []*schema.Relation
	log    *slog.Logger
}

// NewLoader returns a loader for the given entity with no relations.
func NewLoader(reg *schema.Registry, e *schema.Entity) *Loader {
	return &Loader{entity: e, base: NewSelect(reg, e), log: slog.Default()}
}

func (l *Loader) clone() *Loader {
	c := *l
	c.rels = slices.Clone(l.rels)
	return &c
}

// With marks the relation from the loaded entity to target for loading.
// It panics with a *relkit.RelationError if no relation matches.
func (l *Loader) With(target *schema.Entity, via ...*schema.Entity) *Loader {
	var through *schema.Entity
	if len(via) > 0 {
		through = via[0]
	}
	rel := l.entity.RelationTo(target, through)
	if rel == nil {
		err := &relkit.RelationError{From: l.entity.Name, To: target.Name}
		if through != nil {
			err.Via = through.Name
		}
		panic(err)
	}
	return l.withRelation(rel)
}

// WithRelation marks the named relation for loading. It panics with a
// *relkit.RelationError if the entity declares no such relation.
func (l *Loader) WithRelation(name string) *Loader {
	rel := l.entity.Relation(name)
	if rel == nil {
		panic(&relkit.RelationError{From: l.entity.Name, To: name})
	}
	return l.withRelation(rel)
}

func (l *Loader) withRelation(rel *schema.Relation) *Loader {
	c := l.clone()
	if !slices.Contains(c.rels, rel) {
		c.rels = append(c.rels, rel)
	}
	return c
}

// WithLogger sets the logger used to trace batched loads.
func (l *Loader) WithLogger(log *slog.Logger) *Loader {
	c := l.clone()
	c.log = log
	return c
}

// C returns the qualified reference of a column of the loaded entity.
func (l *Loader) C(column string) string { return l.base.C(0, column) }

// Where filters the loaded entity.
func (l *Loader) Where(p sql.Predicate) *Loader {
	c := l.clone()
	c.base = l.base.Where(p)
	return c
}

// OrderBy appends order terms.
func (l *Loader) OrderBy(terms ...sql.OrderTerm) *Loader {
	c := l.clone()
	c.base = l.base.OrderBy(terms...)
	return c
}

// OrderByIDAsc orders ascending by primary key.
func (l *Loader) OrderByIDAsc() *Loader {
	c := l.clone()
	c.base = l.base.OrderByIDAsc()
	return c
}

// OrderByIDDesc orders descending by primary key.
func (l *Loader) OrderByIDDesc() *Loader {
	c := l.clone()
	c.base = l.base.OrderByIDDesc()
	return c
}

// FilterByID filters on the primary key. It panics with a
// *relkit.RelationArityError on an arity mismatch.
func (l *Loader) FilterByID(pk ...any) *Loader {
	c := l.clone()
	c.base = l.base.FilterByID(pk...)
	return c
}

// Limit limits the number of loaded models.
func (l *Loader) Limit(n int) *Loader {
	c := l.clone()
	c.base = l.base.Limit(n)
	return c
}

// Offset skips the first n models.
func (l *Loader) Offset(n int) *Loader {
	c := l.clone()
	c.base = l.base.Offset(n)
	return c
}

func (l *Loader) hasMany() bool {
	return slices.ContainsFunc(l.rels, func(r *schema.Relation) bool { return !r.Kind.ToOne() })
}

// Select returns the main query plan: the loaded entity with one joined
// slot per marked to-one relation, in marking order. Without an explicit
// order, a loader with to-many relations orders by primary key.
func (l *Loader) Select() *Select {
	sel := l.base
	for _, r := range l.rels {
		if r.Kind.ToOne() {
			sel = sel.FindAlsoRelation(0, r)
		}
	}
	if !sel.Ordered() && l.hasMany() {
		sel = sel.OrderByIDAsc()
	}
	return sel
}

// All loads every matching model with its marked relations.
func (l *Loader) All(ctx context.Context, conn dialect.Conn) ([]*model.ModelEx, error) {
	return l.load(ctx, conn, l.Select())
}

// One loads the first matching model. It returns nil when none matched.
func (l *Loader) One(ctx context.Context, conn dialect.Conn) (*model.ModelEx, error) {
	exs, err := l.load(ctx, conn, l.Select().Limit(1))
	if err != nil || len(exs) == 0 {
		return nil, err
	}
	return exs[0], nil
}

// Only loads the single matching model. It returns a *relkit.NotFoundError
// when none matched and a *relkit.NotSingularError when more than one did.
// To-many relations are loaded only once the match is known to be unique.
func (l *Loader) Only(ctx context.Context, conn dialect.Conn) (*model.ModelEx, error) {
	exs, err := l.fetch(ctx, conn, l.Select().Limit(2))
	if err != nil {
		return nil, err
	}
	switch len(exs) {
	case 0:
		return nil, relkit.NewNotFoundError(l.entity.Name)
	case 1:
		if err := l.attach(ctx, conn, exs); err != nil {
			return nil, err
		}
		return exs[0], nil
	default:
		return nil, relkit.NewNotSingularError(l.entity.Name)
	}
}

// Get loads the model with the given primary key. It returns a
// *relkit.NotFoundError when it does not exist.
func (l *Loader) Get(ctx context.Context, conn dialect.Conn, pk ...any) (*model.ModelEx, error) {
	ex, err := l.FilterByID(pk...).One(ctx, conn)
	if err != nil {
		return nil, err
	}
	if ex == nil {
		var id any = pk
		if len(pk) == 1 {
			id = pk[0]
		}
		return nil, relkit.NewNotFoundErrorWithID(l.entity.Name, id)
	}
	return ex, nil
}

// Paginate returns a paginator whose pages hold fully loaded models.
// It panics if pageSize is not positive.
func (l *Loader) Paginate(pageSize int) *Paginator[*model.ModelEx] {
	return newPaginator(l.Select(), pageSize, l.load)
}

// Queries renders the statements a load executes for the given dialect:
// the main query, then one batched query per to-many relation. Batched
// queries are rendered for a single parent key.
func (l *Loader) Queries(dialect string) []string {
	query, _ := l.Select().Query(dialect)
	out := []string{query}
	for _, r := range l.rels {
		if r.Kind.ToOne() {
			continue
		}
		key := make([]any, len(r.FromColumns))
		sel, _ := l.manySelect(r, [][]any{key})
		query, _ := sel.Query(dialect)
		out = append(out, query)
	}
	return out
}

func (l *Loader) load(ctx context.Context, conn dialect.Conn, sel *Select) ([]*model.ModelEx, error) {
	exs, err := l.fetch(ctx, conn, sel)
	if err != nil {
		return nil, err
	}
	if err := l.attach(ctx, conn, exs); err != nil {
		return nil, err
	}
	return exs, nil
}

// fetch runs the main query and fills the to-one slots.
func (l *Loader) fetch(ctx context.Context, conn dialect.Conn, sel *Select) ([]*model.ModelEx, error) {
	tuples, err := sel.All(ctx, conn)
	if err != nil {
		return nil, relkit.NewQueryError(l.entity.Name, "load", err)
	}
	tuples, _ = batch.Unique(tuples, func(t Tuple) model.Key { return t.Primary().PK() })
	exs := make([]*model.ModelEx, len(tuples))
	for i, t := range tuples {
		ex := model.NewModelEx(t.Primary())
		k := 1
		for _, r := range l.rels {
			if !r.Kind.ToOne() {
				continue
			}
			if m := t.At(k); m != nil {
				ex.One(r.Name).Set(m)
			} else {
				ex.One(r.Name).SetNotFound()
			}
			k++
		}
		exs[i] = ex
	}
	return exs, nil
}

// attach runs the batched queries of the to-many relations.
func (l *Loader) attach(ctx context.Context, conn dialect.Conn, exs []*model.ModelEx) error {
	for _, r := range l.rels {
		if r.Kind.ToOne() {
			continue
		}
		if err := l.loadMany(ctx, conn, r, exs); err != nil {
			return relkit.NewQueryError(l.entity.Name, "load "+r.Name, err)
		}
	}
	return nil
}

// child is a loaded related model with the owner key it belongs to.
type child struct {
	owner model.Key
	m     *model.Model
}

// loadMany runs the batched query for rel over all parents and sets the
// to-many slot of every parent. Parents with a NULL key column get an
// empty slot. No query runs when no parent has a usable key.
func (l *Loader) loadMany(ctx context.Context, conn dialect.Conn, rel *schema.Relation, parents []*model.ModelEx) error {
	keys := make([]model.Key, len(parents))
	var tuples [][]any
	seen := make(map[model.Key]struct{})
	for i, p := range parents {
		t := p.Tuple(rel.FromColumns)
		if hasNil(t) {
			continue
		}
		keys[i] = model.KeyOf(t...)
		if _, ok := seen[keys[i]]; !ok {
			seen[keys[i]] = struct{}{}
			tuples = append(tuples, t)
		}
	}
	if len(tuples) == 0 {
		for _, p := range parents {
			p.Many(rel.Name).Set([]*model.Model{})
		}
		return nil
	}
	var children []child
	for _, chunk := range chunkKeys(tuples, conn.Dialect()) {
		sel, ownerCols := l.manySelect(rel, chunk)
		rows, err := sel.rows(ctx, conn)
		if err != nil {
			return err
		}
		for _, r := range rows {
			t, err := sel.FromRow(r)
			if err != nil {
				return err
			}
			m := t.Primary()
			var owner model.Key
			if rel.Through == nil {
				owner = m.Key(rel.ToColumns)
			} else if owner, err = throughKey(rel.Through, ownerCols, r); err != nil {
				return err
			}
			children = append(children, child{owner: owner, m: m})
		}
	}
	grouped := batch.GroupByKey(children, func(c child) model.Key { return c.owner })
	groups := batch.OrderGroupsByKeys(keys, grouped)
	for i, p := range parents {
		items := make([]*model.Model, len(groups[i]))
		for j, c := range groups[i] {
			items[j] = c.m
		}
		p.Many(rel.Name).Set(items)
	}
	l.log.DebugContext(ctx, "sqlgraph: batched load",
		"relation", rel.String(),
		"parents", len(tuples),
		"rows", len(children),
	)
	return nil
}

// maxBatchParams is the number of bind parameters a batched query may
// carry per dialect. SQL Server rejects statements with more than 2100.
var maxBatchParams = map[string]int{
	dialect.SQLServer: 2000,
	dialect.SQLite:    32766,
	dialect.MySQL:     65535,
	dialect.Postgres:  65535,
}

// chunkKeys splits the owner keys of a batched load so that no query
// exceeds the parameter limit of the dialect.
func chunkKeys(tuples [][]any, dialectName string) [][][]any {
	limit, ok := maxBatchParams[dialectName]
	if !ok || len(tuples) == 0 {
		return [][][]any{tuples}
	}
	size := max(limit/len(tuples[0]), 1)
	chunks := make([][][]any, 0, (len(tuples)+size-1)/size)
	for len(tuples) > size {
		chunks = append(chunks, tuples[:size:size])
		tuples = tuples[size:]
	}
	return append(chunks, tuples)
}

// manySelect builds the batched query of rel for the given owner keys.
// For a relation through a join entity, it also returns the output
// names of the owner-side columns of the join entity.
func (l *Loader) manySelect(rel *schema.Relation, tuples [][]any) (*Select, []string) {
	sel := NewSelect(l.base.reg, rel.To)
	var (
		cols      []string
		ownerCols []string
	)
	if rel.Through == nil {
		cols = make([]string, len(rel.ToColumns))
		for i, c := range rel.ToColumns {
			cols[i] = sel.C(0, c)
		}
	} else {
		sel, ownerCols = sel.joinThrough(rel)
		via := sel.slots[0].alias + "_via"
		cols = make([]string, len(rel.Through.FromColumns))
		for i, c := range rel.Through.FromColumns {
			cols[i] = via + "." + c
		}
	}
	return sel.Where(sql.InTuples(cols, tuples)).OrderByIDAsc(), ownerCols
}

// throughKey reads the owner key of a batched many-to-many row,
// normalized by the column types of the join entity.
func throughKey(t *schema.Through, names []string, r Row) (model.Key, error) {
	values := make([]any, len(names))
	for i, name := range names {
		col, _ := t.Entity.Column(t.FromColumns[i])
		v, err := model.Convert(col, r[name])
		if err != nil {
			return "", relkit.NewTypeExtractionError(t.Entity.Name, col.Name, r[name], err)
		}
		values[i] = v
	}
	return model.KeyOf(values...), nil
}

func hasNil(values []any) bool {
	for _, v := range values {
		if v == nil {
			return true
		}
	}
	return false
}
