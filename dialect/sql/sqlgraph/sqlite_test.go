package sqlgraph

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relkit/relkit"
	"github.com/relkit/relkit/dialect"
	"github.com/relkit/relkit/dialect/sql"
	"github.com/relkit/relkit/model"
)

func bakeryRows() []string {
	return []string{
		`INSERT INTO bakeries (id, name) VALUES (1, 'LakeSide'), (2, 'Hillcrest')`,
		`INSERT INTO cakes (id, name, price, bakery_id) VALUES
			(1, 'cheese', '10.5', 1),
			(2, 'chocolate', '8', 1),
			(3, 'lemon', '7.25', NULL),
			(4, 'carrot', '9', 2)`,
		`INSERT INTO bakers (id, name, bakery_id) VALUES (1, 'Alice', 1), (2, 'Bob', 1), (3, 'Carol', 2)`,
		`INSERT INTO cakes_bakers (cake_id, baker_id) VALUES (1, 1), (1, 2), (2, 2), (4, 3)`,
	}
}

func TestSQLitePagination(t *testing.T) {
	stmts := make([]string, 0, 10)
	for i := 1; i <= 10; i++ {
		stmts = append(stmts, fmt.Sprintf(`INSERT INTO bakeries (id, name) VALUES (%d, 'bakery %d')`, i, i))
	}
	drv := openSQLite(t, stmts...)
	reg := bakeryRegistry(t)
	ctx := context.Background()

	p := NewLoader(reg, reg.MustLookup("Bakery")).Paginate(3)
	totals, err := p.NumItemsAndPages(ctx, drv)
	require.NoError(t, err)
	assert.Equal(t, ItemsAndPages{Items: 10, Pages: 4}, totals)
	pages, err := p.NumPages(ctx, drv)
	require.NoError(t, err)
	assert.Equal(t, 4, pages)

	var got [][]any
	for {
		items, err := p.FetchAndNext(ctx, drv)
		require.NoError(t, err)
		if items == nil {
			break
		}
		ids := make([]any, len(items))
		for i, ex := range items {
			ids[i] = ex.Get("id")
		}
		got = append(got, ids)
	}
	assert.Equal(t, [][]any{
		{int64(1), int64(2), int64(3)},
		{int64(4), int64(5), int64(6)},
		{int64(7), int64(8), int64(9)},
		{int64(10)},
	}, got)
	assert.Equal(t, 5, p.CurrentPage())

	page, err := p.FetchPage(ctx, drv, 4)
	require.NoError(t, err)
	assert.Empty(t, page)

	sp := NewSelect(reg, reg.MustLookup("Bakery")).OrderByIDDesc().Paginate(4)
	tuples, err := sp.Fetch(ctx, drv)
	require.NoError(t, err)
	require.Len(t, tuples, 4)
	assert.Equal(t, int64(10), tuples[0].Primary().Get("id"))
	n, err := sp.NumItems(ctx, drv)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}

func TestSQLitePaginationHasMany(t *testing.T) {
	drv := openSQLite(t, bakeryRows()...)
	reg := bakeryRegistry(t)
	conn := &countingConn{Conn: drv}
	ctx := context.Background()

	p := NewLoader(reg, reg.MustLookup("Bakery")).WithRelation("cakes").Paginate(1)
	for i, want := range []struct {
		bakery any
		id     int64
		cakes  []any
	}{
		{"LakeSide", 1, []any{"cheese", "chocolate"}},
		{"Hillcrest", 2, []any{"carrot"}},
	} {
		conn.reset()
		page, err := p.FetchPage(ctx, conn, i)
		require.NoError(t, err)
		require.Len(t, conn.queries, 2, "page %d: one main query and one batched query", i)
		assert.Contains(t, conn.queries[1], "IN (?)")
		assert.Equal(t, []any{want.id}, conn.args[1])
		require.Len(t, page, 1)
		assert.Equal(t, want.bakery, page[0].Get("name"))
		cakes, err := page[0].RelatedAll("cakes")
		require.NoError(t, err)
		assert.Equal(t, want.cakes, names(cakes))
	}

	conn.reset()
	page, err := p.FetchPage(ctx, conn, 2)
	require.NoError(t, err)
	assert.Empty(t, page)
	assert.Len(t, conn.queries, 1)
}

func TestSQLiteOnly(t *testing.T) {
	drv := openSQLite(t, bakeryRows()...)
	reg := bakeryRegistry(t)
	cake, bakery := reg.MustLookup("Cake"), reg.MustLookup("Bakery")
	ctx := context.Background()

	tuple, err := NewSelect(reg, cake).FindAlso(bakery).Where(sql.EQ("A.name", "carrot")).Only(ctx, drv)
	require.NoError(t, err)
	assert.Equal(t, "Hillcrest", tuple.At(1).Get("name"))

	_, err = NewSelect(reg, cake).Where(sql.EQ("A.bakery_id", 1)).Only(ctx, drv)
	assert.True(t, relkit.IsNotSingular(err))
	_, err = NewSelect(reg, cake).Where(sql.EQ("A.name", "nowhere")).Only(ctx, drv)
	assert.True(t, relkit.IsNotFound(err))

	// LakeSide spans two rows once its cakes are joined.
	tuple, err = NewSelect(reg, bakery).FindAlso(cake).FilterByID(1).Only(ctx, drv)
	require.NoError(t, err)
	assert.Equal(t, "LakeSide", tuple.Primary().Get("name"))
	_, err = NewSelect(reg, bakery).FindAlso(cake).Only(ctx, drv)
	var nse *relkit.NotSingularError
	require.ErrorAs(t, err, &nse)
	assert.Equal(t, 2, nse.Count())

	conn := &countingConn{Conn: drv}
	ex, err := NewLoader(reg, bakery).WithRelation("cakes").Where(sql.EQ("A.name", "LakeSide")).Only(ctx, conn)
	require.NoError(t, err)
	assert.Len(t, conn.queries, 2)
	cakes, err := ex.RelatedAll("cakes")
	require.NoError(t, err)
	assert.Equal(t, []any{"cheese", "chocolate"}, names(cakes))

	conn.reset()
	_, err = NewLoader(reg, bakery).WithRelation("cakes").Only(ctx, conn)
	assert.True(t, relkit.IsNotSingular(err))
	assert.Len(t, conn.queries, 1, "no batched query for an ambiguous match")
	_, err = NewLoader(reg, bakery).Where(sql.EQ("A.name", "nowhere")).Only(ctx, drv)
	assert.True(t, relkit.IsNotFound(err))
}

func TestSQLiteLoaderChunksKeys(t *testing.T) {
	drv := openSQLite(t, bakeryRows()...)
	reg := bakeryRegistry(t)
	conn := &countingConn{Conn: drv}

	limit := maxBatchParams[dialect.SQLite]
	maxBatchParams[dialect.SQLite] = 1
	t.Cleanup(func() { maxBatchParams[dialect.SQLite] = limit })

	bakeries, err := NewLoader(reg, reg.MustLookup("Bakery")).WithRelation("cakes").All(context.Background(), conn)
	require.NoError(t, err)
	require.Len(t, conn.queries, 3, "one main query and one batched query per key")
	assert.Equal(t, []any{int64(1)}, conn.args[1])
	assert.Equal(t, []any{int64(2)}, conn.args[2])
	require.Len(t, bakeries, 2)
	for i, want := range [][]any{{"cheese", "chocolate"}, {"carrot"}} {
		cakes, err := bakeries[i].RelatedAll("cakes")
		require.NoError(t, err)
		assert.Equal(t, want, names(cakes))
	}
}

func TestSQLiteBelongsToNull(t *testing.T) {
	drv := openSQLite(t, bakeryRows()...)
	reg := bakeryRegistry(t)
	ctx := context.Background()
	cake, bakery := reg.MustLookup("Cake"), reg.MustLookup("Bakery")

	tuple, err := NewSelect(reg, cake).FindAlso(bakery).FilterByID(3).One(ctx, drv)
	require.NoError(t, err)
	require.NotNil(t, tuple)
	assert.Equal(t, "lemon", tuple.Primary().Get("name"))
	assert.Nil(t, tuple.At(1))

	ex, err := NewLoader(reg, cake).With(bakery).Get(ctx, drv, 3)
	require.NoError(t, err)
	assert.True(t, ex.One("bakery").IsNotFound())
	got, err := ex.Related("bakery")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = NewLoader(reg, cake).Get(ctx, drv, 42)
	assert.True(t, relkit.IsNotFound(err))
	tuple, err = NewSelect(reg, cake).FilterByID(42).One(ctx, drv)
	require.NoError(t, err)
	assert.Nil(t, tuple)
}

func TestSQLiteLoaderRoundTrips(t *testing.T) {
	drv := openSQLite(t, bakeryRows()...)
	reg := bakeryRegistry(t)
	conn := &countingConn{Conn: drv}

	cakes, err := NewLoader(reg, reg.MustLookup("Cake")).
		With(reg.MustLookup("Bakery")).
		With(reg.MustLookup("Baker"), reg.MustLookup("CakeBaker")).
		All(context.Background(), conn)
	require.NoError(t, err)
	assert.Len(t, conn.queries, 2, "one main query and one batched query")
	require.Len(t, cakes, 4)

	want := []struct {
		name   string
		bakery any
		bakers []any
	}{
		{"cheese", "LakeSide", []any{"Alice", "Bob"}},
		{"chocolate", "LakeSide", []any{"Bob"}},
		{"lemon", nil, []any{}},
		{"carrot", "Hillcrest", []any{"Carol"}},
	}
	for i, w := range want {
		ex := cakes[i]
		assert.Equal(t, w.name, ex.Get("name"))
		bakery, err := ex.Related("bakery")
		require.NoError(t, err)
		if w.bakery == nil {
			assert.Nil(t, bakery)
		} else {
			assert.Equal(t, w.bakery, bakery.Get("name"))
		}
		bakers, err := ex.RelatedAll("bakers")
		require.NoError(t, err)
		assert.Equal(t, w.bakers, names(bakers), w.name)
	}
}

func TestSQLiteLoaderHasMany(t *testing.T) {
	drv := openSQLite(t, bakeryRows()...)
	reg := bakeryRegistry(t)
	conn := &countingConn{Conn: drv}
	ctx := context.Background()

	bakeries, err := NewLoader(reg, reg.MustLookup("Bakery")).
		WithRelation("cakes").
		WithRelation("bakers").
		OrderByIDDesc().
		All(ctx, conn)
	require.NoError(t, err)
	assert.Len(t, conn.queries, 3)
	require.Len(t, bakeries, 2)
	assert.Equal(t, "Hillcrest", bakeries[0].Get("name"))

	cakes, err := bakeries[1].RelatedAll("cakes")
	require.NoError(t, err)
	assert.Equal(t, []any{"cheese", "chocolate"}, names(cakes))
	bakers, err := bakeries[0].RelatedAll("bakers")
	require.NoError(t, err)
	assert.Equal(t, []any{"Carol"}, names(bakers))

	one, err := NewLoader(reg, reg.MustLookup("Bakery")).
		WithRelation("cakes").
		Where(sql.EQ("A.name", "nowhere")).
		One(ctx, drv)
	require.NoError(t, err)
	assert.Nil(t, one)
}

func TestSQLiteSelfReference(t *testing.T) {
	drv := openSQLite(t,
		`INSERT INTO workers (id, name, manager_id) VALUES (1, 'Ada', NULL), (2, 'Ben', 1), (3, 'Cy', 1)`,
	)
	reg := bakeryRegistry(t)
	worker := reg.MustLookup("Worker")
	ctx := context.Background()

	tuples, err := NewSelect(reg, worker).FindAlso(worker).OrderByIDAsc().All(ctx, drv)
	require.NoError(t, err)
	require.Len(t, tuples, 3)
	assert.Nil(t, tuples[0].At(1))
	assert.Equal(t, "Ada", tuples[1].At(1).Get("name"))

	workers, err := NewLoader(reg, worker).WithRelation("manager").WithRelation("reports").All(ctx, drv)
	require.NoError(t, err)
	reports, err := workers[0].RelatedAll("reports")
	require.NoError(t, err)
	assert.Equal(t, []any{"Ben", "Cy"}, names(reports))
	manager, err := workers[2].Related("manager")
	require.NoError(t, err)
	assert.Equal(t, "Ada", manager.Get("name"))
}

func TestSQLiteStream(t *testing.T) {
	drv := openSQLite(t, bakeryRows()...)
	reg := bakeryRegistry(t)
	sel := NewSelect(reg, reg.MustLookup("Cake")).FindAlso(reg.MustLookup("Bakery")).OrderByIDAsc()

	st, err := sel.Stream(context.Background(), drv)
	require.NoError(t, err)
	var got []any
	for st.Next() {
		got = append(got, st.Tuple().Primary().Get("name"))
	}
	require.NoError(t, st.Err())
	require.NoError(t, st.Close())
	assert.Equal(t, []any{"cheese", "chocolate", "lemon", "carrot"}, got)

	st, err = sel.Stream(context.Background(), drv)
	require.NoError(t, err)
	var bakeries []*model.Model
	for tuple, err := range st.All() {
		require.NoError(t, err)
		bakeries = append(bakeries, tuple.At(1))
		if len(bakeries) == 3 {
			break
		}
	}
	require.Len(t, bakeries, 3)
	assert.Nil(t, bakeries[2])

	n, err := sel.Count(context.Background(), drv)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
