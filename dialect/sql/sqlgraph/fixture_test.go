package sqlgraph

import (
	"context"
	stdsql "database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/relkit/relkit/dialect"
	"github.com/relkit/relkit/dialect/sql"
	"github.com/relkit/relkit/schema"
)

func bakeryRegistry(t testing.TB) *schema.Registry {
	t.Helper()
	reg, err := schema.NewRegistry(
		schema.Def{
			Name: "Cake",
			Columns: []schema.Column{
				{Name: "id", Type: schema.TypeInt},
				{Name: "name", Type: schema.TypeString},
				{Name: "price", Type: schema.TypeDecimal},
				{Name: "bakery_id", Type: schema.TypeInt, Nullable: true},
			},
			Relations: []schema.RelationDef{
				{Kind: schema.BelongsTo, To: "Bakery"},
				{Kind: schema.HasMany, To: "Baker", Through: &schema.ThroughDef{Entity: "CakeBaker"}},
			},
		},
		schema.Def{
			Name: "Bakery",
			Columns: []schema.Column{
				{Name: "id", Type: schema.TypeInt},
				{Name: "name", Type: schema.TypeString},
			},
			Relations: []schema.RelationDef{
				{Kind: schema.HasMany, To: "Cake"},
				{Kind: schema.HasMany, To: "Baker"},
			},
		},
		schema.Def{
			Name: "Baker",
			Columns: []schema.Column{
				{Name: "id", Type: schema.TypeInt},
				{Name: "name", Type: schema.TypeString},
				{Name: "bakery_id", Type: schema.TypeInt, Nullable: true},
			},
			Relations: []schema.RelationDef{
				{Kind: schema.BelongsTo, To: "Bakery"},
				{Kind: schema.HasMany, To: "Cake", Through: &schema.ThroughDef{Entity: "CakeBaker"}},
			},
		},
		schema.Def{
			Name:  "CakeBaker",
			Table: "cakes_bakers",
			Columns: []schema.Column{
				{Name: "cake_id", Type: schema.TypeInt},
				{Name: "baker_id", Type: schema.TypeInt},
			},
			PrimaryKey: []string{"cake_id", "baker_id"},
		},
		schema.Def{
			Name: "Worker",
			Columns: []schema.Column{
				{Name: "id", Type: schema.TypeInt},
				{Name: "name", Type: schema.TypeString},
				{Name: "manager_id", Type: schema.TypeInt, Nullable: true},
			},
			Relations: []schema.RelationDef{
				{Name: "manager", Kind: schema.BelongsTo, To: "Worker", FromColumns: []string{"manager_id"}},
				{Name: "reports", Kind: schema.HasMany, To: "Worker", ToColumns: []string{"manager_id"}},
			},
		},
	)
	require.NoError(t, err)
	return reg
}

const bakerySchema = `
CREATE TABLE bakeries (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE cakes (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	price TEXT NOT NULL DEFAULT '0',
	bakery_id INTEGER REFERENCES bakeries (id)
);
CREATE TABLE bakers (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	bakery_id INTEGER REFERENCES bakeries (id)
);
CREATE TABLE cakes_bakers (
	cake_id INTEGER NOT NULL REFERENCES cakes (id),
	baker_id INTEGER NOT NULL REFERENCES bakers (id),
	PRIMARY KEY (cake_id, baker_id)
);
CREATE TABLE workers (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	manager_id INTEGER REFERENCES workers (id)
);
`

// openSQLite returns a driver over a fresh in-memory database holding
// the bakery schema and the given statements.
func openSQLite(t testing.TB, stmts ...string) *sql.Driver {
	t.Helper()
	db, err := stdsql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()
	_, err = db.ExecContext(ctx, bakerySchema)
	require.NoError(t, err)
	for _, s := range stmts {
		_, err := db.ExecContext(ctx, s)
		require.NoError(t, err, s)
	}
	return sql.OpenDB(dialect.SQLite, db)
}

// countingConn records the statements sent through a connection and
// their arguments.
type countingConn struct {
	dialect.Conn
	queries []string
	args    [][]any
}

func (c *countingConn) record(query string, args any) {
	c.queries = append(c.queries, query)
	argv, _ := args.([]any)
	c.args = append(c.args, argv)
}

func (c *countingConn) reset() {
	c.queries, c.args = nil, nil
}

func (c *countingConn) Query(ctx context.Context, query string, args, v any) error {
	c.record(query, args)
	return c.Conn.Query(ctx, query, args, v)
}

func (c *countingConn) Exec(ctx context.Context, query string, args, v any) error {
	c.record(query, args)
	return c.Conn.Exec(ctx, query, args, v)
}
