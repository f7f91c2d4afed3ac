package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/relkit/relkit/dialect"
)

type (
	// Result is an alias to sql.Result.
	Result = sql.Result
	// TxOptions holds the transaction options to be used in DB.BeginTx.
	TxOptions = sql.TxOptions
)

// Driver is a dialect.Driver over a *sql.DB.
type Driver struct {
	Conn
}

var _ dialect.Driver = (*Driver)(nil)

// NewDriver creates a new Driver with the given Conn.
func NewDriver(c Conn) *Driver {
	return &Driver{Conn: c}
}

// Open opens a database with the driver registered under name and wraps
// it in a Driver. The dialect is derived from the driver name, so "pgx"
// and "postgres" both render PostgreSQL.
func Open(name, source string) (*Driver, error) {
	db, err := sql.Open(name, source)
	if err != nil {
		return nil, err
	}
	return OpenDB(name, db), nil
}

// OpenDB wraps db with a Driver rendering for the named dialect.
func OpenDB(name string, db *sql.DB) *Driver {
	return NewDriver(Conn{ExecQuerier: db, dialect: dialectName(name)})
}

// dialectName resolves driver names like "pgx" or "postgres+otel" to the
// dialect they speak. Unknown names are kept as given.
func dialectName(name string) string {
	switch name {
	case "pgx":
		return dialect.Postgres
	case "mssql":
		return dialect.SQLServer
	case "sqlite3":
		return dialect.SQLite
	}
	for _, d := range []string{dialect.MySQL, dialect.SQLite, dialect.Postgres, dialect.SQLServer} {
		if strings.HasPrefix(name, d) {
			return d
		}
	}
	return name
}

// DB returns the underlying *sql.DB.
func (d *Driver) DB() *sql.DB {
	return d.ExecQuerier.(*sql.DB)
}

// Tx starts a transaction with the default options.
func (d *Driver) Tx(ctx context.Context) (dialect.Tx, error) {
	return d.BeginTx(ctx, nil)
}

// BeginTx starts a transaction with the given options. Statements on the
// returned Tx render for the driver's dialect.
func (d *Driver) BeginTx(ctx context.Context, opts *TxOptions) (dialect.Tx, error) {
	tx, err := d.DB().BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: begin: %w", err)
	}
	return &Tx{Conn: Conn{ExecQuerier: tx, dialect: d.dialect}, Tx: tx}, nil
}

// Close closes the underlying database.
func (d *Driver) Close() error { return d.DB().Close() }

// Tx is a dialect.Tx over a *sql.Tx.
type Tx struct {
	Conn
	driver.Tx
}

var _ dialect.Tx = (*Tx)(nil)

// ExecQuerier is the subset of *sql.DB, *sql.Tx and *sql.Conn statements
// run on.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn adapts an ExecQuerier to dialect.ExecQuerier. Arguments are passed
// as []any (nil means none). Exec stores its result in a *Result when one
// is given; Query stores the rows in a *Rows.
type Conn struct {
	ExecQuerier
	dialect string
}

// Dialect returns the dialect statements on the connection render for.
func (c Conn) Dialect() string { return c.dialect }

// Exec implements dialect.ExecQuerier.
func (c Conn) Exec(ctx context.Context, query string, args, v any) error {
	dst, ok := v.(*Result)
	if !ok && v != nil {
		return fmt.Errorf("dialect/sql: exec: want *sql.Result, got %T", v)
	}
	argv, err := argList(args)
	if err != nil {
		return err
	}
	res, err := c.ExecContext(ctx, query, argv...)
	if err != nil {
		return fmt.Errorf("dialect/sql: exec: %w", err)
	}
	if dst != nil {
		*dst = res
	}
	return nil
}

// Query implements dialect.ExecQuerier.
func (c Conn) Query(ctx context.Context, query string, args, v any) error {
	rows, ok := v.(*Rows)
	if !ok {
		return fmt.Errorf("dialect/sql: query: want *sql.Rows, got %T", v)
	}
	argv, err := argList(args)
	if err != nil {
		return err
	}
	r, err := c.QueryContext(ctx, query, argv...)
	if err != nil {
		return fmt.Errorf("dialect/sql: query: %w", err)
	}
	rows.ColumnScanner = r
	return nil
}

func argList(args any) ([]any, error) {
	switch args := args.(type) {
	case nil:
		return nil, nil
	case []any:
		return args, nil
	default:
		return nil, fmt.Errorf("dialect/sql: want []any arguments, got %T", args)
	}
}

// Rows holds the result of Conn.Query.
type Rows struct{ ColumnScanner }

// ColumnScanner is the part of *sql.Rows the row readers use.
type ColumnScanner interface {
	Close() error
	Columns() ([]string, error)
	Err() error
	Next() bool
	Scan(dest ...any) error
}
