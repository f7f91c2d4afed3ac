package dialect

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// Dialect names for external usage.
const (
	MySQL     = "mysql"
	SQLite    = "sqlite"
	Postgres  = "postgres"
	SQLServer = "sqlserver"
)

// ExecQuerier wraps the 2 database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for relkit clients.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	// The provided context is used until the transaction is committed or rolled back.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	ExecQuerier
	driver.Tx
	// Dialect returns the dialect name of the driver that opened the transaction.
	Dialect() string
}

// Conn is implemented by both Driver and Tx. Statement executors accept
// a Conn, so the caller decides whether a group of statements shares a
// transaction.
type Conn interface {
	ExecQuerier
	Dialect() string
}

// Dialect is the SQL rendering capability of a backend. One implementation
// exists per supported database and is selected once per driver.
type Dialect interface {
	// Name returns the dialect name, one of the constants above.
	Name() string
	// Quote quotes a single identifier.
	Quote(ident string) string
	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder(n int) string
	// LimitOffset renders the row-limiting clause. A negative limit means
	// no limit. ordered reports whether the statement has an ORDER BY.
	LimitOffset(limit, offset int, ordered bool) string
}

// Get returns the Dialect registered for the given name. Driver names
// with a known prefix (e.g. "postgres+otel") resolve to the base dialect.
// Get panics on unknown names, as it can only happen on misconfiguration.
func Get(name string) Dialect {
	switch {
	case strings.HasPrefix(name, Postgres), name == "pgx":
		return postgres{}
	case strings.HasPrefix(name, MySQL):
		return mysql{}
	case strings.HasPrefix(name, "sqlite"):
		return sqlite{}
	case strings.HasPrefix(name, SQLServer), name == "mssql":
		return sqlServer{}
	}
	panic(fmt.Sprintf("dialect: unknown dialect %q", name))
}

type mysql struct{}

func (mysql) Name() string { return MySQL }

func (mysql) Quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func (mysql) Placeholder(int) string { return "?" }

func (mysql) LimitOffset(limit, offset int, _ bool) string {
	switch {
	case limit >= 0 && offset > 0:
		return " LIMIT " + strconv.Itoa(limit) + " OFFSET " + strconv.Itoa(offset)
	case limit >= 0:
		return " LIMIT " + strconv.Itoa(limit)
	case offset > 0:
		// MySQL has no OFFSET without LIMIT.
		return " LIMIT 18446744073709551615 OFFSET " + strconv.Itoa(offset)
	}
	return ""
}

type sqlite struct{}

func (sqlite) Name() string { return SQLite }

func (sqlite) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (sqlite) Placeholder(int) string { return "?" }

func (sqlite) LimitOffset(limit, offset int, _ bool) string {
	var b strings.Builder
	switch {
	case limit >= 0:
		b.WriteString(" LIMIT " + strconv.Itoa(limit))
	case offset > 0:
		b.WriteString(" LIMIT -1")
	}
	if offset > 0 {
		b.WriteString(" OFFSET " + strconv.Itoa(offset))
	}
	return b.String()
}

type postgres struct{}

func (postgres) Name() string { return Postgres }

func (postgres) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (postgres) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (postgres) LimitOffset(limit, offset int, _ bool) string {
	var b strings.Builder
	if limit >= 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(limit))
	}
	if offset > 0 {
		b.WriteString(" OFFSET " + strconv.Itoa(offset))
	}
	return b.String()
}

type sqlServer struct{}

func (sqlServer) Name() string { return SQLServer }

func (sqlServer) Quote(ident string) string {
	return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
}

func (sqlServer) Placeholder(n int) string { return "@p" + strconv.Itoa(n) }

// LimitOffset uses OFFSET-FETCH, which requires an ORDER BY clause.
func (sqlServer) LimitOffset(limit, offset int, ordered bool) string {
	if limit < 0 && offset <= 0 {
		return ""
	}
	var b strings.Builder
	if !ordered {
		b.WriteString(" ORDER BY (SELECT NULL)")
	}
	b.WriteString(" OFFSET " + strconv.Itoa(max(offset, 0)) + " ROWS")
	if limit >= 0 {
		b.WriteString(" FETCH NEXT " + strconv.Itoa(limit) + " ROWS ONLY")
	}
	return b.String()
}
