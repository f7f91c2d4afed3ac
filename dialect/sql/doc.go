// Package sql provides SQL query building primitives and database dialect abstraction.
//
// This package is the foundation for generating and executing SQL queries across
// different database systems (PostgreSQL, MySQL, SQLite, SQL Server). It provides
// a fluent API for constructing SQL statements.
//
// # Builder Types
//
// The package provides specialized builders for different SQL operations:
//
//   - Builder: Low-level SQL string builder with identifier quoting
//   - Selector: SELECT query builder with joins, predicates, and pagination
//   - InsertBuilder: INSERT statement builder with RETURNING support
//   - UpdateBuilder: UPDATE statement builder with SET and WHERE clauses
//
// # Dialect Support
//
// SQL generation adapts to different database dialects:
//
//	import "github.com/relkit/relkit/dialect"
//
//	// PostgreSQL
//	b := sql.Dialect(dialect.Postgres)
//	b.Select("id", "name").From(sql.Table("users")).Where(sql.EQ("status", "active"))
//
//	// MySQL
//	b := sql.Dialect(dialect.MySQL)
//
// # Predicates
//
// Predicates are functions rendering into the statement builder, so bind
// markers are numbered once per statement:
//
//	sql.EQ("name", "john")              // "name" = $1
//	sql.IsNull("deleted_at")            // "deleted_at" IS NULL
//	sql.In("status", "active", "new")   // "status" IN ($1, $2)
//	sql.InTuples([]string{"a", "b"}, [][]any{{1, 2}, {3, 4}})
//
// Column[T] gives typed predicate methods for a column name:
//
//	sql.Column[int64]("A.id").In(1, 2, 3)
//
// # Joins
//
//	users := sql.Table("users").As("u")
//	posts := sql.Table("posts").As("p")
//	sql.Dialect(dialect.Postgres).
//	    Select(users.C("id"), posts.C("title")).
//	    From(users).
//	    LeftJoin(posts).On(users.C("id"), posts.C("user_id"))
//
// # Pagination and counting
//
//	sel.Limit(10).Offset(20)
//	sql.Count(sel, "sub") // SELECT COUNT(*) FROM (sel without ORDER/LIMIT/OFFSET) AS "sub"
//
// # Drivers
//
// Driver wraps a database/sql DB and implements dialect.Driver. StatsDriver
// decorates any dialect.Driver with statement statistics, Prometheus
// metrics and slog logging.
package sql
