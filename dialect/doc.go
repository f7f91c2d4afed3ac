// Package dialect provides database dialect abstraction for relkit.
//
// This package defines the interfaces used to execute statements against a
// database, and the Dialect capability that selects per-backend rendering
// conventions (identifier quoting, bind markers, row limiting).
//
// # Supported Dialects
//
//   - Postgres: PostgreSQL (lib/pq or pgx)
//   - MySQL: MySQL/MariaDB
//   - SQLite: SQLite (modernc.org/sqlite)
//   - SQLServer: Microsoft SQL Server
//
// # Driver Interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// The Tx interface adds Commit and Rollback. Both Driver and Tx implement
// Conn, which is what the executors in dialect/sql/sqlgraph accept, so a Tx
// can be passed wherever several statements must observe the same snapshot.
//
// # Rendering
//
// A Dialect is resolved once from the driver name:
//
//	d := dialect.Get(drv.Dialect())
//	d.Quote("users")    // "users" or `users` or [users]
//	d.Placeholder(2)    // $2, ? or @p2
//
// # Sub-packages
//
//   - dialect/sql: SQL statement builder, database/sql driver, statistics
//   - dialect/sql/sqlgraph: multi-entity selects, eager loading, pagination
package dialect
