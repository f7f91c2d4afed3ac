// Package connect opens relkit drivers by database/sql driver name, with
// every supported driver registered.
package connect

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	_ "modernc.org/sqlite"

	"github.com/relkit/relkit"
	"github.com/relkit/relkit/dialect"
	"github.com/relkit/relkit/dialect/sql"
)

// Options configures the connection pool and statement statistics.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// SlowThreshold enables statement statistics when positive. Statements
	// slower than it are logged at warn level, all others at debug.
	SlowThreshold time.Duration
	// Registerer receives the Prometheus collectors of the statistics
	// driver. It is ignored when SlowThreshold is zero.
	Registerer prometheus.Registerer
	// PingTimeout bounds the connectivity check. Zero means 5 seconds.
	PingTimeout time.Duration
}

// Dialect returns the relkit dialect of a database/sql driver name.
func Dialect(driverName string) (string, error) {
	switch driverName {
	case "postgres", "pgx":
		return dialect.Postgres, nil
	case "mysql":
		return dialect.MySQL, nil
	case "sqlite", "sqlite3":
		return dialect.SQLite, nil
	case "sqlserver", "mssql":
		return dialect.SQLServer, nil
	}
	return "", fmt.Errorf("connect: unsupported driver %q", driverName)
}

// Open opens and pings a database and wraps it in a relkit driver. When
// opts.SlowThreshold is set the result is a *sql.StatsDriver.
func Open(ctx context.Context, driverName, dsn string, opts Options) (dialect.Driver, error) {
	name, err := Dialect(driverName)
	if err != nil {
		return nil, err
	}
	if driverName == "sqlite3" {
		driverName = "sqlite"
	}
	db, err := stdsql.Open(driverName, dsn)
	if err != nil {
		return nil, relkit.NewConnectionError("open", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, relkit.NewConnectionError("ping", err)
	}
	slog.Debug("connect: database ready", "driver", driverName, "dialect", name)

	drv := sql.OpenDB(name, db)
	if opts.SlowThreshold <= 0 {
		return drv, nil
	}
	statsOpts := []sql.StatsOption{
		sql.WithSlowThreshold(opts.SlowThreshold),
		sql.WithSlowQueryLog(),
		sql.WithStatementLog(slog.Default()),
	}
	if opts.Registerer != nil {
		statsOpts = append(statsOpts, sql.WithMetrics(opts.Registerer))
	}
	return sql.NewStatsDriver(drv, statsOpts...), nil
}
