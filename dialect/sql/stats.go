package sql

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/relkit/relkit/dialect"
)

// Statement kinds recorded by StatsDriver. They double as the "op"
// label of the Prometheus collectors.
const (
	opQuery = "query"
	opExec  = "exec"
)

// QueryStats counts the statements run through a StatsDriver.
type QueryStats struct {
	queries  atomic.Int64
	execs    atomic.Int64
	duration atomic.Int64 // nanoseconds
	slow     atomic.Int64
	errors   atomic.Int64
}

// Stats returns a snapshot of the counters.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.queries.Load(),
		TotalExecs:    s.execs.Load(),
		TotalDuration: time.Duration(s.duration.Load()),
		SlowQueries:   s.slow.Load(),
		Errors:        s.errors.Load(),
	}
}

// Reset zeroes the counters.
func (s *QueryStats) Reset() {
	for _, c := range []*atomic.Int64{&s.queries, &s.execs, &s.duration, &s.slow, &s.errors} {
		c.Store(0)
	}
}

func (s *QueryStats) add(op string, d time.Duration, failed, slow bool) {
	if op == opQuery {
		s.queries.Add(1)
	} else {
		s.execs.Add(1)
	}
	s.duration.Add(int64(d))
	if failed {
		s.errors.Add(1)
	}
	if slow {
		s.slow.Add(1)
	}
}

// StatsSnapshot is a point-in-time copy of QueryStats.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

// AvgQueryDuration returns the mean statement duration.
func (s StatsSnapshot) AvgQueryDuration() time.Duration {
	total := s.TotalQueries + s.TotalExecs
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"queries=%d execs=%d duration=%s avg=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.TotalDuration, s.AvgQueryDuration(),
		s.SlowQueries, s.Errors,
	)
}

// SlowQueryHook is called for every statement slower than the threshold.
type SlowQueryHook func(ctx context.Context, query string, args []any, duration time.Duration)

// StatsDriver wraps a dialect.Driver and records every statement run on it
// or on its transactions.
type StatsDriver struct {
	dialect.Driver
	stats     *QueryStats
	metrics   *statsMetrics
	threshold atomic.Int64 // nanoseconds
	slowHook  SlowQueryHook
	log       *slog.Logger
}

var _ dialect.Driver = (*StatsDriver)(nil)

// statsMetrics mirrors QueryStats as Prometheus collectors.
type statsMetrics struct {
	statements *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	errors     *prometheus.CounterVec
	slow       prometheus.Counter
}

func (m *statsMetrics) observe(op string, d time.Duration, failed, slow bool) {
	m.statements.WithLabelValues(op).Inc()
	m.duration.WithLabelValues(op).Observe(d.Seconds())
	if failed {
		m.errors.WithLabelValues(op).Inc()
	}
	if slow {
		m.slow.Inc()
	}
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the duration above which a statement counts as
// slow. The default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.threshold.Store(int64(d))
	}
}

// WithSlowQueryHook sets the callback for slow statements.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) {
		s.slowHook = hook
	}
}

// WithSlowQueryLog logs slow statements at warn level on the default
// logger.
func WithSlowQueryLog() StatsOption {
	return WithSlowQueryHook(func(ctx context.Context, query string, args []any, duration time.Duration) {
		slog.WarnContext(ctx, "slow query detected", "duration", duration, "query", query, "args", args)
	})
}

// WithStatementLog logs every statement at debug level.
func WithStatementLog(log *slog.Logger) StatsOption {
	return func(s *StatsDriver) {
		s.log = log
	}
}

// WithMetrics registers Prometheus collectors for the driver statistics
// with the given registerer. Statement counters and durations are labeled
// by operation ("query" or "exec").
func WithMetrics(reg prometheus.Registerer) StatsOption {
	return func(s *StatsDriver) {
		f := promauto.With(reg)
		s.metrics = &statsMetrics{
			statements: f.NewCounterVec(prometheus.CounterOpts{
				Name: "relkit_sql_statements_total",
				Help: "Total number of SQL statements executed",
			}, []string{"op"}),
			duration: f.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "relkit_sql_statement_duration_seconds",
				Help:    "SQL statement duration in seconds",
				Buckets: prometheus.DefBuckets,
			}, []string{"op"}),
			errors: f.NewCounterVec(prometheus.CounterOpts{
				Name: "relkit_sql_statement_errors_total",
				Help: "Total number of failed SQL statements",
			}, []string{"op"}),
			slow: f.NewCounter(prometheus.CounterOpts{
				Name: "relkit_sql_slow_statements_total",
				Help: "Total number of SQL statements exceeding the slow threshold",
			}),
		}
	}
}

// NewStatsDriver wraps drv with statement statistics.
//
//	drv := sql.NewStatsDriver(sql.OpenDB(dialect.Postgres, db),
//	    sql.WithSlowThreshold(200*time.Millisecond),
//	    sql.WithSlowQueryLog(),
//	)
//	cakes, err := sqlgraph.NewLoader(reg, cake).All(ctx, drv)
//	fmt.Println(drv.QueryStats().Stats())
func NewStatsDriver(drv dialect.Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{Driver: drv, stats: &QueryStats{}}
	s.threshold.Store(int64(100 * time.Millisecond))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryStats returns the live counters.
func (d *StatsDriver) QueryStats() *QueryStats {
	return d.stats
}

// SlowThreshold returns the current slow statement threshold.
func (d *StatsDriver) SlowThreshold() time.Duration {
	return time.Duration(d.threshold.Load())
}

// SetSlowThreshold updates the slow statement threshold.
func (d *StatsDriver) SetSlowThreshold(threshold time.Duration) {
	d.threshold.Store(int64(threshold))
}

// Query runs the query on the wrapped driver and records it.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.record(ctx, opQuery, query, args, start, err)
	return err
}

// Exec runs the statement on the wrapped driver and records it.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	d.record(ctx, opExec, query, args, start, err)
	return err
}

func (d *StatsDriver) record(ctx context.Context, op, query string, args any, start time.Time, err error) {
	elapsed := time.Since(start)
	slow := elapsed > d.SlowThreshold()
	d.stats.add(op, elapsed, err != nil, slow)
	if d.metrics != nil {
		d.metrics.observe(op, elapsed, err != nil, slow)
	}
	argv, _ := args.([]any)
	if d.log != nil {
		d.log.DebugContext(ctx, "sql: "+op, "query", query, "args", argv, "duration", elapsed, "error", err)
	}
	if slow && d.slowHook != nil {
		d.slowHook(ctx, query, argv, elapsed)
	}
}

// Tx starts a transaction whose statements are recorded too.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	if d.log != nil {
		d.log.DebugContext(ctx, "sql: begin")
	}
	return &StatsTx{Tx: tx, driver: d}, nil
}

// StatsTx is a transaction started by a StatsDriver.
type StatsTx struct {
	dialect.Tx
	driver *StatsDriver
}

var _ dialect.Tx = (*StatsTx)(nil)

// Query runs the query in the transaction and records it.
func (tx *StatsTx) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Query(ctx, query, args, v)
	tx.driver.record(ctx, opQuery, query, args, start, err)
	return err
}

// Exec runs the statement in the transaction and records it.
func (tx *StatsTx) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Exec(ctx, query, args, v)
	tx.driver.record(ctx, opExec, query, args, start, err)
	return err
}

// Commit commits the transaction.
func (tx *StatsTx) Commit() error {
	err := tx.Tx.Commit()
	tx.logEnd("commit", err)
	return err
}

// Rollback aborts the transaction.
func (tx *StatsTx) Rollback() error {
	err := tx.Tx.Rollback()
	tx.logEnd("rollback", err)
	return err
}

func (tx *StatsTx) logEnd(op string, err error) {
	if tx.driver.log != nil {
		tx.driver.log.Debug("sql: "+op, "error", err)
	}
}
