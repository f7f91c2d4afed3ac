package sql

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relkit/relkit/dialect"
)

func TestStatsDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	var slow []string
	drv := NewStatsDriver(OpenDB(dialect.Postgres, db),
		WithSlowThreshold(0),
		WithSlowQueryHook(func(_ context.Context, query string, _ []any, _ time.Duration) {
			slow = append(slow, query)
		}),
		WithMetrics(reg),
	)
	assert.Equal(t, dialect.Postgres, drv.Dialect())

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("UPDATE cakes").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE cakes").WillReturnError(errors.New("boom"))

	rows := &Rows{}
	require.NoError(t, drv.Query(context.Background(), "SELECT 1", []any{}, rows))
	require.NoError(t, rows.Close())
	var res Result
	require.NoError(t, drv.Exec(context.Background(), "UPDATE cakes SET name = $1", []any{"a"}, &res))
	require.Error(t, drv.Exec(context.Background(), "UPDATE cakes SET name = $1", []any{"b"}, &res))
	require.NoError(t, mock.ExpectationsWereMet())

	s := drv.QueryStats().Stats()
	assert.EqualValues(t, 1, s.TotalQueries)
	assert.EqualValues(t, 2, s.TotalExecs)
	assert.EqualValues(t, 1, s.Errors)
	assert.Len(t, slow, 3)
	assert.Contains(t, s.String(), "queries=1 execs=2")

	assert.Equal(t, 1.0, testutil.ToFloat64(drv.metrics.statements.WithLabelValues(opQuery)))
	assert.Equal(t, 2.0, testutil.ToFloat64(drv.metrics.statements.WithLabelValues(opExec)))
	assert.Equal(t, 1.0, testutil.ToFloat64(drv.metrics.errors.WithLabelValues(opExec)))
	assert.Equal(t, 3.0, testutil.ToFloat64(drv.metrics.slow))

	drv.QueryStats().Reset()
	assert.Zero(t, drv.QueryStats().Stats().TotalQueries)
	assert.Zero(t, drv.QueryStats().Stats().AvgQueryDuration())
}

func TestStatsDriverTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	drv := NewStatsDriver(OpenDB(dialect.SQLite, db), WithStatementLog(log))
	drv.SetSlowThreshold(time.Hour)
	require.Equal(t, time.Hour, drv.SlowThreshold())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectRollback()
	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Exec(context.Background(), `INSERT INTO "bakeries" DEFAULT VALUES`, []any{}, nil))
	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())

	s := drv.QueryStats().Stats()
	assert.EqualValues(t, 1, s.TotalExecs)
	assert.Zero(t, s.SlowQueries)
	assert.Equal(t, dialect.SQLite, tx.Dialect())
	for _, msg := range []string{"sql: begin", "sql: exec", "sql: rollback"} {
		assert.Contains(t, buf.String(), "msg=\""+msg+"\"")
	}
}
