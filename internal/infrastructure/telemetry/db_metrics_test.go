package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newManualMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return reader, provider
}

func collectMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) (metricdata.Metrics, bool) {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func TestNewDBMetrics_AppliesDefaults(t *testing.T) {
	_, provider := newManualMeter(t)

	metrics, err := NewDBMetrics(provider.Meter("db.client"), DBMetricsConfig{Enabled: true}, nil)
	require.NoError(t, err)
	require.NotNil(t, metrics)

	assert.Equal(t, 200*time.Millisecond, metrics.config.SlowQueryThreshold)
	assert.Equal(t, 15*time.Second, metrics.config.PoolStatsInterval)
	assert.NotNil(t, metrics.logger)
}

func TestDBMetrics_RecordQuery(t *testing.T) {
	reader, provider := newManualMeter(t)

	metrics, err := NewDBMetrics(provider.Meter("db.client"), DBMetricsConfig{
		Enabled:            true,
		SlowQueryThreshold: 100 * time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordQuery(ctx, "select", "stocks", 5*time.Millisecond)
	metrics.RecordQuery(ctx, "INSERT", "ledger_entries", 2*time.Millisecond)

	total, ok := collectMetric(t, reader, "db_query_total")
	require.True(t, ok, "db_query_total should be exported")

	sum, ok := total.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var count int64
	for _, dp := range sum.DataPoints {
		count += dp.Value
	}
	assert.Equal(t, int64(2), count)
}

func TestDBMetrics_SlowQueryCounter(t *testing.T) {
	reader, provider := newManualMeter(t)

	metrics, err := NewDBMetrics(provider.Meter("db.client"), DBMetricsConfig{
		Enabled:            true,
		SlowQueryThreshold: 50 * time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordQuery(ctx, "SELECT", "stocks", 10*time.Millisecond)
	metrics.RecordQuery(ctx, "SELECT", "ledger_entries", 300*time.Millisecond)

	slow, ok := collectMetric(t, reader, "db_slow_query_total")
	require.True(t, ok, "db_slow_query_total should be exported")

	sum, ok := slow.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(1), sum.DataPoints[0].Value)
}

func TestDBMetrics_PoolStats(t *testing.T) {
	reader, provider := newManualMeter(t)

	metrics, err := NewDBMetrics(provider.Meter("db.client"), DBMetricsConfig{Enabled: true}, zap.NewNop())
	require.NoError(t, err)

	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	metrics.SetSQLDB(sqlDB)
	metrics.collectPoolStats(context.Background())

	maxConns, ok := collectMetric(t, reader, "db_pool_connections_max")
	require.True(t, ok, "db_pool_connections_max should be exported")
	gauge, ok := maxConns.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.NotEmpty(t, gauge.DataPoints)
}

func TestDBMetrics_StopIdempotent(t *testing.T) {
	_, provider := newManualMeter(t)

	metrics, err := NewDBMetrics(provider.Meter("db.client"), DBMetricsConfig{Enabled: true}, zap.NewNop())
	require.NoError(t, err)

	metrics.Stop()
	metrics.Stop()
}

func TestDBMetricsPlugin_RecordsQueries(t *testing.T) {
	reader, provider := newManualMeter(t)

	metrics, err := NewDBMetrics(provider.Meter("db.client"), DBMetricsConfig{Enabled: true}, zap.NewNop())
	require.NoError(t, err)

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, gdb.Use(NewDBMetricsPlugin(metrics, zap.NewNop())))

	mock.ExpectQuery("SELECT (.+) FROM stocks").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	var count int64
	require.NoError(t, gdb.Raw("SELECT count(*) FROM stocks WHERE warehouse_id = 1").Scan(&count).Error)

	total, ok := collectMetric(t, reader, "db_query_total")
	require.True(t, ok, "plugin should record query metrics")
	sum, ok := total.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.NotEmpty(t, sum.DataPoints)
}

func TestDetectOperationType(t *testing.T) {
	cases := map[string]string{
		"SELECT * FROM stocks":                    "SELECT",
		"  select 1":                              "SELECT",
		"INSERT INTO ledger_entries VALUES (1)":   "INSERT",
		"update stocks set qty = 0":               "UPDATE",
		"DELETE FROM vendor_return_tasks":         "DELETE",
		"TRUNCATE stocks":                         "OTHER",
		"WITH diff AS (SELECT 1) SELECT * FROM d": "OTHER",
	}
	for sql, want := range cases {
		assert.Equal(t, want, detectOperationType(sql), "sql %q", sql)
	}
}
