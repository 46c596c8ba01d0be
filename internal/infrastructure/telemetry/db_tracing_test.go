package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newSpanRecorder(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, recorder
}

func newMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)
	return gdb, mock
}

// statementWithSpan builds the minimal gorm.DB shape annotateSpan reads.
func statementWithSpan(ctx context.Context, table string, rows int64, dbErr error) *gorm.DB {
	return &gorm.DB{
		Error: dbErr,
		Statement: &gorm.Statement{
			DB:      &gorm.DB{RowsAffected: rows},
			Context: ctx,
			Table:   table,
		},
	}
}

func TestDBTracingPlugin_RegisterOtelGorm_Disabled(t *testing.T) {
	gdb, _ := newMockGorm(t)

	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, plugin.RegisterOtelGorm(gdb))
}

func TestDBTracingPlugin_RegisterOtelGorm_CreatesSpans(t *testing.T) {
	tp, recorder := newSpanRecorder(t)
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	gdb, mock := newMockGorm(t)

	plugin := NewDBTracingPlugin(DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}, zap.NewNop())
	require.NoError(t, plugin.RegisterOtelGorm(gdb))

	mock.ExpectQuery("SELECT (.+) FROM ledger_entries").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	var count int64
	require.NoError(t, gdb.Raw("SELECT count(*) FROM ledger_entries WHERE ref = 'RCV-1001'").Scan(&count).Error)

	assert.NotEmpty(t, recorder.Ended(), "query should have produced a span")
}

func TestAnnotateSpan_TableAndRows(t *testing.T) {
	tp, recorder := newSpanRecorder(t)
	ctx, span := tp.Tracer("test").Start(context.Background(), "db.query")

	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true, SlowQueryThresh: time.Second}, zap.NewNop())
	plugin.annotateSpan(statementWithSpan(ctx, "stocks", 3, nil))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	attrs := spans[0].Attributes()
	var gotTable string
	var gotRows int64
	for _, kv := range attrs {
		switch string(kv.Key) {
		case "db.sql.table":
			gotTable = kv.Value.AsString()
		case "db.rows_affected":
			gotRows = kv.Value.AsInt64()
		}
	}
	assert.Equal(t, "stocks", gotTable)
	assert.Equal(t, int64(3), gotRows)
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestAnnotateSpan_MarksErrors(t *testing.T) {
	tp, recorder := newSpanRecorder(t)
	ctx, span := tp.Tracer("test").Start(context.Background(), "db.query")

	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true, SlowQueryThresh: time.Second}, zap.NewNop())
	plugin.annotateSpan(statementWithSpan(ctx, "ledger_entries", 0, errors.New("duplicate key value violates unique constraint")))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestAnnotateSpan_RecordNotFoundIsNotAnError(t *testing.T) {
	tp, recorder := newSpanRecorder(t)
	ctx, span := tp.Tracer("test").Start(context.Background(), "db.query")

	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true, SlowQueryThresh: time.Second}, zap.NewNop())
	plugin.annotateSpan(statementWithSpan(ctx, "ledger_entries", 0, gorm.ErrRecordNotFound))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestAnnotateSpan_SlowQueryEvent(t *testing.T) {
	tp, recorder := newSpanRecorder(t)
	ctx, span := tp.Tracer("test").Start(context.Background(), "db.query")
	ctx = context.WithValue(ctx, queryStartTimeKey, time.Now().Add(-500*time.Millisecond))

	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true, SlowQueryThresh: 100 * time.Millisecond}, zap.NewNop())
	plugin.annotateSpan(statementWithSpan(ctx, "stocks", 1, nil))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	var slowEvent bool
	for _, ev := range spans[0].Events() {
		if ev.Name == "slow_query_warning" {
			slowEvent = true
		}
	}
	assert.True(t, slowEvent, "queries over the threshold should carry a slow_query_warning event")
}

func TestAnnotateSpan_NilContextIsIgnored(t *testing.T) {
	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true}, zap.NewNop())

	// Must not panic
	plugin.annotateSpan(&gorm.DB{Statement: &gorm.Statement{}})
}
