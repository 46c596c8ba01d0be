package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
)

// newMockDB creates a GORM connection backed by sqlmock
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func testEntry() *inventory.LedgerEntry {
	sub := inventory.SubReasonOrderShip
	return &inventory.LedgerEntry{
		Scope:       inventory.ScopeProd,
		WarehouseID: 1,
		ItemID:      42,
		BatchCode:   inventory.BatchCodePtr("LOT1"),
		Reason:      inventory.RawReasonShipment,
		SubReason:   &sub,
		Ref:         "SO-1001",
		RefLine:     1,
		Delta:       -5,
		AfterQty:    15,
		OccurredAt:  time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
	}
}

func TestGormLedgerRepository_Insert(t *testing.T) {
	t.Run("appends a new entry and returns its ID", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormLedgerRepository(db)

		mock.ExpectQuery(`INSERT INTO "stock_ledger" .* ON CONFLICT \("scope","warehouse_id","item_id","batch_code_key","reason","ref","ref_line"\) DO NOTHING RETURNING`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

		id, err := repo.Insert(context.Background(), testEntry())

		assert.NoError(t, err)
		assert.Equal(t, int64(7), id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("replayed fingerprint back-fills and returns zero", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormLedgerRepository(db)

		mock.ExpectQuery(`INSERT INTO "stock_ledger" .* DO NOTHING RETURNING`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectExec(`UPDATE stock_ledger SET\s+reason_canon\s+= COALESCE\(reason_canon, .*`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		id, err := repo.Insert(context.Background(), testEntry())

		assert.NoError(t, err)
		assert.Zero(t, id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unexpected unique violation maps to an integrity error", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormLedgerRepository(db)

		mock.ExpectQuery(`INSERT INTO "stock_ledger" .* DO NOTHING RETURNING`).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "stock_ledger_pkey"})

		_, err := repo.Insert(context.Background(), testEntry())

		var integrity *inventory.IntegrityError
		require.ErrorAs(t, err, &integrity)
		assert.ErrorIs(t, err, shared.ErrIntegrity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormLedgerRepository_FindByFingerprint(t *testing.T) {
	t.Run("missing fingerprint maps to not found", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormLedgerRepository(db)

		mock.ExpectQuery(`SELECT \* FROM "stock_ledger" WHERE scope = .*`).
			WillReturnError(gorm.ErrRecordNotFound)

		entry, err := repo.FindByFingerprint(context.Background(), testEntry().Fingerprint())

		assert.Nil(t, entry)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormLedgerRepository_SumShippedByRef(t *testing.T) {
	t.Run("sums across all batch keys when none is given", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormLedgerRepository(db)

		mock.ExpectQuery(`SELECT COALESCE\(SUM\(delta\), 0\) FROM "stock_ledger" WHERE scope = .*`).
			WithArgs("PROD", "SO-1001", int64(1), int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(int64(-5)))

		total, err := repo.SumShippedByRef(context.Background(), inventory.ScopeProd, "SO-1001", 1, 42, nil)

		assert.NoError(t, err)
		assert.Equal(t, int64(-5), total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("narrows to one batch key when given", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormLedgerRepository(db)

		key := "LOT1"
		mock.ExpectQuery(`SELECT COALESCE\(SUM\(delta\), 0\) FROM "stock_ledger" WHERE .*batch_code_key = .*`).
			WithArgs("PROD", "SO-1001", int64(1), int64(42), key).
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(int64(-3)))

		total, err := repo.SumShippedByRef(context.Background(), inventory.ScopeProd, "SO-1001", 1, 42, &key)

		assert.NoError(t, err)
		assert.Equal(t, int64(-3), total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
