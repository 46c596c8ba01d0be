package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	appinv "github.com/wms/backend/internal/application/inventory"
	"github.com/wms/backend/internal/domain/inventory"
)

func TestGormTransactionScope_Execute(t *testing.T) {
	t.Run("commits when the function succeeds", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		scope := NewGormTransactionScope(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT COALESCE\(SUM\(qty\), 0\) FROM "stocks"`).
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(int64(0)))
		mock.ExpectCommit()

		err := scope.Execute(context.Background(), func(repos appinv.TransactionalRepositories) error {
			_, err := repos.StockRepo().TotalQty(context.Background(), inventory.ScopeProd)
			return err
		})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when the function fails", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		scope := NewGormTransactionScope(db)

		boom := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := scope.Execute(context.Background(), func(repos appinv.TransactionalRepositories) error {
			return boom
		})

		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormTransactionScope_Probe(t *testing.T) {
	t.Run("rolls back even when the function succeeds", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		scope := NewGormTransactionScope(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT COALESCE\(SUM\(qty\), 0\) FROM "stocks"`).
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(int64(42)))
		mock.ExpectRollback()

		var seen int64
		err := scope.Probe(context.Background(), func(repos appinv.TransactionalRepositories) error {
			total, err := repos.StockRepo().TotalQty(context.Background(), inventory.ScopeProd)
			seen = total
			return err
		})

		assert.NoError(t, err)
		assert.Equal(t, int64(42), seen)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("surfaces the function's own error", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		scope := NewGormTransactionScope(db)

		boom := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := scope.Probe(context.Background(), func(repos appinv.TransactionalRepositories) error {
			return boom
		})

		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
