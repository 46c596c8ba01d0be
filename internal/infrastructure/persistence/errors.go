package persistence

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wms/backend/internal/domain/inventory"
)

// Postgres error codes surfaced by the pgx driver.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// translateIntegrityError maps an unexpected unique or foreign-key
// violation onto the domain's IntegrityError. Expected idempotency
// conflicts never reach here: those inserts carry ON CONFLICT clauses.
func translateIntegrityError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgForeignKeyViolation:
			return &inventory.IntegrityError{Err: err}
		}
	}
	return err
}
