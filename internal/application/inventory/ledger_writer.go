package inventory

import (
	"context"

	"github.com/wms/backend/internal/domain/inventory"
)

// LedgerWriter appends entries to the stock ledger. It owns reason
// canonicalisation and ref truncation; idempotency itself is enforced by
// the ledger's unique fingerprint constraint.
type LedgerWriter struct{}

// NewLedgerWriter creates a LedgerWriter.
func NewLedgerWriter() LedgerWriter {
	return LedgerWriter{}
}

// Write inserts one ledger entry. Returns the new row ID with
// idempotent=false on a fresh insert, or 0 with idempotent=true when the
// fingerprint already exists; the existing row then has its NULL auxiliary
// columns back-filled from this entry.
func (LedgerWriter) Write(ctx context.Context, ledger inventory.LedgerRepository, entry *inventory.LedgerEntry) (int64, bool, error) {
	entry.Ref = inventory.TruncateRef(entry.Ref)
	canon := string(inventory.CanonicalReason(entry.Reason))
	entry.ReasonCanon = &canon

	id, err := ledger.Insert(ctx, entry)
	if err != nil {
		return 0, false, err
	}
	if id == 0 {
		return 0, true, nil
	}
	return id, false, nil
}
