package inventory

import (
	"fmt"
	"sort"
	"time"
)

// FefoCandidate is one stock slot eligible for allocation, joined with the
// expiry date of its batch. Candidates are produced from rows the caller has
// already locked FOR UPDATE so the quantities stay stable for the duration
// of the plan.
type FefoCandidate struct {
	StockID    int64
	BatchCode  *string
	ExpiryDate *time.Time
	Available  int64
}

// PlanLeg is one allocation against a single slot. RefLine carries the
// position of the leg within the shipment reference so replays of the same
// plan land on the same ledger fingerprints.
type PlanLeg struct {
	StockID   int64
	BatchCode *string
	Qty       int64
	RefLine   int64
}

// TotalPlanned sums the quantities of all legs.
func TotalPlanned(legs []PlanLeg) int64 {
	var total int64
	for _, leg := range legs {
		total += leg.Qty
	}
	return total
}

// PlanFefo orders candidates first-expiry-first and greedily consumes them
// until need is met. Slots without an expiry date sort last, ties break on
// StockID so two planners over the same rows always produce the same legs.
// Expired candidates (expiry strictly before asOf) are skipped unless
// allowExpired is set.
//
// Ref lines start at startRefLine and increment per leg. When the candidates
// cannot cover need the partial plan is discarded and an
// InsufficientStockError describes the shortage.
func PlanFefo(candidates []FefoCandidate, need int64, asOf time.Time, allowExpired bool, startRefLine int64) ([]PlanLeg, error) {
	if need <= 0 {
		return nil, fmt.Errorf("fefo plan: need must be positive, got %d", need)
	}

	cutoff := DateOnly(asOf)
	eligible := make([]FefoCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Available <= 0 {
			continue
		}
		if !allowExpired && c.ExpiryDate != nil && DateOnly(*c.ExpiryDate).Before(cutoff) {
			continue
		}
		eligible = append(eligible, c)
	}

	sort.Slice(eligible, func(i, j int) bool {
		ei, ej := eligible[i].ExpiryDate, eligible[j].ExpiryDate
		switch {
		case ei != nil && ej != nil:
			if !ei.Equal(*ej) {
				return ei.Before(*ej)
			}
		case ei != nil:
			return true // dated stock leaves before undated stock
		case ej != nil:
			return false
		}
		return eligible[i].StockID < eligible[j].StockID
	})

	legs := make([]PlanLeg, 0, len(eligible))
	remaining := need
	refLine := startRefLine
	for _, c := range eligible {
		if remaining == 0 {
			break
		}
		take := c.Available
		if take > remaining {
			take = remaining
		}
		legs = append(legs, PlanLeg{
			StockID:   c.StockID,
			BatchCode: c.BatchCode,
			Qty:       take,
			RefLine:   refLine,
		})
		remaining -= take
		refLine++
	}

	if remaining > 0 {
		return nil, &InsufficientStockError{
			Required:  need,
			Available: need - remaining,
			Shortage:  remaining,
			Hint:      HintRescanStock,
		}
	}
	return legs, nil
}
