package inventory

import "time"

// DefaultExpiryToleranceDays bounds the soft consistency check between a
// caller-provided expiry and the shelf-life derivation.
const DefaultExpiryToleranceDays = 3

// ExpiryResolver derives and validates production/expiry dates on inbound
// movements.
type ExpiryResolver struct {
	ToleranceDays int
}

// NewExpiryResolver creates a resolver with the given soft-check tolerance;
// zero or negative falls back to the default.
func NewExpiryResolver(toleranceDays int) ExpiryResolver {
	if toleranceDays <= 0 {
		toleranceDays = DefaultExpiryToleranceDays
	}
	return ExpiryResolver{ToleranceDays: toleranceDays}
}

// ResolvedDates is the resolver's outcome. Discrepancy flags a provided
// expiry that strays from the computed one beyond the tolerance; the write
// still proceeds, the flag exists for audit.
type ResolvedDates struct {
	ProductionDate *time.Time
	ExpiryDate     *time.Time
	Discrepancy    bool
}

// Resolve derives an expiry date from the production date when the item has
// a positive shelf life (days take precedence over calendar months; month
// arithmetic clamps to the last day). A provided expiry wins over the
// derived one. The only hard failure is an expiry before production.
func (r ExpiryResolver) Resolve(item *Item, production, provided *time.Time) (ResolvedDates, error) {
	out := ResolvedDates{
		ProductionDate: DateOnlyPtr(production),
		ExpiryDate:     DateOnlyPtr(provided),
	}

	var computed *time.Time
	if out.ProductionDate != nil && item != nil && item.HasShelfLife() {
		var exp time.Time
		switch {
		case item.ShelfLifeDays != nil && *item.ShelfLifeDays > 0:
			exp = out.ProductionDate.AddDate(0, 0, *item.ShelfLifeDays)
		case item.ShelfLifeMonths != nil && *item.ShelfLifeMonths > 0:
			exp = AddMonthsClamped(*out.ProductionDate, *item.ShelfLifeMonths)
		}
		if !exp.IsZero() {
			computed = &exp
		}
	}

	if out.ExpiryDate == nil {
		out.ExpiryDate = computed
	} else if computed != nil && absDays(*out.ExpiryDate, *computed) > r.ToleranceDays {
		out.Discrepancy = true
	}

	if out.ExpiryDate != nil && out.ProductionDate != nil && out.ExpiryDate.Before(*out.ProductionDate) {
		return ResolvedDates{}, &DateConsistencyError{
			ProductionDate: *out.ProductionDate,
			ExpiryDate:     *out.ExpiryDate,
		}
	}

	return out, nil
}
