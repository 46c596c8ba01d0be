package inventory

// Scope separates operational inventory from training/simulation inventory.
// Every slot, ledger entry, and workflow carries one; the two populations
// never mix.
type Scope string

const (
	// ScopeProd is live operational stock.
	ScopeProd Scope = "PROD"
	// ScopeDrill is training stock, fully isolated from PROD.
	ScopeDrill Scope = "DRILL"
)

// IsValid returns true when the scope is one of the known tags
func (s Scope) IsValid() bool {
	return s == ScopeProd || s == ScopeDrill
}

// String implements fmt.Stringer
func (s Scope) String() string {
	return string(s)
}
