package ledgerservice

import "math"

// ToMinorUnits converts a decimal display amount (e.g. rupees, dollars)
// into the integer minor-unit representation the ledger core requires.
func ToMinorUnits(amount float64, scale int64) int64 {
	return int64(math.Round(amount * float64(scale)))
}

// FromMinorUnits converts a ledger core amount back into a decimal display
// amount for API responses.
func FromMinorUnits(minor int64, scale int64) float64 {
	return math.Round(float64(minor)/float64(scale)*100) / 100
}
