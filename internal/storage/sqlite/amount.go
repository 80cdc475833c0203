package sqlite

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/mmynk/scanbill/internal/storage"
)

// Amounts are stored as REAL. Below maxAmount a float64 still resolves
// cents, so rounding on read recovers the exact value.
var maxAmount = decimal.New(1, 13)

// amount converts d for storage, rejecting values a REAL cannot hold to the cent.
func amount(d decimal.Decimal) (float64, error) {
	if d.Abs().GreaterThan(maxAmount) {
		return 0, fmt.Errorf("%w: %s", storage.ErrInvalidAmount, d.String())
	}
	return d.Round(2).InexactFloat64(), nil
}

// money converts a stored REAL into a cents-precision amount.
func money(f float64) (decimal.Decimal, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return decimal.Zero, fmt.Errorf("%w: stored value %v", storage.ErrInvalidAmount, f)
	}
	return decimal.NewFromFloat(f).Round(2), nil
}
