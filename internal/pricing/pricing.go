package pricing

import (
	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept on every amount.
const Scale = 2

// Line is one priced entry considered by ComputeTotal.
type Line struct {
	Price    decimal.Decimal
	Included bool
}

// ComputeTotal sums the included prices and rounds half away from zero.
// Negative prices are summed as-is.
func ComputeTotal(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		if !line.Included {
			continue
		}
		total = total.Add(line.Price)
	}
	return total.Round(Scale)
}

// Included marks every price as included.
func Included(prices ...decimal.Decimal) []Line {
	lines := make([]Line, 0, len(prices))
	for _, price := range prices {
		lines = append(lines, Line{Price: price, Included: true})
	}
	return lines
}

// Normalize rounds an externally supplied price to the storage scale.
func Normalize(price decimal.Decimal) decimal.Decimal {
	return price.Round(Scale)
}

// Format renders an amount with exactly Scale fractional digits.
func Format(amount decimal.Decimal) string {
	return amount.StringFixed(Scale)
}
