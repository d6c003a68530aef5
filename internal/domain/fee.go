package domain

import "math"

// FeeRate is the brokerage commission rate applied to the gross amount of
// every executed order.
const FeeRate = 0.001425

// Fee computes the commission on a gross order amount: floor(gross × rate),
// truncated to a whole currency unit. Gross amounts are never negative, so
// Floor is the same as truncation toward zero.
func Fee(gross float64) float64 {
	return math.Floor(gross * FeeRate)
}
