// Package reputation computes review weights. Weights are advisory and
// derived: they are recomputed from current facts on every read and never
// stored. This is the only place in the codebase where monetary amounts are
// converted to floating point.
package reputation

const (
	amountScale     = 1000.0
	minAmountFactor = 0.1
	maxAmountFactor = 10.0

	ageScaleDays = 365.0
	minAgeFactor = 0.5
	maxAgeFactor = 3.0
)

// ComputeWeight converts order and account facts into a review-weighting
// scalar: weight = clamp(amount/1000, 0.1, 10) * clamp(ageDays/365, 0.5, 3).
// Clamping bounds the influence of any single very-large order or very-old
// account so a handful of reviews cannot dominate a guide's score.
//
// historicalScore is part of the calculator's inputs for score blending by
// callers; it does not affect the weight itself.
func ComputeWeight(orderAmount, historicalScore float64, accountAgeDays int) float64 {
	amountFactor := clamp(orderAmount/amountScale, minAmountFactor, maxAmountFactor)
	ageFactor := clamp(float64(accountAgeDays)/ageScaleDays, minAgeFactor, maxAgeFactor)
	return amountFactor * ageFactor
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
