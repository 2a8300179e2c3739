// Package stake maps a guide's staked collateral to a concurrent-order
// capacity and enforces it on order acceptance.
package stake

import "github.com/shopspring/decimal"

// Tier is a collateral bracket. Thresholds are inclusive lower bounds: a
// stake of exactly 2000 resolves to Premium.
type Tier string

const (
	TierStandard   Tier = "standard"
	TierPremium    Tier = "premium"
	TierEnterprise Tier = "enterprise"
)

// tierTable holds the tiers in descending threshold order so TierFor can
// return the highest tier whose minimum does not exceed the stake.
var tierTable = []struct {
	tier     Tier
	minStake decimal.Decimal
	orderCap int
}{
	{TierEnterprise, decimal.NewFromInt(10000), 10},
	{TierPremium, decimal.NewFromInt(2000), 3},
	{TierStandard, decimal.NewFromInt(500), 1},
}

// MinStake returns the inclusive minimum collateral for the tier.
func (t Tier) MinStake() decimal.Decimal {
	for _, row := range tierTable {
		if row.tier == t {
			return row.minStake
		}
	}
	return decimal.Zero
}

// OrderCap returns the number of concurrently held orders the tier allows.
func (t Tier) OrderCap() int {
	for _, row := range tierTable {
		if row.tier == t {
			return row.orderCap
		}
	}
	return 0
}

// TierFor resolves the highest tier whose minimum stake does not exceed the
// given amount. It returns false when the stake is below the lowest
// threshold; such a guide has no tier and cannot accept orders.
func TierFor(stakeAmount decimal.Decimal) (Tier, bool) {
	for _, row := range tierTable {
		if stakeAmount.GreaterThanOrEqual(row.minStake) {
			return row.tier, true
		}
	}
	return "", false
}

// OrderCapFor returns the concurrent-order capacity implied by the stake,
// zero when the stake qualifies for no tier.
func OrderCapFor(stakeAmount decimal.Decimal) int {
	tier, ok := TierFor(stakeAmount)
	if !ok {
		return 0
	}
	return tier.OrderCap()
}
