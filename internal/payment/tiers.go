package payment

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/suspectuso/ton-energy/internal/contract"
	"github.com/suspectuso/ton-energy/internal/toncenter"
)

// Energy tiers that can be bought
const (
	Tier25  = 25
	Tier50  = 50
	Tier100 = 100
)

// LookupWindow is how many recent recipient transactions a claim is matched against
const LookupWindow = 50

// Tolerance is the allowed absolute difference between paid and expected TON
var Tolerance = decimal.RequireFromString("0.05")

var priceTable = map[int]decimal.Decimal{
	Tier25:  decimal.RequireFromString("0.5"),
	Tier50:  decimal.RequireFromString("1.0"),
	Tier100: decimal.RequireFromString("2.0"),
}

// Tiers returns the known tiers in ascending order
func Tiers() []int {
	return []int{Tier25, Tier50, Tier100}
}

// IsKnownTier reports whether energy is a purchasable tier
func IsKnownTier(energy int) bool {
	_, ok := priceTable[energy]
	return ok
}

// PriceOf returns the TON price of a tier
func PriceOf(tier int) (decimal.Decimal, bool) {
	p, ok := priceTable[tier]
	return p, ok
}

// TierForAmount returns the tier whose price equals amount exactly
func TierForAmount(amount decimal.Decimal) (int, bool) {
	for _, tier := range Tiers() {
		if priceTable[tier].Equal(amount) {
			return tier, true
		}
	}
	return 0, false
}

// WithinTolerance reports whether actual is within Tolerance of expected
func WithinTolerance(expected, actual decimal.Decimal) bool {
	return actual.Sub(expected).Abs().LessThanOrEqual(Tolerance)
}

// CheckContractPrices verifies the deployed contract charges what the price table expects
func CheckContractPrices(p contract.Prices) error {
	for tier, nano := range p.ByTier() {
		want := priceTable[tier]
		got := toncenter.NanoToTON(nano)
		if !want.Equal(got) {
			return fmt.Errorf("tier %d: contract price %s TON, price table %s TON", tier, got, want)
		}
	}
	return nil
}
