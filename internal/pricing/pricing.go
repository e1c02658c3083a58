// Package pricing implements the name and namespace price functions of
// §4.2: a namespace-parameterized exponential curve for names, and a flat
// length-tiered table for namespaces themselves.
package pricing

import "github.com/namesys/stateengine/internal/b40"

// NameCostUnit is the smallest unit of burned value a name's price is
// quoted in (100 satoshi-equivalents on mainset).
const NameCostUnit = 100

// Mainset namespace price tiers, in NameCostUnit-denominated base units as
// described in §4.2.
const (
	NamespaceCost1Char    = 40000
	NamespaceCost23Char   = 4000
	NamespaceCost4567Char = 400
	NamespaceCost8UpChar  = 40
)

// TestsetNamespaceCost is the flat price charged for any namespace length
// on the low-cost test network.
const TestsetNamespaceCost = 10000

// NamespacePrice returns the price, in base units, of registering the
// namespace identified by nsID, given its length and whether the engine is
// running on the test network.
func NamespacePrice(nsID string, testset bool) uint64 {
	if testset {
		return TestsetNamespaceCost
	}
	switch n := len(nsID); {
	case n == 1:
		return NamespaceCost1Char
	case n >= 2 && n <= 3:
		return NamespaceCost23Char
	case n >= 4 && n <= 7:
		return NamespaceCost4567Char
	default:
		return NamespaceCost8UpChar
	}
}

// NamespaceParams is the subset of a namespace record's fields the name
// price function depends on.
type NamespaceParams struct {
	Coeff            uint8
	Base             uint8
	Buckets          [16]uint8
	NonalphaDiscount uint8
	NoVowelDiscount  uint8
}

// NamePrice computes the price of registering name (the local part only,
// without its namespace suffix) under the given namespace's parameters, per
// the formula in §4.2:
//
//	bucket    = buckets[min(len(name)-1, 15)]
//	discount  = max(1, no_vowel_discount if no vowels, nonalpha_discount if has digit/-/_)
//	price     = max(NAME_COST_UNIT, floor(coeff * base^bucket / discount) * NAME_COST_UNIT)
func NamePrice(name string, p NamespaceParams) uint64 {
	idx := len(name) - 1
	if idx > 15 {
		idx = 15
	}
	if idx < 0 {
		idx = 0
	}
	bucketExp := p.Buckets[idx]

	discount := uint64(1)
	if b40.HasNoVowels(name) && p.NoVowelDiscount > discount {
		discount = uint64(p.NoVowelDiscount)
	}
	if b40.HasNonAlpha(name) && uint64(p.NonalphaDiscount) > discount {
		discount = uint64(p.NonalphaDiscount)
	}

	base := pow(uint64(p.Base), uint64(bucketExp))
	raw := uint64(p.Coeff) * base / discount

	price := raw * NameCostUnit
	if price < NameCostUnit {
		price = NameCostUnit
	}
	return price
}

func pow(base, exp uint64) uint64 {
	result := uint64(1)
	for i := uint64(0); i < exp; i++ {
		result *= base
	}
	return result
}
