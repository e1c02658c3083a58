package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamePriceScenario(t *testing.T) {
	// §8 scenario 1: coeff=4, base=4, buckets=[6,5,4,3,3,3,3,2,2,2,1,1,1,1,1,1]
	params := NamespaceParams{
		Coeff:   4,
		Base:    4,
		Buckets: [16]uint8{6, 5, 4, 3, 3, 3, 3, 2, 2, 2, 1, 1, 1, 1, 1, 1},
	}
	assert.Equal(t, uint64(25600), NamePrice("alice", params))
}

func TestNamePriceDiscounts(t *testing.T) {
	params := NamespaceParams{
		Coeff:            4,
		Base:             4,
		Buckets:          [16]uint8{6, 5, 4, 3, 3, 3, 3, 2, 2, 2, 1, 1, 1, 1, 1, 1},
		NonalphaDiscount: 10,
		NoVowelDiscount:  10,
	}
	withVowels := NamePrice("alice", params)
	noVowels := NamePrice("blck1", params) // has digit and no vowels: both discounts are 10
	assert.Less(t, noVowels, withVowels)
}

func TestNamePriceFloor(t *testing.T) {
	params := NamespaceParams{Coeff: 0, Base: 1, Buckets: [16]uint8{}}
	assert.Equal(t, uint64(NameCostUnit), NamePrice("a", params))
}

func TestNamespacePriceTiers(t *testing.T) {
	assert.Equal(t, uint64(NamespaceCost1Char), NamespacePrice("a", false))
	assert.Equal(t, uint64(NamespaceCost23Char), NamespacePrice("ab", false))
	assert.Equal(t, uint64(NamespaceCost23Char), NamespacePrice("abc", false))
	assert.Equal(t, uint64(NamespaceCost4567Char), NamespacePrice("abcd", false))
	assert.Equal(t, uint64(NamespaceCost8UpChar), NamespacePrice("abcdefgh", false))
	assert.Equal(t, uint64(TestsetNamespaceCost), NamespacePrice("a", true))
}

func TestNamePriceBucket16Plus(t *testing.T) {
	params := NamespaceParams{Coeff: 1, Base: 2, Buckets: [16]uint8{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 5}}
	longName := "aaaaaaaaaaaaaaaaaaaa" // length 20, clamps to bucket[15]
	assert.Equal(t, NamePrice(longName, params), NamePrice("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", params))
}
