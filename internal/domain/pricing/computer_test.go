package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skusync/internal/core/types"
)

func testFormulas() Formulas {
	return Formulas{B2B: "cost * 2", Consumer: "cost * 3"}
}

func TestComputePrices_SelectsFormulaPerPriceList(t *testing.T) {
	entries := NewEntries(nil)

	out := ComputePrices(types.NewMoney(10), entries, testFormulas())
	require.Len(t, out, 2)

	assert.Equal(t, PriceListB2B, out[0].PriceList)
	assert.True(t, out[0].FinalPrice.Equal(types.NewMoney(20)), "b2b price: %s", out[0].FinalPrice)

	assert.Equal(t, PriceListConsumer, out[1].PriceList)
	assert.True(t, out[1].FinalPrice.Equal(types.NewMoney(30)), "consumer price: %s", out[1].FinalPrice)
}

func TestComputePrices_CalculatedEqualsFinal(t *testing.T) {
	out := ComputePrices(types.NewMoney(7), NewEntries(nil), testFormulas())
	for _, e := range out {
		assert.True(t, e.CalculatedPrice.Equal(e.FinalPrice))
	}
}

func TestComputePrices_MarginRoundTrip(t *testing.T) {
	// Setting discount=25 and computing with cost*markup yields 125 for cost 100.
	margin := 25.0
	entries := []Entry{{PriceList: PriceListB2B, Discount: &margin}}

	out := ComputePrices(types.NewMoney(100), entries, Formulas{B2B: "cost*markup", Consumer: "cost"})
	require.Len(t, out, 1)
	assert.True(t, out[0].FinalPrice.Equal(types.NewMoney(125)), "got %s", out[0].FinalPrice)
}

func TestComputePrices_NilDiscountComputesButStaysUnset(t *testing.T) {
	entries := []Entry{{PriceList: PriceListConsumer}}

	out := ComputePrices(types.NewMoney(10), entries, testFormulas())
	require.Len(t, out, 1)
	assert.Nil(t, out[0].Discount)
	assert.True(t, out[0].FinalPrice.Equal(types.NewMoney(30)))
}

func TestComputePrices_DoesNotMutateInput(t *testing.T) {
	entries := NewEntries(nil)
	_ = ComputePrices(types.NewMoney(10), entries, testFormulas())

	for _, e := range entries {
		assert.True(t, e.CalculatedPrice.IsZero())
		assert.True(t, e.FinalPrice.IsZero())
	}
}

func TestNewEntries_SeedsMargins(t *testing.T) {
	margin := 30.0
	entries := NewEntries(map[PriceList]*float64{PriceListB2B: &margin})

	require.Len(t, entries, 2)
	require.NotNil(t, entries[0].Discount)
	assert.Equal(t, 30.0, *entries[0].Discount)
	assert.Nil(t, entries[1].Discount)
}
