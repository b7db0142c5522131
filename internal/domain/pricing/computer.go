package pricing

import (
	"skusync/internal/core/types"
)

// Default formulas, applied when settings hold no stored values.
const (
	DefaultFormulaB2B      = "cost * 1.25 * 1.05 / 0.98"
	DefaultFormulaConsumer = "cost * 1.25"
)

// PriceList is a named pricing channel.
type PriceList string

const (
	PriceListB2B      PriceList = "B2B"
	PriceListConsumer PriceList = "Consumer"
)

// PriceLists returns the known price lists in their fixed order.
// The validator and seeding logic depend on this order.
func PriceLists() []PriceList {
	return []PriceList{PriceListB2B, PriceListConsumer}
}

// Entry is one price-list price of a product. CalculatedPrice and
// FinalPrice are always equal in this model; both fields exist because
// the stored shape keeps them separate.
type Entry struct {
	PriceList       PriceList   `json:"priceList"`
	CalculatedPrice types.Money `json:"calculatedPrice"`
	// Discount is the margin percentage (0-100); nil means "not set".
	Discount   *float64    `json:"discount"`
	FinalPrice types.Money `json:"finalPrice"`
}

// Formulas holds the per-channel formula strings.
type Formulas struct {
	B2B      string
	Consumer string
}

// FormulaFor selects the formula for a price list: the Consumer list
// uses the consumer formula, every other list uses the B2B one.
func (f Formulas) FormulaFor(list PriceList) string {
	if list == PriceListConsumer {
		return f.Consumer
	}
	return f.B2B
}

// ComputePrices recomputes every entry from the given cost. Entries
// with a nil discount still compute a number (nil evaluates as 0) but
// keep their nil discount, so validation can flag them as unset.
//
// Pure function: the input slice is not modified.
func ComputePrices(cost types.Money, entries []Entry, formulas Formulas) []Entry {
	costF := types.Float64(cost)

	out := make([]Entry, len(entries))
	for i, e := range entries {
		price := types.NewMoney(Evaluate(costF, e.Discount, formulas.FormulaFor(e.PriceList)))
		e.CalculatedPrice = price
		e.FinalPrice = price
		out[i] = e
	}
	return out
}

// NewEntries builds the fixed entry set for a new product, one entry
// per known price list, with margins taken from the given seed map
// (nil values leave the margin unset).
func NewEntries(seedMargins map[PriceList]*float64) []Entry {
	lists := PriceLists()
	out := make([]Entry, len(lists))
	for i, list := range lists {
		out[i] = Entry{
			PriceList:       list,
			CalculatedPrice: types.ZeroMoney,
			Discount:        seedMargins[list],
			FinalPrice:      types.ZeroMoney,
		}
	}
	return out
}
