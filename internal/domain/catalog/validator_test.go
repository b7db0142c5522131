package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skusync/internal/core/id"
	"skusync/internal/core/types"
	"skusync/internal/domain/pricing"
)

// configured sets both margins so later checks can be exercised.
func configured(p *Product) *Product {
	m := 20.0
	for i := range p.Prices {
		d := m
		p.Prices[i].Discount = &d
	}
	return p
}

func requireFailure(t *testing.T, res ValidationResult, kind FailureKind) *Failure {
	t.Helper()
	require.False(t, res.Valid)
	require.NotNil(t, res.Failure)
	require.Equal(t, kind, res.Failure.Kind)
	return res.Failure
}

func TestValidate_ValidSimpleProduct(t *testing.T) {
	p := configured(simpleProduct("A-1", 10))

	res := Validate(p, []*Product{p})
	assert.True(t, res.Valid)
	assert.Nil(t, res.Failure)
}

func TestValidate_MissingSKU(t *testing.T) {
	p := configured(simpleProduct("  ", 10))
	requireFailure(t, Validate(p, []*Product{p}), FailMissingSKU)
}

func TestValidate_MissingSKUPrecedesDuplicate(t *testing.T) {
	// A product with both an empty and (trivially) duplicate SKU
	// reports the missing SKU: rule 1 runs before rule 2.
	other := configured(simpleProduct("", 5))
	p := configured(simpleProduct("", 10))

	requireFailure(t, Validate(p, []*Product{other, p}), FailMissingSKU)
}

func TestValidate_DuplicateSKUCaseInsensitive(t *testing.T) {
	first := configured(simpleProduct("ABC-1", 5))
	second := configured(simpleProduct("abc-1", 10))

	requireFailure(t, Validate(second, []*Product{first, second}), FailDuplicateSKU)
}

func TestValidate_DuplicateSKUIgnoresSelf(t *testing.T) {
	p := configured(simpleProduct("ABC-1", 5))
	res := Validate(p, []*Product{p})
	assert.True(t, res.Valid)
}

func TestValidate_MissingNamePrecedesCost(t *testing.T) {
	p := configured(simpleProduct("A-1", 0))
	p.Name = "  "

	requireFailure(t, Validate(p, []*Product{p}), FailMissingName)
}

func TestValidate_NonPositiveCost(t *testing.T) {
	p := configured(simpleProduct("A-1", 0))
	requireFailure(t, Validate(p, []*Product{p}), FailNonPositiveCost)

	p.PurchaseCost = types.NewMoney(-5)
	requireFailure(t, Validate(p, []*Product{p}), FailNonPositiveCost)
}

func TestValidate_EmptyBOM(t *testing.T) {
	c := configured(compositeProduct("C-1"))
	requireFailure(t, Validate(c, []*Product{c}), FailEmptyBOM)
}

func TestValidate_MissingComponent(t *testing.T) {
	gone := id.New()
	c := configured(compositeProduct("C-1", Component{ComponentID: gone, Quantity: 1}))

	f := requireFailure(t, Validate(c, []*Product{c}), FailMissingComponent)
	assert.Equal(t, gone, f.ComponentID)
}

func TestValidate_ComponentNotSimple(t *testing.T) {
	a := configured(simpleProduct("A-1", 10))
	inner := configured(compositeProduct("C-1", Component{ComponentID: a.ID, Quantity: 1}))
	outer := configured(compositeProduct("C-2", Component{ComponentID: inner.ID, Quantity: 1}))

	f := requireFailure(t, Validate(outer, []*Product{a, inner, outer}), FailComponentNotSimple)
	assert.Equal(t, "C-1", f.ComponentSKU)
}

func TestValidate_ZeroCostComponent(t *testing.T) {
	a := configured(simpleProduct("A-1", 0))
	c := configured(compositeProduct("C-1", Component{ComponentID: a.ID, Quantity: 2}))

	f := requireFailure(t, Validate(c, []*Product{a, c}), FailZeroCostComponent)
	assert.Equal(t, "A-1", f.ComponentSKU)
}

func TestValidate_ComponentsCheckedInListOrder(t *testing.T) {
	zero := configured(simpleProduct("Z-1", 0))
	c := configured(compositeProduct("C-1",
		Component{ComponentID: id.New(), Quantity: 1}, // dangling, first
		Component{ComponentID: zero.ID, Quantity: 1},  // zero cost, second
	))

	requireFailure(t, Validate(c, []*Product{zero, c}), FailMissingComponent)
}

func TestValidate_MarginNotSet_B2BFirst(t *testing.T) {
	p := simpleProduct("A-1", 10) // both margins unset

	f := requireFailure(t, Validate(p, []*Product{p}), FailMarginNotSet)
	assert.Equal(t, pricing.PriceListB2B, f.PriceList)

	m := 10.0
	p.PriceEntry(pricing.PriceListB2B).Discount = &m
	f = requireFailure(t, Validate(p, []*Product{p}), FailMarginNotSet)
	assert.Equal(t, pricing.PriceListConsumer, f.PriceList)
}

func TestFailure_Messages(t *testing.T) {
	assert.Equal(t, "Missing SKU", Failure{Kind: FailMissingSKU}.Message())
	assert.Equal(t, "SKU must be unique", Failure{Kind: FailDuplicateSKU}.Message())
	assert.Equal(t, "Margin not set for B2B", Failure{Kind: FailMarginNotSet, PriceList: pricing.PriceListB2B}.Message())
	assert.Equal(t, "Component 'X' has 0 cost", Failure{Kind: FailZeroCostComponent, ComponentSKU: "X"}.Message())
}
