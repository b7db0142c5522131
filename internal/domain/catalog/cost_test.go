package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skusync/internal/core/id"
	"skusync/internal/core/types"
	"skusync/internal/domain/pricing"
)

func simpleProduct(sku string, cost float64) *Product {
	p := NewProduct(KindSimple, nil)
	p.SKU = sku
	p.Name = sku
	p.PurchaseCost = types.NewMoney(cost)
	return p
}

func compositeProduct(sku string, components ...Component) *Product {
	p := NewProduct(KindComposite, nil)
	p.SKU = sku
	p.Name = sku
	p.Components = components
	return p
}

func TestResolveCost_SimplePassThrough(t *testing.T) {
	p := simpleProduct("A-1", 12.5)
	idx := BuildIndex([]*Product{p})

	assert.True(t, ResolveCost(p, idx).Equal(types.NewMoney(12.5)))
}

func TestResolveCost_CompositeRollUp(t *testing.T) {
	a := simpleProduct("A-1", 10)
	b := simpleProduct("B-1", 5)
	c := compositeProduct("C-1",
		Component{ComponentID: a.ID, Quantity: 2},
		Component{ComponentID: b.ID, Quantity: 3},
	)
	idx := BuildIndex([]*Product{a, b, c})

	// 2*10 + 3*5 = 35
	assert.True(t, ResolveCost(c, idx).Equal(types.NewMoney(35)), "got %s", ResolveCost(c, idx))
}

func TestResolveCost_MissingComponentContributesZero(t *testing.T) {
	a := simpleProduct("A-1", 10)
	c := compositeProduct("C-1",
		Component{ComponentID: a.ID, Quantity: 2},
		Component{ComponentID: id.New(), Quantity: 4}, // dangling
	)
	idx := BuildIndex([]*Product{a, c})

	assert.True(t, ResolveCost(c, idx).Equal(types.NewMoney(20)))
}

func TestResolveCost_EmptyBOMIsZero(t *testing.T) {
	c := compositeProduct("C-1")
	idx := BuildIndex([]*Product{c})

	assert.True(t, ResolveCost(c, idx).IsZero())
}

func TestAffectedComposites(t *testing.T) {
	a := simpleProduct("A-1", 10)
	b := simpleProduct("B-1", 5)
	c1 := compositeProduct("C-1", Component{ComponentID: a.ID, Quantity: 1})
	c2 := compositeProduct("C-2", Component{ComponentID: b.ID, Quantity: 1})
	c3 := compositeProduct("C-3",
		Component{ComponentID: a.ID, Quantity: 2},
		Component{ComponentID: b.ID, Quantity: 2},
	)
	all := []*Product{a, b, c1, c2, c3}

	affected := AffectedComposites(a.ID, all)
	require.Len(t, affected, 2)
	assert.Equal(t, "C-1", affected[0].SKU)
	assert.Equal(t, "C-3", affected[1].SKU)

	assert.Empty(t, AffectedComposites(id.New(), all))
}

func TestAddComponent_CoercesNonPositiveQuantity(t *testing.T) {
	c := compositeProduct("C-1")
	c.AddComponent(id.New(), 0)
	c.AddComponent(id.New(), -3)
	c.AddComponent(id.New(), 5)

	require.Len(t, c.Components, 3)
	assert.Equal(t, 1, c.Components[0].Quantity)
	assert.Equal(t, 1, c.Components[1].Quantity)
	assert.Equal(t, 5, c.Components[2].Quantity)
}

func TestClone_IsDeep(t *testing.T) {
	margin := 25.0
	p := simpleProduct("A-1", 10)
	p.Prices[0].Discount = &margin

	clone := p.Clone()
	*clone.Prices[0].Discount = 99
	clone.Prices[1].Discount = &margin
	clone.PurchaseCost = types.NewMoney(77)

	assert.Equal(t, 25.0, *p.Prices[0].Discount)
	assert.Nil(t, p.Prices[1].Discount)
	assert.True(t, p.PurchaseCost.Equal(types.NewMoney(10)))
}

func TestPriceEntry_Lookup(t *testing.T) {
	p := NewProduct(KindSimple, nil)

	require.NotNil(t, p.PriceEntry(pricing.PriceListB2B))
	require.NotNil(t, p.PriceEntry(pricing.PriceListConsumer))
	assert.Nil(t, p.PriceEntry(pricing.PriceList("Wholesale")))
}
