package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fp(v float64) *float64 { return &v }

func TestEvaluate_Markup(t *testing.T) {
	// markup = 1 + discount/100
	assert.InDelta(t, 125.0, Evaluate(100, fp(25), "cost * markup"), 1e-9)
	assert.InDelta(t, 100.0, Evaluate(100, fp(0), "cost * markup"), 1e-9)
}

func TestEvaluate_DiscountFactor(t *testing.T) {
	// discount_factor = 1 - discount/100
	assert.InDelta(t, 75.0, Evaluate(100, fp(25), "cost * discount_factor"), 1e-9)
}

func TestEvaluate_MarkupIdentity(t *testing.T) {
	for _, d := range []float64{0, 10, 25, 50, 100} {
		a := Evaluate(80, &d, "cost*markup")
		b := Evaluate(80, &d, "cost*(1+discount/100)")
		assert.InDelta(t, a, b, 1e-9, "discount=%v", d)
	}
}

func TestEvaluate_NilDiscountTreatedAsZero(t *testing.T) {
	assert.InDelta(t, 100.0, Evaluate(100, nil, "cost*markup"), 1e-9)
	assert.InDelta(t, 100.0, Evaluate(100, nil, "cost*discount_factor"), 1e-9)
	assert.InDelta(t, 0.0, Evaluate(100, nil, "discount"), 1e-9)
}

func TestEvaluate_Deterministic(t *testing.T) {
	first := Evaluate(42.5, fp(12.5), "cost * 1.25 * 1.05 / 0.98")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Evaluate(42.5, fp(12.5), "cost * 1.25 * 1.05 / 0.98"))
	}
}

func TestEvaluate_PercentOperator(t *testing.T) {
	// % is a literal /100: 25% is 25/100
	assert.InDelta(t, 0.25, Evaluate(0, nil, "25%"), 1e-9)
	assert.InDelta(t, 125.0, Evaluate(100, nil, "cost + cost*25%"), 1e-9)
	// between two operands it does not form a valid expression
	assert.Equal(t, 0.0, Evaluate(100, nil, "10 % 3"))
}

func TestEvaluate_Precedence(t *testing.T) {
	assert.InDelta(t, 14.0, Evaluate(0, nil, "2+3*4"), 1e-9)
	assert.InDelta(t, 20.0, Evaluate(0, nil, "(2+3)*4"), 1e-9)
	assert.InDelta(t, 7.0, Evaluate(0, nil, "10-6/2"), 1e-9)
}

func TestEvaluate_UnaryMinus(t *testing.T) {
	assert.InDelta(t, -5.0, Evaluate(0, nil, "-5"), 1e-9)
	assert.InDelta(t, 95.0, Evaluate(100, nil, "cost + -5"), 1e-9)
}

func TestEvaluate_CaseInsensitiveIdentifiers(t *testing.T) {
	assert.InDelta(t, 125.0, Evaluate(100, fp(25), "COST * Markup"), 1e-9)
	assert.InDelta(t, 75.0, Evaluate(100, fp(25), "Cost * DISCOUNT_FACTOR"), 1e-9)
}

func TestEvaluate_MalformedReturnsZero(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"cost *",
		"cost * unknownvar",
		"(cost * 2",
		"cost ** 2",
		"1..2 + cost",
		"cost $ 2",
	}
	for _, formula := range cases {
		assert.Equal(t, 0.0, Evaluate(100, fp(10), formula), "formula=%q", formula)
	}
}

func TestEvaluate_NonFiniteReturnsZero(t *testing.T) {
	assert.Equal(t, 0.0, Evaluate(100, nil, "cost / 0"))
	assert.Equal(t, 0.0, Evaluate(0, nil, "cost / cost"))
}

func TestParse_ReportsErrors(t *testing.T) {
	_, err := Parse("cost * unknownvar")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknownvar")

	_, err = Parse("(cost")
	require.Error(t, err)

	_, err = Parse("")
	require.Error(t, err)
}

func TestParse_ReusableExpression(t *testing.T) {
	expr, err := Parse("cost * markup")
	require.NoError(t, err)

	assert.InDelta(t, 125.0, expr.Eval(100, 25), 1e-9)
	assert.InDelta(t, 55.0, expr.Eval(50, 10), 1e-9)
}

func TestEvaluate_DefaultFormulas(t *testing.T) {
	assert.InDelta(t, 100*1.25*1.05/0.98, Evaluate(100, nil, DefaultFormulaB2B), 1e-9)
	assert.InDelta(t, 125.0, Evaluate(100, nil, DefaultFormulaConsumer), 1e-9)
}
