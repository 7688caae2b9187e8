package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestItemTotal(t *testing.T) {
	total := ItemTotal{UnitPrice: d("20"), Quantity: 3}
	assert.True(t, total.Total().Equal(d("60")))
}

// Shipping uses the tiered formula initial + additional*(quantity-1): the
// first unit is covered by the initial price.
func TestShippingTotal_TieredFormula(t *testing.T) {
	cases := []struct {
		name     string
		quantity int
		want     string
	}{
		{"single unit pays only initial", 1, "5"},
		{"three units", 3, "9"},
		{"ten units", 10, "23"},
		{"zero quantity never goes below initial", 0, "5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := ShippingTotal{Initial: d("5"), Additional: d("2"), Quantity: tc.quantity}
			assert.True(t, s.Total().Equal(d(tc.want)), "got %s", s.Total())
		})
	}
}

func TestNoShipping(t *testing.T) {
	assert.True(t, NoShipping().Total().IsZero())
}

func TestOrderTotal(t *testing.T) {
	total := OrderTotal{
		Item:     ItemTotal{UnitPrice: d("20"), Quantity: 3},
		Shipping: ShippingTotal{Initial: d("5"), Additional: d("2"), Quantity: 3},
	}
	assert.True(t, total.Total().Equal(d("69")))
}

func TestShippingTotal_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := decimal.NewFromInt(rapid.Int64Range(0, 100_000).Draw(t, "initial")).Shift(-2)
		additional := decimal.NewFromInt(rapid.Int64Range(0, 100_000).Draw(t, "additional")).Shift(-2)
		q := rapid.IntRange(1, 365).Draw(t, "quantity")

		got := ShippingTotal{Initial: initial, Additional: additional, Quantity: q}.Total()
		want := initial.Add(additional.Mul(decimal.NewFromInt(int64(q - 1))))
		if !got.Equal(want) {
			t.Fatalf("shipping total %s, want %s", got, want)
		}
		if q == 1 && !got.Equal(initial) {
			t.Fatalf("single unit shipping %s, want initial %s", got, initial)
		}
	})
}

func TestOrderTotal_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		q := rapid.IntRange(1, 1000).Draw(t, "quantity")
		item := ItemTotal{
			UnitPrice: decimal.NewFromInt(rapid.Int64Range(0, 1_000_000).Draw(t, "price")).Shift(-2),
			Quantity:  q,
		}
		shipping := ShippingTotal{
			Initial:    decimal.NewFromInt(rapid.Int64Range(0, 10_000).Draw(t, "initial")).Shift(-2),
			Additional: decimal.NewFromInt(rapid.Int64Range(0, 10_000).Draw(t, "additional")).Shift(-2),
			Quantity:   q,
		}
		order := OrderTotal{Item: item, Shipping: shipping}
		if !order.Total().Equal(item.Total().Add(shipping.Total())) {
			t.Fatalf("order total %s != item %s + shipping %s", order.Total(), item.Total(), shipping.Total())
		}
	})
}

func TestNewBreakdown_DisplayRules(t *testing.T) {
	single := OrderTotal{Item: ItemTotal{UnitPrice: d("20"), Quantity: 1}, Shipping: NoShipping()}
	b := NewBreakdown(single, "EUR", false)
	assert.False(t, b.ShowSubtotal)
	assert.False(t, b.ShowShipping)
	assert.True(t, b.Total.Equal(d("20")))

	multi := OrderTotal{
		Item:     ItemTotal{UnitPrice: d("20"), Quantity: 3},
		Shipping: ShippingTotal{Initial: d("5"), Additional: d("2"), Quantity: 3},
	}
	b = NewBreakdown(multi, "EUR", true)
	assert.True(t, b.ShowSubtotal)
	assert.True(t, b.ShowShipping)
	assert.True(t, b.Subtotal.Equal(d("60")))
	assert.True(t, b.Shipping.Equal(d("9")))
	assert.True(t, b.Total.Equal(d("69")))
	assert.Equal(t, "EUR", b.Currency)
}
