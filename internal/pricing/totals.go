package pricing

import "github.com/shopspring/decimal"

// ItemTotal is the price of the purchased units without shipping.
type ItemTotal struct {
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Total returns UnitPrice * Quantity.
func (t ItemTotal) Total() decimal.Decimal {
	return t.UnitPrice.Mul(decimal.NewFromInt(int64(t.Quantity)))
}

// ShippingTotal prices shipping in two tiers: Initial covers the first
// unit (or day), each further unit costs Additional.
type ShippingTotal struct {
	Initial    decimal.Decimal `json:"initial"`
	Additional decimal.Decimal `json:"additional"`
	Quantity   int             `json:"quantity"`
}

// NoShipping is the shipping total for orders that are not shipped.
func NoShipping() ShippingTotal {
	return ShippingTotal{Initial: decimal.Zero, Additional: decimal.Zero}
}

// Total returns Initial + Additional * (Quantity - 1).
func (t ShippingTotal) Total() decimal.Decimal {
	extra := t.Quantity - 1
	if extra < 0 {
		extra = 0
	}
	return t.Initial.Add(t.Additional.Mul(decimal.NewFromInt(int64(extra))))
}

// OrderTotal is what the buyer is charged.
type OrderTotal struct {
	Item     ItemTotal     `json:"item"`
	Shipping ShippingTotal `json:"shipping"`
}

// Total returns the item total plus the shipping total.
func (t OrderTotal) Total() decimal.Decimal {
	return t.Item.Total().Add(t.Shipping.Total())
}
