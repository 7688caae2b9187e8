package pricing

import "github.com/shopspring/decimal"

// Breakdown is the display form of an OrderTotal.
type Breakdown struct {
	Currency     string          `json:"currency"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Shipping     decimal.Decimal `json:"shipping"`
	Total        decimal.Decimal `json:"total"`
	ShowSubtotal bool            `json:"show_subtotal"`
	ShowShipping bool            `json:"show_shipping"`
}

// NewBreakdown builds the display lines for an order. The subtotal line is
// only shown when it differs from the unit price; the shipping line only
// when the order is shipped.
func NewBreakdown(total OrderTotal, currency string, shipped bool) Breakdown {
	subtotal := total.Item.Total()
	return Breakdown{
		Currency:     currency,
		UnitPrice:    total.Item.UnitPrice,
		Quantity:     total.Item.Quantity,
		Subtotal:     subtotal,
		Shipping:     total.Shipping.Total(),
		Total:        total.Total(),
		ShowSubtotal: !subtotal.Equal(total.Item.UnitPrice),
		ShowShipping: shipped,
	}
}
