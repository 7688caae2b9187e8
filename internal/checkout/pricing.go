package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-listing-checkout/internal/pricing"
)

const day = 24 * 60 * 60

// BookingDays is the inclusive number of days in the range, at least 1.
func BookingDays(b BookingRequest) int {
	if b.StartOn == nil || b.EndOn == nil {
		return 1
	}
	start := b.StartOn.UTC().Unix() / day
	end := b.EndOn.UTC().Unix() / day
	n := int(end-start) + 1
	if n < 1 {
		return 1
	}
	return n
}

// ResolveQuantity returns the number of priced units: the day count for
// booking listings, the requested quantity (default 1) otherwise.
func ResolveQuantity(req TransactionRequest, isBooking bool) int {
	if isBooking && req.Booking != nil {
		return BookingDays(*req.Booking)
	}
	if req.Quantity != nil && *req.Quantity > 0 {
		return *req.Quantity
	}
	return 1
}

// ComputeTotals prices an order. Preview and commit both go through here so
// the figures shown are the figures charged.
func ComputeTotals(l Listing, req TransactionRequest, quantity int) pricing.OrderTotal {
	shipping := pricing.NoShipping()
	if req.Delivery == DeliveryShipping {
		shipping = pricing.ShippingTotal{
			Initial:    orZero(l.ShippingPriceInitial),
			Additional: orZero(l.ShippingPriceAdditional),
			Quantity:   quantity,
		}
	}
	return pricing.OrderTotal{
		Item:     pricing.ItemTotal{UnitPrice: l.Price, Quantity: quantity},
		Shipping: shipping,
	}
}

func orZero(v decimal.NullDecimal) decimal.Decimal {
	if !v.Valid {
		return decimal.Zero
	}
	return v.Decimal
}
