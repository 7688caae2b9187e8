package validation

import "github.com/imrishuroy/go-listing-checkout/internal/checkout"

// CheckoutForm is the raw query/form input of the initiate and initiated
// endpoints. Dates are kept as strings: an unparseable date counts as
// missing and is reported by the booking rules, not here. Quantity is
// checked by checkout normalization, which knows whether the listing is a
// booking and ignores it there.
type CheckoutForm struct {
	Delivery       string `form:"delivery" json:"delivery" validate:"omitempty,delivery_method"`
	StartOn        string `form:"start_on" json:"start_on"`
	EndOn          string `form:"end_on" json:"end_on"`
	Quantity       string `form:"quantity" json:"quantity" validate:"max=32"`
	Message        string `form:"message" json:"message" validate:"max=5000"`
	ContractAgreed string `form:"contract_agreed" json:"contract_agreed"`
}

// Params converts the form into checkout parameters.
func (f CheckoutForm) Params() checkout.Params {
	return checkout.Params{
		Delivery:       f.Delivery,
		StartOn:        f.StartOn,
		EndOn:          f.EndOn,
		Quantity:       f.Quantity,
		Message:        f.Message,
		ContractAgreed: f.ContractAgreed,
	}
}
