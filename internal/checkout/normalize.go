package checkout

import (
	"strconv"
	"strings"
	"time"
)

// Params are the raw request fields of both checkout steps. Absent fields
// are empty strings.
type Params struct {
	Delivery       string
	StartOn        string
	EndOn          string
	Quantity       string
	Message        string
	ContractAgreed string
}

// contractAgreedMarker is the only raw value that means "agreed".
const contractAgreedMarker = "1"

// ParseDeliveryMethod maps a raw value to a DeliveryMethod. The empty string
// is a missing choice, not an error.
func ParseDeliveryMethod(raw string) (DeliveryMethod, error) {
	switch strings.TrimSpace(raw) {
	case "":
		return "", nil
	case string(DeliveryShipping):
		return DeliveryShipping, nil
	case string(DeliveryPickup):
		return DeliveryPickup, nil
	default:
		return "", &ParamError{Field: "delivery", Value: raw, Err: ErrUnknownDeliveryMethod}
	}
}

// ParseDate parses a calendar date. Unparseable or empty input yields nil.
func ParseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return nil
	}
	return &t
}

// FormatDate is the inverse of ParseDate; nil formats as "".
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

func parseQuantity(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	q, err := strconv.Atoi(raw)
	if err != nil || q < 1 {
		return nil, &ParamError{Field: "quantity", Value: raw, Err: ErrInvalidQuantity}
	}
	return &q, nil
}

// Normalize turns raw params into a TransactionRequest. Booking dates are
// only kept for booking listings, where the quantity field is ignored.
func Normalize(p Params, caps Capabilities) (TransactionRequest, error) {
	delivery, err := ParseDeliveryMethod(p.Delivery)
	if err != nil {
		return TransactionRequest{}, err
	}

	req := TransactionRequest{
		Delivery:       defaultDelivery(delivery, caps),
		Message:        strings.TrimSpace(p.Message),
		ContractAgreed: p.ContractAgreed == contractAgreedMarker,
	}

	if caps.Booking {
		req.Booking = &BookingRequest{
			StartOn: ParseDate(p.StartOn),
			EndOn:   ParseDate(p.EndOn),
		}
		return req, nil
	}

	q, err := parseQuantity(p.Quantity)
	if err != nil {
		return TransactionRequest{}, err
	}
	req.Quantity = q
	return req, nil
}

// defaultDelivery fills in a missing choice when the listing leaves only
// one option. With both options enabled the choice stays missing.
func defaultDelivery(requested DeliveryMethod, caps Capabilities) DeliveryMethod {
	if requested != "" {
		return requested
	}
	switch {
	case caps.ShippingEnabled && !caps.PickupEnabled:
		return DeliveryShipping
	case caps.PickupEnabled && !caps.ShippingEnabled:
		return DeliveryPickup
	case !caps.ShippingEnabled && !caps.PickupEnabled:
		return DeliveryNone
	default:
		return ""
	}
}
