package checkout

import (
	"time"

	"github.com/shopspring/decimal"
)

// DeliveryMethod is how the purchased item reaches the buyer. The empty
// value means the request did not choose one.
type DeliveryMethod string

const (
	DeliveryNone     DeliveryMethod = "none"
	DeliveryShipping DeliveryMethod = "shipping"
	DeliveryPickup   DeliveryMethod = "pickup"
)

// Unit types a listing is priced by.
const (
	UnitDay  = "day"
	UnitUnit = "unit"
)

// DateLayout is the calendar-date format of booking dates on the wire.
const DateLayout = "2006-01-02"

// BookingRequest is the requested date range of a day-based listing.
// Either date may be nil when the raw value was absent or unparseable.
type BookingRequest struct {
	StartOn *time.Time
	EndOn   *time.Time
}

// TransactionRequest is the normalized checkout request.
type TransactionRequest struct {
	Delivery       DeliveryMethod
	Booking        *BookingRequest
	Message        string
	Quantity       *int
	ContractAgreed bool
}

// Listing is the read-only snapshot of a listing supplied by the listing
// query service.
type Listing struct {
	ID                      string              `json:"id"`
	CommunityID             string              `json:"community_id"`
	Title                   string              `json:"title"`
	Price                   decimal.Decimal     `json:"price"`
	Currency                string              `json:"currency"`
	UnitType                string              `json:"unit_type"`
	ShippingEnabled         bool                `json:"require_shipping_address"`
	PickupEnabled           bool                `json:"pickup_enabled"`
	ShippingPriceInitial    decimal.NullDecimal `json:"shipping_price_initial"`
	ShippingPriceAdditional decimal.NullDecimal `json:"shipping_price_additional"`
	AuthorID                string              `json:"author_id"`
	Open                    bool                `json:"open"`
}

// IsBooking reports whether the listing is priced per day.
func (l Listing) IsBooking() bool {
	return l.UnitType == UnitDay
}

// Capabilities returns the delivery flags used by normalization and validation.
func (l Listing) Capabilities() Capabilities {
	return Capabilities{
		ShippingEnabled: l.ShippingEnabled,
		PickupEnabled:   l.PickupEnabled,
		Booking:         l.IsBooking(),
	}
}

// Capabilities are the listing flags request handling depends on.
type Capabilities struct {
	ShippingEnabled bool
	PickupEnabled   bool
	Booking         bool
}

// Person is the read-only snapshot of a marketplace member.
type Person struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Community is the marketplace the request is made in.
type Community struct {
	ID                           string `json:"id"`
	Name                         string `json:"name"`
	TransactionAgreementRequired bool   `json:"transaction_agreement_in_use"`
	LogoURL                      string `json:"logo_url,omitempty"`
}
