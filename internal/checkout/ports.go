package checkout

import (
	"context"

	"github.com/shopspring/decimal"
)

// ListingQuery looks up listings. Get returns ErrListingNotFound for
// unknown ids.
type ListingQuery interface {
	Get(ctx context.Context, id string) (*Listing, error)
}

// PersonQuery looks up members of a community.
type PersonQuery interface {
	Get(ctx context.Context, id, communityID string) (*Person, error)
}

// PaymentService creates preauthorized transactions with the community's
// payment gateway.
type PaymentService interface {
	CanReceivePayment(ctx context.Context, communityID, personID string) (bool, error)
	CreatePreauthTransaction(ctx context.Context, req PreauthRequest) (*GatewayFields, error)
}

// PreauthRequest carries everything the payment collaborator needs to
// create a transaction. It is built once per commit and passed by value.
type PreauthRequest struct {
	CommunityID    string
	ListingID      string
	ListingTitle   string
	StarterID      string
	AuthorID       string
	UnitType       string
	UnitPrice      decimal.Decimal
	Currency       string
	Quantity       int
	ShippingPrice  decimal.Decimal
	Total          decimal.Decimal
	DeliveryMethod DeliveryMethod
	StartOn        string
	EndOn          string
	Content        string

	SuccessURL           string
	CancelURL            string
	MerchantBrandLogoURL string

	// IdempotencyKey, when set, lets the collaborator deduplicate commits.
	IdempotencyKey string
}

// GatewayFields is the gateway-specific part of a successful preauth: a
// redirect for synchronous gateways or a process token for async ones.
type GatewayFields struct {
	TransactionID string `json:"transaction_id,omitempty"`
	RedirectURL   string `json:"redirect_url,omitempty"`
	ProcessToken  string `json:"process_token,omitempty"`
}
