package transactions

import "time"

// Transaction statuses
const (
	StatusInitiated     = "initiated"
	StatusProcessing    = "processing"
	StatusPreauthorized = "preauthorized"
	StatusFailed        = "failed"
)

// Transaction is the preauth transaction item stored in the transactions
// DynamoDB table. Money amounts are decimal strings.
type Transaction struct {
	TransactionID  string    `dynamodbav:"transaction_id"` // PK
	CommunityID    string    `dynamodbav:"community_id"`
	ListingID      string    `dynamodbav:"listing_id"`
	ListingTitle   string    `dynamodbav:"listing_title,omitempty"`
	StarterID      string    `dynamodbav:"starter_id"`
	AuthorID       string    `dynamodbav:"author_id"`
	UnitType       string    `dynamodbav:"unit_type"`
	UnitPrice      string    `dynamodbav:"unit_price"`
	Currency       string    `dynamodbav:"currency"`
	Quantity       int       `dynamodbav:"quantity"`
	ShippingPrice  string    `dynamodbav:"shipping_price"`
	Total          string    `dynamodbav:"total"`
	DeliveryMethod string    `dynamodbav:"delivery_method"`
	StartOn        string    `dynamodbav:"start_on,omitempty"`
	EndOn          string    `dynamodbav:"end_on,omitempty"`
	Content        string    `dynamodbav:"content,omitempty"`
	SuccessURL     string    `dynamodbav:"success_url"`
	CancelURL      string    `dynamodbav:"cancel_url"`
	LogoURL        string    `dynamodbav:"logo_url,omitempty"`
	ProcessToken   string    `dynamodbav:"process_token"`
	RedirectURL    string    `dynamodbav:"redirect_url,omitempty"`
	Status         string    `dynamodbav:"status"` // initiated | processing | preauthorized | failed
	FailureReason  string    `dynamodbav:"failure_reason,omitempty"`
	CreatedAt      time.Time `dynamodbav:"created_at"`
	UpdatedAt      time.Time `dynamodbav:"updated_at"`
}
