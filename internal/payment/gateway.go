package payment

import (
	"net/url"
	"strings"

	"github.com/imrishuroy/go-listing-checkout/internal/transactions"
)

// JobMessage is the payload sent from the api to the worker for async
// gateways.
type JobMessage struct {
	TransactionID string `json:"transaction_id"`
	ProcessToken  string `json:"process_token"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// RedirectURL builds the hosted checkout URL the buyer authorizes the
// payment at.
func RedirectURL(gatewayURL string, tx transactions.Transaction) string {
	q := url.Values{}
	q.Set("transaction_id", tx.TransactionID)
	q.Set("amount", tx.Total)
	q.Set("currency", tx.Currency)
	q.Set("description", tx.ListingTitle)
	q.Set("success_url", tx.SuccessURL)
	q.Set("cancel_url", tx.CancelURL)
	if tx.LogoURL != "" {
		q.Set("logo_url", tx.LogoURL)
	}
	return strings.TrimRight(gatewayURL, "/") + "/checkout?" + q.Encode()
}
