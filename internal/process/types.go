package process

import "time"

// Status values for process records
const (
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
)

// Record tracks one preauth attempt, keyed by its process token. Async
// gateways complete it from the worker; callers poll it for the outcome.
type Record struct {
	ProcessToken  string    `dynamodbav:"process_token"` // PK
	Status        string    `dynamodbav:"status"`
	TransactionID string    `dynamodbav:"transaction_id,omitempty"`
	RedirectURL   string    `dynamodbav:"redirect_url,omitempty"`
	Async         bool      `dynamodbav:"async"`
	CommunityID   string    `dynamodbav:"community_id,omitempty"`
	StarterID     string    `dynamodbav:"starter_id,omitempty"`
	Fingerprint   string    `dynamodbav:"fingerprint,omitempty"` // digest of the request that created it
	CreatedAt     time.Time `dynamodbav:"created_at"`
	UpdatedAt     time.Time `dynamodbav:"updated_at"`
	ExpiresAt     int64     `dynamodbav:"expires_at"` // TTL epoch seconds
	Note          string    `dynamodbav:"note,omitempty"`
}
