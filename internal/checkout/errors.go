package checkout

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrorCode identifies a checkout rule violation.
type ErrorCode string

const (
	CodeDeliveryMethodMissing      ErrorCode = "delivery_method_missing"
	CodeDatesMissing               ErrorCode = "dates_missing"
	CodeEndCantBeBeforeStart       ErrorCode = "end_cant_be_before_start"
	CodeAgreementMissing           ErrorCode = "agreement_missing"
	CodeListingNotFound            ErrorCode = "listing_not_found"
	CodeNotAuthorizedToView        ErrorCode = "not_authorized_to_view"
	CodeCannotMessageSelf          ErrorCode = "cannot_message_self"
	CodeListingClosed              ErrorCode = "listing_closed"
	CodePaymentDetailsMissing      ErrorCode = "payment_details_missing"
	CodePaymentGatewayGenericError ErrorCode = "payment_gateway_generic_error"
)

var (
	// ErrListingNotFound is returned by ListingQuery implementations.
	ErrListingNotFound = errors.New("listing not found")
	// ErrPersonNotFound is returned by PersonQuery implementations.
	ErrPersonNotFound = errors.New("person not found")

	ErrUnknownDeliveryMethod = errors.New("unknown delivery method")
	ErrInvalidQuantity       = errors.New("quantity must be a positive integer")
)

// ParamError reports raw input that could not be normalized.
type ParamError struct {
	Field string
	Value string
	Err   error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParamError) Unwrap() error { return e.Err }

// RuleError is the failure side of a validation Result.
type RuleError struct {
	Code ErrorCode
}

func (e *RuleError) Error() string { return string(e.Code) }

// Target is the page a rejected request is sent back to.
type Target string

const (
	TargetListing Target = "listing"
	TargetPreview Target = "preview"
	// TargetHome is for listings the buyer can't see at all.
	TargetHome Target = "home"
)

// Rejection is a business rule violation turned into a user-facing
// outcome. Params carries query parameters for the target page.
type Rejection struct {
	Code      ErrorCode
	Message   string
	Target    Target
	ListingID string
	Params    url.Values
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("checkout rejected: %s", r.Code)
}
