package checkout

import "fmt"

var messages = map[ErrorCode]string{
	CodeDeliveryMethodMissing:      "Please select a delivery method.",
	CodeDatesMissing:               "Please select the start and end dates of your booking.",
	CodeEndCantBeBeforeStart:       "The end date can't be before the start date.",
	CodeAgreementMissing:           "You need to accept the transaction agreement.",
	CodeListingNotFound:            "The listing could not be found.",
	CodeNotAuthorizedToView:        "You are not authorized to view this listing.",
	CodeCannotMessageSelf:          "You cannot start a transaction on your own listing.",
	CodeListingClosed:              "You cannot reply to a closed listing.",
	CodePaymentDetailsMissing:      "The listing author has not added payment details yet, so payments can't be made.",
	CodePaymentGatewayGenericError: "An error occurred during the payment process. Please try again or contact the marketplace team.",
}

// MessageFor returns the user-facing message for a code.
func MessageFor(code ErrorCode) (string, bool) {
	msg, ok := messages[code]
	return msg, ok
}

// MustMessage is MessageFor for codes produced by this package. An unknown
// code is a programming error.
func MustMessage(code ErrorCode) string {
	msg, ok := messages[code]
	if !ok {
		panic(fmt.Sprintf("checkout: no message for error code %q", code))
	}
	return msg
}
