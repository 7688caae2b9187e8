package checkout

// ValidateDeliveryMethod checks the requested delivery method against what
// the listing offers.
func ValidateDeliveryMethod(req TransactionRequest, shippingEnabled, pickupEnabled bool) Result[DeliveryMethod] {
	switch {
	case req.Delivery == DeliveryShipping && shippingEnabled:
		return Success(DeliveryShipping)
	case req.Delivery == DeliveryPickup && pickupEnabled:
		return Success(DeliveryPickup)
	case req.Delivery == DeliveryNone && !shippingEnabled && !pickupEnabled:
		return Success(DeliveryNone)
	default:
		return Failure[DeliveryMethod](CodeDeliveryMethodMissing)
	}
}

// ValidateBooking checks the date range of booking listings. Same-day
// bookings are allowed.
func ValidateBooking(req TransactionRequest, isBooking bool) Result[TransactionRequest] {
	if !isBooking {
		return Success(req)
	}
	b := req.Booking
	if b == nil || b.StartOn == nil || b.EndOn == nil {
		return Failure[TransactionRequest](CodeDatesMissing)
	}
	if b.StartOn.After(*b.EndOn) {
		return Failure[TransactionRequest](CodeEndCantBeBeforeStart)
	}
	return Success(req)
}

// ValidateTransactionAgreement checks the buyer accepted the community's
// transaction agreement when one is in use.
func ValidateTransactionAgreement(req TransactionRequest, required bool) Result[TransactionRequest] {
	if !required || req.ContractAgreed {
		return Success(req)
	}
	return Failure[TransactionRequest](CodeAgreementMissing)
}

func deliveryRule(caps Capabilities) Rule {
	return func(req TransactionRequest) Result[TransactionRequest] {
		res := ValidateDeliveryMethod(req, caps.ShippingEnabled, caps.PickupEnabled)
		if !res.OK() {
			return Failure[TransactionRequest](res.Err().Code)
		}
		req.Delivery = res.Value()
		return Success(req)
	}
}

func bookingRule(caps Capabilities) Rule {
	return func(req TransactionRequest) Result[TransactionRequest] {
		return ValidateBooking(req, caps.Booking)
	}
}

func agreementRule(required bool) Rule {
	return func(req TransactionRequest) Result[TransactionRequest] {
		return ValidateTransactionAgreement(req, required)
	}
}

// ValidateForPreview runs delivery -> booking.
func ValidateForPreview(req TransactionRequest, caps Capabilities) Result[TransactionRequest] {
	return Chain(req, deliveryRule(caps), bookingRule(caps))
}

// ValidateForCommit runs delivery -> booking -> agreement. The preview step
// does not know yet whether the agreement was accepted, so only commit
// checks it.
func ValidateForCommit(req TransactionRequest, caps Capabilities, agreementRequired bool) Result[TransactionRequest] {
	return Chain(req, deliveryRule(caps), bookingRule(caps), agreementRule(agreementRequired))
}
