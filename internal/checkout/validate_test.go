package checkout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) *time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestValidateDeliveryMethod(t *testing.T) {
	cases := []struct {
		name      string
		requested DeliveryMethod
		shipping  bool
		pickup    bool
		want      DeliveryMethod
		wantErr   bool
	}{
		{"shipping only", DeliveryShipping, true, false, DeliveryShipping, false},
		{"pickup only", DeliveryPickup, false, true, DeliveryPickup, false},
		{"neither enabled", DeliveryNone, false, false, DeliveryNone, false},
		{"both enabled, explicit shipping", DeliveryShipping, true, true, DeliveryShipping, false},
		{"both enabled, explicit pickup", DeliveryPickup, true, true, DeliveryPickup, false},
		{"both enabled, no choice", "", true, true, "", true},
		{"shipping requested but disabled", DeliveryShipping, false, true, "", true},
		{"pickup requested but disabled", DeliveryPickup, true, false, "", true},
		{"none requested but shipping enabled", DeliveryNone, true, false, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := ValidateDeliveryMethod(TransactionRequest{Delivery: tc.requested}, tc.shipping, tc.pickup)
			if tc.wantErr {
				require.False(t, res.OK())
				assert.Equal(t, CodeDeliveryMethodMissing, res.Err().Code)
				return
			}
			require.True(t, res.OK())
			assert.Equal(t, tc.want, res.Value())
		})
	}
}

func TestValidateBooking(t *testing.T) {
	cases := []struct {
		name     string
		booking  *BookingRequest
		wantCode ErrorCode
	}{
		{"end before start", &BookingRequest{StartOn: date("2024-05-10"), EndOn: date("2024-05-09")}, CodeEndCantBeBeforeStart},
		{"start missing", &BookingRequest{StartOn: nil, EndOn: date("2024-05-09")}, CodeDatesMissing},
		{"end missing", &BookingRequest{StartOn: date("2024-05-09")}, CodeDatesMissing},
		{"no booking at all", nil, CodeDatesMissing},
		{"same day", &BookingRequest{StartOn: date("2024-05-09"), EndOn: date("2024-05-09")}, ""},
		{"range", &BookingRequest{StartOn: date("2024-05-09"), EndOn: date("2024-05-12")}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := ValidateBooking(TransactionRequest{Booking: tc.booking}, true)
			if tc.wantCode == "" {
				assert.True(t, res.OK())
				return
			}
			require.False(t, res.OK())
			assert.Equal(t, tc.wantCode, res.Err().Code)
		})
	}
}

func TestValidateBooking_SameDayIsOneDay(t *testing.T) {
	req := TransactionRequest{Booking: &BookingRequest{StartOn: date("2024-05-09"), EndOn: date("2024-05-09")}}
	require.True(t, ValidateBooking(req, true).OK())
	assert.Equal(t, 1, ResolveQuantity(req, true))
}

func TestValidateBooking_NonBookingAlwaysPasses(t *testing.T) {
	res := ValidateBooking(TransactionRequest{}, false)
	assert.True(t, res.OK())
}

func TestValidateTransactionAgreement(t *testing.T) {
	assert.True(t, ValidateTransactionAgreement(TransactionRequest{}, false).OK())
	assert.True(t, ValidateTransactionAgreement(TransactionRequest{ContractAgreed: true}, true).OK())

	res := ValidateTransactionAgreement(TransactionRequest{}, true)
	require.False(t, res.OK())
	assert.Equal(t, CodeAgreementMissing, res.Err().Code)
}

func TestValidateForPreview_ShortCircuits(t *testing.T) {
	// bad delivery method and missing dates: only the first rule reports
	req := TransactionRequest{Booking: &BookingRequest{}}
	caps := Capabilities{ShippingEnabled: true, PickupEnabled: true, Booking: true}

	res := ValidateForPreview(req, caps)
	require.False(t, res.OK())
	assert.Equal(t, CodeDeliveryMethodMissing, res.Err().Code)
}

func TestValidateForPreview_IgnoresAgreement(t *testing.T) {
	req := TransactionRequest{Delivery: DeliveryNone}
	res := ValidateForPreview(req, Capabilities{})
	assert.True(t, res.OK())
}

func TestValidateForCommit(t *testing.T) {
	caps := Capabilities{ShippingEnabled: true, Booking: true}
	valid := TransactionRequest{
		Delivery: DeliveryShipping,
		Booking:  &BookingRequest{StartOn: date("2024-01-01"), EndOn: date("2024-01-03")},
	}

	res := ValidateForCommit(valid, caps, true)
	require.False(t, res.OK())
	assert.Equal(t, CodeAgreementMissing, res.Err().Code)

	agreed := valid
	agreed.ContractAgreed = true
	res = ValidateForCommit(agreed, caps, true)
	require.True(t, res.OK())
	assert.Equal(t, DeliveryShipping, res.Value().Delivery)

	// dates are checked before the agreement
	noDates := TransactionRequest{Delivery: DeliveryShipping, Booking: &BookingRequest{}}
	res = ValidateForCommit(noDates, caps, true)
	require.False(t, res.OK())
	assert.Equal(t, CodeDatesMissing, res.Err().Code)
}

func TestChain_StopsAtFirstFailure(t *testing.T) {
	var calls []string
	rule := func(name string, code ErrorCode) Rule {
		return func(req TransactionRequest) Result[TransactionRequest] {
			calls = append(calls, name)
			if code != "" {
				return Failure[TransactionRequest](code)
			}
			return Success(req)
		}
	}

	res := Chain(TransactionRequest{}, rule("a", ""), rule("b", CodeDatesMissing), rule("c", CodeAgreementMissing))
	require.False(t, res.OK())
	assert.Equal(t, CodeDatesMissing, res.Err().Code)
	assert.Equal(t, []string{"a", "b"}, calls)
}
