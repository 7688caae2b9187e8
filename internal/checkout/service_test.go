package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockListings struct{ mock.Mock }

func (m *mockListings) Get(ctx context.Context, id string) (*Listing, error) {
	args := m.Called(ctx, id)
	l, _ := args.Get(0).(*Listing)
	return l, args.Error(1)
}

type mockPeople struct{ mock.Mock }

func (m *mockPeople) Get(ctx context.Context, id, communityID string) (*Person, error) {
	args := m.Called(ctx, id, communityID)
	p, _ := args.Get(0).(*Person)
	return p, args.Error(1)
}

type mockPayments struct{ mock.Mock }

func (m *mockPayments) CanReceivePayment(ctx context.Context, communityID, personID string) (bool, error) {
	args := m.Called(ctx, communityID, personID)
	return args.Bool(0), args.Error(1)
}

func (m *mockPayments) CreatePreauthTransaction(ctx context.Context, req PreauthRequest) (*GatewayFields, error) {
	args := m.Called(ctx, req)
	f, _ := args.Get(0).(*GatewayFields)
	return f, args.Error(1)
}

type fixture struct {
	listings *mockListings
	people   *mockPeople
	payments *mockPayments
	svc      *Service
}

func newFixture(t *testing.T, listing *Listing) *fixture {
	t.Helper()
	f := &fixture{listings: &mockListings{}, people: &mockPeople{}, payments: &mockPayments{}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewService(f.listings, f.people, f.payments, Config{PublicURL: "https://market.example.com/"}, logger)

	if listing != nil {
		f.listings.On("Get", mock.Anything, listing.ID).Return(listing, nil)
		f.payments.On("CanReceivePayment", mock.Anything, listing.CommunityID, listing.AuthorID).Return(true, nil).Maybe()
		f.people.On("Get", mock.Anything, listing.AuthorID, listing.CommunityID).
			Return(&Person{ID: listing.AuthorID, DisplayName: "Alice"}, nil).Maybe()
	}
	t.Cleanup(func() {
		f.listings.AssertExpectations(t)
		f.payments.AssertExpectations(t)
	})
	return f
}

var community = Community{ID: "c-1", Name: "Canoes", LogoURL: "https://cdn.example.com/logo.png?v=42"}

func requireRejection(t *testing.T, err error) *Rejection {
	t.Helper()
	var rej *Rejection
	require.True(t, errors.As(err, &rej), "want *Rejection, got %v", err)
	return rej
}

func TestPreview_BookingWithShipping(t *testing.T) {
	l := bookingListing()
	f := newFixture(t, &l)

	view, err := f.svc.Preview(context.Background(), PreviewInput{
		ListingID: l.ID,
		Community: community,
		BuyerID:   "buyer-1",
		Params:    Params{StartOn: "2024-01-01", EndOn: "2024-01-03"},
	})
	require.NoError(t, err)

	assert.Equal(t, DeliveryShipping, view.Delivery)
	assert.True(t, view.Booking)
	assert.Equal(t, 3, view.Totals.Quantity)
	assert.True(t, view.Totals.Subtotal.Equal(decimal.NewFromInt(60)))
	assert.True(t, view.Totals.Shipping.Equal(decimal.NewFromInt(9)))
	assert.True(t, view.Totals.Total.Equal(decimal.NewFromInt(69)))
	assert.True(t, view.Totals.ShowShipping)
	assert.Equal(t, "2024-01-01", view.Form.StartOn)
	assert.Equal(t, "2024-01-03", view.Form.EndOn)
	assert.Equal(t, 3, view.Form.Quantity)
	assert.Equal(t, "Alice", view.Author.DisplayName)
	assert.Equal(t, 3, view.ExpirationDays)
}

func TestPreview_DeliveryMissingGoesToListing(t *testing.T) {
	l := bookingListing()
	l.PickupEnabled = true
	f := newFixture(t, &l)

	// no delivery chosen and no dates: only the delivery rule reports
	_, err := f.svc.Preview(context.Background(), PreviewInput{ListingID: l.ID, Community: community, BuyerID: "buyer-1"})
	rej := requireRejection(t, err)
	assert.Equal(t, CodeDeliveryMethodMissing, rej.Code)
	assert.Equal(t, TargetListing, rej.Target)
	assert.Equal(t, MustMessage(CodeDeliveryMethodMissing), rej.Message)
}

func TestPreview_EndBeforeStart(t *testing.T) {
	l := bookingListing()
	f := newFixture(t, &l)

	_, err := f.svc.Preview(context.Background(), PreviewInput{
		ListingID: l.ID, Community: community, BuyerID: "buyer-1",
		Params: Params{StartOn: "2024-05-10", EndOn: "2024-05-09"},
	})
	assert.Equal(t, CodeEndCantBeBeforeStart, requireRejection(t, err).Code)
}

func TestPreview_PreChecks(t *testing.T) {
	t.Run("listing not found", func(t *testing.T) {
		f := newFixture(t, nil)
		f.listings.On("Get", mock.Anything, "missing").Return(nil, ErrListingNotFound)

		_, err := f.svc.Preview(context.Background(), PreviewInput{ListingID: "missing", Community: community})
		rej := requireRejection(t, err)
		assert.Equal(t, CodeListingNotFound, rej.Code)
		assert.Equal(t, TargetHome, rej.Target)
	})

	t.Run("other community", func(t *testing.T) {
		l := bookingListing()
		l.CommunityID = "c-2"
		f := newFixture(t, nil)
		f.listings.On("Get", mock.Anything, l.ID).Return(&l, nil)

		_, err := f.svc.Preview(context.Background(), PreviewInput{ListingID: l.ID, Community: community, BuyerID: "buyer-1"})
		assert.Equal(t, CodeNotAuthorizedToView, requireRejection(t, err).Code)
	})

	t.Run("closed", func(t *testing.T) {
		l := bookingListing()
		l.Open = false
		f := newFixture(t, nil)
		f.listings.On("Get", mock.Anything, l.ID).Return(&l, nil)

		_, err := f.svc.Preview(context.Background(), PreviewInput{ListingID: l.ID, Community: community, BuyerID: "buyer-1"})
		assert.Equal(t, CodeListingClosed, requireRejection(t, err).Code)
	})

	t.Run("own listing", func(t *testing.T) {
		l := bookingListing()
		f := newFixture(t, nil)
		f.listings.On("Get", mock.Anything, l.ID).Return(&l, nil)

		_, err := f.svc.Preview(context.Background(), PreviewInput{ListingID: l.ID, Community: community, BuyerID: l.AuthorID})
		assert.Equal(t, CodeCannotMessageSelf, requireRejection(t, err).Code)
	})

	t.Run("author cannot receive payments", func(t *testing.T) {
		l := bookingListing()
		f := newFixture(t, nil)
		f.listings.On("Get", mock.Anything, l.ID).Return(&l, nil)
		f.payments.On("CanReceivePayment", mock.Anything, l.CommunityID, l.AuthorID).Return(false, nil)

		_, err := f.svc.Preview(context.Background(), PreviewInput{ListingID: l.ID, Community: community, BuyerID: "buyer-1"})
		assert.Equal(t, CodePaymentDetailsMissing, requireRejection(t, err).Code)
	})

	t.Run("listing store down", func(t *testing.T) {
		boom := errors.New("connection refused")
		f := newFixture(t, nil)
		f.listings.On("Get", mock.Anything, "l-1").Return(nil, boom)

		_, err := f.svc.Preview(context.Background(), PreviewInput{ListingID: "l-1", Community: community})
		assert.ErrorIs(t, err, boom)
		var rej *Rejection
		assert.False(t, errors.As(err, &rej))
	})
}

func TestPreview_InvalidQuantityIsParamError(t *testing.T) {
	l := bookingListing()
	l.UnitType = UnitUnit
	f := newFixture(t, &l)

	_, err := f.svc.Preview(context.Background(), PreviewInput{
		ListingID: l.ID, Community: community, BuyerID: "buyer-1",
		Params: Params{Quantity: "zero"},
	})
	var pe *ParamError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "quantity", pe.Field)
}

func TestCommit_SyncGatewayRedirects(t *testing.T) {
	l := bookingListing()
	f := newFixture(t, &l)

	var got PreauthRequest
	f.payments.On("CreatePreauthTransaction", mock.Anything, mock.AnythingOfType("checkout.PreauthRequest")).
		Run(func(args mock.Arguments) { got = args.Get(1).(PreauthRequest) }).
		Return(&GatewayFields{TransactionID: "tx-1", RedirectURL: "https://gateway.example.com/pay/tx-1"}, nil)

	out, err := f.svc.Commit(context.Background(), CommitInput{
		ListingID: l.ID, Community: community, BuyerID: "buyer-1",
		Params:         Params{StartOn: "2024-01-01", EndOn: "2024-01-03", Message: "hi"},
		IdempotencyKey: "key-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://gateway.example.com/pay/tx-1", out.RedirectURL)
	assert.Empty(t, out.OpStatusURL)

	assert.Equal(t, 3, got.Quantity)
	assert.True(t, got.ShippingPrice.Equal(decimal.NewFromInt(9)))
	assert.True(t, got.Total.Equal(decimal.NewFromInt(69)))
	assert.Equal(t, DeliveryShipping, got.DeliveryMethod)
	assert.Equal(t, "2024-01-01", got.StartOn)
	assert.Equal(t, "2024-01-03", got.EndOn)
	assert.Equal(t, "hi", got.Content)
	assert.Equal(t, "buyer-1", got.StarterID)
	assert.Equal(t, "key-1", got.IdempotencyKey)
	assert.Equal(t, "https://market.example.com/payments/checkout/success", got.SuccessURL)
	assert.Equal(t, "https://market.example.com/payments/checkout/cancel?listing_id=l-1", got.CancelURL)
	assert.Equal(t, "https://cdn.example.com/logo.png", got.MerchantBrandLogoURL)
}

func TestCommit_AsyncGatewayReturnsStatusURL(t *testing.T) {
	l := bookingListing()
	f := newFixture(t, &l)
	f.payments.On("CreatePreauthTransaction", mock.Anything, mock.Anything).
		Return(&GatewayFields{TransactionID: "tx-2", ProcessToken: "tok-9"}, nil)

	out, err := f.svc.Commit(context.Background(), CommitInput{
		ListingID: l.ID, Community: community, BuyerID: "buyer-1",
		Params: Params{StartOn: "2024-01-01", EndOn: "2024-01-01"},
	})
	require.NoError(t, err)
	assert.Empty(t, out.RedirectURL)
	assert.Equal(t, "https://market.example.com/transactions/op_status/tok-9", out.OpStatusURL)
	assert.Equal(t, MustMessage(CodePaymentGatewayGenericError), out.OpErrorMsg)
}

func TestCommit_AgreementMissingKeepsChoices(t *testing.T) {
	l := bookingListing()
	f := newFixture(t, &l)
	withAgreement := community
	withAgreement.TransactionAgreementRequired = true

	_, err := f.svc.Commit(context.Background(), CommitInput{
		ListingID: l.ID, Community: withAgreement, BuyerID: "buyer-1",
		Params: Params{StartOn: "2024-01-01", EndOn: "2024-01-03", Delivery: "shipping"},
	})
	rej := requireRejection(t, err)
	assert.Equal(t, CodeAgreementMissing, rej.Code)
	assert.Equal(t, TargetPreview, rej.Target)
	assert.Equal(t, "2024-01-01", rej.Params.Get("start_on"))
	assert.Equal(t, "2024-01-03", rej.Params.Get("end_on"))
	assert.Equal(t, "shipping", rej.Params.Get("delivery"))
	f.payments.AssertNotCalled(t, "CreatePreauthTransaction", mock.Anything, mock.Anything)
}

func TestCommit_AgreementAccepted(t *testing.T) {
	l := bookingListing()
	f := newFixture(t, &l)
	withAgreement := community
	withAgreement.TransactionAgreementRequired = true
	f.payments.On("CreatePreauthTransaction", mock.Anything, mock.Anything).
		Return(&GatewayFields{TransactionID: "tx-3", RedirectURL: "https://gw/x"}, nil)

	_, err := f.svc.Commit(context.Background(), CommitInput{
		ListingID: l.ID, Community: withAgreement, BuyerID: "buyer-1",
		Params: Params{StartOn: "2024-01-01", EndOn: "2024-01-03", ContractAgreed: "1"},
	})
	assert.NoError(t, err)
}

func TestCommit_GatewayFailureIsGeneric(t *testing.T) {
	l := bookingListing()
	f := newFixture(t, &l)
	f.payments.On("CreatePreauthTransaction", mock.Anything, mock.Anything).
		Return(nil, errors.New("gateway timeout"))

	_, err := f.svc.Commit(context.Background(), CommitInput{
		ListingID: l.ID, Community: community, BuyerID: "buyer-1",
		Params: Params{StartOn: "2024-01-01", EndOn: "2024-01-03"},
	})
	rej := requireRejection(t, err)
	assert.Equal(t, CodePaymentGatewayGenericError, rej.Code)
	assert.Equal(t, TargetListing, rej.Target)
}

func TestCommit_ValidationFailureSkipsGateway(t *testing.T) {
	l := bookingListing()
	f := newFixture(t, &l)

	_, err := f.svc.Commit(context.Background(), CommitInput{
		ListingID: l.ID, Community: community, BuyerID: "buyer-1",
		Params: Params{StartOn: "2024-01-01"},
	})
	rej := requireRejection(t, err)
	assert.Equal(t, CodeDatesMissing, rej.Code)
	assert.Equal(t, TargetListing, rej.Target)
	f.payments.AssertNotCalled(t, "CreatePreauthTransaction", mock.Anything, mock.Anything)
}

func TestMessages(t *testing.T) {
	for _, code := range []ErrorCode{
		CodeDeliveryMethodMissing, CodeDatesMissing, CodeEndCantBeBeforeStart, CodeAgreementMissing,
		CodeListingNotFound, CodeNotAuthorizedToView, CodeCannotMessageSelf, CodeListingClosed,
		CodePaymentDetailsMissing, CodePaymentGatewayGenericError,
	} {
		msg, ok := MessageFor(code)
		assert.True(t, ok, code)
		assert.NotEmpty(t, msg, code)
	}

	_, ok := MessageFor("no_such_code")
	assert.False(t, ok)
	assert.Panics(t, func() { MustMessage("no_such_code") })
}
