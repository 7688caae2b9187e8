package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/imrishuroy/go-listing-checkout/internal/pricing"
)

// Config holds the settings the orchestrator needs to build gateway URLs.
type Config struct {
	// PublicURL is the externally visible base URL of the marketplace.
	PublicURL string
	// AuthorizationExpiryDays is how long the gateway holds a preauthorization.
	AuthorizationExpiryDays int
}

// Service runs the two steps of transaction initiation.
type Service struct {
	listings ListingQuery
	people   PersonQuery
	payments PaymentService
	cfg      Config
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewService wires the orchestrator to its collaborators.
func NewService(listings ListingQuery, people PersonQuery, payments PaymentService, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AuthorizationExpiryDays <= 0 {
		cfg.AuthorizationExpiryDays = 3
	}
	return &Service{
		listings: listings,
		people:   people,
		payments: payments,
		cfg:      cfg,
		tracer:   otel.Tracer("go-listing-checkout/checkout"),
		logger:   logger.With(slog.String("component", "checkout")),
	}
}

// PreviewInput is the input of the preview step.
type PreviewInput struct {
	ListingID string
	Community Community
	BuyerID   string
	Params    Params
}

// FormDefaults pre-fill the commit form rendered with a preview.
type FormDefaults struct {
	Delivery DeliveryMethod `json:"delivery,omitempty"`
	StartOn  string         `json:"start_on,omitempty"`
	EndOn    string         `json:"end_on,omitempty"`
	Quantity int            `json:"quantity"`
	Message  string         `json:"message,omitempty"`
}

// PreviewView is everything the preview page shows.
type PreviewView struct {
	Listing           Listing           `json:"listing"`
	Author            Person            `json:"author"`
	Booking           bool              `json:"booking"`
	Delivery          DeliveryMethod    `json:"delivery"`
	Totals            pricing.Breakdown `json:"totals"`
	Form              FormDefaults      `json:"form"`
	AgreementRequired bool              `json:"agreement_required"`
	ExpirationDays    int               `json:"expiration_period_days"`
}

// Preview validates the request and prices it. It has no side effects.
func (s *Service) Preview(ctx context.Context, in PreviewInput) (*PreviewView, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.preview",
		trace.WithAttributes(
			attribute.String("listing.id", in.ListingID),
			attribute.String("community.id", in.Community.ID),
		),
	)
	defer span.End()

	listing, err := s.checkListing(ctx, in.ListingID, in.Community, in.BuyerID)
	if err != nil {
		return nil, traced(span, err)
	}
	caps := listing.Capabilities()

	req, err := Normalize(in.Params, caps)
	if err != nil {
		return nil, traced(span, err)
	}

	res := ValidateForPreview(req, caps)
	if !res.OK() {
		return nil, traced(span, s.reject(res.Err().Code, TargetListing, listing.ID, nil))
	}
	req = res.Value()

	quantity := ResolveQuantity(req, caps.Booking)
	author, err := s.people.Get(ctx, listing.AuthorID, in.Community.ID)
	if err != nil {
		return nil, traced(span, fmt.Errorf("get author %s: %w", listing.AuthorID, err))
	}

	total := ComputeTotals(*listing, req, quantity)
	view := &PreviewView{
		Listing:           *listing,
		Author:            *author,
		Booking:           caps.Booking,
		Delivery:          req.Delivery,
		Totals:            pricing.NewBreakdown(total, listing.Currency, req.Delivery == DeliveryShipping),
		AgreementRequired: in.Community.TransactionAgreementRequired,
		ExpirationDays:    s.cfg.AuthorizationExpiryDays,
		Form: FormDefaults{
			Delivery: req.Delivery,
			Quantity: quantity,
			Message:  req.Message,
		},
	}
	if req.Booking != nil {
		view.Form.StartOn = FormatDate(req.Booking.StartOn)
		view.Form.EndOn = FormatDate(req.Booking.EndOn)
	}
	span.SetAttributes(attribute.Int("order.quantity", quantity), attribute.String("order.total", total.Total().String()))
	return view, nil
}

// CommitInput is the input of the commit step.
type CommitInput struct {
	ListingID      string
	Community      Community
	BuyerID        string
	Params         Params
	IdempotencyKey string
}

// CommitResult tells the caller where to send the buyer next: the gateway
// (RedirectURL) or the status poll of an async gateway (OpStatusURL).
type CommitResult struct {
	TransactionID string `json:"transaction_id,omitempty"`
	RedirectURL   string `json:"redirect_url,omitempty"`
	ProcessToken  string `json:"process_token,omitempty"`
	OpStatusURL   string `json:"op_status_url,omitempty"`
	OpErrorMsg    string `json:"op_error_msg,omitempty"`
}

// Commit validates the request, prices it exactly as Preview does and asks
// the payment collaborator to create a preauthorized transaction. It is not
// idempotent unless the collaborator deduplicates on IdempotencyKey.
func (s *Service) Commit(ctx context.Context, in CommitInput) (*CommitResult, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.commit",
		trace.WithAttributes(
			attribute.String("listing.id", in.ListingID),
			attribute.String("community.id", in.Community.ID),
		),
	)
	defer span.End()

	listing, err := s.checkListing(ctx, in.ListingID, in.Community, in.BuyerID)
	if err != nil {
		return nil, traced(span, err)
	}
	caps := listing.Capabilities()

	req, err := Normalize(in.Params, caps)
	if err != nil {
		return nil, traced(span, err)
	}

	res := ValidateForCommit(req, caps, in.Community.TransactionAgreementRequired)
	if !res.OK() {
		code := res.Err().Code
		if code == CodeAgreementMissing {
			return nil, traced(span, s.reject(code, TargetPreview, listing.ID, previewParams(req)))
		}
		return nil, traced(span, s.reject(code, TargetListing, listing.ID, nil))
	}
	req = res.Value()

	quantity := ResolveQuantity(req, caps.Booking)
	total := ComputeTotals(*listing, req, quantity)

	preauth := PreauthRequest{
		CommunityID:          in.Community.ID,
		ListingID:            listing.ID,
		ListingTitle:         listing.Title,
		StarterID:            in.BuyerID,
		AuthorID:             listing.AuthorID,
		UnitType:             listing.UnitType,
		UnitPrice:            listing.Price,
		Currency:             listing.Currency,
		Quantity:             quantity,
		ShippingPrice:        total.Shipping.Total(),
		Total:                total.Total(),
		DeliveryMethod:       req.Delivery,
		Content:              req.Message,
		SuccessURL:           s.publicURL("/payments/checkout/success", nil),
		CancelURL:            s.publicURL("/payments/checkout/cancel", url.Values{"listing_id": {listing.ID}}),
		MerchantBrandLogoURL: withoutQuery(in.Community.LogoURL),
		IdempotencyKey:       in.IdempotencyKey,
	}
	if req.Booking != nil {
		preauth.StartOn = FormatDate(req.Booking.StartOn)
		preauth.EndOn = FormatDate(req.Booking.EndOn)
	}

	fields, err := s.payments.CreatePreauthTransaction(ctx, preauth)
	if err != nil {
		s.logger.ErrorContext(ctx, "preauth transaction failed",
			slog.String("listing_id", listing.ID),
			slog.String("error", err.Error()),
		)
		return nil, traced(span, s.reject(CodePaymentGatewayGenericError, TargetListing, listing.ID, nil))
	}

	out := &CommitResult{TransactionID: fields.TransactionID}
	if fields.RedirectURL != "" {
		out.RedirectURL = fields.RedirectURL
		return out, nil
	}
	out.ProcessToken = fields.ProcessToken
	out.OpStatusURL = s.publicURL("/transactions/op_status/"+url.PathEscape(fields.ProcessToken), nil)
	out.OpErrorMsg = MustMessage(CodePaymentGatewayGenericError)
	return out, nil
}

// checkListing loads the listing and applies the request filters that come
// before parameter handling.
func (s *Service) checkListing(ctx context.Context, listingID string, community Community, buyerID string) (*Listing, error) {
	listing, err := s.listings.Get(ctx, listingID)
	if errors.Is(err, ErrListingNotFound) {
		return nil, s.reject(CodeListingNotFound, TargetHome, listingID, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get listing %s: %w", listingID, err)
	}

	switch {
	case listing.CommunityID != community.ID:
		return nil, s.reject(CodeNotAuthorizedToView, TargetHome, listing.ID, nil)
	case !listing.Open:
		return nil, s.reject(CodeListingClosed, TargetListing, listing.ID, nil)
	case listing.AuthorID == buyerID:
		return nil, s.reject(CodeCannotMessageSelf, TargetListing, listing.ID, nil)
	}

	ok, err := s.payments.CanReceivePayment(ctx, community.ID, listing.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("check payment details of %s: %w", listing.AuthorID, err)
	}
	if !ok {
		return nil, s.reject(CodePaymentDetailsMissing, TargetListing, listing.ID, nil)
	}
	return listing, nil
}

func (s *Service) reject(code ErrorCode, target Target, listingID string, params url.Values) *Rejection {
	return &Rejection{
		Code:      code,
		Message:   MustMessage(code),
		Target:    target,
		ListingID: listingID,
		Params:    params,
	}
}

func (s *Service) publicURL(path string, q url.Values) string {
	u := strings.TrimRight(s.cfg.PublicURL, "/") + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// previewParams re-stringifies the submitted choices so the preview page
// can be shown again with them.
func previewParams(req TransactionRequest) url.Values {
	q := url.Values{}
	if req.Booking != nil {
		if v := FormatDate(req.Booking.StartOn); v != "" {
			q.Set("start_on", v)
		}
		if v := FormatDate(req.Booking.EndOn); v != "" {
			q.Set("end_on", v)
		}
	}
	if req.Delivery == DeliveryShipping || req.Delivery == DeliveryPickup {
		q.Set("delivery", string(req.Delivery))
	}
	if req.Quantity != nil {
		q.Set("quantity", strconv.Itoa(*req.Quantity))
	}
	return q
}

// withoutQuery drops the query string of the logo URL. Gateways reject
// image URLs carrying volatile parameters such as cache busters.
func withoutQuery(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func traced(span trace.Span, err error) error {
	var rej *Rejection
	if errors.As(err, &rej) {
		span.SetAttributes(attribute.String("checkout.rejection", string(rej.Code)))
		return err
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
