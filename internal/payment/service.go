package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/imrishuroy/go-listing-checkout/internal/aws"
	"github.com/imrishuroy/go-listing-checkout/internal/checkout"
	"github.com/imrishuroy/go-listing-checkout/internal/process"
	"github.com/imrishuroy/go-listing-checkout/internal/transactions"
)

var (
	// ErrPreviousAttemptFailed is returned when a retried token already failed.
	ErrPreviousAttemptFailed = errors.New("previous attempt with this token failed")
	// ErrProcessVanished means the token conflicted but its record is gone (TTL).
	ErrProcessVanished = errors.New("process record missing after token conflict")
	// ErrKeyReused is returned when an idempotency key is replayed with a
	// different request.
	ErrKeyReused = errors.New("idempotency key reused for a different request")
)

// Metric names published to CloudWatch.
const (
	MetricPreauthCreated = "PreauthCreated"
	MetricPreauthReplay  = "PreauthReplayed"
	MetricPreauthFailed  = "PreauthFailed"
)

// Config selects the gateway behaviour.
type Config struct {
	// GatewayURL is the base URL of the hosted checkout.
	GatewayURL string
	// Async hands preauth creation to the worker instead of redirecting
	// the buyer right away.
	Async bool
}

// Service is the payment collaborator of checkout. It persists the
// transaction and its process record, then either redirects the buyer to
// the gateway or queues the job for the worker.
type Service struct {
	accounts     *Accounts
	transactions *transactions.Store
	processes    *process.Store
	publisher    *aws.Publisher
	metrics      *aws.Metrics
	cfg          Config
	tracer       trace.Tracer
	logger       *slog.Logger
}

// NewService wires the payment collaborator.
func NewService(accounts *Accounts, txs *transactions.Store, processes *process.Store, publisher *aws.Publisher, metrics *aws.Metrics, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		accounts:     accounts,
		transactions: txs,
		processes:    processes,
		publisher:    publisher,
		metrics:      metrics,
		cfg:          cfg,
		tracer:       otel.Tracer("go-listing-checkout/payment"),
		logger:       logger.With(slog.String("component", "payment")),
	}
}

var _ checkout.PaymentService = (*Service)(nil)

// CanReceivePayment reports whether the person has a verified payment account.
func (s *Service) CanReceivePayment(ctx context.Context, communityID, personID string) (bool, error) {
	acc, err := s.accounts.Get(ctx, communityID, personID)
	if err != nil {
		return false, err
	}
	return acc != nil && acc.Status == AccountVerified, nil
}

// CreatePreauthTransaction creates the transaction. A repeated idempotency
// key returns the outcome of the first call.
func (s *Service) CreatePreauthTransaction(ctx context.Context, req checkout.PreauthRequest) (*checkout.GatewayFields, error) {
	ctx, span := s.tracer.Start(ctx, "payment.create_preauth",
		trace.WithAttributes(
			attribute.String("listing.id", req.ListingID),
			attribute.Bool("gateway.async", s.cfg.Async),
		),
	)
	defer span.End()

	token := process.ScopedToken(req.CommunityID, req.StarterID, req.IdempotencyKey)
	fp := fingerprint(req)

	tx := transactions.Transaction{
		TransactionID:  uuid.NewString(),
		CommunityID:    req.CommunityID,
		ListingID:      req.ListingID,
		ListingTitle:   req.ListingTitle,
		StarterID:      req.StarterID,
		AuthorID:       req.AuthorID,
		UnitType:       req.UnitType,
		UnitPrice:      req.UnitPrice.String(),
		Currency:       req.Currency,
		Quantity:       req.Quantity,
		ShippingPrice:  req.ShippingPrice.String(),
		Total:          req.Total.String(),
		DeliveryMethod: string(req.DeliveryMethod),
		StartOn:        req.StartOn,
		EndOn:          req.EndOn,
		Content:        req.Content,
		SuccessURL:     req.SuccessURL,
		CancelURL:      req.CancelURL,
		LogoURL:        req.MerchantBrandLogoURL,
		ProcessToken:   token,
		Status:         transactions.StatusInitiated,
	}

	rec := s.processes.NewRecord(token, tx.TransactionID, s.cfg.Async)
	rec.CommunityID = req.CommunityID
	rec.StarterID = req.StarterID
	rec.Fingerprint = fp
	if !s.cfg.Async {
		tx.RedirectURL = RedirectURL(s.cfg.GatewayURL, tx)
		rec.Status = process.StatusDone
		rec.RedirectURL = tx.RedirectURL
	}

	err := s.transactions.CreateWithProcessTransaction(ctx, s.processes.Table(), rec, tx)
	if errors.Is(err, transactions.ErrProcessExists) {
		s.count(ctx, MetricPreauthReplay)
		return s.replay(ctx, token, fp)
	}
	if err != nil {
		s.count(ctx, MetricPreauthFailed)
		return nil, fail(span, fmt.Errorf("create transaction: %w", err))
	}
	span.SetAttributes(attribute.String("transaction.id", tx.TransactionID))

	if !s.cfg.Async {
		s.count(ctx, MetricPreauthCreated)
		return &checkout.GatewayFields{TransactionID: tx.TransactionID, RedirectURL: tx.RedirectURL}, nil
	}

	if err := s.enqueue(ctx, tx.TransactionID, token); err != nil {
		s.count(ctx, MetricPreauthFailed)
		if mErr := s.processes.MarkFailed(ctx, token, fmt.Sprintf("sqs_send_failed: %v", err)); mErr != nil {
			s.logger.ErrorContext(ctx, "mark process failed", slog.String("process_token", token), slog.String("error", mErr.Error()))
		}
		if mErr := s.transactions.MarkFailed(ctx, tx.TransactionID, transactions.StatusInitiated, "enqueue failed"); mErr != nil {
			s.logger.ErrorContext(ctx, "mark transaction failed", slog.String("transaction_id", tx.TransactionID), slog.String("error", mErr.Error()))
		}
		return nil, fail(span, err)
	}

	s.count(ctx, MetricPreauthCreated)
	return &checkout.GatewayFields{TransactionID: tx.TransactionID, ProcessToken: token}, nil
}

// replay answers a repeated token from its stored process record.
func (s *Service) replay(ctx context.Context, token, fp string) (*checkout.GatewayFields, error) {
	rec, err := s.processes.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrProcessVanished
	}
	if rec.Fingerprint != fp {
		s.logger.WarnContext(ctx, "idempotency key reused", slog.String("process_token", token))
		return nil, ErrKeyReused
	}
	s.logger.InfoContext(ctx, "replaying preauth", slog.String("process_token", token), slog.String("status", rec.Status))

	switch rec.Status {
	case process.StatusDone:
		return &checkout.GatewayFields{TransactionID: rec.TransactionID, RedirectURL: rec.RedirectURL}, nil
	case process.StatusInProgress:
		return &checkout.GatewayFields{TransactionID: rec.TransactionID, ProcessToken: token}, nil
	case process.StatusFailed:
		return nil, ErrPreviousAttemptFailed
	default:
		return nil, fmt.Errorf("unknown process status %q", rec.Status)
	}
}

func (s *Service) enqueue(ctx context.Context, transactionID, token string) error {
	msg := JobMessage{TransactionID: transactionID, ProcessToken: token}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		msg.CorrelationID = sc.TraceID().String()
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return s.publisher.SendTransactionMessage(ctx, string(body), map[string]string{
		"transaction_id": transactionID,
		"process_token":  token,
		"correlation_id": msg.CorrelationID,
	})
}

// Status is the outcome of an async preauth as seen by the poll endpoint.
type Status struct {
	Completed   bool
	Failed      bool
	RedirectURL string
	UpdatedAt   time.Time
	// owner of the process
	CommunityID string
	StarterID   string
}

// ProcessStatus reads the process record of token. Returns
// process.ErrNotFound for unknown or expired tokens.
func (s *Service) ProcessStatus(ctx context.Context, token string) (*Status, error) {
	rec, err := s.processes.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, process.ErrNotFound
	}
	return &Status{
		Completed:   rec.Status != process.StatusInProgress,
		Failed:      rec.Status == process.StatusFailed,
		RedirectURL: rec.RedirectURL,
		UpdatedAt:   rec.UpdatedAt,
		CommunityID: rec.CommunityID,
		StarterID:   rec.StarterID,
	}, nil
}

// fingerprint digests what a replay of the same key must repeat.
func fingerprint(req checkout.PreauthRequest) string {
	h := sha256.New()
	for _, part := range []string{
		req.CommunityID,
		req.ListingID,
		req.StarterID,
		req.Currency,
		req.Total.String(),
		fmt.Sprint(req.Quantity),
		string(req.DeliveryMethod),
		req.StartOn,
		req.EndOn,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Service) count(ctx context.Context, name string) {
	mode := "sync"
	if s.cfg.Async {
		mode = "async"
	}
	if err := s.metrics.Count(ctx, name, map[string]string{"mode": mode}); err != nil {
		s.logger.WarnContext(ctx, "publish metric", slog.String("metric", name), slog.String("error", err.Error()))
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
