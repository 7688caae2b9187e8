// Package worker completes async preauths queued by the api.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/imrishuroy/go-listing-checkout/internal/aws"
	"github.com/imrishuroy/go-listing-checkout/internal/payment"
	"github.com/imrishuroy/go-listing-checkout/internal/process"
	"github.com/imrishuroy/go-listing-checkout/internal/transactions"
)

// MetricPreauthCompleted counts async preauths the worker finished.
const MetricPreauthCompleted = "PreauthCompleted"

// DefaultLease is how long a transaction may sit in processing before
// another worker takes it over. Keep it above the queue visibility timeout.
const DefaultLease = 5 * time.Minute

// errInFlight asks SQS to redeliver once the current holder's lease ends.
var errInFlight = errors.New("transaction is being processed by another worker")

// Processor handles SQS messages and moves transactions through
// initiated -> processing -> preauthorized.
type Processor struct {
	txStore    *transactions.Store
	procStore  *process.Store
	metrics    *aws.Metrics
	gatewayURL string
	lease      time.Duration
	logger     *slog.Logger
	nowFunc    func() time.Time
}

// NewProcessor creates a worker processor over the given stores. A lease
// of zero uses DefaultLease.
func NewProcessor(txStore *transactions.Store, procStore *process.Store, metrics *aws.Metrics, gatewayURL string, lease time.Duration, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if lease <= 0 {
		lease = DefaultLease
	}
	return &Processor{
		txStore:    txStore,
		procStore:  procStore,
		metrics:    metrics,
		gatewayURL: gatewayURL,
		lease:      lease,
		logger:     logger.With(slog.String("component", "worker")),
		nowFunc:    time.Now,
	}
}

// Handle processes an SQS batch and reports the messages to retry.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.logger.ErrorContext(ctx, "worker error",
				slog.String("message_id", rec.MessageId),
				slog.String("error", err.Error()),
			)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg payment.JobMessage
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	log := p.logger.With(
		slog.String("transaction_id", msg.TransactionID),
		slog.String("process_token", msg.ProcessToken),
		slog.String("correlation_id", msg.CorrelationID),
	)
	log.InfoContext(ctx, "received preauth job")

	tx, err := p.txStore.Get(ctx, msg.TransactionID)
	if err != nil {
		return fmt.Errorf("fetch transaction: %w", err)
	}
	if tx == nil {
		p.failProcess(ctx, msg.ProcessToken, "transaction not found")
		return fmt.Errorf("transaction not found: %s", msg.TransactionID)
	}

	err = p.txStore.UpdateStatus(ctx, tx.TransactionID, transactions.StatusInitiated, transactions.StatusProcessing)
	if errors.Is(err, transactions.ErrStatusMismatch) {
		claimed, err := p.resolveDuplicate(ctx, log, msg)
		if err != nil || !claimed {
			return err
		}
	} else if err != nil {
		return fmt.Errorf("update status to processing: %w", err)
	}

	if p.gatewayURL == "" {
		return p.fail(ctx, tx.TransactionID, msg.ProcessToken, errors.New("gateway url is not configured"))
	}
	redirect := payment.RedirectURL(p.gatewayURL, *tx)

	if err := p.txStore.MarkPreauthorized(ctx, tx.TransactionID, redirect); err != nil {
		return p.fail(ctx, tx.TransactionID, msg.ProcessToken, fmt.Errorf("mark preauthorized: %w", err))
	}
	if err := p.procStore.MarkDone(ctx, msg.ProcessToken, redirect); err != nil {
		return fmt.Errorf("mark process done: %w", err)
	}

	if err := p.metrics.Count(ctx, MetricPreauthCompleted, map[string]string{"mode": "async"}); err != nil {
		log.WarnContext(ctx, "publish metric", slog.String("error", err.Error()))
	}
	log.InfoContext(ctx, "preauth completed")
	return nil
}

// resolveDuplicate handles a message whose transaction already left
// initiated. It reports true when this worker took over a processing
// transaction whose previous holder stopped renewing it.
func (p *Processor) resolveDuplicate(ctx context.Context, log *slog.Logger, msg payment.JobMessage) (bool, error) {
	tx, err := p.txStore.Get(ctx, msg.TransactionID)
	if err != nil {
		return false, fmt.Errorf("fetch transaction: %w", err)
	}
	if tx == nil {
		return false, fmt.Errorf("transaction disappeared: %s", msg.TransactionID)
	}
	switch tx.Status {
	case transactions.StatusPreauthorized:
		// an earlier run may have stopped before the process was marked
		log.InfoContext(ctx, "already preauthorized")
		return false, p.procStore.MarkDone(ctx, msg.ProcessToken, tx.RedirectURL)
	case transactions.StatusProcessing:
		if p.nowFunc().Sub(tx.UpdatedAt) < p.lease {
			return false, errInFlight
		}
		err := p.txStore.Reclaim(ctx, tx.TransactionID, tx.UpdatedAt)
		if errors.Is(err, transactions.ErrStatusMismatch) {
			return false, errInFlight
		}
		if err != nil {
			return false, fmt.Errorf("reclaim transaction: %w", err)
		}
		log.WarnContext(ctx, "reclaimed stale transaction", slog.Time("held_since", tx.UpdatedAt))
		return true, nil
	case transactions.StatusFailed:
		log.InfoContext(ctx, "transaction already failed")
		return false, nil
	default:
		return false, fmt.Errorf("unexpected status for transaction=%s: %s", tx.TransactionID, tx.Status)
	}
}

// fail marks both records failed and returns err for retry. A retry finds
// the transaction failed and stops there.
func (p *Processor) fail(ctx context.Context, transactionID, token string, err error) error {
	if mErr := p.txStore.MarkFailed(ctx, transactionID, transactions.StatusProcessing, err.Error()); mErr != nil {
		p.logger.ErrorContext(ctx, "mark transaction failed", slog.String("transaction_id", transactionID), slog.String("error", mErr.Error()))
	}
	p.failProcess(ctx, token, err.Error())
	return err
}

func (p *Processor) failProcess(ctx context.Context, token, note string) {
	if err := p.procStore.MarkFailed(ctx, token, note); err != nil {
		p.logger.ErrorContext(ctx, "mark process failed", slog.String("process_token", token), slog.String("error", err.Error()))
	}
}
