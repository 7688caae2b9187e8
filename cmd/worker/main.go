package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/imrishuroy/go-listing-checkout/internal/aws"
	"github.com/imrishuroy/go-listing-checkout/internal/config"
	"github.com/imrishuroy/go-listing-checkout/internal/process"
	"github.com/imrishuroy/go-listing-checkout/internal/telemetry"
	"github.com/imrishuroy/go-listing-checkout/internal/transactions"
	"github.com/imrishuroy/go-listing-checkout/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx := context.Background()
	shutdown, err := telemetry.SetupTracing(ctx, cfg.ServiceName+"-worker", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	clients, err := aws.NewAWSClients(ctx)
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	p := worker.NewProcessor(
		transactions.NewStore(clients.DynamoDB, cfg.TransactionsTable),
		process.NewStore(clients.DynamoDB, cfg.ProcessTable, cfg.ProcessTTL),
		aws.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace),
		cfg.GatewayURL,
		cfg.WorkerLease,
		logger,
	)

	// If RUN_LOCAL=true, process a single message from LOCAL_SQS_BODY.
	if cfg.RunLocal {
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			log.Fatalf("LOCAL_SQS_BODY is required with RUN_LOCAL=true")
		}
		event := events.SQSEvent{Records: []events.SQSMessage{{MessageId: "local-1", Body: body}}}
		resp, err := p.Handle(ctx, event)
		if err != nil {
			log.Fatalf("local handler error: %v", err)
		}
		if len(resp.BatchItemFailures) > 0 {
			log.Fatalf("local message failed")
		}
		return
	}

	lambda.Start(p.Handle)
}
