package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/imrishuroy/go-listing-checkout/internal/aws"
	"github.com/imrishuroy/go-listing-checkout/internal/catalog"
	"github.com/imrishuroy/go-listing-checkout/internal/checkout"
	"github.com/imrishuroy/go-listing-checkout/internal/config"
	"github.com/imrishuroy/go-listing-checkout/internal/handlers"
	"github.com/imrishuroy/go-listing-checkout/internal/payment"
	"github.com/imrishuroy/go-listing-checkout/internal/process"
	"github.com/imrishuroy/go-listing-checkout/internal/telemetry"
	"github.com/imrishuroy/go-listing-checkout/internal/transactions"
)

func setupRouter(cfg config.Config, hcfg handlers.HandlerConfig, reg *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), handlers.RequestID(), telemetry.Tracing(cfg.ServiceName), hcfg.Metrics.Middleware())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(telemetry.Handler(reg)))

	handlers.RegisterCheckoutRoutes(r, hcfg)

	return r
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx := context.Background()
	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	clients, err := aws.NewAWSClients(ctx)
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	// catalog reads go straight to the catalog service without redis
	var cache *catalog.Cache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		cache = catalog.NewCache(rdb, "checkout:catalog", cfg.CacheTTL, logger)
	}
	catalogClient := catalog.NewClient(cfg.CatalogURL, nil)

	payments := payment.NewService(
		payment.NewAccounts(clients.DynamoDB, cfg.PaymentAccountsTable),
		transactions.NewStore(clients.DynamoDB, cfg.TransactionsTable),
		process.NewStore(clients.DynamoDB, cfg.ProcessTable, cfg.ProcessTTL),
		aws.NewPublisher(clients.SQS, cfg.QueueURL),
		aws.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace),
		payment.Config{GatewayURL: cfg.GatewayURL, Async: cfg.GatewayAsync},
		logger,
	)
	svc := checkout.NewService(
		catalog.NewListings(catalogClient, cache),
		catalog.NewPeople(catalogClient, cache),
		payments,
		checkout.Config{PublicURL: cfg.PublicURL, AuthorizationExpiryDays: cfg.AuthorizationExpiryDays},
		logger,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hcfg := handlers.HandlerConfig{
		Checkout:         svc,
		Communities:      catalog.NewCommunities(catalogClient, cache),
		Processes:        payments,
		Metrics:          telemetry.NewServerMetrics(reg, cfg.ServiceName),
		Logger:           logger,
		CommitsPerMinute: cfg.CommitsPerMinute,
		CommitBurst:      cfg.CommitBurst,
	}

	r := setupRouter(cfg, hcfg, reg)

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if cfg.RunLocal {
		runLocal(r, ":"+cfg.Port, logger)
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}

func runLocal(r *gin.Engine, addr string, logger *slog.Logger) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("running local server", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to run local server: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", slog.String("error", err.Error()))
	}
}
