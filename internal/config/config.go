// Package config loads service settings from the environment.
package config

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is shared by the api and the worker.
type Config struct {
	Port      string
	RunLocal  bool
	PublicURL string

	AuthorizationExpiryDays int

	TransactionsTable    string
	ProcessTable         string
	PaymentAccountsTable string
	QueueURL             string
	ProcessTTL           time.Duration

	GatewayURL   string
	GatewayAsync bool
	// WorkerLease is how long a processing transaction is left to its
	// worker before another delivery takes it over.
	WorkerLease time.Duration

	CatalogURL string
	RedisAddr  string
	CacheTTL   time.Duration

	ServiceName      string
	OTLPEndpoint     string
	MetricsNamespace string

	// CommitsPerMinute and CommitBurst limit commits per client IP.
	CommitsPerMinute int
	CommitBurst      int
}

// Load reads the configuration from environment variables.
func Load() (Config, error) {
	var errs []error

	cfg := Config{
		Port:      cmp.Or(os.Getenv("PORT"), "8080"),
		RunLocal:  os.Getenv("RUN_LOCAL") == "true",
		PublicURL: cmp.Or(os.Getenv("PUBLIC_URL"), "http://localhost:"+cmp.Or(os.Getenv("PORT"), "8080")),

		AuthorizationExpiryDays: intEnv("PREAUTH_EXPIRY_DAYS", 3, &errs),

		TransactionsTable:    cmp.Or(os.Getenv("TRANSACTIONS_TABLE"), "transactions"),
		ProcessTable:         cmp.Or(os.Getenv("PROCESS_TABLE"), "checkout_processes"),
		PaymentAccountsTable: cmp.Or(os.Getenv("PAYMENT_ACCOUNTS_TABLE"), "payment_accounts"),
		QueueURL:             os.Getenv("PREAUTH_QUEUE_URL"),
		ProcessTTL:           durationEnv("PROCESS_TTL", 48*time.Hour, &errs),

		GatewayURL:   cmp.Or(os.Getenv("GATEWAY_URL"), "https://gateway.example.com"),
		GatewayAsync: os.Getenv("GATEWAY_ASYNC") == "true",
		WorkerLease:  durationEnv("WORKER_LEASE", 5*time.Minute, &errs),

		CatalogURL: os.Getenv("CATALOG_URL"),
		RedisAddr:  os.Getenv("REDIS_ADDR"),
		CacheTTL:   durationEnv("CATALOG_CACHE_TTL", time.Minute, &errs),

		ServiceName:      cmp.Or(os.Getenv("OTEL_SERVICE_NAME"), "listing-checkout"),
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		MetricsNamespace: cmp.Or(os.Getenv("METRICS_NAMESPACE"), "ListingCheckout"),

		CommitsPerMinute: intEnv("COMMITS_PER_MINUTE", 10, &errs),
		CommitBurst:      intEnv("COMMIT_BURST", 5, &errs),
	}

	if cfg.GatewayAsync && cfg.QueueURL == "" {
		errs = append(errs, errors.New("PREAUTH_QUEUE_URL is required when GATEWAY_ASYNC=true"))
	}
	if cfg.AuthorizationExpiryDays <= 0 {
		errs = append(errs, fmt.Errorf("PREAUTH_EXPIRY_DAYS must be positive, got %d", cfg.AuthorizationExpiryDays))
	}

	return cfg, errors.Join(errs...)
}

func intEnv(name string, def int, errs *[]error) int {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", name, err))
		return def
	}
	return n
}

func durationEnv(name string, def time.Duration, errs *[]error) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", name, err))
		return def
	}
	return d
}
