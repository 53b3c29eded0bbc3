package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress         string
	DatabaseURI        string
	PayPalBaseURL      string
	PayPalClientID     string
	PayPalClientSecret string

	ShippingFee decimal.Decimal
	TaxRate     decimal.Decimal

	LockTimeout           time.Duration
	CheckoutRetryAttempts int
	CheckoutRetryBackoff  time.Duration

	ReconcileInterval time.Duration
	StaleAfter        time.Duration
	ExpireAfter       time.Duration
	ReconcileBatch    int
	WorkerPoolSize    int

	ShutdownTimeout time.Duration
}

const (
	defaultRunAddress            = ":8080"
	defaultShippingFee           = "5.00"
	defaultTaxRate               = "0.10"
	defaultLockTimeout           = 10 * time.Second
	defaultCheckoutRetryAttempts = 2
	defaultCheckoutRetryBackoff  = 500 * time.Millisecond
	defaultReconcileInterval     = time.Hour
	defaultStaleAfter            = time.Hour
	defaultExpireAfter           = 3 * time.Hour
	defaultReconcileBatch        = 32
	defaultWorkerPoolSize        = 4
	defaultShutdownTimeout       = 10 * time.Second
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:            getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:           getString(lookup, "DATABASE_URI", ""),
		PayPalBaseURL:         getString(lookup, "PAYPAL_BASE_URL", ""),
		PayPalClientID:        getString(lookup, "PAYPAL_CLIENT_ID", ""),
		PayPalClientSecret:    getString(lookup, "PAYPAL_CLIENT_SECRET", ""),
		LockTimeout:           getDuration(lookup, "LOCK_TIMEOUT", defaultLockTimeout),
		CheckoutRetryAttempts: getInt(lookup, "CHECKOUT_RETRY_ATTEMPTS", defaultCheckoutRetryAttempts),
		CheckoutRetryBackoff:  getDuration(lookup, "CHECKOUT_RETRY_BACKOFF", defaultCheckoutRetryBackoff),
		ReconcileInterval:     getDuration(lookup, "RECONCILE_INTERVAL", defaultReconcileInterval),
		StaleAfter:            getDuration(lookup, "STALE_AFTER", defaultStaleAfter),
		ExpireAfter:           getDuration(lookup, "EXPIRE_AFTER", defaultExpireAfter),
		ReconcileBatch:        getInt(lookup, "RECONCILE_BATCH", defaultReconcileBatch),
		WorkerPoolSize:        getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		ShutdownTimeout:       getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
	}

	shippingFeeStr := getString(lookup, "SHIPPING_FEE", defaultShippingFee)
	taxRateStr := getString(lookup, "TAX_RATE", defaultTaxRate)

	fs := flag.NewFlagSet("eshop", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		lockTimeoutStr       = cfg.LockTimeout.String()
		reconcileIntervalStr = cfg.ReconcileInterval.String()
		staleAfterStr        = cfg.StaleAfter.String()
		expireAfterStr       = cfg.ExpireAfter.String()
		shutdownTimeoutStr   = cfg.ShutdownTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.PayPalBaseURL, "paypal-url", cfg.PayPalBaseURL, "PayPal API base URL")
	fs.StringVar(&cfg.PayPalClientID, "paypal-client-id", cfg.PayPalClientID, "PayPal client id")
	fs.StringVar(&cfg.PayPalClientSecret, "paypal-client-secret", cfg.PayPalClientSecret, "PayPal client secret")
	fs.StringVar(&shippingFeeStr, "shipping-fee", shippingFeeStr, "Flat shipping fee per order")
	fs.StringVar(&taxRateStr, "tax-rate", taxRateStr, "Tax rate applied to the subtotal")
	fs.StringVar(&lockTimeoutStr, "lock-timeout", lockTimeoutStr, "Bound on product lock acquisition")
	fs.IntVar(&cfg.CheckoutRetryAttempts, "checkout-retries", cfg.CheckoutRetryAttempts, "Total attempts for lock-contended checkouts")
	fs.StringVar(&reconcileIntervalStr, "reconcile-interval", reconcileIntervalStr, "Interval between stale-order sweeps")
	fs.StringVar(&staleAfterStr, "stale-after", staleAfterStr, "Age after which a pending order is considered stale")
	fs.StringVar(&expireAfterStr, "expire-after", expireAfterStr, "Age after which an unresolvable order is expired")
	fs.IntVar(&cfg.ReconcileBatch, "reconcile-batch", cfg.ReconcileBatch, "Maximum stale orders per sweep")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent reconciliation workers")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.ShippingFee, err = decimal.NewFromString(shippingFeeStr); err != nil {
		return nil, fmt.Errorf("invalid shipping fee: %w", err)
	}
	if cfg.TaxRate, err = decimal.NewFromString(taxRateStr); err != nil {
		return nil, fmt.Errorf("invalid tax rate: %w", err)
	}
	if cfg.ShippingFee.IsNegative() {
		return nil, fmt.Errorf("shipping fee must not be negative")
	}
	if cfg.TaxRate.IsNegative() {
		return nil, fmt.Errorf("tax rate must not be negative")
	}

	if cfg.LockTimeout, err = time.ParseDuration(lockTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid lock timeout: %w", err)
	}
	if cfg.ReconcileInterval, err = time.ParseDuration(reconcileIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid reconcile interval: %w", err)
	}
	if cfg.StaleAfter, err = time.ParseDuration(staleAfterStr); err != nil {
		return nil, fmt.Errorf("invalid stale cutoff: %w", err)
	}
	if cfg.ExpireAfter, err = time.ParseDuration(expireAfterStr); err != nil {
		return nil, fmt.Errorf("invalid expiry limit: %w", err)
	}
	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = defaultLockTimeout
	}
	if cfg.CheckoutRetryAttempts <= 0 {
		cfg.CheckoutRetryAttempts = defaultCheckoutRetryAttempts
	}
	if cfg.CheckoutRetryBackoff <= 0 {
		cfg.CheckoutRetryBackoff = defaultCheckoutRetryBackoff
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = defaultReconcileInterval
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = defaultStaleAfter
	}
	if cfg.ExpireAfter <= cfg.StaleAfter {
		cfg.ExpireAfter = defaultExpireAfter
	}
	if cfg.ReconcileBatch <= 0 {
		cfg.ReconcileBatch = defaultReconcileBatch
	}
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}
	if cfg.PayPalBaseURL == "" {
		return nil, fmt.Errorf("paypal base URL must be provided")
	}
	if cfg.PayPalClientID == "" || cfg.PayPalClientSecret == "" {
		return nil, fmt.Errorf("paypal credentials must be provided")
	}

	return cfg, nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
