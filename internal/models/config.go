package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	Ledger     LedgerConfig
	Issuer     IssuerConfig
	Limits     LimitsConfig
	HTTP       HTTPConfig
	Redis      RedisConfig
	Signing    SigningConfig
	Store      StoreConfig
	Database   DatabaseConfig
	Formance   FormanceConfig
	Reconciler ReconcilerConfig
}

// LedgerConfig holds the node endpoint and submission timing
type LedgerConfig struct {
	Endpoint          string
	DialTimeout       time.Duration
	RequestTimeout    time.Duration
	ValidationTimeout time.Duration
	PollInterval      time.Duration
	LastLedgerOffset  uint32
	MaxFeeDrops       int64
	BreakerFailures   int
	BreakerTimeout    time.Duration
}

// IssuerConfig identifies the issuing account and the currency it issues
type IssuerConfig struct {
	Address  string
	Secret   string
	Currency string
}

type LimitsConfig struct {
	MaxBatchItems   int
	MaxSingleAmount decimal.Decimal
}

// HTTPConfig holds API server settings
type HTTPConfig struct {
	Addr              string
	StaticDir         string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	ShutdownTimeout   time.Duration
	// TrustedProxies may set X-Forwarded-For; empty trusts none
	TrustedProxies []string
}

// RedisConfig is optional; an empty Addr keeps locking and throttling in process
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

// SigningConfig holds the hosted signing service credentials
type SigningConfig struct {
	ApiKey    string
	ApiSecret string
	BaseURL   string
}

// StoreConfig selects the issuance audit backend: "sqlite" or "formance"
type StoreConfig struct {
	Backend string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// FormanceConfig holds Formance Stack connection settings
type FormanceConfig struct {
	StackURL       string
	ClientID       string
	ClientSecret   string
	LedgerName     string
	AssetPrecision int
}

// ReconcilerConfig holds pending mint reconciliation settings
type ReconcilerConfig struct {
	Interval  time.Duration
	BatchSize int
}
