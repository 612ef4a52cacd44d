/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"xrpl-iou-issuer-go/internal/models"

	"github.com/shopspring/decimal"
)

const (
	BackendSQLite   = "sqlite"
	BackendFormance = "formance"

	DefaultMaxSingleAmount = "1000000"
)

func Load() (*models.Config, error) {
	var errs []error
	duration := func(key string, def time.Duration) time.Duration {
		d, err := getEnvDuration(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return d
	}

	maxSingle, err := decimal.NewFromString(getEnvString("MAX_SINGLE_AMOUNT", DefaultMaxSingleAmount))
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid decimal for MAX_SINGLE_AMOUNT: %q (%w)", os.Getenv("MAX_SINGLE_AMOUNT"), err))
	}

	cfg := &models.Config{
		Ledger: models.LedgerConfig{
			Endpoint:          getEnvString("XRPL_ENDPOINT", "wss://s.altnet.rippletest.net:51233"),
			DialTimeout:       duration("XRPL_DIAL_TIMEOUT", 10*time.Second),
			RequestTimeout:    duration("XRPL_REQUEST_TIMEOUT", 20*time.Second),
			ValidationTimeout: duration("VALIDATION_TIMEOUT", time.Minute),
			PollInterval:      duration("VALIDATION_POLL_INTERVAL", time.Second),
			LastLedgerOffset:  uint32(getEnvInt("LAST_LEDGER_OFFSET", 20)),
			MaxFeeDrops:       int64(getEnvInt("MAX_FEE_DROPS", 2000)),
			BreakerFailures:   getEnvInt("XRPL_BREAKER_FAILURES", 5),
			BreakerTimeout:    duration("XRPL_BREAKER_TIMEOUT", 30*time.Second),
		},
		Issuer: models.IssuerConfig{
			Address:  strings.TrimSpace(os.Getenv("ISSUER_ADDRESS")),
			Secret:   strings.TrimSpace(os.Getenv("ISSUER_SECRET")),
			Currency: getEnvString("CURRENCY_CODE", "USD"),
		},
		Limits: models.LimitsConfig{
			MaxBatchItems:   getEnvInt("MAX_BATCH_ITEMS", 100),
			MaxSingleAmount: maxSingle,
		},
		HTTP: models.HTTPConfig{
			Addr:              getEnvString("HTTP_ADDR", ":8080"),
			StaticDir:         getEnvString("STATIC_DIR", ""),
			RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 60),
			RateLimitWindow:   duration("RATE_LIMIT_WINDOW", time.Minute),
			ShutdownTimeout:   duration("HTTP_SHUTDOWN_TIMEOUT", 30*time.Second),
			TrustedProxies:    getEnvList("TRUSTED_PROXIES"),
		},
		Redis: models.RedisConfig{
			Addr:     getEnvString("REDIS_ADDR", ""),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			LockTTL:  duration("SUBMIT_LOCK_TTL", 2*time.Minute),
		},
		Signing: models.SigningConfig{
			ApiKey:    getEnvString("XUMM_API_KEY", ""),
			ApiSecret: getEnvString("XUMM_API_SECRET", ""),
			BaseURL:   getEnvString("XUMM_BASE_URL", "https://xumm.app"),
		},
		Store: models.StoreConfig{
			Backend: strings.ToLower(getEnvString("STORE_BACKEND", BackendSQLite)),
		},
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "issuer.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: duration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: duration("DB_CONN_MAX_IDLE_TIME", 30*time.Second),
			PingTimeout:     duration("DB_PING_TIMEOUT", 5*time.Second),
		},
		Formance: models.FormanceConfig{
			StackURL:       getEnvString("FORMANCE_STACK_URL", ""),
			ClientID:       getEnvString("FORMANCE_CLIENT_ID", ""),
			ClientSecret:   getEnvString("FORMANCE_CLIENT_SECRET", ""),
			LedgerName:     getEnvString("FORMANCE_LEDGER", "xrpl-iou-issuer"),
			AssetPrecision: getEnvInt("FORMANCE_ASSET_PRECISION", 6),
		},
		Reconciler: models.ReconcilerConfig{
			Interval:  duration("RECONCILE_INTERVAL", 30*time.Second),
			BatchSize: getEnvInt("RECONCILE_BATCH_SIZE", 100),
		},
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate checks the settings every entry point needs. Issuer credentials
// are checked separately by the tools that sign.
func Validate(cfg *models.Config) error {
	var errs []error
	if cfg.Ledger.Endpoint == "" {
		errs = append(errs, fmt.Errorf("XRPL_ENDPOINT is required"))
	} else if !strings.HasPrefix(cfg.Ledger.Endpoint, "ws://") && !strings.HasPrefix(cfg.Ledger.Endpoint, "wss://") {
		errs = append(errs, fmt.Errorf("XRPL_ENDPOINT must be a ws:// or wss:// url, got %q", cfg.Ledger.Endpoint))
	}
	if cfg.Issuer.Currency == "" {
		errs = append(errs, fmt.Errorf("CURRENCY_CODE is required"))
	}
	if cfg.Limits.MaxBatchItems <= 0 {
		errs = append(errs, fmt.Errorf("MAX_BATCH_ITEMS must be positive, got %d", cfg.Limits.MaxBatchItems))
	}
	if !cfg.Limits.MaxSingleAmount.IsPositive() {
		errs = append(errs, fmt.Errorf("MAX_SINGLE_AMOUNT must be positive, got %s", cfg.Limits.MaxSingleAmount))
	}
	if cfg.Ledger.ValidationTimeout <= 0 || cfg.Ledger.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("VALIDATION_TIMEOUT and VALIDATION_POLL_INTERVAL must be positive"))
	}
	if cfg.Redis.Addr != "" && cfg.Redis.LockTTL <= cfg.Ledger.ValidationTimeout {
		errs = append(errs, fmt.Errorf("SUBMIT_LOCK_TTL (%s) must exceed VALIDATION_TIMEOUT (%s)",
			cfg.Redis.LockTTL, cfg.Ledger.ValidationTimeout))
	}
	switch cfg.Store.Backend {
	case BackendSQLite:
	case BackendFormance:
		if cfg.Formance.StackURL == "" || cfg.Formance.ClientID == "" || cfg.Formance.ClientSecret == "" {
			errs = append(errs, fmt.Errorf("STORE_BACKEND=formance requires FORMANCE_STACK_URL, FORMANCE_CLIENT_ID and FORMANCE_CLIENT_SECRET"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", cfg.Store.Backend))
	}
	return errors.Join(errs...)
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

// getEnvList splits a comma separated variable, dropping empty entries
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
