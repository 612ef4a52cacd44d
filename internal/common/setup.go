package common

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"xrpl-iou-issuer-go/internal/config"
	"xrpl-iou-issuer-go/internal/database"
	"xrpl-iou-issuer-go/internal/formance"
	"xrpl-iou-issuer-go/internal/issuance"
	"xrpl-iou-issuer-go/internal/lock"
	"xrpl-iou-issuer-go/internal/models"
	"xrpl-iou-issuer-go/internal/ratelimit"
	"xrpl-iou-issuer-go/internal/signing"
	"xrpl-iou-issuer-go/internal/store"
	"xrpl-iou-issuer-go/internal/xrpl"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// A missing .env is fine; variables may come from the shell or the container
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	Manager  *xrpl.Manager
	Client   *xrpl.Client
	Identity *issuance.Identity
	Issuance *issuance.Service
	Store    store.IssuanceStore
	Signer   signing.Service
	Limiter  ratelimit.Limiter
	Redis    *redis.Client
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// LoadConfig reads and validates the environment.
func LoadConfig() (*models.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	identity, err := issuance.NewIdentity(cfg.Issuer.Address, cfg.Issuer.Secret)
	if err != nil {
		return nil, fmt.Errorf("invalid issuer credentials: %w", err)
	}
	zap.L().Info("Issuer identity verified",
		zap.String("issuer", identity.Address()),
		zap.String("currency", cfg.Issuer.Currency))

	services := &Services{Identity: identity}

	issuanceStore, err := InitializeStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	services.Store = issuanceStore

	var locker lock.Locker = lock.NewLocal()
	services.Limiter = ratelimit.NewMemory(nil, 0)
	if cfg.Redis.Addr != "" {
		client, err := OpenRedis(ctx, cfg.Redis)
		if err != nil {
			services.Close()
			return nil, err
		}
		services.Redis = client
		locker = lock.NewRedis(client, "xrpl-issuer:lock:", cfg.Redis.LockTTL)
		services.Limiter = ratelimit.NewRedis(client, "xrpl-issuer:ratelimit:", nil)
		zap.L().Info("Using Redis for issuer lock and rate limiting", zap.String("addr", cfg.Redis.Addr))
	}

	signer, err := signing.New(cfg.Signing)
	if err != nil {
		services.Close()
		return nil, err
	}
	services.Signer = signer
	if !signer.Enabled() {
		zap.L().Info("Wallet signing disabled, no API credentials configured")
	}

	services.Manager = xrpl.NewManager(cfg.Ledger)
	services.Client = xrpl.NewClient(services.Manager, cfg.Ledger)

	issuer, err := issuance.NewService(issuance.Options{
		Identity:          identity,
		Ledger:            services.Client,
		Currency:          cfg.Issuer.Currency,
		Locker:            locker,
		Recorder:          services.Store,
		MaxBatchItems:     cfg.Limits.MaxBatchItems,
		MaxSingleAmount:   cfg.Limits.MaxSingleAmount,
		ValidationTimeout: cfg.Ledger.ValidationTimeout,
		PollInterval:      cfg.Ledger.PollInterval,
	})
	if err != nil {
		services.Close()
		return nil, err
	}
	services.Issuance = issuer

	return services, nil
}

// InitializeStore opens only the configured audit backend, for read-only
// tools that never touch the ledger.
func InitializeStore(ctx context.Context, cfg *models.Config) (store.IssuanceStore, error) {
	switch cfg.Store.Backend {
	case config.BackendFormance:
		zap.L().Info("Using Formance ledger for mint records",
			zap.String("stack", cfg.Formance.StackURL),
			zap.String("ledger", cfg.Formance.LedgerName))
		svc, err := formance.NewService(ctx, cfg.Formance)
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		svc, err := database.NewService(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return svc, nil
	}
}

func OpenRedis(ctx context.Context, cfg models.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to reach redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

func (cs *Services) Close() {
	if cs.Manager != nil {
		if err := cs.Manager.Close(); err != nil {
			zap.L().Warn("Failed to close ledger connection", zap.Error(err))
		}
	}
	if cs.Store != nil {
		cs.Store.Close()
	}
	if cs.Redis != nil {
		if err := cs.Redis.Close(); err != nil {
			zap.L().Warn("Failed to close redis client", zap.Error(err))
		}
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
