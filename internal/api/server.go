// Package api is the HTTP surface of the issuer.
package api

import (
	"context"
	"net/http"
	"time"

	"xrpl-iou-issuer-go/internal/models"
	"xrpl-iou-issuer-go/internal/ratelimit"
	"xrpl-iou-issuer-go/internal/signing"
	"xrpl-iou-issuer-go/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Issuer is the issuance engine as seen by the HTTP handlers.
type Issuer interface {
	Issuer() string
	Currency() string
	CheckTrustline(ctx context.Context, recipient string) (*models.TrustLine, error)
	MintSingle(ctx context.Context, req models.MintRequest) (models.Receipt, error)
	MintBatch(ctx context.Context, items []models.MintRequest) (models.BatchResult, error)
	TrustSetTemplate(limit string) (map[string]any, error)
}

// LedgerStatus reports the node connection for /health.
type LedgerStatus interface {
	Endpoint() string
	IsConnected() bool
}

type Deps struct {
	Issuer  Issuer
	Ledger  LedgerStatus
	Signer  signing.Service
	Limiter ratelimit.Limiter
	// Store is optional; without it /mints answers 404.
	Store store.IssuanceStore
}

type Server struct {
	r       *gin.Engine
	issuer  Issuer
	ledger  LedgerStatus
	signer  signing.Service
	store   store.IssuanceStore
	limiter ratelimit.Limiter

	rateLimitRequests int
	rateLimitWindow   time.Duration
	staticDir         string
}

func NewServer(cfg models.HTTPConfig, deps Deps) *Server {
	r := gin.New()
	// rate limiting keys on the peer address; forwarded headers are ignored
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		zap.L().Warn("Invalid trusted proxies, trusting none",
			zap.Strings("proxies", cfg.TrustedProxies),
			zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery(), requestLogger())

	s := &Server{
		r:                 r,
		issuer:            deps.Issuer,
		ledger:            deps.Ledger,
		signer:            deps.Signer,
		store:             deps.Store,
		limiter:           deps.Limiter,
		rateLimitRequests: cfg.RateLimitRequests,
		rateLimitWindow:   cfg.RateLimitWindow,
		staticDir:         cfg.StaticDir,
	}
	if s.signer == nil {
		s.signer = signing.Disabled{}
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.r }

func (s *Server) routes() {
	s.r.GET("/health", s.handleHealth)
	s.r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limited := s.r.Group("/", s.rateLimit())
	limited.GET("/check-trustline", s.handleCheckTrustline)
	limited.POST("/mint-single", s.handleMintSingle)
	limited.POST("/mint-batch", s.handleMintBatch)
	limited.GET("/mints", s.handleMints)
	limited.POST("/wallet/trustset-payload", s.handleTrustSetPayload)
	limited.GET("/wallet/trustset-status", s.handleTrustSetStatus)

	s.r.NoRoute(s.handleNoRoute)
}

func (s *Server) handleNoRoute(c *gin.Context) {
	if s.staticDir != "" && (c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead) {
		http.FileServer(http.Dir(s.staticDir)).ServeHTTP(c.Writer, c.Request)
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"ok": false, "message": "not found"})
}
