package xrpl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"xrpl-iou-issuer-go/internal/models"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ConnectionError reports that no session with the node could be established.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("unable to connect to ledger node %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

type dialFunc func(ctx context.Context) (*Conn, error)

// Manager owns the one session the process keeps with its node. The session
// is opened on first use and replaced when it is found dead. Dial failures
// are returned to the caller, never retried here.
type Manager struct {
	endpoint string

	mu      sync.Mutex
	conn    *Conn
	dial    dialFunc
	breaker *gobreaker.CircuitBreaker
}

func NewManager(cfg models.LedgerConfig) *Manager {
	failures := uint32(5)
	if cfg.BreakerFailures > 0 {
		failures = uint32(cfg.BreakerFailures)
	}

	m := &Manager{endpoint: cfg.Endpoint}
	m.dial = func(ctx context.Context) (*Conn, error) {
		return Dial(ctx, cfg.Endpoint, cfg.DialTimeout, cfg.RequestTimeout)
	}
	m.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ledger-dial",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			zap.L().Warn("Ledger dial breaker changed state",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return m
}

func (m *Manager) Endpoint() string { return m.endpoint }

// Connection returns the live session, dialing a new one when there is none.
func (m *Manager) Connection(ctx context.Context) (*Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil && m.conn.Alive() {
		return m.conn, nil
	}
	m.conn = nil

	start := time.Now()
	result, err := m.breaker.Execute(func() (interface{}, error) {
		return m.dial(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("recent connection attempts failed: %w", err)
		}
		zap.L().Error("Ledger connection failed",
			zap.String("endpoint", m.endpoint),
			zap.Error(err))
		return nil, &ConnectionError{Endpoint: m.endpoint, Err: err}
	}

	m.conn = result.(*Conn)
	zap.L().Info("Connected to ledger node",
		zap.String("endpoint", m.endpoint),
		zap.Duration("elapsed", time.Since(start)))
	return m.conn, nil
}

// IsConnected reports whether a live session exists without dialing.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil && m.conn.Alive()
}

// Close drops the session. A later Connection call dials again.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return nil
	}
	err := m.conn.Close()
	m.conn = nil
	zap.L().Info("Ledger connection closed", zap.String("endpoint", m.endpoint))
	return err
}

// request runs one command on the shared session.
func (m *Manager) request(ctx context.Context, command string, params map[string]any, out any) error {
	conn, err := m.Connection(ctx)
	if err != nil {
		return err
	}
	return conn.Request(ctx, command, params, out)
}
