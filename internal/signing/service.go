package signing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"xrpl-iou-issuer-go/internal/models"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

const DefaultBaseURL = "https://xumm.app"

// ErrDisabled is returned when no hosted signer credentials are configured.
var ErrDisabled = errors.New("hosted signing is not configured")

// Service hands unsigned transactions to a wallet app for the holder to sign.
type Service interface {
	Enabled() bool
	CreatePayload(ctx context.Context, txJSON map[string]any) (models.PayloadRef, error)
	GetPayloadStatus(ctx context.Context, uuid string) (models.PayloadStatus, error)
}

// APIError is a non-2xx answer from the signing platform.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("signing platform returned %d: %s", e.StatusCode, e.Body)
}

// TransportError means the signing platform could not be reached or its
// answer could not be read.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("signing platform unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// New returns a Xumm client when credentials are present and a disabled
// service otherwise.
func New(cfg models.SigningConfig) (Service, error) {
	if cfg.ApiKey == "" || cfg.ApiSecret == "" {
		return Disabled{}, nil
	}
	x, err := NewXumm(cfg)
	if err != nil {
		return nil, err
	}
	return x, nil
}

// Disabled rejects every call with ErrDisabled.
type Disabled struct{}

func (Disabled) Enabled() bool { return false }

func (Disabled) CreatePayload(context.Context, map[string]any) (models.PayloadRef, error) {
	return models.PayloadRef{}, ErrDisabled
}

func (Disabled) GetPayloadStatus(context.Context, string) (models.PayloadStatus, error) {
	return models.PayloadStatus{}, ErrDisabled
}

type Xumm struct {
	httpClient http.Client
	baseURL    string
	apiKey     string
	apiSecret  string
}

func NewXumm(cfg models.SigningConfig) (*Xumm, error) {
	httpClient, err := createCustomHttpClient()
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Xumm{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.ApiKey,
		apiSecret:  cfg.ApiSecret,
	}, nil
}

func createCustomHttpClient() (http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return http.Client{}, err
	}

	return http.Client{
		Transport: tr,
		Timeout:   60 * time.Second,
	}, nil
}

func (x *Xumm) Enabled() bool { return true }

type createPayloadRequest struct {
	TxJSON map[string]any `json:"txjson"`
}

type createPayloadResponse struct {
	UUID string `json:"uuid"`
	Next struct {
		Always string `json:"always"`
	} `json:"next"`
	Refs struct {
		QRPng string `json:"qr_png"`
	} `json:"refs"`
}

type payloadStatusResponse struct {
	Meta struct {
		Signed  bool `json:"signed"`
		Expired bool `json:"expired"`
	} `json:"meta"`
	Response struct {
		Account string `json:"account"`
		TxID    string `json:"txid"`
	} `json:"response"`
}

// CreatePayload registers txJSON for signing and returns where the holder
// can open it.
func (x *Xumm) CreatePayload(ctx context.Context, txJSON map[string]any) (models.PayloadRef, error) {
	var out createPayloadResponse
	if err := x.do(ctx, http.MethodPost, "/api/v1/platform/payload", createPayloadRequest{TxJSON: txJSON}, &out); err != nil {
		return models.PayloadRef{}, fmt.Errorf("unable to create payload: %w", err)
	}
	if out.UUID == "" {
		return models.PayloadRef{}, fmt.Errorf("unable to create payload: %w", &APIError{StatusCode: http.StatusOK, Body: "response has no uuid"})
	}

	zap.L().Info("Signing payload created",
		zap.String("uuid", out.UUID),
		zap.Any("transaction_type", txJSON["TransactionType"]))

	return models.PayloadRef{UUID: out.UUID, Link: out.Next.Always, QR: out.Refs.QRPng}, nil
}

func (x *Xumm) GetPayloadStatus(ctx context.Context, uuid string) (models.PayloadStatus, error) {
	if uuid == "" {
		return models.PayloadStatus{}, fmt.Errorf("payload uuid is required")
	}
	var out payloadStatusResponse
	if err := x.do(ctx, http.MethodGet, "/api/v1/platform/payload/"+url.PathEscape(uuid), nil, &out); err != nil {
		return models.PayloadStatus{}, fmt.Errorf("unable to get payload %s: %w", uuid, err)
	}
	return models.PayloadStatus{
		Signed:  out.Meta.Signed,
		Expired: out.Meta.Expired,
		Account: out.Response.Account,
		TxID:    out.Response.TxID,
	}, nil
}

func (x *Xumm) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, x.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", x.apiKey)
	req.Header.Set("X-API-Secret", x.apiSecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &TransportError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Body: fmt.Sprintf("invalid response: %v", err)}
	}
	return nil
}
