package signing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"xrpl-iou-issuer-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestXumm(t *testing.T, handler http.HandlerFunc) *Xumm {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	x, err := NewXumm(models.SigningConfig{ApiKey: "key", ApiSecret: "secret", BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	return x
}

func TestNew_DisabledWithoutCredentials(t *testing.T) {
	svc, err := New(models.SigningConfig{ApiKey: "key"})
	require.NoError(t, err)
	assert.False(t, svc.Enabled())

	_, err = svc.CreatePayload(context.Background(), map[string]any{"TransactionType": "TrustSet"})
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = svc.GetPayloadStatus(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrDisabled)

	svc, err = New(models.SigningConfig{ApiKey: "key", ApiSecret: "secret"})
	require.NoError(t, err)
	assert.True(t, svc.Enabled())
}

func TestCreatePayload(t *testing.T) {
	x := newTestXumm(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/platform/payload", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("X-API-Key"))
		assert.Equal(t, "secret", r.Header.Get("X-API-Secret"))

		var body struct {
			TxJSON map[string]any `json:"txjson"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "TrustSet", body.TxJSON["TransactionType"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"uuid":"0a1b","next":{"always":"https://xumm.app/sign/0a1b"},"refs":{"qr_png":"https://xumm.app/sign/0a1b_q.png"}}`))
	})

	ref, err := x.CreatePayload(context.Background(), map[string]any{"TransactionType": "TrustSet"})
	require.NoError(t, err)
	assert.Equal(t, models.PayloadRef{
		UUID: "0a1b",
		Link: "https://xumm.app/sign/0a1b",
		QR:   "https://xumm.app/sign/0a1b_q.png",
	}, ref)
}

func TestCreatePayload_APIError(t *testing.T) {
	x := newTestXumm(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"reference":"x","code":401}}`, http.StatusUnauthorized)
	})

	_, err := x.CreatePayload(context.Background(), map[string]any{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestCreatePayload_MissingUUID(t *testing.T) {
	x := newTestXumm(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := x.CreatePayload(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestGetPayloadStatus(t *testing.T) {
	x := newTestXumm(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/platform/payload/0a1b", r.URL.Path)
		_, _ = w.Write([]byte(`{"meta":{"signed":true,"expired":false},"response":{"account":"rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh","txid":"ABCD"}}`))
	})

	status, err := x.GetPayloadStatus(context.Background(), "0a1b")
	require.NoError(t, err)
	assert.True(t, status.Signed)
	assert.False(t, status.Expired)
	assert.Equal(t, "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh", status.Account)
	assert.Equal(t, "ABCD", status.TxID)

	_, err = x.GetPayloadStatus(context.Background(), "")
	assert.Error(t, err)
}

func TestXumm_UnreachablePlatform(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	x, err := NewXumm(models.SigningConfig{ApiKey: "key", ApiSecret: "secret", BaseURL: baseURL})
	require.NoError(t, err)

	_, err = x.CreatePayload(context.Background(), map[string]any{"TransactionType": "TrustSet"})
	var transportErr *TransportError
	assert.True(t, errors.As(err, &transportErr), "got %v", err)

	_, err = x.GetPayloadStatus(context.Background(), "0a1b")
	assert.True(t, errors.As(err, &transportErr), "got %v", err)
}

func TestXumm_MalformedResponse(t *testing.T) {
	x := newTestXumm(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := x.GetPayloadStatus(context.Background(), "0a1b")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Contains(t, apiErr.Body, "invalid response")
}
