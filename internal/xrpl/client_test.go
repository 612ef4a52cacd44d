package xrpl

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"xrpl-iou-issuer-go/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handlerFunc func(req map[string]any) map[string]any

// fakeNode is a websocket server answering rippled style commands.
type fakeNode struct {
	server *httptest.Server
	url    string

	mu       sync.Mutex
	conns    []*websocket.Conn
	commands []string
}

func newFakeNode(t *testing.T, handler handlerFunc) *fakeNode {
	t.Helper()
	node := &fakeNode{}
	upgrader := websocket.Upgrader{}

	node.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		node.mu.Lock()
		node.conns = append(node.conns, ws)
		node.mu.Unlock()

		for {
			var req map[string]any
			if err := ws.ReadJSON(&req); err != nil {
				return
			}
			command, _ := req["command"].(string)
			node.mu.Lock()
			node.commands = append(node.commands, command)
			node.mu.Unlock()

			resp := handler(req)
			resp["id"] = req["id"]
			if err := ws.WriteJSON(resp); err != nil {
				return
			}
		}
	}))
	node.url = "ws" + strings.TrimPrefix(node.server.URL, "http")
	t.Cleanup(node.server.Close)
	return node
}

func (n *fakeNode) dropConnections() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, c := range n.conns {
		_ = c.Close()
	}
	n.conns = nil
}

func (n *fakeNode) connectionCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.conns)
}

func (n *fakeNode) sent(command string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, c := range n.commands {
		if c == command {
			count++
		}
	}
	return count
}

func success(result map[string]any) map[string]any {
	return map[string]any{"status": "success", "type": "response", "result": result}
}

func failure(code, message string) map[string]any {
	return map[string]any{"status": "error", "type": "response", "error": code, "error_message": message}
}

func testLedgerConfig(endpoint string) models.LedgerConfig {
	return models.LedgerConfig{
		Endpoint:         endpoint,
		DialTimeout:      2 * time.Second,
		RequestTimeout:   2 * time.Second,
		LastLedgerOffset: 20,
		MaxFeeDrops:      2000,
		BreakerFailures:  3,
		BreakerTimeout:   time.Second,
	}
}

func newTestClient(t *testing.T, node *fakeNode) *Client {
	cfg := testLedgerConfig(node.url)
	m := NewManager(cfg)
	t.Cleanup(func() { _ = m.Close() })
	return NewClient(m, cfg)
}

func TestAccountLines_FollowsMarker(t *testing.T) {
	node := newFakeNode(t, func(req map[string]any) map[string]any {
		if _, ok := req["marker"]; !ok {
			return success(map[string]any{
				"account": req["account"],
				"lines": []map[string]any{
					{"account": "rIssuer", "currency": "EUR", "balance": "0", "limit": "10", "limit_peer": "0"},
				},
				"marker": "page2",
			})
		}
		return success(map[string]any{
			"account": req["account"],
			"lines": []map[string]any{
				{"account": "rIssuer", "currency": "USD", "balance": "5", "limit": "100", "limit_peer": "0"},
			},
		})
	})
	client := newTestClient(t, node)

	lines, err := client.AccountLines(context.Background(), "rHolder", "rIssuer")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "EUR", lines[0].Currency)
	assert.Equal(t, "USD", lines[1].Currency)
	assert.Equal(t, "100", lines[1].Limit)
	assert.Equal(t, "rHolder", lines[1].Holder)
	assert.Equal(t, 2, node.sent("account_lines"))
}

func TestAccountLines_UnknownAccountHasNoLines(t *testing.T) {
	node := newFakeNode(t, func(req map[string]any) map[string]any {
		return failure("actNotFound", "Account not found.")
	})
	client := newTestClient(t, node)

	lines, err := client.AccountLines(context.Background(), "rHolder", "rIssuer")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestAutofill(t *testing.T) {
	node := newFakeNode(t, func(req map[string]any) map[string]any {
		switch req["command"] {
		case "account_info":
			return success(map[string]any{
				"account_data":         map[string]any{"Sequence": 42},
				"ledger_current_index": 1000,
			})
		case "fee":
			return success(map[string]any{
				"drops": map[string]any{"base_fee": "10", "open_ledger_fee": "12"},
			})
		}
		return failure("unknownCmd", "")
	})
	client := newTestClient(t, node)

	params, err := client.Autofill(context.Background(), "rIssuer")
	require.NoError(t, err)
	assert.Equal(t, uint32(42), params.Sequence)
	assert.Equal(t, int64(12), params.Fee)
	assert.Equal(t, uint32(1020), params.LastLedgerSequence)
}

func TestAutofill_FeeAboveMaximum(t *testing.T) {
	node := newFakeNode(t, func(req map[string]any) map[string]any {
		if req["command"] == "fee" {
			return success(map[string]any{
				"drops": map[string]any{"base_fee": "10", "open_ledger_fee": "50000"},
			})
		}
		return success(map[string]any{
			"account_data":         map[string]any{"Sequence": 1},
			"ledger_current_index": 5,
		})
	})
	client := newTestClient(t, node)

	_, err := client.Autofill(context.Background(), "rIssuer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum")
}

func TestSubmit(t *testing.T) {
	node := newFakeNode(t, func(req map[string]any) map[string]any {
		assert.Equal(t, "ABCDEF", req["tx_blob"])
		return success(map[string]any{
			"engine_result":         "tesSUCCESS",
			"engine_result_message": "The transaction was applied.",
			"tx_json":               map[string]any{"hash": "HASH1"},
		})
	})
	client := newTestClient(t, node)

	res, err := client.Submit(context.Background(), "ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, "tesSUCCESS", res.EngineResult)
	assert.Equal(t, "HASH1", res.Hash)
}

func TestSubmit_RPCError(t *testing.T) {
	node := newFakeNode(t, func(req map[string]any) map[string]any {
		return failure("invalidTransaction", "fails local checks")
	})
	client := newTestClient(t, node)

	_, err := client.Submit(context.Background(), "00")
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, "invalidTransaction", rpcErr.Code)
	assert.Equal(t, "fails local checks", rpcErr.Message)
}

func TestTransaction(t *testing.T) {
	node := newFakeNode(t, func(req map[string]any) map[string]any {
		if req["transaction"] == "MISSING" {
			return failure("txnNotFound", "Transaction not found.")
		}
		return success(map[string]any{
			"validated":    true,
			"ledger_index": 77,
			"meta":         map[string]any{"TransactionResult": "tesSUCCESS"},
		})
	})
	client := newTestClient(t, node)

	status, err := client.Transaction(context.Background(), "MISSING")
	require.NoError(t, err)
	assert.False(t, status.Found)

	status, err = client.Transaction(context.Background(), "HASH1")
	require.NoError(t, err)
	assert.True(t, status.Found)
	assert.True(t, status.Validated)
	assert.Equal(t, "tesSUCCESS", status.Result)
	assert.Equal(t, uint32(77), status.LedgerIndex)
}

func TestValidatedLedgerIndex(t *testing.T) {
	node := newFakeNode(t, func(req map[string]any) map[string]any {
		return success(map[string]any{"ledger_index": 500, "validated": true})
	})
	client := newTestClient(t, node)

	idx, err := client.ValidatedLedgerIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(500), idx)
}

func TestManager_ReusesConnection(t *testing.T) {
	node := newFakeNode(t, func(req map[string]any) map[string]any {
		return success(map[string]any{"ledger_index": 1})
	})
	client := newTestClient(t, node)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := client.ValidatedLedgerIndex(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, node.connectionCount())
	assert.True(t, client.Manager().IsConnected())
}

func TestManager_ReconnectsAfterLoss(t *testing.T) {
	node := newFakeNode(t, func(req map[string]any) map[string]any {
		return success(map[string]any{"ledger_index": 1})
	})
	client := newTestClient(t, node)
	ctx := context.Background()

	_, err := client.ValidatedLedgerIndex(ctx)
	require.NoError(t, err)

	node.dropConnections()
	require.Eventually(t, func() bool { return !client.Manager().IsConnected() }, 2*time.Second, 10*time.Millisecond)

	_, err = client.ValidatedLedgerIndex(ctx)
	require.NoError(t, err)
	assert.True(t, client.Manager().IsConnected())
}

func TestManager_DialFailure(t *testing.T) {
	m := NewManager(testLedgerConfig("ws://127.0.0.1:1"))
	_, err := m.Connection(context.Background())

	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, "ws://127.0.0.1:1", connErr.Endpoint)
	assert.False(t, m.IsConnected())
}

func TestManager_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	m := NewManager(testLedgerConfig("ws://127.0.0.1:1"))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = m.Connection(ctx)
	}
	_, err := m.Connection(ctx)

	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Contains(t, err.Error(), "recent connection attempts failed")
}

func TestConn_CloseFailsPendingRequests(t *testing.T) {
	block := make(chan struct{})
	node := newFakeNode(t, func(req map[string]any) map[string]any {
		<-block
		return success(map[string]any{})
	})
	defer close(block)

	cfg := testLedgerConfig(node.url)
	cfg.RequestTimeout = 0
	m := NewManager(cfg)
	conn, err := m.Connection(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- conn.Request(context.Background(), "ledger", nil, nil) }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, m.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrConnectionClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("pending request was not released on close")
	}
}

func TestConn_ShutdownReleasesUnregisteredRequest(t *testing.T) {
	block := make(chan struct{})
	node := newFakeNode(t, func(req map[string]any) map[string]any {
		<-block
		return success(map[string]any{})
	})
	defer close(block)

	cfg := testLedgerConfig(node.url)
	conn, err := Dial(context.Background(), node.url, cfg.DialTimeout, 0)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- conn.Request(context.Background(), "ledger", nil, nil) }()
	time.Sleep(50 * time.Millisecond)

	// shutdown finds nothing to release, as when it wins the race with
	// the request registering its response channel
	conn.mu.Lock()
	for id := range conn.pending {
		delete(conn.pending, id)
	}
	conn.mu.Unlock()
	conn.shutdown(ErrConnectionClosed)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrConnectionClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("request without a deadline was not released on shutdown")
	}
}
