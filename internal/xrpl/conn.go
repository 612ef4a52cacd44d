// Package xrpl talks to a rippled node over its websocket API.
package xrpl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var ErrConnectionClosed = errors.New("ledger connection closed")

// RPCError is an error reported by the node for a single request.
type RPCError struct {
	Command string
	Code    string
	Message string
}

func (e *RPCError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Command, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Command, e.Code)
}

type response struct {
	ID           *uint64         `json:"id"`
	Status       string          `json:"status"`
	Type         string          `json:"type"`
	Result       json.RawMessage `json:"result"`
	Error        string          `json:"error"`
	ErrorCode    int             `json:"error_code"`
	ErrorMessage string          `json:"error_message"`
}

type resultError struct {
	Error        string `json:"error"`
	ErrorMessage string `json:"error_message"`
}

// Conn is a single websocket session with a node. Requests may be issued
// concurrently; responses are matched to requests by id.
type Conn struct {
	ws             *websocket.Conn
	requestTimeout time.Duration

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[uint64]chan *response
	nextID  atomic.Uint64

	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Dial opens a websocket session with the node at endpoint.
func Dial(ctx context.Context, endpoint string, dialTimeout, requestTimeout time.Duration) (*Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: dialTimeout,
		Proxy:            websocket.DefaultDialer.Proxy,
	}
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	ws, _, err := dialer.DialContext(dialCtx, endpoint, nil)
	if err != nil {
		return nil, err
	}

	c := &Conn{
		ws:             ws,
		requestTimeout: requestTimeout,
		pending:        make(map[uint64]chan *response),
		closed:         make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Alive reports whether the read loop is still running.
func (c *Conn) Alive() bool {
	select {
	case <-c.closed:
		return false
	default:
		return true
	}
}

// Close terminates the session and fails every outstanding request.
func (c *Conn) Close() error {
	c.shutdown(ErrConnectionClosed)
	return nil
}

func (c *Conn) shutdown(cause error) {
	c.closeOnce.Do(func() {
		c.closeErr = cause
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		_ = c.ws.Close()
		close(c.closed)

		c.mu.Lock()
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		c.mu.Unlock()
	})
}

func (c *Conn) readLoop() {
	for {
		var resp response
		if err := c.ws.ReadJSON(&resp); err != nil {
			if c.Alive() {
				zap.L().Warn("Ledger connection lost", zap.Error(err))
			}
			c.shutdown(fmt.Errorf("%w: %v", ErrConnectionClosed, err))
			return
		}
		if resp.ID == nil {
			// subscription stream messages are not used
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[*resp.ID]
		delete(c.pending, *resp.ID)
		c.mu.Unlock()
		if ok {
			ch <- &resp
		}
	}
}

// Request sends command with params and decodes the result into out.
func (c *Conn) Request(ctx context.Context, command string, params map[string]any, out any) error {
	if !c.Alive() {
		return c.closeErr
	}
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	id := c.nextID.Add(1)
	msg := make(map[string]any, len(params)+2)
	for k, v := range params {
		msg[k] = v
	}
	msg["id"] = id
	msg["command"] = command

	ch := make(chan *response, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.write(ctx, msg); err != nil {
		c.forget(id)
		c.shutdown(fmt.Errorf("%w: %v", ErrConnectionClosed, err))
		return fmt.Errorf("unable to send %s: %w", command, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return c.closeErr
		}
		return decodeResponse(command, resp, out)
	case <-c.closed:
		// shutdown may have drained pending before ch was registered
		c.forget(id)
		return c.closeErr
	case <-ctx.Done():
		c.forget(id)
		return fmt.Errorf("%s: %w", command, ctx.Err())
	}
}

func (c *Conn) write(ctx context.Context, msg map[string]any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.ws.SetWriteDeadline(deadline)
	} else {
		_ = c.ws.SetWriteDeadline(time.Time{})
	}
	return c.ws.WriteJSON(msg)
}

func (c *Conn) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func decodeResponse(command string, resp *response, out any) error {
	if resp.Status == "error" || resp.Error != "" {
		code := resp.Error
		msg := resp.ErrorMessage
		if code == "" && len(resp.Result) > 0 {
			var re resultError
			if json.Unmarshal(resp.Result, &re) == nil {
				code, msg = re.Error, re.ErrorMessage
			}
		}
		if code == "" {
			code = "unknownError"
		}
		return &RPCError{Command: command, Code: code, Message: msg}
	}
	if out == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("unable to decode %s result: %w", command, err)
	}
	return nil
}
