// Package cdp implements a minimal Chrome DevTools Protocol client:
// target discovery over the browser's HTTP directory endpoint and a
// correlating WebSocket transport for arbitrary protocol commands.
//
// The client is protocol-agnostic. Method names and parameters are
// forwarded opaquely; responses are paired to commands purely by their
// numeric id, and anything without an id is surfaced as an Event.
package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultCommandTimeout bounds how long SendCommand waits for the
// correlated response before giving up on that one command.
const DefaultCommandTimeout = 10 * time.Second

// Client owns one persistent WebSocket connection to a debuggable page
// and correlates asynchronous responses to the commands that caused
// them. A Client is safe for concurrent use; any number of commands may
// be in flight at once over the single connection, and responses may
// arrive in any order.
type Client struct {
	wsURL   string
	timeout time.Duration

	onEvent      func(Event)
	onDisconnect func(error)

	// gorilla/websocket supports one concurrent writer.
	writeMu sync.Mutex

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	nextID    int64
	pending   map[int64]chan *Response
	closed    chan struct{}
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithCommandTimeout overrides the per-command response deadline.
func WithCommandTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient creates a client for the given WebSocket debugger URL.
// The connection is not established until Connect is called.
func NewClient(wsURL string, opts ...ClientOption) *Client {
	c := &Client{
		wsURL:   wsURL,
		timeout: DefaultCommandTimeout,
		pending: make(map[int64]chan *Response),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnEvent registers an observer for unsolicited protocol events.
// Must be set before Connect; the observer runs on the read loop
// goroutine and must not block.
func (c *Client) OnEvent(fn func(Event)) { c.onEvent = fn }

// OnDisconnect registers an observer invoked once per connection when
// the connection is lost or closed. Must be set before Connect.
func (c *Client) OnDisconnect(fn func(error)) { c.onDisconnect = fn }

// Connect establishes the WebSocket connection and starts the read
// loop. Connect on an already connected client returns
// ErrAlreadyConnected; Disconnect first.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.mu.Unlock()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return &ConnectionError{Op: "connect", Err: err}
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.closed = make(chan struct{})
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

// Connected reports whether the client currently holds a live
// connection.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Disconnect closes the connection. In-flight commands are rejected
// with a connection error as the read loop winds down.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	// Closing the socket makes the read loop exit, which tears down
	// shared state and rejects everything still pending.
	return conn.Close()
}

// SendCommand transmits one command and blocks until its correlated
// response arrives, the per-command timeout elapses, the connection is
// lost, or ctx is done. Protocol-level errors reported by the browser
// come back as data on the Response, not as a Go error.
func (c *Client) SendCommand(ctx context.Context, method string, params any) (*Response, error) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	conn := c.conn
	closed := c.closed
	c.nextID++
	id := c.nextID
	ch := make(chan *Response, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	payload, err := json.Marshal(Command{ID: id, Method: method, Params: params})
	if err != nil {
		c.discard(id)
		return nil, fmt.Errorf("cdp: marshal command %s: %w", method, err)
	}

	c.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, payload)
	c.writeMu.Unlock()
	if err != nil {
		c.discard(id)
		// A failed write means the socket is gone; close it so the read
		// loop notices and rejects everything else pending.
		_ = conn.Close()
		return nil, &ConnectionError{Op: "send " + method, Err: err}
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		return resp, nil
	case <-timer.C:
		if resp, ok := c.take(id, ch); ok {
			return resp, nil
		}
		return nil, &TimeoutError{Method: method, Timeout: c.timeout}
	case <-closed:
		if resp, ok := c.take(id, ch); ok {
			return resp, nil
		}
		return nil, &ConnectionError{Op: "await " + method, Err: errors.New("connection closed")}
	case <-ctx.Done():
		if resp, ok := c.take(id, ch); ok {
			return resp, nil
		}
		return nil, ctx.Err()
	}
}

// discard removes the pending entry for id. It reports false when the
// entry is already gone, meaning the dispatcher resolved it or the
// connection was torn down.
func (c *Client) discard(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[id]; !ok {
		return false
	}
	delete(c.pending, id)
	return true
}

// take resolves the race between a timeout (or cancellation) and a
// late-arriving response. The dispatcher removes an entry and buffers
// the response atomically under the mutex, so after discard reports the
// entry gone, a non-blocking read of the channel is decisive.
func (c *Client) take(id int64, ch chan *Response) (*Response, bool) {
	if c.discard(id) {
		return nil, false
	}
	select {
	case resp := <-ch:
		return resp, true
	default:
		return nil, false
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	var err error
	for {
		var data []byte
		_, data, err = conn.ReadMessage()
		if err != nil {
			break
		}
		c.dispatch(data)
	}
	c.teardown(err)
}

// envelope classifies an inbound frame: a numeric id marks a response,
// a method with no id marks an event. Anything else is dropped.
type envelope struct {
	ID     *int64          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  *ResponseError  `json:"error"`
}

func (c *Client) dispatch(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return
	}

	if env.ID != nil {
		resp := &Response{ID: *env.ID, Result: env.Result, Error: env.Error}
		c.mu.Lock()
		// Unknown ids (already timed out, already resolved) are dropped
		// silently. Each entry resolves at most once: removal and
		// buffering happen together under the mutex.
		if ch, ok := c.pending[resp.ID]; ok {
			delete(c.pending, resp.ID)
			ch <- resp
		}
		c.mu.Unlock()
		return
	}

	if env.Method != "" && c.onEvent != nil {
		c.onEvent(Event{Method: env.Method, Params: env.Params})
	}
}

// teardown marks the connection gone, rejects every pending command,
// and notifies the disconnect observer. It runs exactly once per
// connection, from the read loop.
func (c *Client) teardown(err error) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	c.connected = false
	c.conn = nil
	c.pending = make(map[int64]chan *Response)
	close(c.closed)
	c.mu.Unlock()

	if c.onDisconnect != nil {
		c.onDisconnect(err)
	}
}
