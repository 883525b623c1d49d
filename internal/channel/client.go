// Package channel owns the duplex real-time connection for one session.
// It delivers decoded inbound messages to subscribers and treats outbound
// sends as fire-and-forget: the server has no durable queue for a client's
// intent, so callers must never assume delivery.
package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/quizpin/clients/internal/protocol"
)

var ErrConnection = errors.New("channel: connection failed")
var ErrClosed = errors.New("channel: client closed")

const dialTimeout = 10 * time.Second
const writeTimeout = 5 * time.Second

// Client wraps one websocket connection. Handlers registered through
// OnMessage/OnOpen/OnClose are subscriber lists: registering a second
// handler never drops the first. Subscribers survive redials, so a
// reconnecting caller keeps its wiring across connections.
type Client struct {
	log *zap.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	msgSubs   []func(protocol.Inbound)
	openSubs  []func()
	closeSubs []func()
}

func New(log *zap.Logger) *Client {
	return &Client{log: log}
}

// OnMessage registers a subscriber for decoded inbound messages.
func (c *Client) OnMessage(fn func(protocol.Inbound)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgSubs = append(c.msgSubs, fn)
}

// OnOpen registers a subscriber invoked after every successful dial.
func (c *Client) OnOpen(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openSubs = append(c.openSubs, fn)
}

// OnClose registers a subscriber invoked whenever a connection ends, whether
// by the peer, a network failure, or a local Close.
func (c *Client) OnClose(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeSubs = append(c.closeSubs, fn)
}

// Dial establishes the connection and starts the read loop. Calling Dial
// again after the connection dropped reconnects with the same subscribers.
func (c *Client) Dial(ctx context.Context, url string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "client closed")
		return ErrClosed
	}
	if c.conn != nil {
		c.conn.Close(websocket.StatusNormalClosure, "superseded")
	}
	c.conn = conn
	opens := append([]func(){}, c.openSubs...)
	c.mu.Unlock()

	c.log.Info("channel connected", zap.String("url", url))
	for _, fn := range opens {
		fn()
	}

	go c.readLoop(conn)
	return nil
}

// Send marshals and writes one outbound message. It fails silently when the
// connection is not open: the failure is logged and the message dropped,
// matching the at-most-once contract of the channel.
func (c *Client) Send(ctx context.Context, msg protocol.Outbound) {
	data, err := protocol.Encode(msg)
	if err != nil {
		c.log.Warn("channel send: encode failed", zap.Error(err))
		return
	}

	c.mu.Lock()
	conn := c.conn
	closed := c.closed
	c.mu.Unlock()

	if conn == nil || closed {
		c.log.Warn("channel not open, message dropped",
			zap.ByteString("message", data))
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		c.log.Warn("channel send failed", zap.Error(err))
	}
}

// Close tears the connection down. It is idempotent; pending sends on the
// old connection become no-ops.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	// The read loop observes the close and runs the teardown path, so
	// close subscribers fire for a local Close too.
	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "bye")
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.connectionEnded(conn)

	for {
		_, data, err := conn.Read(context.Background())
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				c.log.Info("channel read ended", zap.Error(err))
			}
			return
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			// A malformed payload never takes the handler chain down.
			c.log.Warn("dropping undecodable payload",
				zap.Error(err), zap.ByteString("payload", data))
			continue
		}

		c.mu.Lock()
		subs := append([]func(protocol.Inbound){}, c.msgSubs...)
		c.mu.Unlock()
		for _, fn := range subs {
			fn(msg)
		}
	}
}

// connectionEnded clears the connection slot and notifies close subscribers.
// A connection a later Dial already superseded ends silently: from the
// subscribers' point of view it was replaced, not dropped.
func (c *Client) connectionEnded(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	closes := append([]func(){}, c.closeSubs...)
	c.mu.Unlock()

	c.log.Info("channel disconnected")
	for _, fn := range closes {
		fn()
	}
}
