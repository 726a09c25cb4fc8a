// Package client is the Go counterpart of the browser session providers: a
// connection manager that buffers sends until the transport opens, and a
// session adapter that reduces the inbound frame stream into local state.
package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrClosed = errors.New("connection closed")

// Transport is the raw bidirectional stream under a Conn. Abstracted so the
// outbox semantics are testable without a listening server.
type Transport interface {
	Write(ctx context.Context, data []byte) error
	Read(ctx context.Context) ([]byte, error)
	Close() error
}

type DialFunc func(ctx context.Context, url string) (Transport, error)

const writeTimeout = 5 * time.Second

type status int

const (
	statusConnecting status = iota
	statusOpen
	statusClosed
)

// Conn owns exactly one transport. Sends issued before the transport opens
// land in a FIFO outbox and are flushed, in order and exactly once, the
// moment it opens. Close is idempotent. There is no internal reconnect: a
// caller that wants a new transport dials a new Conn.
type Conn struct {
	dial DialFunc
	log  *zap.Logger

	mu      sync.Mutex
	st      status
	tr      Transport
	pending [][]byte

	inbound chan []byte
}

type Option func(*Conn)

func WithDialer(dial DialFunc) Option {
	return func(c *Conn) { c.dial = dial }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Conn) { c.log = log }
}

// Dial returns a usable handle immediately; the transport opens in the
// background. Callers may Send right away.
func Dial(ctx context.Context, url string, opts ...Option) *Conn {
	c := &Conn{
		dial:    DialWebsocket,
		log:     zap.NewNop(),
		st:      statusConnecting,
		inbound: make(chan []byte, 64),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.run(ctx, url)
	return c
}

// Inbound yields raw frames until the transport ends; the channel closes on
// any terminal condition (dial failure, transport error, Close).
func (c *Conn) Inbound() <-chan []byte { return c.inbound }

// Send writes a payload, or queues it if the transport is still opening.
func (c *Conn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.st {
	case statusClosed:
		return ErrClosed
	case statusOpen:
		return c.write(payload)
	default:
		buf := make([]byte, len(payload))
		copy(buf, payload)
		c.pending = append(c.pending, buf)
		return nil
	}
}

// Close is safe to call any number of times, on any state.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.st == statusClosed {
		c.mu.Unlock()
		return nil
	}
	c.st = statusClosed
	tr := c.tr
	c.pending = nil
	c.mu.Unlock()

	if tr != nil {
		return tr.Close()
	}
	return nil
}

func (c *Conn) run(ctx context.Context, url string) {
	defer close(c.inbound)

	tr, err := c.dial(ctx, url)
	if err != nil {
		c.log.Warn("dial failed", zap.String("url", url), zap.Error(err))
		c.mu.Lock()
		c.st = statusClosed
		c.pending = nil
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	if c.st == statusClosed {
		// Closed while still dialing.
		c.mu.Unlock()
		_ = tr.Close()
		return
	}
	c.tr = tr
	// Flush the outbox in insertion order before any later Send can slip
	// in; the mutex keeps this atomic with the open transition.
	for _, payload := range c.pending {
		if err := c.write(payload); err != nil {
			c.log.Warn("outbox flush failed", zap.Error(err))
			break
		}
	}
	c.pending = nil
	c.st = statusOpen
	c.mu.Unlock()

	for {
		data, err := tr.Read(ctx)
		if err != nil {
			// Transport end is not an application error: the server
			// treats it as a presence leave, and so do we.
			_ = c.Close()
			return
		}
		select {
		case c.inbound <- data:
		case <-ctx.Done():
			_ = c.Close()
			return
		}
	}
}

// write requires c.mu held and an attached transport.
func (c *Conn) write(payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return c.tr.Write(ctx, payload)
}
