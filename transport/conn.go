package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/indigo-web/channel/internal/timer"
)

// ErrConnectionDone is passed to the receiver when the connection was closed cleanly,
// either by us or by the peer.
var ErrConnectionDone = errors.New("connection was closed cleanly")

var _ Transport = new(Conn)

// Conn drives a single net.Conn. Reading happens in a separate goroutine, however all
// the events are delivered on the event loop, run by Serve. The read buffer is reused,
// so the data passed to the receiver is valid only during the DataReceived call.
type Conn struct {
	conn    net.Conn
	buff    []byte
	timeout time.Duration

	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
	ack     chan struct{}
	done    chan struct{}

	receiver Receiver
	producer Producer
	closing  bool
	lost     bool
}

func NewConn(conn net.Conn, timeout time.Duration, buff []byte) *Conn {
	return &Conn{
		conn:    conn,
		buff:    buff,
		timeout: timeout,
		wake:    make(chan struct{}, 1),
		ack:     make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Handshake completes the TLS handshake, if the connection is a TLS one. It's required
// to be done before NegotiatedProtocol is called.
func (c *Conn) Handshake(ctx context.Context) error {
	tlsConn, ok := c.conn.(*tls.Conn)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return tlsConn.HandshakeContext(ctx)
}

// Serve runs the event loop until the connection is lost. Returned error is nil if the
// connection was closed cleanly.
func (c *Conn) Serve(receiver Receiver) error {
	c.receiver = receiver
	c.ResetTimeout()
	go c.read()

	for {
		select {
		case <-c.wake:
		case <-c.done:
			return nil
		}

		for _, task := range c.takePending() {
			task()
		}

		if c.lost {
			return nil
		}
	}
}

// Loss returns a channel, which is closed once the connection is lost.
func (c *Conn) Loss() <-chan struct{} {
	return c.done
}

func (c *Conn) read() {
	for {
		n, err := c.conn.Read(c.buff)
		if n > 0 {
			data := c.buff[:n]
			c.Schedule(func() {
				c.dataReceived(data)
				c.ack <- struct{}{}
			})

			select {
			case <-c.ack:
			case <-c.done:
				return
			}
		}

		if err != nil {
			c.Schedule(func() {
				c.connectionLost(err)
			})

			return
		}
	}
}

func (c *Conn) dataReceived(data []byte) {
	if c.closing || c.lost {
		return
	}

	c.receiver.DataReceived(data)
}

func (c *Conn) connectionLost(err error) {
	if c.lost {
		return
	}

	if c.closing || errors.Is(err, io.EOF) {
		err = ErrConnectionDone
	}

	c.lost = true
	if c.producer != nil {
		c.producer.StopProducing()
		c.producer = nil
	}

	c.receiver.ConnectionLost(err)
	close(c.done)
}

func (c *Conn) takePending() []func() {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	return pending
}

func (c *Conn) Schedule(fn func()) {
	c.mu.Lock()
	c.pending = append(c.pending, fn)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// ResetTimeout prolongs the read deadline of the connection.
func (c *Conn) ResetTimeout() {
	_ = c.conn.SetReadDeadline(timer.Now().Add(c.timeout))
}

// Write writes data into the underlying connection.
func (c *Conn) Write(b []byte) (int, error) {
	if c.closing || c.lost {
		return 0, net.ErrClosed
	}

	return c.conn.Write(b)
}

// Close closes the connection, the receiver is notified with ErrConnectionDone.
func (c *Conn) Close() error {
	if c.closing {
		return nil
	}

	c.closing = true
	return c.conn.Close()
}

// Remote returns the remote address of the connection.
func (c *Conn) Remote() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *Conn) NegotiatedProtocol() string {
	if tlsConn, ok := c.conn.(*tls.Conn); ok {
		return tlsConn.ConnectionState().NegotiatedProtocol
	}

	return ""
}

func (c *Conn) RegisterProducer(p Producer) {
	c.producer = p
	if !IsStreaming(p) {
		c.Schedule(c.pull)
	}
}

func (c *Conn) UnregisterProducer() {
	c.producer = nil
}

// pull asks the pull-style producer for more data for as long as it stays registered.
// Writes are synchronous, so the transport is ready for more right after every call.
func (c *Conn) pull() {
	p := c.producer
	if p == nil || c.closing || c.lost || IsStreaming(p) {
		return
	}

	p.ResumeProducing()
	if c.producer == p {
		c.Schedule(c.pull)
	}
}
