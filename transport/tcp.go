package transport

import (
	"errors"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/indigo-web/channel/config"
	"github.com/indigo-web/channel/internal/timer"
)

// deadliner is a listener whose Accept can be interrupted by a deadline.
type deadliner interface {
	net.Listener
	SetDeadline(t time.Time) error
}

// TCP accepts plain-text connections. Every connection is served in its own goroutine
// and is closed as soon as the callback returns.
type TCP struct {
	ln       deadliner
	conns    *sync.WaitGroup
	stopping *atomic.Bool
}

func NewTCP() *TCP {
	tcp := newTCP(nil)
	return &tcp
}

func newTCP(ln deadliner) TCP {
	return TCP{
		ln:       ln,
		conns:    new(sync.WaitGroup),
		stopping: new(atomic.Bool),
	}
}

func bindTCP(addr string) (*net.TCPListener, error) {
	resolved, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}

	return net.ListenTCP("tcp", resolved)
}

func (t *TCP) Bind(addr string) error {
	ln, err := bindTCP(addr)
	if err == nil {
		t.ln = ln
	}

	return err
}

// Addr returns the address the listener is bound to.
func (t *TCP) Addr() net.Addr {
	return t.ln.Addr()
}

// Listen accepts connections until Stop is called. Stop is noticed at most in
// cfg.AcceptLoopInterruptPeriod.
func (t *TCP) Listen(cfg config.NET, cb func(conn net.Conn)) error {
	for {
		conn, err := t.accept(cfg.AcceptLoopInterruptPeriod)
		switch {
		case t.stopping.Load():
			if conn != nil {
				_ = conn.Close()
			}

			return nil
		case errors.Is(err, os.ErrDeadlineExceeded):
			continue
		case err != nil:
			return err
		}

		t.conns.Add(1)
		go t.serve(conn, cb)
	}
}

func (t *TCP) accept(interrupt time.Duration) (net.Conn, error) {
	if err := t.ln.SetDeadline(timer.Now().Add(interrupt)); err != nil {
		return nil, err
	}

	return t.ln.Accept()
}

func (t *TCP) serve(conn net.Conn, cb func(net.Conn)) {
	defer t.conns.Done()
	defer conn.Close()

	cb(conn)
}

// Stop makes Listen return. Connections already accepted are served until they're done.
func (t *TCP) Stop() {
	t.stopping.Store(true)
}

func (t *TCP) Close() {
	if t.ln != nil {
		_ = t.ln.Close()
	}
}

// Wait blocks until every accepted connection is done.
func (t *TCP) Wait() {
	t.conns.Wait()
}
