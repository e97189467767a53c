package transport

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/indigo-web/channel/config"
)

// Listener accepts the connections and passes them to the callback. The callback is
// run in a separate goroutine for every connection.
type Listener interface {
	Bind(addr string) error
	Listen(cfg config.NET, cb func(conn net.Conn)) error
	Stop()
	Close()
	Wait()
}

// Supervisor runs several listeners at once. As soon as any of them returns, with or
// without an error, the rest are stopped as well.
type Supervisor struct {
	listeners []supervised
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	running   atomic.Bool
}

func NewSupervisor() *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())

	return &Supervisor{
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Add binds the listener. If binding fails, all the listeners bound before are closed.
func (s *Supervisor) Add(addr string, l Listener, cb func(net.Conn)) error {
	if err := l.Bind(addr); err != nil {
		for _, bound := range s.listeners {
			bound.listener.Close()
		}

		return fmt.Errorf("bind %s: %w", addr, err)
	}

	s.listeners = append(s.listeners, supervised{
		addr:     addr,
		listener: l,
		cb:       cb,
	})

	return nil
}

// Run blocks until Stop is called or any of the listeners returns. The error of the
// first failed listener is returned. Once Run returns, all the listeners are closed and
// every connection is done.
func (s *Supervisor) Run(cfg config.NET) error {
	s.running.Store(true)
	defer close(s.done)

	if len(s.listeners) == 0 {
		return nil
	}

	results := make(chan error, len(s.listeners))
	for _, l := range s.listeners {
		go func() {
			if err := l.listener.Listen(cfg, l.cb); err != nil {
				results <- fmt.Errorf("listen %s: %w", l.addr, err)
				return
			}

			results <- nil
		}()
	}

	var (
		err     error
		pending = len(s.listeners)
	)

	select {
	case err = <-results:
		pending--
	case <-s.ctx.Done():
	}

	for _, l := range s.listeners {
		l.listener.Stop()
	}

	for ; pending > 0; pending-- {
		if e := <-results; err == nil {
			err = e
		}
	}

	for _, l := range s.listeners {
		l.listener.Wait()
		l.listener.Close()
	}

	return err
}

// Stop interrupts Run and blocks until it returns. If Run isn't running yet, it returns
// immediately as soon as it's called.
func (s *Supervisor) Stop() {
	s.cancel()
	if s.running.Load() {
		<-s.done
	}
}

type supervised struct {
	addr     string
	listener Listener
	cb       func(conn net.Conn)
}
