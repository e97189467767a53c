package channel

import (
	"context"
	"io"
	"log"
	"net"
	"os"

	"github.com/indigo-web/channel/config"
	"github.com/indigo-web/channel/http"
	"github.com/indigo-web/channel/internal/accesslog"
	"github.com/indigo-web/channel/transport"
	"golang.org/x/crypto/acme"
)

// App is the server. Every accepted connection is served by its own event loop, the
// protocol is chosen by the connection's negotiated protocol.
type App struct {
	cfg        *config.Config
	hooks      hooks
	listeners  []listener
	supervisor *transport.Supervisor
	logOutput  io.Writer
}

// New returns a new App instance, listening the plain-text TCP on the address.
func New(addr string) *App {
	return &App{
		cfg:        config.Default(),
		listeners:  []listener{{addr: addr, transport: TCP()}},
		supervisor: transport.NewSupervisor(),
		logOutput:  os.Stderr,
	}
}

// Tune replaces default config.
func (a *App) Tune(cfg *config.Config) *App {
	a.cfg = cfg
	return a
}

// LogTo sets the destination of the access log and connection errors.
func (a *App) LogTo(w io.Writer) *App {
	a.logOutput = w
	return a
}

// Listen adds one more address to listen at. The plain TCP is used, if no transport is
// passed.
func (a *App) Listen(addr string, t ...Transport) *App {
	a.listeners = append(a.listeners, listener{
		addr:      addr,
		transport: optional(t, TCP()),
	})

	return a
}

// NotifyOnStart calls the callback at the moment, when all the listeners are bound. However,
// it isn't strongly guaranteed that they'll be able to accept new connections immediately
func (a *App) NotifyOnStart(cb func()) *App {
	a.hooks.OnStart = cb
	return a
}

// NotifyOnStop calls the callback at the moment, when all the listeners are down. It's
// guaranteed, that at the moment as the callback is called, the server isn't able to accept
// any new connections and all the clients are already disconnected
func (a *App) NotifyOnStop(cb func()) *App {
	a.hooks.OnStop = cb
	return a
}

// Serve runs the application until it's stopped or any of the listeners fails.
func (a *App) Serve(factory http.Factory) error {
	for _, l := range a.listeners {
		if l.transport.error != nil {
			return l.transport.error
		}

		if err := a.supervisor.Add(l.addr, l.transport.inner, a.serveConn(factory)); err != nil {
			return err
		}
	}

	callIfNotNil(a.hooks.OnStart)
	err := a.supervisor.Run(a.cfg.NET)
	callIfNotNil(a.hooks.OnStop)

	return err
}

// Stop stops accepting new connections and waits until all the present ones are done.
// The call is blocking.
func (a *App) Stop() {
	a.supervisor.Stop()
}

func (a *App) serveConn(factory http.Factory) func(net.Conn) {
	logger := log.New(a.logOutput, a.cfg.Log.Prefix, 0)

	return func(conn net.Conn) {
		c := transport.NewConn(conn, a.cfg.NET.ReadTimeout, make([]byte, a.cfg.NET.ReadBufferSize))
		if err := c.Handshake(context.Background()); err != nil {
			logger.Printf("%s: handshake: %s", conn.RemoteAddr(), err)
			return
		}

		if c.NegotiatedProtocol() == acme.ALPNProto {
			// the challenge is already answered by the handshake
			_ = conn.Close()
			return
		}

		ch := Negotiate(a.cfg, c, factory)
		ch.SetResetTimeout(c.ResetTimeout)
		ch.SetLogger(accesslog.New(logger))
		_ = c.Serve(ch)
	}
}

type listener struct {
	addr      string
	transport Transport
}

type hooks struct {
	OnStart, OnStop func()
}

func callIfNotNil(f func()) {
	if f != nil {
		f()
	}
}

func optional[T any](optionals []T, otherwise T) T {
	if len(optionals) == 0 {
		return otherwise
	}

	return optionals[0]
}
