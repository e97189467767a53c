package channel

import (
	"errors"
	"fmt"

	"github.com/indigo-web/channel/config"
	"github.com/indigo-web/channel/http"
	"github.com/indigo-web/channel/http/proto"
	"github.com/indigo-web/channel/internal/accesslog"
	"github.com/indigo-web/channel/internal/protocol/http1"
	"github.com/indigo-web/channel/transport"
	"golang.org/x/net/http2"
)

// ErrUnsupportedProtocol is the panic value of Negotiate, if the transport negotiated
// anything but HTTP/1.1. It's a configuration defect, as the TLS listeners never offer
// other protocols.
var ErrUnsupportedProtocol = errors.New("unsupported protocol was negotiated")

// Channel is the protocol side of a connection. It consumes the connection's events and
// spawns a handler for every request.
type Channel interface {
	transport.Receiver
	SetFactory(factory http.Factory)
	Factory() http.Factory
	// SetResetTimeout sets the hook, called on every received piece of data.
	SetResetTimeout(reset func())
	SetLogger(logger *accesslog.Logger)
}

var _ Channel = new(http1.Channel)

// Negotiate picks the channel implementation by the protocol negotiated by the
// transport. Only HTTP/1.x is supported, as well as no negotiation at all.
func Negotiate(cfg *config.Config, t transport.Transport, factory http.Factory) Channel {
	switch negotiated := t.NegotiatedProtocol(); negotiated {
	case "", "http/1.1":
		return http1.NewChannel(cfg, t, factory)
	case http2.NextProtoTLS:
		panic(fmt.Errorf("%w: %s (%s)", ErrUnsupportedProtocol, proto.HTTP2, negotiated))
	default:
		if protocol := proto.FromALPN(negotiated); protocol != proto.Unknown {
			panic(fmt.Errorf("%w: %s (%s)", ErrUnsupportedProtocol, protocol, negotiated))
		}

		panic(fmt.Errorf("%w: %q", ErrUnsupportedProtocol, negotiated))
	}
}
