package transport

import (
	"io"
	"net"
)

// Transport is a byte-stream connection as seen by the protocol layer. All the methods,
// except Schedule, must be called from the connection's event loop.
type Transport interface {
	io.Writer
	// Close closes the connection. Data already written is sent to the peer before the
	// connection is actually torn down.
	Close() error
	Remote() net.Addr
	// NegotiatedProtocol returns the protocol negotiated via TLS ALPN. Empty string means
	// that nothing was negotiated.
	NegotiatedProtocol() string
	// RegisterProducer registers the source of the response data. Streaming producers
	// (implementing PushProducer) write on their own, others are asked for more data
	// via ResumeProducing every time the transport is ready to consume it.
	RegisterProducer(p Producer)
	UnregisterProducer()
	// Schedule runs the function on the event loop. It's safe to be called from any
	// goroutine and never blocks.
	Schedule(fn func())
}

// Producer is the pull-style source of data. Every ResumeProducing call is expected to
// result in one more portion of data written.
type Producer interface {
	ResumeProducing()
	StopProducing()
}

// PushProducer is the streaming source of data. It writes as long as it isn't paused.
type PushProducer interface {
	Producer
	PauseProducing()
}

// IsStreaming reports whether the producer pushes data on its own.
func IsStreaming(p Producer) bool {
	_, ok := p.(PushProducer)
	return ok
}

// Receiver consumes the events of the connection.
type Receiver interface {
	DataReceived(data []byte)
	// ConnectionLost is called exactly once. ErrConnectionDone is passed when the
	// connection was closed cleanly.
	ConnectionLost(err error)
}
