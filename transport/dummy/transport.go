package dummy

import (
	"bytes"
	"net"

	"github.com/indigo-web/channel/transport"
)

var _ transport.Transport = new(Transport)

// Transport records everything written into it. Scheduled functions are run immediately,
// so the tests stay single-threaded.
type Transport struct {
	buff bytes.Buffer
	// Disconnecting is set once Close was called.
	Disconnecting bool
	// Producer is the currently registered producer.
	Producer transport.Producer
	// Streaming reports whether the registered producer is a push one.
	Streaming bool
	// Protocol is returned by NegotiatedProtocol.
	Protocol string
	// Addr is returned by Remote.
	Addr net.Addr
	// Err, if set, is returned by every Write.
	Err error
}

func NewTransport() *Transport {
	return &Transport{
		Addr: &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 12345},
	}
}

// Value returns everything that was written so far.
func (t *Transport) Value() string {
	return t.buff.String()
}

// Clear drops the written data.
func (t *Transport) Clear() {
	t.buff.Reset()
}

func (t *Transport) Write(b []byte) (int, error) {
	if t.Err != nil {
		return 0, t.Err
	}

	return t.buff.Write(b)
}

func (t *Transport) Close() error {
	t.Disconnecting = true
	return nil
}

func (t *Transport) Remote() net.Addr {
	return t.Addr
}

func (t *Transport) NegotiatedProtocol() string {
	return t.Protocol
}

func (t *Transport) RegisterProducer(p transport.Producer) {
	if t.Producer != nil {
		panic("dummy: a producer is already registered")
	}

	t.Producer, t.Streaming = p, transport.IsStreaming(p)
}

func (t *Transport) UnregisterProducer() {
	t.Producer, t.Streaming = nil, false
}

func (t *Transport) Schedule(fn func()) {
	fn()
}

// Producer counts the calls it receives. It's the push one when created via
// NewPushProducer.
type Producer struct {
	Resumed, Paused, Stopped int
}

func (p *Producer) ResumeProducing() {
	p.Resumed++
}

func (p *Producer) StopProducing() {
	p.Stopped++
}

// PushProducer is a streaming Producer.
type PushProducer struct {
	Producer
}

func (p *PushProducer) PauseProducing() {
	p.Paused++
}

func NewProducer() *Producer {
	return new(Producer)
}

func NewPushProducer() *PushProducer {
	return new(PushProducer)
}
