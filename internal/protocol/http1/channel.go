package http1

import (
	"fmt"
	"slices"

	"github.com/indigo-web/channel/config"
	"github.com/indigo-web/channel/http"
	"github.com/indigo-web/channel/http/proto"
	"github.com/indigo-web/channel/http/status"
	"github.com/indigo-web/channel/internal/accesslog"
	"github.com/indigo-web/channel/internal/transfer"
	"github.com/indigo-web/channel/transport"
	"golang.org/x/net/http/httpguts"
)

type channelState uint8

const (
	eHead channelState = iota + 1
	eBody
	// eIgnoring is entered after the non-persistent request was received. Anything
	// the client sends afterward is discarded.
	eIgnoring
	eClosed
)

var badRequest = []byte("HTTP/1.1 400 Bad Request\r\n\r\n")

var _ http.Channel = new(Channel)

// Channel serves HTTP/1.x on top of a single connection. Requests are parsed as soon as
// their bytes arrive, even if responses to preceding requests aren't sent yet. Such
// requests are queued: their responses are buffered and flushed strictly in the order the
// requests came in.
//
// All the methods must be called from the connection's event loop.
type Channel struct {
	state        channelState
	cfg          *config.Config
	transport    transport.Transport
	factory      http.Factory
	parser       *Parser
	logger       *accesslog.Logger
	resetTimeout func()
	// request is the one whose head or body is being received at the moment.
	request    *http.Request
	handler    http.Handler
	decoder    transfer.Decoder
	queue      []*http.Request
	persistent bool
	bodyDone   bool
	bodyErr    error
	rest       []byte
}

func NewChannel(cfg *config.Config, t transport.Transport, factory http.Factory) *Channel {
	return &Channel{
		state:        eHead,
		cfg:          cfg,
		transport:    t,
		factory:      factory,
		parser:       NewParser(cfg),
		resetTimeout: func() {},
		persistent:   true,
	}
}

// SetFactory replaces the handler factory. It affects only requests parsed afterward.
func (c *Channel) SetFactory(factory http.Factory) {
	c.factory = factory
}

func (c *Channel) Factory() http.Factory {
	return c.factory
}

// SetResetTimeout sets the hook called on every inbound piece of data, the headers and
// the body alike.
func (c *Channel) SetResetTimeout(reset func()) {
	if reset == nil {
		reset = func() {}
	}

	c.resetTimeout = reset
}

// SetLogger enables the access log. Errors the channel can't report to anyone else are
// logged there, too.
func (c *Channel) SetLogger(logger *accesslog.Logger) {
	c.logger = logger
}

// Persistent reports whether the connection is kept after the last received request.
func (c *Channel) Persistent() bool {
	return c.persistent
}

// Queue returns requests whose responses aren't sent yet, including the one being
// received. The head of the queue is the one currently writing into the transport.
func (c *Channel) Queue() []*http.Request {
	return c.queue
}

// DataReceived feeds the channel with the inbound bytes. The data isn't retained after
// the call returns.
func (c *Channel) DataReceived(data []byte) {
	c.resetTimeout()

	for len(data) > 0 {
		switch c.state {
		case eHead:
			if c.request == nil {
				c.newRequest()
			}

			done, extra, err := c.parser.Parse(data)
			if err != nil {
				c.badRequest()
				return
			}

			if !done {
				return
			}

			data = extra
			c.headersReceived()
		case eBody:
			c.bodyDone, c.rest = false, nil
			if err := c.decoder.DataReceived(data); err != nil {
				c.badRequest()
				return
			}

			if c.bodyErr != nil {
				c.abort(c.bodyErr)
				return
			}

			if !c.bodyDone {
				return
			}

			data = c.rest
			c.rest = nil
			c.allContentReceived()
		default:
			return
		}
	}
}

// ConnectionLost notifies every request that wasn't done yet. The decoder, if any, is
// told there's no more data and is dropped.
func (c *Channel) ConnectionLost(reason error) {
	if c.state == eClosed && c.queue == nil {
		return
	}

	c.state = eClosed
	var bodyErr error
	if c.decoder != nil {
		if bodyErr = c.decoder.NoMoreData(); bodyErr != nil {
			c.logf("connection lost while receiving the body: %s", bodyErr)
		}

		c.decoder = nil
	}

	current, queue := c.request, c.queue
	c.queue, c.request, c.handler = nil, nil, nil
	for _, request := range queue {
		if request == current && bodyErr != nil {
			// the body consumer must know the content is incomplete
			request.ConnectionLost(wrapLoss(bodyErr, reason))
			continue
		}

		request.ConnectionLost(reason)
	}
}

func wrapLoss(bodyErr, reason error) error {
	if reason == nil {
		return bodyErr
	}

	return fmt.Errorf("%w: %w", bodyErr, reason)
}

// RequestDone is called by the request at the head of the queue once its response is
// completely written. The next request's buffered response is flushed, if there's any.
func (c *Channel) RequestDone(request *http.Request) {
	if len(c.queue) == 0 || c.queue[0] != request {
		return
	}

	if c.logger != nil && c.cfg.Log.Access {
		c.logger.Log(request)
	}

	c.queue[0] = nil
	c.queue = c.queue[1:]

	if len(c.queue) > 0 {
		if err := c.queue[0].NoLongerQueued(); err != nil {
			c.logf("closing the connection: %s", err)
			c.persistent = false
			c.close()
		}

		return
	}

	if !c.persistent {
		c.close()
	}
}

// CheckPersistence tells whether the connection may be kept alive after responding the
// request. If the client asked to close the connection, the response is marked with the
// Connection: close header as well.
func (c *Channel) CheckPersistence(request *http.Request, version proto.Protocol) bool {
	if version != proto.HTTP11 {
		return false
	}

	connection := slices.Collect(request.Headers.Values("connection"))
	if httpguts.HeaderValuesContainsToken(connection, "close") {
		request.SetHeader("Connection", "close")
		return false
	}

	return true
}

func (c *Channel) newRequest() {
	queued := len(c.queue) > 0
	request := http.NewRequest(c.cfg, c.transport, c, queued)
	c.queue = append(c.queue, request)
	c.request = request
	c.handler = c.factory(queued)
	c.parser.Begin(request)
}

func (c *Channel) headersReceived() {
	request := c.request
	c.persistent = c.CheckPersistence(request, request.Protocol)

	if request.Protocol == proto.HTTP11 && request.ExpectContinue {
		if err := request.WriteContinue(); err != nil {
			c.abort(err)
			return
		}
	}

	var length int64
	switch {
	case request.Chunked:
		length = -1
	case request.ContentLength > 0:
		length = request.ContentLength
	}

	content, err := http.NewContent(length, c.cfg.Body)
	if err != nil {
		c.abort(err)
		return
	}

	request.Content = content
	c.bodyErr = nil

	switch {
	case request.Chunked:
		c.decoder = transfer.NewChunkedDecoder(c.bodyData, c.bodyFinished)
	case request.ContentLength > 0:
		c.decoder = transfer.NewIdentityDecoder(request.ContentLength, c.bodyData, c.bodyFinished)
	default:
		c.allContentReceived()
		return
	}

	c.state = eBody
}

func (c *Channel) bodyData(data []byte) {
	if c.bodyErr != nil {
		return
	}

	_, c.bodyErr = c.request.Content.Write(data)
}

func (c *Channel) bodyFinished(rest []byte) {
	c.bodyDone, c.rest = true, rest
}

func (c *Channel) allContentReceived() {
	request, handler := c.request, c.handler
	if err := request.Content.Rewind(); err != nil {
		c.abort(err)
		return
	}

	c.request, c.handler, c.decoder = nil, nil, nil

	if c.persistent {
		c.state = eHead
	} else {
		c.state = eIgnoring
	}

	handler.Process(request)
}

// badRequest is the answer to every malformed request. Nothing else is written
// afterward. If responses to earlier requests are still pending, the answer waits for
// its turn and the connection is closed after it.
func (c *Channel) badRequest() {
	c.persistent = false
	c.state = eClosed
	c.decoder = nil

	request := c.request
	c.request, c.handler = nil, nil
	if request != nil && request.Content != nil {
		_ = request.Content.Close()
	}

	if request != nil && len(c.queue) > 1 {
		request.SetResponseCode(status.BadRequest)
		if err := request.Reject(badRequest); err != nil {
			c.logf("closing the connection: %s", err)
			c.close()
		}

		return
	}

	_, _ = c.transport.Write(badRequest)
	_ = c.transport.Close()
}

// abort gives up on the request being received. Earlier requests, if any, are still
// responded, the connection is closed after the last of them.
func (c *Channel) abort(err error) {
	c.logf("closing the connection: %s", err)
	c.persistent = false
	c.state = eClosed
	c.decoder = nil

	request := c.request
	c.request, c.handler = nil, nil
	if request != nil && len(c.queue) > 1 {
		c.queue[len(c.queue)-1] = nil
		c.queue = c.queue[:len(c.queue)-1]
		request.ConnectionLost(err)
		return
	}

	c.close()
}

func (c *Channel) close() {
	c.state = eClosed
	_ = c.transport.Close()
}

func (c *Channel) logf(format string, v ...any) {
	if c.logger != nil {
		c.logger.Printf(format, v...)
	}
}
