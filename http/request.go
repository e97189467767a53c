package http

import (
	"bytes"
	"fmt"
	"maps"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/indigo-web/channel/config"
	"github.com/indigo-web/channel/http/cookie"
	"github.com/indigo-web/channel/http/method"
	"github.com/indigo-web/channel/http/proto"
	"github.com/indigo-web/channel/http/status"
	"github.com/indigo-web/channel/internal/transfer"
	"github.com/indigo-web/channel/kv"
	"github.com/indigo-web/channel/transport"
	json "github.com/json-iterator/go"
)

type (
	Headers = *kv.Storage
	Header  = kv.Pair
	Params  = *kv.Storage
)

type writeState uint8

const (
	unstarted writeState = iota
	headersSent
	finished
)

var continueResponse = []byte("HTTP/1.1 100 Continue\r\n\r\n")

// Request represents HTTP request and at the same time is the writer of its response.
// All the methods must be called from the connection's event loop.
type Request struct {
	// Method is the request method exactly as received.
	Method string
	// URI is the request target exactly as received.
	URI string
	// Path is the part of URI preceding the query. It isn't unescaped.
	Path string
	// Params are decoded query arguments in their original order.
	Params Params
	// Protocol is the version the request was made with. The response is sent with the
	// same version.
	Protocol proto.Protocol
	// Headers holds non-normalized header pairs, even though lookup is case-insensitive.
	Headers Headers
	commonHeaders
	// Remote holds the remote address. Please note that this is generally not a good parameter to identify
	// a user, because there might be proxies in the middle.
	Remote net.Addr
	// Content is the request body. It's rewound before the handler is called.
	Content *Content
	// ResponseHeaders are sent along with the first write. Changes made afterward take
	// no effect.
	ResponseHeaders Headers
	// LastModified, if set, results in the Last-Modified response header, unless it was
	// set explicitly.
	LastModified time.Time

	code      status.Code
	message   status.Status
	state     writeState
	chunked   bool
	noBody    bool
	queued    bool
	lost      bool
	done      bool
	result    error
	observers []func(error)
	producer  transport.Producer
	cookies   []cookie.Cookie
	jar       cookie.Jar
	sent      int64
	out       bytes.Buffer
	buff      []byte
	cfg       *config.Config
	transport transport.Transport
	channel   Channel
}

type commonHeaders struct {
	// ContentLength obtains the value from Content-Length header. It holds the value of -1
	// if isn't presented.
	ContentLength int64
	// Chunked tells whether the body is encoded with the chunked transfer coding.
	Chunked bool
	// ExpectContinue is set if the client waits for the 100 Continue before sending the body.
	ExpectContinue bool
	// Connection holds the Connection header value. It isn't normalized, so can be anything
	// and in any case.
	Connection string
	// ContentType obtains Content-Type header value
	ContentType string
}

// NewRequest returns a request bound to the transport. Queued means that there are earlier
// requests, whose responses aren't sent yet, so the response must be buffered until
// NoLongerQueued is called.
func NewRequest(cfg *config.Config, t transport.Transport, ch Channel, queued bool) *Request {
	return &Request{
		Params:          kv.NewPrealloc(cfg.URI.ParamsPrealloc),
		Headers:         kv.NewPrealloc(cfg.Headers.Number.Default),
		ResponseHeaders: kv.New(),
		commonHeaders:   commonHeaders{ContentLength: -1},
		Remote:          t.Remote(),
		code:            status.OK,
		queued:          queued,
		cfg:             cfg,
		transport:       t,
		channel:         ch,
	}
}

// SetTarget sets the request target, splitting it into the path and decoded query
// arguments.
func (r *Request) SetTarget(uri string) {
	r.URI = uri
	path, query, _ := strings.Cut(uri, "?")
	r.Path = path
	ParseQuery(r.Params.Clear(), query)
}

// ParseQuery decodes the urlencoded query into the params. Malformed escape sequences are
// kept as is.
func ParseQuery(params Params, query string) {
	for len(query) > 0 {
		var pair string
		pair, query, _ = strings.Cut(query, "&")
		if len(pair) == 0 {
			continue
		}

		key, value, _ := strings.Cut(pair, "=")
		params.Add(unescape(key), unescape(value))
	}
}

func unescape(str string) string {
	if unescaped, err := url.QueryUnescape(str); err == nil {
		return unescaped
	}

	return str
}

// Header returns the last value of the request header.
func (r *Request) Header(name string) (string, bool) {
	return r.Headers.Last(name)
}

// SetHeader replaces all the values of the response header.
func (r *Request) SetHeader(name, value string) *Request {
	r.ResponseHeaders.Set(name, value)
	return r
}

// AddHeader adds one more value to the response header.
func (r *Request) AddHeader(name, value string) *Request {
	r.ResponseHeaders.Add(name, value)
	return r
}

// SetResponseCode sets the code and its standard reason phrase.
func (r *Request) SetResponseCode(code status.Code) *Request {
	r.code, r.message = code, ""
	return r
}

// SetResponseCodeMessage sets the code along with a custom reason phrase.
func (r *Request) SetResponseCodeMessage(code status.Code, message status.Status) *Request {
	r.code, r.message = code, message
	return r
}

// Code returns the response code.
func (r *Request) Code() status.Code {
	return r.code
}

// Redirect responds with 302 Found pointing at the location. The request still must be
// finished.
func (r *Request) Redirect(location string) *Request {
	return r.SetResponseCode(status.Found).SetHeader("Location", location)
}

// ParseCookies returns a jar of cookies the client sent. Cookies of all the Cookie headers
// are gathered, the result is cached.
func (r *Request) ParseCookies() cookie.Jar {
	if r.jar != nil {
		return r.jar
	}

	r.jar = cookie.NewJarPrealloc(r.cfg.Headers.CookiesPrealloc)
	for value := range r.Headers.Values("cookie") {
		cookie.Parse(r.jar, value)
	}

	return r.jar
}

// Cookie returns the value of the received cookie.
func (r *Request) Cookie(name string) (string, bool) {
	return r.ParseCookies().Get(name)
}

// AddCookie adds a Set-Cookie to the response. Cookies with invalid name or value are
// silently dropped.
func (r *Request) AddCookie(c cookie.Cookie) *Request {
	r.cookies = append(r.cookies, c)
	return r
}

// JSON decodes the body into the model.
func (r *Request) JSON(model any) error {
	data, err := r.Content.Bytes()
	if err != nil {
		return err
	}

	iter := json.ConfigDefault.BorrowIterator(data)
	defer json.ConfigDefault.ReturnIterator(iter)

	iter.ReadVal(model)
	return iter.Error
}

// WriteJSON writes the model encoded as a JSON. If nothing was written yet, Content-Type
// and Content-Length are set, unless they were explicitly.
func (r *Request) WriteJSON(model any) error {
	stream := json.ConfigDefault.BorrowStream(nil)
	defer json.ConfigDefault.ReturnStream(stream)

	stream.WriteVal(model)
	if stream.Error != nil {
		return stream.Error
	}

	data := stream.Buffer()
	if r.state == unstarted {
		if !r.ResponseHeaders.Has("Content-Type") {
			r.ResponseHeaders.Set("Content-Type", "application/json")
		}

		if !r.ResponseHeaders.Has("Content-Length") {
			r.ResponseHeaders.Set("Content-Length", strconv.Itoa(len(data)))
		}
	}

	_, err := r.Write(data)
	return err
}

// WriteContinue writes the interim 100 Continue response. It goes through the same output
// as the response itself, so it never appears in between of preceding responses.
func (r *Request) WriteContinue() error {
	return r.emit(continueResponse)
}

// Write writes a piece of the response body. The status line and headers are written
// before the first piece. Chunked transfer coding is used unless the Content-Length
// header was set or the protocol doesn't support it. Empty writes result in nothing, so
// they can't end the chunked body prematurely.
func (r *Request) Write(p []byte) (n int, err error) {
	r.mustBeWritable()

	if r.state == unstarted {
		if err = r.writeHead(); err != nil {
			return 0, err
		}
	}

	if r.noBody || len(p) == 0 {
		return len(p), nil
	}

	if r.chunked {
		r.buff = r.buff[:0]
		for _, piece := range transfer.ToChunk(p) {
			r.buff = append(r.buff, piece...)
		}

		err = r.emit(r.buff)
	} else {
		err = r.emit(p)
	}

	if err != nil {
		return 0, err
	}

	r.sent += int64(len(p))
	return len(p), nil
}

func (r *Request) WriteString(s string) (int, error) {
	return r.Write([]byte(s))
}

// Finish completes the response. If nothing was written, the status line and headers
// are written first. The observers are notified as soon as the response is passed to
// the transport.
func (r *Request) Finish() (err error) {
	r.mustBeWritable()

	if r.state == unstarted {
		err = r.writeHead()
	}

	if err == nil && r.chunked {
		err = r.emit(chunkZeroTrailer)
	}

	r.state = finished
	if !r.queued {
		r.cleanup()
	}

	return err
}

// Reject finishes the request with the raw response, written as is instead of anything
// the handler could produce. Like any other response, it's sent only after all the
// preceding ones.
func (r *Request) Reject(raw []byte) error {
	r.mustBeWritable()

	r.state = finished
	err := r.emit(raw)
	if !r.queued {
		r.cleanup()
	}

	return err
}

// NoLongerQueued is called by the channel once all the preceding responses were sent.
// The buffered response is written, and the producer registered on the transport.
func (r *Request) NoLongerQueued() (err error) {
	r.queued = false

	if r.out.Len() > 0 {
		_, err = r.transport.Write(r.out.Bytes())
		r.out = bytes.Buffer{}
	}

	if r.producer != nil && r.state != finished {
		r.transport.RegisterProducer(r.producer)
		if transport.IsStreaming(r.producer) {
			r.producer.ResumeProducing()
		}
	}

	if r.state == finished {
		r.cleanup()
	}

	return err
}

// RegisterProducer registers the source of the response body. A streaming producer of
// a queued request is paused until the request is no longer queued. Only one producer
// at a time is allowed.
func (r *Request) RegisterProducer(p transport.Producer) {
	if r.producer != nil {
		panic(ErrProducerRegistered)
	}

	r.producer = p
	if !r.queued {
		r.transport.RegisterProducer(p)
		return
	}

	if push, ok := p.(transport.PushProducer); ok {
		push.PauseProducing()
	}
}

func (r *Request) UnregisterProducer() {
	if !r.queued {
		r.transport.UnregisterProducer()
	}

	r.producer = nil
}

// NotifyFinish registers the callback, called once the response is done or the
// connection is lost, whatever comes first. The error is nil in the former case and
// wraps ErrConnectionLost in the latter. If it already happened, the callback is
// called immediately.
func (r *Request) NotifyFinish(cb func(err error)) {
	if r.done {
		cb(r.result)
		return
	}

	r.observers = append(r.observers, cb)
}

// ConnectionLost is called by the channel. Every subsequent write panics.
func (r *Request) ConnectionLost(reason error) {
	if r.lost {
		return
	}

	r.lost = true
	r.channel = nil
	if r.Content != nil {
		_ = r.Content.Close()
	}

	err := ErrConnectionLost
	if reason != nil {
		err = fmt.Errorf("%w: %w", ErrConnectionLost, reason)
	}

	r.notify(err)
}

// Schedule runs the function on the connection's event loop. It's the way for handlers
// finishing asynchronously to get back.
func (r *Request) Schedule(fn func()) {
	r.transport.Schedule(fn)
}

// Lost reports whether the connection was lost.
func (r *Request) Lost() bool {
	return r.lost
}

// Finished reports whether Finish was called.
func (r *Request) Finished() bool {
	return r.state == finished
}

// StartedWriting reports whether the status line and headers were already written.
func (r *Request) StartedWriting() bool {
	return r.state != unstarted
}

func (r *Request) Queued() bool {
	return r.queued
}

// BytesSent returns the number of body bytes written, excluding any framing.
func (r *Request) BytesSent() int64 {
	return r.sent
}

func (r *Request) String() string {
	m, uri, protocol := r.Method, r.URI, r.Protocol.String()
	if len(m) == 0 {
		m = "(no method yet)"
	}

	if len(uri) == 0 {
		uri = "(no uri yet)"
	}

	if len(protocol) == 0 {
		protocol = "(no clientproto yet)"
	}

	return fmt.Sprintf("<Request at %p method=%s uri=%s clientproto=%s>", r, m, uri, protocol)
}

func (r *Request) mustBeWritable() {
	if r.lost {
		panic(ErrConnectionLost)
	}

	if r.state == finished {
		panic(ErrAlreadyFinished)
	}
}

func (r *Request) writeHead() error {
	r.state = headersSent
	if r.Protocol == proto.HTTP09 {
		return nil
	}

	if !r.LastModified.IsZero() && !r.ResponseHeaders.Has("Last-Modified") {
		r.ResponseHeaders.Set("Last-Modified", FormatTime(r.LastModified))
	}

	r.noBody = method.Parse(r.Method) == method.HEAD || !bodyAllowed(r.code)
	if r.Protocol == proto.HTTP11 && !r.noBody && !r.ResponseHeaders.Has("Content-Length") {
		r.ResponseHeaders.Set("Transfer-Encoding", "chunked")
		r.chunked = true
	}

	buff := appendStatusLine(r.buff[:0], r.Protocol, r.code, r.message)
	for _, key := range slices.Sorted(maps.Keys(r.cfg.Headers.Default)) {
		if !r.ResponseHeaders.Has(key) {
			buff = appendHeader(buff, key, r.cfg.Headers.Default[key])
		}
	}

	for key, value := range r.ResponseHeaders.Pairs() {
		buff = appendHeader(buff, key, value)
	}

	for _, c := range r.cookies {
		if c.Valid() == nil {
			buff = appendCookie(buff, c)
		}
	}

	r.buff = append(buff, crlf...)
	return r.emit(r.buff)
}

func (r *Request) emit(b []byte) error {
	if r.queued {
		r.out.Write(b)
		return nil
	}

	_, err := r.transport.Write(b)
	return err
}

func (r *Request) cleanup() {
	if r.lost {
		return
	}

	if r.producer != nil {
		r.transport.UnregisterProducer()
		r.producer = nil
	}

	if ch := r.channel; ch != nil {
		r.channel = nil
		ch.RequestDone(r)
	}

	if r.Content != nil {
		_ = r.Content.Close()
	}

	r.notify(nil)
}

func (r *Request) notify(err error) {
	if r.done {
		return
	}

	r.done, r.result = true, err
	observers := r.observers
	r.observers = nil

	for _, cb := range observers {
		cb(err)
	}
}

// bodyAllowed tells whether a response with the code may have a body at all.
func bodyAllowed(code status.Code) bool {
	return code >= 200 && code != status.NoContent && code != status.NotModified
}
