package http1

import (
	"bytes"
	"slices"
	"strings"

	"github.com/indigo-web/channel/config"
	"github.com/indigo-web/channel/http"
	"github.com/indigo-web/channel/http/proto"
	"github.com/indigo-web/channel/http/status"
	"github.com/indigo-web/channel/internal/strutil"
	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
	"golang.org/x/net/http/httpguts"
)

type parserState uint8

const (
	eRequestLine parserState = iota + 1
	eHeaders
)

const maxContentLength = 1<<63 - 1

// Parser parses the request line and headers. Data may come in any fragmentation, even
// byte by byte: incomplete lines are buffered until the line terminator arrives. The
// parser is reused for every request on the connection, so all the limits apply per
// request.
type Parser struct {
	state         parserState
	cfg           *config.Config
	request       *http.Request
	line          []byte
	headersSize   int
	headersNumber int
}

func NewParser(cfg *config.Config) *Parser {
	return &Parser{
		state: eRequestLine,
		cfg:   cfg,
		line:  make([]byte, 0, cfg.Headers.Space.Default),
	}
}

// Begin binds the parser to the next request. All the counters are reset.
func (p *Parser) Begin(request *http.Request) {
	p.state = eRequestLine
	p.request = request
	p.line = p.line[:0]
	p.headersSize = 0
	p.headersNumber = 0
}

// Parse consumes the data until the request head is complete. In this case done is true
// and extra holds the bytes following the head. Errors are status.HTTPError values.
func (p *Parser) Parse(data []byte) (done bool, extra []byte, err error) {
	spaceLimit := p.cfg.Headers.Space.Maximal

	for len(data) > 0 {
		lf := bytes.IndexByte(data, '\n')
		if lf == -1 {
			if p.headersSize+len(p.line)+len(data) > spaceLimit {
				return true, nil, status.ErrHeaderFieldsTooLarge
			}

			p.line = append(p.line, data...)
			return false, nil, nil
		}

		line := data[:lf]
		data = data[lf+1:]
		if len(p.line) > 0 {
			p.line = append(p.line, line...)
			line = p.line
		}

		line = stripCR(line)
		p.headersSize += len(line)
		if p.headersSize > spaceLimit {
			return true, nil, status.ErrHeaderFieldsTooLarge
		}

		switch p.state {
		case eRequestLine:
			if len(line) == 0 {
				// empty lines preceding the request line are tolerated
				break
			}

			if err = p.requestLine(line); err != nil {
				return true, nil, err
			}

			if p.request.Protocol == proto.HTTP09 {
				p.line = p.line[:0]
				return true, data, nil
			}

			p.state = eHeaders
		case eHeaders:
			if len(line) == 0 {
				p.line = p.line[:0]
				return true, data, p.complete()
			}

			if err = p.header(line); err != nil {
				return true, nil, err
			}
		}

		p.line = p.line[:0]
	}

	return false, nil, nil
}

func (p *Parser) requestLine(line []byte) error {
	if !strutil.IsASCII(line) {
		return status.ErrNonASCII
	}

	tokens := bytes.Fields(line)
	if len(tokens) != 3 {
		return status.ErrBadRequestLine
	}

	if !httpguts.ValidHeaderFieldName(uf.B2S(tokens[0])) {
		return status.ErrBadRequestLine
	}

	protocol := proto.FromBytes(tokens[2])
	if protocol == proto.Unknown || protocol&proto.HTTP1 != protocol {
		return status.ErrHTTPVersionNotSupported
	}

	request := p.request
	request.Method = string(tokens[0])
	request.SetTarget(string(tokens[1]))
	request.Protocol = protocol

	return nil
}

func (p *Parser) header(line []byte) error {
	headers := p.request.Headers

	if line[0] == ' ' || line[0] == '\t' {
		pairs := headers.Expose()
		if len(pairs) == 0 {
			return status.ErrBadHeader
		}

		continuation := strutil.StripWS(uf.B2S(line))
		last := &pairs[len(pairs)-1]
		switch {
		case len(continuation) == 0:
		case len(last.Value) == 0:
			last.Value = strings.Clone(continuation)
		default:
			last.Value += " " + continuation
		}

		return nil
	}

	key, value, found := strings.Cut(uf.B2S(line), ":")
	if !found {
		return status.ErrBadHeader
	}

	key = strutil.StripWS(key)
	if !httpguts.ValidHeaderFieldName(key) {
		return status.ErrBadHeader
	}

	p.headersNumber++
	if p.headersNumber > p.cfg.Headers.Number.Maximal {
		return status.ErrTooManyHeaders
	}

	headers.Add(strings.Clone(key), strings.Clone(strutil.StripWS(value)))
	return nil
}

// complete derives the values of headers meaningful to the protocol. It's done once all
// the headers were received, as any of them might be continued on the next line.
func (p *Parser) complete() error {
	request := p.request
	headers := request.Headers

	for value := range headers.Values("content-length") {
		length, ok := parseContentLength(value)
		if !ok || (request.ContentLength != -1 && request.ContentLength != length) {
			return status.ErrBadContentLength
		}

		request.ContentLength = length
	}

	if headers.Has("transfer-encoding") {
		var final string
		for value := range headers.Values("transfer-encoding") {
			for _, token := range strings.Split(value, ",") {
				if token = strutil.StripWS(token); len(token) > 0 {
					final = token
				}
			}
		}

		if !strcomp.EqualFold(final, "chunked") {
			return status.ErrBadEncoding
		}

		request.Chunked = true
	}

	expect := slices.Collect(headers.Values("expect"))
	request.ExpectContinue = httpguts.HeaderValuesContainsToken(expect, "100-continue")
	request.Connection, _ = headers.Last("connection")
	request.ContentType = headers.Value("content-type")

	return nil
}

func parseContentLength(value string) (length int64, ok bool) {
	if len(value) == 0 {
		return 0, false
	}

	for i := 0; i < len(value); i++ {
		char := value[i] - '0'
		if char > 9 {
			return 0, false
		}

		if length > (maxContentLength-int64(char))/10 {
			return 0, false
		}

		length = length*10 + int64(char)
	}

	return length, true
}

func stripCR(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] == '\r' {
		return b[:len(b)-1]
	}

	return b
}
