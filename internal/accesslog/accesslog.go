// Package accesslog writes the lines of finished requests in the combined log format:
//
//	127.0.0.1 - - [14/Oct/2026:10:00:00 +0000] "GET /path HTTP/1.1" 200 13 "-" "curl/8.0"
package accesslog

import (
	"io"
	"log"
	"net"
	"strconv"
	"time"

	"github.com/indigo-web/channel/http"
)

const timeLayout = "02/Jan/2006:15:04:05 -0700"

type Logger struct {
	out  *log.Logger
	buff []byte
	// Now returns the time of the logged event. It's substituted in tests.
	Now func() time.Time
}

func New(out *log.Logger) *Logger {
	return &Logger{
		out: out,
		Now: time.Now,
	}
}

// NewWriter returns a logger writing into w. The prefix precedes every line.
func NewWriter(w io.Writer, prefix string) *Logger {
	return New(log.New(w, prefix, 0))
}

// Log writes the line of the request. The response must be already done, as the code
// and the number of sent bytes are logged, too.
func (l *Logger) Log(r *http.Request) {
	l.buff = Line(l.buff[:0], r, l.Now())
	_ = l.out.Output(2, string(l.buff))
}

// Printf reports things not related to any particular request.
func (l *Logger) Printf(format string, v ...any) {
	l.out.Printf(format, v...)
}

// Line appends the access log line of the request to the buffer.
func Line(buff []byte, r *http.Request, at time.Time) []byte {
	buff = append(buff, host(r.Remote)...)
	buff = append(buff, " - - ["...)
	buff = at.AppendFormat(buff, timeLayout)
	buff = append(buff, `] "`...)
	buff = append(buff, r.Method...)
	buff = append(buff, ' ')
	buff = append(buff, r.URI...)
	buff = append(buff, ' ')
	buff = append(buff, r.Protocol.String()...)
	buff = append(buff, `" `...)
	buff = strconv.AppendInt(buff, int64(r.Code()), 10)
	buff = append(buff, ' ')

	if sent := r.BytesSent(); sent > 0 {
		buff = strconv.AppendInt(buff, sent, 10)
	} else {
		buff = append(buff, '-')
	}

	buff = append(buff, ' ')
	buff = appendQuoted(buff, r.Headers.Value("referer"))
	buff = append(buff, ' ')
	return appendQuoted(buff, r.Headers.Value("user-agent"))
}

func host(addr net.Addr) string {
	if addr == nil {
		return "-"
	}

	h, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}

	return h
}

func appendQuoted(buff []byte, value string) []byte {
	if len(value) == 0 {
		return append(buff, `"-"`...)
	}

	buff = append(buff, '"')
	for i := 0; i < len(value); i++ {
		switch c := value[i]; c {
		case '"', '\\':
			buff = append(buff, '\\', c)
		default:
			buff = append(buff, c)
		}
	}

	return append(buff, '"')
}
