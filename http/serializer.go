package http

import (
	"strconv"
	"time"

	"github.com/indigo-web/channel/http/cookie"
	"github.com/indigo-web/channel/http/proto"
	"github.com/indigo-web/channel/http/status"
	"github.com/indigo-web/utils/strcomp"
)

const crlf = "\r\n"

var (
	zoneGMT          = time.FixedZone("GMT", 0)
	chunkZeroTrailer = []byte("0\r\n\r\n")
)

const timeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// FormatTime formats the time in the way Last-Modified, Expires and others want it.
func FormatTime(t time.Time) string {
	return t.In(zoneGMT).Format(timeFormat)
}

func appendStatusLine(buff []byte, protocol proto.Protocol, code status.Code, message status.Status) []byte {
	if protocol == proto.Unknown || protocol == proto.HTTP09 {
		protocol = proto.HTTP11
	}

	buff = append(buff, protocol.String()...)
	buff = append(buff, ' ')
	buff = append(buff, status.StringCode(code)...)
	buff = append(buff, ' ')
	if len(message) == 0 {
		message = status.Text(code)
	}

	buff = append(buff, message...)
	return append(buff, crlf...)
}

// appendHeader writes a complete header field line including the trailing CRLF.
func appendHeader(buff []byte, key, value string) []byte {
	buff = appendCanonical(buff, key)
	buff = append(buff, ':', ' ')
	buff = appendSanitized(buff, value)
	return append(buff, crlf...)
}

// caseMappings lists the names that don't follow the usual capitalization rules.
var caseMappings = []string{
	"Content-MD5", "DNT", "ETag", "P3P", "TE", "WWW-Authenticate", "X-XSS-Protection",
}

// appendCanonical writes the header name capitalized: the first letter and every letter
// following a dash are in upper case, all the others are in lower case.
func appendCanonical(buff []byte, key string) []byte {
	for _, mapping := range caseMappings {
		if strcomp.EqualFold(mapping, key) {
			return append(buff, mapping...)
		}
	}

	upper := true
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c == '\r' || c == '\n':
			c = ' '
		case upper && 'a' <= c && c <= 'z':
			c -= 'a' - 'A'
		case !upper && 'A' <= c && c <= 'Z':
			c += 'a' - 'A'
		}

		buff = append(buff, c)
		upper = c == '-'
	}

	return buff
}

// appendSanitized replaces line breaks with spaces, so no header value can inject
// another header or terminate the headers block prematurely.
func appendSanitized(buff []byte, value string) []byte {
	for i := 0; i < len(value); i++ {
		if c := value[i]; c == '\r' || c == '\n' {
			buff = append(buff, ' ')
		} else {
			buff = append(buff, c)
		}
	}

	return buff
}

func appendCookie(buff []byte, c cookie.Cookie) []byte {
	buff = append(buff, "Set-Cookie: "...)
	buff = appendSanitized(buff, c.Name)
	buff = append(buff, '=')
	buff = appendSanitized(buff, c.Value)

	if len(c.Path) > 0 {
		buff = append(buff, "; Path="...)
		buff = appendSanitized(buff, c.Path)
	}

	if len(c.Domain) > 0 {
		buff = append(buff, "; Domain="...)
		buff = appendSanitized(buff, c.Domain)
	}

	if !c.Expires.IsZero() {
		buff = append(buff, "; Expires="...)
		buff = c.Expires.In(zoneGMT).AppendFormat(buff, timeFormat)
	}

	if c.MaxAge != 0 {
		buff = append(buff, "; Max-Age="...)
		if c.MaxAge > 0 {
			buff = strconv.AppendInt(buff, int64(c.MaxAge), 10)
		} else {
			buff = append(buff, '0')
		}
	}

	if len(c.SameSite) > 0 {
		buff = append(buff, "; SameSite="...)
		buff = append(buff, c.SameSite...)
	}

	if c.Secure {
		buff = append(buff, "; Secure"...)
	}

	if c.HttpOnly {
		buff = append(buff, "; HttpOnly"...)
	}

	return append(buff, crlf...)
}
