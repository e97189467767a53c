package http

import (
	"errors"
	"io"
	"regexp"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/dchest/uniuri"
	"github.com/indigo-web/channel/config"
	"github.com/indigo-web/channel/http/cookie"
	"github.com/indigo-web/channel/http/proto"
	"github.com/indigo-web/channel/http/status"
	"github.com/indigo-web/channel/transport/dummy"
	"github.com/indigo-web/chunkedbody"
	"github.com/stretchr/testify/require"
)

type channelMock struct {
	done []*Request
}

func (c *channelMock) RequestDone(r *Request) {
	c.done = append(c.done, r)
}

func getRequest(protocol proto.Protocol, queued bool) (*Request, *dummy.Transport, *channelMock) {
	t := dummy.NewTransport()
	ch := new(channelMock)
	r := NewRequest(config.Default(), t, ch, queued)
	r.Method = "GET"
	r.SetTarget("/")
	r.Protocol = protocol
	r.Content = NewContentFromBytes(nil)

	return r, t, ch
}

func parseChunked(t *testing.T, data string) (body, rest string) {
	parser := chunkedbody.NewParser(chunkedbody.DefaultSettings())
	raw := []byte(data)

	for len(raw) > 0 {
		chunk, extra, err := parser.Parse(raw, false)
		if err != nil {
			require.EqualError(t, err, io.EOF.Error())
			return body, string(extra)
		}

		body += string(chunk)
		raw = extra
	}

	require.Fail(t, "chunked body isn't terminated")
	return "", ""
}

func TestWriter(t *testing.T) {
	t.Run("finish without writes", func(t *testing.T) {
		r, tr, ch := getRequest(proto.HTTP11, false)
		require.NoError(t, r.Finish())
		require.Equal(t, "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n0\r\n\r\n", tr.Value())
		require.Equal(t, []*Request{r}, ch.done)
		require.True(t, r.Finished())
	})

	t.Run("HTTP/1.0 close-delimited", func(t *testing.T) {
		r, tr, _ := getRequest(proto.HTTP10, false)
		_, err := r.Write([]byte("done"))
		require.NoError(t, err)
		require.NoError(t, r.Finish())
		require.Equal(t, "HTTP/1.0 200 OK\r\n\r\ndone", tr.Value())
		require.Equal(t, int64(4), r.BytesSent())
	})

	t.Run("HTTP/0.9 has no head", func(t *testing.T) {
		r, tr, _ := getRequest(proto.HTTP09, false)
		_, err := r.WriteString("<html></html>")
		require.NoError(t, err)
		require.NoError(t, r.Finish())
		require.Equal(t, "<html></html>", tr.Value())
	})

	t.Run("chunked", func(t *testing.T) {
		r, tr, _ := getRequest(proto.HTTP11, false)
		pieces := []string{"Hello", "", ", ", uniuri.NewLen(500), "!"}
		for _, piece := range pieces {
			_, err := r.WriteString(piece)
			require.NoError(t, err)
		}

		require.NoError(t, r.Finish())
		head, body, found := strings.Cut(tr.Value(), "\r\n\r\n")
		require.True(t, found)
		require.Equal(t, "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked", head)

		decoded, rest := parseChunked(t, body)
		require.Equal(t, strings.Join(pieces, ""), decoded)
		require.Empty(t, rest)
	})

	t.Run("content length", func(t *testing.T) {
		r, tr, _ := getRequest(proto.HTTP11, false)
		r.SetHeader("content-length", "13")
		_, err := r.WriteString("Hello, world!")
		require.NoError(t, err)
		require.NoError(t, r.Finish())
		require.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 13\r\n\r\nHello, world!", tr.Value())
	})

	t.Run("headers are written once", func(t *testing.T) {
		r, tr, _ := getRequest(proto.HTTP10, false)
		r.SetHeader("x-first", "1")
		_, err := r.WriteString("a")
		require.NoError(t, err)
		r.SetHeader("x-second", "2")
		r.SetResponseCode(status.NotFound)
		_, err = r.WriteString("b")
		require.NoError(t, err)
		require.NoError(t, r.Finish())
		require.Equal(t, "HTTP/1.0 200 OK\r\nX-First: 1\r\n\r\nab", tr.Value())
	})

	t.Run("HEAD", func(t *testing.T) {
		r, tr, _ := getRequest(proto.HTTP11, false)
		r.Method = "HEAD"
		r.SetHeader("Content-Length", "4")
		_, err := r.WriteString("body")
		require.NoError(t, err)
		require.NoError(t, r.Finish())
		require.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 4\r\n\r\n", tr.Value())
	})

	t.Run("no content", func(t *testing.T) {
		r, tr, _ := getRequest(proto.HTTP11, false)
		r.SetResponseCode(status.NoContent)
		_, err := r.WriteString("dropped")
		require.NoError(t, err)
		require.NoError(t, r.Finish())
		require.Equal(t, "HTTP/1.1 204 No Content\r\n\r\n", tr.Value())
	})

	t.Run("custom message", func(t *testing.T) {
		r, tr, _ := getRequest(proto.HTTP10, false)
		r.SetResponseCodeMessage(status.Teapot, "Short and stout")
		require.NoError(t, r.Finish())
		require.Equal(t, "HTTP/1.0 418 Short and stout\r\n\r\n", tr.Value())
		require.Equal(t, status.Teapot, r.Code())
	})

	t.Run("canonical names and sanitized values", func(t *testing.T) {
		r, tr, _ := getRequest(proto.HTTP10, false)
		r.AddHeader("x-multi", "1").AddHeader("X-MULTI", "2")
		r.SetHeader("etag", `"abc"`)
		r.SetHeader("www-authenticate", "Basic")
		r.SetHeader("x-injected", "a\r\nSet-Cookie: evil=1")
		require.NoError(t, r.Finish())
		require.Equal(t, "HTTP/1.0 200 OK\r\n"+
			"X-Multi: 1\r\n"+
			"X-Multi: 2\r\n"+
			"ETag: \"abc\"\r\n"+
			"WWW-Authenticate: Basic\r\n"+
			"X-Injected: a  Set-Cookie: evil=1\r\n\r\n", tr.Value())
	})

	t.Run("default headers", func(t *testing.T) {
		tr := dummy.NewTransport()
		cfg := config.Default()
		cfg.Headers.Default = map[string]string{"Server": "channel", "Vary": "Accept"}
		r := NewRequest(cfg, tr, nil, false)
		r.Method, r.Protocol = "GET", proto.HTTP10
		r.SetHeader("Vary", "Cookie")
		require.NoError(t, r.Finish())
		require.Equal(t, "HTTP/1.0 200 OK\r\nServer: channel\r\nVary: Cookie\r\n\r\n", tr.Value())
	})

	t.Run("last modified", func(t *testing.T) {
		r, tr, _ := getRequest(proto.HTTP10, false)
		r.LastModified = time.Unix(0, 0)
		require.NoError(t, r.Finish())
		require.Equal(t, "HTTP/1.0 200 OK\r\nLast-Modified: Thu, 01 Jan 1970 00:00:00 GMT\r\n\r\n", tr.Value())
	})

	t.Run("set-cookie", func(t *testing.T) {
		r, tr, _ := getRequest(proto.HTTP10, false)
		r.AddCookie(cookie.New("a", "b"))
		r.AddCookie(cookie.New("bad name", "dropped"))
		r.AddCookie(cookie.Build("session", "xyz").
			Path("/").
			Expires(time.Unix(0, 0)).
			MaxAge(-1).
			SameSite(cookie.SameSiteLax).
			Secure(true).
			HttpOnly(true).
			Cookie())
		require.NoError(t, r.Finish())
		require.Equal(t, "HTTP/1.0 200 OK\r\n"+
			"Set-Cookie: a=b\r\n"+
			"Set-Cookie: session=xyz; Path=/; Expires=Thu, 01 Jan 1970 00:00:00 GMT; "+
			"Max-Age=0; SameSite=Lax; Secure; HttpOnly\r\n\r\n", tr.Value())
	})

	t.Run("write errors are returned", func(t *testing.T) {
		r, tr, _ := getRequest(proto.HTTP11, false)
		tr.Err = errors.New("broken pipe")
		_, err := r.WriteString("data")
		require.ErrorIs(t, err, tr.Err)
	})

	t.Run("json", func(t *testing.T) {
		type model struct {
			Name  string `json:"name"`
			Count int    `json:"count"`
		}

		r, tr, _ := getRequest(proto.HTTP11, false)
		r.Content = NewContentFromBytes([]byte(`{"name":"pavlo","count":5}`))

		var m model
		require.NoError(t, r.JSON(&m))
		require.Equal(t, model{Name: "pavlo", Count: 5}, m)

		require.NoError(t, r.WriteJSON(m))
		require.NoError(t, r.Finish())
		require.Equal(t, "HTTP/1.1 200 OK\r\n"+
			"Content-Type: application/json\r\n"+
			"Content-Length: 26\r\n\r\n"+
			`{"name":"pavlo","count":5}`, tr.Value())
	})

	t.Run("redirect", func(t *testing.T) {
		r, tr, _ := getRequest(proto.HTTP10, false)
		r.Redirect("/elsewhere")
		require.NoError(t, r.Finish())
		require.Equal(t, "HTTP/1.0 302 Found\r\nLocation: /elsewhere\r\n\r\n", tr.Value())
	})
}

func TestUsageErrors(t *testing.T) {
	t.Run("write after finish", func(t *testing.T) {
		r, _, _ := getRequest(proto.HTTP11, false)
		require.NoError(t, r.Finish())
		require.PanicsWithValue(t, ErrAlreadyFinished, func() {
			_, _ = r.WriteString("too late")
		})
		require.PanicsWithValue(t, ErrAlreadyFinished, func() {
			_ = r.Finish()
		})
	})

	t.Run("write after loss", func(t *testing.T) {
		r, _, _ := getRequest(proto.HTTP11, false)
		r.ConnectionLost(errors.New("reset by peer"))
		require.True(t, r.Lost())
		require.PanicsWithValue(t, ErrConnectionLost, func() {
			_, _ = r.WriteString("too late")
		})
		require.PanicsWithValue(t, ErrConnectionLost, func() {
			_ = r.Finish()
		})
	})
}

func TestNotifications(t *testing.T) {
	collect := func(r *Request) *[]error {
		var errs []error
		r.NotifyFinish(func(err error) {
			errs = append(errs, err)
		})

		return &errs
	}

	t.Run("finish", func(t *testing.T) {
		r, _, _ := getRequest(proto.HTTP11, false)
		errs := collect(r)
		require.NoError(t, r.Finish())
		require.Equal(t, []error{nil}, *errs)
		require.True(t, r.Content.Closed())

		r.ConnectionLost(nil)
		require.Equal(t, []error{nil}, *errs)
	})

	t.Run("loss", func(t *testing.T) {
		r, _, _ := getRequest(proto.HTTP11, false)
		errs := collect(r)
		reason := errors.New("reset by peer")
		r.ConnectionLost(reason)
		r.ConnectionLost(reason)
		require.Len(t, *errs, 1)
		require.ErrorIs(t, (*errs)[0], ErrConnectionLost)
		require.ErrorIs(t, (*errs)[0], reason)
		require.True(t, r.Content.Closed())
	})

	t.Run("after the fact", func(t *testing.T) {
		r, _, _ := getRequest(proto.HTTP11, false)
		require.NoError(t, r.Finish())
		errs := collect(r)
		require.Equal(t, []error{nil}, *errs)
	})

	t.Run("queued finish is delayed", func(t *testing.T) {
		r, tr, ch := getRequest(proto.HTTP11, true)
		errs := collect(r)
		_, err := r.WriteString("abc")
		require.NoError(t, err)
		require.NoError(t, r.Finish())
		require.Empty(t, *errs)
		require.Empty(t, ch.done)
		require.Empty(t, tr.Value())

		require.NoError(t, r.NoLongerQueued())
		require.Equal(t, []error{nil}, *errs)
		require.Equal(t, []*Request{r}, ch.done)

		body, rest := parseChunked(t, strings.TrimPrefix(tr.Value(),
			"HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n"))
		require.Equal(t, "abc", body)
		require.Empty(t, rest)
	})
}

func TestQueued(t *testing.T) {
	t.Run("buffered until no longer queued", func(t *testing.T) {
		r, tr, _ := getRequest(proto.HTTP10, true)
		require.True(t, r.Queued())
		require.NoError(t, r.WriteContinue())
		_, err := r.WriteString("body")
		require.NoError(t, err)
		require.Empty(t, tr.Value())

		require.NoError(t, r.NoLongerQueued())
		require.Equal(t, "HTTP/1.1 100 Continue\r\n\r\nHTTP/1.0 200 OK\r\n\r\nbody", tr.Value())

		_, err = r.WriteString(" and more")
		require.NoError(t, err)
		require.True(t, strings.HasSuffix(tr.Value(), "body and more"))
	})

	t.Run("reject", func(t *testing.T) {
		const raw = "HTTP/1.1 400 Bad Request\r\n\r\n"

		r, tr, ch := getRequest(proto.HTTP11, true)
		require.NoError(t, r.Reject([]byte(raw)))
		require.True(t, r.Finished())
		require.Empty(t, tr.Value())
		require.Empty(t, ch.done)

		require.NoError(t, r.NoLongerQueued())
		require.Equal(t, raw, tr.Value())
		require.Equal(t, []*Request{r}, ch.done)
		require.PanicsWithValue(t, ErrAlreadyFinished, func() {
			_ = r.Reject([]byte(raw))
		})
	})
}

func TestProducers(t *testing.T) {
	t.Run("register twice", func(t *testing.T) {
		r, _, _ := getRequest(proto.HTTP11, false)
		r.RegisterProducer(dummy.NewPushProducer())
		require.PanicsWithValue(t, ErrProducerRegistered, func() {
			r.RegisterProducer(dummy.NewPushProducer())
		})
	})

	t.Run("queued push producer is paused", func(t *testing.T) {
		r, tr, _ := getRequest(proto.HTTP11, true)
		p := dummy.NewPushProducer()
		r.RegisterProducer(p)
		require.Equal(t, 1, p.Paused)
		require.Nil(t, tr.Producer)
	})

	t.Run("queued pull producer is untouched", func(t *testing.T) {
		r, tr, _ := getRequest(proto.HTTP11, true)
		p := dummy.NewProducer()
		r.RegisterProducer(p)
		require.Equal(t, dummy.Producer{}, *p)
		require.Nil(t, tr.Producer)
	})

	t.Run("not queued producers are registered", func(t *testing.T) {
		r, tr, _ := getRequest(proto.HTTP11, false)
		push := dummy.NewPushProducer()
		r.RegisterProducer(push)
		require.Equal(t, push, tr.Producer)
		require.True(t, tr.Streaming)
		r.UnregisterProducer()
		require.Nil(t, tr.Producer)

		pull := dummy.NewProducer()
		r.RegisterProducer(pull)
		require.Equal(t, pull, tr.Producer)
		require.False(t, tr.Streaming)
	})

	t.Run("unregister queued keeps transport's producer", func(t *testing.T) {
		r, tr, _ := getRequest(proto.HTTP11, true)
		existing := dummy.NewPushProducer()
		tr.RegisterProducer(existing)
		r.RegisterProducer(dummy.NewProducer())
		r.UnregisterProducer()
		require.Equal(t, existing, tr.Producer)
	})

	t.Run("registered when no longer queued", func(t *testing.T) {
		r, tr, _ := getRequest(proto.HTTP11, true)
		p := dummy.NewPushProducer()
		r.RegisterProducer(p)
		require.NoError(t, r.NoLongerQueued())
		require.Equal(t, p, tr.Producer)
		require.Equal(t, 1, p.Resumed)
	})

	t.Run("unregistered on finish", func(t *testing.T) {
		r, tr, _ := getRequest(proto.HTTP11, false)
		r.RegisterProducer(dummy.NewPushProducer())
		require.NoError(t, r.Finish())
		require.Nil(t, tr.Producer)
	})
}

func TestRequest(t *testing.T) {
	t.Run("target", func(t *testing.T) {
		r, _, _ := getRequest(proto.HTTP11, false)
		r.SetTarget("/search?q=hello+world&lang=en&&empty=&bad=%zz&q=again")
		require.Equal(t, "/search", r.Path)
		require.Equal(t, "/search?q=hello+world&lang=en&&empty=&bad=%zz&q=again", r.URI)
		require.Equal(t, []string{"hello world", "again"}, slices.Collect(r.Params.Values("q")))
		require.Equal(t, "en", r.Params.Value("lang"))
		require.True(t, r.Params.Has("empty"))
		require.Equal(t, "%zz", r.Params.Value("bad"))
	})

	t.Run("header returns the last value", func(t *testing.T) {
		r, _, _ := getRequest(proto.HTTP11, false)
		r.Headers.Add("X-Forwarded-For", "a").Add("x-forwarded-for", "b")
		value, found := r.Header("X-FORWARDED-FOR")
		require.True(t, found)
		require.Equal(t, "b", value)
	})

	t.Run("cookies", func(t *testing.T) {
		r, _, _ := getRequest(proto.HTTP11, false)
		r.Headers.
			Add("Cookie", `rabbit="eat carrot"; ninja=secret`).
			Add("Cookie", `spam="hey 1=1!"`)

		jar := r.ParseCookies()
		require.Equal(t, 3, jar.Len())
		require.Equal(t, `"eat carrot"`, jar.Value("rabbit"))
		require.Equal(t, "secret", jar.Value("ninja"))
		value, found := r.Cookie("spam")
		require.True(t, found)
		require.Equal(t, `"hey 1=1!"`, value)
	})

	t.Run("string", func(t *testing.T) {
		r := NewRequest(config.Default(), dummy.NewTransport(), nil, false)
		require.Regexp(t, regexp.MustCompile(
			`^<Request at 0x[0-9a-f]+ method=\(no method yet\) uri=\(no uri yet\) clientproto=\(no clientproto yet\)>$`,
		), r.String())

		r.Method, r.Protocol = "GET", proto.HTTP10
		r.SetTarget("/foo/bar")
		require.Regexp(t, regexp.MustCompile(
			`^<Request at 0x[0-9a-f]+ method=GET uri=/foo/bar clientproto=HTTP/1.0>$`,
		), r.String())
	})

	t.Run("schedule", func(t *testing.T) {
		r, _, _ := getRequest(proto.HTTP11, false)
		var called bool
		r.Schedule(func() {
			called = true
		})
		require.True(t, called)
	})
}
