package channel

import (
	"errors"
	"testing"

	"github.com/indigo-web/channel/config"
	"github.com/indigo-web/channel/http"
	"github.com/indigo-web/channel/transport/dummy"
	"github.com/stretchr/testify/require"
)

func nopFactory(bool) http.Handler {
	return http.HandlerFunc(func(r *http.Request) {
		_ = r.Finish()
	})
}

func recoverError(t *testing.T, fn func()) (err error) {
	defer func() {
		value := recover()
		require.NotNil(t, value, "didn't panic")
		err = value.(error)
	}()

	fn()
	return nil
}

func TestNegotiate(t *testing.T) {
	for _, negotiated := range []string{"", "http/1.1"} {
		tr := dummy.NewTransport()
		tr.Protocol = negotiated
		ch := Negotiate(config.Default(), tr, nopFactory)
		require.NotNil(t, ch)

		ch.DataReceived([]byte("GET / HTTP/1.1\r\n\r\n"))
		require.Equal(t, "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n0\r\n\r\n", tr.Value())
	}

	for _, negotiated := range []string{"h2", "http/1.0", "smtp"} {
		t.Run(negotiated, func(t *testing.T) {
			tr := dummy.NewTransport()
			tr.Protocol = negotiated
			err := recoverError(t, func() {
				Negotiate(config.Default(), tr, nopFactory)
			})

			require.True(t, errors.Is(err, ErrUnsupportedProtocol))
			require.Contains(t, err.Error(), negotiated)
		})
	}

	t.Run("factory is kept", func(t *testing.T) {
		ch := Negotiate(config.Default(), dummy.NewTransport(), nopFactory)
		require.NotNil(t, ch.Factory())

		var called bool
		ch.SetFactory(func(queued bool) http.Handler {
			called = true
			return nopFactory(queued)
		})
		ch.DataReceived([]byte("GET / HTTP/1.1\r\n\r\n"))
		require.True(t, called)
	})
}
