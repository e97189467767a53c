package channel

import (
	"bufio"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/indigo-web/channel/config"
	"github.com/indigo-web/channel/http"
	"github.com/stretchr/testify/require"
)

const addr = "localhost:16100"

func getApp(t *testing.T, logs io.Writer) (app *App, wait func()) {
	cfg := config.Default()
	cfg.NET.AcceptLoopInterruptPeriod = 50 * time.Millisecond
	cfg.NET.ReadTimeout = 2 * time.Second

	started := make(chan struct{})
	app = New(addr).
		Tune(cfg).
		LogTo(logs).
		NotifyOnStart(func() {
			close(started)
		})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := app.Serve(http.Static(http.HandlerFunc(func(r *http.Request) {
			// finish on the next loop iteration, as the asynchronous handlers do
			r.Schedule(func() {
				r.SetHeader("Content-Length", "13")
				_, _ = r.WriteString("Hello, world!")
				_ = r.Finish()
			})
		})))
		require.NoError(t, err)
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		require.Fail(t, "application didn't start")
	}

	return app, wg.Wait
}

func TestApp(t *testing.T) {
	var logs syncBuffer
	app, wait := getApp(t, &logs)

	t.Run("pipelined requests", func(t *testing.T) {
		conn, err := net.Dial("tcp", addr)
		require.NoError(t, err)
		defer conn.Close()

		_, err = conn.Write([]byte(
			"GET /first HTTP/1.1\r\nHost: localhost\r\n\r\n" +
				"GET /second HTTP/1.1\r\nHost: localhost\r\nConnection: close\r\n\r\n",
		))
		require.NoError(t, err)

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		response, err := io.ReadAll(bufio.NewReader(conn))
		require.NoError(t, err)

		wantFirst := "HTTP/1.1 200 OK\r\nContent-Length: 13\r\n\r\nHello, world!"
		wantSecond := "HTTP/1.1 200 OK\r\nConnection: close\r\nContent-Length: 13\r\n\r\nHello, world!"
		require.Equal(t, wantFirst+wantSecond, string(response))
	})

	t.Run("bad request", func(t *testing.T) {
		conn, err := net.Dial("tcp", addr)
		require.NoError(t, err)
		defer conn.Close()

		_, err = conn.Write([]byte("GET /\r\n\r\n"))
		require.NoError(t, err)

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		response, err := io.ReadAll(conn)
		require.NoError(t, err)
		require.Equal(t, "HTTP/1.1 400 Bad Request\r\n\r\n", string(response))
	})

	app.Stop()
	wait()

	require.Contains(t, logs.String(), `"GET /first HTTP/1.1" 200 13`)
	require.Contains(t, logs.String(), `"GET /second HTTP/1.1" 200 13`)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}
