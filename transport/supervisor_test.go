package transport

import (
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/indigo-web/channel/config"
	"github.com/stretchr/testify/require"
)

// fakeListener blocks in Listen until stopped, unless it's told to return on its own.
type fakeListener struct {
	bindErr   error
	listenErr error
	// returns makes Listen return right away with listenErr
	returns bool
	stop    chan struct{}
	stopped atomic.Bool
	closed  atomic.Bool
}

func newFake() *fakeListener {
	return &fakeListener{stop: make(chan struct{})}
}

func (f *fakeListener) Bind(string) error {
	return f.bindErr
}

func (f *fakeListener) Listen(config.NET, func(conn net.Conn)) error {
	if !f.returns {
		<-f.stop
	}

	return f.listenErr
}

func (f *fakeListener) Stop() {
	if f.stopped.CompareAndSwap(false, true) {
		close(f.stop)
	}
}

func (f *fakeListener) Close() {
	f.closed.Store(true)
}

func (f *fakeListener) Wait() {}

func run(sup *Supervisor) <-chan error {
	result := make(chan error, 1)
	go func() {
		result <- sup.Run(config.Default().NET)
	}()

	return result
}

func await(t *testing.T, result <-chan error) error {
	select {
	case err := <-result:
		return err
	case <-time.After(time.Second):
		require.Fail(t, "supervisor is still running")
		return nil
	}
}

func supervise(t *testing.T, ls ...*fakeListener) *Supervisor {
	sup := NewSupervisor()
	for _, l := range ls {
		require.NoError(t, sup.Add("localhost:0", l, nil))
	}

	return sup
}

func TestSupervisor(t *testing.T) {
	t.Run("no listeners", func(t *testing.T) {
		require.NoError(t, await(t, run(NewSupervisor())))
	})

	t.Run("listener returns", func(t *testing.T) {
		idle, quitting := newFake(), newFake()
		quitting.returns = true

		require.NoError(t, await(t, run(supervise(t, idle, quitting))))
		require.True(t, idle.stopped.Load())
		require.True(t, idle.closed.Load())
		require.True(t, quitting.closed.Load())
	})

	t.Run("listener fails", func(t *testing.T) {
		errListen := errors.New("listener died")
		idle, failing := newFake(), newFake()
		failing.returns, failing.listenErr = true, errListen

		err := await(t, run(supervise(t, idle, failing)))
		require.ErrorIs(t, err, errListen)
		require.Contains(t, err.Error(), "localhost:0")
		require.True(t, idle.closed.Load())
	})

	t.Run("stop", func(t *testing.T) {
		first, second := newFake(), newFake()
		sup := supervise(t, first, second)
		result := run(sup)

		require.Eventually(t, sup.running.Load, time.Second, time.Millisecond)
		sup.Stop()
		require.NoError(t, await(t, result))
		require.True(t, first.closed.Load())
		require.True(t, second.closed.Load())
	})

	t.Run("stop before run", func(t *testing.T) {
		sup := supervise(t, newFake())
		sup.Stop()
		require.NoError(t, await(t, run(sup)))
	})

	t.Run("bind failure", func(t *testing.T) {
		errBind := errors.New("address in use")
		bound, broken := newFake(), newFake()
		broken.bindErr = errBind

		sup := NewSupervisor()
		require.NoError(t, sup.Add("localhost:0", bound, nil))
		err := sup.Add("localhost:1", broken, nil)
		require.ErrorIs(t, err, errBind)
		require.Contains(t, err.Error(), "localhost:1")
		require.True(t, bound.closed.Load())
	})
}
