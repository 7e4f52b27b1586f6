//go:build linux

package server

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/momentics/hioload-reactor/api"
	"github.com/momentics/hioload-reactor/internal/concurrency"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.PollTimeout = 50 * time.Millisecond
	cfg.CoreWorkers = 2
	cfg.MaxWorkers = 4
	cfg.QueueCapacity = 16
	return cfg
}

// readExactly reads n bytes and then checks that nothing else arrives.
func readExactly(t *testing.T, c net.Conn, n int) string {
	t.Helper()
	buf := make([]byte, n)
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err := io.ReadFull(c, buf)
	require.NoError(t, err)

	require.NoError(t, c.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	extra := make([]byte, 16)
	m, err := c.Read(extra)
	assert.Zero(t, m, "unexpected trailing bytes %q", extra[:m])
	assert.True(t, errors.Is(err, os.ErrDeadlineExceeded), "want timeout, got %v", err)
	return string(buf)
}

func startServer(t *testing.T, cfg *Config, opts ...ServerOption) *Server {
	t.Helper()
	opts = append([]ServerOption{WithLogger(quietLogger()), WithClock(fixedClock)}, opts...)
	s, err := NewServer(cfg, opts...)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func TestServer_SplitLowercaseQuery(t *testing.T) {
	s := startServer(t, testConfig())

	c, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Write([]byte("query ti"))
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)
	_, err = c.Write([]byte("me order"))
	require.NoError(t, err)

	const stamp = "Tue Mar 04 09:15:42 UTC 2025"
	assert.Equal(t, stamp, readExactly(t, c, len(stamp)))
}

func TestServer_UnknownCommand(t *testing.T) {
	s := startServer(t, testConfig())

	c, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Write([]byte("PING"))
	require.NoError(t, err)
	assert.Equal(t, BadOrder, readExactly(t, c, len(BadOrder)))
}

func TestServer_QueryWithTrailingText(t *testing.T) {
	s := startServer(t, testConfig())

	for _, in := range []string{"QUERY TIME ORDERS", "query time order please"} {
		t.Run(in, func(t *testing.T) {
			c, err := net.Dial("tcp", s.Addr().String())
			require.NoError(t, err)
			defer c.Close()

			_, err = c.Write([]byte(in))
			require.NoError(t, err)
			assert.Equal(t, BadOrder, readExactly(t, c, len(BadOrder)))
		})
	}
}

func TestServer_PipelinedCommandsAnsweredInOrder(t *testing.T) {
	s := startServer(t, testConfig())

	c, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Write([]byte("PING\nQUERY TIME ORDER\nPING\n"))
	require.NoError(t, err)

	const stamp = "Tue Mar 04 09:15:42 UTC 2025"
	want := BadOrder + stamp + BadOrder
	assert.Equal(t, want, readExactly(t, c, len(want)))
}

func TestServer_ManyClients(t *testing.T) {
	s := startServer(t, testConfig())
	const stamp = "Tue Mar 04 09:15:42 UTC 2025"

	errc := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func() {
			c, err := net.Dial("tcp", s.Addr().String())
			if err != nil {
				errc <- err
				return
			}
			defer c.Close()
			if _, err := c.Write([]byte("QUERY TIME ORDER\n")); err != nil {
				errc <- err
				return
			}
			_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
			buf := make([]byte, len(stamp))
			if _, err := io.ReadFull(c, buf); err != nil {
				errc <- err
				return
			}
			if string(buf) != stamp {
				errc <- errors.New("unexpected response " + string(buf))
				return
			}
			errc <- nil
		}()
	}
	for i := 0; i < 20; i++ {
		assert.NoError(t, <-errc)
	}
	assert.EqualValues(t, 20, s.PoolStats().Submitted)
}

func TestServer_ReloadPoolLimits(t *testing.T) {
	s := startServer(t, testConfig())
	ctrl := s.GetControl()

	require.NoError(t, ctrl.SetConfig(map[string]any{
		KeyMaxWorkers: 8,
		KeyKeepAlive:  "30s",
	}))
	cfg := ctrl.GetConfig()
	assert.Equal(t, 8, cfg[KeyMaxWorkers])
	assert.Equal(t, "30s", cfg[KeyKeepAlive])

	err := ctrl.SetConfig(map[string]any{KeyMaxWorkers: 1})
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
	assert.Equal(t, 8, ctrl.GetConfig()[KeyMaxWorkers])

	err = ctrl.SetConfig(map[string]any{KeyKeepAlive: "soon"})
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestServer_DebugHooks(t *testing.T) {
	s := startServer(t, testConfig())
	state := s.GetControl().DumpState()

	assert.Equal(t, api.StateRunning.String(), state["reactor.state"])
	assert.Equal(t, 0, state["reactor.connections"])
	assert.IsType(t, concurrency.Stats{}, state["pool.stats"])
	assert.Contains(t, state, "platform.cpus")
	assert.Contains(t, state, "pool.buffers")
}

func TestServer_Metrics(t *testing.T) {
	s := startServer(t, testConfig())
	mfs, err := s.Metrics().Gatherer().Gather()
	require.NoError(t, err)

	var names []string
	for _, mf := range mfs {
		names = append(names, mf.GetName())
	}
	joined := strings.Join(names, " ")
	assert.Contains(t, joined, "timeserver_pool_workers")
	assert.Contains(t, joined, "timeserver_reactor_connections_active")
}

func TestServer_ShutdownClosesClients(t *testing.T) {
	s, err := NewServer(testConfig(), WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, s.Start())

	c, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = c.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
	select {
	case <-s.Done():
	default:
		t.Fatal("reactor still running")
	}
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	s, err := NewServer(testConfig(), WithLogger(quietLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.Addr() != nil }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("run did not return")
	}
}

func TestNewServer_InvalidPool(t *testing.T) {
	cfg := testConfig()
	cfg.CoreWorkers = 4
	cfg.MaxWorkers = 2
	_, err := NewServer(cfg, WithLogger(quietLogger()))
	assert.ErrorIs(t, err, api.ErrSetup)
	assert.ErrorIs(t, err, concurrency.ErrInvalidWorkerCount)
}

func TestServer_BindConflict(t *testing.T) {
	first := startServer(t, testConfig())

	cfg := testConfig()
	cfg.ListenAddr = first.Addr().String()
	second, err := NewServer(cfg, WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.ErrorIs(t, second.Start(), api.ErrSetup)
}
