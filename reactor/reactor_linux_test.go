//go:build linux

package reactor

import (
	"bufio"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/momentics/hioload-reactor/api"
	"github.com/momentics/hioload-reactor/internal/concurrency"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var goExec = execFunc(func(task func()) error {
	go task()
	return nil
})

func startLoopback(t *testing.T, h api.Handler) *Reactor {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.PollTimeout = 50 * time.Millisecond
	r := New(cfg, goExec, h)
	require.NoError(t, r.Start())
	t.Cleanup(func() { _ = r.Stop() })
	return r
}

func TestEpollReactor_RoundTrip(t *testing.T) {
	r := startLoopback(t, constHandler("PONG\n"))

	c, err := net.Dial("tcp", r.Addr().String())
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Write([]byte("query time"))
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = c.Write([]byte(" order\r\n"))
	require.NoError(t, err)

	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	line, err := bufio.NewReader(c).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "PONG\n", line)
}

func TestEpollReactor_StopClosesClients(t *testing.T) {
	r := startLoopback(t, constHandler("x"))

	c, err := net.Dial("tcp", r.Addr().String())
	require.NoError(t, err)
	defer c.Close()
	require.Eventually(t, func() bool { return r.Connections() == 1 }, 2*time.Second, 5*time.Millisecond)

	stopped := make(chan error, 1)
	go func() { stopped <- r.Stop() }()
	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not return")
	}

	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = c.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, api.StateStopped, r.State())
}

func TestEpollReactor_BindConflict(t *testing.T) {
	first := startLoopback(t, constHandler("x"))

	cfg := DefaultConfig()
	cfg.Addr = first.Addr().String()
	second := New(cfg, goExec, constHandler("x"))
	err := second.Start()
	assert.ErrorIs(t, err, api.ErrSetup)
	assert.Equal(t, api.StateStopped, second.State())
}

func TestEpollReactor_RunStopsOnContext(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	r := New(cfg, goExec, constHandler("x"))

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- r.Run(ctx) }()
	require.Eventually(t, func() bool { return r.State() == api.StateRunning }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return")
	}
}

func TestEpollReactor_PinnedLoopServes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.PollTimeout = 50 * time.Millisecond
	cfg.PinCPU = true
	cfg.CPU = 0
	r := New(cfg, goExec, constHandler("PONG\n"))
	require.NoError(t, r.Start())
	defer r.Stop()

	c, err := net.Dial("tcp", r.Addr().String())
	require.NoError(t, err)
	defer c.Close()
	_, err = c.Write([]byte("QUERY TIME ORDER"))
	require.NoError(t, err)

	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	line, err := bufio.NewReader(c).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "PONG\n", line)
}

func TestEpollReactor_PipelinedRepliesKeepOrder(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	exec, err := concurrency.NewExecutor(concurrency.Config{
		CoreWorkers:   4,
		MaxWorkers:    8,
		QueueCapacity: 16,
		KeepAlive:     time.Second,
		Policy:        concurrency.Abort,
		Logger:        log,
	})
	require.NoError(t, err)
	t.Cleanup(func() { exec.ShutdownNow() })

	// PING answers slowly so a reply handed to a second worker would overtake it.
	h := api.HandlerFunc(func(m api.Message) []byte {
		if string(m.Body) == "PING" {
			time.Sleep(50 * time.Millisecond)
			return []byte("BAD ORDER\n")
		}
		return []byte("TIME\n")
	})
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.PollTimeout = 50 * time.Millisecond
	r := New(cfg, exec, h, WithLogger(log))
	require.NoError(t, r.Start())
	t.Cleanup(func() { _ = r.Stop() })

	c, err := net.Dial("tcp", r.Addr().String())
	require.NoError(t, err)
	defer c.Close()

	for i := 0; i < 3; i++ {
		_, err = c.Write([]byte("PING\nQUERY TIME ORDER\nPING\n"))
		require.NoError(t, err)
	}

	require.NoError(t, c.SetReadDeadline(time.Now().Add(3*time.Second)))
	rd := bufio.NewReader(c)
	var got []string
	for i := 0; i < 9; i++ {
		line, err := rd.ReadString('\n')
		require.NoError(t, err)
		got = append(got, line)
	}
	want := []string{"BAD ORDER\n", "TIME\n", "BAD ORDER\n"}
	assert.Equal(t, append(append(append([]string{}, want...), want...), want...), got)
}
