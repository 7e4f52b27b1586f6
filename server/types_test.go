package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_ReactorPinningIsOptIn(t *testing.T) {
	assert.False(t, (&Config{}).reactorConfig().PinCPU, "zero config leaves the reactor unpinned")
	assert.False(t, DefaultConfig().reactorConfig().PinCPU)

	cfg := DefaultConfig()
	cfg.PinReactor = true
	cfg.ReactorCPU = 2
	rc := cfg.reactorConfig()
	assert.True(t, rc.PinCPU)
	assert.Equal(t, 2, rc.CPU)
}

func TestConfig_ReactorFieldsPassThrough(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:9"
	cfg.MaxConnections = 7
	cfg.MaxQueuedRequests = 3

	rc := cfg.reactorConfig()
	assert.Equal(t, "127.0.0.1:9", rc.Addr)
	assert.Equal(t, 7, rc.MaxConnections)
	assert.Equal(t, 3, rc.MaxQueuedRequests)
	assert.Equal(t, cfg.MaxPendingWrite, rc.MaxPendingWrite)
}
