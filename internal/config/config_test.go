package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1ureka/dcpipe/internal/app"
	"github.com/1ureka/dcpipe/internal/datachannel"
	"github.com/1ureka/dcpipe/internal/protocol"
	"github.com/1ureka/dcpipe/internal/transport"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dcpipe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTuningEmptyPath(t *testing.T) {
	tun, err := LoadTuning("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTuning(), tun)
	assert.NoError(t, tun.Validate())
}

func TestLoadTuningFull(t *testing.T) {
	path := writeTemp(t, `label: files
stun_servers:
  - stun:stun.example.com:3478
pin_length: 8
channel:
  chunk_size: 8192
  queue_limit: 65536
  poll_interval: 5ms
  max_payload_size: 8388608
`)

	tun, err := LoadTuning(path)
	require.NoError(t, err)

	assert.Equal(t, "files", tun.Label)
	assert.Equal(t, []string{"stun:stun.example.com:3478"}, tun.STUNServers)
	assert.Equal(t, 8, tun.PINLength)
	assert.Equal(t, 8192, tun.Channel.ChunkSize)
	assert.Equal(t, 65536, tun.Channel.QueueLimit)
	assert.Equal(t, 5*time.Millisecond, tun.Channel.PollInterval.Duration)
	assert.Equal(t, 8388608, tun.Channel.MaxPayloadSize)
}

func TestLoadTuningPartialKeepsDefaults(t *testing.T) {
	path := writeTemp(t, "channel:\n  queue_limit: 524288\n")

	tun, err := LoadTuning(path)
	require.NoError(t, err)

	assert.Equal(t, 524288, tun.Channel.QueueLimit)
	assert.Equal(t, protocol.MaxChunkSize, tun.Channel.ChunkSize)
	assert.Equal(t, datachannel.DefaultPollInterval, tun.Channel.PollInterval.Duration)
	assert.Equal(t, transport.DefaultLabel, tun.Label)
	assert.Equal(t, transport.DefaultSTUNServers, tun.STUNServers)
}

func TestLoadTuningErrors(t *testing.T) {
	_, err := LoadTuning(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "config file not found")

	_, err = LoadTuning(writeTemp(t, "channel: [unclosed"))
	assert.ErrorContains(t, err, "invalid YAML")

	_, err = LoadTuning(writeTemp(t, "channel:\n  poll_interval: soon\n"))
	assert.ErrorContains(t, err, "invalid duration")
}

func TestValidateCollectsAllErrors(t *testing.T) {
	tun := DefaultTuning()
	tun.PINLength = 2
	tun.STUNServers = []string{"http://example.com"}
	tun.Channel.ChunkSize = 0
	tun.Channel.QueueLimit = -1
	tun.Channel.PollInterval = Duration{}
	tun.Channel.MaxPayloadSize = 0

	err := tun.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"pin_length", "stun_servers", "chunk_size",
		"queue_limit", "poll_interval", "max_payload_size",
	} {
		assert.ErrorContains(t, err, want)
	}
}

func TestValidateMaxPayloadBelowSegment(t *testing.T) {
	tun := DefaultTuning()
	tun.Channel.MaxPayloadSize = 1048576
	assert.ErrorContains(t, tun.Validate(), "max_payload_size")

	tun.Channel.MaxPayloadSize = app.SegmentSize
	assert.NoError(t, tun.Validate())

	_, err := LoadTuning(writeTemp(t, "channel:\n  max_payload_size: 1048576\n"))
	assert.ErrorContains(t, err, "max_payload_size")
}

func TestValidateQueueLimitBelowChunk(t *testing.T) {
	tun := DefaultTuning()
	tun.Channel.QueueLimit = tun.Channel.ChunkSize - 1
	assert.ErrorContains(t, tun.Validate(), "queue_limit")
}

func TestMappings(t *testing.T) {
	tun := DefaultTuning()
	tun.Channel.PollInterval = Duration{7 * time.Millisecond}

	dc := tun.Channel.DataChannelConfig(nil)
	assert.Equal(t, tun.Channel.ChunkSize, dc.ChunkSize)
	assert.Equal(t, tun.Channel.QueueLimit, dc.QueueLimit)
	assert.Equal(t, 7*time.Millisecond, dc.PollInterval)
	assert.Equal(t, tun.Channel.MaxPayloadSize, dc.MaxPayloadSize)

	opts := tun.TransportOptions(nil)
	assert.Equal(t, tun.Label, opts.Label)
	assert.Equal(t, tun.STUNServers, opts.STUNServers)
	assert.False(t, opts.IncludeLoopback)
}
