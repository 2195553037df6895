package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/1ureka/dcpipe/internal/app"
	"github.com/1ureka/dcpipe/internal/datachannel"
	"github.com/1ureka/dcpipe/internal/protocol"
	"github.com/1ureka/dcpipe/internal/transport"
)

// DefaultPINLength is the number of digits in a generated signaling PIN.
const DefaultPINLength = 6

// DefaultTuning returns the values used when no config file is given.
func DefaultTuning() Tuning {
	return Tuning{
		Label:       transport.DefaultLabel,
		STUNServers: append([]string(nil), transport.DefaultSTUNServers...),
		PINLength:   DefaultPINLength,
		Channel: ChannelConfig{
			ChunkSize:      protocol.MaxChunkSize,
			QueueLimit:     datachannel.DefaultQueueLimit,
			PollInterval:   Duration{datachannel.DefaultPollInterval},
			MaxPayloadSize: protocol.MaxPayloadSize,
		},
	}
}

// LoadTuning reads a YAML tuning file over DefaultTuning. An empty path
// returns the defaults. Keys missing from the file keep their default.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Tuning{}, fmt.Errorf("config file not found: %s", path)
		}
		return Tuning{}, fmt.Errorf("cannot read config file %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tuning{}, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}

	if err := t.Validate(); err != nil {
		return Tuning{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return t, nil
}

// Validate reports every out-of-range field at once.
func (t Tuning) Validate() error {
	var errs []error

	if t.PINLength < 4 || t.PINLength > 12 {
		errs = append(errs, fmt.Errorf("pin_length must be 4~12, got %d", t.PINLength))
	}
	for _, s := range t.STUNServers {
		if !strings.HasPrefix(s, "stun:") && !strings.HasPrefix(s, "stuns:") {
			errs = append(errs, fmt.Errorf("stun_servers: %q is not a stun: URL", s))
		}
	}

	c := t.Channel
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("channel.chunk_size must be positive, got %d", c.ChunkSize))
	}
	if c.QueueLimit < c.ChunkSize {
		errs = append(errs, fmt.Errorf("channel.queue_limit (%d) must be at least chunk_size (%d)", c.QueueLimit, c.ChunkSize))
	}
	if c.PollInterval.Duration <= 0 {
		errs = append(errs, fmt.Errorf("channel.poll_interval must be positive, got %s", c.PollInterval))
	}
	// File transfers send app.SegmentSize payloads; a lower ceiling would
	// reject every file larger than it.
	if c.MaxPayloadSize < app.SegmentSize || c.MaxPayloadSize > protocol.MaxPayloadSize {
		errs = append(errs, fmt.Errorf("channel.max_payload_size must be %d~%d, got %d", app.SegmentSize, protocol.MaxPayloadSize, c.MaxPayloadSize))
	}

	return errors.Join(errs...)
}
