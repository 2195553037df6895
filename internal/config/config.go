// Package config holds the CLI configuration and the optional tuning file.
package config

import (
	"fmt"
	"time"

	"github.com/pion/logging"

	"github.com/1ureka/dcpipe/internal/datachannel"
	"github.com/1ureka/dcpipe/internal/transport"
)

// Role represents the user's chosen role (host or client).
type Role string

const (
	RoleHost   Role = "host"
	RoleClient Role = "client"
)

// Config stores all parameters gathered from CLI flags or interactive prompts.
type Config struct {
	Role     Role
	WSAddr   string // Host: listen address of the signaling server
	WSURL    string // Client: WebSocket URL to connect to
	PIN      string // Host: signaling PIN, generated when empty
	SendPath string // File to send once connected, if any
	OutDir   string // Directory for received files

	Tuning Tuning
}

// Tuning is the part of the configuration that can come from a YAML file.
type Tuning struct {
	Label       string        `yaml:"label"`
	STUNServers []string      `yaml:"stun_servers"`
	PINLength   int           `yaml:"pin_length"`
	Channel     ChannelConfig `yaml:"channel"`
}

// ChannelConfig tunes chunking and congestion control.
type ChannelConfig struct {
	ChunkSize      int      `yaml:"chunk_size"`
	QueueLimit     int      `yaml:"queue_limit"`
	PollInterval   Duration `yaml:"poll_interval"`
	MaxPayloadSize int      `yaml:"max_payload_size"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "20ms", "1s").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "20ms" or "1s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// TransportOptions maps the tuning onto transport.Options.
func (t Tuning) TransportOptions(lf logging.LoggerFactory) transport.Options {
	return transport.Options{
		Label:         t.Label,
		STUNServers:   t.STUNServers,
		LoggerFactory: lf,
	}
}

// DataChannelConfig maps the channel section onto datachannel.Config.
func (c ChannelConfig) DataChannelConfig(lf logging.LoggerFactory) datachannel.Config {
	return datachannel.Config{
		ChunkSize:      c.ChunkSize,
		QueueLimit:     c.QueueLimit,
		PollInterval:   c.PollInterval.Duration,
		MaxPayloadSize: c.MaxPayloadSize,
		LoggerFactory:  lf,
	}
}
