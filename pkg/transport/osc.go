package transport

import (
	"fmt"
	"sync/atomic"

	"github.com/hypebeast/go-osc/osc"

	"github.com/teslashibe/go-soundfield/pkg/protocol"
)

// Default renderer endpoint.
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 9000
)

// Config holds the renderer endpoint.
type Config struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`

	// LocalPort pins the source port of outgoing datagrams. 0 lets the OS pick.
	LocalPort int `yaml:"local_port" json:"local_port"`
}

// DefaultConfig returns a Config pointing at a renderer on this machine.
func DefaultConfig() Config {
	return Config{
		Host: DefaultHost,
		Port: DefaultPort,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Host == "" {
		return ErrNoEndpoint
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("transport: port must be 1-65535, got %d", c.Port)
	}
	if c.LocalPort < 0 || c.LocalPort > 65535 {
		return fmt.Errorf("transport: local port must be 0-65535, got %d", c.LocalPort)
	}
	return nil
}

// Addr returns host:port.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// OSC sends messages as OSC datagrams over UDP.
type OSC struct {
	cfg    Config
	client *osc.Client
	closed atomic.Bool
}

// NewOSC creates an OSC sender for the configured renderer.
func NewOSC(cfg Config) (*OSC, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := osc.NewClient(cfg.Host, cfg.Port)
	if cfg.LocalPort != 0 {
		if err := client.SetLocalAddr("", cfg.LocalPort); err != nil {
			return nil, fmt.Errorf("transport: local address: %w", err)
		}
	}

	return &OSC{cfg: cfg, client: client}, nil
}

// Send encodes and transmits one message. The datagram is not acknowledged.
func (o *OSC) Send(msg protocol.Message) error {
	if o.closed.Load() {
		return &SendError{Address: msg.Address, Err: ErrClosed}
	}
	if err := o.client.Send(msg.OSC()); err != nil {
		return &SendError{Address: msg.Address, Err: err}
	}
	return nil
}

// Addr returns the renderer address.
func (o *OSC) Addr() string {
	return o.cfg.Addr()
}

// Close stops further sends.
func (o *OSC) Close() error {
	o.closed.Store(true)
	return nil
}
