// Package config parses ndpid's configuration: the interface or capture
// file to read from, the collector socket to publish events on, worker
// count and the ambient logging/status-API settings.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ndpid/ndpid-go/pkg/ndpiconst"
)

// the validator interface is a contract to show if a concrete type is
// configured according to its predefined value range
type validator interface {
	validate() error
}

// Config stores ndpid's configuration
type Config struct {
	sync.Mutex

	// Interface is either a live interface name or, for offline
	// replay, a path to a pcap file.
	Interface string `json:"interface" mapstructure:"interface"`
	// Offline marks Interface as a capture file rather than a live
	// interface.
	Offline bool `json:"offline" mapstructure:"offline"`
	// Promisc enables promiscuous mode for live captures.
	Promisc bool `json:"promisc" mapstructure:"promisc"`

	// Threads is the number of capture workers; flows are sharded
	// across them by pkg/shard.ThreadIndex.
	Threads int `json:"threads" mapstructure:"threads"`

	// CollectorSocket is the AF_UNIX stream socket path events are
	// published to.
	CollectorSocket string `json:"collector_socket" mapstructure:"collector_socket"`

	// APIAddr optionally binds the status/metrics HTTP surface
	// (pkg/statusapi). Empty disables it.
	APIAddr string `json:"api_addr" mapstructure:"api_addr"`

	Logging LogConfig `json:"logging" mapstructure:"logging"`
}

// LogConfig stores the logging configuration
type LogConfig struct {
	Destination string `json:"destination" mapstructure:"destination"`
	Level       string `json:"level" mapstructure:"level"`
	Encoding    string `json:"encoding" mapstructure:"encoding"`
	// Stderr additionally attaches an os.Stderr output on top of
	// whatever Destination/Encoding specify (the -l/--log_stderr flag).
	Stderr bool `json:"-" mapstructure:"-"`
}

// New creates a new configuration struct with default settings
func New() *Config {
	return &Config{
		Threads:         ndpiconst.MaxReaderThreads,
		CollectorSocket: "/tmp/ndpid-collector.sock",
		Logging: LogConfig{
			Encoding: "logfmt",
			Level:    "info",
		},
	}
}

func (l LogConfig) validate() error {
	switch l.Encoding {
	case "", "logfmt", "json":
		return nil
	default:
		return fmt.Errorf("unsupported log encoding %q", l.Encoding)
	}
}

// Validate checks all config parameters
func (c *Config) Validate() error {
	if c.Interface == "" {
		return fmt.Errorf("no interface or capture file specified")
	}
	if c.Threads <= 0 {
		return fmt.Errorf("thread count must be a positive number")
	}
	if c.CollectorSocket == "" {
		return fmt.Errorf("collector socket path must not be empty")
	}

	for _, section := range []validator{
		c.Logging,
	} {
		if err := section.validate(); err != nil {
			return err
		}
	}
	return nil
}

// ParseFile reads in a configuration from a file at `path`.
// If provided, fields are overwritten from the default configuration
func ParseFile(path string) (*Config, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	return Parse(fd)
}

// Parse attempts to read the configuration from an io.Reader
func Parse(src io.Reader) (*Config, error) {
	config := New()
	if err := json.NewDecoder(src).Decode(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}
