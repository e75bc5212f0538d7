package client

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/janelia-flyem/libdvid-go/dvid"
)

// Config holds client settings typically loaded from a TOML file:
//
//	server = "http://emdata.int.janelia.org:7000"
//	uuid = "3f8c"
//	timeout_seconds = 300
//
//	[log]
//	logfile = "/var/log/dvid-client.log"
//	max_log_size = 500
//	max_log_age = 30
type Config struct {
	Server         string
	UUID           string
	TimeoutSeconds int            `toml:"timeout_seconds"`
	Log            dvid.LogConfig `toml:"log"`
}

// Timeout returns the configured request timeout, or DefaultTimeout.
func (c *Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LoadConfig reads a TOML client configuration and installs any
// configured log file.
func LoadConfig(filename string) (*Config, error) {
	var config Config
	if _, err := toml.DecodeFile(filename, &config); err != nil {
		return nil, fmt.Errorf("could not decode TOML config %q: %v", filename, err)
	}
	if config.Server == "" {
		return nil, fmt.Errorf("config %q must set a server address", filename)
	}
	config.Log.SetLogger()
	return &config, nil
}
