package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. KITTENS_WS_PORT.
const EnvPrefix = "KITTENS"

// LoggingConfig selects the log level and encoding.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console or json
}

// Config holds all configurable server parameters.
type Config struct {
	WSPort int `mapstructure:"ws_port"`

	MaxNameLength int `mapstructure:"max_name_length"`
	MaxChatLength int `mapstructure:"max_chat_length"`

	// ReconnectGraceSec is how long a disconnected player keeps their seat.
	ReconnectGraceSec int `mapstructure:"reconnect_grace_sec"`

	// SendBufferSize is the number of frames buffered per connection. A client
	// that falls further behind is disconnected.
	SendBufferSize int   `mapstructure:"send_buffer_size"`
	MaxFrameBytes  int64 `mapstructure:"max_frame_bytes"`

	// ServerKey is a hex X25519 private key. A fresh key is generated at
	// startup when empty.
	ServerKey string `mapstructure:"server_key"`

	// DatabaseURL enables result history when set.
	DatabaseURL  string `mapstructure:"database_url"`
	HistoryLimit int    `mapstructure:"history_limit"`

	Logging LoggingConfig `mapstructure:"logging"`
}

// ReconnectGrace returns the grace period as a duration.
func (c *Config) ReconnectGrace() time.Duration {
	return time.Duration(c.ReconnectGraceSec) * time.Second
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		WSPort:            8080,
		MaxNameLength:     24,
		MaxChatLength:     256,
		ReconnectGraceSec: 300,
		SendBufferSize:    256,
		MaxFrameBytes:     64 * 1024,
		HistoryLimit:      20,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from an optional file at path (any format viper
// understands), then applies KITTENS_* environment overrides. Fields not set
// in either source keep their default values. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.WSPort <= 0 || c.WSPort > 65535:
		return fmt.Errorf("ws_port %d out of range", c.WSPort)
	case c.MaxNameLength <= 0:
		return fmt.Errorf("max_name_length must be positive")
	case c.MaxChatLength <= 0:
		return fmt.Errorf("max_chat_length must be positive")
	case c.ReconnectGraceSec < 0:
		return fmt.Errorf("reconnect_grace_sec must not be negative")
	case c.SendBufferSize <= 0:
		return fmt.Errorf("send_buffer_size must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("ws_port", d.WSPort)
	v.SetDefault("max_name_length", d.MaxNameLength)
	v.SetDefault("max_chat_length", d.MaxChatLength)
	v.SetDefault("reconnect_grace_sec", d.ReconnectGraceSec)
	v.SetDefault("send_buffer_size", d.SendBufferSize)
	v.SetDefault("max_frame_bytes", d.MaxFrameBytes)
	v.SetDefault("server_key", d.ServerKey)
	v.SetDefault("database_url", d.DatabaseURL)
	v.SetDefault("history_limit", d.HistoryLimit)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}
