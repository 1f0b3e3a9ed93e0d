package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultHost          = "pkuxkx.net"
	DefaultPort          = 8080
	DefaultEncoding      = "gbk"
	DefaultReadTimeoutMs = 1000
	DefaultDialTimeoutMs = 10000
	DefaultTriggersDir   = "triggers"
	DefaultDebounceMs    = 5000
	DefaultOrMode        = "legacy"
)

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads the YAML file at path and applies defaults. An empty path or a
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML config data and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.Encoding == "" {
		cfg.Server.Encoding = DefaultEncoding
	}
	if cfg.Server.ReadTimeoutMs == 0 {
		cfg.Server.ReadTimeoutMs = DefaultReadTimeoutMs
	}
	if cfg.Server.DialTimeoutMs == 0 {
		cfg.Server.DialTimeoutMs = DefaultDialTimeoutMs
	}
	if cfg.Triggers.Dir == "" {
		cfg.Triggers.Dir = DefaultTriggersDir
	}
	if cfg.Engine.DebounceMs == 0 {
		cfg.Engine.DebounceMs = DefaultDebounceMs
	}
	if cfg.Engine.OrMode == "" {
		cfg.Engine.OrMode = DefaultOrMode
	}
}
