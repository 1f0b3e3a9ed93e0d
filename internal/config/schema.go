package config

import (
	"net"
	"strconv"
)

// Config is the top-level YAML structure.
type Config struct {
	Server   ServerConf   `yaml:"server"`
	Triggers TriggersConf `yaml:"triggers"`
	Engine   EngineConf   `yaml:"engine"`
	Metrics  MetricsConf  `yaml:"metrics"`
}

// ServerConf describes the remote MUD.
type ServerConf struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	Encoding      string `yaml:"encoding"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms"`
	DialTimeoutMs int    `yaml:"dial_timeout_ms"`
}

// TriggersConf locates trigger packs.
type TriggersConf struct {
	Dir      string   `yaml:"dir"`
	Watch    *bool    `yaml:"watch"`
	Autoload []string `yaml:"autoload"` // loaded at start, before CLI arguments
}

// EngineConf holds trigger engine settings.
type EngineConf struct {
	DebounceMs    int    `yaml:"debounce_ms"`
	OrMode        string `yaml:"or_mode"`
	IdleHeartbeat bool   `yaml:"idle_heartbeat"`
}

// MetricsConf configures the HTTP API. An empty Addr disables it.
type MetricsConf struct {
	Addr string `yaml:"addr"`
}

// Address returns host:port of the remote.
func (s ServerConf) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// WatchEnabled reports whether pack hot reload is on.
func (t TriggersConf) WatchEnabled() bool {
	return t.Watch == nil || *t.Watch
}
