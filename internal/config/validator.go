package config

import (
	"fmt"
	"strings"

	"github.com/gyaneshwarpardhi/mudbot/internal/engine"
	"github.com/gyaneshwarpardhi/mudbot/internal/telnet"
	"github.com/gyaneshwarpardhi/mudbot/internal/trigger"
)

// Validate checks the config for:
//   - a usable remote address and charset
//   - positive timeouts
//   - a known or-mode
//   - well-formed autoload pack names
//
// Every problem is reported, not just the first.
func Validate(cfg *Config) error {
	var errs []string

	if strings.TrimSpace(cfg.Server.Host) == "" {
		errs = append(errs, "server.host is required")
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", cfg.Server.Port))
	}
	if _, err := telnet.LookupEncoding(cfg.Server.Encoding); err != nil {
		errs = append(errs, fmt.Sprintf("server.encoding: %v", err))
	}
	if cfg.Server.ReadTimeoutMs < 0 {
		errs = append(errs, "server.read_timeout_ms must be positive")
	}
	if cfg.Server.DialTimeoutMs < 0 {
		errs = append(errs, "server.dial_timeout_ms must be positive")
	}
	if cfg.Engine.DebounceMs < 0 {
		errs = append(errs, "engine.debounce_ms must be positive")
	}
	if _, err := engine.ParseOrMode(cfg.Engine.OrMode); err != nil {
		errs = append(errs, fmt.Sprintf("engine.or_mode: %v", err))
	}
	for i, name := range cfg.Triggers.Autoload {
		if err := trigger.ValidName(name); err != nil {
			errs = append(errs, fmt.Sprintf("triggers.autoload[%d]: %v", i, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
