// Package config loads, validates and watches the daemon configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the complete daemon configuration.
type Config struct {
	AutoShow AutoShowConfig `toml:"auto_show"`
	Filter   FilterConfig   `toml:"filter"`
	Panel    PanelConfig    `toml:"panel"`
	Logging  LoggingConfig  `toml:"logging"`
}

// AutoShowConfig controls the decision engine and visibility controller.
type AutoShowConfig struct {
	// Enabled turns automatic panel showing on or off. Manual toggling
	// keeps working when disabled.
	Enabled bool `toml:"enabled"`

	// DebounceMs collapses bursts of auto-show decisions.
	DebounceMs int `toml:"debounce_ms"`

	// SettleMs is the wait between showing the panel and restoring focus.
	SettleMs int `toml:"settle_ms"`

	// TypingSuppressMs suppresses auto-show while hardware keys are
	// actively pressed.
	TypingSuppressMs int `toml:"typing_suppress_ms"`

	// CorrelateHardware requires hardware-origin focus events to match
	// the cached click before auto-showing.
	CorrelateHardware bool `toml:"correlate_hardware"`

	// AcceptUnavailable lets events through when the OS cannot classify
	// the input origin, subject to click correlation.
	AcceptUnavailable bool `toml:"accept_unavailable"`
}

// Debounce returns the auto-show debounce interval.
func (c AutoShowConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// Settle returns the show-to-restore settle delay.
func (c AutoShowConfig) Settle() time.Duration {
	return time.Duration(c.SettleMs) * time.Millisecond
}

// TypingSuppress returns the typing suppression window.
func (c AutoShowConfig) TypingSuppress() time.Duration {
	return time.Duration(c.TypingSuppressMs) * time.Millisecond
}

// FilterConfig extends the built-in system blacklists.
type FilterConfig struct {
	// ExtraProcessBlacklist adds executable names whose windows are
	// never considered.
	ExtraProcessBlacklist []string `toml:"extra_process_blacklist"`

	// ExtraClassBlacklist adds window class names that are never
	// considered.
	ExtraClassBlacklist []string `toml:"extra_class_blacklist"`
}

// PanelConfig holds panel rendering settings.
type PanelConfig struct {
	// Scale is the UI scale factor forwarded to the renderer.
	Scale float64 `toml:"scale"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `toml:"level"`

	// File is the log file path. Empty logs to stderr.
	File string `toml:"file"`
}

// Default returns the configuration with all defaults applied.
func Default() *Config {
	return &Config{
		AutoShow: AutoShowConfig{
			Enabled:           true,
			DebounceMs:        300,
			SettleMs:          50,
			TypingSuppressMs:  500,
			CorrelateHardware: true,
			AcceptUnavailable: true,
		},
		Filter: FilterConfig{},
		Panel: PanelConfig{
			Scale: 1.0,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the default configuration file location.
func DefaultPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "panelmon", "config.toml")
}

// Load reads the configuration at path, overlaying it onto defaults. A
// missing file yields the defaults; a malformed or invalid file is an
// error so a bad edit never silently reverts settings.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	if c.AutoShow.DebounceMs < 0 {
		return fmt.Errorf("auto_show.debounce_ms must not be negative, got %d", c.AutoShow.DebounceMs)
	}
	if c.AutoShow.SettleMs < 0 {
		return fmt.Errorf("auto_show.settle_ms must not be negative, got %d", c.AutoShow.SettleMs)
	}
	if c.AutoShow.TypingSuppressMs < 0 {
		return fmt.Errorf("auto_show.typing_suppress_ms must not be negative, got %d", c.AutoShow.TypingSuppressMs)
	}
	if c.Panel.Scale < 0.5 || c.Panel.Scale > 3.0 {
		return fmt.Errorf("panel.scale must be between 0.5 and 3.0, got %g", c.Panel.Scale)
	}
	return nil
}
