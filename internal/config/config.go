// Package config provides configuration loading using koanf.
// Precedence: PSY_-prefixed environment variables over compiled defaults.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/aelexs/psykit/internal/domain"
)

// EnvPrefix is stripped from environment variable names. A double
// underscore separates nested keys: PSY_TRIGGER__PORT sets trigger.port.
const EnvPrefix = "PSY_"

// Config holds all runtime configuration.
type Config struct {
	// Environment identifier: "local", "lab", "prod"
	Environment string `koanf:"environment"`

	// Logging configuration
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	Trigger TriggerConfig `koanf:"trigger"`
	Timing  TimingConfig  `koanf:"timing"`
	Stress  StressConfig  `koanf:"stress"`
	Output  OutputConfig  `koanf:"output"`
	Status  StatusConfig  `koanf:"status"`

	// OpenTelemetry configuration
	OTEL OTELConfig `koanf:"otel"`
}

// TriggerConfig selects the trigger port.
type TriggerConfig struct {
	Driver    string `koanf:"driver"`    // ppdev, dlpio8, memory
	Port      int    `koanf:"port"`      // N in /dev/parportN or /dev/ttyUSBN
	Direction string `koanf:"direction"` // out, in
	Baud      int    `koanf:"baud"`      // dlpio8 only
}

// TimingConfig tunes the event loop.
type TimingConfig struct {
	SpinThreshold time.Duration `koanf:"spin_threshold"`
	Lead          time.Duration `koanf:"lead"`
}

// StressConfig parameterises the chained trigger test.
type StressConfig struct {
	Count int           `koanf:"count"`
	Mask  int           `koanf:"mask"`
	Hold  time.Duration `koanf:"hold"`
	Onset time.Duration `koanf:"onset"`
}

// OutputConfig selects where the event log goes.
type OutputConfig struct {
	Path   string `koanf:"path"` // "-" for stdout
	Format string `koanf:"format"`
}

// StatusConfig holds the optional health endpoint.
type StatusConfig struct {
	HTTPPort int `koanf:"http_port"` // 0 disables
}

// OTELConfig holds OpenTelemetry configuration.
type OTELConfig struct {
	Endpoint    string `koanf:"endpoint"` // Empty disables OTLP export
	ServiceName string `koanf:"service_name"`
}

// defaults returns a Config with compiled default values.
func defaults() *Config {
	return &Config{
		Environment: "local",
		LogLevel:    "info",
		LogFormat:   "json",

		Trigger: TriggerConfig{
			Driver:    string(domain.DriverMemory),
			Port:      0,
			Direction: "out",
			Baud:      domain.DLPBaudRate,
		},
		Timing: TimingConfig{
			SpinThreshold: domain.SpinThreshold,
			Lead:          domain.SessionLead,
		},
		Stress: StressConfig{
			Count: domain.StressCount,
			Mask:  domain.StressMask,
			Hold:  domain.StressHold,
			Onset: domain.StressOnset,
		},
		Output: OutputConfig{
			Path:   "-",
			Format: string(domain.LogFormatJSONL),
		},
	}
}

// Load loads configuration following the precedence:
// 1. Environment variables (highest)
// 2. Compiled defaults (lowest)
//
// Invalid values and keys required by the environment fail startup.
func Load(ctx context.Context) (*Config, error) {
	k := koanf.New(".")

	// Start with compiled defaults
	cfg := defaults()

	err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil)
	if err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	// Unmarshal into config struct
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validateRequired(cfg); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// envKey maps PSY_TRIGGER__PORT to trigger.port and PSY_LOG_LEVEL to log_level.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// validateRequired checks that required configuration is present.
func validateRequired(cfg *Config) error {
	// In local environment, every field has a sensible default
	if cfg.IsLocal() {
		return nil
	}

	// In production, trigger codes must reach real equipment
	if cfg.IsProd() {
		if !domain.Driver(cfg.Trigger.Driver).IsHardware() {
			return fmt.Errorf("%w: trigger.driver (hardware driver required in prod)", domain.ErrConfigRequired)
		}
	}

	return nil
}

var (
	logLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	logFormats = map[string]bool{"json": true, "text": true}
	directions = map[string]bool{"out": true, "output": true, "in": true, "input": true}
)

// validate rejects out-of-range and unknown values.
func validate(cfg *Config) error {
	checks := []struct {
		ok  bool
		key string
		val any
	}{
		{logLevels[strings.ToLower(cfg.LogLevel)], "log_level", cfg.LogLevel},
		{logFormats[strings.ToLower(cfg.LogFormat)], "log_format", cfg.LogFormat},
		{domain.IsValidDriver(domain.Driver(cfg.Trigger.Driver)), "trigger.driver", cfg.Trigger.Driver},
		{cfg.Trigger.Port >= 0 && cfg.Trigger.Port <= domain.MaxPortNumber, "trigger.port", cfg.Trigger.Port},
		{directions[cfg.Trigger.Direction], "trigger.direction", cfg.Trigger.Direction},
		{cfg.Trigger.Baud > 0, "trigger.baud", cfg.Trigger.Baud},
		{cfg.Timing.SpinThreshold >= 0, "timing.spin_threshold", cfg.Timing.SpinThreshold},
		{cfg.Timing.Lead >= 0, "timing.lead", cfg.Timing.Lead},
		{cfg.Stress.Count > 0, "stress.count", cfg.Stress.Count},
		{cfg.Stress.Mask >= 0 && cfg.Stress.Mask <= 0xFF, "stress.mask", cfg.Stress.Mask},
		{cfg.Stress.Hold > 0, "stress.hold", cfg.Stress.Hold},
		{cfg.Stress.Onset >= 0, "stress.onset", cfg.Stress.Onset},
		{cfg.Output.Path != "", "output.path", cfg.Output.Path},
		{domain.IsValidLogFormat(domain.LogFormat(cfg.Output.Format)), "output.format", cfg.Output.Format},
		{cfg.Status.HTTPPort >= 0 && cfg.Status.HTTPPort <= 65535, "status.http_port", cfg.Status.HTTPPort},
	}
	for _, c := range checks {
		if !c.ok {
			return fmt.Errorf("%w: %s=%v", domain.ErrInvalidConfig, c.key, c.val)
		}
	}
	return nil
}

// IsLocal returns true if running in local development environment.
func (c *Config) IsLocal() bool {
	return c.Environment == "local"
}

// IsProd returns true if running in production environment.
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}
