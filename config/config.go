// Package config loads the engine's runtime configuration using viper: a
// root-keyed YAML file, environment overrides, and defaults applied before
// validation.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/kpchow/mintcp/transport/tcp"
)

// FileConfig is the top-level wrapper matching the YAML structure
// `mintcp: ...`.
type FileConfig struct {
	Mintcp RootConfig `mapstructure:"mintcp"`
}

// RootConfig mirrors tcp.Config for unmarshaling, plus the logging knob the
// core itself has no opinion on.
type RootConfig struct {
	Capacity         int    `mapstructure:"capacity"`
	InitialRTOMillis uint32 `mapstructure:"initial_rto_millis"`
	MaxRetxAttempts  uint32 `mapstructure:"max_retx_attempts"`
	LingerMultiplier uint32 `mapstructure:"linger_multiplier"`
	LogLevel         string `mapstructure:"log_level"`
}

// Load reads path (YAML, TOML, JSON — whatever viper's extension detection
// recognizes) and returns the resulting tcp.Config along with the
// requested log level. Environment variables override file values; their
// names are MINTCP_ plus the full key with dots as underscores, e.g.
// MINTCP_MINTCP_CAPACITY for mintcp.capacity.
func Load(path string) (tcp.Config, string, error) {
	v := viper.New()
	v.SetConfigFile(path)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return tcp.Config{}, "", fmt.Errorf("config: read %s: %w", path, err)
	}

	v.SetEnvPrefix("mintcp")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var file FileConfig
	if err := v.Unmarshal(&file); err != nil {
		return tcp.Config{}, "", fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg := tcp.Config{
		Capacity:         file.Mintcp.Capacity,
		InitialRTOMillis: file.Mintcp.InitialRTOMillis,
		MaxRetxAttempts:  file.Mintcp.MaxRetxAttempts,
		LingerMultiplier: file.Mintcp.LingerMultiplier,
	}
	if err := validate(cfg); err != nil {
		return tcp.Config{}, "", err
	}

	return cfg, file.Mintcp.LogLevel, nil
}

func setDefaults(v *viper.Viper) {
	def := tcp.DefaultConfig()
	v.SetDefault("mintcp.capacity", def.Capacity)
	v.SetDefault("mintcp.initial_rto_millis", def.InitialRTOMillis)
	v.SetDefault("mintcp.max_retx_attempts", def.MaxRetxAttempts)
	v.SetDefault("mintcp.linger_multiplier", def.LingerMultiplier)
	v.SetDefault("mintcp.log_level", "info")
}

func validate(cfg tcp.Config) error {
	if cfg.Capacity <= 0 {
		return fmt.Errorf("config: capacity must be positive, got %d", cfg.Capacity)
	}
	if cfg.InitialRTOMillis == 0 {
		return fmt.Errorf("config: initial_rto_millis must be positive")
	}
	if cfg.MaxRetxAttempts == 0 {
		return fmt.Errorf("config: max_retx_attempts must be positive")
	}
	return nil
}
