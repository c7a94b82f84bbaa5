// Package config provides SDKConfig, the struct of recognized options
// injected at Device construction time per spec.md §9 ("no global state").
// Load/LoadFrom/Save follow the teacher's settings.Load/LoadFrom/SaveTo
// shape (pkg/settings/settings.go), adapted from JSON to YAML since the
// SDK's config is meant to live alongside a device's other YAML-based
// provisioning files.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultMaxMappings mirrors interfaces.MaxInterfaceMappings.
	DefaultMaxMappings = 1024
	// DefaultVolatileBufferBytes bounds the in-memory buffer used by
	// Volatile-retention publishes while disconnected; publishes that would
	// exceed it are dropped.
	DefaultVolatileBufferBytes = 1 << 20 // 1 MiB
	// DefaultReconnectBackoff seeds cenkalti/backoff's initial interval.
	DefaultReconnectBackoff = 500 * time.Millisecond
)

// SDKConfig is the struct of recognized options from spec.md §9.
type SDKConfig struct {
	// StrictSchema toggles interfaces.ParseOptions.Strict for every
	// interface this SDK instance loads.
	StrictSchema bool `yaml:"strict_schema"`
	// MaxMappings overrides interfaces.MaxInterfaceMappings; zero means
	// DefaultMaxMappings.
	MaxMappings int `yaml:"max_mappings"`
	// VolatileBufferBytes caps the total payload bytes the publish pipeline
	// buffers in memory for Volatile-retention publishes while
	// disconnected; publishes that would push the total over this cap are
	// dropped. Zero means DefaultVolatileBufferBytes.
	VolatileBufferBytes int64 `yaml:"volatile_buffer_bytes"`
	// ReconnectBackoff is the initial reconnect backoff interval handed to
	// cenkalti/backoff; zero means DefaultReconnectBackoff.
	ReconnectBackoff time.Duration `yaml:"reconnect_backoff"`
}

// Default returns an SDKConfig with every field at its documented default.
func Default() SDKConfig {
	return SDKConfig{
		StrictSchema:        false,
		MaxMappings:         DefaultMaxMappings,
		VolatileBufferBytes: DefaultVolatileBufferBytes,
		ReconnectBackoff:    DefaultReconnectBackoff,
	}
}

// Load reads SDKConfig from path, layering any present field on top of
// Default() so a partial YAML file still produces a fully populated config.
func Load(path string) (SDKConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return SDKConfig{}, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return SDKConfig{}, err
	}
	if cfg.MaxMappings == 0 {
		cfg.MaxMappings = DefaultMaxMappings
	}
	if cfg.VolatileBufferBytes == 0 {
		cfg.VolatileBufferBytes = DefaultVolatileBufferBytes
	}
	if cfg.ReconnectBackoff == 0 {
		cfg.ReconnectBackoff = DefaultReconnectBackoff
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg SDKConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
