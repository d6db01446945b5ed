package config

import (
	"os"

	"github.com/tnicklin/vouchbot/logger"
	"go.uber.org/config"
)

// StateConfig points at the persisted bot state (token, guild settings).
type StateConfig struct {
	Path string `yaml:"path"`
}

// AppConfig holds all application configuration.
type AppConfig struct {
	Logger logger.Config `yaml:"logger"`
	State  StateConfig   `yaml:"state"`
}

// Load reads configuration from the specified YAML files.
// Files are merged in order, with later files overriding earlier ones.
// Missing files are silently ignored.
func Load(files ...string) (*AppConfig, error) {
	opts := make([]config.YAMLOption, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			opts = append(opts, config.File(f))
		}
	}

	if len(opts) == 0 {
		return nil, os.ErrNotExist
	}

	provider, err := config.NewYAML(opts...)
	if err != nil {
		return nil, err
	}

	var cfg AppConfig
	if err := provider.Get(config.Root).Populate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadWithDefaults loads configuration with sensible defaults. A missing
// file is not an error; the defaults alone are a valid configuration.
func LoadWithDefaults(files ...string) (*AppConfig, error) {
	cfg, err := Load(files...)
	if err != nil {
		if os.IsNotExist(err) {
			cfg = &AppConfig{}
		} else {
			return nil, err
		}
	}

	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if len(cfg.Logger.OutputPaths) == 0 {
		cfg.Logger.OutputPaths = []string{"stdout"}
	}
	if cfg.State.Path == "" {
		cfg.State.Path = "config.json"
	}

	return cfg, nil
}
