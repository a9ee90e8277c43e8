package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type BaseConfig struct {
	ShutdownTimeout string `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	Log      LogConfig      `mapstructure:"log"      yaml:"log"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Opal     OpalConfig     `mapstructure:"opal"     yaml:"opal"`
	Images   ImagesConfig   `mapstructure:"images"   yaml:"images"`
	Admin    AdminConfig    `mapstructure:"admin"    yaml:"admin"`
}

func LoadConfig() (*BaseConfig, error) {
	cfg := &BaseConfig{}

	setDefaults()

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings every command depends on.
func (c *BaseConfig) Validate() error {
	switch c.Database.Type {
	case "sqlite":
		if c.Database.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required")
		}
	default:
		return fmt.Errorf("unsupported database type '%s'", c.Database.Type)
	}

	if c.Images.Root == "" {
		return fmt.Errorf("images.root is required")
	}

	return nil
}
