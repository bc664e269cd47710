package app

import (
	"io"

	"bringupctl/internal/config"
)

// Config holds the application-level settings resolved by the CLI.
type Config struct {
	// Debug enables debug logging.
	Debug bool
	// ConfigPath loads a single config file instead of the layered lookup.
	ConfigPath string
	// LogOutput receives log lines; stderr when nil.
	LogOutput io.Writer

	// Bringup is filled in during bootstrap unless set beforehand.
	Bringup *config.BringupConfig
}

// NewConfig creates a new application configuration.
func NewConfig(debug bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		ConfigPath: configPath,
	}
}
