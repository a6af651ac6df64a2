// Package bootstrap wires huginn's components together and manages the
// service lifecycle.
package bootstrap

import (
	"fmt"

	"github.com/jonesrussell/north-cloud/huginn/internal/config"
	"github.com/jonesrussell/north-cloud/huginn/internal/logger"
)

// Version is set at build time.
var Version = "dev"

// LoadConfig loads and validates the configuration. An empty path falls
// back to CONFIG_PATH, then config.yml.
func LoadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.GetConfigPath("config.yml")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// CreateLogger creates the service logger from configuration.
func CreateLogger(cfg *config.Config) (logger.Logger, error) {
	logCfg := cfg.Logging
	logCfg.Development = logCfg.Development || cfg.Debug

	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log.With(
		logger.String("service", logCfg.ServiceName),
		logger.String("version", Version),
	), nil
}
