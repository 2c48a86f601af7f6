package main

import (
	"os"

	"github.com/ember-run/ember/internal/config"
	"github.com/ember-run/ember/internal/logger"
)

// initLogger sets the process-wide slog default from the §10.3 logger
// section.
func initLogger(cfg config.LoggerConfig) {
	logger.Init(logger.ParseLevel(cfg.Level), os.Stderr)
}
