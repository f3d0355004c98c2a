package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/srg/blink/pkg/config"
)

// configureLogger applies the log level to cfg and builds the logger.
// --log-level takes precedence over the config file; with neither the CLI
// stays silent apart from its own output.
func configureLogger(cmd *cobra.Command, cfg *config.Config, fromFile bool) (*logrus.Logger, error) {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	switch {
	case logLevelStr != "":
		switch logLevelStr {
		case "debug", "info", "warn", "error":
		default:
			return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", logLevelStr)
		}
		if err := cfg.SetLogLevel(logLevelStr); err != nil {
			return nil, err
		}
	case !fromFile:
		cfg.LogLevel = logrus.PanicLevel
	}

	return cfg.NewLogger(), nil
}
