package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/srg/blink"
	"github.com/srg/blink/internal/protocol"
	"github.com/srg/blink/pkg/config"
)

// environment is what every subcommand needs before touching the radio
type environment struct {
	cfg     *config.Config
	logger  *logrus.Logger
	catalog *protocol.Catalog
}

// loadEnvironment resolves configuration, logger and catalog from the global flags
func loadEnvironment(cmd *cobra.Command) (*environment, error) {
	cfg := config.DefaultConfig()
	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		var err error
		if cfg, err = config.LoadFile(configPath); err != nil {
			return nil, err
		}
	}

	logger, err := configureLogger(cmd, cfg, configPath != "")
	if err != nil {
		return nil, err
	}

	noColor, _ := cmd.Flags().GetBool("no-color")
	configureColor(noColor)

	catalogPath, _ := cmd.Flags().GetString("catalog")
	if catalogPath == "" {
		catalogPath = cfg.CatalogPath
	}

	var catalog *protocol.Catalog
	if catalogPath != "" {
		catalog, err = protocol.LoadCatalog(catalogPath)
	} else {
		catalog, err = protocol.ParseCatalog(blink.DefaultCatalog)
	}
	if err != nil {
		return nil, err
	}
	if catalog.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyCatalog, displayCatalogPath(catalogPath))
	}

	logger.WithFields(logrus.Fields{
		"catalog":   displayCatalogPath(catalogPath),
		"protocols": catalog.Len(),
	}).Debug("Catalog loaded")

	return &environment{cfg: cfg, logger: logger, catalog: catalog}, nil
}

func displayCatalogPath(path string) string {
	if path == "" {
		return "embedded catalog"
	}
	return path
}

// configureColor turns colors off when asked to or when stdout is not a terminal
func configureColor(disabled bool) {
	color.NoColor = disabled || !term.IsTerminal(int(os.Stdout.Fd()))
}
