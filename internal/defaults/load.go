package defaults

import (
	"fmt"

	"github.com/wonny/acr/internal/contracts"
	"github.com/wonny/acr/pkg/config"
	"github.com/wonny/acr/pkg/logger"
)

// Load builds a registry from every configured default source.
// Unconfigured sources are skipped; a configured source that fails is an error.
func Load(cfg config.FeedConfig, universe *contracts.Universe, log *logger.Logger) (*Registry, error) {
	if log == nil {
		log = logger.Nop()
	}
	reg := NewRegistry()

	if cfg.SPDefaultsPath != "" {
		events, err := readFile(cfg.SPDefaultsPath, ReadSP)
		if err != nil {
			return nil, err
		}
		reg.Add(events...)
		log.WithField("events", len(events)).Info("S&P defaults loaded")
	}

	if cfg.FitchDefaultsPath != "" {
		events, err := readFile(cfg.FitchDefaultsPath, ReadFitch)
		if err != nil {
			return nil, err
		}
		reg.Add(events...)
		log.WithField("events", len(events)).Info("Fitch defaults loaded")
	}

	if cfg.ManualDefaultsPath != "" {
		events, err := ReadWorkbook(cfg.ManualDefaultsPath, log)
		if err != nil {
			return nil, fmt.Errorf("manual defaults: %w", err)
		}
		reg.Add(events...)
		log.WithField("events", len(events)).Info("Manual defaults loaded")
	}

	if universe != nil {
		reg.AttachUniverse(universe)
	}
	return reg, nil
}
