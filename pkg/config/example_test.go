package config_test

import (
	"fmt"

	"github.com/wonny/acr/pkg/config"
)

// Example demonstrates how to use the config package
func Example() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	fmt.Printf("Environment: %s\n", cfg.Env)
	fmt.Printf("Moody's feed: %s\n", cfg.Feeds.MoodysPath)
	fmt.Printf("Min agencies: %d\n", cfg.Composite.MinAgencies)
	fmt.Printf("Persistence enabled: %v\n", cfg.Database.Enabled())
}
