package configs

import (
	"flag"
	"os"

	"github.com/peermeet/peermeet/internal/infrastructure/env"
)

// DetermineConfigPath resolves the config file location from the --config
// flag, the PEERMEET_CONFIG env var, or a list of conventional candidates.
// An empty return value means "no config file": Load falls back to defaults
// plus env overrides.
func DetermineConfigPath() string {
	var configPath string

	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	if configPath == "" {
		configPath = env.GetString("PEERMEET_CONFIG", "")
	}

	if configPath == "" {
		candidates := []string{
			"./config.yaml",
			"./config.yml",
			"/etc/peermeet/config.yaml",
			"/app/config.yaml", // common in Docker
		}

		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	return configPath
}
