package configs

import (
	"flag"
	"os"

	"github.com/hilthontt/roomsync/internal/infrastructure/env"
)

// DetermineConfigPath resolves the config file from --config, ROOMSYNC_CONFIG
// or a list of well-known locations. It returns "" when none exists.
func DetermineConfigPath() string {
	var configPath string

	if f := flag.Lookup("config"); f == nil {
		flag.StringVar(&configPath, "config", "", "path to config file")
		flag.Parse()
	} else {
		configPath = f.Value.String()
	}

	if configPath == "" {
		configPath = env.GetString("ROOMSYNC_CONFIG", "")
	}

	if configPath == "" {
		candidates := []string{
			"./config.yaml",
			"./config.yml",
			"../../config.yaml", // local dev from cmd/http
			"/etc/roomsync/config.yaml",
			"/app/config.yaml", // docker
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
