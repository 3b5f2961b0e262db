package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/downtowncxsh/xplx-access-bot/entitlement"
)

const defaultConfigPath = "/etc/accessbot/config.yaml"

func firstExistingPath(candidates ...string) string {
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// loadConfig reads the yaml config, applies defaults and validates it. The
// service assumes a single active process per store file; running two
// instances against the same store is unsupported.
func loadConfig() (*entitlement.Config, error) {
	configPath := firstExistingPath(os.Getenv("ACCESSBOT_CONFIG"), defaultConfigPath, "./config.yaml", "../config.yaml")
	if configPath == "" {
		return nil, errors.New("config.yaml not found")
	}

	configData, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg entitlement.Config
	if err := yaml.Unmarshal(configData, &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logrusLogger.Printf("Loaded config from %s", configPath)
	return &cfg, nil
}
