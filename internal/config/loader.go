package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"driftsync/pkg/logging"
)

const (
	userConfigDir  = ".config/driftsync"
	configFileName = "config.yaml"
)

// GetDefaultConfigPathOrPanic returns the user-level configuration
// directory (~/.config/driftsync).
func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig reads config.yaml from dir and unmarshals it over the defaults,
// so a partial file only overrides the keys it names. A missing file is not
// an error; the defaults are returned as-is.
func LoadConfig(dir string) (Config, error) {
	path := filepath.Join(dir, configFileName)
	cfg := GetDefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logging.Debug("Config", "No config.yaml at %s, using defaults", path)
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	logging.Debug("Config", "Loaded configuration from %s", path)
	return cfg, nil
}
