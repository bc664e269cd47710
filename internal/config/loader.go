package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"bringupctl/pkg/logging"

	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/bringupctl"
	projectConfigDir = ".bringupctl"
	configFileName   = "config.yaml"
)

// LoadConfig loads the bringupctl configuration by layering default, user,
// and project settings.
func LoadConfig() (BringupConfig, error) {
	config := GetDefaultConfig()

	userConfigPath, err := getUserConfigPath()
	if err != nil {
		// user config is optional
		logging.Warn("Config", "Could not determine user config path: %v", err)
	} else if config, err = overlayIfExists(config, userConfigPath); err != nil {
		return BringupConfig{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
	}

	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		logging.Warn("Config", "Could not determine project config path: %v", err)
	} else if config, err = overlayIfExists(config, projectConfigPath); err != nil {
		return BringupConfig{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
	}

	return config, nil
}

// LoadConfigFromPath layers a single explicit file over the defaults.
func LoadConfigFromPath(path string) (BringupConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BringupConfig{}, fmt.Errorf("error reading config %s: %w", path, err)
	}
	config, err := overlay(GetDefaultConfig(), data)
	if err != nil {
		return BringupConfig{}, fmt.Errorf("error loading config from %s: %w", path, err)
	}
	return config, nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

func overlayIfExists(base BringupConfig, path string) (BringupConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return base, nil
	}
	if err != nil {
		return BringupConfig{}, err
	}
	logging.Debug("Config", "Layering %s", path)
	return overlay(base, data)
}

// overlay decodes data on top of base. Keys missing from data keep the
// value they had in base, so a layer only needs the settings it changes.
func overlay(base BringupConfig, data []byte) (BringupConfig, error) {
	merged := base
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&merged); err != nil && !errors.Is(err, io.EOF) {
		return BringupConfig{}, err
	}
	return merged, nil
}

// GetUserConfigDir returns the user configuration directory path
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir), nil
}
