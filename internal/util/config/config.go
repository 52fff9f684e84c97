package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

var (
	configDir  string
	configPath string
)

func init() {
	homeDir := os.Getenv("HOME")
	if runtime.GOOS == "windows" {
		homeDir = os.Getenv("USERPROFILE")
	}
	configDir = filepath.Join(homeDir, ".config", "scalastyle-marker")
	configPath = filepath.Join(configDir, "config.json")
}

// LoadConfig loads the user-wide defaults from ~/.config/scalastyle-marker/config.json.
// The returned error satisfies os.IsNotExist when the file is missing.
func LoadConfig() (*ProjectConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var cfg ProjectConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return &cfg, nil
}

// GetConfigPath returns the user-wide config file path
func GetConfigPath() string {
	return configPath
}
