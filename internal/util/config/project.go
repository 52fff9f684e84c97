package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/DevSymphony/scalastyle-marker/internal/util/env"
)

// ProjectConfig represents the .scalastyle-marker/config.json structure
type ProjectConfig struct {
	// ReportFile is the scalastyle XML output, relative to the project root.
	ReportFile string `json:"report_file,omitempty"`

	// Command is the shell command line that runs scalastyle.
	Command string `json:"command,omitempty"`

	// Timeout bounds one run (Go duration, e.g. "5m").
	Timeout string `json:"timeout,omitempty"`

	// Exclude lists globs of files that are never annotated.
	Exclude []string `json:"exclude,omitempty"`
}

const (
	projectDir        = ".scalastyle-marker"
	projectConfigFile = "config.json"
	projectEnvFile    = ".env"

	// DefaultReportFile is where sbt-scalastyle writes its report.
	DefaultReportFile = "target/scalastyle-result.xml"

	// DefaultCommand runs scalastyle through sbt.
	DefaultCommand = "sbt scalastyle"
)

// GetProjectConfigPath returns the path to .scalastyle-marker/config.json
func GetProjectConfigPath(root string) string {
	return filepath.Join(root, projectDir, projectConfigFile)
}

// GetProjectEnvPath returns the path to .scalastyle-marker/.env
func GetProjectEnvPath(root string) string {
	return filepath.Join(root, projectDir, projectEnvFile)
}

// LoadProjectConfig loads the project configuration.
// A missing file yields an empty config.
func LoadProjectConfig(root string) (*ProjectConfig, error) {
	data, err := os.ReadFile(GetProjectConfigPath(root))
	if err != nil {
		if os.IsNotExist(err) {
			return &ProjectConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg ProjectConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return &cfg, nil
}

// SaveProjectConfig saves the project configuration.
func SaveProjectConfig(root string, cfg *ProjectConfig) error {
	if err := os.MkdirAll(filepath.Join(root, projectDir), 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", projectDir, err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(GetProjectConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// ProjectConfigExists checks if .scalastyle-marker/config.json exists
func ProjectConfigExists(root string) bool {
	_, err := os.Stat(GetProjectConfigPath(root))
	return err == nil
}

// Resolve builds the effective configuration for root.
// Later layers win: global config, project config, project .env file,
// process environment, then defaults fill whatever is still empty.
func Resolve(root string) (*ProjectConfig, error) {
	cfg := &ProjectConfig{}

	if global, err := LoadConfig(); err == nil {
		cfg.merge(global)
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	project, err := LoadProjectConfig(root)
	if err != nil {
		return nil, err
	}
	cfg.merge(project)

	envPath := GetProjectEnvPath(root)
	cfg.merge(&ProjectConfig{
		ReportFile: env.Lookup(envPath, env.KeyReportFile),
		Command:    env.Lookup(envPath, env.KeyCommand),
		Timeout:    env.Lookup(envPath, env.KeyTimeout),
	})

	if cfg.ReportFile == "" {
		cfg.ReportFile = DefaultReportFile
	}
	if cfg.Command == "" {
		cfg.Command = DefaultCommand
	}

	if _, err := cfg.TimeoutDuration(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// TimeoutDuration parses Timeout; zero means "use the runner default".
func (c *ProjectConfig) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	return d, nil
}

func (c *ProjectConfig) merge(other *ProjectConfig) {
	if other == nil {
		return
	}
	if other.ReportFile != "" {
		c.ReportFile = other.ReportFile
	}
	if other.Command != "" {
		c.Command = other.Command
	}
	if other.Timeout != "" {
		c.Timeout = other.Timeout
	}
	if len(other.Exclude) > 0 {
		c.Exclude = other.Exclude
	}
}
