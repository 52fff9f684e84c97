package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DevSymphony/scalastyle-marker/internal/ui"
	"github.com/DevSymphony/scalastyle-marker/internal/util/config"
	"github.com/DevSymphony/scalastyle-marker/internal/util/env"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or override the effective configuration",
	Long: `Show the configuration scalastyle-marker would use for this project.

Values are layered, later layers win:
  1. ~/.config/scalastyle-marker/config.json
  2. .scalastyle-marker/config.json
  3. .scalastyle-marker/.env
  4. process environment (SCALASTYLE_MARKER_*)`,
	Example: `  scalastyle-marker config
  scalastyle-marker config --env SCALASTYLE_MARKER_COMMAND="sbt scalastyle test:scalastyle"`,
	RunE: runConfig,
}

var configEnv []string

var envKeys = []string{env.KeyReportFile, env.KeyCommand, env.KeyTimeout}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().StringArrayVar(&configEnv, "env", nil, "set KEY=VALUE in .scalastyle-marker/.env (repeatable)")
}

func runConfig(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}

	for _, pair := range configEnv {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || !isEnvKey(key) {
			return fmt.Errorf("invalid --env %q: expected one of %s as KEY=VALUE", pair, strings.Join(envKeys, ", "))
		}
		if err := env.SaveKeyToEnvFile(config.GetProjectEnvPath(root), key, value); err != nil {
			return fmt.Errorf("failed to save %s: %w", key, err)
		}
		ui.PrintOK(fmt.Sprintf("%s saved to %s", key, config.GetProjectEnvPath(root)))
	}

	cfg, err := config.Resolve(root)
	if err != nil {
		return err
	}

	ui.PrintTitle("Config", "Effective configuration")
	fmt.Printf("  Project root: %s\n", root)
	fmt.Printf("  Report file:  %s\n", cfg.ReportFile)
	fmt.Printf("  Command:      %s\n", cfg.Command)
	timeout := cfg.Timeout
	if timeout == "" {
		timeout = "default"
	}
	fmt.Printf("  Timeout:      %s\n", timeout)
	if len(cfg.Exclude) > 0 {
		fmt.Printf("  Exclude:      %s\n", strings.Join(cfg.Exclude, ", "))
	}

	fmt.Println()
	ui.PrintTitle("Files", "Configuration sources")
	fmt.Printf("  Global:  %s\n", config.GetConfigPath())
	fmt.Printf("  Project: %s", config.GetProjectConfigPath(root))
	if !config.ProjectConfigExists(root) {
		fmt.Print(" (not found)")
	}
	fmt.Println()
	fmt.Printf("  Env:     %s\n", config.GetProjectEnvPath(root))
	return nil
}

func isEnvKey(key string) bool {
	for _, k := range envKeys {
		if k == key {
			return true
		}
	}
	return false
}
