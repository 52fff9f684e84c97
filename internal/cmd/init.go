package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/DevSymphony/scalastyle-marker/internal/ui"
	"github.com/DevSymphony/scalastyle-marker/internal/util/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize scalastyle-marker for the current project",
	Long: `Create .scalastyle-marker/config.json with the scalastyle command and
report location for this project.

This command:
  1. Asks how scalastyle is run (sbt preset or a custom command)
  2. Asks where the XML report is written
  3. Optionally registers the MCP server for AI tools`,
	RunE: runInit,
}

var (
	initForce       bool
	initDefaults    bool
	skipMCPRegister bool
	registerMCPOnly bool
)

// commandPresets are the offered ways to run scalastyle. The last entry
// asks for a custom command.
var commandPresets = []struct {
	label   string
	command string
}{
	{"sbt (main sources)", "sbt scalastyle"},
	{"sbt (main and test sources)", "sbt scalastyle test:scalastyle"},
	{"Custom command", ""},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing config.json without asking")
	initCmd.Flags().BoolVarP(&initDefaults, "yes", "y", false, "Write the default configuration without prompting")
	initCmd.Flags().BoolVar(&skipMCPRegister, "skip-mcp", false, "Skip MCP server registration prompt")
	initCmd.Flags().BoolVar(&registerMCPOnly, "register-mcp", false, "Register MCP server only (skip config init)")
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}

	// MCP registration only mode
	if registerMCPOnly {
		ui.PrintTitle("MCP", "Registering scalastyle-marker MCP server")
		promptMCPRegistration(root)
		return nil
	}

	if config.ProjectConfigExists(root) && !initForce {
		if initDefaults {
			ui.PrintWarn("config.json already exists")
			fmt.Println("Use --force flag to overwrite")
			return nil
		}
		overwrite := false
		prompt := &survey.Confirm{
			Message: fmt.Sprintf("%s already exists. Overwrite?", config.GetProjectConfigPath(root)),
			Default: false,
		}
		if err := survey.AskOne(prompt, &overwrite); err != nil || !overwrite {
			fmt.Println("Initialization cancelled")
			return nil
		}
	}

	cfg := &config.ProjectConfig{
		ReportFile: config.DefaultReportFile,
		Command:    config.DefaultCommand,
	}
	if !initDefaults {
		if err := promptProjectConfig(cfg); err != nil {
			fmt.Println("\nInitialization cancelled")
			return nil
		}
	}

	if err := config.SaveProjectConfig(root, cfg); err != nil {
		ui.PrintError(fmt.Sprintf("Failed to create config.json: %v", err))
		return err
	}
	ui.PrintOK("config.json created")
	fmt.Printf("  Location: %s\n", config.GetProjectConfigPath(root))

	if !skipMCPRegister && !initDefaults {
		promptMCPRegistration(root)
	}

	fmt.Println()
	ui.PrintOK("Initialization complete")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  Run 'scalastyle-marker run' to check the project")
	fmt.Println("  Configure your editor to start 'scalastyle-marker lsp'")
	return nil
}

// promptProjectConfig fills cfg from interactive prompts.
func promptProjectConfig(cfg *config.ProjectConfig) error {
	labels := make([]string, len(commandPresets))
	for i, p := range commandPresets {
		if p.command != "" {
			labels[i] = fmt.Sprintf("%s: %s", p.label, p.command)
		} else {
			labels[i] = p.label
		}
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}?",
		Active:   "▸ {{ . | cyan }}",
		Inactive: "  {{ . }}",
		Selected: "✓ {{ . | green }}",
	}
	selectPrompt := promptui.Select{
		Label:     "How is scalastyle run in this project",
		Items:     labels,
		Templates: templates,
		Size:      len(labels),
	}
	index, _, err := selectPrompt.Run()
	if err != nil {
		return err
	}

	cfg.Command = commandPresets[index].command
	if cfg.Command == "" {
		commandPrompt := promptui.Prompt{
			Label:    "Command",
			Default:  config.DefaultCommand,
			Validate: validateCommand,
		}
		if cfg.Command, err = commandPrompt.Run(); err != nil {
			return err
		}
	}

	reportPrompt := promptui.Prompt{
		Label:    "Report file",
		Default:  config.DefaultReportFile,
		Validate: validateReportFile,
	}
	if cfg.ReportFile, err = reportPrompt.Run(); err != nil {
		return err
	}
	return nil
}

func validateCommand(input string) error {
	if strings.TrimSpace(input) == "" {
		return errors.New("command must not be empty")
	}
	return nil
}

func validateReportFile(input string) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return errors.New("report file must not be empty")
	}
	if !strings.EqualFold(filepath.Ext(input), ".xml") {
		return errors.New("report file must be an .xml file")
	}
	return nil
}
