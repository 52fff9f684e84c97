package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/AlecAivazis/survey/v2"

	"github.com/DevSymphony/scalastyle-marker/internal/ui"
)

const mcpServerName = "scalastyle-marker"

// MCPRegistrationConfig represents the MCP configuration structure
// Used for Claude Desktop, Claude Code, Cursor
type MCPRegistrationConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
}

// VSCodeMCPConfig represents the VS Code MCP configuration structure
type VSCodeMCPConfig struct {
	Servers map[string]MCPServerConfig `json:"servers"`
	Inputs  []interface{}              `json:"inputs,omitempty"`
}

// MCPServerConfig represents a single MCP server configuration
type MCPServerConfig struct {
	Type    string   `json:"type,omitempty"`
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

var mcpApps = []struct {
	id, name string
}{
	{"claude-code", "Claude Code (project)"},
	{"cursor", "Cursor (project)"},
	{"vscode", "VS Code (project)"},
	{"claude-desktop", "Claude Desktop (global)"},
}

// promptMCPRegistration asks which apps should get the MCP server entry.
func promptMCPRegistration(root string) {
	options := make([]string, 0, len(mcpApps)+2)
	for _, app := range mcpApps {
		options = append(options, app.name)
	}
	options = append(options, "All project apps", "Skip")

	restore := useSelectTemplateNoFilter()
	defer restore()

	var selected int
	prompt := &survey.Select{
		Message: "Register scalastyle-marker as an MCP server?",
		Options: options,
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		fmt.Println("Skipped MCP registration")
		return
	}

	var apps []string
	switch {
	case selected < len(mcpApps):
		apps = []string{mcpApps[selected].id}
	case options[selected] == "All project apps":
		apps = []string{"claude-code", "cursor", "vscode"}
	default:
		fmt.Println("Skipped MCP registration")
		fmt.Println(ui.Info("Run 'scalastyle-marker init --register-mcp' to register later"))
		return
	}

	command := serverCommand()
	for _, app := range apps {
		path, err := registerMCP(root, app, command)
		if err != nil {
			ui.PrintError(fmt.Sprintf("Failed to register %s: %v", app, err))
			continue
		}
		ui.PrintOK(fmt.Sprintf("MCP server registered in %s", path))
	}
}

// serverCommand returns the command MCP clients should launch.
func serverCommand() string {
	if exe, err := os.Executable(); err == nil {
		return exe
	}
	return mcpServerName
}

// registerMCP adds or replaces the scalastyle-marker entry in app's MCP
// config and returns the file it wrote. An existing file is backed up first.
func registerMCP(root, app, command string) (string, error) {
	configPath := getMCPConfigPath(root, app)
	if configPath == "" {
		return "", fmt.Errorf("config path could not be determined for %s", app)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	existing, err := os.ReadFile(configPath)
	fileExists := err == nil
	if fileExists {
		if err := os.WriteFile(configPath+".bak", existing, 0644); err != nil {
			return "", fmt.Errorf("failed to create backup: %w", err)
		}
	}

	server := MCPServerConfig{
		Command: command,
		Args:    []string{"--root", root, "mcp"},
	}

	var data []byte
	if app == "vscode" {
		var cfg VSCodeMCPConfig
		if fileExists {
			// Invalid JSON is replaced; the backup keeps the original.
			_ = json.Unmarshal(existing, &cfg)
		}
		if cfg.Servers == nil {
			cfg.Servers = make(map[string]MCPServerConfig)
		}
		server.Type = "stdio"
		cfg.Servers[mcpServerName] = server
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		var cfg MCPRegistrationConfig
		if fileExists {
			_ = json.Unmarshal(existing, &cfg)
		}
		if cfg.MCPServers == nil {
			cfg.MCPServers = make(map[string]MCPServerConfig)
		}
		if app == "cursor" {
			server.Type = "stdio"
		}
		cfg.MCPServers[mcpServerName] = server
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return configPath, nil
}

// getMCPConfigPath returns the MCP config file path for the specified app
func getMCPConfigPath(root, app string) string {
	switch app {
	case "claude-code":
		return filepath.Join(root, ".mcp.json")
	case "cursor":
		return filepath.Join(root, ".cursor", "mcp.json")
	case "vscode":
		return filepath.Join(root, ".vscode", "mcp.json")
	case "claude-desktop":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		switch runtime.GOOS {
		case "windows":
			return filepath.Join(os.Getenv("APPDATA"), "Claude", "claude_desktop_config.json")
		case "darwin":
			return filepath.Join(homeDir, "Library", "Application Support", "Claude", "claude_desktop_config.json")
		default:
			return filepath.Join(homeDir, ".config", "Claude", "claude_desktop_config.json")
		}
	}
	return ""
}
