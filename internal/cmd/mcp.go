package cmd

import (
	"github.com/spf13/cobra"

	"github.com/DevSymphony/scalastyle-marker/internal/diagnostic"
	"github.com/DevSymphony/scalastyle-marker/internal/mcp"
	"github.com/DevSymphony/scalastyle-marker/internal/runner"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server to integrate with LLM tools",
	Long: `Start Model Context Protocol (MCP) server.
LLM-based coding tools can run scalastyle and read its annotations through stdio.

Tools provided by MCP server:
- run_scalastyle: Run scalastyle and return the annotations
- list_diagnostics: List annotations from the existing report

Register it with 'scalastyle-marker init --register-mcp'.`,
	Example: `  scalastyle-marker mcp
  scalastyle-marker --root ./service mcp`,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}
		settings, cmdRunner, err := projectSetup(root)
		if err != nil {
			return err
		}

		log := newLogger()
		collection := diagnostic.NewCollection(nil)
		pipeline := runner.NewPipeline(settings, cmdRunner, collection, log)
		return mcp.NewServer(pipeline, collection, log, version).Start(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
