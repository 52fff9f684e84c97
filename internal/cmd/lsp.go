package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/DevSymphony/scalastyle-marker/internal/lsp"
)

var lspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Start the language server on stdio",
	Long: `Start a Language Server Protocol server on stdin/stdout.

The server runs scalastyle once after initialization, again on every
save and on the 'scalastyle-marker.scalastyle' command, and publishes
the report as diagnostics. Client settings under "scalastyle-marker"
(scalastyleOutputFile, scalastyleCommand) override the project config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}

		server := lsp.NewServer(os.Stdin, os.Stdout, lsp.ServerOptions{
			Root:      root,
			Configure: projectSetup,
			Log:       newLogger(),
			Version:   version,
		})
		err = server.Run(cmd.Context())
		if errors.Is(err, lsp.ErrExit) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(lspCmd)
}
