package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/DevSymphony/scalastyle-marker/internal/git"
	"github.com/DevSymphony/scalastyle-marker/internal/logging"
	"github.com/DevSymphony/scalastyle-marker/internal/runner"
	"github.com/DevSymphony/scalastyle-marker/internal/util/config"
)

var (
	// verbose is a global flag for verbose output
	verbose bool

	// rootDir overrides project root detection
	rootDir string
)

var rootCmd = &cobra.Command{
	Use:   "scalastyle-marker",
	Short: "scalastyle-marker - scalastyle results as editor annotations",
	Long: `scalastyle-marker runs scalastyle for a Scala project and turns its
checkstyle-format XML report into editor annotations.

Features:
  - One-shot runs from the command line (run, report)
  - A language server publishing annotations to any LSP editor (lsp)
  - An MCP server exposing runs to AI coding tools (mcp)`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "project root (default: git root, then working directory)")
}

// newLogger returns the process logger. Logs go to stderr so stdout stays
// free for protocol traffic.
func newLogger() *logrus.Logger {
	return logging.New(os.Stderr, verbose)
}

func projectRoot() (string, error) {
	root, err := git.ProjectRoot(rootDir)
	if err != nil {
		return "", fmt.Errorf("failed to determine project root: %w", err)
	}
	return root, nil
}

// projectSetup resolves the layered configuration for root into pipeline
// settings and a shell runner honouring the configured timeout.
func projectSetup(root string) (runner.Settings, runner.CommandRunner, error) {
	cfg, err := config.Resolve(root)
	if err != nil {
		return runner.Settings{}, nil, err
	}
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return runner.Settings{}, nil, err
	}

	shell := runner.NewShellRunner()
	if timeout > 0 {
		shell.Timeout = timeout
	}
	return runner.Settings{
		Root:       root,
		ReportFile: cfg.ReportFile,
		Command:    cfg.Command,
		Exclude:    cfg.Exclude,
	}, shell, nil
}
