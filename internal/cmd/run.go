package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/DevSymphony/scalastyle-marker/internal/diagnostic"
	"github.com/DevSymphony/scalastyle-marker/internal/report"
	"github.com/DevSymphony/scalastyle-marker/internal/runner"
	"github.com/DevSymphony/scalastyle-marker/internal/ui"
)

// ErrStrict is returned by --strict runs that produced error-tier annotations.
var ErrStrict = errors.New("scalastyle reported errors")

var runStrict bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run scalastyle and print the resulting annotations",
	Long: `Run the configured scalastyle command in the project root, parse the
report it writes and print one line per annotation.

A failing command is reported as a warning; whatever report is on disk
afterwards is still shown.`,
	Example: `  scalastyle-marker run
  scalastyle-marker run --strict
  scalastyle-marker --root ./service run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, collection, root, err := newCLIPipeline()
		if err != nil {
			return err
		}

		ui.PrintTitle("Run", pipeline.Settings().Command)
		pipeline.Trigger(cmd.Context())
		if err := pipeline.Wait(cmd.Context()); err != nil {
			return fmt.Errorf("run interrupted: %w", err)
		}
		if pipeline.Report() == nil {
			ui.PrintWarn(fmt.Sprintf("No report at %s", pipeline.Settings().ReportPath()))
			return nil
		}
		return printSummary(os.Stdout, root, collection, runStrict)
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print annotations from the existing report without running scalastyle",
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, collection, root, err := newCLIPipeline()
		if err != nil {
			return err
		}

		if err := pipeline.Reload(); err != nil {
			if errors.Is(err, report.ErrReportAbsent) {
				ui.PrintWarn(fmt.Sprintf("No report at %s", pipeline.Settings().ReportPath()))
				fmt.Println("Run 'scalastyle-marker run' first")
				return nil
			}
			return err
		}
		return printSummary(os.Stdout, root, collection, runStrict)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reportCmd)

	runCmd.Flags().BoolVar(&runStrict, "strict", false, "exit non-zero when any error-tier annotation exists")
	reportCmd.Flags().BoolVar(&runStrict, "strict", false, "exit non-zero when any error-tier annotation exists")
}

func newCLIPipeline() (*runner.Pipeline, *diagnostic.Collection, string, error) {
	root, err := projectRoot()
	if err != nil {
		return nil, nil, "", err
	}
	settings, cmdRunner, err := projectSetup(root)
	if err != nil {
		return nil, nil, "", err
	}

	collection := diagnostic.NewCollection(nil)
	pipeline := runner.NewPipeline(settings, cmdRunner, collection, newLogger())
	pipeline.Warn = ui.PrintWarn
	return pipeline, collection, root, nil
}

func printSummary(w io.Writer, root string, collection *diagnostic.Collection, strict bool) error {
	errs, warns := ui.PrintAnnotations(w, root, collection)
	switch {
	case errs+warns == 0:
		fmt.Fprintln(w, ui.OK("No scalastyle annotations"))
	case errs > 0:
		fmt.Fprintln(w, ui.Error(fmt.Sprintf("%d error(s), %d warning(s) in %d file(s)", errs, warns, len(collection.Paths()))))
	default:
		fmt.Fprintln(w, ui.Warn(fmt.Sprintf("%d warning(s) in %d file(s)", warns, len(collection.Paths()))))
	}
	if strict && errs > 0 {
		return ErrStrict
	}
	return nil
}
