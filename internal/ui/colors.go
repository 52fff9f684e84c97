package ui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/term"

	"github.com/DevSymphony/scalastyle-marker/internal/diagnostic"
)

// ANSI color codes
const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Cyan   = "\033[36m"
	Bold   = "\033[1m"
)

// isTTY checks if stdout is a terminal
func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// colorize applies color only if output is a TTY
func colorize(color, msg string) string {
	if !isTTY() {
		return msg
	}
	return color + msg + Reset
}

// OK formats a success message with [OK] prefix in green
func OK(msg string) string {
	return fmt.Sprintf("%s %s", colorize(Green, "[OK]"), msg)
}

// Error formats an error message with [ERROR] prefix in red
func Error(msg string) string {
	return fmt.Sprintf("%s %s", colorize(Red, "[ERROR]"), msg)
}

// Warn formats a warning message with [WARN] prefix in yellow
func Warn(msg string) string {
	return fmt.Sprintf("%s %s", colorize(Yellow, "[WARN]"), msg)
}

// Info formats an info message with [INFO] prefix in blue
func Info(msg string) string {
	return fmt.Sprintf("%s %s", colorize(Blue, "[INFO]"), msg)
}

// TitleWithDesc formats a section title with description
func TitleWithDesc(title, desc string) string {
	prefix := colorize(Bold+Cyan, fmt.Sprintf("[%s]", title))
	return fmt.Sprintf("%s %s", prefix, desc)
}

// PrintOK prints a success message
func PrintOK(msg string) {
	fmt.Println(OK(msg))
}

// PrintError prints an error message
func PrintError(msg string) {
	fmt.Println(Error(msg))
}

// PrintWarn prints a warning message
func PrintWarn(msg string) {
	fmt.Println(Warn(msg))
}

// PrintTitle prints a section title
func PrintTitle(title, desc string) {
	fmt.Println(TitleWithDesc(title, desc))
}

// Tier renders an annotation tier label.
func Tier(t diagnostic.Tier) string {
	if t == diagnostic.TierWarning {
		return colorize(Yellow, "warning")
	}
	return colorize(Red, "error")
}

// FormatAnnotation renders one annotation as "path:line:col: tier: message [code]".
// path is shown relative to root when possible.
func FormatAnnotation(root, path string, a diagnostic.Annotation) string {
	if root != "" {
		if rel, err := filepath.Rel(root, path); err == nil {
			path = rel
		}
	}
	line := fmt.Sprintf("%s:%d:%d: %s: %s", path, a.Range.StartLine+1, a.Range.StartCol+1, Tier(a.Tier), a.Message)
	if a.Code != "" {
		line += " " + colorize(Cyan, "["+a.Code+"]")
	}
	return line
}

// PrintAnnotations writes every annotation grouped by path in sorted order
// and returns the number of error-tier and warning-tier entries.
func PrintAnnotations(w io.Writer, root string, c *diagnostic.Collection) (errors, warnings int) {
	snapshot := c.Snapshot()
	for _, path := range c.Paths() {
		for _, a := range snapshot[path] {
			fmt.Fprintln(w, FormatAnnotation(root, path, a))
			if a.Tier == diagnostic.TierWarning {
				warnings++
			} else {
				errors++
			}
		}
	}
	return errors, warnings
}
