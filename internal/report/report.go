package report

import (
	"errors"
	"fmt"
	"strings"
)

// ErrReportAbsent is returned by Load when the report file does not exist yet.
// It means the tool has never run (or ran without producing output), which
// callers treat differently from an unreadable report.
var ErrReportAbsent = errors.New("scalastyle report not found")

// ParseError is returned when the report exists but cannot be decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to parse scalastyle report: %v", e.Err)
	}
	return fmt.Sprintf("failed to parse scalastyle report %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Report is the parsed output of one analysis run.
// A report with zero files means "no issues found".
type Report struct {
	Files []FileReport
}

// FileReport holds the issues reported for a single source file.
type FileReport struct {
	// Path is the file name as written by the tool. It is usually absolute,
	// but may be relative to the project root.
	Path   string
	Issues []Issue
}

// Issue is one reported finding.
type Issue struct {
	// Line is 1-based; nil when the tool did not report a line.
	Line *int

	// Column is a 0-based offset within the line; nil means "whole line".
	Column *int

	Severity string
	Message  string

	// Source is the checker class (e.g. "org.scalastyle.file.FileLineLengthChecker").
	Source string
}

// LineNumber returns the 1-based line, defaulting to 1.
func (i Issue) LineNumber() int {
	if i.Line == nil {
		return 1
	}
	return *i.Line
}

// ColumnOffset returns the column and whether the tool reported one.
func (i Issue) ColumnOffset() (int, bool) {
	if i.Column == nil {
		return 0, false
	}
	return *i.Column, true
}

// RuleID extracts a short rule id from the checker class.
// Example: "org.scalastyle.file.FileLineLengthChecker" -> "FileLineLength"
func (i Issue) RuleID() string {
	if i.Source == "" {
		return ""
	}
	parts := strings.Split(i.Source, ".")
	last := parts[len(parts)-1]
	return strings.TrimSuffix(last, "Checker")
}

// IssueCount returns the total number of issues across all files.
func (r *Report) IssueCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, f := range r.Files {
		n += len(f.Issues)
	}
	return n
}
