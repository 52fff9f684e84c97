package mcp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/DevSymphony/scalastyle-marker/internal/diagnostic"
	"github.com/DevSymphony/scalastyle-marker/internal/report"
	"github.com/DevSymphony/scalastyle-marker/internal/runner"
)

// Server is a MCP (Model Context Protocol) server.
// It communicates via JSON-RPC over stdio.
type Server struct {
	pipeline   *runner.Pipeline
	collection *diagnostic.Collection
	log        logrus.FieldLogger
	version    string

	mu       sync.Mutex
	warnings []string
}

// NewServer creates a MCP server driving pipeline, which must publish
// into collection.
func NewServer(pipeline *runner.Pipeline, collection *diagnostic.Collection, log logrus.FieldLogger, version string) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		pipeline:   pipeline,
		collection: collection,
		log:        log.WithField("component", "mcp"),
		version:    version,
	}
	pipeline.Warn = s.recordWarning
	return s
}

// Start serves MCP over stdio until the client disconnects or ctx is done.
func (s *Server) Start(ctx context.Context) error {
	settings := s.pipeline.Settings()
	s.log.WithFields(logrus.Fields{
		"root":    settings.Root,
		"command": settings.Command,
	}).Info("MCP server started (stdio mode), tools: run_scalastyle, list_diagnostics")

	return s.runStdioWithSDK(ctx)
}

// RPCError is an error type used for internal error handling.
type RPCError struct {
	Code    int
	Message string
}

// RunScalastyleInput represents the input schema for the run_scalastyle tool (go-sdk).
type RunScalastyleInput struct {
	Path string `json:"path,omitempty" jsonschema:"Only report annotations for this file or directory (optional). Relative paths are resolved against the project root."`
}

// ListDiagnosticsInput represents the input schema for the list_diagnostics tool (go-sdk).
type ListDiagnosticsInput struct {
	Path string `json:"path,omitempty" jsonschema:"Only list annotations for this file or directory (optional). Relative paths are resolved against the project root."`
}

func (s *Server) runStdioWithSDK(ctx context.Context) error {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "scalastyle-marker",
		Version: s.version,
	}, nil)

	// Tool: run_scalastyle
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "run_scalastyle",
		Description: "Run the project's scalastyle command and return the resulting style annotations. Call after editing Scala sources.",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, input RunScalastyleInput) (*sdkmcp.CallToolResult, map[string]any, error) {
		result, rpcErr := s.handleRunScalastyle(ctx, input)
		if rpcErr != nil {
			return &sdkmcp.CallToolResult{IsError: true}, nil, fmt.Errorf("%s", rpcErr.Message)
		}
		return nil, result, nil
	})

	// Tool: list_diagnostics
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_diagnostics",
		Description: "List the annotations from the existing scalastyle report without running the tool.",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, input ListDiagnosticsInput) (*sdkmcp.CallToolResult, map[string]any, error) {
		result, rpcErr := s.handleListDiagnostics(input)
		if rpcErr != nil {
			return &sdkmcp.CallToolResult{IsError: true}, nil, fmt.Errorf("%s", rpcErr.Message)
		}
		return nil, result, nil
	})

	return server.Run(ctx, &sdkmcp.StdioTransport{})
}

func (s *Server) handleRunScalastyle(ctx context.Context, input RunScalastyleInput) (map[string]any, *RPCError) {
	s.takeWarnings()
	s.pipeline.Trigger(ctx)
	if err := s.pipeline.Wait(ctx); err != nil {
		return nil, &RPCError{
			Code:    -32603,
			Message: fmt.Sprintf("scalastyle run did not finish: %v", err),
		}
	}

	var text strings.Builder
	for _, w := range s.takeWarnings() {
		fmt.Fprintf(&text, "Warning: %s\n\n", w)
	}
	if s.pipeline.Report() == nil {
		fmt.Fprintf(&text, "No scalastyle report at %s.\n", s.pipeline.Settings().ReportPath())
		return textResult(text.String()), nil
	}
	text.WriteString(s.formatAnnotations(input.Path))
	return textResult(text.String()), nil
}

func (s *Server) handleListDiagnostics(input ListDiagnosticsInput) (map[string]any, *RPCError) {
	err := s.pipeline.Reload()
	switch {
	case errors.Is(err, report.ErrReportAbsent):
		return textResult(fmt.Sprintf("No scalastyle report at %s. Call run_scalastyle first.", s.pipeline.Settings().ReportPath())), nil
	case err != nil:
		return nil, &RPCError{
			Code:    -32603,
			Message: err.Error(),
		}
	}
	return textResult(s.formatAnnotations(input.Path)), nil
}

// formatAnnotations renders the published set, optionally limited to
// annotations under filter.
func (s *Server) formatAnnotations(filter string) string {
	root := s.pipeline.Settings().Root
	if filter != "" && !filepath.IsAbs(filter) {
		filter = filepath.Join(root, filter)
	}
	filter = filepath.Clean(filter)

	snapshot := s.collection.Snapshot()
	var lines []string
	files, errs, warns := 0, 0, 0
	for _, path := range s.collection.Paths() {
		if filter != "." && path != filter && !strings.HasPrefix(path, filter+string(filepath.Separator)) {
			continue
		}
		files++
		display := path
		if rel, err := filepath.Rel(root, path); err == nil {
			display = rel
		}
		for _, a := range snapshot[path] {
			if a.Tier == diagnostic.TierWarning {
				warns++
			} else {
				errs++
			}
			line := fmt.Sprintf("%s:%d:%d [%s] %s", display, a.Range.StartLine+1, a.Range.StartCol+1, a.Tier, a.Message)
			if a.Code != "" {
				line += " (" + a.Code + ")"
			}
			lines = append(lines, line)
		}
	}

	if len(lines) == 0 {
		return "No scalastyle annotations found."
	}
	return fmt.Sprintf("Found %d annotation(s) in %d file(s): %d error(s), %d warning(s)\n\n%s\n",
		len(lines), files, errs, warns, strings.Join(lines, "\n"))
}

func (s *Server) recordWarning(msg string) {
	s.log.Warn(msg)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, msg)
}

func (s *Server) takeWarnings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.warnings
	s.warnings = nil
	return out
}

func textResult(text string) map[string]any {
	return map[string]any{
		"content": []map[string]any{
			{
				"type": "text",
				"text": text,
			},
		},
	}
}
