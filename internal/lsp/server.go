package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"fortio.org/safecast"
	"github.com/sirupsen/logrus"

	"github.com/DevSymphony/scalastyle-marker/internal/diagnostic"
	"github.com/DevSymphony/scalastyle-marker/internal/runner"
	"github.com/DevSymphony/scalastyle-marker/internal/util/config"
)

const (
	// CommandRun is the executeCommand identifier that triggers a run.
	CommandRun = "scalastyle-marker.scalastyle"

	methodActiveEditor = "scalastyle-marker/didChangeActiveEditor"
)

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("lsp exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("lsp exit without shutdown")
)

// ConfigureFunc builds the pipeline settings and command runner for a
// project root once the client has announced it.
type ConfigureFunc func(root string) (runner.Settings, runner.CommandRunner, error)

// ServerOptions configures LSP server behavior.
type ServerOptions struct {
	// Root is used when the client does not send a workspace root.
	Root      string
	Configure ConfigureFunc
	Log       logrus.FieldLogger
	Version   string
}

// Server handles stdio JSON-RPC and publishes scalastyle annotations as
// LSP diagnostics.
type Server struct {
	in        *bufio.Reader
	out       *bufio.Writer
	sendMu    sync.Mutex
	log       logrus.FieldLogger
	configure ConfigureFunc
	version   string
	closed    atomic.Bool

	mu                sync.Mutex
	root              string
	openDocs          map[string]string
	active            string
	base              runner.Settings
	overrides         runner.Settings
	pipeline          *runner.Pipeline
	collection        *diagnostic.Collection
	shutdownRequested bool
	baseCtx           context.Context
}

// NewServer constructs a new LSP server.
func NewServer(in io.Reader, out io.Writer, opts ServerOptions) *Server {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	configure := opts.Configure
	if configure == nil {
		configure = defaultConfigure
	}
	s := &Server{
		in:        bufio.NewReader(in),
		out:       bufio.NewWriter(out),
		log:       log.WithField("component", "lsp"),
		configure: configure,
		version:   opts.Version,
		root:      opts.Root,
		openDocs:  make(map[string]string),
		baseCtx:   context.Background(),
	}
	s.collection = diagnostic.NewCollection(s)
	return s
}

func defaultConfigure(root string) (runner.Settings, runner.CommandRunner, error) {
	return runner.Settings{
		Root:       root,
		ReportFile: config.DefaultReportFile,
		Command:    config.DefaultCommand,
	}, runner.NewShellRunner(), nil
}

// Run serves LSP requests until exit or end of input.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()
	for {
		payload, err := readMessage(s.in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.log.WithError(err).Warn("failed to parse message")
			continue
		}
		if msg.Method == "" {
			continue
		}
		if err := s.handleMessage(&msg); err != nil {
			return err
		}
	}
}

// Collection returns the published annotation set.
func (s *Server) Collection() *diagnostic.Collection {
	return s.collection
}

// Pipeline returns the project pipeline, or nil before initialize.
func (s *Server) Pipeline() *runner.Pipeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pipeline
}

func (s *Server) handleMessage(msg *rpcMessage) error {
	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		s.trigger()
		return nil
	case "shutdown":
		return s.handleShutdown(msg)
	case "exit":
		s.mu.Lock()
		requested := s.shutdownRequested
		s.mu.Unlock()
		if requested {
			return ErrExit
		}
		return ErrExitWithoutShutdown
	case "workspace/didChangeConfiguration":
		return s.handleDidChangeConfiguration(msg)
	case "workspace/executeCommand":
		return s.handleExecuteCommand(msg)
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/didSave":
		return s.handleDidSave(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case methodActiveEditor:
		return s.handleActiveEditor(msg)
	default:
		if len(msg.ID) > 0 {
			return s.sendError(msg.ID, codeMethodNotFound, "method not found")
		}
		return nil
	}
}

func (s *Server) handleInitialize(msg *rpcMessage) error {
	var params initializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.sendError(msg.ID, codeInvalidParams, "invalid params")
		}
	}
	root := uriToPath(params.RootURI)
	if root == "" && params.RootPath != "" {
		root = params.RootPath
	}
	if root == "" && len(params.WorkspaceFolders) > 0 {
		root = uriToPath(params.WorkspaceFolders[0].URI)
	}
	if root == "" {
		root = s.root
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	settings, cmdRunner, err := s.configure(root)
	if err != nil {
		s.log.WithError(err).Warn("invalid configuration, using defaults")
		s.showWarning("scalastyle-marker: " + err.Error())
		settings, cmdRunner, _ = defaultConfigure(root)
	}

	pipeline := runner.NewPipeline(settings, cmdRunner, s.collection, s.log)
	pipeline.Warn = s.showWarning

	s.mu.Lock()
	s.root = root
	s.base = settings
	pipeline.UpdateSettings(func(cur *runner.Settings) {
		*cur = withOverrides(settings, s.overrides)
	})
	s.pipeline = pipeline
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"root":    root,
		"report":  settings.ReportFile,
		"command": settings.Command,
	}).Info("initialized")

	return s.sendResponse(msg.ID, initializeResult{
		Capabilities: serverCapabilities{
			TextDocumentSync: textDocumentSyncOptions{
				OpenClose: true,
				Change:    2,
			},
			ExecuteCommandProvider: executeCommandOptions{
				Commands: []string{CommandRun},
			},
		},
		ServerInfo: serverInfo{Name: "scalastyle-marker", Version: s.version},
	})
}

func (s *Server) handleShutdown(msg *rpcMessage) error {
	s.mu.Lock()
	s.shutdownRequested = true
	s.mu.Unlock()
	s.collection.Clear()
	s.closed.Store(true)
	return s.sendResponse(msg.ID, nil)
}

func (s *Server) handleExecuteCommand(msg *rpcMessage) error {
	var params executeCommandParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	if params.Command != CommandRun {
		return s.sendError(msg.ID, codeInvalidParams, "unknown command: "+params.Command)
	}
	s.trigger()
	return s.sendResponse(msg.ID, nil)
}

// invalidParams drops a message whose params do not decode. Requests get
// an error reply; notifications are only logged so the session survives.
func (s *Server) invalidParams(msg *rpcMessage, err error) error {
	s.log.WithError(err).WithField("method", msg.Method).Warn("ignoring malformed params")
	if len(msg.ID) > 0 {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	return nil
}

func (s *Server) handleDidOpen(msg *rpcMessage) error {
	var params didOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.invalidParams(msg, err)
	}
	path := uriToPath(params.TextDocument.URI)
	if path == "" {
		return nil
	}
	s.mu.Lock()
	s.openDocs[path] = params.TextDocument.Text
	s.mu.Unlock()
	s.setActive(path)
	return nil
}

func (s *Server) handleDidChange(msg *rpcMessage) error {
	var params didChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.invalidParams(msg, err)
	}
	path := uriToPath(params.TextDocument.URI)
	if path == "" {
		return nil
	}
	s.mu.Lock()
	text := applyChanges(s.openDocs[path], params.ContentChanges)
	s.openDocs[path] = text
	pipeline := s.pipeline
	s.mu.Unlock()
	if pipeline != nil {
		pipeline.UpdateActiveText(path, text)
	}
	return nil
}

func (s *Server) handleDidSave(msg *rpcMessage) error {
	var params didSaveTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.invalidParams(msg, err)
	}
	path := uriToPath(params.TextDocument.URI)
	if path == "" {
		return nil
	}
	if params.Text != nil {
		s.mu.Lock()
		s.openDocs[path] = *params.Text
		pipeline := s.pipeline
		s.mu.Unlock()
		if pipeline != nil {
			pipeline.UpdateActiveText(path, *params.Text)
		}
	}
	s.trigger()
	return nil
}

func (s *Server) handleDidClose(msg *rpcMessage) error {
	var params didCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.invalidParams(msg, err)
	}
	path := uriToPath(params.TextDocument.URI)
	if path == "" {
		return nil
	}
	s.mu.Lock()
	delete(s.openDocs, path)
	wasActive := s.active == path
	s.mu.Unlock()
	if wasActive {
		s.setActive("")
	}
	return nil
}

func (s *Server) handleActiveEditor(msg *rpcMessage) error {
	var params activeEditorParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.invalidParams(msg, err)
		}
	}
	s.setActive(uriToPath(params.URI))
	return nil
}

// setActive records the focused file and republishes the last report
// against it. Files the client has not opened are read from disk.
func (s *Server) setActive(path string) {
	s.mu.Lock()
	s.active = path
	text, open := s.openDocs[path]
	pipeline := s.pipeline
	s.mu.Unlock()

	if pipeline == nil {
		return
	}
	if path == "" {
		pipeline.SetActive(nil)
		return
	}
	if !open {
		data, err := os.ReadFile(path)
		if err != nil {
			pipeline.SetActive(nil)
			return
		}
		text = string(data)
	}
	pipeline.SetActive(&diagnostic.ActiveDocument{Path: path, Text: text})
}

func (s *Server) trigger() {
	s.mu.Lock()
	pipeline := s.pipeline
	ctx := s.baseCtx
	s.mu.Unlock()
	if pipeline == nil {
		s.log.Debug("run requested before initialize, ignoring")
		return
	}
	pipeline.Trigger(ctx)
}

// Publish implements diagnostic.Sink.
func (s *Server) Publish(path string, annotations []diagnostic.Annotation) {
	if s.closed.Load() {
		return
	}
	list := make([]lspDiagnostic, 0, len(annotations))
	for _, a := range annotations {
		list = append(list, toLSPDiagnostic(a))
	}
	if err := s.sendPublish(pathToURI(path), list); err != nil {
		s.log.WithError(err).Warn("failed to publish diagnostics")
	}
}

func toLSPDiagnostic(a diagnostic.Annotation) lspDiagnostic {
	severity := severityError
	if a.Tier == diagnostic.TierWarning {
		severity = severityWarning
	}
	return lspDiagnostic{
		Range: wireRange{
			Start: wirePosition{Line: toUint(a.Range.StartLine), Character: toUint(a.Range.StartCol)},
			End:   wirePosition{Line: toUint(a.Range.EndLine), Character: toUint(a.Range.EndCol)},
		},
		Severity: severity,
		Code:     a.Code,
		Source:   a.Source,
		Message:  a.Message,
	}
}

func toUint(v int) uint32 {
	n, err := safecast.Conv[uint32](v)
	if err != nil {
		if v < 0 {
			return 0
		}
		return ^uint32(0)
	}
	return n
}

func (s *Server) showWarning(message string) {
	if s.closed.Load() {
		return
	}
	err := s.send(map[string]any{
		"jsonrpc": "2.0",
		"method":  "window/showMessage",
		"params":  showMessageParams{Type: messageTypeWarning, Message: message},
	})
	if err != nil {
		s.log.WithError(err).Warn("failed to show message")
	}
}

func (s *Server) sendResponse(id json.RawMessage, result any) error {
	return s.send(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	})
}

func (s *Server) sendError(id json.RawMessage, code int, message string) error {
	return s.send(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error":   rpcError{Code: code, Message: message},
	})
}

func (s *Server) sendPublish(uri string, list []lspDiagnostic) error {
	return s.send(map[string]any{
		"jsonrpc": "2.0",
		"method":  "textDocument/publishDiagnostics",
		"params":  publishDiagnosticsParams{URI: uri, Diagnostics: list},
	})
}

func (s *Server) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := writeMessage(s.out, payload); err != nil {
		return err
	}
	return s.out.Flush()
}
