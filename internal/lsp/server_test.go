package lsp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevSymphony/scalastyle-marker/internal/runner"
)

// reportRunner writes a canned report into the project on every run.
type reportRunner struct {
	mu     sync.Mutex
	calls  int
	report string
	fail   bool
}

func (r *reportRunner) Run(ctx context.Context, dir, command string) (*runner.Output, error) {
	r.mu.Lock()
	r.calls++
	report, fail := r.report, r.fail
	r.mu.Unlock()

	if fail {
		out := &runner.Output{ExitCode: 1, Stderr: "[error] scalastyle config missing\n"}
		return out, &runner.CommandError{Command: command, Output: out}
	}
	path := filepath.Join(dir, "target", "scalastyle-result.xml")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(report), 0644); err != nil {
		return nil, err
	}
	return &runner.Output{}, nil
}

func (r *reportRunner) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func checkstyle(file string, errs ...string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<checkstyle version="5.0">
 <file name="%s">
  %s
 </file>
</checkstyle>`, file, strings.Join(errs, "\n  "))
}

type harness struct {
	server *Server
	out    *bytes.Buffer
	root   string
	runner *reportRunner
	nextID int
}

func newHarness(t *testing.T, r *reportRunner) *harness {
	t.Helper()
	logger, _ := test.NewNullLogger()
	root := t.TempDir()
	out := &bytes.Buffer{}
	s := NewServer(bytes.NewReader(nil), out, ServerOptions{
		Root: root,
		Log:  logger,
		Configure: func(root string) (runner.Settings, runner.CommandRunner, error) {
			return runner.Settings{
				Root:       root,
				ReportFile: "target/scalastyle-result.xml",
				Command:    "sbt scalastyle",
			}, r, nil
		},
	})
	return &harness{server: s, out: out, root: root, runner: r}
}

func (h *harness) request(t *testing.T, method string, params any) json.RawMessage {
	t.Helper()
	h.nextID++
	id := json.RawMessage(fmt.Sprintf("%d", h.nextID))
	require.NoError(t, h.server.handleMessage(&rpcMessage{ID: id, Method: method, Params: marshal(t, params)}))
	return id
}

func (h *harness) notify(t *testing.T, method string, params any) {
	t.Helper()
	require.NoError(t, h.server.handleMessage(&rpcMessage{Method: method, Params: marshal(t, params)}))
}

func (h *harness) initialize(t *testing.T) {
	t.Helper()
	h.request(t, "initialize", initializeParams{RootURI: pathToURI(h.root)})
}

func (h *harness) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.server.Pipeline().Wait(ctx))
}

// drain returns every message written since the last drain.
func (h *harness) drain(t *testing.T) []rpcMessage {
	t.Helper()
	reader := bufio.NewReader(bytes.NewReader(h.out.Bytes()))
	h.out.Reset()
	var msgs []rpcMessage
	for {
		payload, err := readMessage(reader)
		if errors.Is(err, io.EOF) {
			return msgs
		}
		require.NoError(t, err)
		var msg rpcMessage
		require.NoError(t, json.Unmarshal(payload, &msg))
		msgs = append(msgs, msg)
	}
}

func publishes(t *testing.T, msgs []rpcMessage) []publishDiagnosticsParams {
	t.Helper()
	var out []publishDiagnosticsParams
	for _, msg := range msgs {
		if msg.Method != "textDocument/publishDiagnostics" {
			continue
		}
		var params publishDiagnosticsParams
		require.NoError(t, json.Unmarshal(msg.Params, &params))
		out = append(out, params)
	}
	return out
}

func marshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestInitialize_Capabilities(t *testing.T) {
	h := newHarness(t, &reportRunner{})
	id := h.request(t, "initialize", initializeParams{RootURI: pathToURI(h.root)})

	msgs := h.drain(t)
	require.Len(t, msgs, 1)
	assert.Equal(t, string(id), string(msgs[0].ID))

	var result initializeResult
	require.NoError(t, json.Unmarshal(msgs[0].Result, &result))
	assert.Equal(t, []string{CommandRun}, result.Capabilities.ExecuteCommandProvider.Commands)
	assert.True(t, result.Capabilities.TextDocumentSync.OpenClose)
	assert.Equal(t, "scalastyle-marker", result.ServerInfo.Name)

	assert.Equal(t, h.root, h.server.Pipeline().Settings().Root)
	assert.Zero(t, h.runner.Calls(), "initialize must not run the tool")
}

func TestInitialized_RunsOnceAndPublishes(t *testing.T) {
	r := &reportRunner{}
	h := newHarness(t, r)
	file := filepath.Join(h.root, "src", "A.scala")
	r.report = checkstyle(file,
		`<error line="3" column="4" severity="warning" message="magic number" source="org.scalastyle.scalariform.MagicNumberChecker"/>`,
		`<error line="1" severity="error" message="header mismatch"/>`,
	)
	h.initialize(t)
	h.drain(t)

	h.notify(t, "initialized", struct{}{})
	h.wait(t)

	assert.Equal(t, 1, r.Calls())
	pubs := publishes(t, h.drain(t))
	require.Len(t, pubs, 1)
	assert.Equal(t, pathToURI(file), pubs[0].URI)
	require.Len(t, pubs[0].Diagnostics, 2)

	first := pubs[0].Diagnostics[0]
	assert.Equal(t, wireRange{Start: wirePosition{2, 4}, End: wirePosition{2, 5}}, first.Range)
	assert.Equal(t, severityWarning, first.Severity)
	assert.Equal(t, "scalastyle", first.Source)
	assert.Equal(t, "MagicNumber", first.Code)
	assert.Equal(t, "magic number", first.Message)

	second := pubs[0].Diagnostics[1]
	assert.Equal(t, wireRange{Start: wirePosition{0, 0}, End: wirePosition{0, 1}}, second.Range)
	assert.Equal(t, severityError, second.Severity)
}

func TestDidOpen_RepublishesWithoutRun(t *testing.T) {
	r := &reportRunner{}
	h := newHarness(t, r)
	file := filepath.Join(h.root, "A.scala")
	r.report = checkstyle(file, `<error line="2" severity="error" message="no tabs"/>`)
	h.initialize(t)
	h.notify(t, "initialized", nil)
	h.wait(t)
	h.drain(t)

	h.notify(t, "textDocument/didOpen", didOpenTextDocumentParams{
		TextDocument: textDocumentItem{URI: pathToURI(file), Version: 1, Text: "object A {\n\tval x = 1\n}\n"},
	})

	pubs := publishes(t, h.drain(t))
	require.Len(t, pubs, 1)
	require.Len(t, pubs[0].Diagnostics, 1)
	assert.Equal(t, wireRange{Start: wirePosition{1, 0}, End: wirePosition{1, 10}}, pubs[0].Diagnostics[0].Range)
	assert.Equal(t, 1, r.Calls())
}

func TestActiveEditor_ReadsUnopenedFileFromDisk(t *testing.T) {
	r := &reportRunner{}
	h := newHarness(t, r)
	file := filepath.Join(h.root, "B.scala")
	require.NoError(t, os.WriteFile(file, []byte("class B\n"), 0644))
	r.report = checkstyle(file, `<error line="1" severity="warning" message="missing doc"/>`)
	h.initialize(t)
	h.notify(t, "initialized", nil)
	h.wait(t)
	h.drain(t)

	h.notify(t, methodActiveEditor, activeEditorParams{URI: pathToURI(file)})
	pubs := publishes(t, h.drain(t))
	require.Len(t, pubs, 1)
	assert.Equal(t, uint32(7), pubs[0].Diagnostics[0].Range.End.Character)

	h.notify(t, methodActiveEditor, activeEditorParams{})
	pubs = publishes(t, h.drain(t))
	require.Len(t, pubs, 1)
	assert.Equal(t, uint32(1), pubs[0].Diagnostics[0].Range.End.Character)
}

func TestDidSave_TriggersRun(t *testing.T) {
	r := &reportRunner{report: checkstyle("A.scala")}
	h := newHarness(t, r)
	h.initialize(t)
	h.notify(t, "initialized", nil)
	h.wait(t)

	h.notify(t, "textDocument/didSave", didSaveTextDocumentParams{
		TextDocument: textDocumentIdentifier{URI: pathToURI(filepath.Join(h.root, "A.scala"))},
	})
	h.wait(t)
	assert.Equal(t, 2, r.Calls())
}

func TestExecuteCommand(t *testing.T) {
	r := &reportRunner{report: checkstyle("A.scala")}
	h := newHarness(t, r)
	h.initialize(t)
	h.drain(t)

	id := h.request(t, "workspace/executeCommand", executeCommandParams{Command: CommandRun})
	h.wait(t)
	assert.Equal(t, 1, r.Calls())

	msgs := h.drain(t)
	require.NotEmpty(t, msgs)
	assert.Equal(t, string(id), string(msgs[0].ID))
	assert.Nil(t, msgs[0].Error)

	h.request(t, "workspace/executeCommand", executeCommandParams{Command: "other.command"})
	msgs = h.drain(t)
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].Error)
	assert.Equal(t, codeInvalidParams, msgs[0].Error.Code)
}

func TestCommandFailure_ShowsWarning(t *testing.T) {
	r := &reportRunner{fail: true}
	h := newHarness(t, r)
	h.initialize(t)
	h.drain(t)

	h.notify(t, "initialized", nil)
	h.wait(t)

	var warnings []showMessageParams
	for _, msg := range h.drain(t) {
		if msg.Method != "window/showMessage" {
			continue
		}
		var params showMessageParams
		require.NoError(t, json.Unmarshal(msg.Params, &params))
		warnings = append(warnings, params)
	}
	require.Len(t, warnings, 1)
	assert.Equal(t, messageTypeWarning, warnings[0].Type)
	assert.Contains(t, warnings[0].Message, "scalastyle config missing")
}

func TestShutdown_RetractsDiagnostics(t *testing.T) {
	r := &reportRunner{}
	h := newHarness(t, r)
	file := filepath.Join(h.root, "A.scala")
	r.report = checkstyle(file, `<error line="1" severity="error" message="bad"/>`)
	h.initialize(t)
	h.notify(t, "initialized", nil)
	h.wait(t)
	h.drain(t)

	id := h.request(t, "shutdown", nil)
	msgs := h.drain(t)
	require.Len(t, msgs, 2)

	pubs := publishes(t, msgs)
	require.Len(t, pubs, 1)
	assert.Equal(t, pathToURI(file), pubs[0].URI)
	assert.Empty(t, pubs[0].Diagnostics)
	assert.Equal(t, string(id), string(msgs[1].ID))

	h.server.Pipeline().Republish()
	assert.Empty(t, h.drain(t), "nothing is published after shutdown")

	assert.ErrorIs(t, h.server.handleMessage(&rpcMessage{Method: "exit"}), ErrExit)
}

func TestExitWithoutShutdown(t *testing.T) {
	h := newHarness(t, &reportRunner{})
	assert.ErrorIs(t, h.server.handleMessage(&rpcMessage{Method: "exit"}), ErrExitWithoutShutdown)
}

func TestDidChangeConfiguration(t *testing.T) {
	h := newHarness(t, &reportRunner{})
	settings := json.RawMessage(`{"scalastyle-marker":{"scalastyleOutputFile":"out/style.xml"}}`)
	h.notify(t, "workspace/didChangeConfiguration", didChangeConfigurationParams{Settings: settings})

	h.initialize(t)
	got := h.server.Pipeline().Settings()
	assert.Equal(t, "out/style.xml", got.ReportFile)
	assert.Equal(t, "sbt scalastyle", got.Command)

	settings = json.RawMessage(`{"scalastyle-marker":{"scalastyleCommand":"sbt \"scalastyle; test:scalastyle\""}}`)
	h.notify(t, "workspace/didChangeConfiguration", didChangeConfigurationParams{Settings: settings})
	got = h.server.Pipeline().Settings()
	assert.Equal(t, "out/style.xml", got.ReportFile)
	assert.Equal(t, `sbt "scalastyle; test:scalastyle"`, got.Command)

	settings = json.RawMessage(`{"scalastyle-marker":{"scalastyleOutputFile":""}}`)
	h.notify(t, "workspace/didChangeConfiguration", didChangeConfigurationParams{Settings: settings})
	assert.Equal(t, "target/scalastyle-result.xml", h.server.Pipeline().Settings().ReportFile)
}

func TestUnknownRequest(t *testing.T) {
	h := newHarness(t, &reportRunner{})
	h.request(t, "textDocument/hover", struct{}{})
	msgs := h.drain(t)
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].Error)
	assert.Equal(t, codeMethodNotFound, msgs[0].Error.Code)

	h.notify(t, "$/cancelRequest", struct{}{})
	assert.Empty(t, h.drain(t))
}

func TestMalformedParams(t *testing.T) {
	h := newHarness(t, &reportRunner{})
	h.initialize(t)
	h.drain(t)
	bad := json.RawMessage(`{"textDocument":{"uri":5}}`)

	for _, method := range []string{
		"textDocument/didOpen",
		"textDocument/didChange",
		"textDocument/didSave",
		"textDocument/didClose",
	} {
		h.notify(t, method, bad)
	}
	h.notify(t, methodActiveEditor, json.RawMessage(`{"uri":5}`))
	assert.Empty(t, h.drain(t), "notifications get no reply")
	assert.Equal(t, 0, h.runner.Calls())

	h.request(t, "textDocument/didOpen", bad)
	msgs := h.drain(t)
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].Error)
	assert.Equal(t, codeInvalidParams, msgs[0].Error.Code)
}

func TestRun_MalformedNotificationKeepsSession(t *testing.T) {
	logger, _ := test.NewNullLogger()
	root := t.TempDir()

	var in bytes.Buffer
	for _, msg := range []string{
		fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"rootUri":%q}}`, pathToURI(root)),
		`{"jsonrpc":"2.0","method":"textDocument/didOpen","params":{"textDocument":{"uri":5}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"shutdown"}`,
		`{"jsonrpc":"2.0","method":"exit"}`,
	} {
		require.NoError(t, writeMessage(&in, []byte(msg)))
	}

	var out bytes.Buffer
	s := NewServer(&in, &out, ServerOptions{Log: logger})
	assert.ErrorIs(t, s.Run(context.Background()), ErrExit)

	var ids []string
	reader := bufio.NewReader(&out)
	for {
		payload, err := readMessage(reader)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		var msg rpcMessage
		require.NoError(t, json.Unmarshal(payload, &msg))
		if len(msg.ID) > 0 {
			ids = append(ids, string(msg.ID))
		}
	}
	assert.Equal(t, []string{"1", "2"}, ids)
}

func TestRun_StdioSession(t *testing.T) {
	logger, _ := test.NewNullLogger()
	root := t.TempDir()

	var in bytes.Buffer
	for _, msg := range []string{
		fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"rootUri":%q}}`, pathToURI(root)),
		`not json`,
		`{"jsonrpc":"2.0","id":2,"method":"shutdown"}`,
		`{"jsonrpc":"2.0","method":"exit"}`,
	} {
		require.NoError(t, writeMessage(&in, []byte(msg)))
	}

	var out bytes.Buffer
	s := NewServer(&in, &out, ServerOptions{Log: logger})
	err := s.Run(context.Background())
	assert.ErrorIs(t, err, ErrExit)

	reader := bufio.NewReader(&out)
	payload, err := readMessage(reader)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"id":1`)
	assert.Contains(t, string(payload), CommandRun)

	payload, err = readMessage(reader)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"id":2`)
}
