package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/DevSymphony/scalastyle-marker/internal/diagnostic"
	"github.com/DevSymphony/scalastyle-marker/internal/report"
)

// Settings configures one project's pipeline.
type Settings struct {
	// Root is the project root and the command's working directory.
	Root string

	// ReportFile is the report location, relative to Root unless absolute.
	ReportFile string

	// Command is the shell command line that produces the report.
	Command string

	// Exclude lists globs of files that are never annotated.
	Exclude []string
}

// ReportPath returns the absolute report location.
func (s Settings) ReportPath() string {
	if filepath.IsAbs(s.ReportFile) {
		return s.ReportFile
	}
	return filepath.Join(s.Root, s.ReportFile)
}

// Pipeline ties the coordinator, the report parser and the publisher together.
type Pipeline struct {
	coord      *Coordinator
	collection *diagnostic.Collection
	log        logrus.FieldLogger

	// Warn surfaces an advisory message to the operator. It must not block.
	Warn func(msg string)

	// pubMu orders publishes so a republish never overwrites a newer report.
	pubMu sync.Mutex

	mu       sync.Mutex
	settings Settings
	last     *report.Report
	active   *diagnostic.ActiveDocument
}

// NewPipeline creates a pipeline publishing into collection.
func NewPipeline(settings Settings, cmdRunner CommandRunner, collection *diagnostic.Collection, log logrus.FieldLogger) *Pipeline {
	if log == nil {
		log = logrus.StandardLogger()
	}
	p := &Pipeline{
		collection: collection,
		log:        log,
		settings:   settings,
	}
	p.coord = NewCoordinator(cmdRunner,
		func() string { return p.Settings().Root },
		func() string { return p.Settings().Command },
		log,
	)
	p.coord.OnFailure = p.commandFailed
	p.coord.OnSettled = func(context.Context) { _ = p.Reload() }
	return p
}

// Trigger requests an analysis run; the result is published when it settles.
func (p *Pipeline) Trigger(ctx context.Context) {
	p.coord.Trigger(ctx)
}

// Wait blocks until no run is in flight or pending.
func (p *Pipeline) Wait(ctx context.Context) error {
	return p.coord.Wait(ctx)
}

// Coordinator exposes the run coordinator.
func (p *Pipeline) Coordinator() *Coordinator {
	return p.coord
}

// Settings returns the current settings.
func (p *Pipeline) Settings() Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings
}

// UpdateSettings applies fn to the settings; the next run picks them up.
func (p *Pipeline) UpdateSettings(fn func(*Settings)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.settings)
}

// Report returns the most recently parsed report, or nil.
func (p *Pipeline) Report() *report.Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Reload loads the report from disk and publishes it.
// An absent or unparseable report clears all annotations; the load error
// is returned for callers that want to report it.
func (p *Pipeline) Reload() error {
	// Load and publish under one lock so a stale read never lands last.
	p.pubMu.Lock()
	defer p.pubMu.Unlock()

	settings := p.Settings()
	path := settings.ReportPath()

	rep, err := report.Load(path)
	switch {
	case err == nil:
		p.log.WithFields(logrus.Fields{
			"report": path,
			"files":  len(rep.Files),
			"issues": rep.IssueCount(),
		}).Debug("report loaded")
	case errors.Is(err, report.ErrReportAbsent):
		p.log.WithField("report", path).Info("no report found, clearing annotations")
	default:
		p.log.WithError(err).Warn("report unreadable, clearing annotations")
	}

	p.mu.Lock()
	p.last = rep
	settings = p.settings
	active := p.active
	p.mu.Unlock()

	p.publish(settings, rep, active)
	return err
}

// SetActive records the focused document and republishes the last report
// without invoking the tool. A nil doc means no document is focused.
func (p *Pipeline) SetActive(doc *diagnostic.ActiveDocument) {
	p.mu.Lock()
	p.active = doc
	p.mu.Unlock()
	p.Republish()
}

// UpdateActiveText keeps the live text of the focused document current
// without republishing.
func (p *Pipeline) UpdateActiveText(path, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active != nil && p.active.Path == path {
		p.active = &diagnostic.ActiveDocument{Path: path, Text: text}
	}
}

// Republish publishes the most recent report again against the current
// active document.
func (p *Pipeline) Republish() {
	p.pubMu.Lock()
	defer p.pubMu.Unlock()

	p.mu.Lock()
	settings := p.settings
	rep := p.last
	active := p.active
	p.mu.Unlock()

	p.publish(settings, rep, active)
}

func (p *Pipeline) publish(settings Settings, rep *report.Report, active *diagnostic.ActiveDocument) {
	pub := diagnostic.NewPublisher(settings.Root, p.collection, p.log)
	pub.Exclude = settings.Exclude
	pub.Publish(rep, active)
}

func (p *Pipeline) commandFailed(err error, output *Output) {
	msg := fmt.Sprintf("scalastyle command failed: %v", err)
	if output != nil {
		if detail := lastLine(output.Stderr); detail != "" {
			msg += ": " + detail
		} else if detail := lastLine(output.Stdout); detail != "" {
			msg += ": " + detail
		}
	}
	if p.Warn != nil {
		p.Warn(msg)
	}
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
