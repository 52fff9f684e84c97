package diagnostic

import (
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"

	"github.com/DevSymphony/scalastyle-marker/internal/report"
)

// Publisher turns a parsed report into the published annotation set.
type Publisher struct {
	// Root is the project root; relative report paths are resolved against it.
	Root string

	// Exclude lists doublestar globs, relative to Root, whose files are
	// never annotated (e.g. "target/**", "**/generated/**").
	Exclude []string

	Collection *Collection
	Log        logrus.FieldLogger
}

// NewPublisher creates a publisher writing into collection.
func NewPublisher(root string, collection *Collection, log logrus.FieldLogger) *Publisher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Publisher{
		Root:       root,
		Collection: collection,
		Log:        log,
	}
}

// Publish replaces the published set with the annotations of rep.
// A nil report (absent or unparseable) clears everything. The live text of
// active is used only for the file it names; other files get fallback ranges.
func (p *Publisher) Publish(rep *report.Report, active *ActiveDocument) {
	if rep == nil {
		p.Collection.Clear()
		return
	}

	var activePath string
	var activeDoc *Document
	if active != nil && active.Path != "" {
		activePath = p.absPath(active.Path)
		activeDoc = NewDocument(active.Text)
	}

	next := make(map[string][]Annotation, len(rep.Files))
	for _, file := range rep.Files {
		if file.Path == "" {
			continue
		}
		path := p.absPath(file.Path)
		if p.excluded(path) {
			p.Log.WithField("path", path).Debug("skipping excluded file")
			continue
		}

		var doc *Document
		if activeDoc != nil && path == activePath {
			doc = activeDoc
		}

		list := next[path]
		for _, issue := range file.Issues {
			list = append(list, Annotation{
				Range:   Resolve(issue, doc),
				Message: issue.Message,
				Tier:    TierOf(issue.Severity),
				Source:  Source,
				Code:    issue.RuleID(),
			})
		}
		next[path] = list
	}

	p.Collection.Replace(next)
}

func (p *Publisher) absPath(path string) string {
	if !filepath.IsAbs(path) && p.Root != "" {
		path = filepath.Join(p.Root, path)
	}
	return filepath.Clean(path)
}

func (p *Publisher) excluded(path string) bool {
	if len(p.Exclude) == 0 {
		return false
	}
	rel := path
	if p.Root != "" {
		if r, err := filepath.Rel(p.Root, path); err == nil {
			rel = r
		}
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range p.Exclude {
		if ok, err := doublestar.Match(filepath.ToSlash(pattern), rel); err == nil && ok {
			return true
		}
	}
	return false
}
