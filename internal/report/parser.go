package report

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// rootElement is the root element scalastyle writes (checkstyle format).
const rootElement = "checkstyle"

// checkstyleXML mirrors the checkstyle XML report.
// Repeated children always decode into slices, so a single <file> or
// <error> never collapses to a scalar.
type checkstyleXML struct {
	XMLName xml.Name  `xml:"checkstyle"`
	Version string    `xml:"version,attr"`
	Files   []fileXML `xml:"file"`
}

type fileXML struct {
	Name   string     `xml:"name,attr"`
	Errors []errorXML `xml:"error"`
}

// Numeric attributes stay strings so a malformed value degrades to
// "absent" instead of failing the whole report.
type errorXML struct {
	Line     string `xml:"line,attr"`
	Column   string `xml:"column,attr"`
	Severity string `xml:"severity,attr"`
	Message  string `xml:"message,attr"`
	Source   string `xml:"source,attr"`
}

// Parse decodes a checkstyle-format XML report.
// Returns *ParseError when the document is malformed or has a different root.
func Parse(data []byte) (*Report, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Err: errors.New("empty document")}
	}

	var doc checkstyleXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Err: err}
	}

	rep := &Report{Files: make([]FileReport, 0, len(doc.Files))}
	for _, f := range doc.Files {
		fr := FileReport{
			Path:   f.Name,
			Issues: make([]Issue, 0, len(f.Errors)),
		}
		for _, e := range f.Errors {
			fr.Issues = append(fr.Issues, Issue{
				Line:     parseOptionalInt(e.Line),
				Column:   parseOptionalInt(e.Column),
				Severity: e.Severity,
				Message:  e.Message,
				Source:   e.Source,
			})
		}
		rep.Files = append(rep.Files, fr)
	}

	return rep, nil
}

// Load reads and parses the report at path.
// A missing file yields ErrReportAbsent; anything unreadable or
// undecodable yields *ParseError.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrReportAbsent, path)
		}
		return nil, &ParseError{Path: path, Err: err}
	}

	rep, err := Parse(data)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Path = path
		}
		return nil, err
	}
	return rep, nil
}

func parseOptionalInt(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}
