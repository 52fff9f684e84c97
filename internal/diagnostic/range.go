package diagnostic

import (
	"fmt"
	"math"

	"github.com/DevSymphony/scalastyle-marker/internal/report"
)

// Range bounds an annotation with zero-based line/column coordinates.
type Range struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col"`
	EndLine   int `json:"end_line"`
	EndCol    int `json:"end_col"`
}

func (r Range) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", r.StartLine+1, r.StartCol, r.EndLine+1, r.EndCol)
}

// maxCoord bounds reported coordinates so c+1 stays representable as a
// protocol position.
const maxCoord = math.MaxInt32 - 1

// Resolve computes the text range an issue covers.
//
// doc is the live text of the issue's file, or nil when the file is not
// open. Stale line numbers are clamped to the document; the result is
// never invalid enough to fail.
//
// A reported column yields a single character [c, c+1) since the tool
// reports no end column. Without a column the whole line is covered when
// doc is known, otherwise a one-character placeholder at the line start.
func Resolve(issue report.Issue, doc *Document) Range {
	line := min(max(issue.LineNumber(), 1), maxCoord+1) - 1
	if doc != nil && line > doc.LineCount()-1 {
		line = doc.LineCount() - 1
	}
	if line < 0 {
		line = 0
	}

	start, end := 0, 1
	if col, ok := issue.ColumnOffset(); ok {
		col = min(max(col, 0), maxCoord)
		start, end = col, col+1
	} else if doc != nil {
		end = doc.LineLength(line)
	}

	return Range{
		StartLine: line,
		StartCol:  start,
		EndLine:   line,
		EndCol:    end,
	}
}
