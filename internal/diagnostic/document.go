package diagnostic

import (
	"strings"
	"unicode/utf8"
)

// Document is the live text of an open file.
type Document struct {
	lines []string
}

// NewDocument splits text into lines. CRLF line endings are tolerated.
func NewDocument(text string) *Document {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return &Document{lines: lines}
}

// LineCount returns the number of lines; an empty document has one empty line.
func (d *Document) LineCount() int {
	return len(d.lines)
}

// LineLength returns the length of line i in UTF-16 code units, or 0 when
// i is out of range.
func (d *Document) LineLength(i int) int {
	if i < 0 || i >= len(d.lines) {
		return 0
	}
	return utf16Len(d.lines[i])
}

func utf16Len(s string) int {
	n := 0
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r > 0xFFFF {
			n += 2
		} else {
			n++
		}
		s = s[size:]
	}
	return n
}

// ActiveDocument is the file currently focused in the editor.
type ActiveDocument struct {
	Path string
	Text string
}
