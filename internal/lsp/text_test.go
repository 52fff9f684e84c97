package lsp

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyChanges(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		changes []textDocumentContentChangeEvent
		want    string
	}{
		{
			name:    "full replacement",
			text:    "old",
			changes: []textDocumentContentChangeEvent{{Text: "new"}},
			want:    "new",
		},
		{
			name: "insert at line start",
			text: "one\ntwo\n",
			changes: []textDocumentContentChangeEvent{{
				Range: &lspRange{Start: position{Line: 1}, End: position{Line: 1}},
				Text:  "// ",
			}},
			want: "one\n// two\n",
		},
		{
			name: "replace after astral rune",
			text: "a😀b\n",
			changes: []textDocumentContentChangeEvent{{
				Range: &lspRange{Start: position{Character: 3}, End: position{Character: 4}},
				Text:  "c",
			}},
			want: "a😀c\n",
		},
		{
			name: "range past end clamps",
			text: "x",
			changes: []textDocumentContentChangeEvent{{
				Range: &lspRange{Start: position{Line: 5}, End: position{Line: 9}},
				Text:  "y",
			}},
			want: "xy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, applyChanges(tt.text, tt.changes))
		})
	}
}

func TestURIRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "src", "My File.scala")
	uri := pathToURI(path)
	assert.Contains(t, uri, "file://")
	assert.Contains(t, uri, "My%20File.scala")
	assert.Equal(t, path, uriToPath(uri))

	assert.Empty(t, uriToPath("untitled:Untitled-1"))
	assert.Empty(t, uriToPath(""))
}
