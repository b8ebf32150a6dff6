package memory

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sandevgo/membot/internal/core"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []core.Entry
	}{
		{
			name: "two sections",
			text: "# A\nfoo\n# B\nbar\n",
			want: []core.Entry{
				{SourceID: "doc", Section: "A", Content: "foo"},
				{SourceID: "doc", Section: "B", Content: "bar"},
			},
		},
		{
			name: "preamble dropped",
			text: "intro text\n# First\nbody\n",
			want: []core.Entry{
				{SourceID: "doc", Section: "First", Content: "body"},
			},
		},
		{
			name: "empty body dropped",
			text: "# Empty\n\n   \n# Full\ncontent\n",
			want: []core.Entry{
				{SourceID: "doc", Section: "Full", Content: "content"},
			},
		},
		{
			name: "heading levels uniform",
			text: "## Deep\nfoo\n### Deeper\nbar\n",
			want: []core.Entry{
				{SourceID: "doc", Section: "Deep", Content: "foo"},
				{SourceID: "doc", Section: "Deeper", Content: "bar"},
			},
		},
		{
			name: "indented heading",
			text: "  # Indented\nbody\n",
			want: []core.Entry{
				{SourceID: "doc", Section: "Indented", Content: "body"},
			},
		},
		{
			name: "multiline body keeps inner lines",
			text: "# Notes\nline one\n\nline two\n",
			want: []core.Entry{
				{SourceID: "doc", Section: "Notes", Content: "line one\n\nline two"},
			},
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
		{
			name: "no headings",
			text: "just some text\nwithout structure\n",
			want: nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Parse(tt.text, "doc")
			if len(got) != len(tt.want) {
				t.Fatalf("got %d entries, want %d: %+v", len(got), len(tt.want), got)
			}
			for i, w := range tt.want {
				g := got[i]
				if g.SourceID != w.SourceID || g.Section != w.Section || g.Content != w.Content {
					t.Errorf("entry %d = %+v, want %+v", i, g, w)
				}
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	if err := os.WriteFile(path, []byte("# Go\nfast compiles\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].SourceID != path {
		t.Errorf("source id = %q, want %q", entries[0].SourceID, path)
	}
}

func TestParseFileMissing(t *testing.T) {
	t.Parallel()

	_, err := ParseFile(filepath.Join(t.TempDir(), "missing.md"))
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
