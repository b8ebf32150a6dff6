package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sandevgo/membot/internal/core"
)

func TestIndexDocument(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	ix := NewIndexer(repo)

	ids, err := ix.IndexDocument(context.Background(), Document{
		SourceID: "langs.md",
		Text:     "# Python\ndynamic typing\n# Go\nstatic typing\n",
	})
	if err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d ids, want 2", len(ids))
	}

	entries, err := repo.GetAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].SourceID != "langs.md" || entries[0].Section != "Python" {
		t.Errorf("entry 0 = %+v", entries[0])
	}
}

func TestIndexDocumentPartialFailure(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	ix := NewIndexer(repo)

	// First document lands, then inserts start failing.
	if _, err := ix.IndexDocument(context.Background(), Document{SourceID: "a", Text: "# A\nok\n"}); err != nil {
		t.Fatal(err)
	}
	repo.insertErr = errors.New("disk full")

	ids, err := ix.IndexDocument(context.Background(), Document{SourceID: "b", Text: "# B\nnope\n"})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(ids) != 0 {
		t.Errorf("got %d ids, want 0", len(ids))
	}
}

func TestReindexIsIdempotent(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	ix := NewIndexer(repo)

	doc := Document{SourceID: "doc.md", Text: "# One\nfoo\n# Two\nbar\n"}
	for i := 0; i < 3; i++ {
		if _, err := ix.Reindex(context.Background(), doc); err != nil {
			t.Fatalf("Reindex round %d: %v", i, err)
		}
	}

	count, err := repo.Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2 after repeated reindex", count)
	}
}

func TestIndexFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "facts.md")
	if err := os.WriteFile(path, []byte("# Fact\nwater is wet\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	repo := newFakeRepo()
	ix := NewIndexer(repo)

	ids, err := ix.IndexFile(context.Background(), path)
	if err != nil {
		t.Fatalf("IndexFile: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("got %d ids, want 1", len(ids))
	}

	entries, _ := repo.GetAll(context.Background())
	if entries[0].SourceID != path {
		t.Errorf("source id = %q, want file path", entries[0].SourceID)
	}
}

func TestIndexFileMissing(t *testing.T) {
	t.Parallel()

	ix := NewIndexer(newFakeRepo())
	_, err := ix.IndexFile(context.Background(), filepath.Join(t.TempDir(), "nope.md"))
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestIndexDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := map[string]string{
		"a.md":  "# A\nalpha\n",
		"b.md":  "# B\nbeta\n",
		"c.txt": "# C\nignored extension\n",
	}
	for name, text := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	repo := newFakeRepo()
	ix := NewIndexer(repo)

	ids, err := ix.IndexDirectory(context.Background(), dir)
	if err != nil {
		t.Fatalf("IndexDirectory: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d ids, want 2 markdown entries", len(ids))
	}
}
