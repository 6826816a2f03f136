package keyword

import (
	"path/filepath"
	"testing"

	"github.com/hyperjump/toridasu/internal/models"
)

func newIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := OpenIndex(filepath.Join(t.TempDir(), "keyword.bleve"))
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestIndexAddAndSearch(t *testing.T) {
	idx := newIndex(t)

	docs := map[string]*IndexedDocument{
		"hash1": {Path: "/docs/cats.pdf", Text: "a report about cats and their habits"},
		"hash2": {Path: "/docs/dogs.pdf", Text: "dogs are loyal companions"},
	}
	for id, doc := range docs {
		if err := idx.Add(id, doc); err != nil {
			t.Fatalf("Add %s: %v", id, err)
		}
	}

	hits, err := idx.Search("cats", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	if hits[0].ID != "hash1" {
		t.Errorf("hit id = %q, want hash1", hits[0].ID)
	}
	if hits[0].Path != "/docs/cats.pdf" {
		t.Errorf("hit path = %q", hits[0].Path)
	}
	if hits[0].Score <= 0 {
		t.Errorf("score = %f, want > 0", hits[0].Score)
	}
}

func TestIndexSearchCaseInsensitive(t *testing.T) {
	idx := newIndex(t)
	if err := idx.Add("h1", &IndexedDocument{Path: "/a.pdf", Text: "Quarterly Revenue"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	hits, err := idx.Search("revenue", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
}

func TestIndexReplaceByID(t *testing.T) {
	idx := newIndex(t)
	if err := idx.Add("h1", &IndexedDocument{Path: "/a.pdf", Text: "old content"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Add("h1", &IndexedDocument{Path: "/a.pdf", Text: "new content"}); err != nil {
		t.Fatalf("Add replace: %v", err)
	}
	n, err := idx.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
	hits, err := idx.Search("old", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("stale content still indexed: %d hits", len(hits))
	}
}

func TestIndexReopenExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyword.bleve")
	idx, err := OpenIndex(path)
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	if err := idx.Add("h1", &IndexedDocument{Path: "/a.pdf", Text: "persisted"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := OpenIndex(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	n, err := reopened.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Fatalf("count after reopen = %d, want 1", n)
	}
}

func TestFromRecord(t *testing.T) {
	rec := &models.DocumentRecord{
		FilePath: "/docs/multi.pdf",
		Pages: []models.PageRecord{
			{PageNumber: 1, Text: "first page"},
			{PageNumber: 2, Text: "second page"},
		},
	}
	doc := FromRecord(rec)
	if doc.Path != "/docs/multi.pdf" {
		t.Errorf("path = %q", doc.Path)
	}
	if doc.Text != "first page\nsecond page\n" {
		t.Errorf("text = %q", doc.Text)
	}
}

func TestIndexDelete(t *testing.T) {
	idx := newIndex(t)
	if err := idx.Add("h1", &IndexedDocument{Path: "/a.pdf", Text: "ephemeral"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Delete("h1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	n, err := idx.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Fatalf("count = %d, want 0", n)
	}
}
