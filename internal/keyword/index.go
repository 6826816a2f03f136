// Package keyword maintains a Bleve full-text index over extracted document
// text so past extractions can be searched by content.
package keyword

import (
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/hyperjump/toridasu/internal/models"
)

// IndexedDocument is the shape stored in the index.
type IndexedDocument struct {
	Path string `json:"path"`
	Text string `json:"text"`
}

// Hit is one search result.
type Hit struct {
	ID    string  `json:"id"`
	Path  string  `json:"path"`
	Score float64 `json:"score"`
}

// Index wraps a Bleve index keyed by content hash.
type Index struct {
	index bleve.Index
}

// OpenIndex creates or opens a Bleve index at path. An existing index is
// reused so re-running a batch does not rebuild it; remove the directory to
// force a full re-index after a mapping change.
func OpenIndex(path string) (*Index, error) {
	if _, err := os.Stat(path); err == nil {
		idx, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("open keyword index: %w", openErr)
		}
		return &Index{index: idx}, nil
	}

	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so queries match
	// exact words regardless of case.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("text", textFieldMapping)
	pathFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("path", pathFieldMapping)
	im.DefaultMapping = docMapping

	idx, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("create keyword index: %w", err)
	}
	return &Index{index: idx}, nil
}

// FromRecord builds the indexable document for an extraction result,
// concatenating the text of all pages.
func FromRecord(record *models.DocumentRecord) *IndexedDocument {
	var b strings.Builder
	for _, page := range record.Pages {
		b.WriteString(page.Text)
		b.WriteString("\n")
	}
	return &IndexedDocument{Path: record.FilePath, Text: b.String()}
}

// Add indexes doc under id, replacing any previous document with that id.
func (i *Index) Add(id string, doc *IndexedDocument) error {
	return i.index.Index(id, doc)
}

// Search runs a match query over the indexed text and returns up to limit
// hits, best first.
func (i *Index) Search(query string, limit int) ([]*Hit, error) {
	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{"path"}
	results, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	hits := make([]*Hit, len(results.Hits))
	for n, hit := range results.Hits {
		h := &Hit{ID: hit.ID, Score: hit.Score}
		if p, ok := hit.Fields["path"].(string); ok {
			h.Path = p
		}
		hits[n] = h
	}
	return hits, nil
}

// Delete removes a document from the index.
func (i *Index) Delete(id string) error {
	return i.index.Delete(id)
}

// Count returns the number of indexed documents.
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}

// Close closes the underlying index.
func (i *Index) Close() error {
	return i.index.Close()
}
