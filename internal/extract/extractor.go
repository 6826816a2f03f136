// Package extract turns documents into immutable extraction records. The
// document extractor drives the reader over every page in order, isolates
// per-page failures, and aggregates page records into a document record.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/toridasu/internal/filehash"
	"github.com/hyperjump/toridasu/internal/models"
	"github.com/hyperjump/toridasu/internal/reader"
	"go.uber.org/zap"
)

// DedupMode controls what happens when a file hash is already in the
// processed set.
type DedupMode string

const (
	// DedupObserve logs the processed-set hit and extracts anyway.
	DedupObserve DedupMode = "observe"
	// DedupSkip returns ErrDuplicateDocument without extracting.
	DedupSkip DedupMode = "skip"
)

// progressInterval is how many pages pass between progress notices.
const progressInterval = 10

const bytesPerMB = 1024 * 1024

// Extractor produces DocumentRecords from files read through a reader.Opener.
// Safe for concurrent use by multiple workers; the processed set is
// synchronized, and each call owns its document handle end to end.
type Extractor struct {
	opener       reader.Opener
	enableImages bool
	dedupMode    DedupMode
	logger       *zap.Logger

	mu        sync.Mutex
	processed map[string]struct{}
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets a logger for progress notices and non-fatal failures.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// WithImageExtraction toggles per-page image enumeration (default on).
func WithImageExtraction(enabled bool) Option {
	return func(e *Extractor) { e.enableImages = enabled }
}

// WithDedupMode sets the processed-set behavior (default DedupObserve).
func WithDedupMode(mode DedupMode) Option {
	return func(e *Extractor) { e.dedupMode = mode }
}

// NewExtractor creates an extractor reading documents through opener.
func NewExtractor(opener reader.Opener, opts ...Option) *Extractor {
	e := &Extractor{
		opener:       opener,
		enableImages: true,
		dedupMode:    DedupObserve,
		processed:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract produces the DocumentRecord for the file at path. It returns
// ErrDocumentNotFound when path does not exist, an *OpenError when the
// reader cannot open the file, and ErrDuplicateDocument when the content
// hash was already processed under DedupSkip. Per-page failures are logged
// and isolated: a failed page is absent from the record and extraction
// continues. ctx is checked between pages, so a cancelled context surfaces
// as this file's failure.
func (e *Extractor) Extract(ctx context.Context, path string) (*models.DocumentRecord, error) {
	start := time.Now()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	sizeMB := float64(info.Size()) / bytesPerMB

	hash, err := filehash.Hash(path)
	if err != nil {
		return nil, err
	}

	duplicate := e.seen(hash)
	if duplicate {
		if e.logger != nil {
			e.logger.Info("file already processed",
				zap.String("file", filepath.Base(path)),
				zap.String("hash", hash))
		}
		if e.dedupMode == DedupSkip {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDocument, path)
		}
	}

	if e.logger != nil {
		e.logger.Info("processing document",
			zap.String("file", filepath.Base(path)),
			zap.Float64("size_mb", sizeMB))
	}

	doc, err := e.opener.Open(path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	defer doc.Close()

	metadata := e.documentMetadata(doc)

	pageCount := doc.PageCount()
	pages := make([]models.PageRecord, 0, pageCount)
	for i := 0; i < pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("extraction cancelled at page %d: %w", i+1, err)
		}
		page, err := doc.LoadPage(i)
		if err != nil {
			if e.logger != nil {
				e.logger.Error("page load failed", zap.Int("page", i+1), zap.Error(err))
			}
			continue
		}
		rec, err := e.extractPage(doc, page, i+1)
		if err != nil {
			if e.logger != nil {
				e.logger.Error("page extraction failed", zap.Int("page", i+1), zap.Error(err))
			}
			continue
		}
		pages = append(pages, rec)
		if (i+1)%progressInterval == 0 && e.logger != nil {
			e.logger.Info("extraction progress",
				zap.Int("pages_done", i+1),
				zap.Int("pages_total", pageCount))
		}
	}

	record := aggregate(path, hash, sizeMB, metadata, pages)
	record.ExtractionTime = time.Since(start).Seconds()
	record.Duplicate = duplicate

	e.markProcessed(hash)

	if e.logger != nil {
		e.logger.Info("extraction complete",
			zap.String("file", filepath.Base(path)),
			zap.Int("pages", record.PageCount),
			zap.Int("words", record.TotalWords),
			zap.Int("images", record.ImagesCount),
			zap.Float64("seconds", record.ExtractionTime))
	}
	return record, nil
}

// aggregate builds the document record from its page records: totals are
// sums over pages and FontsUsed is the sorted union of per-page fonts.
func aggregate(path, hash string, sizeMB float64, metadata map[string]string, pages []models.PageRecord) *models.DocumentRecord {
	var totalWords, totalChars, imagesCount int
	fontSet := make(map[string]struct{})
	for _, p := range pages {
		totalWords += p.WordCount
		totalChars += p.CharCount
		imagesCount += len(p.Images)
		for _, f := range p.Fonts {
			fontSet[f] = struct{}{}
		}
	}
	fonts := make([]string, 0, len(fontSet))
	for f := range fontSet {
		fonts = append(fonts, f)
	}
	sort.Strings(fonts)

	return &models.DocumentRecord{
		FilePath:    path,
		FileHash:    hash,
		Timestamp:   time.Now(),
		PageCount:   len(pages),
		TotalWords:  totalWords,
		TotalChars:  totalChars,
		FontsUsed:   fonts,
		ImagesCount: imagesCount,
		Metadata:    metadata,
		Pages:       pages,
		FileSizeMB:  sizeMB,
	}
}

// documentMetadata reads the reader's metadata map, trimming values and
// dropping empty ones. Read failure is non-fatal and yields an empty map.
func (e *Extractor) documentMetadata(doc reader.Document) map[string]string {
	metadata := map[string]string{}
	raw, err := doc.Metadata()
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("metadata extraction failed", zap.Error(err))
		}
		return metadata
	}
	for key, value := range raw {
		if v := strings.TrimSpace(value); v != "" {
			metadata[key] = v
		}
	}
	return metadata
}

func (e *Extractor) seen(hash string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.processed[hash]
	return ok
}

func (e *Extractor) markProcessed(hash string) {
	e.mu.Lock()
	e.processed[hash] = struct{}{}
	e.mu.Unlock()
}

// Stats reports processing counters for the lifetime of this extractor.
type Stats struct {
	FilesProcessed int
	ImagesEnabled  bool
}

// Stats returns a snapshot of the extractor's counters.
func (e *Extractor) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		FilesProcessed: len(e.processed),
		ImagesEnabled:  e.enableImages,
	}
}
