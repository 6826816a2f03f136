// Package serialize persists document records as JSON dumps and fixed-layout
// text summaries.
package serialize

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/hyperjump/toridasu/internal/models"
)

// Format selects the persisted form of a record.
type Format string

const (
	// FormatFull writes the entire record as JSON.
	FormatFull Format = "full"
	// FormatSummary writes a fixed-layout human-readable report.
	FormatSummary Format = "summary"
)

// ErrUnsupportedFormat reports an unknown serialization format.
var ErrUnsupportedFormat = errors.New("unsupported format")

// compactThresholdMB is the file size above which the full dump is written
// without indentation to cut output size and write time.
const compactThresholdMB = 50.0

// maxFontsInSummary caps the fonts-used section of the summary report; above
// this the section is omitted entirely.
const maxFontsInSummary = 10

const timestampLayout = "20060102_150405"

// ParseFormat resolves a user-supplied format name. "json" is accepted as an
// alias for "full".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "full", "json":
		return FormatFull, nil
	case "summary":
		return FormatSummary, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Serializer writes document records under a single output directory, which
// is created on first use. Output files are keyed by file stem and write
// timestamp; concurrent writers never target the same path for distinct
// documents.
type Serializer struct {
	outputDir string
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a Serializer.
type Option func(*Serializer)

// WithLogger sets a logger for save notices.
func WithLogger(l *zap.Logger) Option {
	return func(s *Serializer) { s.logger = l }
}

// NewSerializer creates a serializer writing into outputDir.
func NewSerializer(outputDir string, opts ...Option) *Serializer {
	s := &Serializer{outputDir: outputDir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serialize writes record in the given format and returns the output path.
func (s *Serializer) Serialize(record *models.DocumentRecord, format Format) (string, error) {
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	switch format {
	case FormatFull:
		return s.writeFull(record)
	case FormatSummary:
		return s.writeSummary(record)
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(format))
}

func (s *Serializer) writeFull(record *models.DocumentRecord) (string, error) {
	var (
		data []byte
		err  error
	)
	if record.FileSizeMB > compactThresholdMB {
		data, err = json.Marshal(record)
	} else {
		data, err = json.MarshalIndent(record, "", "  ")
	}
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	path := s.outputPath(record, ".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write record: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("record saved", zap.String("path", path))
	}
	return path, nil
}

func (s *Serializer) writeSummary(record *models.DocumentRecord) (string, error) {
	path := s.outputPath(record, "_summary.txt")
	if err := os.WriteFile(path, []byte(SummaryReport(record)), 0644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("summary saved", zap.String("path", path))
	}
	return path, nil
}

// outputPath builds <dir>/<stem>_<YYYYMMDD_HHMMSS><suffix>. When two files
// sharing a stem land within the same second, the content hash prefix
// disambiguates the later one.
func (s *Serializer) outputPath(record *models.DocumentRecord, suffix string) string {
	base := filepath.Base(record.FilePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	ts := s.now().Format(timestampLayout)
	path := filepath.Join(s.outputDir, fmt.Sprintf("%s_%s%s", stem, ts, suffix))
	if _, err := os.Stat(path); err == nil && len(record.FileHash) >= 8 {
		path = filepath.Join(s.outputDir, fmt.Sprintf("%s_%s_%s%s", stem, ts, record.FileHash[:8], suffix))
	}
	return path
}

// SummaryReport renders the fixed-layout textual summary for a record.
func SummaryReport(record *models.DocumentRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PDF EXTRACTION SUMMARY\n%s\n\n", strings.Repeat("=", 50))
	fmt.Fprintf(&b, "File: %s\n", filepath.Base(record.FilePath))
	fmt.Fprintf(&b, "Size: %.1f MB\n", record.FileSizeMB)
	fmt.Fprintf(&b, "Hash: %s...\n", hashPrefix(record.FileHash))
	fmt.Fprintf(&b, "Processed: %s\n", record.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "Time: %.2f seconds\n\n", record.ExtractionTime)

	fmt.Fprintf(&b, "CONTENT STATISTICS\n%s\n", strings.Repeat("-", 30))
	fmt.Fprintf(&b, "Pages: %d\n", record.PageCount)
	fmt.Fprintf(&b, "Words: %s\n", humanize.Comma(int64(record.TotalWords)))
	fmt.Fprintf(&b, "Characters: %s\n", humanize.Comma(int64(record.TotalChars)))
	fmt.Fprintf(&b, "Images: %d\n", record.ImagesCount)
	fmt.Fprintf(&b, "Fonts: %d\n\n", len(record.FontsUsed))

	fmt.Fprintf(&b, "METADATA\n%s\n", strings.Repeat("-", 30))
	keys := make([]string, 0, len(record.Metadata))
	for k := range record.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, record.Metadata[k])
	}

	if len(record.FontsUsed) <= maxFontsInSummary {
		fmt.Fprintf(&b, "\nFONTS USED\n%s\n", strings.Repeat("-", 30))
		for _, font := range record.FontsUsed {
			fmt.Fprintf(&b, "- %s\n", font)
		}
	}

	rate := 0.0
	if record.ExtractionTime > 0 {
		rate = float64(record.TotalWords) / record.ExtractionTime
	}
	fmt.Fprintf(&b, "\nProcessing Rate: %s words/second\n", humanize.Comma(int64(rate)))
	return b.String()
}

// hashPrefix returns the first 16 hash characters, or the whole hash when
// shorter.
func hashPrefix(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}
