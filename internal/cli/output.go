// Package cli provides CLI output utilities for Toridasu.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/hyperjump/toridasu/internal/keyword"
	"github.com/hyperjump/toridasu/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteBatchStats writes the outcome of a batch run to w in the given format.
func WriteBatchStats(w io.Writer, stats *models.BatchStats, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	default:
		writeBatchStatsText(w, stats)
		return nil
	}
}

func writeBatchStatsText(w io.Writer, stats *models.BatchStats) {
	total := stats.Succeeded + stats.Failed + stats.Skipped
	fmt.Fprintf(w, "\nProcessed %s file(s) in %.2fs (run %s)\n",
		humanize.Comma(int64(total)), stats.Elapsed, stats.RunID)
	fmt.Fprintf(w, "  Succeeded: %d\n", stats.Succeeded)
	fmt.Fprintf(w, "  Failed:    %d\n", stats.Failed)
	fmt.Fprintf(w, "  Skipped:   %d\n", stats.Skipped)
	if len(stats.Failures) > 0 {
		fmt.Fprintln(w, "\nFailures:")
		for _, f := range stats.Failures {
			fmt.Fprintf(w, "  %s: %s\n", f.Path, f.Err)
		}
	}
}

// WriteSearchHits writes keyword search hits to w in the given format.
func WriteSearchHits(w io.Writer, query string, hits []*keyword.Hit, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"query": query, "hits": hits})
	default:
		writeSearchHitsText(w, query, hits)
		return nil
	}
}

func writeSearchHitsText(w io.Writer, query string, hits []*keyword.Hit) {
	fmt.Fprintf(w, "\nFound %d result(s) for %q\n\n", len(hits), query)
	for i, hit := range hits {
		fmt.Fprintf(w, "%d. %s (score %.4f)\n", i+1, hit.Path, hit.Score)
		fmt.Fprintf(w, "   hash: %s\n", hit.ID)
	}
}
