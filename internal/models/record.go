// Package models defines the per-page and per-document extraction records.
package models

import "time"

// ImageDescriptor describes one embedded image on a page.
type ImageDescriptor struct {
	Index     int    `json:"index"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Encoding  string `json:"encoding"`
	SizeBytes int    `json:"size_bytes"`
}

// PageRecord is the extraction result for a single page. Immutable once
// built; owned by the enclosing DocumentRecord. CharCount counts Unicode
// code points; WordCount counts whitespace-delimited tokens.
type PageRecord struct {
	PageNumber  int               `json:"page_number"`
	Text        string            `json:"text"`
	WordCount   int               `json:"word_count"`
	CharCount   int               `json:"char_count"`
	Fonts       []string          `json:"fonts"`
	Images      []ImageDescriptor `json:"images"`
	BoundingBox [4]float64        `json:"bounding_box"`
}

// DocumentRecord is the extraction result for one input file. Page order is
// preserved in Pages; FontsUsed is the sorted union of per-page fonts.
type DocumentRecord struct {
	FilePath       string            `json:"file_path"`
	FileHash       string            `json:"file_hash"`
	Timestamp      time.Time         `json:"timestamp"`
	PageCount      int               `json:"page_count"`
	TotalWords     int               `json:"total_words"`
	TotalChars     int               `json:"total_chars"`
	FontsUsed      []string          `json:"fonts_used"`
	ImagesCount    int               `json:"images_count"`
	Metadata       map[string]string `json:"metadata"`
	Pages          []PageRecord      `json:"pages"`
	ExtractionTime float64           `json:"extraction_time_seconds"`
	FileSizeMB     float64           `json:"file_size_mb"`

	// Duplicate is set when the file hash was already in the processed set.
	// Advisory only; never serialized.
	Duplicate bool `json:"-"`
}
