package extract

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/toridasu/internal/models"
	"github.com/hyperjump/toridasu/internal/reader"
	"go.uber.org/zap"
)

// extractPage builds the PageRecord for one loaded page. pageNum is 1-based.
// Font and image failures are non-fatal; they are logged and leave the
// corresponding field empty. An error is returned only when the page text
// itself cannot be read.
func (e *Extractor) extractPage(doc reader.Document, page reader.Page, pageNum int) (models.PageRecord, error) {
	text, err := page.Text()
	if err != nil {
		return models.PageRecord{}, fmt.Errorf("page %d text: %w", pageNum, err)
	}

	rec := models.PageRecord{
		PageNumber:  pageNum,
		Text:        text,
		WordCount:   len(strings.Fields(text)),
		CharCount:   utf8.RuneCountInString(text),
		Fonts:       []string{},
		Images:      []models.ImageDescriptor{},
		BoundingBox: page.BoundingBox(),
	}

	// Structured text is only consulted when the page has words at all.
	if rec.WordCount > 0 {
		rec.Fonts = e.pageFonts(page, pageNum)
	}
	if e.enableImages {
		rec.Images = e.pageImages(doc, page, pageNum)
	}
	return rec, nil
}

// pageFonts collects the distinct font signatures on a page, sorted. A font
// signature is "<name> (<size>pt)" with one decimal of size.
func (e *Extractor) pageFonts(page reader.Page, pageNum int) []string {
	spans, err := page.Spans()
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("font extraction failed", zap.Int("page", pageNum), zap.Error(err))
		}
		return []string{}
	}
	set := make(map[string]struct{}, len(spans))
	for _, s := range spans {
		name := s.Font
		if name == "" {
			name = "Unknown"
		}
		set[fmt.Sprintf("%s (%.1fpt)", name, s.Size)] = struct{}{}
	}
	fonts := make([]string, 0, len(set))
	for f := range set {
		fonts = append(fonts, f)
	}
	sort.Strings(fonts)
	return fonts
}

// pageImages describes the embedded images on a page. Images that fail to
// resolve are skipped individually; enumeration failure yields an empty
// list. Index keeps the enumeration position, so skips leave gaps.
func (e *Extractor) pageImages(doc reader.Document, page reader.Page, pageNum int) []models.ImageDescriptor {
	refs, err := page.Images()
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("image extraction failed", zap.Int("page", pageNum), zap.Error(err))
		}
		return []models.ImageDescriptor{}
	}
	images := make([]models.ImageDescriptor, 0, len(refs))
	for i, ref := range refs {
		info, err := doc.ResolveImage(ref)
		if err != nil {
			continue
		}
		images = append(images, models.ImageDescriptor{
			Index:     i,
			Width:     info.Width,
			Height:    info.Height,
			Encoding:  info.Encoding,
			SizeBytes: info.SizeBytes,
		})
	}
	return images
}
