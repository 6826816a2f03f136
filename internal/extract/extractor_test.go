package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/toridasu/internal/reader"
)

// writeInput creates a real file on disk for the hasher; the static opener
// supplies the document content.
func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func threePageDoc() *reader.StaticDocument {
	return &reader.StaticDocument{
		Meta: map[string]string{"Title": "Quarterly Report", "Author": "QA"},
		PageList: []reader.StaticPage{
			{
				PlainText: "alpha beta gamma",
				SpanList:  []reader.Span{{Font: "Helvetica", Size: 12}, {Font: "Helvetica", Size: 12}},
				Box:       [4]float64{0, 0, 612, 792},
			},
			{
				PlainText: "delta epsilon",
				SpanList:  []reader.Span{{Font: "Courier", Size: 10.25}},
				ImageList: []reader.StaticImage{
					{Info: reader.ImageInfo{Width: 100, Height: 50, Encoding: "jpeg", SizeBytes: 2048}},
				},
				Box: [4]float64{0, 0, 612, 792},
			},
			{
				PlainText: "zeta",
				SpanList:  []reader.Span{{Font: "Helvetica", Size: 12}},
				ImageList: []reader.StaticImage{
					{Info: reader.ImageInfo{Width: 10, Height: 10, Encoding: "flate", SizeBytes: 99}},
					{Info: reader.ImageInfo{Width: 20, Height: 20, Encoding: "jpeg", SizeBytes: 160}},
				},
				Box: [4]float64{0, 0, 612, 792},
			},
		},
	}
}

func TestExtract_invariants(t *testing.T) {
	dir := t.TempDir()
	path := writeInput(t, dir, "report.pdf", "report bytes")
	opener := &reader.StaticOpener{Docs: map[string]*reader.StaticDocument{path: threePageDoc()}}
	e := NewExtractor(opener)

	rec, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if rec.PageCount != 3 || len(rec.Pages) != 3 {
		t.Fatalf("page count %d, pages %d", rec.PageCount, len(rec.Pages))
	}
	var words, chars, images int
	for i, p := range rec.Pages {
		if p.PageNumber != i+1 {
			t.Errorf("page %d has number %d", i, p.PageNumber)
		}
		words += p.WordCount
		chars += p.CharCount
		images += len(p.Images)
	}
	if rec.TotalWords != words || rec.TotalWords != 6 {
		t.Errorf("total_words = %d, sum = %d", rec.TotalWords, words)
	}
	if rec.TotalChars != chars {
		t.Errorf("total_chars = %d, sum = %d", rec.TotalChars, chars)
	}
	if rec.ImagesCount != images || rec.ImagesCount != 3 {
		t.Errorf("images_count = %d, sum = %d", rec.ImagesCount, images)
	}
	want := []string{"Courier (10.2pt)", "Helvetica (12.0pt)"}
	if len(rec.FontsUsed) != len(want) {
		t.Fatalf("fonts_used = %v", rec.FontsUsed)
	}
	for i, f := range want {
		if rec.FontsUsed[i] != f {
			t.Errorf("fonts_used[%d] = %q, want %q", i, rec.FontsUsed[i], f)
		}
	}
	if rec.FileHash == "" || rec.FileSizeMB <= 0 {
		t.Errorf("hash %q, size %f", rec.FileHash, rec.FileSizeMB)
	}
	if rec.Metadata["Title"] != "Quarterly Report" {
		t.Errorf("metadata = %v", rec.Metadata)
	}
	if rec.Duplicate {
		t.Error("first extraction marked duplicate")
	}
}

func TestExtract_pageFailureIsolated(t *testing.T) {
	dir := t.TempDir()
	path := writeInput(t, dir, "partial.pdf", "partial bytes")
	doc := &reader.StaticDocument{PageList: []reader.StaticPage{
		{PlainText: "one"},
		{PlainText: "two"},
		{LoadErr: errors.New("damaged page")},
		{PlainText: "four"},
		{PlainText: "five"},
	}}
	opener := &reader.StaticOpener{Docs: map[string]*reader.StaticDocument{path: doc}}
	e := NewExtractor(opener)

	rec, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if rec.PageCount != 4 {
		t.Errorf("page_count = %d, want 4", rec.PageCount)
	}
	for _, p := range rec.Pages {
		if p.PageNumber == 3 {
			t.Error("failed page appears in record")
		}
	}
	if !doc.Closed() {
		t.Error("document not closed after extraction")
	}
}

func TestExtract_textFailureIsolated(t *testing.T) {
	dir := t.TempDir()
	path := writeInput(t, dir, "text-fail.pdf", "text-fail bytes")
	doc := &reader.StaticDocument{PageList: []reader.StaticPage{
		{PlainText: "fine"},
		{TextErr: errors.New("broken content stream")},
	}}
	opener := &reader.StaticOpener{Docs: map[string]*reader.StaticDocument{path: doc}}
	rec, err := NewExtractor(opener).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if rec.PageCount != 1 || rec.Pages[0].PageNumber != 1 {
		t.Errorf("unexpected pages: %+v", rec.Pages)
	}
}

func TestExtract_emptyPageSkipsFonts(t *testing.T) {
	dir := t.TempDir()
	path := writeInput(t, dir, "empty.pdf", "empty bytes")
	doc := &reader.StaticDocument{PageList: []reader.StaticPage{
		{PlainText: "", SpanList: []reader.Span{{Font: "Helvetica", Size: 12}}},
	}}
	opener := &reader.StaticOpener{Docs: map[string]*reader.StaticDocument{path: doc}}
	rec, err := NewExtractor(opener).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	p := rec.Pages[0]
	if p.WordCount != 0 || p.CharCount != 0 {
		t.Errorf("counts on empty page: %d words, %d chars", p.WordCount, p.CharCount)
	}
	if len(p.Fonts) != 0 {
		t.Errorf("fonts reported on empty page: %v", p.Fonts)
	}
}

func TestExtract_fontFailureNonFatal(t *testing.T) {
	dir := t.TempDir()
	path := writeInput(t, dir, "nofonts.pdf", "nofonts bytes")
	doc := &reader.StaticDocument{PageList: []reader.StaticPage{
		{PlainText: "has words", SpansErr: errors.New("bad font table")},
	}}
	opener := &reader.StaticOpener{Docs: map[string]*reader.StaticDocument{path: doc}}
	rec, err := NewExtractor(opener).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(rec.Pages[0].Fonts) != 0 {
		t.Errorf("fonts = %v, want empty", rec.Pages[0].Fonts)
	}
	if rec.Pages[0].WordCount != 2 {
		t.Errorf("word_count = %d", rec.Pages[0].WordCount)
	}
}

func TestExtract_imageFailures(t *testing.T) {
	dir := t.TempDir()
	path := writeInput(t, dir, "images.pdf", "images bytes")
	doc := &reader.StaticDocument{PageList: []reader.StaticPage{
		{
			PlainText: "page with images",
			ImageList: []reader.StaticImage{
				{Info: reader.ImageInfo{Width: 1, Height: 1, Encoding: "jpeg", SizeBytes: 10}},
				{Err: errors.New("corrupt stream")},
				{Info: reader.ImageInfo{Width: 2, Height: 2, Encoding: "flate", SizeBytes: 20}},
			},
		},
		{PlainText: "enumeration fails", ImagesErr: errors.New("bad resources")},
	}}
	opener := &reader.StaticOpener{Docs: map[string]*reader.StaticDocument{path: doc}}
	rec, err := NewExtractor(opener).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	imgs := rec.Pages[0].Images
	if len(imgs) != 2 {
		t.Fatalf("got %d images, want 2", len(imgs))
	}
	// The skipped image leaves a gap in the enumeration indices.
	if imgs[0].Index != 0 || imgs[1].Index != 2 {
		t.Errorf("indices = %d, %d", imgs[0].Index, imgs[1].Index)
	}
	if len(rec.Pages[1].Images) != 0 {
		t.Errorf("page 2 images = %v, want empty", rec.Pages[1].Images)
	}
	if rec.ImagesCount != 2 {
		t.Errorf("images_count = %d", rec.ImagesCount)
	}
}

func TestExtract_imagesDisabled(t *testing.T) {
	dir := t.TempDir()
	path := writeInput(t, dir, "noimg.pdf", "noimg bytes")
	opener := &reader.StaticOpener{Docs: map[string]*reader.StaticDocument{path: threePageDoc()}}
	rec, err := NewExtractor(opener, WithImageExtraction(false)).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if rec.ImagesCount != 0 {
		t.Errorf("images_count = %d with extraction disabled", rec.ImagesCount)
	}
}

func TestExtract_metadataTrimmed(t *testing.T) {
	dir := t.TempDir()
	path := writeInput(t, dir, "meta.pdf", "meta bytes")
	doc := &reader.StaticDocument{
		Meta: map[string]string{
			"Title":    "  Padded Title  ",
			"Author":   "   ",
			"Producer": "",
		},
		PageList: []reader.StaticPage{{PlainText: "x"}},
	}
	opener := &reader.StaticOpener{Docs: map[string]*reader.StaticDocument{path: doc}}
	rec, err := NewExtractor(opener).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(rec.Metadata) != 1 || rec.Metadata["Title"] != "Padded Title" {
		t.Errorf("metadata = %v", rec.Metadata)
	}
}

func TestExtract_metadataFailureNonFatal(t *testing.T) {
	dir := t.TempDir()
	path := writeInput(t, dir, "badmeta.pdf", "badmeta bytes")
	doc := &reader.StaticDocument{
		MetaErr:  errors.New("info dict unreadable"),
		PageList: []reader.StaticPage{{PlainText: "x"}},
	}
	opener := &reader.StaticOpener{Docs: map[string]*reader.StaticDocument{path: doc}}
	rec, err := NewExtractor(opener).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(rec.Metadata) != 0 {
		t.Errorf("metadata = %v, want empty", rec.Metadata)
	}
}

func TestExtract_documentNotFound(t *testing.T) {
	e := NewExtractor(&reader.StaticOpener{})
	_, err := e.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("got %v, want ErrDocumentNotFound", err)
	}
}

func TestExtract_openError(t *testing.T) {
	dir := t.TempDir()
	path := writeInput(t, dir, "broken.pdf", "broken bytes")
	opener := &reader.StaticOpener{OpenErr: map[string]error{path: errors.New("not a pdf")}}
	_, err := NewExtractor(opener).Extract(context.Background(), path)
	var openErr *OpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("got %v, want *OpenError", err)
	}
	if openErr.Path != path {
		t.Errorf("OpenError.Path = %q", openErr.Path)
	}
}

func TestExtract_dedupObserve(t *testing.T) {
	dir := t.TempDir()
	path := writeInput(t, dir, "twice.pdf", "twice bytes")
	opener := &reader.StaticOpener{Docs: map[string]*reader.StaticDocument{path: threePageDoc()}}
	e := NewExtractor(opener)

	first, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("first Extract: %v", err)
	}
	second, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("second Extract: %v", err)
	}
	if !second.Duplicate {
		t.Error("second extraction not marked duplicate")
	}
	// Idempotence: content-derived fields match across runs.
	if second.PageCount != first.PageCount ||
		second.TotalWords != first.TotalWords ||
		second.TotalChars != first.TotalChars ||
		second.FileHash != first.FileHash {
		t.Errorf("repeated extraction differs: %+v vs %+v", second, first)
	}
	for i := range first.FontsUsed {
		if second.FontsUsed[i] != first.FontsUsed[i] {
			t.Errorf("fonts differ at %d", i)
		}
	}
}

func TestExtract_dedupSkip(t *testing.T) {
	dir := t.TempDir()
	path := writeInput(t, dir, "skip.pdf", "same bytes")
	copyPath := writeInput(t, dir, "copy.pdf", "same bytes")
	doc := threePageDoc()
	opener := &reader.StaticOpener{Docs: map[string]*reader.StaticDocument{path: doc, copyPath: doc}}
	e := NewExtractor(opener, WithDedupMode(DedupSkip))

	if _, err := e.Extract(context.Background(), path); err != nil {
		t.Fatalf("first Extract: %v", err)
	}
	_, err := e.Extract(context.Background(), copyPath)
	if !errors.Is(err, ErrDuplicateDocument) {
		t.Errorf("got %v, want ErrDuplicateDocument", err)
	}
}

func TestExtract_cancelledContext(t *testing.T) {
	dir := t.TempDir()
	path := writeInput(t, dir, "cancel.pdf", "cancel bytes")
	opener := &reader.StaticOpener{Docs: map[string]*reader.StaticDocument{path: threePageDoc()}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewExtractor(opener).Extract(ctx, path); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestStats(t *testing.T) {
	dir := t.TempDir()
	path := writeInput(t, dir, "stats.pdf", "stats bytes")
	opener := &reader.StaticOpener{Docs: map[string]*reader.StaticDocument{path: threePageDoc()}}
	e := NewExtractor(opener, WithImageExtraction(false))

	if s := e.Stats(); s.FilesProcessed != 0 || s.ImagesEnabled {
		t.Errorf("initial stats: %+v", s)
	}
	if _, err := e.Extract(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	if s := e.Stats(); s.FilesProcessed != 1 {
		t.Errorf("stats after one file: %+v", s)
	}
}
