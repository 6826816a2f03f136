// Package reader defines the document reader contract the extraction
// pipeline consumes, plus a PDF implementation. The pipeline itself never
// parses document structure; everything upstream of pages comes through
// these interfaces.
package reader

// Span is a contiguous run of text sharing one font name and size within a
// line of structured text.
type Span struct {
	Font string
	Size float64
}

// ImageRef identifies one embedded image on a page. Refs are opaque and only
// meaningful to the Document that produced them.
type ImageRef any

// ImageInfo is a resolved embedded image.
type ImageInfo struct {
	Width     int
	Height    int
	Encoding  string
	SizeBytes int
}

// Page exposes the content of one loaded page.
type Page interface {
	// Text returns the plain text of the page.
	Text() (string, error)
	// Spans returns the structured-text spans of the page.
	Spans() ([]Span, error)
	// Images enumerates embedded image references in page order.
	Images() ([]ImageRef, error)
	// BoundingBox returns the page rectangle as [x0, y0, x1, y1].
	BoundingBox() [4]float64
}

// Document is one opened document. A Document handle is not safe for
// concurrent page access; callers drive pages sequentially.
type Document interface {
	PageCount() int
	// LoadPage loads the page at the given zero-based index.
	LoadPage(index int) (Page, error)
	// ResolveImage resolves a reference returned by Page.Images.
	ResolveImage(ref ImageRef) (ImageInfo, error)
	// Metadata returns the document information dictionary as strings.
	Metadata() (map[string]string, error)
	Close() error
}

// Opener opens documents by path.
type Opener interface {
	Open(path string) (Document, error)
}
