package reader

import "fmt"

// StaticOpener serves in-memory documents by path. It implements Opener for
// tests and for driving the pipeline without real PDF input.
type StaticOpener struct {
	Docs    map[string]*StaticDocument
	OpenErr map[string]error // per-path open failures
}

// Open returns the static document registered for path.
func (o *StaticOpener) Open(path string) (Document, error) {
	if err := o.OpenErr[path]; err != nil {
		return nil, err
	}
	doc, ok := o.Docs[path]
	if !ok {
		return nil, fmt.Errorf("no document registered for %s", path)
	}
	doc.closed = false
	return doc, nil
}

// StaticDocument is an in-memory Document.
type StaticDocument struct {
	PageList []StaticPage
	Meta     map[string]string
	MetaErr  error

	closed bool
}

// StaticPage is one page of a StaticDocument. The Err fields simulate the
// corresponding reader failures.
type StaticPage struct {
	PlainText string
	SpanList  []Span
	ImageList []StaticImage
	Box       [4]float64

	LoadErr   error
	TextErr   error
	SpansErr  error
	ImagesErr error
}

// StaticImage is one embedded image; Err simulates a resolution failure.
type StaticImage struct {
	Info ImageInfo
	Err  error
}

func (d *StaticDocument) PageCount() int {
	return len(d.PageList)
}

func (d *StaticDocument) LoadPage(index int) (Page, error) {
	if index < 0 || index >= len(d.PageList) {
		return nil, fmt.Errorf("page index %d out of range", index)
	}
	p := &d.PageList[index]
	if p.LoadErr != nil {
		return nil, p.LoadErr
	}
	return staticPage{p: p}, nil
}

func (d *StaticDocument) ResolveImage(ref ImageRef) (ImageInfo, error) {
	r, ok := ref.(staticImageRef)
	if !ok {
		return ImageInfo{}, fmt.Errorf("image ref does not belong to a static document")
	}
	if r.img.Err != nil {
		return ImageInfo{}, r.img.Err
	}
	return r.img.Info, nil
}

func (d *StaticDocument) Metadata() (map[string]string, error) {
	if d.MetaErr != nil {
		return nil, d.MetaErr
	}
	return d.Meta, nil
}

func (d *StaticDocument) Close() error {
	d.closed = true
	return nil
}

// Closed reports whether Close has been called since the last Open.
func (d *StaticDocument) Closed() bool {
	return d.closed
}

type staticImageRef struct {
	img StaticImage
}

type staticPage struct {
	p *StaticPage
}

func (s staticPage) Text() (string, error) {
	if s.p.TextErr != nil {
		return "", s.p.TextErr
	}
	return s.p.PlainText, nil
}

func (s staticPage) Spans() ([]Span, error) {
	if s.p.SpansErr != nil {
		return nil, s.p.SpansErr
	}
	return s.p.SpanList, nil
}

func (s staticPage) Images() ([]ImageRef, error) {
	if s.p.ImagesErr != nil {
		return nil, s.p.ImagesErr
	}
	refs := make([]ImageRef, 0, len(s.p.ImageList))
	for _, img := range s.p.ImageList {
		refs = append(refs, staticImageRef{img: img})
	}
	return refs, nil
}

func (s staticPage) BoundingBox() [4]float64 {
	return s.p.Box
}
