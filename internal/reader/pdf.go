package reader

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFOpener opens PDF files with the pure-Go ledongthuc/pdf parser.
type PDFOpener struct{}

// NewPDFOpener returns an Opener backed by ledongthuc/pdf.
func NewPDFOpener() *PDFOpener {
	return &PDFOpener{}
}

// Open opens the PDF at path. The returned Document holds the file open
// until Close is called.
func (o *PDFOpener) Open(path string) (Document, error) {
	var (
		f *os.File
		r *pdf.Reader
	)
	err := guard("open pdf", func() error {
		var openErr error
		f, r, openErr = pdf.Open(path)
		return openErr
	})
	if err != nil {
		return nil, err
	}
	return &pdfDocument{f: f, r: r}, nil
}

type pdfDocument struct {
	f *os.File
	r *pdf.Reader
}

func (d *pdfDocument) PageCount() int {
	return d.r.NumPage()
}

func (d *pdfDocument) LoadPage(index int) (Page, error) {
	var p pdf.Page
	err := guard(fmt.Sprintf("load page %d", index+1), func() error {
		p = d.r.Page(index + 1) // the parser numbers pages from 1
		if p.V.IsNull() {
			return fmt.Errorf("page %d is missing or unusable", index+1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &pdfPage{p: p}, nil
}

func (d *pdfDocument) ResolveImage(ref ImageRef) (ImageInfo, error) {
	r, ok := ref.(pdfImageRef)
	if !ok {
		return ImageInfo{}, fmt.Errorf("image ref does not belong to a pdf document")
	}
	var info ImageInfo
	err := guard("resolve image "+r.name, func() error {
		info = ImageInfo{
			Width:     int(r.obj.Key("Width").Int64()),
			Height:    int(r.obj.Key("Height").Int64()),
			Encoding:  encodingFromFilter(r.obj.Key("Filter")),
			SizeBytes: int(r.obj.Key("Length").Int64()),
		}
		return nil
	})
	return info, err
}

// Metadata reads the trailer Info dictionary. Non-text entries are skipped.
func (d *pdfDocument) Metadata() (map[string]string, error) {
	md := map[string]string{}
	err := guard("read metadata", func() error {
		info := d.r.Trailer().Key("Info")
		if info.Kind() != pdf.Dict {
			return nil
		}
		for _, key := range info.Keys() {
			v := info.Key(key)
			switch v.Kind() {
			case pdf.String:
				md[key] = v.Text()
			case pdf.Name:
				md[key] = v.Name()
			}
		}
		return nil
	})
	return md, err
}

func (d *pdfDocument) Close() error {
	return d.f.Close()
}

type pdfPage struct {
	p pdf.Page
}

func (pg *pdfPage) Text() (string, error) {
	var text string
	err := guard("page text", func() error {
		var terr error
		text, terr = pg.p.GetPlainText(nil)
		return terr
	})
	return text, err
}

func (pg *pdfPage) Spans() ([]Span, error) {
	var spans []Span
	err := guard("page spans", func() error {
		content := pg.p.Content()
		spans = make([]Span, 0, len(content.Text))
		for _, t := range content.Text {
			spans = append(spans, Span{Font: t.Font, Size: t.FontSize})
		}
		return nil
	})
	return spans, err
}

// Images enumerates the image XObjects in the page resources. Inline images
// inside content streams are not reported.
func (pg *pdfPage) Images() ([]ImageRef, error) {
	var refs []ImageRef
	err := guard("page images", func() error {
		res := pg.p.Resources()
		if res.Kind() != pdf.Dict {
			return nil
		}
		xobj := res.Key("XObject")
		if xobj.Kind() != pdf.Dict {
			return nil
		}
		for _, name := range xobj.Keys() {
			obj := xobj.Key(name)
			if obj.Key("Subtype").Name() != "Image" {
				continue
			}
			refs = append(refs, pdfImageRef{name: name, obj: obj})
		}
		return nil
	})
	return refs, err
}

func (pg *pdfPage) BoundingBox() [4]float64 {
	var box [4]float64
	_ = guard("page media box", func() error {
		mb := inheritedMediaBox(pg.p.V)
		if mb.Kind() != pdf.Array || mb.Len() != 4 {
			return nil
		}
		for i := 0; i < 4; i++ {
			box[i] = numeric(mb.Index(i))
		}
		return nil
	})
	return box
}

type pdfImageRef struct {
	name string
	obj  pdf.Value
}

// inheritedMediaBox walks the page tree upward; MediaBox is inheritable.
func inheritedMediaBox(v pdf.Value) pdf.Value {
	for i := 0; i < 32 && !v.IsNull(); i++ {
		if mb := v.Key("MediaBox"); !mb.IsNull() {
			return mb
		}
		v = v.Key("Parent")
	}
	return pdf.Value{}
}

func numeric(v pdf.Value) float64 {
	switch v.Kind() {
	case pdf.Integer:
		return float64(v.Int64())
	case pdf.Real:
		return v.Float64()
	}
	return 0
}

func encodingFromFilter(filter pdf.Value) string {
	switch filter.Kind() {
	case pdf.Name:
		return encodingFromFilterName(filter.Name())
	case pdf.Array:
		// The image codec is the last filter in the chain.
		if n := filter.Len(); n > 0 {
			return encodingFromFilterName(filter.Index(n - 1).Name())
		}
	}
	return encodingFromFilterName("")
}

// encodingFromFilterName maps a PDF stream filter name to a short label.
func encodingFromFilterName(name string) string {
	switch name {
	case "DCTDecode":
		return "jpeg"
	case "JPXDecode":
		return "jp2"
	case "JBIG2Decode":
		return "jbig2"
	case "CCITTFaxDecode":
		return "ccitt"
	case "FlateDecode":
		return "flate"
	case "LZWDecode":
		return "lzw"
	case "RunLengthDecode":
		return "rle"
	case "":
		return "raw"
	}
	return strings.ToLower(strings.TrimSuffix(name, "Decode"))
}

// guard runs fn and converts panics into errors. The underlying parser
// panics on malformed cross-reference tables and content streams.
func guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: parser panic: %v", op, r)
		}
	}()
	return fn()
}
