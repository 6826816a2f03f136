package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrDocumentNotFound reports that the input path does not exist.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrDuplicateDocument reports a processed-set hit under DedupSkip.
	ErrDuplicateDocument = errors.New("document already processed")
)

// OpenError reports that the document reader could not open or parse a file.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("cannot open document %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}
