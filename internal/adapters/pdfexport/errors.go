package pdfexport

import "errors"

// ErrRender wraps failures from the PDF library.
var ErrRender = errors.New("render practice sheet")
