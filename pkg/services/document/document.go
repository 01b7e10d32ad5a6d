// Package document turns uploaded invoice files into plain text, reading
// embedded PDF text first and falling back to OCR for scans and images.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"invoice-desk/pkg/services/ocr"
)

var (
	// ErrOCRUnavailable is returned for documents that need OCR when no engine is configured
	ErrOCRUnavailable = errors.New("This document has no embedded text and OCR is not configured. Please fill the fields manually.")
	// ErrUnsupported is returned for file types that cannot be read
	ErrUnsupported = errors.New("Supported file types: PDF, JPEG, PNG, TIFF")
)

// Kind classifies an uploaded file by extension
type Kind string

const (
	KindPDF     Kind = "pdf"
	KindImage   Kind = "image"
	KindUnknown Kind = ""
)

var extensions = map[string]struct {
	kind Kind
	mime string
}{
	".pdf":  {KindPDF, "application/pdf"},
	".jpg":  {KindImage, "image/jpeg"},
	".jpeg": {KindImage, "image/jpeg"},
	".png":  {KindImage, "image/png"},
	".tif":  {KindImage, "image/tiff"},
	".tiff": {KindImage, "image/tiff"},
}

// KindOf reports the kind of filename based on its extension
func KindOf(filename string) Kind {
	return extensions[strings.ToLower(filepath.Ext(filename))].kind
}

// AllowedFile reports whether filename has a supported extension
func AllowedFile(filename string) bool {
	return KindOf(filename) != KindUnknown
}

// MIMEType returns the content type stored alongside filename
func MIMEType(filename string) string {
	if e, ok := extensions[strings.ToLower(filepath.Ext(filename))]; ok {
		return e.mime
	}
	return "application/octet-stream"
}

// Extractor reads text out of PDFs and images. The recognizer may be nil,
// in which case only PDFs with embedded text can be read.
type Extractor struct {
	recognizer ocr.Recognizer
	conf       *model.Configuration
}

// NewExtractor creates an extractor using recognizer for scanned content
func NewExtractor(recognizer ocr.Recognizer) *Extractor {
	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	return &Extractor{recognizer: recognizer, conf: conf}
}

// OCREnabled reports whether scanned documents can be read
func (e *Extractor) OCREnabled() bool {
	return e.recognizer != nil
}

// ExtractText returns the text of the document in data
func (e *Extractor) ExtractText(ctx context.Context, filename string, data []byte) (string, error) {
	switch KindOf(filename) {
	case KindPDF:
		return e.pdfText(ctx, data)
	case KindImage:
		return e.imageText(ctx, data)
	default:
		return "", ErrUnsupported
	}
}

func (e *Extractor) imageText(ctx context.Context, data []byte) (string, error) {
	if e.recognizer == nil {
		return "", ErrOCRUnavailable
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	lines, err := e.recognizer.Recognize(ctx, img)
	if err != nil {
		return "", err
	}
	return ocr.JoinLines(lines), nil
}
