// Package extractor converts raw file bytes of one declared format into plain
// text. Each extractor is independent and holds no mutable state; failures are
// typed so callers can map them onto persisted status and HTTP responses.
package extractor

import (
	"encoding/xml"
	"fmt"
	"path/filepath"
	"strings"
)

// Format is the closed set of supported file formats.
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatDOCX  Format = "docx"
	FormatPPTX  Format = "pptx"
	FormatImage Format = "image"
	FormatText  Format = "text"
)

type Extractor interface {
	Extract(data []byte) (string, error)
}

// UnsupportedFormatError carries the offending tag for diagnostics.
type UnsupportedFormatError struct {
	Tag string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file type: %q", e.Tag)
}

// DecodeError reports input bytes that could not be decoded as the declared
// format (corrupt image, invalid UTF-8).
type DecodeError struct {
	Format Format
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ExtractionError reports a failure inside an extractor after the bytes were
// accepted (parser error, OCR backend error).
type ExtractionError struct {
	Format Format
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Resolve maps a declared file-type tag onto a Format. Tags are
// case-insensitive and a leading dot is tolerated, so "PDF", "pdf" and ".pdf"
// all resolve to FormatPDF. When the tag is empty the filename extension is
// used instead. Anything outside the recognized set fails with
// *UnsupportedFormatError.
func Resolve(tag, filename string) (Format, error) {
	normalized := normalizeTag(tag)
	if normalized == "" {
		normalized = normalizeTag(filepath.Ext(filename))
	}

	switch normalized {
	case "pdf":
		return FormatPDF, nil
	case "docx", "doc":
		return FormatDOCX, nil
	case "pptx", "ppt":
		return FormatPPTX, nil
	case "image", "jpg", "jpeg", "png", "bmp", "tiff":
		return FormatImage, nil
	case "text", "txt":
		return FormatText, nil
	default:
		return "", &UnsupportedFormatError{Tag: tag}
	}
}

func normalizeTag(tag string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(tag)), ".")
}

// Set holds one extractor per format.
type Set struct {
	byFormat map[Format]Extractor
}

func NewSet(ocr *OCRClient) *Set {
	return &Set{
		byFormat: map[Format]Extractor{
			FormatPDF:   &PDFExtractor{},
			FormatDOCX:  &DOCXExtractor{},
			FormatPPTX:  &PPTXExtractor{},
			FormatImage: &ImageExtractor{OCR: ocr},
			FormatText:  &TextExtractor{},
		},
	}
}

// NewSetWithExtractors builds a Set from an explicit format table, for
// callers that substitute individual extractors.
func NewSetWithExtractors(byFormat map[Format]Extractor) *Set {
	return &Set{byFormat: byFormat}
}

// ForFormat returns the extractor for a resolved format. The map is total
// over the Format constants, so a miss means the format came from outside
// Resolve.
func (s *Set) ForFormat(f Format) (Extractor, error) {
	ex, ok := s.byFormat[f]
	if !ok {
		return nil, &UnsupportedFormatError{Tag: string(f)}
	}
	return ex, nil
}

// sanitize removes NUL bytes that PostgreSQL cannot store and trims
// surrounding whitespace.
func sanitize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}

// decodeXMLText resolves entity and numeric character references in XML
// character data. Unknown entities pass through untouched.
func decodeXMLText(s string) string {
	dec := xml.NewDecoder(strings.NewReader(s))
	dec.Strict = false
	var b strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		if cd, ok := tok.(xml.CharData); ok {
			b.Write(cd)
		}
	}
	return b.String()
}
