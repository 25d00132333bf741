package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor concatenates the text of every page in document order. Pages
// without an extractable text layer contribute nothing, so a fully scanned
// PDF yields an empty string rather than an error.
type PDFExtractor struct{}

func (e *PDFExtractor) Extract(data []byte) (text string, err error) {
	// The pdf library panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &ExtractionError{Format: FormatPDF, Err: fmt.Errorf("pdf parser panic: %v", r)}
		}
	}()

	reader, rerr := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if rerr != nil {
		return "", &ExtractionError{Format: FormatPDF, Err: rerr}
	}

	var b strings.Builder
	totalPages := reader.NumPage()
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		func() {
			defer func() { _ = recover() }()
			page := reader.Page(pageNum)
			if page.V.IsNull() {
				return
			}
			pageText, perr := page.GetPlainText(nil)
			if perr != nil {
				return
			}
			b.WriteString(pageText)
		}()
	}

	return sanitize(b.String()), nil
}
