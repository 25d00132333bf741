package extractor

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

var (
	docxParagraphSplit = regexp.MustCompile(`</w:p>`)
	docxRunPattern     = regexp.MustCompile(`(?s)<w:t[^>]*>(.*?)</w:t>`)
)

// DOCXExtractor concatenates paragraph texts in document order, one paragraph
// per line.
type DOCXExtractor struct{}

func (e *DOCXExtractor) Extract(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &ExtractionError{Format: FormatDOCX, Err: err}
	}
	defer doc.Close()

	content := doc.Editable().GetContent()

	var b strings.Builder
	for _, paragraph := range docxParagraphSplit.Split(content, -1) {
		runs := docxRunPattern.FindAllStringSubmatch(paragraph, -1)
		for _, run := range runs {
			b.WriteString(decodeXMLText(run[1]))
		}
		if len(runs) > 0 {
			b.WriteString("\n")
		}
	}

	return sanitize(b.String()), nil
}
