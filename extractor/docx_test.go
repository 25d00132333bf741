package extractor

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const docxRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	doc, err := w.Create("word/document.xml")
	require.NoError(t, err)
	_, err = doc.Write([]byte(documentXML))
	require.NoError(t, err)

	rels, err := w.Create("word/_rels/document.xml.rels")
	require.NoError(t, err)
	_, err = rels.Write([]byte(docxRels))
	require.NoError(t, err)

	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDOCXExtractorParagraphsJoinedByNewline(t *testing.T) {
	body := `<w:p><w:r><w:t>First paragraph</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph</w:t></w:r></w:p>`
	data := buildDOCX(t, sprintfDoc(body))

	e := &DOCXExtractor{}
	text, err := e.Extract(data)
	require.NoError(t, err)
	assert.Equal(t, "First paragraph\nSecond paragraph", text)
}

func TestDOCXExtractorPreservesSpaceAttributeRuns(t *testing.T) {
	body := `<w:p><w:r><w:t xml:space="preserve">lead </w:t></w:r><w:r><w:t>trail</w:t></w:r></w:p>`
	data := buildDOCX(t, sprintfDoc(body))

	e := &DOCXExtractor{}
	text, err := e.Extract(data)
	require.NoError(t, err)
	assert.Equal(t, "lead trail", text)
}

func TestDOCXExtractorDecodesEntities(t *testing.T) {
	body := `<w:p><w:r><w:t>Terms &amp; Conditions</w:t></w:r></w:p>`
	data := buildDOCX(t, sprintfDoc(body))

	e := &DOCXExtractor{}
	text, err := e.Extract(data)
	require.NoError(t, err)
	assert.Equal(t, "Terms & Conditions", text)
}

func TestDOCXExtractorDecodesNumericCharacterReferences(t *testing.T) {
	// Word writes smart quotes and dashes as numeric references.
	body := `<w:p><w:r><w:t>student&#8217;s notes &#x2013; part one</w:t></w:r></w:p>`
	data := buildDOCX(t, sprintfDoc(body))

	e := &DOCXExtractor{}
	text, err := e.Extract(data)
	require.NoError(t, err)
	assert.Equal(t, "student’s notes – part one", text)
}

func TestDOCXExtractorNoTextRuns(t *testing.T) {
	data := buildDOCX(t, sprintfDoc(`<w:p></w:p>`))

	e := &DOCXExtractor{}
	text, err := e.Extract(data)
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestDOCXExtractorCorruptInput(t *testing.T) {
	e := &DOCXExtractor{}

	_, err := e.Extract([]byte("definitely not a docx"))
	require.Error(t, err)

	var extractionErr *ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	assert.Equal(t, FormatDOCX, extractionErr.Format)
}

func TestDOCXExtractorEmptyInput(t *testing.T) {
	e := &DOCXExtractor{}

	_, err := e.Extract(nil)
	require.Error(t, err)
}

func sprintfDoc(body string) string {
	return `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>` + body + `</w:body>
</w:document>`
}
