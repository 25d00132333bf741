package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var pptxSlidePattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// PPTXExtractor concatenates the text runs of every slide, slides in document
// order, runs in their within-slide order, one run per line. Shapes without
// text (images, charts) carry no text runs and are skipped naturally.
type PPTXExtractor struct{}

func (e *PPTXExtractor) Extract(data []byte) (string, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &ExtractionError{Format: FormatPPTX, Err: err}
	}

	type slideFile struct {
		num  int
		file *zip.File
	}
	var slides []slideFile
	for _, f := range zipReader.File {
		m := pptxSlidePattern.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		num, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		slides = append(slides, slideFile{num: num, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var parts []string
	for _, s := range slides {
		rc, err := s.file.Open()
		if err != nil {
			return "", &ExtractionError{Format: FormatPPTX, Err: err}
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", &ExtractionError{Format: FormatPPTX, Err: err}
		}
		if text := slideText(content); text != "" {
			parts = append(parts, text)
		}
	}

	return sanitize(strings.Join(parts, "\n")), nil
}

// slideText collects the character data of every <a:t> run in the slide XML.
func slideText(content []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(content))
	var parts []string
	var cur strings.Builder
	inRun := false
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inRun = true
				cur.Reset()
			}
		case xml.CharData:
			if inRun {
				cur.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local == "t" && inRun {
				parts = append(parts, cur.String())
				inRun = false
			}
		}
	}
	return strings.Join(parts, "\n")
}
