package extractor

import (
	"bytes"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// ImageExtractor decodes the image and runs it through the OCR backend.
// Corrupt or non-image bytes fail with a DecodeError before any network call.
type ImageExtractor struct {
	OCR *OCRClient
}

func (e *ImageExtractor) Extract(data []byte) (string, error) {
	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		return "", &DecodeError{Format: FormatImage, Err: err}
	}

	text, err := e.OCR.Recognize(data, "image")
	if err != nil {
		return "", &ExtractionError{Format: FormatImage, Err: err}
	}
	return sanitize(text), nil
}
