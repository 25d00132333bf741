package extractor

import (
	"errors"
	"unicode/utf8"
)

// TextExtractor decodes bytes as UTF-8. Invalid sequences fail with a
// DecodeError instead of being silently replaced.
type TextExtractor struct{}

func (e *TextExtractor) Extract(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", &DecodeError{Format: FormatText, Err: errors.New("invalid UTF-8 byte sequence")}
	}
	return sanitize(string(data)), nil
}
