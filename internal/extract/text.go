// Package extract turns submitted files and search result pages into text
// and links.
package extract

import (
	"bytes"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/openplag/internal/model"
	"github.com/ppiankov/openplag/internal/normalize"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FormatFromFilename returns the lowercase extension used as a format hint
func FormatFromFilename(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

// Text extracts plain text from file bytes. Plain text and HTML are
// handled here; binary document formats are reported as unsupported.
func Text(data []byte, formatHint string) (string, error) {
	format := strings.ToLower(strings.TrimPrefix(formatHint, "."))

	switch format {
	case "", "txt", "text", "md", "markdown":
		return plainText(data, format)
	case "html", "htm", "xhtml":
		if len(bytes.TrimSpace(data)) == 0 {
			return "", &model.ExtractionError{Format: format, Err: model.ErrCorruptFile}
		}
		_, text, err := normalize.ExtractHTML(bytes.NewReader(data))
		if err != nil {
			return "", &model.ExtractionError{Format: format, Err: model.ErrCorruptFile}
		}
		return text, nil
	default:
		return "", &model.ExtractionError{Format: format, Err: model.ErrUnsupportedFormat}
	}
}

func plainText(data []byte, format string) (string, error) {
	if format == "" {
		format = "txt"
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return "", &model.ExtractionError{Format: format, Err: model.ErrCorruptFile}
	}
	// NUL bytes mean a binary file with a text extension
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return "", &model.ExtractionError{Format: format, Err: model.ErrCorruptFile}
	}
	return string(data), nil
}
