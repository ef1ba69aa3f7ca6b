package extract

import (
	"errors"
	"testing"

	"github.com/ppiankov/openplag/internal/model"
)

func TestText_PlainText(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("An essay about rivers.")...)
	text, err := Text(data, "txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "An essay about rivers." {
		t.Errorf("unexpected text: %q", text)
	}
}

func TestText_HTML(t *testing.T) {
	text, err := Text([]byte(`<html><body><p>Rivers carry sediment.</p></body></html>`), ".HTML")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Rivers carry sediment." {
		t.Errorf("unexpected text: %q", text)
	}
}

func TestText_Errors(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		format string
		want   error
	}{
		{"pdf unsupported", []byte("%PDF-1.7"), "pdf", model.ErrUnsupportedFormat},
		{"docx unsupported", []byte("PK\x03\x04"), "docx", model.ErrUnsupportedFormat},
		{"empty text", []byte("   \n"), "txt", model.ErrCorruptFile},
		{"invalid utf8", []byte{0xff, 0xfe, 0xfd}, "txt", model.ErrCorruptFile},
		{"binary with txt extension", []byte("abc\x00def"), "md", model.ErrCorruptFile},
		{"empty html", []byte(""), "html", model.ErrCorruptFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Text(tt.data, tt.format)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var extractionErr *model.ExtractionError
			if !errors.As(err, &extractionErr) {
				t.Errorf("expected ExtractionError, got %T", err)
			}
		})
	}
}

func TestFormatFromFilename(t *testing.T) {
	if got := FormatFromFilename("Essay.Final.DOCX"); got != "docx" {
		t.Errorf("expected docx, got %s", got)
	}
	if got := FormatFromFilename("notes"); got != "" {
		t.Errorf("expected empty format, got %s", got)
	}
}
