package pdfextract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrEmptyDocument = errors.New("pdf content is empty")

// ExtractText returns the plain text of a PDF, cut to maxRunes when
// maxRunes is positive. A PDF without extractable text yields "".
func ExtractText(data []byte, maxRunes int) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyDocument
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf failed: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text failed: %w", err)
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf text failed: %w", err)
	}
	return truncate(strings.TrimSpace(string(out)), maxRunes), nil
}

// PageCount reports the number of pages without reading page content.
func PageCount(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, ErrEmptyDocument
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("open pdf failed: %w", err)
	}
	return reader.NumPage(), nil
}

func truncate(text string, maxRunes int) string {
	if maxRunes <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes])
}
