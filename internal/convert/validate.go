package convert

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

const pdfMagic = "%PDF-"

// PageCount parses a fixed-layout document and returns its page count.
func PageCount(data []byte) (n int, err error) {
	if len(data) == 0 {
		return 0, errors.New("empty output")
	}
	if !bytes.HasPrefix(data, []byte(pdfMagic)) {
		return 0, errors.New("output is not a pdf")
	}
	// The parser panics on some truncated inputs.
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("parse pdf: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pdf: %w", err)
	}
	return reader.NumPage(), nil
}

// ValidatePDF accepts output that parses and has at least one page.
func ValidatePDF(data []byte) error {
	pages, err := PageCount(data)
	if err != nil {
		return err
	}
	if pages < 1 {
		return errors.New("pdf has no pages")
	}
	return nil
}
