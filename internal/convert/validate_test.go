package convert_test

import (
	"testing"

	"policy-backend/internal/convert"
	"policy-backend/internal/convert/converttest"
)

func TestPageCount(t *testing.T) {
	for _, pages := range []int{1, 3} {
		got, err := convert.PageCount(converttest.PDF(pages))
		if err != nil {
			t.Fatalf("PageCount(%d pages): %v", pages, err)
		}
		if got != pages {
			t.Fatalf("expected %d pages, got %d", pages, got)
		}
	}
}

func TestValidatePDFRejectsGarbage(t *testing.T) {
	inputs := map[string][]byte{
		"empty":     nil,
		"text":      []byte("hello"),
		"truncated": converttest.PDF(1)[:40],
	}
	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			if err := convert.ValidatePDF(data); err == nil {
				t.Fatalf("expected %s to be rejected", name)
			}
		})
	}
}
