package metrics

import (
	"strings"
	"testing"
)

func TestRenderIncludesLabeledFailures(t *testing.T) {
	IncRenderFailed("conversion_failed")
	IncRenderFailed("conversion_failed")
	IncRenderFailed("template_error")

	out := Render()
	if !strings.Contains(out, `render_failed_total{kind="conversion_failed"} 2`) {
		t.Fatalf("missing conversion_failed counter:\n%s", out)
	}
	if !strings.Contains(out, `render_failed_total{kind="template_error"} 1`) {
		t.Fatalf("missing template_error counter:\n%s", out)
	}
}

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	snap := h.Snapshot()
	if snap.count != 3 {
		t.Fatalf("expected count 3, got %d", snap.count)
	}
	if snap.counts[0] != 1 || snap.counts[1] != 1 {
		t.Fatalf("unexpected per-bucket counts: %v", snap.counts)
	}
}
