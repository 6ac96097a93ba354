package metrics

import (
	"strings"
	"testing"
)

func TestCounterRender(t *testing.T) {
	reg := New()
	c := reg.Counter("advise_requests_total", "Total advise requests")
	c.Inc()
	c.Add(2)

	out := reg.Render()
	if !strings.Contains(out, "# TYPE advise_requests_total counter") {
		t.Errorf("missing TYPE line:\n%s", out)
	}
	if !strings.Contains(out, "advise_requests_total 3") {
		t.Errorf("missing value line:\n%s", out)
	}
}

func TestCounterLabels(t *testing.T) {
	reg := New()
	reg.Counter(WithLabels("build_documents_total", "result", "ok"), "Documents built").Add(5)
	reg.Counter(WithLabels("build_documents_total", "result", "skipped"), "").Inc()

	out := reg.Render()
	if !strings.Contains(out, `build_documents_total{result="ok"} 5`) {
		t.Errorf("missing ok line:\n%s", out)
	}
	if !strings.Contains(out, `build_documents_total{result="skipped"} 1`) {
		t.Errorf("missing skipped line:\n%s", out)
	}
	// One TYPE header for both label combos.
	if strings.Count(out, "# TYPE build_documents_total") != 1 {
		t.Errorf("duplicated TYPE lines:\n%s", out)
	}
}

func TestGauge(t *testing.T) {
	reg := New()
	g := reg.Gauge("index_chunks", "Chunks in the loaded index")
	g.Set(10)
	g.Inc()
	g.Dec()
	if g.Value() != 10 {
		t.Fatalf("value = %d", g.Value())
	}
	if !strings.Contains(reg.Render(), "index_chunks 10") {
		t.Error("gauge missing from render")
	}
}

func TestHistogramCumulativeBuckets(t *testing.T) {
	reg := New()
	h := reg.Histogram("advise_duration_seconds", "Advise latency", []float64{0.1, 1, 10})
	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(100)

	out := reg.Render()
	for _, want := range []string{
		`advise_duration_seconds_bucket{le="0.1"} 1`,
		`advise_duration_seconds_bucket{le="1"} 2`,
		`advise_duration_seconds_bucket{le="10"} 2`,
		`advise_duration_seconds_bucket{le="+Inf"} 3`,
		`advise_duration_seconds_count 3`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestSameMetricReturned(t *testing.T) {
	reg := New()
	a := reg.Counter("x", "")
	b := reg.Counter("x", "")
	a.Inc()
	if b.Value() != 1 {
		t.Fatal("Counter must return the same instance for the same name")
	}
}
