package stats

import (
	"math"
	"testing"

	"omicsim/internal/model"
)

func TestSummarize(t *testing.T) {
	got := Summarize([]model.GeneTimeSeries{
		{Symbol: "TP53", MRNA: []float64{2, 4, 6}, Protein: []float64{1, 1, 1, 1}},
		{Symbol: "EGFR", MRNA: nil, Protein: []float64{410.2}},
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(got))
	}

	tp53 := got[0]
	if tp53.Samples != 3 || tp53.FinalMRNA != 6 || tp53.FinalProtein != 1 {
		t.Fatalf("unexpected TP53 summary: %+v", tp53)
	}
	if tp53.MeanMRNA != 4 || math.Abs(tp53.StdMRNA-2) > 1e-12 {
		t.Fatalf("expected mean 4 and sample stddev 2, got %+v", tp53)
	}
	if tp53.StdProtein != 0 {
		t.Fatalf("expected flat protein stddev 0, got %v", tp53.StdProtein)
	}

	egfr := got[1]
	if egfr.Samples != 0 || egfr.MeanMRNA != 0 || egfr.MeanProtein != 410.2 || egfr.StdProtein != 0 {
		t.Fatalf("unexpected seeded-only summary: %+v", egfr)
	}
}

func TestTopRisk(t *testing.T) {
	if _, ok := TopRisk(nil); ok {
		t.Fatal("expected no top risk for empty input")
	}
	top, ok := TopRisk([]model.RiskResult{
		{Disease: "B", Risk: 50},
		{Disease: "A", Risk: 50},
		{Disease: "C", Risk: 10},
	})
	if !ok || top.Disease != "A" {
		t.Fatalf("expected A on tie, got %+v", top)
	}
}
