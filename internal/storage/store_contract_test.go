package storage

import (
	"context"
	"testing"
	"time"

	"omicsim/internal/model"
)

func sampleRun(id string, created time.Time) model.RunRecord {
	return model.RunRecord{
		VersionedRecord: Versioned(),
		ID:              id,
		CreatedAt:       created,
		Preset:          "healthy",
		Seed:            7,
		Parameters:      model.DefaultParameters(),
		Clock:           model.Clock{Time: 0.2, Dt: 0.1, MaxTime: 0.2, Steps: 2},
		Genes:           []string{"TP53"},
		Series: []model.GeneTimeSeries{
			{Symbol: "TP53", MRNA: []float64{50, 51}, Protein: []float64{320.5, 320.8, 321.1}},
		},
		Latest:    map[string]model.LayerValues{"TP53": {Genomic: 51, Transcriptomic: 51, Proteomic: 321.1}},
		Risks:     []model.RiskResult{{Disease: "Breast Cancer", Risk: 12.5}},
		Completed: true,
	}
}

// exerciseRunStore checks the behaviour every backend shares.
func exerciseRunStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)

	if _, ok, err := store.GetRun(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing run; ok=%t err=%v", ok, err)
	}

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		if err := store.SaveRun(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	got, ok, err := store.GetRun(ctx, "run-b")
	if err != nil {
		t.Fatalf("get run-b: %v", err)
	}
	if !ok {
		t.Fatal("expected run-b")
	}
	if got.Preset != "healthy" || len(got.Series) != 1 || len(got.Series[0].Protein) != 3 || !got.CreatedAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("unexpected run loaded: %+v", got)
	}

	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 3 || runs[0].ID != "run-c" || runs[2].ID != "run-a" {
		t.Fatalf("expected newest first, got %d runs", len(runs))
	}
	limited, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 || limited[0].ID != "run-c" {
		t.Fatalf("unexpected limited listing: %d", len(limited))
	}

	updated := sampleRun("run-a", base.Add(5*time.Hour))
	updated.Preset = "high_noise"
	if err := store.SaveRun(ctx, updated); err != nil {
		t.Fatalf("upsert run-a: %v", err)
	}
	runs, err = store.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("list after upsert: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-a" || runs[0].Preset != "high_noise" {
		t.Fatalf("unexpected upsert result: %+v", runs)
	}

	if err := store.DeleteRun(ctx, "run-b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, err := store.GetRun(ctx, "run-b"); err != nil || ok {
		t.Fatalf("expected run-b deleted; ok=%t err=%v", ok, err)
	}
	if err := store.DeleteRun(ctx, "run-b"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}

	stale := sampleRun("run-stale", base)
	stale.SchemaVersion = 0
	if err := store.SaveRun(ctx, stale); err == nil {
		t.Fatal("expected unversioned record to be rejected")
	}
}
