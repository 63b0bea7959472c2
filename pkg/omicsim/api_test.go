package omicsim

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"omicsim/internal/blob"
	"omicsim/internal/catalog"
	"omicsim/internal/impact"
	"omicsim/internal/model"
	"omicsim/internal/risk"
	"omicsim/internal/sim"
	"omicsim/internal/stats"
)

func newTestClient(t *testing.T) (*Client, string) {
	t.Helper()
	base := t.TempDir()
	client, err := New(Options{
		StoreKind:    "memory",
		ArtifactsDir: filepath.Join(base, "runs"),
		Blob:         blob.Config{Driver: "fs", FSRoot: filepath.Join(base, "exports")},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	ids := 0
	client.newID = func() string {
		ids++
		return "run-" + string(rune('0'+ids))
	}
	clock := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	client.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, base
}

func TestClientRunRunsAndExport(t *testing.T) {
	client, base := newTestClient(t)
	ctx := context.Background()

	frames := 0
	summary, err := client.Run(ctx, RunRequest{
		Genes:   []string{"TP53", "EGFR"},
		Seed:    42,
		MaxTime: 1,
		OnFrame: func(sim.Frame) { frames++ },
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RunID != "run-1" || !summary.Completed || summary.Steps != 10 || frames != 10 {
		t.Fatalf("unexpected summary: %+v frames=%d", summary, frames)
	}
	if summary.ComparedWith != "" || len(summary.Changes) != 0 {
		t.Fatalf("expected no comparison for the first run, got %+v", summary)
	}
	if len(summary.Genes) != 2 || summary.Genes[0].Samples != 10 || len(summary.Risks) != 6 {
		t.Fatalf("unexpected run detail: %+v", summary)
	}
	if _, err := os.Stat(filepath.Join(summary.ArtifactsDir, "timeseries.csv")); err != nil {
		t.Fatalf("expected time series artifact: %v", err)
	}

	runs, err := client.Runs(ctx, RunsRequest{Limit: 5})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "run-1" || runs[0].Steps != 10 || runs[0].TopDisease == "" {
		t.Fatalf("unexpected runs list: %+v", runs)
	}

	exported, err := client.Export(ctx, ExportRequest{Latest: true, Prefix: "omics"})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if exported.RunID != "run-1" || exported.Driver != blob.DriverFilesystem || len(exported.Objects) != 5 {
		t.Fatalf("unexpected export summary: %+v", exported)
	}
	if _, err := os.Stat(filepath.Join(base, "exports", "omics", "run-1", "risk.json")); err != nil {
		t.Fatalf("expected exported risk file: %v", err)
	}
}

func TestClientRunComparesWithPreviousRun(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	if _, err := client.Run(ctx, RunRequest{Genes: []string{"TP53"}, Seed: 1, MaxTime: 0.5}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := client.Run(ctx, RunRequest{Preset: "high_noise", Seed: 1, MaxTime: 0.5})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.ComparedWith != "run-1" {
		t.Fatalf("expected comparison with run-1, got %q", second.ComparedWith)
	}
	if len(second.Changes) == 0 || second.Changes[0].Key != "expression_noise" || second.Changes[0].Impact != impact.LevelHigh {
		t.Fatalf("expected expression noise as the top change, got %+v", second.Changes)
	}

	record, err := client.GetRun(ctx, second.RunID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if record.Preset != "high_noise" || strings.Join(record.Genes, ",") != "TP53,MYC" {
		t.Fatalf("expected preset genes, got preset=%q genes=%v", record.Preset, record.Genes)
	}

	changes, err := client.Impact(ctx, ImpactRequest{FromRunID: "run-1"})
	if err != nil {
		t.Fatalf("impact: %v", err)
	}
	if len(changes) != len(second.Changes) {
		t.Fatalf("expected stored impact to match run summary, got %d vs %d", len(changes), len(second.Changes))
	}
	if _, err := client.Impact(ctx, ImpactRequest{}); err == nil {
		t.Fatal("expected missing baseline error")
	}

	onDisk, ok, err := stats.ReadImpact(client.artifactsDir, second.RunID)
	if err != nil || !ok || len(onDisk) != len(changes) {
		t.Fatalf("unexpected impact artifact: ok=%t err=%v changes=%d", ok, err, len(onDisk))
	}
}

func TestClientRunParametersOverridePreset(t *testing.T) {
	client, _ := newTestClient(t)
	params := model.DefaultParameters()
	params.ExpressionNoise = 0

	summary, err := client.Run(context.Background(), RunRequest{
		Preset:     "high_noise",
		Parameters: &params,
		Seed:       5,
		MaxTime:    0.3,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	record, err := client.GetRun(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if record.Parameters.ExpressionNoise != 0 || record.Seed != 5 {
		t.Fatalf("expected explicit parameters to win, got %+v", record.Parameters)
	}
}

func TestClientRunRejectsBadInput(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	if _, err := client.Run(ctx, RunRequest{MaxTime: 1}); !errors.Is(err, sim.ErrNoGenesSelected) {
		t.Fatalf("expected ErrNoGenesSelected, got %v", err)
	}
	if _, err := client.Run(ctx, RunRequest{Genes: []string{"NOPE"}}); !errors.Is(err, catalog.ErrUnknownGene) {
		t.Fatalf("expected ErrUnknownGene, got %v", err)
	}
	if _, err := client.Run(ctx, RunRequest{Preset: "zombie"}); !errors.Is(err, sim.ErrUnknownPreset) {
		t.Fatalf("expected ErrUnknownPreset, got %v", err)
	}
	if _, err := client.Run(ctx, RunRequest{Genes: []string{"TP53"}, Dt: -1}); err == nil {
		t.Fatal("expected bad clock error")
	}
}

func TestClientRiskReweighting(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	if _, err := client.Risk(ctx, RiskRequest{Latest: true}); !errors.Is(err, ErrNoRuns) {
		t.Fatalf("expected ErrNoRuns, got %v", err)
	}

	summary, err := client.Run(ctx, RunRequest{Genes: []string{"TP53", "BRCA1"}, Diseases: []string{"Breast Cancer"}, Seed: 3, MaxTime: 1})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	stored, err := client.Risk(ctx, RiskRequest{RunID: summary.RunID})
	if err != nil {
		t.Fatalf("risk: %v", err)
	}
	if len(stored) != 1 || stored[0].Disease != "Breast Cancer" {
		t.Fatalf("unexpected stored risks: %+v", stored)
	}

	same, err := client.Risk(ctx, RiskRequest{Latest: true, Weights: &risk.Weights{Genomics: 0.3, Transcriptomics: 0.3, Proteomics: 0.4}})
	if err != nil {
		t.Fatalf("risk reweight: %v", err)
	}
	if len(same) != 1 || same[0].Risk != stored[0].Risk {
		t.Fatalf("expected default weights to reproduce stored risk, got %+v want %+v", same, stored)
	}

	zero, err := client.Risk(ctx, RiskRequest{Latest: true, Weights: &risk.Weights{}})
	if err != nil {
		t.Fatalf("risk zero weights: %v", err)
	}
	if zero[0].Risk != 0 {
		t.Fatalf("expected zero weights to give zero risk, got %+v", zero[0])
	}

	if _, err := client.Risk(ctx, RiskRequest{RunID: "x", Latest: true}); err == nil {
		t.Fatal("expected conflicting selector error")
	}
}

func TestClientStopDuringRun(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()
	if err := client.Stop("anything"); err == nil {
		t.Fatal("expected stop before init to fail")
	}

	stopped := false
	summary, err := client.Run(ctx, RunRequest{
		RunID:   "run-stop",
		Genes:   []string{"MYC"},
		Seed:    9,
		MaxTime: 50,
		OnFrame: func(frame sim.Frame) {
			if !stopped && frame.Clock.Steps == 4 {
				stopped = true
				if err := client.Stop("run-stop"); err != nil {
					t.Errorf("stop: %v", err)
				}
			}
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !summary.Stopped || summary.Completed || summary.Steps != 4 || summary.ArtifactsDir != "" {
		t.Fatalf("unexpected stopped summary: %+v", summary)
	}
	runs, err := client.Runs(ctx, RunsRequest{})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected stopped run to stay out of the index, got %+v", runs)
	}
}

func TestClientImportGenes(t *testing.T) {
	client, _ := newTestClient(t)
	csv := "symbol,name,baseline_tpm,vmax,baseline_protein,default_eta\nSOX2,SRY-box 2,30,90,120,0.6\n"
	n, err := client.ImportGenes(strings.NewReader(csv), catalog.FormatCSV)
	if err != nil {
		t.Fatalf("import genes: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 imported gene, got %d", n)
	}
	if _, ok := client.Catalog().Gene("SOX2"); !ok {
		t.Fatal("expected SOX2 in catalog")
	}
	summary, err := client.Run(context.Background(), RunRequest{Genes: []string{"SOX2"}, Seed: 2, MaxTime: 0.2})
	if err != nil {
		t.Fatalf("run imported gene: %v", err)
	}
	if summary.Steps != 2 {
		t.Fatalf("expected 2 steps, got %d", summary.Steps)
	}
}

func TestClientExportRequiresSelector(t *testing.T) {
	client, _ := newTestClient(t)
	if _, err := client.Export(context.Background(), ExportRequest{}); err == nil {
		t.Fatal("expected missing selector error")
	}
	if _, err := client.Export(context.Background(), ExportRequest{RunID: "a", Latest: true}); err == nil {
		t.Fatal("expected conflicting selector error")
	}
	if _, err := client.Export(context.Background(), ExportRequest{Latest: true}); !errors.Is(err, ErrNoRuns) {
		t.Fatalf("expected ErrNoRuns, got %v", err)
	}
}

func TestClientFallsBackToArtifactsAcrossProcesses(t *testing.T) {
	base := t.TempDir()
	opts := Options{StoreKind: "memory", ArtifactsDir: filepath.Join(base, "runs")}

	first, err := New(opts)
	if err != nil {
		t.Fatalf("new first client: %v", err)
	}
	summary, err := first.Run(context.Background(), RunRequest{RunID: "run-a", Genes: []string{"KRAS"}, Seed: 4, MaxTime: 0.5})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	_ = first.Close()

	second, err := New(opts)
	if err != nil {
		t.Fatalf("new second client: %v", err)
	}
	t.Cleanup(func() {
		_ = second.Close()
	})
	ctx := context.Background()

	risks, err := second.Risk(ctx, RiskRequest{Latest: true})
	if err != nil {
		t.Fatalf("risk from artifacts: %v", err)
	}
	if len(risks) != len(summary.Risks) || risks[0].Disease != summary.Risks[0].Disease {
		t.Fatalf("unexpected risks from artifacts: %+v", risks)
	}
	if _, err := second.Risk(ctx, RiskRequest{Latest: true, Weights: &risk.Weights{Proteomics: 1}}); err == nil {
		t.Fatal("expected re-scoring without a stored record to fail")
	}

	params := model.DefaultParameters()
	params.TFConcentration = 1000
	next, err := second.Run(ctx, RunRequest{RunID: "run-b", Genes: []string{"KRAS"}, Parameters: &params, Seed: 4, MaxTime: 0.5})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if next.ComparedWith != "run-a" || len(next.Changes) != 1 || next.Changes[0].PercentChange != 100 {
		t.Fatalf("expected comparison against run-a from artifacts, got %+v", next)
	}

	changes, err := second.Impact(ctx, ImpactRequest{FromRunID: "run-a", ToRunID: "run-b"})
	if err != nil {
		t.Fatalf("impact: %v", err)
	}
	if len(changes) != 1 || changes[0].Key != "tf_concentration" {
		t.Fatalf("unexpected impact: %+v", changes)
	}
}

func TestClientEnsemble(t *testing.T) {
	client, base := newTestClient(t)
	ctx := context.Background()

	summary, err := client.Ensemble(ctx, EnsembleRequest{
		ID:         "ens",
		Replicates: 3,
		Run:        RunRequest{Genes: []string{"TP53", "MYC"}, Seed: 7, MaxTime: 1},
	})
	if err != nil {
		t.Fatalf("ensemble: %v", err)
	}
	if len(summary.RunIDs) != 3 || summary.RunIDs[0] != "ens-01" || summary.RunIDs[2] != "ens-03" {
		t.Fatalf("unexpected replicate ids: %v", summary.RunIDs)
	}
	if len(summary.Graphs) != 2 {
		t.Fatalf("expected a graph per gene, got %v", summary.Graphs)
	}
	if len(summary.Risks) == 0 {
		t.Fatal("expected risk spreads")
	}
	for _, spread := range summary.Risks {
		if spread.Min > spread.Mean || spread.Mean > spread.Max {
			t.Fatalf("inconsistent spread: %+v", spread)
		}
	}

	cfg, ok, err := stats.ReadRunConfig(filepath.Join(base, "runs"), "ens-02")
	if err != nil || !ok || cfg.Seed != 8 {
		t.Fatalf("expected replicate seed 8; cfg=%+v ok=%t err=%v", cfg, ok, err)
	}

	list, err := client.Ensembles(ctx)
	if err != nil {
		t.Fatalf("list ensembles: %v", err)
	}
	if len(list) != 1 || list[0].ID != "ens" || list[0].CompletedAtUTC == "" {
		t.Fatalf("unexpected ensembles: %+v", list)
	}
	if len(list[0].Genes) != 2 {
		t.Fatalf("expected recorded genes, got %v", list[0].Genes)
	}
}

func TestClientEnsembleRejectsBadInput(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()
	if _, err := client.Ensemble(ctx, EnsembleRequest{Replicates: 0, Run: RunRequest{Genes: []string{"TP53"}}}); err == nil {
		t.Fatal("expected replicate count error")
	}
	if _, err := client.Ensemble(ctx, EnsembleRequest{Replicates: 2, Run: RunRequest{RunID: "x", Genes: []string{"TP53"}}}); err == nil {
		t.Fatal("expected run id error")
	}
}
