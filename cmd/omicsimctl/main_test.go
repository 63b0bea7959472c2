package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"omicsim/internal/model"
)

func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func mustExecute(t *testing.T, args ...string) string {
	t.Helper()
	out, err := executeCmd(t, args...)
	if err != nil {
		t.Fatalf("omicsimctl %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestVersionJSON(t *testing.T) {
	out := mustExecute(t, "version", "--json")
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode version: %v", err)
	}
	if got["version"] != version {
		t.Fatalf("unexpected version output: %v", got)
	}
}

func TestCatalogCommands(t *testing.T) {
	genes := mustExecute(t, "genes")
	if n := strings.Count(genes, "symbol="); n != 8 {
		t.Fatalf("expected 8 genes, got %d:\n%s", n, genes)
	}
	if !strings.Contains(genes, "symbol=EGFR") {
		t.Fatalf("expected EGFR in listing:\n%s", genes)
	}

	diseases := mustExecute(t, "diseases")
	if n := strings.Count(diseases, "disease="); n != 6 {
		t.Fatalf("expected 6 diseases, got %d:\n%s", n, diseases)
	}

	presets := mustExecute(t, "presets")
	if n := strings.Count(presets, "preset="); n != 6 {
		t.Fatalf("expected 6 presets, got %d:\n%s", n, presets)
	}
	if !strings.Contains(presets, "preset=healthy genes=TP53,BRCA1,EGFR overrides=none") {
		t.Fatalf("expected healthy preset without overrides:\n%s", presets)
	}
	if !strings.Contains(presets, "overrides=expression_noise=0.3") {
		t.Fatalf("expected high_noise override:\n%s", presets)
	}
}

func TestImportGenesCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "genes.csv")
	body := "symbol,name,baseline_tpm,vmax,baseline_protein\nSOX2,SRY-box 2,30,90,120\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write genes: %v", err)
	}
	out := mustExecute(t, "import-genes", path)
	if !strings.HasPrefix(out, "imported=1 total=9 ") || !strings.Contains(out, "SOX2") {
		t.Fatalf("unexpected import output: %s", out)
	}

	bad := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(bad, []byte("symbol,name,baseline_tpm,vmax,baseline_protein\nX,,0,1,1\n"), 0o644); err != nil {
		t.Fatalf("write bad genes: %v", err)
	}
	if _, err := executeCmd(t, "import-genes", bad); err == nil {
		t.Fatal("expected invalid gene file to fail")
	}

	runs := filepath.Join(dir, "runs")
	run := mustExecute(t, "run", "--store", "memory", "--artifacts-dir", runs, "--genes-file", path, "--genes", "SOX2", "--max-time", "0.3", "--seed", "2")
	if !strings.Contains(run, "gene=SOX2") || !strings.Contains(run, "steps=3") {
		t.Fatalf("expected run over imported gene:\n%s", run)
	}
}

func TestRunWorkflow(t *testing.T) {
	dir := t.TempDir()
	common := []string{"--store", "memory", "--artifacts-dir", filepath.Join(dir, "runs")}
	with := func(args ...string) []string {
		return append(append([]string(nil), args...), common...)
	}

	first := mustExecute(t, with("run", "--run-id", "r1", "--genes", "TP53,EGFR", "--max-time", "1", "--seed", "3", "--progress", "5")...)
	if !strings.Contains(first, "run_id=r1 status=completed steps=10 sim_time=1.00h") {
		t.Fatalf("unexpected first run output:\n%s", first)
	}
	if strings.Count(first, "t=") != 2 {
		t.Fatalf("expected two progress lines:\n%s", first)
	}
	if strings.Contains(first, "compared_with=") {
		t.Fatalf("did not expect a comparison on the first run:\n%s", first)
	}

	second := mustExecute(t, with("run", "--run-id", "r2", "--genes", "TP53,EGFR", "--max-time", "1", "--seed", "3", "--param", "tf_concentration=1000")...)
	if !strings.Contains(second, "compared_with=r1 changes=1") {
		t.Fatalf("expected comparison with r1:\n%s", second)
	}
	if !strings.Contains(second, "param=tf_concentration 500->1000 increase 100.0% impact=high") {
		t.Fatalf("expected tf change line:\n%s", second)
	}

	runs := mustExecute(t, with("runs")...)
	if strings.Count(runs, "run_id=") != 2 || !strings.HasPrefix(runs, "run_id=r2 ") {
		t.Fatalf("expected r2 listed first:\n%s", runs)
	}

	impactOut := mustExecute(t, with("impact", "--from", "r1", "--to", "r2")...)
	if !strings.Contains(impactOut, "param=tf_concentration") {
		t.Fatalf("unexpected impact output:\n%s", impactOut)
	}

	riskOut := mustExecute(t, with("risk", "--latest", "--json")...)
	var risks []model.RiskResult
	if err := json.Unmarshal([]byte(riskOut), &risks); err != nil {
		t.Fatalf("decode risks: %v", err)
	}
	if len(risks) != 6 {
		t.Fatalf("expected 6 risk results, got %d", len(risks))
	}

	exportDir := filepath.Join(dir, "exports")
	exportOut := mustExecute(t, with("export", "--latest", "--out", exportDir, "--prefix", "omics")...)
	if !strings.Contains(exportOut, "exported run_id=r2 driver=fs objects=5") {
		t.Fatalf("unexpected export output:\n%s", exportOut)
	}
	if _, err := os.Stat(filepath.Join(exportDir, "omics", "r2", "timeseries.csv")); err != nil {
		t.Fatalf("expected exported csv: %v", err)
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	common := []string{"--store", "memory", "--artifacts-dir", t.TempDir()}
	cases := map[string][]string{
		"no genes":     {"run", "--max-time", "1"},
		"bad param":    {"run", "--genes", "TP53", "--param", "tf_concentration"},
		"unknown key":  {"run", "--genes", "TP53", "--param", "speed=2"},
		"bad preset":   {"run", "--preset", "zombie"},
		"unknown gene": {"run", "--genes", "NOPE"},
		"bad level":    {"run", "--genes", "TP53", "--log-level", "loud"},
	}
	for name, args := range cases {
		if _, err := executeCmd(t, append(args, common...)...); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestSelectorFlagsAreValidated(t *testing.T) {
	common := []string{"--store", "memory", "--artifacts-dir", t.TempDir()}
	if _, err := executeCmd(t, append([]string{"export"}, common...)...); err == nil {
		t.Fatal("expected export without selector to fail")
	}
	if _, err := executeCmd(t, append([]string{"export", "--run-id", "a", "--latest"}, common...)...); err == nil {
		t.Fatal("expected conflicting selectors to fail")
	}
	if _, err := executeCmd(t, append([]string{"impact"}, common...)...); err == nil {
		t.Fatal("expected impact without --from to fail")
	}
	if _, err := executeCmd(t, append([]string{"runs", "--limit", "0"}, common...)...); err == nil {
		t.Fatal("expected non-positive limit to fail")
	}
	out := mustExecute(t, append([]string{"runs"}, common...)...)
	if strings.TrimSpace(out) != "no runs found" {
		t.Fatalf("unexpected empty listing: %q", out)
	}
}

func TestParseWeights(t *testing.T) {
	w, err := parseWeights("0.2, 0.2,0.6")
	if err != nil {
		t.Fatalf("parse weights: %v", err)
	}
	if w.Genomics != 0.2 || w.Proteomics != 0.6 {
		t.Fatalf("unexpected weights: %+v", w)
	}
	for _, raw := range []string{"1,2", "a,b,c", "1,-1,1"} {
		if _, err := parseWeights(raw); err == nil {
			t.Fatalf("%q: expected error", raw)
		}
	}
}

func TestApplyParamOverrides(t *testing.T) {
	p := model.DefaultParameters()
	if err := applyParamOverrides(&p, []string{"hill_coefficient=3", " expression_noise = 0 "}); err != nil {
		t.Fatalf("apply overrides: %v", err)
	}
	if p.HillCoefficient != 3 || p.ExpressionNoise != 0 {
		t.Fatalf("unexpected parameters: %+v", p)
	}
}

func TestEnsembleCommand(t *testing.T) {
	dir := t.TempDir()
	runsDir := filepath.Join(dir, "runs")
	common := []string{"--store", "memory", "--artifacts-dir", runsDir}

	out := mustExecute(t, append([]string{"ensemble", "--id", "e1", "--replicates", "2", "--genes", "TP53", "--max-time", "1", "--seed", "10"}, common...)...)
	if !strings.Contains(out, "ensemble_id=e1 replicates=2 runs=e1-01,e1-02") {
		t.Fatalf("unexpected ensemble output:\n%s", out)
	}
	if strings.Count(out, "graph=") != 1 {
		t.Fatalf("expected one graph line:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(runsDir, "ensembles", "e1", "graph_TP53_ensemble.dat")); err != nil {
		t.Fatalf("expected graph file: %v", err)
	}

	list := mustExecute(t, append([]string{"ensemble", "list"}, common...)...)
	if !strings.HasPrefix(list, "ensemble_id=e1 ") || !strings.Contains(list, "base_seed=10 replicates=2") {
		t.Fatalf("unexpected ensemble list:\n%s", list)
	}

	if _, err := executeCmd(t, append([]string{"ensemble", "--replicates", "0", "--genes", "TP53"}, common...)...); err == nil {
		t.Fatal("expected zero replicates to fail")
	}
}
