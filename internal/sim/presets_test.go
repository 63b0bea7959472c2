package sim

import (
	"testing"

	"omicsim/internal/catalog"
)

func TestPresetsReferenceCatalogGenes(t *testing.T) {
	cat := catalog.Default()
	seen := map[string]bool{}
	for _, p := range Presets() {
		if seen[p.Name] {
			t.Fatalf("duplicate preset %s", p.Name)
		}
		seen[p.Name] = true
		if len(p.Genes) == 0 {
			t.Fatalf("preset %s has no genes", p.Name)
		}
		for _, symbol := range p.Genes {
			if _, ok := cat.Gene(symbol); !ok {
				t.Fatalf("preset %s references unknown gene %s", p.Name, symbol)
			}
		}
		if warnings := p.Parameters.Validate(); len(warnings) != 0 {
			t.Fatalf("preset %s out of range: %v", p.Name, warnings)
		}
	}
	if len(seen) != 6 {
		t.Fatalf("expected 6 presets, got %d", len(seen))
	}
}

func TestPresetsAreIndependentCopies(t *testing.T) {
	first := Presets()
	first[0].Genes[0] = "MUTATED"
	first[0].Parameters.TFConcentration = -1

	p, ok := LookupPreset(first[0].Name)
	if !ok {
		t.Fatalf("lookup %s", first[0].Name)
	}
	if p.Genes[0] == "MUTATED" || p.Parameters.TFConcentration < 0 {
		t.Fatalf("expected untouched preset, got %+v", p)
	}
}
