// Package risk combines per-gene omics signals into a logistic disease risk.
package risk

import (
	"math"
	"sort"

	"omicsim/internal/model"
)

const (
	// SignalScale multiplies every baseline-normalised signal. It is a fixed
	// tuning constant, not derived from biology.
	SignalScale = 2.0
	// Steepness is the logistic slope applied to the combined score. Also a
	// tuning constant kept for numeric parity.
	Steepness = 1.5

	MinRisk = 0.0
	MaxRisk = 100.0
)

// GeneLookup resolves baselines for normalisation. *catalog.Catalog satisfies it.
type GeneLookup interface {
	Gene(symbol string) (model.Gene, bool)
}

// Weights are the user-facing layer weights; they need not sum to 1.
type Weights struct {
	Genomics        float64
	Transcriptomics float64
	Proteomics      float64
}

func WeightsFrom(p model.Parameters) Weights {
	return Weights{
		Genomics:        p.WeightGenomics,
		Transcriptomics: p.WeightTranscriptomics,
		Proteomics:      p.WeightProteomics,
	}
}

// Normalize scales the weights to sum to 1. ok is false when they sum to 0.
func (w Weights) Normalize() (Weights, bool) {
	total := w.Genomics + w.Transcriptomics + w.Proteomics
	if total == 0 {
		return Weights{}, false
	}
	return Weights{
		Genomics:        w.Genomics / total,
		Transcriptomics: w.Transcriptomics / total,
		Proteomics:      w.Proteomics / total,
	}, true
}

// Evaluate scores one disease against the latest layer values of the
// selected genes.
//
// Every selected gene with a value entry counts toward the per-layer mean,
// including genes the disease gives no weight to; such genes dilute the
// average. All-zero weights short-circuit to risk 0 with zero contributions.
func Evaluate(genes GeneLookup, values map[string]model.LayerValues, disease model.Disease, weights Weights, selected []string) model.RiskResult {
	result := model.RiskResult{Disease: disease.Name}
	norm, ok := weights.Normalize()
	if !ok {
		return result
	}

	var sum model.Contributions
	total := 0
	for _, symbol := range selected {
		v, ok := values[symbol]
		if !ok {
			continue
		}
		gene, _ := genes.Gene(symbol)
		w := disease.Weight(symbol)

		sum.Genomic += w * normalizeSignal(v.Genomic, gene.BaselineTPM)
		sum.Transcriptomic += w * normalizeSignal(v.Transcriptomic, gene.BaselineTPM)
		sum.Proteomic += w * normalizeSignal(v.Proteomic, gene.BaselineProtein)
		total++
	}
	if total > 0 {
		n := float64(total)
		sum.Genomic /= n
		sum.Transcriptomic /= n
		sum.Proteomic /= n
	}

	score := norm.Genomics*sum.Genomic +
		norm.Transcriptomics*sum.Transcriptomic +
		norm.Proteomics*sum.Proteomic +
		disease.Bias

	result.Risk = Sigmoid(score)
	result.Contributions = sum
	return result
}

// Sigmoid maps a combined score onto [0, 100]. NaN scores map to 0.
func Sigmoid(score float64) float64 {
	r := MaxRisk / (1 + math.Exp(-Steepness*score))
	if math.IsNaN(r) {
		return MinRisk
	}
	return math.Max(MinRisk, math.Min(MaxRisk, r))
}

// EvaluateAll scores every disease and orders results by descending risk,
// then by name.
func EvaluateAll(genes GeneLookup, values map[string]model.LayerValues, diseases []model.Disease, weights Weights, selected []string) []model.RiskResult {
	out := make([]model.RiskResult, 0, len(diseases))
	for _, disease := range diseases {
		out = append(out, Evaluate(genes, values, disease, weights, selected))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Risk == out[j].Risk {
			return out[i].Disease < out[j].Disease
		}
		return out[i].Risk > out[j].Risk
	})
	return out
}

func normalizeSignal(value, baseline float64) float64 {
	if baseline <= 0 {
		return 0
	}
	return (value / baseline) * SignalScale
}

// Level buckets a risk percentage for display.
type Level string

const (
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
)

func Classify(risk float64) Level {
	switch {
	case risk < 30:
		return LevelLow
	case risk < 60:
		return LevelModerate
	default:
		return LevelHigh
	}
}
