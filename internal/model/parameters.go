package model

import (
	"fmt"
	"math"
)

// Parameters is the single set of knobs read by the engine on every step.
// Values outside the documented ranges are accepted; Validate only reports them.
type Parameters struct {
	// TFConcentration is the transcription factor level in nM, >= 0.
	TFConcentration float64 `json:"tf_concentration" yaml:"tf_concentration"`
	// BindingAffinity is Kd in µM, > 0.
	BindingAffinity float64 `json:"binding_affinity" yaml:"binding_affinity"`
	// HillCoefficient is the cooperativity exponent, typically 1-4.
	HillCoefficient float64 `json:"hill_coefficient" yaml:"hill_coefficient"`
	// MethylationFactor is the silenced fraction, 0-1.
	MethylationFactor float64 `json:"methylation_factor" yaml:"methylation_factor"`
	// MutationSeverity is the loss-of-function fraction, 0-1.
	MutationSeverity      float64 `json:"mutation_severity" yaml:"mutation_severity"`
	TranslationEfficiency float64 `json:"translation_efficiency" yaml:"translation_efficiency"`
	ProteinDegradation    float64 `json:"protein_degradation" yaml:"protein_degradation"`
	// ExpressionNoise is the Gaussian noise stdev as a fraction of expression.
	ExpressionNoise       float64 `json:"expression_noise" yaml:"expression_noise"`
	WeightGenomics        float64 `json:"weight_genomics" yaml:"weight_genomics"`
	WeightTranscriptomics float64 `json:"weight_transcriptomics" yaml:"weight_transcriptomics"`
	WeightProteomics      float64 `json:"weight_proteomics" yaml:"weight_proteomics"`
}

func DefaultParameters() Parameters {
	return Parameters{
		TFConcentration:       500,
		BindingAffinity:       0.5,
		HillCoefficient:       2,
		MethylationFactor:     0.1,
		MutationSeverity:      0,
		TranslationEfficiency: 0.7,
		ProteinDegradation:    0.1,
		ExpressionNoise:       0.05,
		WeightGenomics:        0.3,
		WeightTranscriptomics: 0.3,
		WeightProteomics:      0.4,
	}
}

// ParameterField names one entry of Parameters.
type ParameterField struct {
	Key   string
	Label string
	Value float64
}

// Fields enumerates the parameters in declaration order.
func (p Parameters) Fields() []ParameterField {
	return []ParameterField{
		{Key: "tf_concentration", Label: "TF Concentration", Value: p.TFConcentration},
		{Key: "binding_affinity", Label: "Binding Affinity (Kd)", Value: p.BindingAffinity},
		{Key: "hill_coefficient", Label: "Hill Coefficient", Value: p.HillCoefficient},
		{Key: "methylation_factor", Label: "Methylation Factor", Value: p.MethylationFactor},
		{Key: "mutation_severity", Label: "Mutation Severity", Value: p.MutationSeverity},
		{Key: "translation_efficiency", Label: "Translation Efficiency", Value: p.TranslationEfficiency},
		{Key: "protein_degradation", Label: "Protein Degradation", Value: p.ProteinDegradation},
		{Key: "expression_noise", Label: "Expression Noise", Value: p.ExpressionNoise},
		{Key: "weight_genomics", Label: "Genomics Weight", Value: p.WeightGenomics},
		{Key: "weight_transcriptomics", Label: "Transcriptomics Weight", Value: p.WeightTranscriptomics},
		{Key: "weight_proteomics", Label: "Proteomics Weight", Value: p.WeightProteomics},
	}
}

// Set assigns a field by key.
func (p *Parameters) Set(key string, value float64) error {
	switch key {
	case "tf_concentration":
		p.TFConcentration = value
	case "binding_affinity":
		p.BindingAffinity = value
	case "hill_coefficient":
		p.HillCoefficient = value
	case "methylation_factor":
		p.MethylationFactor = value
	case "mutation_severity":
		p.MutationSeverity = value
	case "translation_efficiency":
		p.TranslationEfficiency = value
	case "protein_degradation":
		p.ProteinDegradation = value
	case "expression_noise":
		p.ExpressionNoise = value
	case "weight_genomics":
		p.WeightGenomics = value
	case "weight_transcriptomics":
		p.WeightTranscriptomics = value
	case "weight_proteomics":
		p.WeightProteomics = value
	default:
		return fmt.Errorf("unknown parameter: %s", key)
	}
	return nil
}

// Validate returns one warning per value outside its documented range. An
// empty result means every value is typical; warnings never stop a run.
func (p Parameters) Validate() []string {
	var warnings []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			warnings = append(warnings, fmt.Sprintf(format, args...))
		}
	}
	for _, f := range p.Fields() {
		check(!math.IsNaN(f.Value) && !math.IsInf(f.Value, 0), "%s must be finite, got %v", f.Key, f.Value)
	}
	check(p.TFConcentration >= 0, "tf_concentration must be >= 0, got %g", p.TFConcentration)
	check(p.BindingAffinity > 0, "binding_affinity must be > 0, got %g", p.BindingAffinity)
	check(p.HillCoefficient > 0, "hill_coefficient must be > 0, got %g", p.HillCoefficient)
	check(p.MethylationFactor >= 0 && p.MethylationFactor <= 1, "methylation_factor must be in [0, 1], got %g", p.MethylationFactor)
	check(p.MutationSeverity >= 0 && p.MutationSeverity <= 1, "mutation_severity must be in [0, 1], got %g", p.MutationSeverity)
	check(p.TranslationEfficiency >= 0, "translation_efficiency must be >= 0, got %g", p.TranslationEfficiency)
	check(p.ProteinDegradation >= 0, "protein_degradation must be >= 0, got %g", p.ProteinDegradation)
	check(p.ExpressionNoise >= 0, "expression_noise must be >= 0, got %g", p.ExpressionNoise)
	check(p.WeightGenomics >= 0, "weight_genomics must be >= 0, got %g", p.WeightGenomics)
	check(p.WeightTranscriptomics >= 0, "weight_transcriptomics must be >= 0, got %g", p.WeightTranscriptomics)
	check(p.WeightProteomics >= 0, "weight_proteomics must be >= 0, got %g", p.WeightProteomics)
	return warnings
}
