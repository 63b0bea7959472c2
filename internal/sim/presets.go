package sim

import (
	"errors"

	"omicsim/internal/model"
)

var ErrUnknownPreset = errors.New("unknown preset")

// Preset is a named parameter set with the genes it is meant to be read on.
type Preset struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Genes       []string         `json:"genes"`
	Parameters  model.Parameters `json:"parameters"`
}

func builtinPresets() []Preset {
	healthy := model.DefaultParameters()

	suppressorLoss := model.DefaultParameters()
	suppressorLoss.MutationSeverity = 0.7
	suppressorLoss.MethylationFactor = 0.2

	oncogene := model.DefaultParameters()
	oncogene.TFConcentration = 2000
	oncogene.BindingAffinity = 0.3
	oncogene.HillCoefficient = 2.5
	oncogene.MethylationFactor = 0.05

	silencing := model.DefaultParameters()
	silencing.MethylationFactor = 0.8

	noisy := model.DefaultParameters()
	noisy.ExpressionNoise = 0.3

	neuro := model.DefaultParameters()
	neuro.TFConcentration = 800
	neuro.TranslationEfficiency = 0.9
	neuro.ProteinDegradation = 0.05
	neuro.WeightProteomics = 0.6

	return []Preset{
		{Name: "healthy", Description: "Default regulation with mild methylation.", Genes: []string{"TP53", "BRCA1", "EGFR"}, Parameters: healthy},
		{Name: "tumor_suppressor_loss", Description: "Loss-of-function mutation in tumour suppressors.", Genes: []string{"TP53", "BRCA1"}, Parameters: suppressorLoss},
		{Name: "oncogene_activation", Description: "Strong, tight TF binding drives oncogenes.", Genes: []string{"EGFR", "KRAS", "MYC"}, Parameters: oncogene},
		{Name: "epigenetic_silencing", Description: "Promoter hypermethylation silences expression.", Genes: []string{"BRCA1", "TP53"}, Parameters: silencing},
		{Name: "high_noise", Description: "Large stochastic fluctuation in transcription.", Genes: []string{"TP53", "MYC"}, Parameters: noisy},
		{Name: "neurodegeneration", Description: "Slow protein clearance with proteome-weighted risk.", Genes: []string{"APOE", "TNF"}, Parameters: neuro},
	}
}

// Presets lists the built-in presets in display order.
func Presets() []Preset {
	return builtinPresets()
}

func LookupPreset(name string) (Preset, bool) {
	for _, p := range builtinPresets() {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}
