package catalog

import "omicsim/internal/model"

func builtinGenes() []model.Gene {
	return []model.Gene{
		{
			Symbol:          "TP53",
			Name:            "Tumor protein p53",
			Description:     "Tumor suppressor regulating cell cycle arrest, DNA repair and apoptosis.",
			BaselineTPM:     45.2,
			Vmax:            120,
			BaselineProtein: 320.5,
			DefaultEta:      0.7,
		},
		{
			Symbol:          "BRCA1",
			Name:            "Breast cancer type 1 susceptibility protein",
			Description:     "DNA double-strand break repair via homologous recombination.",
			BaselineTPM:     12.8,
			Vmax:            60,
			BaselineProtein: 95.4,
			DefaultEta:      0.6,
		},
		{
			Symbol:          "EGFR",
			Name:            "Epidermal growth factor receptor",
			Description:     "Receptor tyrosine kinase driving proliferation signalling.",
			BaselineTPM:     38.6,
			Vmax:            150,
			BaselineProtein: 410.2,
			DefaultEta:      0.8,
		},
		{
			Symbol:          "MYC",
			Name:            "Myc proto-oncogene protein",
			Description:     "Transcription factor controlling growth and metabolism genes.",
			BaselineTPM:     52.1,
			Vmax:            180,
			BaselineProtein: 150.7,
			DefaultEta:      0.5,
		},
		{
			Symbol:          "KRAS",
			Name:            "GTPase KRas",
			Description:     "Small GTPase relaying growth factor signals; frequent oncogenic mutations.",
			BaselineTPM:     30.4,
			Vmax:            110,
			BaselineProtein: 260.3,
			DefaultEta:      0.75,
		},
		{
			Symbol:          "APOE",
			Name:            "Apolipoprotein E",
			Description:     "Lipid transport protein; the e4 allele is a major Alzheimer's risk factor.",
			BaselineTPM:     210.5,
			Vmax:            400,
			BaselineProtein: 1250,
			DefaultEta:      0.9,
		},
		{
			Symbol:          "INS",
			Name:            "Insulin",
			Description:     "Peptide hormone regulating glucose uptake.",
			BaselineTPM:     85.3,
			Vmax:            250,
			BaselineProtein: 600.8,
			DefaultEta:      0.85,
		},
		{
			Symbol:          "TNF",
			Name:            "Tumor necrosis factor",
			Description:     "Pro-inflammatory cytokine.",
			BaselineTPM:     8.9,
			Vmax:            40,
			BaselineProtein: 55.2,
			DefaultEta:      0.65,
		},
	}
}

func builtinDiseases() []model.Disease {
	return []model.Disease{
		{
			Name:        "Breast Cancer",
			Description: "Malignancy of breast tissue; loss of BRCA1/TP53 function raises risk.",
			GeneWeights: map[string]float64{"BRCA1": -1.2, "TP53": -0.8, "MYC": 0.6, "EGFR": 0.5},
			Bias:        -0.5,
		},
		{
			Name:        "Lung Cancer",
			Description: "Non-small cell lung carcinoma driven by EGFR/KRAS signalling.",
			GeneWeights: map[string]float64{"EGFR": 1.0, "KRAS": 0.9, "TP53": -0.7},
			Bias:        -1.0,
		},
		{
			Name:        "Colorectal Cancer",
			Description: "Carcinoma of the colon or rectum.",
			GeneWeights: map[string]float64{"KRAS": 0.8, "TP53": -0.9, "MYC": 0.7},
			Bias:        -0.8,
		},
		{
			Name:        "Alzheimer's Disease",
			Description: "Progressive neurodegeneration associated with APOE and inflammation.",
			GeneWeights: map[string]float64{"APOE": 1.1, "TNF": 0.6},
			Bias:        -1.5,
		},
		{
			Name:        "Type 2 Diabetes",
			Description: "Metabolic disorder of insulin resistance and secretion.",
			GeneWeights: map[string]float64{"INS": -1.0, "TNF": 0.5},
			Bias:        -0.3,
		},
		{
			Name:        "Rheumatoid Arthritis",
			Description: "Autoimmune inflammatory joint disease.",
			GeneWeights: map[string]float64{"TNF": 1.3},
			Bias:        -1.2,
		},
	}
}
