package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Gene is an immutable catalog entry keyed by its symbol.
type Gene struct {
	Symbol          string  `json:"symbol" yaml:"symbol"`
	Name            string  `json:"name" yaml:"name"`
	Description     string  `json:"description,omitempty" yaml:"description,omitempty"`
	BaselineTPM     float64 `json:"baseline_tpm" yaml:"baseline_tpm"`
	Vmax            float64 `json:"vmax" yaml:"vmax"`
	BaselineProtein float64 `json:"baseline_protein" yaml:"baseline_protein"`
	DefaultEta      float64 `json:"default_eta" yaml:"default_eta"`
}

// Disease is an immutable catalog entry keyed by its name.
type Disease struct {
	Name        string             `json:"name" yaml:"name"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	GeneWeights map[string]float64 `json:"gene_weights" yaml:"gene_weights"`
	Bias        float64            `json:"bias" yaml:"bias"`
}

// Weight returns the signed weight for symbol, 0 when the disease does not list it.
func (d Disease) Weight(symbol string) float64 {
	return d.GeneWeights[symbol]
}

// LayerValues holds the latest signal of one gene on each omics layer.
type LayerValues struct {
	Genomic        float64 `json:"genomic"`
	Transcriptomic float64 `json:"transcriptomic"`
	Proteomic      float64 `json:"proteomic"`
}

// GeneTimeSeries is the per-run history of one selected gene. Protein is
// seeded with the baseline before the first step, so len(Protein) is always
// len(MRNA)+1.
type GeneTimeSeries struct {
	Symbol  string    `json:"symbol"`
	MRNA    []float64 `json:"mrna"`
	Protein []float64 `json:"protein"`
}

// Clone returns a deep copy of the series.
func (s GeneTimeSeries) Clone() GeneTimeSeries {
	return GeneTimeSeries{
		Symbol:  s.Symbol,
		MRNA:    append([]float64(nil), s.MRNA...),
		Protein: append([]float64(nil), s.Protein...),
	}
}

// LastProtein returns the most recent protein sample and false when the
// series has not been seeded.
func (s GeneTimeSeries) LastProtein() (float64, bool) {
	if len(s.Protein) == 0 {
		return 0, false
	}
	return s.Protein[len(s.Protein)-1], true
}

// Clock tracks simulated time in hours. Time is always Steps*Dt.
type Clock struct {
	Time    float64 `json:"time"`
	Dt      float64 `json:"dt"`
	MaxTime float64 `json:"max_time"`
	Steps   int     `json:"steps"`
}

// Contributions are the per-layer averaged signals before weighting.
type Contributions struct {
	Genomic        float64 `json:"genomic"`
	Transcriptomic float64 `json:"transcriptomic"`
	Proteomic      float64 `json:"proteomic"`
}

type RiskResult struct {
	Disease       string        `json:"name"`
	Risk          float64       `json:"risk"`
	Contributions Contributions `json:"contributions"`
}

// Flows aggregates the latest step across all selected genes.
type Flows struct {
	TotalExpression float64 `json:"total_expression"`
	TotalMRNA       float64 `json:"total_mrna"`
	TotalProtein    float64 `json:"total_protein"`
	MeanMRNA        float64 `json:"mean_mrna"`
	MeanProtein     float64 `json:"mean_protein"`
}

// RunRecord is the persisted outcome of one completed (or stopped) run.
type RunRecord struct {
	VersionedRecord
	ID         string                 `json:"id"`
	CreatedAt  time.Time              `json:"created_at"`
	Preset     string                 `json:"preset,omitempty"`
	Seed       int64                  `json:"seed"`
	Parameters Parameters             `json:"parameters"`
	Clock      Clock                  `json:"clock"`
	Genes      []string               `json:"genes"`
	Series     []GeneTimeSeries       `json:"series"`
	Latest     map[string]LayerValues `json:"latest,omitempty"`
	Risks      []RiskResult           `json:"risks"`
	Flows      Flows                  `json:"flows"`
	Completed  bool                   `json:"completed"`
}
